package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/model"
	"github.com/iliyamo/studyroom-seating/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes password, inserts the user and fills in its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Login = strings.ToLower(strings.TrimSpace(u.Login))
	u.Name = strings.TrimSpace(u.Name)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (login, name, password_hash, role, grade, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		u.Login, u.Name, hash, u.Role, u.Grade, true, database.TimeArg(now), database.TimeArg(now))
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrLoginExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

const userColumns = "id,login,name,password_hash,role,grade,is_active,created_at,updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		grade    sql.NullInt64
		cAt, uAt database.Time
	)
	if err := s.Scan(&u.ID, &u.Login, &u.Name, &u.PasswordHash, &u.Role, &grade, &u.IsActive, &cAt, &uAt); err != nil {
		return model.User{}, err
	}
	if grade.Valid {
		g := int(grade.Int64)
		u.Grade = &g
	}
	u.CreatedAt, u.UpdatedAt = cAt.Time, uAt.Time
	return u, nil
}

func (r *UserRepo) one(ctx context.Context, q queryer, where string, arg any) (model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	return u, err
}

// GetByLogin fetches a user by normalized login.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	return r.one(ctx, r.DB, "login=?", strings.ToLower(strings.TrimSpace(login)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.one(ctx, r.DB, "id=?", id)
}

// StudentsByName returns the active students whose name is exactly name.
// The SQL match is narrowed byte for byte so a case or accent insensitive
// collation cannot widen it.
func (r *UserRepo) StudentsByName(ctx context.Context, name string) ([]model.User, error) {
	name = strings.TrimSpace(name)
	found, err := r.students(ctx, "name=?", name, 0)
	if err != nil {
		return nil, err
	}
	out := found[:0]
	for _, u := range found {
		if u.Name == name {
			out = append(out, u)
		}
	}
	return out, nil
}

// SearchStudents returns up to limit active students whose name starts
// with prefix, ordered by name.
func (r *UserRepo) SearchStudents(ctx context.Context, prefix string, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	p := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.TrimSpace(prefix))
	return r.students(ctx, "name LIKE ? ESCAPE '!'", p+"%", limit)
}

func (r *UserRepo) students(ctx context.Context, where string, arg any, limit int) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE role=? AND is_active=1 AND " + where + " ORDER BY name, id"
	args := []any{model.RoleStudent, arg}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetActive enables or disables an account.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=?, updated_at=? WHERE id=?",
		active, database.TimeArg(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
