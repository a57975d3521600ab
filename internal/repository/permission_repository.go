package repository // repository defines data access for permissions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// PermissionRepo stores hall-pass requests.
type PermissionRepo struct {
	db *sql.DB
}

// NewPermissionRepo constructs a PermissionRepo with the given DB handle.
func NewPermissionRepo(db *sql.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// Create inserts a PENDING permission and fills in its ID.
func (r *PermissionRepo) Create(ctx context.Context, p *model.Permission) error {
	p.Status = model.PermissionPending
	p.StartsAt = p.StartsAt.UTC().Truncate(time.Second)
	p.EndsAt = p.EndsAt.UTC().Truncate(time.Second)
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (student_id, type, status, reason, starts_at, ends_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.StudentID, string(p.Type), string(p.Status), p.Reason,
		database.TimeArg(p.StartsAt), database.TimeArg(p.EndsAt), database.TimeArg(p.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

const permissionColumns = `id, student_id, type, status, reason, starts_at, ends_at, decided_by, created_at`

func scanPermission(s rowScanner) (model.Permission, error) {
	var (
		p             model.Permission
		typ, status   string
		sAt, eAt, cAt database.Time
		decidedBy     sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.StudentID, &typ, &status, &p.Reason, &sAt, &eAt, &decidedBy, &cAt); err != nil {
		return model.Permission{}, err
	}
	p.Type = model.PermissionType(typ)
	p.Status = model.PermissionStatus(status)
	p.StartsAt, p.EndsAt, p.CreatedAt = sAt.Time, eAt.Time, cAt.Time
	if decidedBy.Valid {
		id := uint64(decidedBy.Int64)
		p.DecidedBy = &id
	}
	return p, nil
}

// GetByID retrieves a permission or model.ErrPermissionNotFound.
func (r *PermissionRepo) GetByID(ctx context.Context, id uint64) (model.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Permission{}, model.ErrPermissionNotFound
	}
	return p, err
}

// Decide approves or rejects a PENDING permission.  Deciding one that was
// already decided returns model.ErrConflict.
func (r *PermissionRepo) Decide(ctx context.Context, id uint64, status model.PermissionStatus, deciderID uint64) (model.Permission, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET status = ?, decided_by = ? WHERE id = ? AND status = ?`,
		string(status), deciderID, id, string(model.PermissionPending))
	if err != nil {
		return model.Permission{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return model.Permission{}, err
		}
		return model.Permission{}, model.ErrConflict
	}
	return r.GetByID(ctx, id)
}

// ActivePermissions returns the APPROVED permissions whose window contains
// at.
func (r *PermissionRepo) ActivePermissions(ctx context.Context, at time.Time) ([]model.Permission, error) {
	ts := database.TimeArg(at)
	return r.list(ctx,
		`SELECT `+permissionColumns+` FROM permissions
		 WHERE status = ? AND starts_at <= ? AND ends_at > ?
		 ORDER BY starts_at, id`,
		string(model.PermissionApproved), ts, ts)
}

// ListByStudent returns a student's permissions, newest first.
func (r *PermissionRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.Permission, error) {
	return r.list(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE student_id = ? ORDER BY starts_at DESC, id DESC`,
		studentID)
}

// ListPending returns every permission awaiting a decision, oldest first.
func (r *PermissionRepo) ListPending(ctx context.Context) ([]model.Permission, error) {
	return r.list(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE status = ? ORDER BY created_at, id`,
		string(model.PermissionPending))
}

func (r *PermissionRepo) list(ctx context.Context, q string, args ...any) ([]model.Permission, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// StatusSource feeds the seat status resolver.
type StatusSource struct {
	Nodes       *NodeRepo
	Permissions *PermissionRepo
}

func (s StatusSource) SeatsWithAssignments(ctx context.Context, roomID uint64) ([]model.SeatWithAssignment, error) {
	return s.Nodes.SeatsWithAssignments(ctx, roomID)
}

func (s StatusSource) ActivePermissions(ctx context.Context, at time.Time) ([]model.Permission, error) {
	return s.Permissions.ActivePermissions(ctx, at)
}
