package repository // repository defines data access for rooms

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// RoomRepo provides methods to work with study rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// DB exposes the handle for callers that need their own transaction.
func (r *RoomRepo) DB() *sql.DB { return r.db }

// Create inserts a room.  On success ID and the timestamps are populated.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO rooms (name, grade, created_at, updated_at) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, room.Name, room.Grade, database.TimeArg(now), database.TimeArg(now))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	room.CreatedAt, room.UpdatedAt = now, now
	return nil
}

const roomColumns = `id, name, grade, created_at, updated_at`

func scanRoom(s rowScanner) (*model.Room, error) {
	var (
		room     model.Room
		grade    sql.NullInt64
		cAt, uAt database.Time
	)
	if err := s.Scan(&room.ID, &room.Name, &grade, &cAt, &uAt); err != nil {
		return nil, err
	}
	if grade.Valid {
		g := int(grade.Int64)
		room.Grade = &g
	}
	room.CreatedAt, room.UpdatedAt = cAt.Time, uAt.Time
	return &room, nil
}

// GetByID retrieves a room or model.ErrRoomNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// List returns every room ordered by name.
func (r *RoomRepo) List(ctx context.Context) ([]*model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// Delete removes a room together with its layout nodes and every
// assignment ever made on its seats.  The deletion runs in one
// transaction; model.ErrRoomNotFound is returned when the room does not
// exist.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM seat_assignments
			 WHERE seat_id IN (SELECT id FROM layout_nodes WHERE room_id = ?)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM layout_nodes WHERE room_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrRoomNotFound
		}
		return nil
	})
}

func roomExists(ctx context.Context, q queryer, id uint64) error {
	var found uint64
	if err := q.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ?`, id).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrRoomNotFound
		}
		return err
	}
	return nil
}
