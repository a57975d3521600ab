package repository // repository defines data access for layout nodes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/layout"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// NodeRepo stores the layout nodes of rooms.  It is the storage side of
// the layout editor.
type NodeRepo struct {
	db *sql.DB
}

// NewNodeRepo constructs a NodeRepo with the given DB handle.
func NewNodeRepo(db *sql.DB) *NodeRepo {
	return &NodeRepo{db: db}
}

const nodeColumns = `n.id, n.room_id, n.x, n.y, n.width, n.height, n.kind, n.label, n.rotation`

// scanNode reads the nodeColumns, followed by any extra destinations.
func scanNode(s rowScanner, extra ...any) (model.LayoutNode, error) {
	var (
		n    model.LayoutNode
		id   uint64
		kind string
	)
	dest := append([]any{&id, &n.RoomID, &n.X, &n.Y, &n.Width, &n.Height, &kind, &n.Label, &n.Rotation}, extra...)
	if err := s.Scan(dest...); err != nil {
		return model.LayoutNode{}, err
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return model.LayoutNode{}, err
	}
	n.ID = model.PersistedID(id)
	n.Kind = k
	return n, nil
}

// LoadLayout returns every node of the room in insertion order.  It
// returns model.ErrRoomNotFound for an unknown room.
func (r *NodeRepo) LoadLayout(ctx context.Context, roomID uint64) ([]model.LayoutNode, error) {
	if err := roomExists(ctx, r.db, roomID); err != nil {
		return nil, err
	}
	return r.list(ctx, roomID, false)
}

// SeatsInRoom returns the SEAT nodes of a room.
func (r *NodeRepo) SeatsInRoom(ctx context.Context, roomID uint64) ([]model.LayoutNode, error) {
	return r.list(ctx, roomID, true)
}

func (r *NodeRepo) list(ctx context.Context, roomID uint64, seatsOnly bool) ([]model.LayoutNode, error) {
	q := `SELECT ` + nodeColumns + ` FROM layout_nodes n WHERE n.room_id = ?`
	args := []any{roomID}
	if seatsOnly {
		q += ` AND n.kind = ?`
		args = append(args, model.KindSeat.String())
	}
	q += ` ORDER BY n.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LayoutNode{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetByID retrieves a node or model.ErrNodeNotFound.
func (r *NodeRepo) GetByID(ctx context.Context, id uint64) (model.LayoutNode, error) {
	return getNode(ctx, r.db, id)
}

func getNode(ctx context.Context, q queryer, id uint64) (model.LayoutNode, error) {
	n, err := scanNode(q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM layout_nodes n WHERE n.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LayoutNode{}, model.ErrNodeNotFound
		}
		return model.LayoutNode{}, err
	}
	return n, nil
}

// WithAssignments lists the room's nodes, each SEAT joined with its active
// assignment and student.  With seatsOnly set, other kinds are left out.
func (r *NodeRepo) WithAssignments(ctx context.Context, roomID uint64, seatsOnly bool) ([]model.SeatWithAssignment, error) {
	if err := roomExists(ctx, r.db, roomID); err != nil {
		return nil, err
	}
	q := `SELECT ` + nodeColumns + `, a.id, a.student_id, a.started_at, u.name, u.grade
	      FROM layout_nodes n
	      LEFT JOIN seat_assignments a ON a.seat_id = n.id AND a.active = 1
	      LEFT JOIN users u ON u.id = a.student_id
	      WHERE n.room_id = ?`
	args := []any{roomID}
	if seatsOnly {
		q += ` AND n.kind = ?`
		args = append(args, model.KindSeat.String())
	}
	q += ` ORDER BY n.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SeatWithAssignment{}
	for rows.Next() {
		var (
			aID, studentID sql.NullInt64
			startedAt      database.Time
			name           sql.NullString
			grade          sql.NullInt64
		)
		n, err := scanNode(rows, &aID, &studentID, &startedAt, &name, &grade)
		if err != nil {
			return nil, err
		}
		row := model.SeatWithAssignment{Seat: n}
		if aID.Valid {
			seatID, _ := n.ID.Persisted()
			row.Assignment = &model.SeatAssignment{
				ID:        uint64(aID.Int64),
				SeatID:    seatID,
				StudentID: uint64(studentID.Int64),
				Active:    true,
				StartedAt: startedAt.Time,
			}
			ref := &model.StudentRef{ID: uint64(studentID.Int64), Name: name.String}
			if grade.Valid {
				g := int(grade.Int64)
				ref.Grade = &g
			}
			row.Student = ref
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SeatsWithAssignments lists only the SEAT nodes of a room with their
// occupants.
func (r *NodeRepo) SeatsWithAssignments(ctx context.Context, roomID uint64) ([]model.SeatWithAssignment, error) {
	return r.WithAssignments(ctx, roomID, true)
}

// SyncLayout applies a save diff in one transaction: deletions first,
// then updates, then inserts.  Deleting a seat also deletes its
// assignment history.  Updating a node that no longer exists in the room
// fails the whole save with model.ErrNodeNotFound; deleting one that is
// already gone is not an error.
func (r *NodeRepo) SyncLayout(ctx context.Context, roomID uint64, d layout.Diff) (layout.SyncResult, error) {
	res := layout.SyncResult{Created: make(map[model.NodeID]uint64, len(d.ToCreate))}
	now := database.TimeArg(time.Now())

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := roomExists(ctx, tx, roomID); err != nil {
			return err
		}

		for _, id := range d.ToDelete {
			if err := vacate(ctx, tx, roomID, id, &res); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM seat_assignments
				 WHERE seat_id IN (SELECT id FROM layout_nodes WHERE id = ? AND room_id = ?)`, id, roomID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM layout_nodes WHERE id = ? AND room_id = ?`, id, roomID); err != nil {
				return err
			}
		}

		for _, n := range d.ToUpdate {
			id, ok := n.ID.Persisted()
			if !ok || !n.Kind.Valid() {
				return model.ErrNodeNotFound
			}
			n.Normalize()
			out, err := tx.ExecContext(ctx,
				`UPDATE layout_nodes
				 SET x = ?, y = ?, width = ?, height = ?, kind = ?, label = ?, rotation = ?, updated_at = ?
				 WHERE id = ? AND room_id = ?`,
				n.X, n.Y, n.Width, n.Height, n.Kind.String(), n.Label, n.Rotation, now, id, roomID)
			if err != nil {
				return err
			}
			if affected, _ := out.RowsAffected(); affected == 0 {
				return model.ErrNodeNotFound
			}
			if n.Kind != model.KindSeat {
				// a node that stopped being a seat cannot stay assigned
				if err := vacate(ctx, tx, roomID, id, &res); err != nil {
					return err
				}
				if err := endSeatAssignments(ctx, tx, id, now); err != nil {
					return err
				}
			}
		}

		for _, n := range d.ToCreate {
			if !n.Kind.Valid() {
				return errors.New("invalid node kind")
			}
			n.Normalize()
			out, err := tx.ExecContext(ctx,
				`INSERT INTO layout_nodes (room_id, x, y, width, height, kind, label, rotation, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				roomID, n.X, n.Y, n.Width, n.Height, n.Kind.String(), n.Label, n.Rotation, now, now)
			if err != nil {
				return err
			}
			id, err := out.LastInsertId()
			if err != nil {
				return err
			}
			res.Created[n.ID] = uint64(id)
		}
		return nil
	})
	if err != nil {
		return layout.SyncResult{}, err
	}
	return res, nil
}

// vacate records the active occupant of a seat about to be deleted or
// converted.
func vacate(ctx context.Context, tx *sql.Tx, roomID, seatID uint64, res *layout.SyncResult) error {
	var student uint64
	err := tx.QueryRowContext(ctx,
		`SELECT a.student_id FROM seat_assignments a
		 JOIN layout_nodes n ON n.id = a.seat_id
		 WHERE a.seat_id = ? AND n.room_id = ? AND a.active = 1`, seatID, roomID).Scan(&student)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	res.Vacated = append(res.Vacated, layout.Vacancy{SeatID: seatID, StudentID: student})
	return nil
}

func endSeatAssignments(ctx context.Context, tx *sql.Tx, seatID uint64, at string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE seat_assignments
		 SET active = 0, ended_at = ?, active_seat_key = NULL, active_student_key = NULL
		 WHERE seat_id = ? AND active = 1`, at, seatID)
	return err
}
