package repository // repository defines data access for seat assignments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/assignment"
	"github.com/iliyamo/studyroom-seating/internal/database"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// AssignmentRepo stores seat assignments.  Rows are never updated except
// to end them; every (re)assignment inserts a new row.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo constructs an AssignmentRepo with the given DB handle.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// WithinTx implements assignment.Store.
func (r *AssignmentRepo) WithinTx(ctx context.Context, fn func(tx assignment.Tx) error) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&assignmentTx{tx: tx})
	})
}

const assignmentColumns = `id, seat_id, student_id, active, started_at, ended_at`

func scanAssignment(s rowScanner) (model.SeatAssignment, error) {
	var (
		a        model.SeatAssignment
		sAt, eAt database.Time
	)
	if err := s.Scan(&a.ID, &a.SeatID, &a.StudentID, &a.Active, &sAt, &eAt); err != nil {
		return model.SeatAssignment{}, err
	}
	a.StartedAt = sAt.Time
	a.EndedAt = eAt.Ptr()
	return a, nil
}

func activeBy(ctx context.Context, q queryer, column string, id uint64) (*model.SeatAssignment, error) {
	a, err := scanAssignment(q.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM seat_assignments WHERE `+column+` = ? AND active = 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ActiveBySeat returns the seat's active assignment, or nil.
func (r *AssignmentRepo) ActiveBySeat(ctx context.Context, seatID uint64) (*model.SeatAssignment, error) {
	return activeBy(ctx, r.db, "seat_id", seatID)
}

// ActiveByStudent returns the student's active assignment, or nil.
func (r *AssignmentRepo) ActiveByStudent(ctx context.Context, studentID uint64) (*model.SeatAssignment, error) {
	return activeBy(ctx, r.db, "student_id", studentID)
}

// History lists every assignment a seat ever had, newest first.
func (r *AssignmentRepo) History(ctx context.Context, seatID uint64) ([]model.SeatAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM seat_assignments WHERE seat_id = ? ORDER BY id DESC`, seatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SeatAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// assignmentTx implements assignment.Tx on a *sql.Tx.
type assignmentTx struct {
	tx *sql.Tx
}

func (t *assignmentTx) Seat(ctx context.Context, seatID uint64) (model.LayoutNode, error) {
	n, err := getNode(ctx, t.tx, seatID)
	if errors.Is(err, model.ErrNodeNotFound) || (err == nil && n.Kind != model.KindSeat) {
		return model.LayoutNode{}, model.ErrSeatNotFound
	}
	return n, err
}

func (t *assignmentTx) Student(ctx context.Context, studentID uint64) (model.User, error) {
	u, err := scanUser(t.tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=?", studentID))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && (u.Role != model.RoleStudent || !u.IsActive)) {
		return model.User{}, model.ErrStudentNotFound
	}
	return u, err
}

func (t *assignmentTx) ActiveForSeat(ctx context.Context, seatID uint64) (*model.SeatAssignment, error) {
	return activeBy(ctx, t.tx, "seat_id", seatID)
}

func (t *assignmentTx) DeactivateSeat(ctx context.Context, seatID uint64, at time.Time) (*model.SeatAssignment, error) {
	return t.deactivate(ctx, "seat_id", seatID, at)
}

func (t *assignmentTx) DeactivateStudent(ctx context.Context, studentID uint64, at time.Time) (*model.SeatAssignment, error) {
	return t.deactivate(ctx, "student_id", studentID, at)
}

// deactivate ends the active row found by column.  A row that another
// writer ended between the read and the update is reported as a
// conflict.
func (t *assignmentTx) deactivate(ctx context.Context, column string, id uint64, at time.Time) (*model.SeatAssignment, error) {
	a, err := activeBy(ctx, t.tx, column, id)
	if err != nil || a == nil {
		return nil, err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE seat_assignments
		 SET active = 0, ended_at = ?, active_seat_key = NULL, active_student_key = NULL
		 WHERE id = ? AND active = 1`, database.TimeArg(at), a.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrConflict
	}
	ended := at.UTC()
	a.Active = false
	a.EndedAt = &ended
	return a, nil
}

func (t *assignmentTx) Create(ctx context.Context, seatID, studentID uint64, at time.Time) (model.SeatAssignment, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO seat_assignments (seat_id, student_id, active, started_at, active_seat_key, active_student_key)
		 VALUES (?, ?, 1, ?, ?, ?)`,
		seatID, studentID, database.TimeArg(at), seatID, studentID)
	if err != nil {
		return model.SeatAssignment{}, conflictOr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.SeatAssignment{}, err
	}
	return model.SeatAssignment{
		ID:        uint64(id),
		SeatID:    seatID,
		StudentID: studentID,
		Active:    true,
		StartedAt: at.UTC(),
	}, nil
}

// Directory resolves spreadsheet rows for the assignment engine.
type Directory struct {
	Nodes *NodeRepo
	Users *UserRepo
}

func (d Directory) SeatsInRoom(ctx context.Context, roomID uint64) ([]model.LayoutNode, error) {
	if err := roomExists(ctx, d.Nodes.db, roomID); err != nil {
		return nil, err
	}
	return d.Nodes.SeatsInRoom(ctx, roomID)
}

func (d Directory) StudentsByName(ctx context.Context, name string) ([]model.User, error) {
	return d.Users.StudentsByName(ctx, name)
}

var (
	_ assignment.Store     = (*AssignmentRepo)(nil)
	_ assignment.Directory = Directory{}
)
