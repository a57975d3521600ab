package assignment

import (
	"context"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

// Warning codes reported by Validate and BulkAssign.
const (
	CodeSeatNotFound       = "SEAT_NOT_FOUND"
	CodeDuplicateSeatLabel = "DUPLICATE_SEAT_LABEL"
	CodeStudentNotFound    = "STUDENT_NOT_FOUND"
	CodeAmbiguousStudent   = "AMBIGUOUS_STUDENT"
	CodeConflict           = "CONFLICT"
	CodeCommitFailed       = "COMMIT_FAILED"
)

// Pair is one desired seat -> student mapping.
type Pair struct {
	SeatID    uint64 `json:"seatId" validate:"required"`
	StudentID uint64 `json:"studentId" validate:"required"`
}

// Row is one line of a spreadsheet import.  StudentIDHint is kept for
// reporting only; it never resolves an ambiguous name.
type Row struct {
	SeatLabel     string `json:"seatLabel"`
	StudentName   string `json:"studentName"`
	StudentIDHint string `json:"studentIdHint,omitempty"`
}

// Warning describes a row that could not be resolved.  Row is the zero
// based index of the row in the request.
type Warning struct {
	Row           int    `json:"row"`
	SeatLabel     string `json:"seatLabel"`
	StudentName   string `json:"studentName"`
	StudentIDHint string `json:"studentIdHint,omitempty"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}

// Validation partitions rows into committable pairs and warnings.
type Validation struct {
	ValidData []Pair    `json:"validData"`
	Warnings  []Warning `json:"warnings"`
}

// BulkResult is the outcome of a best-effort bulk assignment.
type BulkResult struct {
	SuccessCount int       `json:"successCount"`
	Errors       []Warning `json:"errors"`
}

// Change describes one committed seat change.
//
// Fields:
//  SeatID    – seat the change was made on.
//  RoomID    – room of the seat.
//  Previous  – assignment the seat held before, now inactive.
//  Displaced – the student's assignment on another seat, now inactive.
//  Current   – assignment now active on the seat (nil after unassign).
//  Unchanged – the seat already held the requested state.
type Change struct {
	SeatID    uint64                `json:"seatId"`
	RoomID    uint64                `json:"roomId"`
	Previous  *model.SeatAssignment `json:"previous,omitempty"`
	Displaced *model.SeatAssignment `json:"displaced,omitempty"`
	Current   *model.SeatAssignment `json:"current,omitempty"`
	Unchanged bool                  `json:"unchanged,omitempty"`
}

// Directory resolves spreadsheet rows to storage ids.
type Directory interface {
	// SeatsInRoom returns the SEAT nodes of a room.
	SeatsInRoom(ctx context.Context, roomID uint64) ([]model.LayoutNode, error)
	// StudentsByName returns active students whose name equals name.
	StudentsByName(ctx context.Context, name string) ([]model.User, error)
}

// Store opens transactions over the assignment table.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes one reconciliation step is made of.  All calls
// on a Tx belong to the same storage transaction.
type Tx interface {
	// Seat returns the node with the given id; model.ErrSeatNotFound when
	// it does not exist or is not a SEAT.
	Seat(ctx context.Context, seatID uint64) (model.LayoutNode, error)
	// Student returns an active STUDENT user; model.ErrStudentNotFound
	// otherwise.
	Student(ctx context.Context, studentID uint64) (model.User, error)
	// ActiveForSeat returns the seat's active assignment or nil.
	ActiveForSeat(ctx context.Context, seatID uint64) (*model.SeatAssignment, error)
	// DeactivateSeat ends the seat's active assignment and returns it, or
	// nil when the seat was empty.
	DeactivateSeat(ctx context.Context, seatID uint64, at time.Time) (*model.SeatAssignment, error)
	// DeactivateStudent ends the student's active assignment and returns
	// it, or nil when the student had none.
	DeactivateStudent(ctx context.Context, studentID uint64, at time.Time) (*model.SeatAssignment, error)
	// Create inserts a new active assignment.  model.ErrConflict when the
	// seat or the student already has one.
	Create(ctx context.Context, seatID, studentID uint64, at time.Time) (model.SeatAssignment, error)
}
