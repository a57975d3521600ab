// Package assignment keeps the one-student-one-seat invariant.  Every path
// that hands out seats (manual assign, bulk lists and spreadsheet imports)
// ends in the same three-step unit: clear the seat, clear the student,
// create the new assignment.
package assignment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/iliyamo/studyroom-seating/internal/events"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// Engine validates and commits seat assignments.
type Engine struct {
	dir   Directory
	store Store
	pub   events.Publisher
	now   func() time.Time
}

// NewEngine wires an engine.  pub may be nil, in which case no events are
// emitted.
func NewEngine(dir Directory, store Store, pub events.Publisher) *Engine {
	return &Engine{dir: dir, store: store, pub: pub, now: time.Now}
}

func (e *Engine) clock() time.Time { return e.now().UTC().Truncate(time.Second) }

// Assign puts studentID on seatID, clearing whatever the seat and the
// student held before.
func (e *Engine) Assign(ctx context.Context, seatID, studentID uint64) (Change, error) {
	var ch Change
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		ch, err = apply(ctx, tx, 0, Pair{SeatID: seatID, StudentID: studentID}, e.clock())
		return err
	})
	if err != nil {
		return Change{}, errors.Wrapf(err, "assign seat %d", seatID)
	}
	e.publish(ctx, ch)
	return ch, nil
}

// Unassign empties a seat.  Unassigning an empty seat changes nothing and
// is not an error.
func (e *Engine) Unassign(ctx context.Context, seatID uint64) (Change, error) {
	ch := Change{SeatID: seatID}
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		seat, err := tx.Seat(ctx, seatID)
		if err != nil {
			return err
		}
		ch.RoomID = seat.RoomID
		prev, err := tx.DeactivateSeat(ctx, seatID, e.clock())
		if err != nil {
			return err
		}
		ch.Previous = prev
		ch.Unchanged = prev == nil
		return nil
	})
	if err != nil {
		return Change{}, errors.Wrapf(err, "unassign seat %d", seatID)
	}
	e.publish(ctx, ch)
	return ch, nil
}

// BulkCommit applies pairs as one atomic unit: either every pair is
// committed or none is.  Identical pairs collapse to their first
// occurrence; the rest are applied in order, so later pairs win over
// earlier ones touching the same seat or student.
func (e *Engine) BulkCommit(ctx context.Context, roomID uint64, pairs []Pair) ([]Change, error) {
	pairs = Dedupe(pairs)
	changes := make([]Change, 0, len(pairs))
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		at := e.clock()
		for i, p := range pairs {
			ch, err := apply(ctx, tx, roomID, p, at)
			if err != nil {
				return errors.Wrapf(err, "pair %d (seat %d, student %d)", i, p.SeatID, p.StudentID)
			}
			changes = append(changes, ch)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "bulk commit")
	}
	for _, ch := range changes {
		e.publish(ctx, ch)
	}
	return changes, nil
}

// Validate resolves spreadsheet rows against the room's seats and the
// student directory.  Unresolvable rows become warnings; they never fail
// the call.
func (e *Engine) Validate(ctx context.Context, roomID uint64, rows []Row) (Validation, error) {
	resolved, warnings, err := e.resolve(ctx, roomID, rows)
	if err != nil {
		return Validation{}, err
	}
	v := Validation{ValidData: make([]Pair, 0, len(resolved)), Warnings: warnings}
	for _, r := range resolved {
		v.ValidData = append(v.ValidData, r.pair)
	}
	return v, nil
}

// BulkAssign validates rows and commits each valid pair in its own
// transaction.  Rows that fail validation or commit are reported in
// Errors; the others stay committed.
func (e *Engine) BulkAssign(ctx context.Context, roomID uint64, rows []Row) (BulkResult, error) {
	resolved, warnings, err := e.resolve(ctx, roomID, rows)
	if err != nil {
		return BulkResult{}, err
	}
	res := BulkResult{Errors: warnings}
	seen := make(map[Pair]struct{}, len(resolved))
	for _, r := range resolved {
		if _, dup := seen[r.pair]; dup {
			continue
		}
		seen[r.pair] = struct{}{}

		var ch Change
		err := e.store.WithinTx(ctx, func(tx Tx) error {
			var err error
			ch, err = apply(ctx, tx, roomID, r.pair, e.clock())
			return err
		})
		if err != nil {
			res.Errors = append(res.Errors, rowWarning(rows[r.row], r.row, commitCode(err), err.Error()))
			continue
		}
		res.SuccessCount++
		e.publish(ctx, ch)
	}
	if res.Errors == nil {
		res.Errors = []Warning{}
	}
	return res, nil
}

// Dedupe drops repeated pairs, keeping the first occurrence and the
// original order.
func Dedupe(pairs []Pair) []Pair {
	seen := make(map[Pair]struct{}, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// apply runs the clear-seat, clear-student, create unit for one pair.  A
// non-zero roomID restricts the seat to that room.
func apply(ctx context.Context, tx Tx, roomID uint64, p Pair, at time.Time) (Change, error) {
	seat, err := tx.Seat(ctx, p.SeatID)
	if err != nil {
		return Change{}, err
	}
	if roomID != 0 && seat.RoomID != roomID {
		return Change{}, model.ErrSeatNotFound
	}
	if _, err := tx.Student(ctx, p.StudentID); err != nil {
		return Change{}, err
	}
	ch := Change{SeatID: p.SeatID, RoomID: seat.RoomID}

	cur, err := tx.ActiveForSeat(ctx, p.SeatID)
	if err != nil {
		return Change{}, err
	}
	if cur != nil && cur.StudentID == p.StudentID {
		ch.Current = cur
		ch.Unchanged = true
		return ch, nil
	}

	if ch.Previous, err = tx.DeactivateSeat(ctx, p.SeatID, at); err != nil {
		return Change{}, err
	}
	if ch.Displaced, err = tx.DeactivateStudent(ctx, p.StudentID, at); err != nil {
		return Change{}, err
	}
	created, err := tx.Create(ctx, p.SeatID, p.StudentID, at)
	if err != nil {
		return Change{}, err
	}
	ch.Current = &created
	return ch, nil
}

// Event converts a committed change into its SeatChanged notification.
func (c Change) Event(at time.Time) events.SeatChanged {
	ev := events.SeatChanged{RoomID: c.RoomID, SeatID: c.SeatID, Action: events.ActionUnassign, ChangedAt: at}
	if c.Current != nil {
		ev.Action = events.ActionAssign
		id := c.Current.StudentID
		ev.StudentID = &id
	}
	if c.Previous != nil {
		id := c.Previous.StudentID
		ev.PreviousStudentID = &id
	}
	if c.Displaced != nil {
		id := c.Displaced.SeatID
		ev.VacatedSeatID = &id
	}
	return ev
}

func (e *Engine) publish(ctx context.Context, ch Change) {
	if e.pub == nil || ch.Unchanged {
		return
	}
	ev := ch.Event(e.clock())
	if err := e.pub.PublishSeatChanged(ctx, ev); err != nil {
		log.Warnf("assignment: publish seat %d changed: %v", ch.SeatID, err)
	}
}

type resolvedRow struct {
	row  int
	pair Pair
}

func (e *Engine) resolve(ctx context.Context, roomID uint64, rows []Row) ([]resolvedRow, []Warning, error) {
	seats, err := e.dir.SeatsInRoom(ctx, roomID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load seats of room %d", roomID)
	}
	byLabel := make(map[string][]uint64, len(seats))
	for _, s := range seats {
		if s.Kind != model.KindSeat {
			continue
		}
		id, ok := s.ID.Persisted()
		if !ok {
			continue
		}
		label := strings.TrimSpace(s.Label)
		byLabel[label] = append(byLabel[label], id)
	}

	students := make(map[string][]model.User)
	lookup := func(name string) ([]model.User, error) {
		if us, ok := students[name]; ok {
			return us, nil
		}
		us, err := e.dir.StudentsByName(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "look up student %q", name)
		}
		students[name] = us
		return us, nil
	}

	var resolved []resolvedRow
	warnings := []Warning{}
	for i, row := range rows {
		label := strings.TrimSpace(row.SeatLabel)
		name := strings.TrimSpace(row.StudentName)

		ids := byLabel[label]
		switch {
		case label == "" || len(ids) == 0:
			warnings = append(warnings, rowWarning(row, i, CodeSeatNotFound,
				fmt.Sprintf("seat %q not found in room", label)))
			continue
		case len(ids) > 1:
			warnings = append(warnings, rowWarning(row, i, CodeDuplicateSeatLabel,
				fmt.Sprintf("%d seats are labelled %q", len(ids), label)))
			continue
		}

		var matches []model.User
		if name != "" {
			if matches, err = lookup(name); err != nil {
				return nil, nil, err
			}
		}
		switch {
		case len(matches) == 0:
			warnings = append(warnings, rowWarning(row, i, CodeStudentNotFound,
				fmt.Sprintf("no student named %q", name)))
			continue
		case len(matches) > 1:
			warnings = append(warnings, rowWarning(row, i, CodeAmbiguousStudent,
				fmt.Sprintf("%d students are named %q", len(matches), name)))
			continue
		}
		resolved = append(resolved, resolvedRow{row: i, pair: Pair{SeatID: ids[0], StudentID: matches[0].ID}})
	}
	return resolved, warnings, nil
}

func rowWarning(row Row, i int, code, msg string) Warning {
	return Warning{
		Row:           i,
		SeatLabel:     row.SeatLabel,
		StudentName:   row.StudentName,
		StudentIDHint: row.StudentIDHint,
		Code:          code,
		Message:       msg,
	}
}

func commitCode(err error) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return CodeConflict
	case errors.Is(err, model.ErrSeatNotFound):
		return CodeSeatNotFound
	case errors.Is(err, model.ErrStudentNotFound):
		return CodeStudentNotFound
	}
	return CodeCommitFailed
}
