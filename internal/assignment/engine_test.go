package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seating/internal/events"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// memStore is an in-memory Store.  Transactions work on a copy of the
// rows and are applied only when fn succeeds; they run one at a time.
type memStore struct {
	mu       sync.Mutex
	seats    map[uint64]model.LayoutNode
	students map[uint64]model.User
	rows     []model.SeatAssignment
	nextID   uint64
	failOn   func(seatID, studentID uint64) error
}

func newMemStore() *memStore {
	return &memStore{seats: map[uint64]model.LayoutNode{}, students: map[uint64]model.User{}}
}

func (m *memStore) addSeat(roomID, id uint64, label string) {
	m.seats[id] = model.LayoutNode{ID: model.PersistedID(id), RoomID: roomID, Kind: model.KindSeat, Label: label, Width: 1, Height: 1}
}

func (m *memStore) addStudent(id uint64, name string) {
	m.students[id] = model.User{ID: id, Name: name, Role: model.RoleStudent, IsActive: true}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m, rows: append([]model.SeatAssignment(nil), m.rows...), nextID: m.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows, m.nextID = tx.rows, tx.nextID
	return nil
}

func (m *memStore) active() []model.SeatAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SeatAssignment
	for _, r := range m.rows {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) seatOf(studentID uint64) (uint64, bool) {
	for _, r := range m.active() {
		if r.StudentID == studentID {
			return r.SeatID, true
		}
	}
	return 0, false
}

func (m *memStore) occupant(seatID uint64) (uint64, bool) {
	for _, r := range m.active() {
		if r.SeatID == seatID {
			return r.StudentID, true
		}
	}
	return 0, false
}

type memTx struct {
	m      *memStore
	rows   []model.SeatAssignment
	nextID uint64
}

func (t *memTx) Seat(_ context.Context, id uint64) (model.LayoutNode, error) {
	s, ok := t.m.seats[id]
	if !ok || s.Kind != model.KindSeat {
		return model.LayoutNode{}, model.ErrSeatNotFound
	}
	return s, nil
}

func (t *memTx) Student(_ context.Context, id uint64) (model.User, error) {
	u, ok := t.m.students[id]
	if !ok || !u.IsActive || u.Role != model.RoleStudent {
		return model.User{}, model.ErrStudentNotFound
	}
	return u, nil
}

func (t *memTx) ActiveForSeat(_ context.Context, seatID uint64) (*model.SeatAssignment, error) {
	for i := range t.rows {
		if t.rows[i].Active && t.rows[i].SeatID == seatID {
			r := t.rows[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memTx) deactivate(match func(model.SeatAssignment) bool, at time.Time) *model.SeatAssignment {
	for i := range t.rows {
		if t.rows[i].Active && match(t.rows[i]) {
			t.rows[i].Active = false
			t.rows[i].EndedAt = &at
			r := t.rows[i]
			return &r
		}
	}
	return nil
}

func (t *memTx) DeactivateSeat(_ context.Context, seatID uint64, at time.Time) (*model.SeatAssignment, error) {
	return t.deactivate(func(r model.SeatAssignment) bool { return r.SeatID == seatID }, at), nil
}

func (t *memTx) DeactivateStudent(_ context.Context, studentID uint64, at time.Time) (*model.SeatAssignment, error) {
	return t.deactivate(func(r model.SeatAssignment) bool { return r.StudentID == studentID }, at), nil
}

func (t *memTx) Create(_ context.Context, seatID, studentID uint64, at time.Time) (model.SeatAssignment, error) {
	if t.m.failOn != nil {
		if err := t.m.failOn(seatID, studentID); err != nil {
			return model.SeatAssignment{}, err
		}
	}
	for _, r := range t.rows {
		if r.Active && (r.SeatID == seatID || r.StudentID == studentID) {
			return model.SeatAssignment{}, model.ErrConflict
		}
	}
	t.nextID++
	row := model.SeatAssignment{ID: t.nextID, SeatID: seatID, StudentID: studentID, Active: true, StartedAt: at}
	t.rows = append(t.rows, row)
	return row, nil
}

// memDirectory serves Validate from the same memStore.
type memDirectory struct{ m *memStore }

func (d memDirectory) SeatsInRoom(_ context.Context, roomID uint64) ([]model.LayoutNode, error) {
	var out []model.LayoutNode
	for _, s := range d.m.seats {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d memDirectory) StudentsByName(_ context.Context, name string) ([]model.User, error) {
	var out []model.User
	for _, u := range d.m.students {
		if u.Name == name && u.Role == model.RoleStudent && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type recorder struct {
	mu  sync.Mutex
	evs []events.SeatChanged
	err error
}

func (r *recorder) PublishSeatChanged(_ context.Context, ev events.SeatChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.evs)
}

// assertInvariants checks that no seat and no student holds two active
// assignments.
func assertInvariants(t *testing.T, m *memStore) {
	t.Helper()
	seats := map[uint64]int{}
	students := map[uint64]int{}
	for _, r := range m.active() {
		seats[r.SeatID]++
		students[r.StudentID]++
	}
	for id, n := range seats {
		assert.LessOrEqual(t, n, 1, "seat %d has %d active assignments", id, n)
	}
	for id, n := range students {
		assert.LessOrEqual(t, n, 1, "student %d has %d active assignments", id, n)
	}
}

func setup() (*memStore, *recorder, *Engine) {
	m := newMemStore()
	m.addSeat(1, 11, "1")
	m.addSeat(1, 12, "2")
	m.addSeat(1, 13, "12")
	m.addSeat(2, 21, "1")
	m.addStudent(100, "Ana")
	m.addStudent(200, "Ben")
	m.addStudent(300, "Kim")
	m.addStudent(301, "Kim")
	rec := &recorder{}
	e := NewEngine(memDirectory{m}, m, rec)
	e.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }
	return m, rec, e
}

func TestAssignReplacesSeatAndStudent(t *testing.T) {
	m, rec, e := setup()
	ctx := context.Background()

	_, err := e.Assign(ctx, 11, 100)
	require.NoError(t, err)
	_, err = e.Assign(ctx, 12, 200)
	require.NoError(t, err)

	// Ana moves onto Ben's seat
	ch, err := e.Assign(ctx, 12, 100)
	require.NoError(t, err)
	require.NotNil(t, ch.Previous)
	assert.Equal(t, uint64(200), ch.Previous.StudentID)
	assert.False(t, ch.Previous.Active)
	require.NotNil(t, ch.Displaced)
	assert.Equal(t, uint64(11), ch.Displaced.SeatID)
	require.NotNil(t, ch.Current)
	assert.Equal(t, uint64(100), ch.Current.StudentID)
	assert.Equal(t, uint64(1), ch.RoomID)

	_, occupied := m.occupant(11)
	assert.False(t, occupied)
	_, seated := m.seatOf(200)
	assert.False(t, seated)
	assertInvariants(t, m)

	// history is kept, not rewritten
	assert.Len(t, m.rows, 3)
	assert.Equal(t, 3, rec.count())
	last := rec.evs[2]
	assert.Equal(t, events.ActionAssign, last.Action)
	require.NotNil(t, last.PreviousStudentID)
	assert.Equal(t, uint64(200), *last.PreviousStudentID)
	require.NotNil(t, last.VacatedSeatID)
	assert.Equal(t, uint64(11), *last.VacatedSeatID)
}

func TestAssignSameStudentAgainIsUnchanged(t *testing.T) {
	m, rec, e := setup()
	ctx := context.Background()
	_, err := e.Assign(ctx, 11, 100)
	require.NoError(t, err)

	ch, err := e.Assign(ctx, 11, 100)
	require.NoError(t, err)
	assert.True(t, ch.Unchanged)
	assert.Len(t, m.rows, 1)
	assert.Equal(t, 1, rec.count())
}

func TestAssignRejectsUnknownSeatOrStudent(t *testing.T) {
	m, rec, e := setup()
	ctx := context.Background()

	_, err := e.Assign(ctx, 99, 100)
	assert.ErrorIs(t, err, model.ErrSeatNotFound)

	_, err = e.Assign(ctx, 11, 999)
	assert.ErrorIs(t, err, model.ErrStudentNotFound)

	m.students[100] = model.User{ID: 100, Name: "Ana", Role: model.RoleTeacher, IsActive: true}
	_, err = e.Assign(ctx, 11, 100)
	assert.ErrorIs(t, err, model.ErrStudentNotFound)

	assert.Empty(t, m.rows)
	assert.Zero(t, rec.count())
}

func TestUnassignIsIdempotent(t *testing.T) {
	m, rec, e := setup()
	ctx := context.Background()

	ch, err := e.Unassign(ctx, 11)
	require.NoError(t, err)
	assert.True(t, ch.Unchanged)
	assert.Nil(t, ch.Previous)
	assert.Empty(t, m.rows)
	assert.Zero(t, rec.count())

	_, err = e.Assign(ctx, 11, 100)
	require.NoError(t, err)
	ch, err = e.Unassign(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, ch.Previous)
	assert.Nil(t, ch.Current)
	assert.Empty(t, m.active())
	require.Equal(t, 2, rec.count())
	assert.Equal(t, events.ActionUnassign, rec.evs[1].Action)
	assert.Nil(t, rec.evs[1].StudentID)

	ch, err = e.Unassign(ctx, 11)
	require.NoError(t, err)
	assert.True(t, ch.Unchanged)
	assert.Len(t, m.rows, 1)
	assert.Equal(t, 2, rec.count())

	_, err = e.Unassign(ctx, 404)
	assert.ErrorIs(t, err, model.ErrSeatNotFound)
}

// A student listed twice in one batch ends up on exactly one seat.
func TestBulkCommitChainedReassignment(t *testing.T) {
	m, rec, e := setup()
	ctx := context.Background()
	_, err := e.Assign(ctx, 12, 100)
	require.NoError(t, err)

	changes, err := e.BulkCommit(ctx, 1, []Pair{{SeatID: 11, StudentID: 200}, {SeatID: 12, StudentID: 200}})
	require.NoError(t, err)
	assert.Len(t, changes, 2)

	seat, ok := m.seatOf(200)
	require.True(t, ok)
	assert.Equal(t, uint64(12), seat)
	_, occupied := m.occupant(11)
	assert.False(t, occupied)
	_, seated := m.seatOf(100)
	assert.False(t, seated)
	assertInvariants(t, m)
	assert.Equal(t, 3, rec.count())
}

func TestBulkCommitSwap(t *testing.T) {
	m, _, e := setup()
	ctx := context.Background()
	_, _ = e.Assign(ctx, 11, 100)
	_, _ = e.Assign(ctx, 12, 200)

	_, err := e.BulkCommit(ctx, 1, []Pair{{SeatID: 11, StudentID: 200}, {SeatID: 12, StudentID: 100}})
	require.NoError(t, err)
	s, _ := m.seatOf(100)
	assert.Equal(t, uint64(12), s)
	s, _ = m.seatOf(200)
	assert.Equal(t, uint64(11), s)
	assertInvariants(t, m)
}

func TestBulkCommitDedupesPairs(t *testing.T) {
	m, rec, e := setup()
	changes, err := e.BulkCommit(context.Background(), 1, []Pair{
		{SeatID: 11, StudentID: 100},
		{SeatID: 11, StudentID: 100},
		{SeatID: 12, StudentID: 200},
	})
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	assert.Len(t, m.rows, 2)
	assert.Equal(t, 2, rec.count())
}

func TestBulkCommitIsAtomic(t *testing.T) {
	m, rec, e := setup()
	ctx := context.Background()
	_, _ = e.Assign(ctx, 11, 100)
	before := append([]model.SeatAssignment(nil), m.rows...)

	// seat 21 belongs to room 2
	_, err := e.BulkCommit(ctx, 1, []Pair{{SeatID: 12, StudentID: 200}, {SeatID: 21, StudentID: 300}})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSeatNotFound)
	assert.Equal(t, before, m.rows)
	assert.Equal(t, 1, rec.count())

	m.failOn = func(seatID, _ uint64) error {
		if seatID == 13 {
			return model.ErrConflict
		}
		return nil
	}
	_, err = e.BulkCommit(ctx, 1, []Pair{{SeatID: 12, StudentID: 200}, {SeatID: 13, StudentID: 300}})
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, before, m.rows)
}

func TestValidateRows(t *testing.T) {
	m, _, e := setup()
	m.addSeat(1, 14, "7")
	m.addSeat(1, 15, "7")

	v, err := e.Validate(context.Background(), 1, []Row{
		{SeatLabel: "1", StudentName: "Ana"},
		{SeatLabel: "12", StudentName: "Kim", StudentIDHint: "300"},
		{SeatLabel: "99", StudentName: "Ben"},
		{SeatLabel: "2", StudentName: "Nobody"},
		{SeatLabel: "7", StudentName: "Ben"},
		{SeatLabel: " 2 ", StudentName: " Ben "},
		{SeatLabel: "", StudentName: "Ben"},
	})
	require.NoError(t, err)

	assert.Equal(t, []Pair{{SeatID: 11, StudentID: 100}, {SeatID: 12, StudentID: 200}}, v.ValidData)
	require.Len(t, v.Warnings, 5)

	kim := v.Warnings[0]
	assert.Equal(t, 1, kim.Row)
	assert.Equal(t, CodeAmbiguousStudent, kim.Code)
	assert.Equal(t, "300", kim.StudentIDHint)

	codes := make([]string, 0, len(v.Warnings))
	for _, w := range v.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{
		CodeAmbiguousStudent,
		CodeSeatNotFound,
		CodeStudentNotFound,
		CodeDuplicateSeatLabel,
		CodeSeatNotFound,
	}, codes)
}

func TestValidateSeatsScopedToRoom(t *testing.T) {
	_, _, e := setup()
	v, err := e.Validate(context.Background(), 2, []Row{{SeatLabel: "2", StudentName: "Ana"}, {SeatLabel: "1", StudentName: "Ana"}})
	require.NoError(t, err)
	assert.Equal(t, []Pair{{SeatID: 21, StudentID: 100}}, v.ValidData)
	assert.Equal(t, CodeSeatNotFound, v.Warnings[0].Code)
}

type failingDirectory struct{ memDirectory }

func (failingDirectory) StudentsByName(context.Context, string) ([]model.User, error) {
	return nil, errors.New("directory offline")
}

func TestValidateDirectoryFailure(t *testing.T) {
	m, _, _ := setup()
	e := NewEngine(failingDirectory{memDirectory{m}}, m, nil)
	_, err := e.Validate(context.Background(), 1, []Row{{SeatLabel: "1", StudentName: "Ana"}})
	assert.Error(t, err)
}

func TestBulkAssignPartialSuccess(t *testing.T) {
	m, rec, e := setup()
	m.failOn = func(seatID, _ uint64) error {
		if seatID == 12 {
			return fmt.Errorf("insert: %w", model.ErrConflict)
		}
		return nil
	}

	res, err := e.BulkAssign(context.Background(), 1, []Row{
		{SeatLabel: "1", StudentName: "Ana"},
		{SeatLabel: "2", StudentName: "Ben"},
		{SeatLabel: "12", StudentName: "Kim"},
		{SeatLabel: "1", StudentName: "Ana"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, CodeAmbiguousStudent, res.Errors[0].Code)
	assert.Equal(t, 1, res.Errors[1].Row)
	assert.Equal(t, CodeConflict, res.Errors[1].Code)

	occ, ok := m.occupant(11)
	require.True(t, ok)
	assert.Equal(t, uint64(100), occ)
	assert.Equal(t, 1, rec.count())
}

func TestPublishFailureDoesNotFailCommit(t *testing.T) {
	m, rec, e := setup()
	rec.err = errors.New("broker down")
	_, err := e.Assign(context.Background(), 11, 100)
	require.NoError(t, err)
	assert.Len(t, m.active(), 1)
}

// Random interleavings of every entry path never break the invariant.
func TestConcurrentAssignKeepsInvariant(t *testing.T) {
	m, _, e := setup()
	ctx := context.Background()
	seats := []uint64{11, 12, 13}
	students := []uint64{100, 200, 300, 301}

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seat := seats[i%len(seats)]
			student := students[(i/3)%len(students)]
			switch i % 5 {
			case 0:
				_, _ = e.Unassign(ctx, seat)
			case 1:
				_, _ = e.BulkCommit(ctx, 1, []Pair{{SeatID: seat, StudentID: student}, {SeatID: seats[(i+1)%3], StudentID: student}})
			default:
				_, _ = e.Assign(ctx, seat, student)
			}
		}(i)
	}
	wg.Wait()
	assertInvariants(t, m)
}

func TestDedupe(t *testing.T) {
	in := []Pair{{1, 2}, {3, 4}, {1, 2}, {1, 4}}
	assert.Equal(t, []Pair{{1, 2}, {3, 4}, {1, 4}}, Dedupe(in))
	assert.Empty(t, Dedupe(nil))
}
