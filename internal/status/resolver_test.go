package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

var now = time.Date(2026, 5, 11, 10, 30, 0, 0, time.UTC)

func seatRow(id uint64, studentID uint64) model.SeatWithAssignment {
	row := model.SeatWithAssignment{
		Seat: model.LayoutNode{ID: model.PersistedID(id), Kind: model.KindSeat, Label: "s", Width: 1, Height: 1},
	}
	if studentID != 0 {
		row.Assignment = &model.SeatAssignment{ID: id * 10, SeatID: id, StudentID: studentID, Active: true}
		row.Student = &model.StudentRef{ID: studentID, Name: "student"}
	}
	return row
}

func perm(id, student uint64, typ model.PermissionType, status model.PermissionStatus, from, to time.Duration) model.Permission {
	return model.Permission{
		ID:        id,
		StudentID: student,
		Type:      typ,
		Status:    status,
		StartsAt:  now.Add(from),
		EndsAt:    now.Add(to),
	}
}

func TestResolve(t *testing.T) {
	seats := []model.SeatWithAssignment{
		seatRow(1, 0),
		seatRow(2, 100),
		seatRow(3, 200),
		seatRow(4, 300),
		seatRow(5, 400),
	}
	perms := []model.Permission{
		perm(1, 200, model.PermissionOuting, model.PermissionApproved, -time.Hour, time.Hour),
		perm(2, 300, model.PermissionMovement, model.PermissionPending, -time.Hour, time.Hour),
		perm(3, 400, model.PermissionEarlyLeave, model.PermissionApproved, -2*time.Hour, 0),
		perm(4, 999, model.PermissionOther, model.PermissionApproved, -time.Hour, time.Hour),
	}

	got := Resolve(seats, perms, now)
	require.Len(t, got, 5)
	assert.Equal(t, Empty, got[0].Status)
	assert.Equal(t, Occupied, got[1].Status)
	assert.Equal(t, Away(model.PermissionOuting), got[2].Status)
	require.NotNil(t, got[2].Permission)
	assert.Equal(t, uint64(1), got[2].Permission.ID)
	assert.Equal(t, Occupied, got[3].Status, "pending permission is ignored")
	assert.Equal(t, Occupied, got[4].Status, "window end is exclusive")
}

func TestResolveWindowStartInclusive(t *testing.T) {
	got := Resolve(
		[]model.SeatWithAssignment{seatRow(1, 5)},
		[]model.Permission{perm(1, 5, model.PermissionMovement, model.PermissionApproved, 0, time.Minute)},
		now,
	)
	assert.Equal(t, Status("MOVEMENT"), got[0].Status)
}

func TestResolveLatestPermissionWins(t *testing.T) {
	perms := []model.Permission{
		perm(7, 5, model.PermissionMovement, model.PermissionApproved, -10*time.Minute, time.Hour),
		perm(8, 5, model.PermissionOuting, model.PermissionApproved, -5*time.Minute, time.Hour),
		perm(9, 5, model.PermissionOther, model.PermissionApproved, -30*time.Minute, time.Hour),
	}
	got := Resolve([]model.SeatWithAssignment{seatRow(1, 5)}, perms, now)
	assert.Equal(t, Away(model.PermissionOuting), got[0].Status)
}

func TestResolveInactiveAssignmentIsEmpty(t *testing.T) {
	row := seatRow(1, 5)
	row.Assignment.Active = false
	got := Resolve([]model.SeatWithAssignment{row}, nil, now)
	assert.Equal(t, Empty, got[0].Status)
}

func TestSummarize(t *testing.T) {
	got := Resolve(
		[]model.SeatWithAssignment{seatRow(1, 0), seatRow(2, 0), seatRow(3, 7), seatRow(4, 8)},
		[]model.Permission{perm(1, 8, model.PermissionOuting, model.PermissionApproved, -time.Minute, time.Minute)},
		now,
	)
	s := Summarize(got)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Counts[Empty])
	assert.Equal(t, 1, s.Counts[Occupied])
	assert.Equal(t, 1, s.Counts[Away(model.PermissionOuting)])

	empty := Summarize(nil)
	assert.Equal(t, map[Status]int{Empty: 0, Occupied: 0}, empty.Counts)
}

type fakeSource struct {
	seats    []model.SeatWithAssignment
	perms    []model.Permission
	seatsErr error
	permErr  error
	askedAt  time.Time
}

func (f *fakeSource) SeatsWithAssignments(context.Context, uint64) ([]model.SeatWithAssignment, error) {
	return f.seats, f.seatsErr
}

func (f *fakeSource) ActivePermissions(_ context.Context, at time.Time) ([]model.Permission, error) {
	f.askedAt = at
	return f.perms, f.permErr
}

func TestResolverRoom(t *testing.T) {
	src := &fakeSource{
		seats: []model.SeatWithAssignment{seatRow(1, 5)},
		perms: []model.Permission{perm(1, 5, model.PermissionOuting, model.PermissionApproved, -time.Minute, time.Minute)},
	}
	r := NewResolver(src)
	r.now = func() time.Time { return now }

	got, err := r.Room(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Away(model.PermissionOuting), got[0].Status)
	assert.Equal(t, now, src.askedAt)
}

func TestResolverRoomPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	r := NewResolver(&fakeSource{seatsErr: boom})
	_, err := r.Room(context.Background(), 1)
	assert.Same(t, boom, err)

	r = NewResolver(&fakeSource{permErr: boom})
	_, err = r.Room(context.Background(), 1)
	assert.Same(t, boom, err)
}
