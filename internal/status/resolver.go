// Package status derives the live status of every seat in a room from its
// active assignment and the approved permissions in force right now.
package status

import (
	"context"
	"time"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

// Status is the displayed state of one seat.
type Status string

const (
	Empty    Status = "EMPTY"
	Occupied Status = "OCCUPIED"
)

// Away returns the status shown while a permission of type t is in force.
func Away(t model.PermissionType) Status { return Status(t) }

// SeatStatus is one seat together with its resolved status.
type SeatStatus struct {
	Seat       model.LayoutNode      `json:"seat"`
	Assignment *model.SeatAssignment `json:"assignment,omitempty"`
	Student    *model.StudentRef     `json:"student,omitempty"`
	Status     Status                `json:"status"`
	Permission *model.Permission     `json:"permission,omitempty"`
}

// Resolve computes the status of each seat at now.  Permissions that are
// not approved or whose window does not contain now are ignored.  When a
// student has several permissions in force, the one that started last
// wins.  The output keeps the order of seats.
func Resolve(seats []model.SeatWithAssignment, perms []model.Permission, now time.Time) []SeatStatus {
	current := make(map[uint64]model.Permission)
	for _, p := range perms {
		if !p.Covers(now) {
			continue
		}
		if prev, ok := current[p.StudentID]; ok && !laterThan(p, prev) {
			continue
		}
		current[p.StudentID] = p
	}

	out := make([]SeatStatus, 0, len(seats))
	for _, s := range seats {
		st := SeatStatus{Seat: s.Seat, Assignment: s.Assignment, Student: s.Student, Status: Empty}
		if s.Assignment != nil && s.Assignment.Active {
			st.Status = Occupied
			if p, ok := current[s.Assignment.StudentID]; ok {
				st.Status = Away(p.Type)
				st.Permission = &p
			}
		}
		out = append(out, st)
	}
	return out
}

func laterThan(a, b model.Permission) bool {
	if !a.StartsAt.Equal(b.StartsAt) {
		return a.StartsAt.After(b.StartsAt)
	}
	return a.ID > b.ID
}

// Summary counts seats per status.
type Summary struct {
	Total  int            `json:"total"`
	Counts map[Status]int `json:"counts"`
}

// Summarize tallies resolved seats.  EMPTY and OCCUPIED are always present.
func Summarize(seats []SeatStatus) Summary {
	s := Summary{Total: len(seats), Counts: map[Status]int{Empty: 0, Occupied: 0}}
	for _, st := range seats {
		s.Counts[st.Status]++
	}
	return s
}

// Source is the read side of storage the resolver needs.
type Source interface {
	SeatsWithAssignments(ctx context.Context, roomID uint64) ([]model.SeatWithAssignment, error)
	ActivePermissions(ctx context.Context, at time.Time) ([]model.Permission, error)
}

// Resolver fetches a room's data from a Source and resolves it.
type Resolver struct {
	src Source
	now func() time.Time
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src, now: time.Now}
}

// Room resolves every seat of a room.  Fetch errors are returned as they
// come from the source.
func (r *Resolver) Room(ctx context.Context, roomID uint64) ([]SeatStatus, error) {
	seats, err := r.src.SeatsWithAssignments(ctx, roomID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	perms, err := r.src.ActivePermissions(ctx, now)
	if err != nil {
		return nil, err
	}
	return Resolve(seats, perms, now), nil
}
