// Package events carries seat-changed notifications from the assignment
// engine to live views, either in process or through RabbitMQ.
package events

import (
	"context"
	"errors"
	"time"
)

// Actions carried by SeatChanged.
const (
	ActionAssign   = "ASSIGN"
	ActionUnassign = "UNASSIGN"
)

// SeatChanged is emitted once for every committed assignment change.  It
// holds enough for a monitoring screen to update a single seat without
// refetching the room.
type SeatChanged struct {
	RoomID            uint64    `json:"room_id"`
	SeatID            uint64    `json:"seat_id"`
	Action            string    `json:"action"`
	StudentID         *uint64   `json:"student_id,omitempty"`          // new occupant, nil on unassign
	PreviousStudentID *uint64   `json:"previous_student_id,omitempty"` // occupant replaced or removed
	VacatedSeatID     *uint64   `json:"vacated_seat_id,omitempty"`     // seat the new occupant left
	ChangedAt         time.Time `json:"changed_at"`
}

// Publisher delivers SeatChanged events.
type Publisher interface {
	PublishSeatChanged(ctx context.Context, ev SeatChanged) error
}

// Multi fans an event out to several publishers.  Every publisher is
// tried; the errors are joined.
type Multi []Publisher

func (m Multi) PublishSeatChanged(ctx context.Context, ev SeatChanged) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishSeatChanged(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev SeatChanged) error

func (f PublisherFunc) PublishSeatChanged(ctx context.Context, ev SeatChanged) error {
	return f(ctx, ev)
}
