package model

import "time"

// SeatAssignment links a SEAT node to a student.  A new row is written on
// every (re)assignment; unassigning or reassigning only flips Active off
// and stamps EndedAt, so the table doubles as the seating history.
//
// Fields:
//  ID        – primary key identifier.
//  SeatID    – layout node (kind SEAT) being assigned.
//  StudentID – user with role STUDENT holding the seat.
//  Active    – whether the assignment is current.
//  StartedAt – when the assignment became active.
//  EndedAt   – when it was deactivated (nil while active).
type SeatAssignment struct {
    ID        uint64     `json:"id"`                // seat_assignments.id
    SeatID    uint64     `json:"seatId"`            // seat_assignments.seat_id
    StudentID uint64     `json:"studentId"`         // seat_assignments.student_id
    Active    bool       `json:"active"`            // seat_assignments.active
    StartedAt time.Time  `json:"startedAt"`         // seat_assignments.started_at
    EndedAt   *time.Time `json:"endedAt,omitempty"` // seat_assignments.ended_at (nullable)
}

// StudentRef is the part of a student exposed next to a seat.
type StudentRef struct {
    ID    uint64 `json:"id"`
    Name  string `json:"name"`
    Grade *int   `json:"grade,omitempty"`
}

// SeatWithAssignment is a SEAT node joined with its active assignment and
// the assigned student, if any.
type SeatWithAssignment struct {
    Seat       LayoutNode      `json:"seat"`
    Assignment *SeatAssignment `json:"assignment,omitempty"`
    Student    *StudentRef     `json:"student,omitempty"`
}
