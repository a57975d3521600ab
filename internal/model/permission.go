package model

import (
    "fmt"
    "strings"
    "time"
)

// PermissionType is the reason a student is away from their seat.
type PermissionType string

const (
    PermissionMovement   PermissionType = "MOVEMENT"
    PermissionOuting     PermissionType = "OUTING"
    PermissionEarlyLeave PermissionType = "EARLY_LEAVE"
    PermissionOther      PermissionType = "OTHER"
)

// ParsePermissionType validates a wire value.
func ParsePermissionType(s string) (PermissionType, error) {
    switch t := PermissionType(strings.ToUpper(strings.TrimSpace(s))); t {
    case PermissionMovement, PermissionOuting, PermissionEarlyLeave, PermissionOther:
        return t, nil
    }
    return "", fmt.Errorf("unknown permission type %q", s)
}

// PermissionStatus is the approval state of a request.
type PermissionStatus string

const (
    PermissionPending  PermissionStatus = "PENDING"
    PermissionApproved PermissionStatus = "APPROVED"
    PermissionRejected PermissionStatus = "REJECTED"
)

// Permission is a time-windowed hall pass.  The window is half-open:
// StartsAt is inside it, EndsAt is not.
//
// Fields:
//  ID        – primary key identifier.
//  StudentID – requesting student.
//  Type      – MOVEMENT, OUTING, EARLY_LEAVE or OTHER.
//  Status    – PENDING, APPROVED or REJECTED.
//  Reason    – free text supplied by the student.
//  StartsAt  – first instant covered.
//  EndsAt    – first instant no longer covered.
//  DecidedBy – teacher/admin who approved or rejected (nil while pending).
type Permission struct {
    ID        uint64           `json:"id"`                  // permissions.id
    StudentID uint64           `json:"studentId"`           // permissions.student_id
    Type      PermissionType   `json:"type"`                // permissions.type
    Status    PermissionStatus `json:"status"`              // permissions.status
    Reason    string           `json:"reason,omitempty"`    // permissions.reason
    StartsAt  time.Time        `json:"startsAt"`            // permissions.starts_at
    EndsAt    time.Time        `json:"endsAt"`              // permissions.ends_at
    DecidedBy *uint64          `json:"decidedBy,omitempty"` // permissions.decided_by (nullable)
    CreatedAt time.Time        `json:"createdAt"`           // permissions.created_at
}

// Covers reports whether the permission is approved and t falls inside
// [StartsAt, EndsAt).
func (p Permission) Covers(t time.Time) bool {
    return p.Status == PermissionApproved && !t.Before(p.StartsAt) && t.Before(p.EndsAt)
}
