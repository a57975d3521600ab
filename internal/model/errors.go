package model

import "errors"

// Sentinel errors shared by the storage layer and the engines built on
// top of it.  Handlers translate them into HTTP status codes.
var (
    ErrRoomNotFound       = errors.New("room not found")
    ErrNodeNotFound       = errors.New("layout node not found")
    ErrSeatNotFound       = errors.New("seat not found")
    ErrStudentNotFound    = errors.New("student not found")
    ErrUserNotFound       = errors.New("user not found")
    ErrPermissionNotFound = errors.New("permission not found")

    // ErrConflict is returned when a write loses a race against another
    // writer, e.g. two commits both trying to hand out the same seat.
    ErrConflict = errors.New("conflict")
)
