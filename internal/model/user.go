package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
    RoleAdmin   = "ADMIN"
    RoleTeacher = "TEACHER"
    RoleStudent = "STUDENT"
)

// User represents an account as stored in the `users` table.  Students
// are matched by their display name during spreadsheet imports, so Name
// is not unique; Login is.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Login        – unique login name.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN, TEACHER or STUDENT.
//  Grade        – optional grade for students.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    `json:"id"`              // users.id
    Login        string    `json:"login"`           // users.login
    Name         string    `json:"name"`            // users.name
    PasswordHash string    `json:"-"`               // users.password_hash
    Role         string    `json:"role"`            // users.role
    Grade        *int      `json:"grade,omitempty"` // users.grade (nullable)
    IsActive     bool      `json:"isActive"`        // users.is_active
    CreatedAt    time.Time `json:"createdAt"`       // users.created_at
    UpdatedAt    time.Time `json:"updatedAt"`       // users.updated_at
}

// Ref returns the public part of the user shown next to a seat.
func (u User) Ref() StudentRef {
    return StudentRef{ID: u.ID, Name: u.Name, Grade: u.Grade}
}
