package model

import "time"

// Room represents a study room whose floor plan is edited as a grid of
// layout nodes.  Rooms are created by administrators; deleting a room
// removes its nodes and every assignment attached to its seats.  This
// struct corresponds to a row in the `rooms` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the room.
//  Grade     – optional grade filter (nil when the room is shared).
//  CreatedAt – timestamp when the room was created.
//  UpdatedAt – timestamp of last update.
type Room struct {
    ID        uint64    `json:"id"`              // rooms.id
    Name      string    `json:"name"`            // rooms.name
    Grade     *int      `json:"grade,omitempty"` // rooms.grade (nullable)
    CreatedAt time.Time `json:"createdAt"`       // rooms.created_at
    UpdatedAt time.Time `json:"updatedAt"`       // rooms.updated_at
}
