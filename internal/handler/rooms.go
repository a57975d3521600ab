package handler // handler package contains room and seat map handlers

import (
    "context"  // context carries the request deadline
    "net/http" // http defines status code constants
    "strings"  // strings trims names
    "time"     // event timestamps

    "github.com/labstack/echo/v4" // echo provides request context and JSON helpers

    "github.com/iliyamo/studyroom-seating/internal/events"     // seat change notifications
    "github.com/iliyamo/studyroom-seating/internal/layout"     // save diffs
    "github.com/iliyamo/studyroom-seating/internal/model"      // rooms and nodes
    "github.com/iliyamo/studyroom-seating/internal/repository" // storage
)

// RoomHandler serves room CRUD and the persisted seat map.
type RoomHandler struct {
    Rooms *repository.RoomRepo
    Nodes  *repository.NodeRepo
    Cache  Invalidator
    Events events.Publisher // optional; told about seats a save emptied
}

// NewRoomHandler panics if a repository is missing.
func NewRoomHandler(rooms *repository.RoomRepo, nodes *repository.NodeRepo, cache Invalidator, pub events.Publisher) *RoomHandler {
    if rooms == nil || nodes == nil {
        panic("nil repository passed to NewRoomHandler")
    }
    return &RoomHandler{Rooms: rooms, Nodes: nodes, Cache: orNoop(cache), Events: pub}
}

type createRoomReq struct {
    Name  string `json:"name" validate:"required,max=100"`
    Grade *int   `json:"grade" validate:"omitempty,min=1,max=12"`
}

// CreateRoom handles POST /v1/rooms.
func (h *RoomHandler) CreateRoom(c echo.Context) error {
    var req createRoomReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    room := model.Room{Name: strings.TrimSpace(req.Name), Grade: req.Grade}
    if room.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Rooms.Create(ctx, &room); err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, room)
}

// ListRooms handles GET /v1/rooms.
func (h *RoomHandler) ListRooms(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    rooms, err := h.Rooms.List(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, map[string]any{
        "count": len(rooms),
        "items": rooms,
    })
}

// GetRoom handles GET /v1/rooms/:id.
func (h *RoomHandler) GetRoom(c echo.Context) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    room, err := h.Rooms.GetByID(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /v1/rooms/:id.  Nodes and assignments go with
// the room.
func (h *RoomHandler) DeleteRoom(c echo.Context) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Rooms.Delete(ctx, id); err != nil {
        return err
    }
    _ = h.Cache.Bump(ctx, id)
    return c.NoContent(http.StatusNoContent)
}

// ListSeats handles GET /v1/rooms/:id/seats.  Every node is returned;
// SEAT nodes carry their active assignment and student.  ?seatsOnly=true
// leaves the other kinds out.
func (h *RoomHandler) ListSeats(c echo.Context) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    seatsOnly := false
    if v := strings.ToLower(strings.TrimSpace(c.QueryParam("seatsOnly"))); v == "true" || v == "1" {
        seatsOnly = true
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    items, err := h.Nodes.WithAssignments(ctx, id, seatsOnly)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, map[string]any{
        "roomId": id,
        "count":  len(items),
        "items":  items,
    })
}

// SyncSeats handles PUT /v1/rooms/:id/seats.  The body is a save diff
// applied atomically; the response maps each created pending id to its
// storage key.
func (h *RoomHandler) SyncSeats(c echo.Context) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    var d layout.Diff
    if err := c.Bind(&d); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if msg := checkDiff(d); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    res, err := h.Nodes.SyncLayout(ctx, id, d)
    if err != nil {
        return err
    }
    _ = h.Cache.Bump(ctx, id)
    announceVacated(ctx, c, h.Events, id, res)
    return c.JSON(http.StatusOK, echo.Map{"created": createdView(res)})
}

// announceVacated publishes one UNASSIGN per assignment a layout save
// ended.  Failures are logged; the save itself already succeeded.
func announceVacated(ctx context.Context, c echo.Context, pub events.Publisher, roomID uint64, res layout.SyncResult) {
    if pub == nil {
        return
    }
    now := time.Now().UTC()
    for _, v := range res.Vacated {
        prev := v.StudentID
        ev := events.SeatChanged{
            RoomID:            roomID,
            SeatID:            v.SeatID,
            Action:            events.ActionUnassign,
            PreviousStudentID: &prev,
            ChangedAt:         now,
        }
        if err := pub.PublishSeatChanged(ctx, ev); err != nil {
            c.Logger().Warnf("publish vacated seat %d: %v", v.SeatID, err)
        }
    }
}

// checkDiff rejects diffs storage could not apply unambiguously.
func checkDiff(d layout.Diff) string {
    seen := make(map[model.NodeID]struct{}, len(d.ToCreate))
    for _, n := range d.ToCreate {
        if !n.ID.IsPending() {
            return "toCreate ids must be pending (new-...)"
        }
        if _, dup := seen[n.ID]; dup {
            return "duplicate pending id " + n.ID.String()
        }
        seen[n.ID] = struct{}{}
        if !n.Kind.Valid() {
            return "invalid kind for " + n.ID.String()
        }
    }
    for _, n := range d.ToUpdate {
        if _, ok := n.ID.Persisted(); !ok {
            return "toUpdate ids must be persisted"
        }
        if !n.Kind.Valid() {
            return "invalid kind for " + n.ID.String()
        }
    }
    for _, id := range d.ToDelete {
        if id == 0 {
            return "toDelete ids must be persisted"
        }
    }
    return ""
}

func createdView(res layout.SyncResult) map[string]uint64 {
    out := make(map[string]uint64, len(res.Created))
    for pending, id := range res.Created {
        out[pending.String()] = id
    }
    return out
}
