package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/events"
	"github.com/iliyamo/studyroom-seating/internal/repository"
	"github.com/iliyamo/studyroom-seating/internal/status"
)

// heartbeat keeps idle event streams open through proxies.
const heartbeat = 25 * time.Second

// StatusHandler serves the live seat board of a room.
type StatusHandler struct {
	Resolver    *status.Resolver
	Hub         *events.Hub
	Rooms       *repository.RoomRepo
	Permissions *repository.PermissionRepo
}

func NewStatusHandler(r *status.Resolver, hub *events.Hub, rooms *repository.RoomRepo, perms *repository.PermissionRepo) *StatusHandler {
	return &StatusHandler{Resolver: r, Hub: hub, Rooms: rooms, Permissions: perms}
}

// RoomStatus handles GET /v1/rooms/:id/status.
func (h *StatusHandler) RoomStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	seats, err := h.Resolver.Room(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"roomId":  id,
		"summary": status.Summarize(seats),
		"items":   seats,
	})
}

// Stream handles GET /v1/rooms/:id/status/stream.  It sends one
// server-sent "seat" event per SeatChanged of the room until the client
// goes away.
func (h *StatusHandler) Stream(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	_, err = h.Rooms.GetByID(ctx, id)
	cancel()
	if err != nil {
		return err
	}

	ch, unsubscribe := h.Hub.Subscribe(id)
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	w.Flush()

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	done := c.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case <-tick.C:
			fmt.Fprint(w, ": ping\n\n")
			w.Flush()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(w, "seat", ev); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeSSE(w *echo.Response, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// ActivePermissions handles GET /v1/permissions/active.
func (h *StatusHandler) ActivePermissions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Permissions.ActivePermissions(ctx, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(items), "items": items})
}
