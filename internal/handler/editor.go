package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-seating/internal/events"
	"github.com/iliyamo/studyroom-seating/internal/grid"
	"github.com/iliyamo/studyroom-seating/internal/layout"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// EditorHandler drives server-hosted layout editing sessions.  Every
// mutating call answers with the full session state so the canvas can
// redraw from it.
type EditorHandler struct {
	Sessions *layout.Sessions
	Cache    Invalidator
	Events   events.Publisher
}

func NewEditorHandler(s *layout.Sessions, cache Invalidator, pub events.Publisher) *EditorHandler {
	return &EditorHandler{Sessions: s, Cache: orNoop(cache), Events: pub}
}

type editorView struct {
	SessionID string             `json:"sessionId"`
	RoomID    uint64             `json:"roomId"`
	Mode      layout.Mode        `json:"mode"`
	Selection []model.NodeID     `json:"selection"`
	Clipboard int                `json:"clipboard"`
	Dirty     bool               `json:"dirty"`
	Nodes     []model.LayoutNode `json:"nodes"`
}

func viewOf(s *layout.Session, e *layout.Editor) editorView {
	return editorView{
		SessionID: s.ID,
		RoomID:    s.RoomID,
		Mode:      e.Mode(),
		Selection: e.Selection(),
		Clipboard: e.ClipboardLen(),
		Dirty:     e.Store().Dirty(),
		Nodes:     e.Store().Nodes(),
	}
}

func (h *EditorHandler) session(c echo.Context) (*layout.Session, error) {
	s, ok := h.Sessions.Get(c.Param("sid"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "editor session not found")
	}
	return s, nil
}

// edit runs fn on the session's editor and answers with the new state.
func (h *EditorHandler) edit(c echo.Context, status int, fn func(e *layout.Editor) error) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var view editorView
	if err := s.Do(func(e *layout.Editor) error {
		if err := fn(e); err != nil {
			return err
		}
		view = viewOf(s, e)
		return nil
	}); err != nil {
		return err
	}
	return c.JSON(status, view)
}

// Open handles POST /v1/rooms/:id/editor.
func (h *EditorHandler) Open(c echo.Context) error {
	roomID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Sessions.Open(ctx, roomID)
	if err != nil {
		return err
	}
	var view editorView
	_ = s.Do(func(e *layout.Editor) error {
		view = viewOf(s, e)
		return nil
	})
	return c.JSON(http.StatusCreated, view)
}

// Get handles GET /v1/editor/:sid.
func (h *EditorHandler) Get(c echo.Context) error {
	return h.edit(c, http.StatusOK, func(*layout.Editor) error { return nil })
}

// Close handles DELETE /v1/editor/:sid.  Unsaved edits are discarded.
func (h *EditorHandler) Close(c echo.Context) error {
	if !h.Sessions.Close(c.Param("sid")) {
		return echo.NewHTTPError(http.StatusNotFound, "editor session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type addNodeReq struct {
	Kind model.Kind `json:"kind"`
}

// AddNode handles POST /v1/editor/:sid/nodes.
func (h *EditorHandler) AddNode(c echo.Context) error {
	var req addNodeReq
	if err := c.Bind(&req); err != nil || !req.Kind.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid kind"})
	}
	return h.edit(c, http.StatusCreated, func(e *layout.Editor) error {
		_, err := e.AddNode(req.Kind)
		return err
	})
}

type clickReq struct {
	ID    model.NodeID `json:"id"`
	Multi bool         `json:"multi"`
}

// Click handles POST /v1/editor/:sid/click.
func (h *EditorHandler) Click(c echo.Context) error {
	var req clickReq
	if err := c.Bind(&req); err != nil || req.ID.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid node id"})
	}
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error { return e.Click(req.ID, req.Multi) })
}

// Background handles POST /v1/editor/:sid/background.
func (h *EditorHandler) Background(c echo.Context) error {
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		e.ClickBackground()
		return nil
	})
}

type dragReq struct {
	ID model.NodeID `json:"id"`
	DX float64      `json:"dx"`
	DY float64      `json:"dy"`
}

// Drag handles POST /v1/editor/:sid/drag.  dx and dy are pixels.
func (h *EditorHandler) Drag(c echo.Context) error {
	var req dragReq
	if err := c.Bind(&req); err != nil || req.ID.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid node id"})
	}
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		_, err := e.Drag(req.ID, req.DX, req.DY)
		return err
	})
}

// ToggleWall handles POST /v1/editor/:sid/wall.
func (h *EditorHandler) ToggleWall(c echo.Context) error {
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		e.ToggleWallMode()
		return nil
	})
}

func bindCell(c echo.Context) (grid.Point, error) {
	var p grid.Point
	if err := c.Bind(&p); err != nil {
		return p, echo.NewHTTPError(http.StatusBadRequest, "invalid cell")
	}
	return p, nil
}

// PointerDown handles POST /v1/editor/:sid/pointer/down.
func (h *EditorHandler) PointerDown(c echo.Context) error {
	p, err := bindCell(c)
	if err != nil {
		return err
	}
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error { return e.PointerDown(p) })
}

// PointerMove handles POST /v1/editor/:sid/pointer/move and returns the
// preview rectangle only; nothing is changed.
func (h *EditorHandler) PointerMove(c echo.Context) error {
	p, err := bindCell(c)
	if err != nil {
		return err
	}
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var rect grid.Rect
	if err := s.Do(func(e *layout.Editor) error {
		rect, err = e.PointerMove(p)
		return err
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"preview": rect})
}

// PointerUp handles POST /v1/editor/:sid/pointer/up and commits the wall.
func (h *EditorHandler) PointerUp(c echo.Context) error {
	p, err := bindCell(c)
	if err != nil {
		return err
	}
	return h.edit(c, http.StatusCreated, func(e *layout.Editor) error {
		_, err := e.PointerUp(p)
		return err
	})
}

type labelReq struct {
	Label string `json:"label"`
}

// EditLabel handles PUT /v1/editor/:sid/nodes/:nid/label.
func (h *EditorHandler) EditLabel(c echo.Context) error {
	id, err := model.ParseNodeID(c.Param("nid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid node id"})
	}
	var req labelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error { return e.EditLabel(id, req.Label) })
}

// Copy handles POST /v1/editor/:sid/copy.
func (h *EditorHandler) Copy(c echo.Context) error {
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		e.Copy()
		return nil
	})
}

// Paste handles POST /v1/editor/:sid/paste.
func (h *EditorHandler) Paste(c echo.Context) error {
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		e.Paste()
		return nil
	})
}

// DeleteSelection handles DELETE /v1/editor/:sid/selection.
func (h *EditorHandler) DeleteSelection(c echo.Context) error {
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		e.DeleteSelected()
		return nil
	})
}

// Key handles POST /v1/editor/:sid/keys.  Unknown shortcuts are a 400.
func (h *EditorHandler) Key(c echo.Context) error {
	var k layout.Key
	if err := c.Bind(&k); err != nil || k.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid key"})
	}
	return h.edit(c, http.StatusOK, func(e *layout.Editor) error {
		if !e.HandleKey(k) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown shortcut")
		}
		return nil
	})
}

// Save handles POST /v1/editor/:sid/save.  A failed save leaves the
// session untouched so it can be retried.
func (h *EditorHandler) Save(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := s.Save(ctx)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRoomNotFound):
			return err
		case errors.Is(err, model.ErrNodeNotFound):
			// someone else changed the room since the session loaded it
			return c.JSON(http.StatusConflict, echo.Map{"error": "layout changed since it was loaded"})
		}
		c.Logger().Errorf("editor save %s: %v", s.ID, err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "save failed"})
	}
	_ = h.Cache.Bump(ctx, s.RoomID)
	announceVacated(ctx, c, h.Events, s.RoomID, res)

	var view editorView
	_ = s.Do(func(e *layout.Editor) error {
		view = viewOf(s, e)
		return nil
	})
	return c.JSON(http.StatusOK, echo.Map{
		"created": createdView(res),
		"state":   view,
	})
}
