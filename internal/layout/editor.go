package layout

import (
	"context"
	"errors"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/iliyamo/studyroom-seating/internal/grid"
	"github.com/iliyamo/studyroom-seating/internal/model"
)

var (
	ErrNodeNotFound = errors.New("node not in layout")
	ErrNotEditable  = errors.New("only seat labels can be edited")
	ErrNotDrawing   = errors.New("wall drawing is not active")
	ErrNoAnchor     = errors.New("wall drawing has no anchor")
)

// Mode is the interaction mode of the editor.
type Mode uint8

const (
	ModeSelect Mode = iota
	ModeWall
)

func (m Mode) String() string {
	if m == ModeWall {
		return "WALL"
	}
	return "SELECT"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Key is a keyboard shortcut as delivered by the canvas.
type Key struct {
	Code string `json:"code"`
	Ctrl bool   `json:"ctrl"`
}

// Editor applies interactive edits to a Store.  Every mutation runs
// synchronously; nothing reaches storage until Save.  An Editor is owned
// by a single editing session and is not safe for concurrent use.
type Editor struct {
	store  *Store
	gw     Gateway
	cellPx float64

	selected  map[model.NodeID]struct{}
	clipboard []model.LayoutNode

	mode   Mode
	anchor *grid.Point
}

// NewEditor starts editing store.  cellPx is the canvas cell size used to
// snap drag deltas.
func NewEditor(store *Store, gw Gateway, cellPx float64) *Editor {
	return &Editor{
		store:    store,
		gw:       gw,
		cellPx:   cellPx,
		selected: make(map[model.NodeID]struct{}),
	}
}

func (e *Editor) Store() *Store   { return e.store }
func (e *Editor) Mode() Mode      { return e.mode }
func (e *Editor) CellPx() float64 { return e.cellPx }

// Selection returns the selected ids in store order.
func (e *Editor) Selection() []model.NodeID {
	out := make([]model.NodeID, 0, len(e.selected))
	for _, n := range e.store.nodes {
		if _, ok := e.selected[n.ID]; ok {
			out = append(out, n.ID)
		}
	}
	return out
}

func (e *Editor) IsSelected(id model.NodeID) bool {
	_, ok := e.selected[id]
	return ok
}

// ClipboardLen reports how many nodes the next paste would create.
func (e *Editor) ClipboardLen() int { return len(e.clipboard) }

// AddNode adds a node of the given kind at the origin.
func (e *Editor) AddNode(kind model.Kind) (model.LayoutNode, error) {
	return e.store.AddNode(kind)
}

// Click selects id.  Without the multi-select modifier the selection
// becomes exactly {id}; with it, id's membership toggles.
func (e *Editor) Click(id model.NodeID, multi bool) error {
	if _, ok := e.store.Node(id); !ok {
		return ErrNodeNotFound
	}
	if multi {
		if _, ok := e.selected[id]; ok {
			delete(e.selected, id)
		} else {
			e.selected[id] = struct{}{}
		}
		return nil
	}
	e.clearSelection()
	e.selected[id] = struct{}{}
	return nil
}

// ClickBackground clears the selection.
func (e *Editor) ClickBackground() { e.clearSelection() }

func (e *Editor) clearSelection() {
	clear(e.selected)
}

// Drag moves the dragged node, or the whole selection when the dragged
// node is part of it, by the snapped pixel delta.  It returns the number
// of nodes moved; a delta that snaps to zero cells moves nothing.
func (e *Editor) Drag(id model.NodeID, dxPx, dyPx float64) (int, error) {
	if _, ok := e.store.Node(id); !ok {
		return 0, ErrNodeNotFound
	}
	dx, dy := grid.Snap(dxPx, e.cellPx), grid.Snap(dyPx, e.cellPx)
	if dx == 0 && dy == 0 {
		return 0, nil
	}
	moving := []model.NodeID{id}
	if e.IsSelected(id) {
		moving = e.Selection()
	}
	for _, mid := range moving {
		e.store.mutate(mid, func(n *model.LayoutNode) {
			n.X += dx
			n.Y += dy
		})
	}
	return len(moving), nil
}

// ToggleWallMode arms or disarms wall drawing.  Switching modes clears the
// selection and any half-drawn wall.
func (e *Editor) ToggleWallMode() Mode {
	if e.mode == ModeWall {
		e.setMode(ModeSelect)
	} else {
		e.setMode(ModeWall)
	}
	return e.mode
}

func (e *Editor) setMode(m Mode) {
	e.mode = m
	e.anchor = nil
	e.clearSelection()
}

// PointerDown records the anchor cell of a wall.
func (e *Editor) PointerDown(cell grid.Point) error {
	if e.mode != ModeWall {
		return ErrNotDrawing
	}
	e.anchor = &cell
	return nil
}

// PointerMove returns the live preview rectangle from the anchor to cell.
func (e *Editor) PointerMove(cell grid.Point) (grid.Rect, error) {
	if e.mode != ModeWall {
		return grid.Rect{}, ErrNotDrawing
	}
	if e.anchor == nil {
		return grid.Rect{}, ErrNoAnchor
	}
	return grid.Span(*e.anchor, cell), nil
}

// Preview returns the rectangle a wall would cover if the pointer were
// released over cell, and false when no wall is being drawn.
func (e *Editor) Preview(cell grid.Point) (grid.Rect, bool) {
	r, err := e.PointerMove(cell)
	return r, err == nil
}

// PointerUp commits the wall spanning anchor..cell and leaves wall mode.
func (e *Editor) PointerUp(cell grid.Point) (model.LayoutNode, error) {
	r, err := e.PointerMove(cell)
	if err != nil {
		return model.LayoutNode{}, err
	}
	wall := model.LayoutNode{
		ID:     model.NewPendingID(),
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		Kind:   model.KindWall,
	}
	e.store.insert(wall)
	e.setMode(ModeSelect)
	wall.RoomID = e.store.roomID
	return wall, nil
}

// EditLabel writes a new label to a seat.
func (e *Editor) EditLabel(id model.NodeID, label string) error {
	n, ok := e.store.Node(id)
	if !ok {
		return ErrNodeNotFound
	}
	if !n.Kind.Labeled() {
		return ErrNotEditable
	}
	label = strings.TrimSpace(label)
	e.store.mutate(id, func(n *model.LayoutNode) { n.Label = label })
	return nil
}

// Copy captures the selected nodes by value and returns how many were
// copied.  An empty selection leaves the clipboard unchanged.
func (e *Editor) Copy() int {
	ids := e.Selection()
	if len(ids) == 0 {
		return 0
	}
	clip := make([]model.LayoutNode, 0, len(ids))
	for _, id := range ids {
		n, _ := e.store.Node(id)
		clip = append(clip, n)
	}
	e.clipboard = clip
	return len(clip)
}

// Paste inserts the clipboard one cell down and right of the originals,
// with fresh ids.  Pasted seats are numbered after the highest seat label
// in the room.  The pasted nodes become the selection.
func (e *Editor) Paste() []model.LayoutNode {
	if len(e.clipboard) == 0 {
		return nil
	}
	next := maxSeatNumber(e.store.nodes) + 1
	pasted := make([]model.LayoutNode, 0, len(e.clipboard))
	for _, src := range e.clipboard {
		n := src
		n.ID = model.NewPendingID()
		n.RoomID = e.store.roomID
		n.X++
		n.Y++
		if n.Kind == model.KindSeat {
			n.Label = strconv.FormatUint(next, 10)
			next++
		}
		pasted = append(pasted, n)
	}
	e.store.insert(pasted...)
	e.clearSelection()
	for _, n := range pasted {
		e.selected[n.ID] = struct{}{}
	}
	return pasted
}

// DeleteSelected removes every selected node and clears the selection.
func (e *Editor) DeleteSelected() int {
	removed := e.store.RemoveNodes(e.Selection())
	e.clearSelection()
	return removed
}

// HandleKey dispatches a keyboard shortcut and reports whether it was
// recognised.
func (e *Editor) HandleKey(k Key) bool {
	code := strings.ToLower(k.Code)
	switch {
	case k.Ctrl && code == "c":
		e.Copy()
	case k.Ctrl && code == "v":
		e.Paste()
	case !k.Ctrl && (code == "delete" || code == "backspace"):
		e.DeleteSelected()
	case code == "escape":
		if e.mode == ModeWall {
			e.setMode(ModeSelect)
		} else {
			e.clearSelection()
		}
	case !k.Ctrl && code == "w":
		e.ToggleWallMode()
	default:
		return false
	}
	return true
}

// PendingSave is a save captured from the editor, ready to be sent to
// storage without holding the editor.
type PendingSave struct {
	RoomID uint64
	Diff   Diff
	nodes  []model.LayoutNode
}

// BeginSave snapshots the current nodes and their diff against the
// baseline.
func (e *Editor) BeginSave() PendingSave {
	return PendingSave{
		RoomID: e.store.roomID,
		Diff:   e.store.Diff(),
		nodes:  e.store.Nodes(),
	}
}

// FinishSave rebases the store after storage accepted p.
func (e *Editor) FinishSave(p PendingSave, res SyncResult) {
	e.store.Rebase(p.nodes, res.Created)
	if len(res.Created) == 0 {
		return
	}
	for pending, id := range res.Created {
		if _, ok := e.selected[pending]; ok {
			delete(e.selected, pending)
			e.selected[model.PersistedID(id)] = struct{}{}
		}
	}
}

// Send pushes a captured save through the editor's gateway.
func (e *Editor) Send(ctx context.Context, p PendingSave) (SyncResult, error) {
	res, err := e.gw.SyncLayout(ctx, p.RoomID, p.Diff)
	if err != nil {
		return SyncResult{}, pkgerrors.Wrap(err, "save layout")
	}
	return res, nil
}

// Save sends the diff to storage in one request.  On failure the
// in-memory layout is left exactly as it was so the save can be retried.
func (e *Editor) Save(ctx context.Context) (SyncResult, error) {
	p := e.BeginSave()
	res, err := e.Send(ctx, p)
	if err != nil {
		return SyncResult{}, err
	}
	e.FinishSave(p, res)
	return res, nil
}
