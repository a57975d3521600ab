// Package layout holds the in-memory model of a room floor plan while it
// is being edited: the node store, the save diff and the interactive
// editing engine on top of them.
package layout

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

// Gateway is the storage side of an editing session.
type Gateway interface {
	// LoadLayout returns every node of the room with its persisted id.
	LoadLayout(ctx context.Context, roomID uint64) ([]model.LayoutNode, error)
	// SyncLayout applies the diff atomically.
	SyncLayout(ctx context.Context, roomID uint64, d Diff) (SyncResult, error)
}

// SyncResult reports the storage ids given to created nodes, keyed by
// the pending id they were sent with, and the seats the save emptied.
type SyncResult struct {
	Created map[model.NodeID]uint64 `json:"created"`
	Vacated []Vacancy               `json:"vacated,omitempty"`
}

// Vacancy is an active assignment a save ended because its seat was
// deleted or stopped being a seat.
type Vacancy struct {
	SeatID    uint64 `json:"seatId"`
	StudentID uint64 `json:"studentId"`
}

// Store is the authoritative node list of one room during an edit
// session, together with the baseline it was last loaded or saved as.
// A Store is not safe for concurrent use.
type Store struct {
	roomID   uint64
	nodes    []model.LayoutNode
	baseline []model.LayoutNode
}

// NewStore wraps an already loaded node list.  The list also becomes the
// save baseline.
func NewStore(roomID uint64, nodes []model.LayoutNode) *Store {
	s := &Store{roomID: roomID}
	s.nodes = cloneNodes(nodes)
	s.baseline = cloneNodes(nodes)
	return s
}

// Load fetches the room's nodes through the gateway.
func Load(ctx context.Context, gw Gateway, roomID uint64) (*Store, error) {
	nodes, err := gw.LoadLayout(ctx, roomID)
	if err != nil {
		return nil, errors.Wrapf(err, "load layout of room %d", roomID)
	}
	return NewStore(roomID, nodes), nil
}

func (s *Store) RoomID() uint64 { return s.roomID }

func (s *Store) Len() int { return len(s.nodes) }

// Nodes returns a copy of the current nodes in insertion order.
func (s *Store) Nodes() []model.LayoutNode { return cloneNodes(s.nodes) }

// Baseline returns a copy of the last loaded or saved node set.
func (s *Store) Baseline() []model.LayoutNode { return cloneNodes(s.baseline) }

// Node looks a node up by id.
func (s *Store) Node(id model.NodeID) (model.LayoutNode, bool) {
	if i := s.index(id); i >= 0 {
		return s.nodes[i], true
	}
	return model.LayoutNode{}, false
}

func (s *Store) index(id model.NodeID) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// AddNode creates a 1x1 node of the given kind at the origin.  Seats are
// numbered after the highest numeric seat label in the room.
func (s *Store) AddNode(kind model.Kind) (model.LayoutNode, error) {
	if !kind.Valid() {
		return model.LayoutNode{}, fmt.Errorf("invalid node kind %d", kind)
	}
	n := model.LayoutNode{
		ID:     model.NewPendingID(),
		RoomID: s.roomID,
		Width:  1,
		Height: 1,
		Kind:   kind,
	}
	if kind == model.KindSeat {
		n.Label = NextSeatLabel(s.nodes)
	}
	s.nodes = append(s.nodes, n)
	return n, nil
}

func (s *Store) insert(nodes ...model.LayoutNode) {
	for _, n := range nodes {
		n.RoomID = s.roomID
		n.Normalize()
		s.nodes = append(s.nodes, n)
	}
}

func (s *Store) mutate(id model.NodeID, fn func(n *model.LayoutNode)) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	fn(&s.nodes[i])
	return true
}

// RemoveNodes drops the given ids from memory and reports how many were
// present.  Storage is only touched on save.
func (s *Store) RemoveNodes(ids []model.NodeID) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[model.NodeID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.nodes[:0]
	removed := 0
	for _, n := range s.nodes {
		if _, ok := drop[n.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.nodes = kept
	return removed
}

// Diff computes the save diff against the baseline.
func (s *Store) Diff() Diff { return DiffForSave(s.baseline, s.nodes) }

// Dirty reports whether saving would change anything in storage.
func (s *Store) Dirty() bool {
	d := s.Diff()
	if len(d.ToCreate) > 0 || len(d.ToDelete) > 0 {
		return true
	}
	base := make(map[model.NodeID]model.LayoutNode, len(s.baseline))
	for _, n := range s.baseline {
		base[n.ID] = n
	}
	for _, n := range d.ToUpdate {
		b, ok := base[n.ID]
		if !ok || !b.SameShape(n) {
			return true
		}
	}
	return false
}

// Rebase records a successful save.  saved is the node set the diff was
// computed from; it becomes the new baseline.  Pending ids listed in
// created are replaced by their storage ids in both the baseline and the
// current nodes, so edits made while the save was in flight survive.
func (s *Store) Rebase(saved []model.LayoutNode, created map[model.NodeID]uint64) {
	remap := func(n model.LayoutNode) model.LayoutNode {
		if id, ok := created[n.ID]; ok && n.ID.IsPending() {
			n.ID = model.PersistedID(id)
		}
		return n
	}
	baseline := make([]model.LayoutNode, 0, len(saved))
	for _, n := range saved {
		baseline = append(baseline, remap(n))
	}
	s.baseline = baseline
	for i := range s.nodes {
		s.nodes[i] = remap(s.nodes[i])
	}
}

func cloneNodes(nodes []model.LayoutNode) []model.LayoutNode {
	out := make([]model.LayoutNode, len(nodes))
	copy(out, nodes)
	return out
}
