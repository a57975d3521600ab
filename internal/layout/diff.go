package layout

import (
	"github.com/iliyamo/studyroom-seating/internal/model"
)

// Diff is the three-way change set sent to storage on save.  Nodes not
// touched by the edit still appear in ToUpdate; storage applies the
// update as a plain overwrite.
type Diff struct {
	ToCreate []model.LayoutNode `json:"toCreate"`
	ToUpdate []model.LayoutNode `json:"toUpdate"`
	ToDelete []uint64           `json:"toDelete"`
}

// Empty reports whether the diff carries no work at all.
func (d Diff) Empty() bool {
	return len(d.ToCreate) == 0 && len(d.ToUpdate) == 0 && len(d.ToDelete) == 0
}

// DiffForSave compares the loaded snapshot with the edited node set.
// Pending ids are created, persisted ids present in current are updated
// and persisted ids only found in original are deleted.
func DiffForSave(original, current []model.LayoutNode) Diff {
	d := Diff{
		ToCreate: []model.LayoutNode{},
		ToUpdate: []model.LayoutNode{},
		ToDelete: []uint64{},
	}
	kept := make(map[uint64]struct{}, len(current))
	for _, n := range current {
		if n.ID.IsPending() {
			d.ToCreate = append(d.ToCreate, n)
			continue
		}
		if id, ok := n.ID.Persisted(); ok {
			kept[id] = struct{}{}
			d.ToUpdate = append(d.ToUpdate, n)
		}
	}
	for _, n := range original {
		id, ok := n.ID.Persisted()
		if !ok {
			continue
		}
		if _, still := kept[id]; !still {
			d.ToDelete = append(d.ToDelete, id)
		}
	}
	return d
}

// Apply replays the diff on top of original.  Surviving nodes keep their
// original order; created nodes are appended.
func (d Diff) Apply(original []model.LayoutNode) []model.LayoutNode {
	deleted := make(map[uint64]struct{}, len(d.ToDelete))
	for _, id := range d.ToDelete {
		deleted[id] = struct{}{}
	}
	updates := make(map[uint64]model.LayoutNode, len(d.ToUpdate))
	for _, n := range d.ToUpdate {
		if id, ok := n.ID.Persisted(); ok {
			updates[id] = n
		}
	}

	out := make([]model.LayoutNode, 0, len(original)+len(d.ToCreate))
	seen := make(map[uint64]struct{}, len(original))
	for _, n := range original {
		id, ok := n.ID.Persisted()
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		if _, gone := deleted[id]; gone {
			continue
		}
		if u, ok := updates[id]; ok {
			out = append(out, u)
			continue
		}
		out = append(out, n)
	}
	for _, n := range d.ToUpdate {
		if id, ok := n.ID.Persisted(); ok {
			if _, done := seen[id]; !done {
				out = append(out, n)
			}
		}
	}
	return append(out, d.ToCreate...)
}
