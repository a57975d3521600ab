package layout

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

func byID(nodes []model.LayoutNode) map[string]model.LayoutNode {
	out := make(map[string]model.LayoutNode, len(nodes))
	for _, n := range nodes {
		out[n.ID.String()] = n
	}
	return out
}

func TestDiffForSave(t *testing.T) {
	original := []model.LayoutNode{seat(1, "1"), seat(2, "2"), seat(3, "3")}

	moved := seat(2, "2")
	moved.X = 5
	added := model.LayoutNode{ID: model.PendingID("a"), Width: 1, Height: 1, Kind: model.KindDoor}
	current := []model.LayoutNode{seat(1, "1"), moved, added}

	d := DiffForSave(original, current)

	assert.Equal(t, []uint64{3}, d.ToDelete)
	require.Len(t, d.ToCreate, 1)
	assert.Equal(t, added.ID, d.ToCreate[0].ID)
	require.Len(t, d.ToUpdate, 2)
	assert.Equal(t, model.PersistedID(1), d.ToUpdate[0].ID)
	assert.Equal(t, 5, d.ToUpdate[1].X)
	assert.False(t, d.Empty())

	assert.Equal(t, byID(current), byID(d.Apply(original)))
}

func TestDiffForSaveEmpty(t *testing.T) {
	d := DiffForSave(nil, nil)
	assert.True(t, d.Empty())
	assert.NotNil(t, d.ToCreate)
	assert.NotNil(t, d.ToUpdate)
	assert.NotNil(t, d.ToDelete)
}

func TestDiffEverythingDeleted(t *testing.T) {
	original := []model.LayoutNode{seat(9, "1"), seat(4, "2")}
	d := DiffForSave(original, nil)
	got := append([]uint64(nil), d.ToDelete...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []uint64{4, 9}, got)
	assert.Empty(t, d.Apply(original))
}

// Applying the diff reproduces the edited snapshot for a mix of edits.
func TestDiffApplyRoundTrip(t *testing.T) {
	s := NewStore(1, []model.LayoutNode{seat(1, "1"), seat(2, "2"), seat(3, "3"), seat(4, "4")})
	_, _ = s.AddNode(model.KindSeat)
	_, _ = s.AddNode(model.KindWindow)
	s.RemoveNodes([]model.NodeID{model.PersistedID(2), model.PersistedID(4)})
	s.mutate(model.PersistedID(3), func(n *model.LayoutNode) { n.Label = "30" })

	d := s.Diff()
	assert.ElementsMatch(t, []uint64{2, 4}, d.ToDelete)
	assert.Len(t, d.ToCreate, 2)
	assert.Len(t, d.ToUpdate, 2)
	assert.Equal(t, byID(s.Nodes()), byID(d.Apply(s.Baseline())))
}

func TestStoreDirty(t *testing.T) {
	s := NewStore(1, []model.LayoutNode{seat(1, "1")})
	assert.False(t, s.Dirty())

	s.mutate(model.PersistedID(1), func(n *model.LayoutNode) { n.Y = 3 })
	assert.True(t, s.Dirty())

	s.Rebase(s.Nodes(), nil)
	assert.False(t, s.Dirty())
}
