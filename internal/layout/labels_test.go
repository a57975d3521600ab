package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/studyroom-seating/internal/model"
)

func seat(id uint64, label string) model.LayoutNode {
	return model.LayoutNode{ID: model.PersistedID(id), Width: 1, Height: 1, Kind: model.KindSeat, Label: label}
}

func TestNextSeatLabel(t *testing.T) {
	tests := []struct {
		name  string
		nodes []model.LayoutNode
		want  string
	}{
		{name: "empty room", nodes: nil, want: "1"},
		{name: "ignores non numeric", nodes: []model.LayoutNode{seat(1, "3"), seat(2, "7"), seat(3, "x")}, want: "8"},
		{name: "only non numeric", nodes: []model.LayoutNode{seat(1, "A"), seat(2, "")}, want: "1"},
		{name: "trims spaces", nodes: []model.LayoutNode{seat(1, " 12 ")}, want: "13"},
		{
			name: "ignores other kinds",
			nodes: []model.LayoutNode{
				seat(1, "2"),
				{ID: model.PersistedID(2), Kind: model.KindWall, Label: "99"},
			},
			want: "3",
		},
		{name: "negative ignored", nodes: []model.LayoutNode{seat(1, "-4"), seat(2, "1")}, want: "2"},
		{name: "max uint64 ignored", nodes: []model.LayoutNode{seat(1, "18446744073709551615"), seat(2, "5")}, want: "6"},
		{name: "largest kept", nodes: []model.LayoutNode{seat(1, "4294967295")}, want: "4294967296"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSeatLabel(tt.nodes))
		})
	}
}

func TestStoreAddNodeLabelsSeats(t *testing.T) {
	s := NewStore(4, []model.LayoutNode{seat(1, "3"), seat(2, "7"), seat(3, "x")})

	n, err := s.AddNode(model.KindSeat)
	assert.NoError(t, err)
	assert.Equal(t, "8", n.Label)
	assert.True(t, n.ID.IsPending())
	assert.Equal(t, uint64(4), n.RoomID)
	assert.Equal(t, 0, n.X)
	assert.Equal(t, 0, n.Y)
	assert.Equal(t, 1, n.Width)
	assert.Equal(t, 1, n.Height)

	w, err := s.AddNode(model.KindPillar)
	assert.NoError(t, err)
	assert.Empty(t, w.Label)

	_, err = s.AddNode(model.Kind(42))
	assert.Error(t, err)
	assert.Equal(t, 5, s.Len())
}

func TestPasteAfterHugeLabelDoesNotWrap(t *testing.T) {
	s := NewStore(1, []model.LayoutNode{seat(1, "18446744073709551615"), seat(2, "4294967295")})
	e := NewEditor(s, nil, 30)
	assert.NoError(t, e.Click(model.PersistedID(1), false))
	assert.NoError(t, e.Click(model.PersistedID(2), true))
	assert.Equal(t, 2, e.Copy())

	pasted := e.Paste()
	assert.Len(t, pasted, 2)
	assert.Equal(t, "4294967296", pasted[0].Label)
	assert.Equal(t, "4294967297", pasted[1].Label)
}
