package model

import (
    "fmt"
    "strconv"
    "strings"

    "github.com/google/uuid"
)

// Kind is the closed set of node types a room layout is built from.
type Kind uint8

const (
    KindSeat Kind = iota + 1
    KindWall
    KindWindow
    KindDoor
    KindPillar
)

// String returns the storage/wire name of the kind.
func (k Kind) String() string {
    switch k {
    case KindSeat:
        return "SEAT"
    case KindWall:
        return "WALL"
    case KindWindow:
        return "WINDOW"
    case KindDoor:
        return "DOOR"
    case KindPillar:
        return "PILLAR"
    }
    return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k >= KindSeat && k <= KindPillar }

// Labeled reports whether the node's label carries meaning.  Only seats
// are numbered; the label of any other kind is kept but never interpreted.
func (k Kind) Labeled() bool { return k == KindSeat }

// ParseKind converts a wire name (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
    switch strings.ToUpper(strings.TrimSpace(s)) {
    case "SEAT":
        return KindSeat, nil
    case "WALL":
        return KindWall, nil
    case "WINDOW":
        return KindWindow, nil
    case "DOOR":
        return KindDoor, nil
    case "PILLAR":
        return KindPillar, nil
    }
    return 0, fmt.Errorf("unknown node kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
    if !k.Valid() {
        return nil, fmt.Errorf("invalid node kind %d", k)
    }
    return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
    v, err := ParseKind(string(b))
    if err != nil {
        return err
    }
    *k = v
    return nil
}

// pendingPrefix marks identifiers handed out before a node is first saved.
const pendingPrefix = "new-"

// NodeID identifies a layout node.  It is either Pending (a local id given
// to a node that storage has never seen) or Persisted (the storage primary
// key).  The zero value is neither and is rejected wherever an id is
// required.  NodeID is comparable and can be used as a map key.
type NodeID struct {
    local string
    id    uint64
}

// PendingID wraps a client-side local id.
func PendingID(local string) NodeID { return NodeID{local: local} }

// NewPendingID returns a fresh pending id.
func NewPendingID() NodeID { return NodeID{local: uuid.NewString()} }

// PersistedID wraps a storage primary key.
func PersistedID(id uint64) NodeID { return NodeID{id: id} }

// IsPending reports whether the node has never been saved.
func (n NodeID) IsPending() bool { return n.local != "" }

// IsZero reports whether n carries no identifier at all.
func (n NodeID) IsZero() bool { return n.local == "" && n.id == 0 }

// Persisted returns the storage key and true for persisted ids.
func (n NodeID) Persisted() (uint64, bool) {
    if n.IsPending() || n.id == 0 {
        return 0, false
    }
    return n.id, true
}

// String renders pending ids with the "new-" prefix and persisted ids as
// their decimal key.
func (n NodeID) String() string {
    switch {
    case n.IsPending():
        return pendingPrefix + n.local
    case n.id != 0:
        return strconv.FormatUint(n.id, 10)
    }
    return ""
}

// ParseNodeID is the inverse of String.
func ParseNodeID(s string) (NodeID, error) {
    s = strings.TrimSpace(s)
    if rest, ok := strings.CutPrefix(s, pendingPrefix); ok {
        if rest == "" {
            return NodeID{}, fmt.Errorf("empty pending node id")
        }
        return PendingID(rest), nil
    }
    id, err := strconv.ParseUint(s, 10, 64)
    if err != nil || id == 0 {
        return NodeID{}, fmt.Errorf("invalid node id %q", s)
    }
    return PersistedID(id), nil
}

func (n NodeID) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *NodeID) UnmarshalText(b []byte) error {
    v, err := ParseNodeID(string(b))
    if err != nil {
        return err
    }
    *n = v
    return nil
}

// LayoutNode is one typed rectangle on a room's grid.  Coordinates and
// sizes are in cells, never pixels.  Nodes may overlap; nothing in the
// editor or storage prevents it.
//
// Fields:
//  ID       – pending or persisted identifier.
//  RoomID   – room the node belongs to.
//  X, Y     – top-left cell.
//  Width    – width in cells (>= 1).
//  Height   – height in cells (>= 1).
//  Kind     – seat, wall, window, door or pillar.
//  Label    – seat number text; ignored for other kinds.
//  Rotation – reserved, stored as-is.
type LayoutNode struct {
    ID       NodeID `json:"id"`       // layout_nodes.id
    RoomID   uint64 `json:"roomId"`   // layout_nodes.room_id
    X        int    `json:"x"`        // layout_nodes.x
    Y        int    `json:"y"`        // layout_nodes.y
    Width    int    `json:"width"`    // layout_nodes.width
    Height   int    `json:"height"`   // layout_nodes.height
    Kind     Kind   `json:"kind"`     // layout_nodes.kind
    Label    string `json:"label"`    // layout_nodes.label
    Rotation int    `json:"rotation"` // layout_nodes.rotation
}

// Normalize clamps the size to at least one cell.
func (n *LayoutNode) Normalize() {
    if n.Width < 1 {
        n.Width = 1
    }
    if n.Height < 1 {
        n.Height = 1
    }
}

// SameShape reports whether two nodes would persist identically, ignoring
// their ids.
func (n LayoutNode) SameShape(o LayoutNode) bool {
    return n.X == o.X && n.Y == o.Y && n.Width == o.Width && n.Height == o.Height &&
        n.Kind == o.Kind && n.Label == o.Label && n.Rotation == o.Rotation
}
