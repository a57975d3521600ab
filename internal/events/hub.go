package events

import (
	"context"
	"sync"
)

// Hub is an in-process broadcaster of SeatChanged events, keyed by room.
// Slow subscribers lose events rather than block publishers.
type Hub struct {
	buffer int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]map[uint64]chan SeatChanged // room -> subscriber -> channel
	hooks  []func(SeatChanged)
}

// NewHub returns a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{buffer: buffer, subs: make(map[uint64]map[uint64]chan SeatChanged)}
}

// Subscribe registers a listener for one room.  The returned cancel
// function unregisters it and closes the channel; it is safe to call more
// than once.
func (h *Hub) Subscribe(roomID uint64) (<-chan SeatChanged, func()) {
	ch := make(chan SeatChanged, h.buffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[uint64]chan SeatChanged)
	}
	h.subs[roomID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[roomID], id)
			if len(h.subs[roomID]) == 0 {
				delete(h.subs, roomID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// OnEvent registers fn to run synchronously for every event, regardless
// of room.  Hooks must be registered before events start flowing.
func (h *Hub) OnEvent(fn func(SeatChanged)) {
	h.mu.Lock()
	h.hooks = append(h.hooks, fn)
	h.mu.Unlock()
}

// Subscribers reports how many listeners a room has.
func (h *Hub) Subscribers(roomID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomID])
}

// Broadcast delivers ev to the room's listeners and the hooks.
func (h *Hub) Broadcast(ev SeatChanged) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.hooks {
		fn(ev)
	}
	for _, ch := range h.subs[ev.RoomID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// PublishSeatChanged implements Publisher.
func (h *Hub) PublishSeatChanged(_ context.Context, ev SeatChanged) error {
	h.Broadcast(ev)
	return nil
}
