package layout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one user's editing session of one room.  Edits are
// serialized by the session lock; a save in flight does not hold it, so
// the user can keep editing while storage works.
type Session struct {
	ID     string
	RoomID uint64

	mu       sync.Mutex
	saveMu   sync.Mutex
	editor   *Editor
	lastUsed time.Time
	now      func() time.Time
}

// Do runs fn with exclusive access to the session's editor.
func (s *Session) Do(fn func(e *Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	return fn(s.editor)
}

// Save sends the current diff to storage.  Saves of the same session are
// serialized with each other but not with edits.
func (s *Session) Save(ctx context.Context) (SyncResult, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	var p PendingSave
	_ = s.Do(func(e *Editor) error {
		p = e.BeginSave()
		return nil
	})
	res, err := s.editor.Send(ctx, p)
	if err != nil {
		return SyncResult{}, err
	}
	_ = s.Do(func(e *Editor) error {
		e.FinishSave(p, res)
		return nil
	})
	return res, nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Sessions is the registry of open editing sessions.
type Sessions struct {
	gw     Gateway
	cellPx float64
	now    func() time.Time

	mu   sync.Mutex
	byID map[string]*Session
}

// NewSessions creates an empty registry whose editors use gw and snap
// drags to cellPx.
func NewSessions(gw Gateway, cellPx float64) *Sessions {
	return &Sessions{
		gw:     gw,
		cellPx: cellPx,
		now:    time.Now,
		byID:   make(map[string]*Session),
	}
}

// Open loads the room and registers a new session for it.
func (m *Sessions) Open(ctx context.Context, roomID uint64) (*Session, error) {
	store, err := Load(ctx, m.gw, roomID)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		editor:   NewEditor(store, m.gw, m.cellPx),
		lastUsed: m.now(),
		now:      m.now,
	}
	m.mu.Lock()
	m.byID[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Sessions) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	return s, ok
}

// Close drops a session and its unsaved work.
func (m *Sessions) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	return true
}

func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were closed.
func (m *Sessions) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.byID {
		if s.idleSince().Before(cutoff) {
			delete(m.byID, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (m *Sessions) RunSweeper(ctx context.Context, interval, maxIdle time.Duration, onSweep func(closed int)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(maxIdle); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
