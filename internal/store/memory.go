// internal/store/memory.go
//
// In-memory registry of live game sessions.
// Sessions are ephemeral: they live only as long as the process and are never
// written to disk. Finished results are recorded separately (internal/db).
//
// Characteristics:
//   - Stores *Entry values keyed by session ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Evict drops entries older than a cutoff so abandoned games do not pile up.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/concentration/internal/game"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("store: game not found")

// Entry is a live session plus the metadata the HTTP layer needs.
type Entry struct {
	Session   *game.Session
	OwnerID   string // user ID when IsUser, otherwise the anonymous cookie ID
	IsUser    bool
	DailyDate string // "YYYY-MM-DD" for daily challenge games, empty otherwise
	CreatedAt time.Time
}

// Store defines the registry interface for live sessions.
type Store interface {
	// Save adds or replaces an entry keyed by its session ID.
	Save(ctx context.Context, e *Entry) error

	// Get retrieves an entry by session ID or returns ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Delete removes an entry. Missing IDs are not an error.
	Delete(ctx context.Context, id string) error

	// Evict removes entries created before cutoff and returns how many were dropped.
	Evict(ctx context.Context, cutoff time.Time) int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex      // guards entries map
	entries map[string]*Entry // keyed by Session.ID()
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{entries: make(map[string]*Entry)}
}

func (m *memory) Save(ctx context.Context, e *Entry) error {
	if e == nil || e.Session == nil {
		return errors.New("store: nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Session.ID()] = e
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Evict ends dropped sessions after releasing the lock, so session
// notifiers may use the store.
func (m *memory) Evict(ctx context.Context, cutoff time.Time) int {
	var expired []*Entry
	m.mu.Lock()
	for id, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			expired = append(expired, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		e.Session.EndNow()
	}
	return len(expired)
}
