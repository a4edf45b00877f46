package api

import (
	"errors"
	"sync"
	"time"

	"feedwall/internal/feed"
)

// ErrSessionNotFound is returned for unknown or ended session ids.
var ErrSessionNotFound = errors.New("session not found")

// Entry is a live session with the viewer it belongs to.
type Entry struct {
	Session *feed.Session
	Viewer  string
	Created time.Time
}

// Repository defines the concurrency-safe contract for tracking live sessions.
type Repository interface {
	// Add stores e under its session id, replacing any previous entry.
	Add(e *Entry)

	// Get returns the entry for id.
	Get(id string) (*Entry, bool)

	// Remove deletes and returns the entry for id.
	Remove(id string) (*Entry, bool)

	// IdleSince returns the entries whose session was last used before t.
	IdleSince(t time.Time) []*Entry

	// List returns every live entry.
	List() []*Entry

	// Count returns the number of live sessions. Used for metrics.
	Count() int
}

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Entry
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*Entry)}
}

// Add implements Repository.Add.
func (r *InMemoryRepository) Add(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[e.Session.ID()] = e
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Remove implements Repository.Remove.
func (r *InMemoryRepository) Remove(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return e, ok
}

// IdleSince implements Repository.IdleSince.
func (r *InMemoryRepository) IdleSince(t time.Time) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Entry
	for _, e := range r.sessions {
		if e.Session.LastUsed().Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// List implements Repository.List.
func (r *InMemoryRepository) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e)
	}
	return out
}

// Count implements Repository.Count.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
