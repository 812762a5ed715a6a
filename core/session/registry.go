package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is one active session. mu orders every mutation of the session: frames, end and sweep.
// userID and kind never change; closed is set under mu.
type entry struct {
	mu     sync.Mutex
	sess   Session
	userID string
	kind   Kind
	closed atomic.Bool
}

func (e *entry) markClosed(s Session) {
	e.sess = s
	e.closed.Store(true)
}

// Registry is the in-memory table of active sessions.
type Registry struct {
	mutex   sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Load adds every active session in sessions, keeping entries already present.
func (r *Registry) Load(sessions []Session) {
	for _, s := range sessions {
		if s.Active() {
			r.loadOrStore(s)
		}
	}
}

func (r *Registry) loadOrStore(s Session) *entry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if e, ok := r.entries[s.ID]; ok {
		return e
	}
	e := &entry{sess: s, userID: s.UserID, kind: s.Kind}
	r.entries[s.ID] = e
	return e
}

func (r *Registry) get(id string) (*entry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *Registry) remove(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.entries, id)
}

// dropFor marks closed and removes the user's entries of kind k.
func (r *Registry) dropFor(userID string, k Kind) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, e := range r.entries {
		if e.userID == userID && e.kind == k {
			e.closed.Store(true)
			delete(r.entries, id)
		}
	}
}

// idleSince returns the ids of sessions whose last activity is before cutoff.
// Sessions busy with a frame are skipped.
func (r *Registry) idleSince(cutoff time.Time) []string {
	r.mutex.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mutex.RUnlock()

	ids := make([]string, 0)
	for _, e := range entries {
		if !e.mu.TryLock() {
			continue
		}
		if !e.closed.Load() && e.sess.LastActivity.Before(cutoff) {
			ids = append(ids, e.sess.ID)
		}
		e.mu.Unlock()
	}
	return ids
}

// Len returns the number of active sessions held.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries)
}
