package relay

import "sync"

// Registry is the set of connections whose relay loops are currently running.
// It is safe for concurrent use; the underlying set is never handed out, only
// copies of it.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[Conn]struct{}),
	}
}

// Add inserts conn and reports whether it was not already present.
// Adding the same connection twice leaves a single entry.
func (r *Registry) Add(conn Conn) bool {
	if conn == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn]; exists {
		return false
	}
	r.conns[conn] = struct{}{}
	return true
}

// Remove deletes conn and reports whether it was present. Removing an absent
// connection is a no-op.
func (r *Registry) Remove(conn Conn) bool {
	if conn == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn]; !exists {
		return false
	}
	delete(r.conns, conn)
	return true
}

// SnapshotExcluding returns a point-in-time copy of every registered
// connection other than conn. The copy may be iterated freely while other
// loops add or remove entries.
func (r *Registry) SnapshotExcluding(conn Conn) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		if c == conn {
			continue
		}
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// Snapshot returns a point-in-time copy of every registered connection.
func (r *Registry) Snapshot() []Conn {
	return r.SnapshotExcluding(nil)
}

// Contains reports whether conn is currently registered.
func (r *Registry) Contains(conn Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.conns[conn]
	return exists
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
