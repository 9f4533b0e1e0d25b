package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Sender is the narrow write capability the registry holds per connection.
// The broker never sees the underlying transport.
type Sender interface {
	Send(payload []byte) error
}

type member struct {
	sender Sender
	groups map[string]struct{}
}

// Registry tracks live connections and their group memberships. All state is
// in-memory and process-local; groups exist while they have members and are
// pruned at zero.
type Registry struct {
	mu      sync.RWMutex
	members map[string]*member
	groups  map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		members: make(map[string]*member),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Register admits a connection with an empty membership set and returns its
// opaque id.
func (r *Registry) Register(s Sender) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.members[id] = &member{sender: s, groups: make(map[string]struct{})}
	r.mu.Unlock()

	return id
}

// Join adds the connection to a group. Idempotent; unknown connections are
// ignored.
func (r *Registry) Join(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return
	}
	m.groups[group] = struct{}{}

	set, ok := r.groups[group]
	if !ok {
		set = make(map[string]struct{})
		r.groups[group] = set
	}
	set[connID] = struct{}{}
}

// Leave removes the connection from a group. No-op if either side is absent.
func (r *Registry) Leave(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.members[connID]; ok {
		delete(m.groups, group)
	}
	r.dropFromGroup(connID, group)
}

// Unregister removes the connection and leaves every group it joined. Safe to
// call more than once; later calls are no-ops.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return
	}
	for group := range m.groups {
		r.dropFromGroup(connID, group)
	}
	delete(r.members, connID)
}

// MembersOf returns a snapshot of the connection ids in a group.
func (r *Registry) MembersOf(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.groups[group]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) senderOf(connID string) Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.members[connID]; ok {
		return m.sender
	}
	return nil
}

// caller must hold r.mu
func (r *Registry) dropFromGroup(connID, group string) {
	set, ok := r.groups[group]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.groups, group)
	}
}
