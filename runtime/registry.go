package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

// session is the per-connection record: the outbound sink attached by the
// transport on connect, and the profile registered on join. A session with
// a nil profile is an anonymous connection.
type session struct {
	sink    contract.EventSink
	profile *domain.Profile
}

// Registry owns all live connection state. A single RWMutex guards it;
// per-event work is small enough that finer locking buys nothing.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// Attach records the outbound sink for a freshly accepted connection.
func (r *Registry) Attach(connID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		s = &session{}
		r.sessions[connID] = s
	}
	s.sink = sink
}

// Register creates the profile for a connection, description empty.
// An existing profile for the same id is overwritten.
func (r *Registry) Register(connID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		s = &session{}
		r.sessions[connID] = s
	}
	s.profile = &domain.Profile{Username: username}
}

// Update replaces the profile. Returns false without touching anything
// when the connection never registered; callers drop silently on that.
func (r *Registry) Update(connID, username, description string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok || s.profile == nil {
		return false
	}
	s.profile = &domain.Profile{Username: username, Description: description}
	return true
}

// Remove deletes the whole session and returns the former profile,
// if the connection had one.
func (r *Registry) Remove(connID string) (domain.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		return domain.Profile{}, false
	}
	delete(r.sessions, connID)
	if s.profile == nil {
		return domain.Profile{}, false
	}
	return *s.profile, true
}

func (r *Registry) Get(connID string) (domain.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	if !ok || s.profile == nil {
		return domain.Profile{}, false
	}
	return *s.profile, true
}

// List snapshots every identified connection. Order follows map iteration
// and is not a contract clients may rely on.
func (r *Registry) List() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domain.Identity, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.profile == nil {
			continue
		}
		ids = append(ids, domain.Identity{ID: id, Profile: *s.profile})
	}
	return ids
}

// SinksFor resolves live sinks for the given connection ids.
// Unknown ids are skipped, which makes delivery to a departed
// participant a natural no-op.
func (r *Registry) SinksFor(connIDs ...string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sinks []contract.EventSink
	for _, id := range connIDs {
		if s, ok := r.sessions[id]; ok && s.sink != nil {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// AllSinks returns the sink of every live connection, anonymous included.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sinks []contract.EventSink
	for _, s := range r.sessions {
		if s.sink != nil {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}
