package relay

import (
	"iter"
	"sync"

	"github.com/samber/lo"
)

// Peer is one open connection as seen by the relay.
type Peer interface {
	// ID returns the process-unique identifier assigned on accept.
	ID() string
	// Send queues a frame for delivery. It must not block.
	Send(frame []byte) error
	// Close ends the session. It must be safe to call more than once.
	Close()
}

// Registry is the set of currently open peers.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

// Register adds p to the registry.
func (r *Registry) Register(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.ID()] = p
}

// Unregister removes p. It reports whether this call removed it, so repeated
// calls for the same peer are harmless.
func (r *Registry) Unregister(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.peers[p.ID()]
	if !ok || current != p {
		return false
	}
	delete(r.peers, p.ID())
	return true
}

// Contains reports whether p is currently registered.
func (r *Registry) Contains(p Peer) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, ok := r.peers[p.ID()]
	return ok && current == p
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// AllExcept yields every registered peer other than sender, in no particular
// order. Membership is captured when AllExcept is called; peers that
// unregister while the sequence is being consumed are skipped.
func (r *Registry) AllExcept(sender Peer) iter.Seq[Peer] {
	r.mu.RLock()
	snapshot := lo.Values(r.peers)
	r.mu.RUnlock()

	return func(yield func(Peer) bool) {
		for _, p := range snapshot {
			if sender != nil && p.ID() == sender.ID() {
				continue
			}
			if !r.Contains(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Drain removes every peer and returns them.
func (r *Registry) Drain() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := lo.Values(r.peers)
	r.peers = make(map[string]Peer)
	return peers
}
