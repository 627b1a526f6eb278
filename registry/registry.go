// Package registry implements the session registry of spec §4.2: a
// sharded concurrent map keyed by session UUID with atomic counters.
// Readers are not lock-free: Get takes its shard's RWMutex read lock,
// which waits while a writer holds that shard. Components never hold a Session by back-reference; they hold
// an id and re-resolve through the Registry (Design Note: "arena + id
// approach ... no back-pointers carry ownership").
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/opd-ai/dpstream/correlate"
)

const shardCount = 32

// Session is the minimal interface the registry needs from whatever type
// components register; session.Session satisfies it.
type Session interface {
	ID() uuid.UUID
}

type shard struct {
	mu sync.RWMutex
	m  map[uuid.UUID]Session
}

// Registry is a sharded concurrent map. Reads and writes on keys in
// different shards never block each other, because each key hashes to
// one of shardCount independent shards, each with its own RWMutex; keys
// that hash to the same shard share its lock.
type Registry struct {
	shards [shardCount]*shard

	count    atomic.Int64
	peak     atomic.Int64
	maxCount int
}

// NewRegistry creates an empty Registry. maxCount <= 0 means unbounded.
func NewRegistry(maxCount int) *Registry {
	r := &Registry{maxCount: maxCount}
	for i := range r.shards {
		r.shards[i] = &shard{m: make(map[uuid.UUID]Session)}
	}
	return r
}

func (r *Registry) shardFor(id uuid.UUID) *shard {
	var h uint32
	for _, b := range id {
		h = h*31 + uint32(b)
	}
	return r.shards[h%shardCount]
}

// Insert adds a session under id. Fails with a Configuration-kind error
// if id is already present (spec §4.2 "fails with AlreadyExists"), and
// with a ResourceExhaustion-kind error (code CodeResourceBuffers) if the
// registry is already at max_clients (spec §3 invariant, §8 boundary
// "Session count at max_clients rejects new TCP connections immediately
// after accept").
func (r *Registry) Insert(id uuid.UUID, s Session) error {
	if r.maxCount > 0 && int(r.count.Load()) >= r.maxCount {
		return correlate.New(correlate.KindResourceExhaustion, "registry", "max_clients reached").
			WithCode(correlate.CodeResourceBuffers)
	}

	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.m[id]; exists {
		return correlate.New(correlate.KindConfiguration, "registry", "session already exists")
	}
	sh.m[id] = s

	n := r.count.Add(1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

// Remove deletes and returns the session for id, or (nil, false) if absent.
func (r *Registry) Remove(id uuid.UUID) (Session, bool) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.m[id]
	if !ok {
		return nil, false
	}
	delete(sh.m, id)
	r.count.Add(-1)
	return s, true
}

// Get returns the session for id. It takes only the read lock of id's
// shard, so it does not block on keys in other shards.
func (r *Registry) Get(id uuid.UUID) (Session, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.m[id]
	return s, ok
}

// Len is eventually consistent with per-key Insert/Remove (spec §4.2).
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Peak returns the highest Len() ever observed.
func (r *Registry) Peak() int {
	return int(r.peak.Load())
}

// Iterate yields a consistent-enough snapshot of sessions: readers of the
// snapshot may not observe inserts/removes that raced the call (spec
// §4.2 "yields a consistent-enough snapshot").
func (r *Registry) Iterate(fn func(Session) bool) {
	for _, sh := range r.shards {
		sh.mu.RLock()
		snapshot := make([]Session, 0, len(sh.m))
		for _, s := range sh.m {
			snapshot = append(snapshot, s)
		}
		sh.mu.RUnlock()

		for _, s := range snapshot {
			if !fn(s) {
				return
			}
		}
	}
}
