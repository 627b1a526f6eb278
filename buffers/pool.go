package buffers

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// Handle is a reference-counted frame buffer checked out from a Pool.
// A Handle outlives any pointer derived from Bytes(); callers must not
// retain the slice past Release (spec §4.1 contract).
type Handle struct {
	pool     *Pool
	tier     int
	id       uint64
	buf      []byte // aligned backing storage, full tier capacity
	length   int    // current valid length, <= cap(buf)
	refcount int32
}

// Bytes returns the valid portion of the buffer. The returned slice must
// not be used after Release drops the last reference.
func (h *Handle) Bytes() []byte {
	return h.buf[:h.length]
}

// SetLength adjusts the valid length, which must not exceed the buffer's
// capacity (spec §3 invariant "length <= capacity").
func (h *Handle) SetLength(n int) error {
	if n < 0 || n > cap(h.buf) {
		return correlate.New(correlate.KindResourceExhaustion, "buffers", "length exceeds capacity").
			WithCode(correlate.CodeResourceBuffers)
	}
	h.length = n
	return nil
}

// Tier returns the originating tier's name.
func (h *Handle) Tier() string {
	return h.pool.tiers[h.tier].Name
}

// ID returns the buffer's stable identifier within its tier.
func (h *Handle) ID() uint64 {
	return h.id
}

// Retain increments the reference count; each Retain must be matched by a
// Release (spec §3: "refcount >= 1 while in circulation").
func (h *Handle) Retain() {
	atomic.AddInt32(&h.refcount, 1)
}

// Release drops one reference. When the count reaches zero the buffer is
// returned to its tier's free list (spec §3: "a buffer is returned to its
// tier only when refcount reaches 0").
func (h *Handle) Release() {
	if atomic.AddInt32(&h.refcount, -1) > 0 {
		return
	}
	h.pool.release(h)
}

// Stats reports pool-wide allocation counters (spec §4.1).
type Stats struct {
	Allocations      uint64
	PoolHits         uint64
	PoolMisses       uint64
	PeakInUse        uint64
	CurrentInUse     int64
	AllocationErrors uint64
}

// TierStats reports the hit rate for a single tier.
type TierStats struct {
	Name      string
	Hits      uint64
	Misses    uint64
	InUse     int64
	FreeCount int
}

type tierState struct {
	spec Tier
	mu   sync.Mutex
	free []*Handle
	next uint64

	hits   uint64
	misses uint64
	inUse  int64
}

// Pool is a tiered buffer pool. Each Acquire takes the chosen tier's
// mutex to pop from its free list; the pool-wide counters are atomic.
type Pool struct {
	tiers []Tier
	state []*tierState

	adaptiveAllocation bool

	allocations atomic.Uint64
	hits        atomic.Uint64
	misses      atomic.Uint64
	peak        atomic.Uint64
	inUse       atomic.Int64
	allocErrors atomic.Uint64
	dynamicAllocs atomic.Uint64
}

// Config configures pool construction.
type Config struct {
	Tiers []Tier
	// AdaptiveAllocation, when true, allocates outside the pool (tracked
	// separately) on tier exhaustion instead of failing (spec §4.1).
	AdaptiveAllocation bool
}

// NewPool pre-allocates every tier's buffers and returns a ready Pool.
func NewPool(cfg Config) (*Pool, error) {
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}

	p := &Pool{tiers: tiers, adaptiveAllocation: cfg.AdaptiveAllocation}
	p.state = make([]*tierState, len(tiers))

	for i, t := range tiers {
		if t.Capacity <= 0 || t.Count <= 0 {
			return nil, correlate.New(correlate.KindConfiguration, "buffers", fmt.Sprintf("invalid tier %q", t.Name))
		}
		ts := &tierState{spec: t}
		ts.free = make([]*Handle, 0, t.Count)
		for j := 0; j < t.Count; j++ {
			h := &Handle{
				pool:     p,
				tier:     i,
				id:       ts.next,
				buf:      alignedAlloc(t.Capacity, t.Align),
				refcount: 0,
			}
			ts.next++
			ts.free = append(ts.free, h)
		}
		p.state[i] = ts
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewPool",
		"tiers":    len(tiers),
	}).Info("buffer pool initialized")

	return p, nil
}

// alignedAlloc returns a byte slice of exactly size, whose first element
// is aligned to align bytes. Over-allocates and slices to the aligned
// offset, matching the pattern used by allocators with no native
// aligned-alloc in the standard library.
func alignedAlloc(size, align int) []byte {
	if align <= 1 {
		return make([]byte, size)
	}
	raw := make([]byte, size+align)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := (align - int(addr%uintptr(align))) % align
	return raw[offset : offset+size : offset+size]
}

// bestFitTier returns the index of the smallest tier whose capacity is
// >= minSize, or -1 if none fits.
func (p *Pool) bestFitTier(minSize int) int {
	best := -1
	for i, t := range p.tiers {
		if t.Capacity >= minSize {
			if best == -1 || p.tiers[i].Capacity < p.tiers[best].Capacity {
				best = i
			}
		}
	}
	return best
}

// Acquire returns a Handle for the smallest tier whose capacity covers
// minSize, per spec §4.1. On exhaustion it falls back to the next larger
// tier; if that also fails and AdaptiveAllocation is set, it allocates
// outside the pool (tracked but not returned to any tier on Release).
func (p *Pool) Acquire(minSize int) (*Handle, error) {
	start := p.bestFitTier(minSize)
	if start == -1 {
		p.allocErrors.Add(1)
		return nil, correlate.New(correlate.KindResourceExhaustion, "buffers", "size too large for any tier").
			WithCode(correlate.CodeResourceBuffers)
	}

	p.allocations.Add(1)

	for i := start; i < len(p.tiers); i++ {
		ts := p.state[i]
		ts.mu.Lock()
		n := len(ts.free)
		if n == 0 {
			ts.mu.Unlock()
			atomic.AddUint64(&ts.misses, 1)
			p.misses.Add(1)
			continue
		}
		h := ts.free[n-1]
		ts.free = ts.free[:n-1]
		ts.mu.Unlock()

		atomic.AddUint64(&ts.hits, 1)
		atomic.AddInt64(&ts.inUse, 1)
		p.hits.Add(1)
		atomic.StoreInt32(&h.refcount, 1)
		h.length = 0
		inUse := p.inUse.Add(1)
		for {
			peak := p.peak.Load()
			if uint64(inUse) <= peak || p.peak.CompareAndSwap(peak, uint64(inUse)) {
				break
			}
		}
		return h, nil
	}

	if !p.adaptiveAllocation {
		p.allocErrors.Add(1)
		return nil, correlate.New(correlate.KindResourceExhaustion, "buffers", "tier exhausted").
			WithCode(correlate.CodeResourceBuffers).WithSeverity(correlate.SeverityHigh)
	}

	p.dynamicAllocs.Add(1)
	h := &Handle{
		pool:     p,
		tier:     -1,
		buf:      alignedAlloc(p.tiers[start].Capacity, p.tiers[start].Align),
		refcount: 1,
	}
	logrus.WithFields(logrus.Fields{
		"function": "Pool.Acquire",
		"min_size": minSize,
	}).Warn("tier exhausted, allocated outside pool")
	return h, nil
}

// release returns a handle to its originating tier's free list, or drops
// it (garbage-collected) if it was a dynamic, outside-pool allocation.
func (p *Pool) release(h *Handle) {
	if h.tier < 0 {
		return
	}
	ts := p.state[h.tier]
	ts.mu.Lock()
	ts.free = append(ts.free, h)
	ts.mu.Unlock()
	atomic.AddInt64(&ts.inUse, -1)
	p.inUse.Add(-1)
}

// Stats returns a snapshot of pool-wide counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Allocations:      p.allocations.Load(),
		PoolHits:         p.hits.Load(),
		PoolMisses:       p.misses.Load(),
		PeakInUse:        p.peak.Load(),
		CurrentInUse:     p.inUse.Load(),
		AllocationErrors: p.allocErrors.Load(),
	}
}

// TierStats returns per-tier hit/miss/in-use counters.
func (p *Pool) TierStats() []TierStats {
	out := make([]TierStats, len(p.state))
	for i, ts := range p.state {
		ts.mu.Lock()
		free := len(ts.free)
		ts.mu.Unlock()
		out[i] = TierStats{
			Name:      ts.spec.Name,
			Hits:      atomic.LoadUint64(&ts.hits),
			Misses:    atomic.LoadUint64(&ts.misses),
			InUse:     atomic.LoadInt64(&ts.inUse),
			FreeCount: free,
		}
	}
	return out
}
