package buffers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTiers() []Tier {
	return []Tier{
		{Name: "small", Capacity: 64, Count: 2, Align: 64},
		{Name: "large", Capacity: 1024, Count: 1, Align: 64},
	}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p, err := NewPool(Config{Tiers: testTiers()})
	require.NoError(t, err)

	before := p.Stats()

	h, err := p.Acquire(32)
	require.NoError(t, err)
	assert.Equal(t, "small", h.Tier())
	h.Release()

	after := p.Stats()
	assert.Equal(t, before.CurrentInUse, after.CurrentInUse)
	assert.Equal(t, before.AllocationErrors, after.AllocationErrors)
	assert.Equal(t, before.Allocations+1, after.Allocations)
	assert.Equal(t, before.PoolHits+1, after.PoolHits)
}

func TestAcquireFallsBackToLargerTier(t *testing.T) {
	p, err := NewPool(Config{Tiers: testTiers()})
	require.NoError(t, err)

	h1, err := p.Acquire(64)
	require.NoError(t, err)
	h2, err := p.Acquire(64)
	require.NoError(t, err)

	h3, err := p.Acquire(64)
	require.NoError(t, err)
	assert.Equal(t, "large", h3.Tier())

	h1.Release()
	h2.Release()
	h3.Release()
}

func TestAcquireExhaustionWithoutAdaptive(t *testing.T) {
	p, err := NewPool(Config{Tiers: []Tier{{Name: "only", Capacity: 64, Count: 1, Align: 64}}})
	require.NoError(t, err)

	h, err := p.Acquire(64)
	require.NoError(t, err)
	defer h.Release()

	_, err = p.Acquire(64)
	assert.Error(t, err)
}

func TestAcquireAdaptiveAllocation(t *testing.T) {
	p, err := NewPool(Config{
		Tiers:              []Tier{{Name: "only", Capacity: 64, Count: 1, Align: 64}},
		AdaptiveAllocation: true,
	})
	require.NoError(t, err)

	h1, err := p.Acquire(64)
	require.NoError(t, err)
	h2, err := p.Acquire(64)
	require.NoError(t, err)
	assert.Equal(t, -1, h2.tier)

	h1.Release()
	h2.Release()
}

func TestSizeTooLarge(t *testing.T) {
	p, err := NewPool(Config{Tiers: testTiers()})
	require.NoError(t, err)

	_, err = p.Acquire(1 << 20)
	assert.Error(t, err)
}

func TestSetLengthBounds(t *testing.T) {
	p, err := NewPool(Config{Tiers: testTiers()})
	require.NoError(t, err)
	h, err := p.Acquire(64)
	require.NoError(t, err)
	defer h.Release()

	assert.NoError(t, h.SetLength(10))
	assert.Len(t, h.Bytes(), 10)
	assert.Error(t, h.SetLength(-1))
	assert.Error(t, h.SetLength(cap(h.buf)+1))
}

func TestRetainDefersRelease(t *testing.T) {
	p, err := NewPool(Config{Tiers: testTiers()})
	require.NoError(t, err)
	h, err := p.Acquire(32)
	require.NoError(t, err)

	h.Retain()
	h.Release() // still one ref outstanding
	assert.Equal(t, int64(1), p.Stats().CurrentInUse)
	h.Release() // now returned to pool
	assert.Equal(t, int64(0), p.Stats().CurrentInUse)
}
