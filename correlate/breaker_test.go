package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerCycle(t *testing.T) {
	// Grounds spec §8 scenario 6: 5 failures open, recovery timeout half-opens,
	// 3 successes close, 1 failure in half-open reopens.
	b, err := NewBreaker(BreakerConfig{
		Component:        "video_encoder",
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, BreakerClosed, b.State())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.Equal(t, BreakerClosed, b.State())
	}
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())

	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.True(t, b.Allow())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, BreakerHalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())

	// One more failure cycle to confirm half-open reopens on a single failure.
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.Equal(t, BreakerOpen, b.State())
	time.Sleep(25 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerConfigValidation(t *testing.T) {
	_, err := NewBreaker(BreakerConfig{Component: "x"})
	assert.Error(t, err)
}
