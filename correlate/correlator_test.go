package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesCorrelation(t *testing.T) {
	c := NewCorrelator(nil)
	events := c.Subscribe(16)

	e := New(KindStreaming, "encoder", "encode failed")
	got := c.Register(context.Background(), e)
	require.NotEmpty(t, got.Correlation)

	corr, ok := c.Correlation(got.Correlation)
	require.True(t, ok)
	assert.Equal(t, StatusNew, corr.Status)
	assert.Len(t, corr.Chain, 1)

	select {
	case ev := <-events:
		assert.Equal(t, EventCorrelationCreated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a CorrelationCreated event")
	}
}

func TestRegisterInheritsCorrelation(t *testing.T) {
	c := NewCorrelator(nil)
	first := c.Register(context.Background(), New(KindNetwork, "transport", "timeout"))
	second := New(KindNetwork, "transport", "retry timeout").WithCorrelation(first.Correlation)
	c.Register(context.Background(), second)

	corr, ok := c.Correlation(first.Correlation)
	require.True(t, ok)
	assert.Len(t, corr.Chain, 2)
}

func TestRecoveryStrategyDispatch(t *testing.T) {
	c := NewCorrelator(nil)
	var tried []string
	c.RegisterStrategy(RecoveryStrategy{
		Name:     "retry",
		Priority: 1,
		Attempt: func(ctx context.Context, corr *Correlation) RecoveryOutcome {
			tried = append(tried, "retry")
			return RecoveryRetryableFailure
		},
	})
	c.RegisterStrategy(RecoveryStrategy{
		Name:     "fallback",
		Priority: 2,
		Attempt: func(ctx context.Context, corr *Correlation) RecoveryOutcome {
			tried = append(tried, "fallback")
			return RecoverySuccess
		},
	})

	e := New(KindHardwareFailure, "decoder", "hw decode lost").WithSeverity(SeverityHigh)
	got := c.Register(context.Background(), e)

	require.Eventually(t, func() bool {
		corr, ok := c.Correlation(got.Correlation)
		return ok && corr.Status == StatusResolved
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"retry", "fallback"}, tried)
}

func TestImpactFor(t *testing.T) {
	assert.Equal(t, ImpactComplete, ImpactFor(KindHardwareFailure, SeverityCritical))
	assert.Equal(t, ImpactNone, ImpactFor(KindIO, SeverityLow))
	assert.Equal(t, ImpactModerate, ImpactFor(KindNetwork, SeverityHigh))
}
