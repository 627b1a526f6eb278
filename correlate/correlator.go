package correlate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventKind names a correlator broadcast event, per spec §4.4.
type EventKind int

const (
	EventErrorOccurred EventKind = iota
	EventRecoveryStarted
	EventRecoveryCompleted
	EventCircuitBreakerStateChanged
	EventCorrelationCreated
	EventCorrelationResolved
)

// Event is delivered to operator subscribers over the broadcast channel.
type Event struct {
	Kind        EventKind
	Correlation string
	Component   string
	Err         *Error
	Breaker     BreakerState
	At          time.Time
}

// CorrelationStatus tracks the lifecycle of one correlation id's incident.
type CorrelationStatus int

const (
	StatusNew CorrelationStatus = iota
	StatusRecovering
	StatusResolved
	StatusFailed
	StatusClosed
)

// Correlation groups a root-cause error with everything it caused.
type Correlation struct {
	ID         string
	Root       *Error
	Chain      []*Error
	Components map[string]bool
	Impact     UserImpact
	Attempts   int
	Status     CorrelationStatus
	CreatedAt  time.Time
}

// RecoveryStrategy is one closed, auditable way to recover from a failure.
// Strategies are tried in priority order by the Correlator until one
// reports Success (Design Note: "closed variant of strategies ... not
// open inheritance").
type RecoveryStrategy struct {
	Name     string
	Priority int
	Timeout  time.Duration
	Attempt  func(ctx context.Context, corr *Correlation) RecoveryOutcome
}

// RecoveryOutcome is the result of one recovery attempt.
type RecoveryOutcome int

const (
	RecoverySuccess RecoveryOutcome = iota
	RecoveryRetryableFailure
	RecoveryPermanentFailure
)

// CorrelatorConfig configures sampling and default recovery timeouts.
type CorrelatorConfig struct {
	// SampleRate in [0,1]; >=1.0 keeps every error (spec §4.4).
	SampleRate float64
	// DefaultStrategyTimeout bounds a single strategy attempt if the
	// strategy itself specifies none.
	DefaultStrategyTimeout time.Duration
}

// DefaultCorrelatorConfig returns sensible defaults: keep everything, 30s
// per strategy attempt (spec §4.4 "default 30 s each").
func DefaultCorrelatorConfig() CorrelatorConfig {
	return CorrelatorConfig{SampleRate: 1.0, DefaultStrategyTimeout: 30 * time.Second}
}

// Correlator is the process-wide (but explicitly constructed, not a
// singleton — Design Note "Global mutable state") error correlation and
// circuit-breaker facade. Components receive a *Correlator at startup
// rather than reaching for a global.
type Correlator struct {
	cfg CorrelatorConfig

	mu           sync.Mutex
	correlations map[string]*Correlation
	breakers     map[string]*Breaker
	strategies   []RecoveryStrategy // sorted by Priority ascending

	subsMu sync.RWMutex
	subs   []chan Event

	sampleCounter uint64
}

// NewCorrelator creates a Correlator. Pass nil for cfg to use defaults.
func NewCorrelator(cfg *CorrelatorConfig) *Correlator {
	c := DefaultCorrelatorConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Correlator{
		cfg:          c,
		correlations: make(map[string]*Correlation),
		breakers:     make(map[string]*Breaker),
	}
}

// RegisterStrategy adds a recovery strategy, keeping the strategy list
// sorted by Priority (lowest number tried first).
func (c *Correlator) RegisterStrategy(s RecoveryStrategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inserted := false
	for i, existing := range c.strategies {
		if s.Priority < existing.Priority {
			c.strategies = append(c.strategies[:i], append([]RecoveryStrategy{s}, c.strategies[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		c.strategies = append(c.strategies, s)
	}
}

// Breaker returns (creating if needed) the circuit breaker for a component.
func (c *Correlator) Breaker(cfg BreakerConfig) (*Breaker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[cfg.Component]; ok {
		return b, nil
	}
	b, err := NewBreaker(cfg)
	if err != nil {
		return nil, err
	}
	c.breakers[cfg.Component] = b
	return b, nil
}

// Subscribe returns a channel of operator events. The channel is buffered;
// slow subscribers drop events rather than blocking error reporting.
func (c *Correlator) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	c.subsMu.Lock()
	c.subs = append(c.subs, ch)
	c.subsMu.Unlock()
	return ch
}

func (c *Correlator) broadcast(ev Event) {
	ev.At = time.Now()
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// shouldSample applies CorrelatorConfig.SampleRate deterministically
// without crypto/rand: every 1/rate-th error is kept. Rate>=1 always keeps.
func (c *Correlator) shouldSample() bool {
	if c.cfg.SampleRate >= 1.0 {
		return true
	}
	if c.cfg.SampleRate <= 0 {
		return false
	}
	c.mu.Lock()
	c.sampleCounter++
	n := c.sampleCounter
	c.mu.Unlock()
	// Keep roughly SampleRate fraction: keep when n*rate crosses an integer.
	threshold := uint64(1.0 / c.cfg.SampleRate)
	if threshold == 0 {
		threshold = 1
	}
	return n%threshold == 0
}

// Register records an error, attaches/creates a correlation id, updates
// the component's circuit breaker, logs a structured line, and — for
// Severity >= High — triggers recovery. It returns the (possibly
// correlation-stamped) error back to the caller.
func (c *Correlator) Register(ctx context.Context, err *Error) *Error {
	if err.Correlation == "" {
		err = err.WithCorrelation(uuid.NewString())
	}
	if !c.shouldSample() {
		return err
	}

	c.mu.Lock()
	corr, exists := c.correlations[err.Correlation]
	if !exists {
		corr = &Correlation{
			ID:         err.Correlation,
			Root:       err,
			Components: map[string]bool{err.Component: true},
			Status:     StatusNew,
			CreatedAt:  time.Now(),
		}
		c.correlations[err.Correlation] = corr
	}
	corr.Chain = append(corr.Chain, err)
	corr.Components[err.Component] = true
	if err.Impact() > corr.Impact {
		corr.Impact = err.Impact()
	}
	c.mu.Unlock()

	if b, berr := c.Breaker(BreakerConfig{
		Component:        err.Component,
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}); berr == nil {
		b.RecordFailure()
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Correlator.Register",
		"correlation": err.Correlation,
		"component":   err.Component,
		"kind":        err.Kind.String(),
		"severity":    err.Severity.String(),
		"code":        err.Code,
		"retry_count": err.RetryCount,
	}).Error(err.Message)

	if !exists {
		c.broadcast(Event{Kind: EventCorrelationCreated, Correlation: err.Correlation, Component: err.Component, Err: err})
	}
	c.broadcast(Event{Kind: EventErrorOccurred, Correlation: err.Correlation, Component: err.Component, Err: err})

	if err.Severity >= SeverityHigh {
		go c.recover(ctx, corr)
	}

	return err
}

// recover walks the registered strategies in priority order until one
// reports Success, timeboxing each attempt.
func (c *Correlator) recover(ctx context.Context, corr *Correlation) {
	c.mu.Lock()
	corr.Status = StatusRecovering
	strategies := append([]RecoveryStrategy(nil), c.strategies...)
	c.mu.Unlock()

	c.broadcast(Event{Kind: EventRecoveryStarted, Correlation: corr.ID})

	for _, strat := range strategies {
		timeout := strat.Timeout
		if timeout <= 0 {
			timeout = c.cfg.DefaultStrategyTimeout
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		corr.Attempts++
		outcome := strat.Attempt(attemptCtx, corr)
		cancel()

		switch outcome {
		case RecoverySuccess:
			c.mu.Lock()
			corr.Status = StatusResolved
			c.mu.Unlock()
			c.broadcast(Event{Kind: EventRecoveryCompleted, Correlation: corr.ID})
			c.broadcast(Event{Kind: EventCorrelationResolved, Correlation: corr.ID})
			return
		case RecoveryPermanentFailure:
			c.mu.Lock()
			corr.Status = StatusFailed
			c.mu.Unlock()
			c.broadcast(Event{Kind: EventRecoveryCompleted, Correlation: corr.ID})
			return
		case RecoveryRetryableFailure:
			continue
		}
	}

	c.mu.Lock()
	corr.Status = StatusFailed
	c.mu.Unlock()
	c.broadcast(Event{Kind: EventRecoveryCompleted, Correlation: corr.ID})
}

// Correlation returns the tracked incident for an id, if any.
func (c *Correlator) Correlation(id string) (*Correlation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	corr, ok := c.correlations[id]
	return corr, ok
}

// Close marks all open correlations Closed and drops subscriber channels.
func (c *Correlator) Close() {
	c.mu.Lock()
	for _, corr := range c.correlations {
		if corr.Status == StatusResolved || corr.Status == StatusNew {
			corr.Status = StatusClosed
		}
	}
	c.mu.Unlock()

	c.subsMu.Lock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.subsMu.Unlock()
}
