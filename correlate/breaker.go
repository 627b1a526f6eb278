package correlate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// BreakerState is one of the three states of a per-component circuit
// breaker, transitioning only via the rules in BreakerConfig (spec §4.4,
// §8 "state changes only via the transitions in §4.4").
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a single component's circuit breaker.
type BreakerConfig struct {
	Component        string
	FailureThreshold int           // consecutive failures to open, Closed->Open
	SuccessThreshold int           // consecutive successes to close, HalfOpen->Closed
	RecoveryTimeout  time.Duration // Open->HalfOpen after this elapses
}

// Validate rejects a config that can never make progress.
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return New(KindConfiguration, c.Component, "failure threshold must be positive")
	}
	if c.SuccessThreshold <= 0 {
		return New(KindConfiguration, c.Component, "success threshold must be positive")
	}
	if c.RecoveryTimeout <= 0 {
		return New(KindConfiguration, c.Component, "recovery timeout must be positive")
	}
	return nil
}

// Breaker is a circuit breaker guarding calls to a single component. It is
// safe for concurrent use: state reads take the read lock, transitions
// take the write lock, and counters are atomic so RecordSuccess/
// RecordFailure never block a concurrent Allow().
type Breaker struct {
	cfg cfgSnapshot

	mu    sync.RWMutex
	state BreakerState

	consecFail atomic.Int64
	consecOK   atomic.Int64

	lastFailure atomic.Int64 // unix nano
	openedAt    atomic.Int64 // unix nano
}

type cfgSnapshot struct {
	component        string
	failureThreshold int64
	successThreshold int64
	recoveryTimeout  time.Duration
}

// NewBreaker creates a Breaker in the Closed state.
func NewBreaker(cfg BreakerConfig) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Breaker{
		cfg: cfgSnapshot{
			component:        cfg.Component,
			failureThreshold: int64(cfg.FailureThreshold),
			successThreshold: int64(cfg.SuccessThreshold),
			recoveryTimeout:  cfg.RecoveryTimeout,
		},
		state: BreakerClosed,
	}
	return b, nil
}

// State returns the current state, first applying the Open->HalfOpen
// timeout transition if due.
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	state := b.state
	b.mu.RUnlock()

	if state != BreakerOpen {
		return state
	}

	openedAt := time.Unix(0, b.openedAt.Load())
	if time.Since(openedAt) < b.cfg.recoveryTimeout {
		return BreakerOpen
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(openedAt) >= b.cfg.recoveryTimeout {
		b.state = BreakerHalfOpen
		b.consecOK.Store(0)
		logrus.WithFields(logrus.Fields{
			"function":  "Breaker.State",
			"component": b.cfg.component,
		}).Info("circuit breaker transitioned Open -> HalfOpen")
	}
	return b.state
}

// Allow reports whether a call to the guarded component should proceed.
func (b *Breaker) Allow() bool {
	return b.State() != BreakerOpen
}

// RecordSuccess registers a successful call. In HalfOpen, SuccessThreshold
// consecutive successes close the breaker.
func (b *Breaker) RecordSuccess() {
	b.consecFail.Store(0)
	state := b.State()
	if state != BreakerHalfOpen {
		return
	}
	ok := b.consecOK.Add(1)
	if ok >= b.cfg.successThreshold {
		b.mu.Lock()
		b.state = BreakerClosed
		b.mu.Unlock()
		b.consecOK.Store(0)
		logrus.WithFields(logrus.Fields{
			"function":  "Breaker.RecordSuccess",
			"component": b.cfg.component,
		}).Info("circuit breaker transitioned HalfOpen -> Closed")
	}
}

// RecordFailure registers a failed call. A single failure in HalfOpen
// reopens the breaker (spec §8 scenario 6); FailureThreshold consecutive
// failures in Closed opens it.
func (b *Breaker) RecordFailure() {
	b.lastFailure.Store(time.Now().UnixNano())

	state := b.State()
	if state == BreakerHalfOpen {
		b.open()
		return
	}

	fails := b.consecFail.Add(1)
	if state == BreakerClosed && fails >= b.cfg.failureThreshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.mu.Lock()
	wasOpen := b.state == BreakerOpen
	b.state = BreakerOpen
	b.mu.Unlock()
	b.openedAt.Store(time.Now().UnixNano())
	b.consecOK.Store(0)
	if !wasOpen {
		logrus.WithFields(logrus.Fields{
			"function":  "Breaker.open",
			"component": b.cfg.component,
		}).Warn("circuit breaker opened")
	}
}

// LastFailure returns when the breaker last recorded a failure, or the
// zero time if none has been recorded.
func (b *Breaker) LastFailure() time.Time {
	ns := b.lastFailure.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
