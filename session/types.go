// Package session implements the control-plane state machine of spec
// §4.10: an RTSP-style handshake and capability exchange, a Noise-IK key
// exchange, and a length-prefixed TCP command channel that carries
// keepalives, input events, and pause/resume requests once streaming has
// started.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is one node in the session lifecycle (spec §4.10 state diagram).
type State uint32

const (
	StateConnecting State = iota
	StateHandshaking
	StateStreaming
	StatePaused
	StateDisconnecting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateStreaming:
		return "Streaming"
	case StatePaused:
		return "Paused"
	case StateDisconnecting:
		return "Disconnecting"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Capabilities is exchanged during handshake (spec §4.10 "capability
// negotiation": codec list, max resolution, max fps, supported audio
// formats).
type Capabilities struct {
	Agent           string
	ProtocolVersion uint32
	VideoCodecs     []string
	AudioCodecs     []string
	MaxWidth        uint16
	MaxHeight       uint16
	MaxFPS          uint8
}

// TimeProvider abstracts time.Now for deterministic tests (the same seam
// av/types.go uses for Call).
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the standard library clock.
type DefaultTimeProvider struct{}

// Now returns time.Now().
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Session tracks one host<->client streaming connection end to end.
type Session struct {
	mu sync.RWMutex

	id    uuid.UUID
	state State

	localCaps  Capabilities
	remoteCaps Capabilities

	createdAt    time.Time
	lastActivity time.Time

	timeProvider TimeProvider
}

// New creates a Session in StateConnecting with a fresh id.
func New(local Capabilities, tp TimeProvider) *Session {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	now := tp.Now()
	return &Session{
		id:           uuid.New(),
		state:        StateConnecting,
		localCaps:    local,
		createdAt:    now,
		lastActivity: now,
		timeProvider: tp,
	}
}

// ID satisfies registry.Session.
func (s *Session) ID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// transitions enumerates the legal edges of the spec §4.10 state diagram.
var transitions = map[State][]State{
	StateConnecting:    {StateHandshaking, StateTerminated},
	StateHandshaking:   {StateStreaming, StateTerminated},
	StateStreaming:     {StatePaused, StateDisconnecting, StateTerminated},
	StatePaused:        {StateStreaming, StateDisconnecting, StateTerminated},
	StateDisconnecting: {StateTerminated},
	StateTerminated:    {},
}

// SetState transitions to next if the edge is legal, else returns false
// and leaves state unchanged.
func (s *Session) SetState(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			s.lastActivity = s.timeProvider.Now()
			return true
		}
	}
	return false
}

// RemoteCapabilities returns the capability set the peer advertised.
func (s *Session) RemoteCapabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteCaps
}

// SetRemoteCapabilities stores the negotiated peer capability set.
func (s *Session) SetRemoteCapabilities(caps Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteCaps = caps
}

// LocalCapabilities returns this side's advertised capabilities.
func (s *Session) LocalCapabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localCaps
}

// Touch records activity, resetting the keepalive timeout window.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.timeProvider.Now()
}

// IdleSince returns how long it has been since the last recorded activity.
func (s *Session) IdleSince() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeProvider.Now().Sub(s.lastActivity)
}
