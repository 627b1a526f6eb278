package rtp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// SSRCProvider abstracts SSRC generation for deterministic testing,
// directly grounded on av/rtp/packet.go's SSRCProvider seam.
type SSRCProvider interface {
	GenerateSSRC() (uint32, error)
}

// DefaultSSRCProvider uses crypto/rand for a secure SSRC.
type DefaultSSRCProvider struct{}

// GenerateSSRC returns a cryptographically random SSRC.
func (DefaultSSRCProvider) GenerateSSRC() (uint32, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return 0, fmt.Errorf("generate ssrc: %w", err)
	}
	return binary.BigEndian.Uint32(b), nil
}

// Packetizer assigns a stable SSRC and a monotonically increasing
// sequence/timestamp to one media stream (spec §4.8: "Assigns SSRC per
// stream, monotonic 16-bit sequence per SSRC, 32-bit timestamp in stream
// clock").
type Packetizer struct {
	mu             sync.Mutex
	ssrc           uint32
	sequenceNumber uint16
	payloadType    uint8
}

// NewPacketizer creates a Packetizer with a fresh SSRC from provider (nil
// uses DefaultSSRCProvider).
func NewPacketizer(payloadType uint8, provider SSRCProvider) (*Packetizer, error) {
	if provider == nil {
		provider = DefaultSSRCProvider{}
	}
	ssrc, err := provider.GenerateSSRC()
	if err != nil {
		return nil, correlate.Wrap(correlate.KindStreaming, "rtp", err)
	}
	return &Packetizer{ssrc: ssrc, payloadType: payloadType}, nil
}

// SSRC returns this stream's synchronization source identifier.
func (p *Packetizer) SSRC() uint32 {
	return p.ssrc
}

// Packetize builds a single RTP packet from an already-sized payload
// (caller is responsible for MTU-aware fragmentation via FragmentFUA for
// video). marker is set true for the last packet of a frame.
func (p *Packetizer) Packetize(payload []byte, timestamp uint32, marker bool) *Packet {
	p.mu.Lock()
	seq := p.sequenceNumber
	p.sequenceNumber++
	p.mu.Unlock()

	return &Packet{
		Header: Header{
			Version:        2,
			Marker:         marker,
			PayloadType:    p.payloadType,
			SequenceNumber: seq,
			Timestamp:      timestamp,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	}
}

// SequenceTracker validates that incoming sequence numbers for one
// (SSRC, stream) are monotonic modulo 2^16, per spec §8 invariant.
// Wrap-around is treated as monotonic when the gap looks like a wrap
// rather than a large jump backward.
type SequenceTracker struct {
	mu      sync.Mutex
	ssrc    uint32
	hasSSRC bool
	lastSeq uint16
	hasSeq  bool

	lateCount uint64
	gapCount  uint64
}

// Observe validates seq against the stream's expected SSRC and sequence.
// Returns an error if the SSRC changes mid-stream (a new stream should
// use a new tracker) or if the packet is older than the current window.
func (t *SequenceTracker) Observe(ssrc uint32, seq uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasSSRC {
		t.ssrc = ssrc
		t.hasSSRC = true
	} else if ssrc != t.ssrc {
		return fmt.Errorf("unexpected ssrc: expected %d, got %d", t.ssrc, ssrc)
	}

	if !t.hasSeq {
		t.lastSeq = seq
		t.hasSeq = true
		return nil
	}

	expected := t.lastSeq + 1
	if seq != expected {
		// A gap in either direction is logged, not rejected: RTP delivery
		// is best-effort. diff>0x8000 treats seq as "before" lastSeq
		// (wrapped-around late packet).
		diff := seq - t.lastSeq
		if diff != 0 && diff < 0x8000 {
			t.gapCount++
			logrus.WithFields(logrus.Fields{
				"function": "SequenceTracker.Observe",
				"expected": expected,
				"received": seq,
			}).Warn("sequence gap detected")
		} else {
			t.lateCount++
			return nil // older packet, do not advance lastSeq
		}
	}
	t.lastSeq = seq
	return nil
}

// Stats returns gap/late counters for telemetry.
func (t *SequenceTracker) Stats() (gaps, late uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gapCount, t.lateCount
}
