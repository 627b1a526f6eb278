// Package receiver implements the client-side RTP video receive path
// (spec §4.13): FU-A reassembly, a jitter buffer, and the
// WaitingForKeyframe -> Decoding gating state machine that protects the
// decoder from non-keyframe garbage on stream (re)start. StateError is
// declared but Receiver never enters it; only Reset returns the
// receiver to WaitingForKeyframe.
package receiver

import (
	"time"

	avrtp "github.com/opd-ai/dpstream/av/rtp"
	"github.com/opd-ai/dpstream/correlate"
	"github.com/opd-ai/dpstream/rtp"
	"github.com/sirupsen/logrus"
)

// State is the receiver's keyframe-gating state (spec §4.13, §8 scenario
// 2).
type State int

const (
	StateWaitingForKeyframe State = iota
	StateDecoding
	StateError
)

func (s State) String() string {
	switch s {
	case StateWaitingForKeyframe:
		return "waiting_for_keyframe"
	case StateDecoding:
		return "decoding"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// isKeyframeNALType reports whether an H.264 NAL unit type starts a
// decodable access unit (spec §8 scenario 2: "NAL type in {5,7,8}").
func isKeyframeNALType(nalType byte) bool {
	return nalType == 5 || nalType == 7 || nalType == 8
}

// Frame is one reassembled access unit ready for the decoder.
type Frame struct {
	NAL       []byte
	Timestamp uint32
	Keyframe  bool
}

// Receiver reassembles RTP media packets into access units, smooths
// delivery through a jitter buffer, and gates output until a keyframe has
// been seen. Grounded directly on av/rtp/jitter.go's JitterBuffer
// (reused unmodified: a generic sorted, time-release, capacity-evicting
// buffer with no RTP-specific coupling) and av/video/rtp.go's FU-A
// depacketization, composed with this module's rtp.Reassembler.
type Receiver struct {
	state  State
	reassembler rtp.Reassembler
	jitter      *avrtp.JitterBuffer
	tracker     *rtp.SequenceTracker

	droppedBeforeKeyframe uint64
}

// New builds a Receiver with the given jitter-buffer delay.
func New(bufferDelay time.Duration) *Receiver {
	return &Receiver{
		state:   StateWaitingForKeyframe,
		jitter:  avrtp.NewJitterBuffer(bufferDelay),
		tracker: &rtp.SequenceTracker{},
	}
}

// State returns the current gating state.
func (r *Receiver) State() State {
	return r.state
}

// HandlePacket reassembles one RTP packet's payload and, once a complete
// NAL unit is available, applies the keyframe gate before admitting it
// to the jitter buffer. Packets are expected pre-parsed by the caller
// (header fields plus payload) so this type stays codec/transport
// agnostic.
func (r *Receiver) HandlePacket(seq uint16, ssrc uint32, timestamp uint32, payload []byte) error {
	if err := r.tracker.Observe(ssrc, seq); err != nil {
		return correlate.Wrap(correlate.KindStreaming, "receiver", err)
	}

	nal, complete, err := r.reassembler.AddFragment(payload)
	if err != nil {
		return correlate.Wrap(correlate.KindStreaming, "receiver", err)
	}
	if !complete {
		return nil
	}

	nalType := nal[0] & 0x1f
	keyframe := isKeyframeNALType(nalType)

	if r.state == StateWaitingForKeyframe {
		if !keyframe {
			r.droppedBeforeKeyframe++
			return nil
		}
		r.state = StateDecoding
		logrus.WithFields(logrus.Fields{"function": "Receiver.HandlePacket"}).Info("keyframe received, decoder gate open")
	}

	r.jitter.Add(timestamp, nal)
	return nil
}

// Next returns the next access unit ready for the decoder, if the jitter
// buffer's release delay has elapsed.
func (r *Receiver) Next() (Frame, bool) {
	data, ok := r.jitter.Get()
	if !ok {
		return Frame{}, false
	}
	nalType := data[0] & 0x1f
	return Frame{NAL: data, Keyframe: isKeyframeNALType(nalType)}, true
}

// DroppedBeforeKeyframe is the count of non-keyframe access units
// discarded while waiting for the first keyframe (spec §8 scenario 2).
func (r *Receiver) DroppedBeforeKeyframe() uint64 {
	return r.droppedBeforeKeyframe
}

// Reset returns the receiver to WaitingForKeyframe, used after a
// detected stream discontinuity (SSRC change, long gap) forces
// re-synchronization.
func (r *Receiver) Reset() {
	r.state = StateWaitingForKeyframe
	r.reassembler.Reset()
	r.jitter.Reset()
}
