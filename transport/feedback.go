package transport

import (
	"encoding/binary"
	"math"

	"github.com/opd-ai/dpstream/correlate"
)

// Feedback is the minimal application-layer loss/RTT feedback message
// this module uses in place of canonical RTCP (spec §9 Open Question
// "Exact RTCP usage": "reimplementation should ... define an
// application-layer feedback message and document it"). Sent as the
// payload of a PacketFeedback control packet.
type Feedback struct {
	LossPercent    float64
	RTTMillis      uint32
	BufferFullness float64 // 0.0..1.0
}

// Serialize packs Feedback into a fixed 16-byte payload: loss percent
// (float64, 8 bytes), RTT millis (uint32, 4 bytes), buffer fullness
// scaled to a uint32 fixed-point (4 bytes, /1e6).
func (f Feedback) Serialize() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(f.LossPercent))
	binary.BigEndian.PutUint32(buf[8:12], f.RTTMillis)
	binary.BigEndian.PutUint32(buf[12:16], uint32(f.BufferFullness*1e6))
	return buf
}

// ParseFeedback decodes a Feedback payload produced by Serialize.
func ParseFeedback(data []byte) (Feedback, error) {
	if len(data) < 16 {
		return Feedback{}, correlate.New(correlate.KindSerialization, "transport", "feedback payload shorter than 16 bytes")
	}
	return Feedback{
		LossPercent:    math.Float64frombits(binary.BigEndian.Uint64(data[0:8])),
		RTTMillis:      binary.BigEndian.Uint32(data[8:12]),
		BufferFullness: float64(binary.BigEndian.Uint32(data[12:16])) / 1e6,
	}, nil
}
