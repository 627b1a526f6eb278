package encode

import (
	"time"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// SoftwareBackend is the universal fallback encoder backend. It does not
// bind a real x264/x265 library (none exists in this module's dependency
// pack); it models the same encode/reconfigure contract a cgo binding
// would expose so the Encoder dispatch table and adaptive controller can
// be exercised end to end (see DESIGN.md "stdlib-only justifications").
type SoftwareBackend struct {
	params  Params
	frameNo uint64
}

// NewSoftwareBackend constructs a SoftwareBackend. It is always available.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Available always reports true: the software backend has no external
// dependency to fail.
func (s *SoftwareBackend) Available() bool { return true }

// Reconfigure validates and stores new params, matching VP8Codec.SetBitRate's
// validate-then-apply shape.
func (s *SoftwareBackend) Reconfigure(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

// Encode produces a placeholder Annex-B NAL stream sized proportionally to
// the configured bitrate, with a keyframe on every GOP boundary or when
// forced. Real encode logic would replace the payload synthesis only;
// the keyframe cadence and frame counting this module's RTP/adaptive
// layers depend on are real.
func (s *SoftwareBackend) Encode(frame Frame, forceKeyframe bool) (EncodedFrame, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "SoftwareBackend.Encode"})

	if frame.Width <= 0 || frame.Height <= 0 {
		return EncodedFrame{}, correlate.New(correlate.KindStreaming, "encode", "invalid frame dimensions")
	}

	keyframe := forceKeyframe
	if s.params.GOPSize > 0 && s.frameNo%uint64(s.params.GOPSize) == 0 {
		keyframe = true
	}
	s.frameNo++

	nalType := byte(1) // non-IDR slice
	if keyframe {
		nalType = 5 // IDR slice
	}

	bytesPerFrame := int(s.params.BitrateKbps) * 1000 / 8 / max(s.params.FPS, 1)
	if bytesPerFrame < 5 {
		bytesPerFrame = 5
	}
	data := make([]byte, bytesPerFrame)
	data[0] = 0x00
	data[1] = 0x00
	data[2] = 0x00
	data[3] = 0x01
	data[4] = nalType

	logger.WithFields(logrus.Fields{
		"keyframe": keyframe,
		"size":     len(data),
	}).Debug("software frame encoded")

	return EncodedFrame{
		Data:      data,
		Keyframe:  keyframe,
		PTS:       frame.PTS,
		EncodedAt: time.Now(),
	}, nil
}

// Close is a no-op for the software backend.
func (s *SoftwareBackend) Close() error { return nil }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
