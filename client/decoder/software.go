package decoder

import "github.com/opd-ai/dpstream/correlate"

// SoftwareBackend is the universal decode fallback. Like
// encode.SoftwareBackend, it has no real H.264/H.265 bitstream library to
// bind in this module's dependency pack (see DESIGN.md); it models the
// Decode contract so Decoder's backend-selection and memory-pressure
// logic is exercised end to end.
type SoftwareBackend struct {
	width, height int
}

// NewSoftwareBackend builds a SoftwareBackend targeting width x height.
func NewSoftwareBackend(width, height int) *SoftwareBackend {
	return &SoftwareBackend{width: width, height: height}
}

// Available always reports true.
func (s *SoftwareBackend) Available() bool { return true }

// Decode returns a zero-filled YUV420 frame sized to the configured
// resolution, flagged keyframe when the NAL type matches {5,7,8}.
func (s *SoftwareBackend) Decode(nal []byte) (Frame, error) {
	if len(nal) == 0 {
		return Frame{}, correlate.New(correlate.KindStreaming, "decoder", "empty NAL unit")
	}
	nalType := nal[0] & 0x1f
	keyframe := nalType == 5 || nalType == 7 || nalType == 8

	ySize := s.width * s.height
	cSize := ySize / 4
	return Frame{
		Width:    s.width,
		Height:   s.height,
		Format:   FormatYUV420,
		Planes:   [][]byte{make([]byte, ySize), make([]byte, cSize), make([]byte, cSize)},
		Keyframe: keyframe,
	}, nil
}

// Close is a no-op.
func (s *SoftwareBackend) Close() error { return nil }
