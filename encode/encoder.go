// Package encode implements the host video encoder (spec §4.6): a
// backend-ordered encoder that prefers hardware acceleration and falls
// back through an ordered list to a software implementation, exposing the
// runtime-tunable parameters the adaptive controller drives.
package encode

import (
	"strconv"
	"time"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// Codec names a supported video codec.
type Codec int

const (
	CodecH264 Codec = iota
	CodecH265
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecH265:
		return "h265"
	default:
		return "unknown"
	}
}

// RateControl selects the bitrate control mode.
type RateControl int

const (
	RateControlCBR RateControl = iota
	RateControlVBR
	RateControlCQP
	RateControlVBRHQ
)

// Preset is the encoder's speed/quality ladder, fastest to slowest.
type Preset int

const (
	PresetUltraFast Preset = iota
	PresetFast
	PresetMedium
	PresetSlow
	PresetVerySlow
)

// Resolution is a target encode resolution (mirrors the bitrate-ladder
// table shape of av/video/codec.go's GetSupportedResolutions).
type Resolution struct {
	Width, Height int
}

func (r Resolution) String() string {
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// Params are the runtime-tunable encoder parameters (spec §4.6); the
// adaptive controller mutates these between frame boundaries via
// Encoder.Reconfigure.
type Params struct {
	Codec          Codec
	Resolution     Resolution
	FPS            int
	BitrateKbps    uint32
	MaxBitrateKbps uint32
	RateControl    RateControl
	Preset         Preset
	Profile        string
	Level          string
	GOPSize        int
	BFrames        int
	RefFrames      int
	LowLatency     bool
}

// Validate checks Params for internally consistent values.
func (p Params) Validate() error {
	if p.BitrateKbps == 0 {
		return correlate.New(correlate.KindConfiguration, "encode", "bitrate must be positive")
	}
	if p.MaxBitrateKbps != 0 && p.MaxBitrateKbps < p.BitrateKbps {
		return correlate.New(correlate.KindConfiguration, "encode", "max bitrate below bitrate")
	}
	if p.Resolution.Width <= 0 || p.Resolution.Height <= 0 {
		return correlate.New(correlate.KindConfiguration, "encode", "resolution must be positive")
	}
	if p.FPS <= 0 {
		return correlate.New(correlate.KindConfiguration, "encode", "fps must be positive")
	}
	return nil
}

// BitrateLadder returns a reasonable starting bitrate for a resolution,
// mirroring av/video/codec.go's GetBitrateForResolution pixel-count
// heuristic, extended to 1440p/4K for this module's higher ceilings.
func BitrateLadder(r Resolution) uint32 {
	pixels := r.Width * r.Height
	switch {
	case pixels <= 320*240:
		return 500
	case pixels <= 640*480:
		return 1500
	case pixels <= 1280*720:
		return 5000
	case pixels <= 1920*1080:
		return 8000
	case pixels <= 2560*1440:
		return 16000
	default:
		return 30000
	}
}

// Backend is one closed variant of an encoder implementation (Design Note
// "Dynamic dispatch on ... codec backends: model as a closed variant, not
// open inheritance"). Hardware backends bind to NVENC/VAAPI/QuickSync;
// the software backend is the universal fallback.
type Backend int

const (
	BackendNVENC Backend = iota
	BackendVAAPI
	BackendQuickSync
	BackendSoftware
)

func (b Backend) String() string {
	switch b {
	case BackendNVENC:
		return "nvenc"
	case BackendVAAPI:
		return "vaapi"
	case BackendQuickSync:
		return "quicksync"
	case BackendSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// EncodedFrame is one encoder output unit: zero or more NAL units
// concatenated in Annex B or length-prefixed form, ready for the RTP
// packetizer.
type EncodedFrame struct {
	Data       []byte
	Keyframe   bool
	PTS        time.Duration
	EncodedAt  time.Time
}

// backendImpl is what an individual hardware or software backend must
// provide. Real hardware bindings (cgo/NVENC, VAAPI, QuickSync) have no
// pure-Go library in this module's dependency pack; BackendSoftware is
// the only concrete implementation wired here (see DESIGN.md).
type backendImpl interface {
	Available() bool
	Encode(frame Frame, forceKeyframe bool) (EncodedFrame, error)
	Reconfigure(p Params) error
	Close() error
}

// Frame is the raw YUV420 input the capture package produces.
type Frame struct {
	Width, Height int
	Y, U, V       []byte
	YStride       int
	UStride       int
	VStride       int
	PTS           time.Duration
}

// ErrEncoderNotAvailable is returned when a backend fails in a way that is
// not recoverable by retry; the caller should fall back to the next
// backend in preference order (spec §4.6).
var ErrEncoderNotAvailable = correlate.New(correlate.KindHardwareFailure, "encode", "encoder backend not available").
	WithSeverity(correlate.SeverityHigh)

// ErrUnsupportedCodec is returned when no available backend supports the
// requested codec; this surfaces to client capability renegotiation.
var ErrUnsupportedCodec = correlate.New(correlate.KindStreaming, "encode", "unsupported codec").
	WithSeverity(correlate.SeverityMedium)

// Encoder selects a backend from an ordered preference list and encodes
// frames against it, falling back through the list on non-recoverable
// backend failure. Grounded on av/video/codec.go's VP8Codec-wraps-
// Processor shape, generalized to a multi-backend dispatch table.
type Encoder struct {
	preference []Backend
	backends   map[Backend]backendImpl

	active     Backend
	params     Params
	pendingParams *Params
}

// NewEncoder builds an Encoder with the given backend preference order
// and an initial parameter set. backends supplies the concrete
// implementation for each Backend the caller wants considered; entries
// missing from the map are skipped during selection.
func NewEncoder(preference []Backend, backends map[Backend]backendImpl, params Params) (*Encoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(preference) == 0 {
		return nil, correlate.New(correlate.KindConfiguration, "encode", "backend preference list is empty")
	}
	e := &Encoder{preference: preference, backends: backends, params: params}
	if err := e.selectBackend(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Encoder) selectBackend() error {
	logger := logrus.WithFields(logrus.Fields{"function": "Encoder.selectBackend"})
	for _, b := range e.preference {
		impl, ok := e.backends[b]
		if !ok || impl == nil {
			continue
		}
		if !impl.Available() {
			logger.WithField("backend", b.String()).Debug("backend unavailable, trying next")
			continue
		}
		if err := impl.Reconfigure(e.params); err != nil {
			logger.WithField("backend", b.String()).WithError(err).Warn("backend rejected params, trying next")
			continue
		}
		e.active = b
		logger.WithField("backend", b.String()).Info("encoder backend selected")
		return nil
	}
	return ErrEncoderNotAvailable
}

// ActiveBackend returns the currently selected backend.
func (e *Encoder) ActiveBackend() Backend {
	return e.active
}

// Params returns the parameters currently in effect.
func (e *Encoder) Params() Params {
	return e.params
}

// Reconfigure queues a parameter change. Per spec §8 boundary behavior
// ("bitrate changes applied mid-stream take effect at the next frame
// boundary, not retroactively"), the new params are applied at the start
// of the next Encode call rather than immediately.
func (e *Encoder) Reconfigure(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.pendingParams = &p
	return nil
}

// Encode encodes one frame, applying any pending reconfiguration first.
// On ErrEncoderNotAvailable from the active backend it attempts to fail
// over to the next backend in preference order before giving up.
func (e *Encoder) Encode(frame Frame, forceKeyframe bool) (EncodedFrame, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "Encoder.Encode", "backend": e.active.String()})

	if e.pendingParams != nil {
		e.params = *e.pendingParams
		e.pendingParams = nil
		if impl := e.backends[e.active]; impl != nil {
			if err := impl.Reconfigure(e.params); err != nil {
				logger.WithError(err).Warn("active backend rejected reconfigure, reselecting")
				if selErr := e.selectBackend(); selErr != nil {
					return EncodedFrame{}, selErr
				}
			}
		}
	}

	impl := e.backends[e.active]
	out, err := impl.Encode(frame, forceKeyframe)
	if err == nil {
		return out, nil
	}

	if err == ErrEncoderNotAvailable {
		logger.Warn("active backend reported unavailable, failing over")
		kept := make([]Backend, 0, len(e.preference))
		for _, b := range e.preference {
			if b != e.active {
				kept = append(kept, b)
			}
		}
		e.preference = kept
		if selErr := e.selectBackend(); selErr != nil {
			return EncodedFrame{}, selErr
		}
		return e.backends[e.active].Encode(frame, forceKeyframe)
	}
	return EncodedFrame{}, err
}

// Close releases the active backend's resources.
func (e *Encoder) Close() error {
	if impl := e.backends[e.active]; impl != nil {
		return impl.Close()
	}
	return nil
}

// SupportsCodec reports whether codec is the codec in the encoder's
// current parameters. The backends are not queried, so any other codec
// reports false even if a backend could encode it.
func (e *Encoder) SupportsCodec(codec Codec) bool {
	return codec == e.params.Codec
}
