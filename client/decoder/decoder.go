// Package decoder implements the client-side video decoder (spec
// §4.14): a hardware-decoder-first interface with a software fallback,
// producing NV12/YUV420 frames from NAL units. Frame planes are newly
// allocated slices, not buffers from the buffers pool.
package decoder

import (
	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// PixelFormat names the decoded frame's plane layout.
type PixelFormat int

const (
	FormatYUV420 PixelFormat = iota
	FormatNV12
)

// Backend is a closed variant of decoder implementations (Design Note
// "Dynamic dispatch ... codec backends"), mirroring encode.Backend's
// hardware-then-software preference shape.
type Backend int

const (
	BackendHardware Backend = iota
	BackendSoftware
)

func (b Backend) String() string {
	if b == BackendHardware {
		return "hardware"
	}
	return "software"
}

// Frame is one decoded picture.
type Frame struct {
	Width, Height int
	Format        PixelFormat
	Planes        [][]byte
	Keyframe      bool
}

// backendImpl is what a concrete decoder backend (hardware NVDEC/VAAPI
// binding, or the software reference) must provide. Grounded on
// av/video/codec.go's VP8Codec.DecodeFrame shape, generalized to a
// two-member closed backend set.
type backendImpl interface {
	Available() bool
	Decode(nal []byte) (Frame, error)
	Close() error
}

// Decoder selects a backend (hardware preferred, software fallback) and
// decodes NAL units against it, dropping frames under memory pressure
// rather than blocking the receive path.
type Decoder struct {
	preference []Backend
	backends   map[Backend]backendImpl
	active     Backend

	maxQueuedFrames int
	queuedFrames    int

	framesDecoded uint64
	framesDropped uint64
}

// NewDecoder builds a Decoder, selecting the first available backend in
// preference order.
func NewDecoder(preference []Backend, backends map[Backend]backendImpl, maxQueuedFrames int) (*Decoder, error) {
	if len(preference) == 0 {
		return nil, correlate.New(correlate.KindConfiguration, "decoder", "backend preference list is empty")
	}
	if maxQueuedFrames <= 0 {
		maxQueuedFrames = 4
	}
	d := &Decoder{preference: preference, backends: backends, maxQueuedFrames: maxQueuedFrames}
	if err := d.selectBackend(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) selectBackend() error {
	logger := logrus.WithFields(logrus.Fields{"function": "Decoder.selectBackend"})
	for _, b := range d.preference {
		impl, ok := d.backends[b]
		if !ok || impl == nil || !impl.Available() {
			continue
		}
		d.active = b
		logger.WithField("backend", b.String()).Info("decoder backend selected")
		return nil
	}
	return correlate.New(correlate.KindHardwareFailure, "decoder", "no decoder backend available").
		WithSeverity(correlate.SeverityHigh)
}

// ActiveBackend returns the currently selected backend.
func (d *Decoder) ActiveBackend() Backend {
	return d.active
}

// Decode decodes one NAL unit. Under memory pressure (queuedFrames at
// capacity), the frame is dropped and counted rather than decoded, since
// the presentation path cannot keep up regardless.
func (d *Decoder) Decode(nal []byte) (Frame, bool, error) {
	if d.queuedFrames >= d.maxQueuedFrames {
		d.framesDropped++
		return Frame{}, false, nil
	}

	impl := d.backends[d.active]
	frame, err := impl.Decode(nal)
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": "Decoder.Decode"}).WithError(err).Warn("decode failed")
		return Frame{}, false, correlate.Wrap(correlate.KindStreaming, "decoder", err)
	}
	d.framesDecoded++
	d.queuedFrames++
	return frame, true, nil
}

// Release frees one queued-frame slot, called by the presenter once it
// finishes with a decoded frame.
func (d *Decoder) Release() {
	if d.queuedFrames > 0 {
		d.queuedFrames--
	}
}

// Stats returns decode/drop counters.
func (d *Decoder) Stats() (decoded, dropped uint64) {
	return d.framesDecoded, d.framesDropped
}

// Close releases the active backend.
func (d *Decoder) Close() error {
	if impl := d.backends[d.active]; impl != nil {
		return impl.Close()
	}
	return nil
}
