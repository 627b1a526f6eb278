// Package capture implements the host's video capture loop (spec §4.5): a
// fixed-cadence ticker pulls frames from a platform-specific Source and
// hands each one to a Sink. SubmitFrame is called synchronously on the
// ticker goroutine, so a slow Sink delays the next capture tick.
package capture

import (
	"context"
	"time"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// Frame is one captured video frame in planar YUV420 (spec §4.5 "frames
// delivered as YUV420 to the encoder").
type Frame struct {
	Width, Height  int
	Y, U, V        []byte
	YStride        int
	UStride, VStride int
	CapturedAt     time.Time
}

// Source abstracts the platform capture backend (framebuffer grab, GPU
// texture readback, or a test double). One CaptureFrame call returns one
// frame; it must not block longer than the capture interval under normal
// conditions.
type Source interface {
	CaptureFrame() (*Frame, error)
	Close() error
}

// Sink receives captured frames. encode.Encoder does not implement it:
// it takes its own encode.Frame through Encode.
type Sink interface {
	SubmitFrame(f *Frame) error
}

// Stats tracks capture-loop health for the adaptive controller and
// diagnostics (spec §4.5 "tracks frames captured, frames dropped").
type Stats struct {
	FramesCaptured uint64
	FramesDropped  uint64
	LastError      error
}

// Config configures the capture loop.
type Config struct {
	FPS    int
	Source Source
	Sink   Sink
}

// Validate checks Config for required fields (the New*(cfg)+Validate
// constructor convention shared across this module).
func (c Config) Validate() error {
	if c.FPS <= 0 {
		return correlate.New(correlate.KindConfiguration, "capture", "fps must be positive")
	}
	if c.Source == nil {
		return correlate.New(correlate.KindConfiguration, "capture", "source is required")
	}
	if c.Sink == nil {
		return correlate.New(correlate.KindConfiguration, "capture", "sink is required")
	}
	return nil
}

// Loop runs the ticker-paced capture-to-sink pipeline (grounds the tight
// dispatch-on-tick shape used for continuous media capture).
type Loop struct {
	cfg   Config
	stats Stats

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop validates cfg and returns an idle Loop; call Start to begin
// capturing.
func NewLoop(cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loop{cfg: cfg}, nil
}

// Start begins the capture ticker in a background goroutine. Calling
// Start twice without an intervening Stop is a no-op.
func (l *Loop) Start(ctx context.Context) {
	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx)
}

// Stop halts the ticker and waits for the run loop to exit.
func (l *Loop) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel = nil
}

// Stats returns a snapshot of capture counters.
func (l *Loop) Stats() Stats {
	return l.stats
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	logger := logrus.WithFields(logrus.Fields{"function": "Loop.run"})

	interval := time.Second / time.Duration(l.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.captureOnce(logger)
		}
	}
}

func (l *Loop) captureOnce(logger *logrus.Entry) {
	frame, err := l.cfg.Source.CaptureFrame()
	if err != nil {
		l.stats.LastError = err
		logger.WithError(err).Warn("capture failed, dropping tick")
		return
	}

	l.stats.FramesCaptured++
	if err := l.cfg.Sink.SubmitFrame(frame); err != nil {
		l.stats.FramesDropped++
		logger.WithError(err).Debug("sink rejected frame")
	}
}
