// Package audio implements the host audio capture-and-encode pipeline
// (spec §4.7): it taps the emulator's audio monitor sink at its native
// rate, resamples to the configured output rate when needed, and encodes
// behind a bounded queue that drops the oldest unit on overrun.
// CodecOpus (the default) goes through av/audio's OpusCodec, whose encoder
// emits the little-endian PCM bytes rather than an Opus bitstream;
// CodecPCM emits little-endian PCM directly; CodecAAC is rejected by the
// encoder as unsupported.
package audio

import (
	"time"

	audiodsp "github.com/opd-ai/dpstream/av/audio"
	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// Codec selects the audio coding format.
type Codec int

const (
	CodecOpus Codec = iota
	CodecAAC
	CodecPCM
)

func (c Codec) String() string {
	switch c {
	case CodecOpus:
		return "opus"
	case CodecAAC:
		return "aac"
	case CodecPCM:
		return "pcm"
	default:
		return "unknown"
	}
}

// Config configures the audio pipeline. NativeSampleRate/NativeChannels
// describe the emulator sink; OutputSampleRate is what the encoder
// receives (resampling only occurs when they differ).
type Config struct {
	NativeSampleRate uint32
	NativeChannels   int
	OutputSampleRate uint32
	Codec            Codec
	BitrateKbps      uint32
	QueueDepth       int
}

// Validate checks Config for required values.
func (c Config) Validate() error {
	if c.NativeSampleRate == 0 {
		return correlate.New(correlate.KindConfiguration, "audio", "native sample rate must be positive")
	}
	if c.NativeChannels != 1 && c.NativeChannels != 2 {
		return correlate.New(correlate.KindConfiguration, "audio", "channels must be 1 or 2")
	}
	if c.OutputSampleRate == 0 {
		return correlate.New(correlate.KindConfiguration, "audio", "output sample rate must be positive")
	}
	if c.QueueDepth <= 0 {
		return correlate.New(correlate.KindConfiguration, "audio", "queue depth must be positive")
	}
	return nil
}

// Unit is one coded audio unit ready for the RTP packetizer, stamped with
// the same clock domain as video when possible (spec §4.7).
type Unit struct {
	Data      []byte
	PTS       time.Duration
	Codec     Codec
	EncodedAt time.Time
}

// Stats tracks pipeline health for diagnostics and the adaptive controller.
type Stats struct {
	UnitsEncoded     uint64
	BufferUnderruns  uint64
	BufferOverruns   uint64
	LastError        error
}

// Source abstracts the platform audio tap (emulator monitor sink, or a
// test double). One Capture call returns one block of interleaved int16
// PCM at NativeSampleRate/NativeChannels.
type Source interface {
	CapturePCM() ([]int16, error)
	Close() error
}

// Pipeline reads PCM from Source, resamples if needed, encodes, and
// exposes completed Units through a bounded channel. Grounded on
// av/audio/resampler.go's Resampler and av/audio/codec.go's OpusCodec,
// composed behind a drop-oldest bounded queue per spec §4.7.
type Pipeline struct {
	cfg       Config
	source    Source
	resampler *audiodsp.Resampler
	codec     *audiodsp.OpusCodec

	queue  chan Unit
	stats  Stats

	cancel func()
	done   chan struct{}
}

// NewPipeline validates cfg, builds the resampler (a no-op pass-through
// when rates already match) and codec, and returns an idle Pipeline.
func NewPipeline(cfg Config, source Source) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, correlate.New(correlate.KindConfiguration, "audio", "source is required")
	}

	var resampler *audiodsp.Resampler
	if cfg.NativeSampleRate != cfg.OutputSampleRate {
		r, err := audiodsp.NewResampler(audiodsp.ResamplerConfig{
			InputRate:  cfg.NativeSampleRate,
			OutputRate: cfg.OutputSampleRate,
			Channels:   cfg.NativeChannels,
		})
		if err != nil {
			return nil, correlate.Wrap(correlate.KindConfiguration, "audio", err)
		}
		resampler = r
	}

	return &Pipeline{
		cfg:       cfg,
		source:    source,
		resampler: resampler,
		codec:     audiodsp.NewOpusCodec(),
		queue:     make(chan Unit, cfg.QueueDepth),
	}, nil
}

// Units returns the channel Units are delivered on.
func (p *Pipeline) Units() <-chan Unit {
	return p.queue
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Start begins the capture/resample/encode loop. Calling Start twice
// without an intervening Stop is a no-op.
func (p *Pipeline) Start() {
	if p.cancel != nil {
		return
	}
	stop := make(chan struct{})
	p.cancel = func() { close(stop) }
	p.done = make(chan struct{})
	go p.run(stop)
}

// Stop halts the loop and waits for it to exit.
func (p *Pipeline) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
}

func (p *Pipeline) run(stop <-chan struct{}) {
	defer close(p.done)
	logger := logrus.WithFields(logrus.Fields{"function": "Pipeline.run"})

	for {
		select {
		case <-stop:
			return
		default:
		}

		pcm, err := p.source.CapturePCM()
		if err != nil {
			p.stats.LastError = err
			p.stats.BufferUnderruns++
			logger.WithError(err).Debug("audio capture underrun")
			continue
		}

		if p.resampler != nil {
			pcm, err = p.resampler.Resample(pcm)
			if err != nil {
				p.stats.LastError = err
				logger.WithError(err).Warn("resample failed, dropping block")
				continue
			}
		}

		encoded, _, err := p.encode(pcm)
		if err != nil {
			p.stats.LastError = err
			logger.WithError(err).Warn("encode failed, dropping block")
			continue
		}

		unit := Unit{Data: encoded, PTS: 0, Codec: p.cfg.Codec, EncodedAt: time.Now()}
		p.stats.UnitsEncoded++

		select {
		case p.queue <- unit:
		default:
			// Bounded queue full: drop the oldest unit to make room,
			// matching the capture loop's overrun policy (§4.7).
			select {
			case <-p.queue:
				p.stats.BufferOverruns++
			default:
			}
			select {
			case p.queue <- unit:
			default:
			}
		}
	}
}

func (p *Pipeline) encode(pcm []int16) ([]byte, uint32, error) {
	switch p.cfg.Codec {
	case CodecOpus:
		data, err := p.codec.EncodeFrame(pcm, p.cfg.OutputSampleRate)
		return data, p.cfg.OutputSampleRate, err
	case CodecPCM:
		buf := make([]byte, len(pcm)*2)
		for i, s := range pcm {
			buf[2*i] = byte(s)
			buf[2*i+1] = byte(s >> 8)
		}
		return buf, p.cfg.OutputSampleRate, nil
	default:
		return nil, 0, correlate.New(correlate.KindStreaming, "audio", "unsupported audio codec: "+p.cfg.Codec.String())
	}
}

// Close releases the capture source and codec.
func (p *Pipeline) Close() error {
	p.Stop()
	if err := p.codec.Close(); err != nil {
		return err
	}
	return p.source.Close()
}
