// Package audio provides the audio-DSP pipeline behind this module's audio
// capture/encode (spec §4.7) and client-side decode/playback (spec §4.15).
//
// This package implements the complete audio pipeline for a streamed game
// session, including Opus codec integration, audio effects processing,
// sample rate conversion, and real-time audio manipulation.
//
// # Architecture Overview
//
// The audio processing pipeline follows this flow:
//
//	Capture:  PCM Input → Resampling → Effects → Opus Encoding → RTP Packetization
//	Playback: PCM Output ← Resampling ← Effects ← Opus Decoding ← RTP Depacketization
//
// # Core Components
//
// The package provides these main components:
//
// ## OpusCodec
//
// The primary codec wrapper providing Opus-specific audio processing:
//
//	codec := audio.NewOpusCodec()
//	encoded, err := codec.EncodeFrame(pcmSamples, 48000)
//	decoded, sampleRate, err := codec.DecodeFrame(opusData)
//
// ## Processor
//
// The main audio processing pipeline combining encoding, decoding, resampling,
// and effects processing:
//
//	processor := audio.NewProcessor()
//	defer processor.Close()
//	
//	// Configure effects
//	gain, err := audio.NewGainEffect(1.5)
//	processor.AddEffect(gain)
//
//	// Process audio
//	output, err := processor.ProcessOutgoing(input, 48000)
//
// ## Resampler
//
// Sample rate conversion with linear interpolation:
//
//	config := audio.ResamplerConfig{
//	    InputRate:  44100,
//	    OutputRate: 48000,
//	    Channels:   1,
//	    Quality:    4,
//	}
//	resampler, err := audio.NewResampler(config)
//	resampled, err := resampler.Resample(samples)
//
// ## Effects
//
// The package provides a flexible effects framework with built-in effects:
//
//   - GainEffect: Volume adjustment with clipping protection
//   - AutoGainEffect: Automatic gain control (AGC) for consistent volume
//   - NoiseSuppressionEffect: Spectral subtraction-based noise reduction
//   - EffectChain: Sequential effect processing pipeline
//
// Example of building an effects chain:
//
//	chain := audio.NewEffectChain()
//	chain.AddEffect(audio.NewNoiseSuppressionEffect(0.5))
//	chain.AddEffect(audio.NewAutoGainEffect())
//	gain, err := audio.NewGainEffect(1.2)
//	chain.AddEffect(gain)
//	
//	processed, err := chain.Process(samples)
//
// # Thread Safety
//
// No component in this package synchronizes internally:
//
//   - Processor instances are not safe for concurrent use
//   - Effect chains and effects are not safe for concurrent use
//   - Resampler maintains internal state and should be used per-stream
//
// # Dependencies
//
// The package uses minimal external dependencies:
//
//   - github.com/pion/opus: Pure Go Opus decoder (no CGO)
//   - github.com/sirupsen/logrus: Structured logging
//
// # Performance Considerations
//
//   - Linear interpolation resampling: O(n) complexity, suitable for real-time
//   - Noise suppression FFT: O(n log n), configurable frame sizes (64-4096)
//   - Pre-allocated buffers minimize garbage collection pressure
//   - Same-rate resampling optimization bypasses processing
//
// # Integration
//
// This package backs this module's host and client audio paths:
//
//   - The top-level audio package (which imports this package as audiodsp
//     to avoid a name clash) taps the emulator's audio sink, resamples,
//     and encodes each frame through OpusCodec
//   - client/player decodes received frames and drives output playback
//   - Encoded frames are packetized by the rtp package for network transmission
package audio
