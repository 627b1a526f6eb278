// Package dpstream implements a remote-play streaming platform: a host
// captures an emulator's video/audio output, encodes and streams it to a
// client over RTP/UDP, while the client samples local controller input
// and injects it back into the emulator over a TCP control channel.
//
// # Architecture
//
// The module is organized as a set of focused packages rather than one
// monolithic tree, mirroring a capture -> encode -> transport -> decode
// -> present pipeline on the host side and its mirror image on the
// client side:
//
//   - capture: ticker-paced emulator frame capture, handing plain Frame
//     values to a Sink
//   - encode: backend-ordered (hardware-first, software-fallback) video
//     encoder with dynamic bitrate/preset reconfiguration
//   - audio: emulator audio tap, resample, encode; the Opus setting emits
//     PCM through av/audio's pass-through codec, raw PCM is supported,
//     and AAC is rejected
//   - rtp: RTP packetization, FU-A fragmentation/reassembly; the jitter
//     buffer lives in av/rtp and is used by client/receiver
//   - transport: UDP media transport and TCP control-plane transport
//   - session: per-session state machine, Noise-IK key exchange,
//     control-plane framing and opcode dispatch
//   - input: host-side input-event formatting, stdio injection into the
//     emulator process, controller mapping and per-game profiles
//   - adaptive: network-aware bitrate/resolution/fps step-down/step-up
//     controller
//   - correlate: structured error taxonomy, circuit breaker, error
//     correlation and recovery-strategy dispatch
//   - client/receiver, client/decoder, client/player, client/sampler:
//     client-side RTP receive, video decode, audio playback, and input
//     sampling
//   - buffers, queue, registry: shared allocation, ring-buffer, and
//     session-registry substrate used by the packages above
//
// # Session Lifecycle
//
// A session moves through Connecting, Handshaking, Streaming, Paused,
// Disconnecting, and Terminated states (session.Session). The host and
// client exchange a version/capability handshake and a Noise-IK key
// exchange before any media flows; once Streaming, RTP carries video
// (payload type 96) and audio (payload type 97) over UDP while the TCP
// control connection carries keepalives, input events, adaptive-controller
// feedback, and pause/resume/terminate signaling.
//
// # Error Handling
//
// The streaming components construct errors through the correlate
// package: each carries a Kind, a numeric Code, a Severity, a
// human-facing message, and optional recovery guidance, so operators and
// client UIs can react to failures without string-matching error text.
// The lower-level crypto, noise and av/audio packages, and most of rtp,
// return plain errors built with fmt.Errorf or errors.New.
package dpstream
