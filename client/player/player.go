// Package player implements the client-side audio playback path (spec
// §4.15): Opus and PCM decode into a PCM ring, volume control, and
// underrun/overrun counters for the presentation layer. AAC is not
// decoded: there is no AAC Codec value.
package player

import (
	"sync"

	audiodsp "github.com/opd-ai/dpstream/av/audio"
	"github.com/opd-ai/dpstream/correlate"
)

// Codec names the decode-side formats. Its numeric values differ from
// audio.Codec's (which also has AAC), so the two do not convert directly.
type Codec int

const (
	CodecOpus Codec = iota
	CodecPCM
)

// Ring is a fixed-capacity PCM sample ring sized for roughly 10ms at the
// configured rate (spec §4.15), evicting the oldest samples on overrun
// rather than growing unbounded. Grounded on av/rtp/jitter.go's
// JitterBuffer ring-eviction discipline, specialized to a flat int16
// ring instead of a timestamp-sorted packet list.
type Ring struct {
	mu       sync.Mutex
	buf      []int16
	capacity int
	write    int
	size     int
}

// NewRing builds a Ring with room for capacity samples.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]int16, capacity), capacity: capacity}
}

// Push appends samples, evicting the oldest on overflow and reporting
// how many were dropped.
func (r *Ring) Push(samples []int16) (dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		r.buf[r.write] = s
		r.write = (r.write + 1) % r.capacity
		if r.size < r.capacity {
			r.size++
		} else {
			dropped++
		}
	}
	return dropped
}

// Pop drains up to n samples, oldest first.
func (r *Ring) Pop(n int) []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.size {
		n = r.size
	}
	out := make([]int16, n)
	start := (r.write - r.size + r.capacity) % r.capacity
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%r.capacity]
	}
	r.size -= n
	return out
}

// Available returns the number of samples currently buffered.
func (r *Ring) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Stats tracks playback health.
type Stats struct {
	Underruns uint64
	Overruns  uint64
}

// Player decodes incoming coded audio units into a PCM ring with volume
// applied, tracking underrun (ring starved on Pop) and overrun (ring
// full on Push) conditions.
type Player struct {
	codec  *audiodsp.OpusCodec
	ring   *Ring
	volume float64 // 0.0 (silent) .. 1.0 (full)

	stats Stats
}

// NewPlayer builds a Player with a ring sized for ringCapacity samples.
func NewPlayer(ringCapacity int) *Player {
	return &Player{
		codec:  audiodsp.NewOpusCodec(),
		ring:   NewRing(ringCapacity),
		volume: 1.0,
	}
}

// SetVolume clamps and applies a new playback volume.
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
}

// SubmitUnit decodes one coded audio unit and pushes the result (with
// volume applied) into the playback ring.
func (p *Player) SubmitUnit(codec Codec, data []byte) error {
	var pcm []int16
	switch codec {
	case CodecOpus:
		decoded, _, err := p.codec.DecodeFrame(data)
		if err != nil {
			return correlate.Wrap(correlate.KindStreaming, "player", err)
		}
		pcm = decoded
	case CodecPCM:
		pcm = make([]int16, len(data)/2)
		for i := range pcm {
			pcm[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		}
	default:
		return correlate.New(correlate.KindStreaming, "player", "unsupported playback codec")
	}

	for i := range pcm {
		pcm[i] = int16(float64(pcm[i]) * p.volume)
	}

	if dropped := p.ring.Push(pcm); dropped > 0 {
		p.stats.Overruns++
	}
	return nil
}

// Pull drains n samples for the output device, counting an underrun when
// the ring cannot satisfy the request (returns silence for the shortfall).
func (p *Player) Pull(n int) []int16 {
	out := p.ring.Pop(n)
	if len(out) < n {
		p.stats.Underruns++
		padded := make([]int16, n)
		copy(padded, out)
		return padded
	}
	return out
}

// Stats returns a snapshot of playback counters.
func (p *Player) Stats() Stats {
	return p.stats
}

// Close releases the decoder.
func (p *Player) Close() error {
	return p.codec.Close()
}
