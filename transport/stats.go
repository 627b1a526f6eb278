package transport

import (
	"sync/atomic"
	"time"
)

// SessionStats tracks per-session packet/byte/loss/bandwidth counters
// for diagnostics and the adaptive controller. Grounded on
// crypto/performance_monitor.go's atomic counter-bookkeeping style,
// generalized from handshake/encryption timing to transport I/O
// counters.
type SessionStats struct {
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	packetsLost     atomic.Uint64

	windowStart atomic.Int64 // unix nano
	windowBytes atomic.Uint64
}

// NewSessionStats returns a zeroed SessionStats with its bandwidth
// window anchored to now.
func NewSessionStats() *SessionStats {
	s := &SessionStats{}
	s.windowStart.Store(time.Now().UnixNano())
	return s
}

// RecordSent records one outbound packet of n bytes.
func (s *SessionStats) RecordSent(n int) {
	s.packetsSent.Add(1)
	s.bytesSent.Add(uint64(n))
	s.windowBytes.Add(uint64(n))
}

// RecordReceived records one inbound packet of n bytes.
func (s *SessionStats) RecordReceived(n int) {
	s.packetsReceived.Add(1)
	s.bytesReceived.Add(uint64(n))
}

// RecordLoss records a detected packet loss event (sequence gap).
func (s *SessionStats) RecordLoss(n uint64) {
	s.packetsLost.Add(n)
}

// LossPercent computes loss rate as packets lost / (received + lost).
func (s *SessionStats) LossPercent() float64 {
	lost := s.packetsLost.Load()
	received := s.packetsReceived.Load()
	total := lost + received
	if total == 0 {
		return 0
	}
	return float64(lost) / float64(total) * 100
}

// BandwidthBps returns the send bandwidth observed since the last
// ResetWindow call, in bytes per second.
func (s *SessionStats) BandwidthBps() float64 {
	elapsed := time.Since(time.Unix(0, s.windowStart.Load())).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.windowBytes.Load()) / elapsed
}

// ResetWindow restarts the bandwidth measurement window.
func (s *SessionStats) ResetWindow() {
	s.windowStart.Store(time.Now().UnixNano())
	s.windowBytes.Store(0)
}

// Snapshot is a point-in-time copy of the counters, safe to log or send
// as telemetry.
type Snapshot struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	PacketsLost     uint64
	LossPercent     float64
	BandwidthBps    float64
}

// Snapshot returns the current counter values.
func (s *SessionStats) Snapshot() Snapshot {
	return Snapshot{
		PacketsSent:     s.packetsSent.Load(),
		PacketsReceived: s.packetsReceived.Load(),
		BytesSent:       s.bytesSent.Load(),
		BytesReceived:   s.bytesReceived.Load(),
		PacketsLost:     s.packetsLost.Load(),
		LossPercent:     s.LossPercent(),
		BandwidthBps:    s.BandwidthBps(),
	}
}
