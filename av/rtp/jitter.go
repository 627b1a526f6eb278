// Package rtp provides a jitter buffer used to smooth out network timing
// variance before media is handed to a decoder or player.
package rtp

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TimeProvider abstracts time operations for deterministic testing.
// Production code uses DefaultTimeProvider; tests can inject mock implementations.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the standard time package.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (d DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

// DefaultMaxBufferCapacity is the default maximum number of packets in the jitter buffer.
const DefaultMaxBufferCapacity = 100

// jitterBufferEntry represents a single packet stored in the jitter buffer.
// Packets are stored sorted by RTP timestamp for proper playback ordering.
// The timestamp field holds the RTP timestamp from the packet header,
// while data contains the actual media payload bytes (an encoded audio
// unit or a reassembled video NAL unit).
type jitterBufferEntry struct {
	timestamp uint32
	data      []byte
}

// JitterBuffer provides basic jitter buffering for audio or video packets.
//
// This implementation buffers packets for a fixed duration to smooth out
// network jitter and provides consistent playback. Packets are
// returned in timestamp order for proper sequencing.
//
// The buffer has a configurable maximum capacity (default 100 packets)
// to prevent unbounded memory growth. When capacity is exceeded, the
// oldest packets are evicted.
type JitterBuffer struct {
	mu           sync.RWMutex
	bufferTime   time.Duration
	packets      []jitterBufferEntry // sorted by timestamp
	maxCapacity  int                 // maximum number of packets to buffer
	lastDequeue  time.Time
	timeProvider TimeProvider
}

// NewJitterBuffer creates a new jitter buffer.
//
// Parameters:
//   - bufferTime: Duration to buffer packets
//
// Returns:
//   - *JitterBuffer: New jitter buffer instance
func NewJitterBuffer(bufferTime time.Duration) *JitterBuffer {
	return NewJitterBufferWithTimeProvider(bufferTime, DefaultTimeProvider{})
}

// NewJitterBufferWithTimeProvider creates a new jitter buffer with an injectable time provider.
//
// This constructor allows for deterministic testing by injecting a custom TimeProvider.
//
// Parameters:
//   - bufferTime: Duration to buffer packets
//   - timeProvider: Provider for time operations
//
// Returns:
//   - *JitterBuffer: New jitter buffer instance
func NewJitterBufferWithTimeProvider(bufferTime time.Duration, timeProvider TimeProvider) *JitterBuffer {
	return NewJitterBufferWithOptions(bufferTime, DefaultMaxBufferCapacity, timeProvider)
}

// NewJitterBufferWithOptions creates a new jitter buffer with full configuration.
//
// Parameters:
//   - bufferTime: Duration to buffer packets
//   - maxCapacity: Maximum number of packets to buffer (0 uses default)
//   - timeProvider: Provider for time operations (nil uses default)
//
// Returns:
//   - *JitterBuffer: New jitter buffer instance
func NewJitterBufferWithOptions(bufferTime time.Duration, maxCapacity int, timeProvider TimeProvider) *JitterBuffer {
	logrus.WithFields(logrus.Fields{
		"function":     "NewJitterBuffer",
		"buffer_time":  bufferTime.String(),
		"max_capacity": maxCapacity,
	}).Info("Creating new jitter buffer")

	if timeProvider == nil {
		timeProvider = DefaultTimeProvider{}
	}
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferCapacity
	}

	buffer := &JitterBuffer{
		bufferTime:   bufferTime,
		packets:      make([]jitterBufferEntry, 0, maxCapacity),
		maxCapacity:  maxCapacity,
		lastDequeue:  timeProvider.Now(),
		timeProvider: timeProvider,
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewJitterBuffer",
		"buffer_time":  bufferTime.String(),
		"max_capacity": maxCapacity,
	}).Info("Jitter buffer created successfully")

	return buffer
}

// SetTimeProvider sets the time provider for the jitter buffer.
// This allows for deterministic testing by injecting a mock time provider.
func (jb *JitterBuffer) SetTimeProvider(tp TimeProvider) {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	jb.timeProvider = tp
}

// SetMaxCapacity sets the maximum number of packets in the jitter buffer.
// When capacity is exceeded, oldest packets are evicted.
// A value of 0 or negative uses the default capacity.
func (jb *JitterBuffer) SetMaxCapacity(capacity int) {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	if capacity <= 0 {
		capacity = DefaultMaxBufferCapacity
	}
	jb.maxCapacity = capacity
	// Evict excess packets if necessary
	if len(jb.packets) > jb.maxCapacity {
		evicted := len(jb.packets) - jb.maxCapacity
		jb.packets = jb.packets[evicted:]
		logrus.WithFields(logrus.Fields{
			"function":      "JitterBuffer.SetMaxCapacity",
			"evicted_count": evicted,
			"new_capacity":  capacity,
			"current_size":  len(jb.packets),
		}).Debug("Evicted excess packets after capacity change")
	}
}

// Len returns the current number of packets in the buffer.
func (jb *JitterBuffer) Len() int {
	jb.mu.RLock()
	defer jb.mu.RUnlock()
	return len(jb.packets)
}

// Add adds a packet to the jitter buffer.
//
// Packets are inserted in timestamp order. If the buffer is at capacity,
// the oldest packet is evicted to make room.
//
// Parameters:
//   - timestamp: RTP timestamp
//   - data: media payload
func (jb *JitterBuffer) Add(timestamp uint32, data []byte) {
	logrus.WithFields(logrus.Fields{
		"function":  "JitterBuffer.Add",
		"timestamp": timestamp,
		"data_size": len(data),
	}).Debug("Adding packet to jitter buffer")

	jb.mu.Lock()
	defer jb.mu.Unlock()

	entry := jitterBufferEntry{timestamp: timestamp, data: data}

	// Find insertion point using binary search for sorted order
	insertIdx := jb.findInsertIndex(timestamp)

	// If at capacity, evict oldest packet first
	if len(jb.packets) >= jb.maxCapacity {
		evicted := jb.packets[0]
		jb.packets = jb.packets[1:]
		// Adjust insert index after eviction
		if insertIdx > 0 {
			insertIdx--
		}
		logrus.WithFields(logrus.Fields{
			"function":          "JitterBuffer.Add",
			"evicted_timestamp": evicted.timestamp,
			"new_timestamp":     timestamp,
		}).Debug("Evicted oldest packet due to capacity limit")
	}

	// Insert at sorted position
	jb.packets = append(jb.packets, jitterBufferEntry{})
	copy(jb.packets[insertIdx+1:], jb.packets[insertIdx:])
	jb.packets[insertIdx] = entry

	logrus.WithFields(logrus.Fields{
		"function":    "JitterBuffer.Add",
		"timestamp":   timestamp,
		"buffer_size": len(jb.packets),
	}).Debug("Packet added to jitter buffer")
}

// findInsertIndex returns the index where a packet with the given timestamp
// should be inserted to maintain sorted order.
func (jb *JitterBuffer) findInsertIndex(timestamp uint32) int {
	// Binary search for insertion point
	left, right := 0, len(jb.packets)
	for left < right {
		mid := (left + right) / 2
		if jb.packets[mid].timestamp < timestamp {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return left
}

// Get retrieves the next packet from the jitter buffer.
//
// This implements a simple time-based release mechanism.
// Packets are returned in timestamp order (oldest first) after the
// buffer time has elapsed since the last dequeue.
//
// Returns:
//   - []byte: media payload (nil if no data ready)
//   - bool: Whether data was available
func (jb *JitterBuffer) Get() ([]byte, bool) {
	logrus.WithFields(logrus.Fields{
		"function": "JitterBuffer.Get",
	}).Debug("Retrieving packet from jitter buffer")

	jb.mu.Lock()
	defer jb.mu.Unlock()

	// Simple time-based release: wait for buffer time to pass since last dequeue
	timeSinceLastDequeue := jb.timeProvider.Now().Sub(jb.lastDequeue)
	if timeSinceLastDequeue < jb.bufferTime {
		logrus.WithFields(logrus.Fields{
			"function":        "JitterBuffer.Get",
			"time_since_last": timeSinceLastDequeue.String(),
			"buffer_time":     jb.bufferTime.String(),
		}).Debug("Buffer time not elapsed, no packet ready")
		return nil, false
	}

	// Return oldest packet (first in sorted slice) for proper ordering
	if len(jb.packets) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "JitterBuffer.Get",
		}).Debug("No packets available in jitter buffer")
		return nil, false
	}

	// Get oldest packet (lowest timestamp, first in sorted slice)
	entry := jb.packets[0]
	jb.packets = jb.packets[1:]
	jb.lastDequeue = jb.timeProvider.Now()

	logrus.WithFields(logrus.Fields{
		"function":          "JitterBuffer.Get",
		"timestamp":         entry.timestamp,
		"data_size":         len(entry.data),
		"remaining_packets": len(jb.packets),
	}).Debug("Retrieved packet from jitter buffer")

	return entry.data, true
}

// Reset clears the jitter buffer.
func (jb *JitterBuffer) Reset() {
	logrus.WithFields(logrus.Fields{
		"function": "JitterBuffer.Reset",
	}).Info("Resetting jitter buffer")

	jb.mu.Lock()
	defer jb.mu.Unlock()

	packetCount := len(jb.packets)
	jb.packets = make([]jitterBufferEntry, 0, jb.maxCapacity)
	jb.lastDequeue = jb.timeProvider.Now()

	logrus.WithFields(logrus.Fields{
		"function":        "JitterBuffer.Reset",
		"cleared_packets": packetCount,
	}).Info("Jitter buffer reset successfully")
}
