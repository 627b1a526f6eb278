// Package sampler implements the client-side input sampling path (spec
// §4.16): a fixed-cadence poll of controller state, debounced against
// the previous sample, packed into the Input Packet wire format, and
// sent over UDP. Tolerant of reordering and loss: the host treats every
// packet as last-writer-wins, so no sequence numbers are required.
package sampler

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/sirupsen/logrus"
)

// State is one polled controller snapshot, pre-deadzone/pre-mapping —
// the same shape input.Packet decodes, kept local to avoid sampler
// depending on the host-side input package.
type State struct {
	PlayerIndex  uint8
	ButtonFlags  uint16
	LeftStickX   int16
	LeftStickY   int16
	RightStickX  int16
	RightStickY  int16
	LeftTrigger  uint8
	RightTrigger uint8
}

// Source polls the local controller/gamepad hardware (or a test double).
type Source interface {
	Poll() (State, error)
}

// Sender transmits one packed Input Packet payload, normally a UDP
// socket wrapper.
type Sender interface {
	Send(payload []byte) error
}

// Pack encodes a State into the fixed-size Input Packet wire prefix
// (mirrors input.Packet's layout so the host's ParsePacket decodes it
// without modification).
func Pack(s State, timestampMs uint32) []byte {
	buf := make([]byte, 17)
	buf[0] = s.PlayerIndex
	binary.LittleEndian.PutUint16(buf[1:3], s.ButtonFlags)
	binary.LittleEndian.PutUint16(buf[3:5], uint16(s.LeftStickX))
	binary.LittleEndian.PutUint16(buf[5:7], uint16(s.LeftStickY))
	binary.LittleEndian.PutUint16(buf[7:9], uint16(s.RightStickX))
	binary.LittleEndian.PutUint16(buf[9:11], uint16(s.RightStickY))
	buf[11] = s.LeftTrigger
	buf[12] = s.RightTrigger
	binary.LittleEndian.PutUint32(buf[13:17], timestampMs)
	return buf
}

// Sampler polls Source at a fixed cadence and sends a packed Input
// Packet through Sender whenever the polled state differs from the last
// sent state (debounce), so unchanged controller input does not spam the
// control channel.
type Sampler struct {
	source Source
	sender Sender
	period time.Duration

	last    State
	hasLast bool

	samplesSent    uint64
	samplesSkipped uint64
}

// New builds a Sampler polling source and sending through sender every
// period.
func New(source Source, sender Sender, period time.Duration) *Sampler {
	return &Sampler{source: source, sender: sender, period: period}
}

// Run polls and sends until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) {
	logger := logrus.WithFields(logrus.Fields{"function": "Sampler.Run"})
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := s.source.Poll()
			if err != nil {
				logger.WithError(err).Debug("controller poll failed")
				continue
			}

			if s.hasLast && state == s.last {
				s.samplesSkipped++
				continue
			}
			s.last = state
			s.hasLast = true

			payload := Pack(state, uint32(time.Now().UnixMilli()))
			if err := s.sender.Send(payload); err != nil {
				logger.WithError(err).Warn("failed to send input sample")
				continue
			}
			s.samplesSent++
		}
	}
}

// Stats returns send/skip counters.
func (s *Sampler) Stats() (sent, skipped uint64) {
	return s.samplesSent, s.samplesSkipped
}
