package input

import (
	"context"
	"io"

	"github.com/opd-ai/dpstream/correlate"
	"github.com/sirupsen/logrus"
)

// Injector consumes decoded Input Packets from a channel and writes the
// formatted emulator commands to a stdio pipe, one worker goroutine per
// session. Grounded on av/manager.go's per-call worker-goroutine pattern
// (one goroutine servicing one channel, with a health counter instead of
// a callback-based keepalive since this is a write-only pipe).
type Injector struct {
	writer io.Writer

	packetsWritten uint64
	writeErrors    uint64
}

// NewInjector wires an Injector to the emulator's stdin (or a test
// double).
func NewInjector(writer io.Writer) *Injector {
	return &Injector{writer: writer}
}

// Stats are the Injector's health counters.
type Stats struct {
	PacketsWritten uint64
	WriteErrors    uint64
}

// Stats returns a snapshot of the Injector's counters.
func (inj *Injector) Stats() Stats {
	return Stats{PacketsWritten: inj.packetsWritten, WriteErrors: inj.writeErrors}
}

// Inject formats and writes one packet's commands immediately. Packets
// are last-writer-wins: the Injector applies no reordering or
// deduplication, matching spec §5's "Input packets ... treated as
// last-writer-wins by the injector."
func (inj *Injector) Inject(p Packet) error {
	cmds := FormatCommands(p)
	if len(cmds) == 0 {
		return nil
	}
	line := FormatCommandLines(p) + "\n"
	if _, err := io.WriteString(inj.writer, line); err != nil {
		inj.writeErrors++
		return correlate.Wrap(correlate.KindInput, "input", err)
	}
	inj.packetsWritten++
	return nil
}

// Run drains raw Input Packet payloads from incoming until ctx is
// canceled or the channel closes, parsing and injecting each.
func (inj *Injector) Run(ctx context.Context, incoming <-chan []byte) {
	logger := logrus.WithFields(logrus.Fields{"function": "Injector.Run"})
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-incoming:
			if !ok {
				return
			}
			p, err := ParsePacket(raw)
			if err != nil {
				logger.WithError(err).Debug("discarding malformed input packet")
				continue
			}
			if err := inj.Inject(p); err != nil {
				logger.WithError(err).Warn("failed to write input command")
			}
		}
	}
}
