package input

import (
	"encoding/binary"
	"time"

	"github.com/opd-ai/dpstream/correlate"
)

// Button bit positions within the Input Packet's button bitmap (spec
// glossary), matching the DolphinButton enumeration order of
// original_source/server/src/input/mapping.rs.
const (
	ButtonA uint16 = 1 << iota
	ButtonB
	ButtonX
	ButtonY
	ButtonZ
	ButtonL
	ButtonR
	ButtonStart
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
)

var buttonNames = []struct {
	bit  uint16
	name string
}{
	{ButtonA, "A"},
	{ButtonB, "B"},
	{ButtonX, "X"},
	{ButtonY, "Y"},
	{ButtonZ, "Z"},
	{ButtonL, "L"},
	{ButtonR, "R"},
	{ButtonStart, "START"},
	{ButtonDPadUp, "DPAD_UP"},
	{ButtonDPadDown, "DPAD_DOWN"},
	{ButtonDPadLeft, "DPAD_LEFT"},
	{ButtonDPadRight, "DPAD_RIGHT"},
}

// Packet is one decoded Input Packet (spec §4.12 wire format): a
// button bitmap, two analog sticks, two analog triggers, and an optional
// motion/touch tail this module does not yet interpret.
type Packet struct {
	PlayerIndex  uint8
	ButtonFlags  uint16
	LeftStickX   int16
	LeftStickY   int16
	RightStickX  int16
	RightStickY  int16
	LeftTrigger  uint8
	RightTrigger uint8
	TimestampMs  uint32
}

// wireLen is the fixed-size prefix every Input Packet carries; any bytes
// beyond this are the optional gyro/accel/touch tail and are currently
// ignored.
const wireLen = 1 + 2 + 2 + 2 + 2 + 2 + 1 + 1 + 4

// ParsePacket decodes the fixed-size prefix of an Input Packet payload.
// Layout: player(1) buttons(2 LE) leftX(2 LE) leftY(2 LE) rightX(2 LE)
// rightY(2 LE) leftTrigger(1) rightTrigger(1) timestampMs(4 LE).
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < wireLen {
		return Packet{}, correlate.New(correlate.KindInput, "input", "packet shorter than fixed prefix")
	}
	p := Packet{
		PlayerIndex:  data[0],
		ButtonFlags:  binary.LittleEndian.Uint16(data[1:3]),
		LeftStickX:   int16(binary.LittleEndian.Uint16(data[3:5])),
		LeftStickY:   int16(binary.LittleEndian.Uint16(data[5:7])),
		RightStickX:  int16(binary.LittleEndian.Uint16(data[7:9])),
		RightStickY:  int16(binary.LittleEndian.Uint16(data[9:11])),
		LeftTrigger:  data[11],
		RightTrigger: data[12],
		TimestampMs:  binary.LittleEndian.Uint32(data[13:17]),
	}
	return p, nil
}

// Age returns how old the packet's embedded timestamp is relative to now,
// used only for diagnostics; injection itself treats every packet as
// last-writer-wins regardless of age (spec §5 "Ordering").
func (p Packet) Age(now time.Time) time.Duration {
	captured := time.UnixMilli(int64(p.TimestampMs))
	return now.Sub(captured)
}
