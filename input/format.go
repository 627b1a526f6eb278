package input

import (
	"fmt"
	"strings"
)

// center is the formatted byte value an analog axis at rest (raw 0)
// maps to: floor((0.0+1)*127.5) = 127, per spec §8 boundary behavior
// ("centre (0.0) maps to 127, not 128").
const center = 127

// mapAxis converts a signed 16-bit stick axis to the [0,255] byte the
// emulator command protocol expects, using the (v+1)*127.5 rule from
// spec §8. Positive raw values normalize against int16 max (32767) so
// the positive endpoint reaches exactly 1.0 and maps to 255; negative
// values normalize against int16 min (-32768) so the negative endpoint
// reaches exactly -1.0 and maps to 0.
func mapAxis(raw int16) uint8 {
	var v float64
	if raw >= 0 {
		v = float64(raw) / 32767.0
	} else {
		v = float64(raw) / 32768.0
	}
	scaled := (v + 1) * 127.5
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 255 {
		scaled = 255
	}
	return uint8(scaled)
}

// FormatCommands renders an Input Packet into the ordered, deterministic
// command strings the emulator's stdio control interface accepts (spec
// §4.12, §8 scenario 4): one BUTTON line per pressed button in bit order,
// then ANALOG lines for any stick deviated from rest, then a TRIGGER
// line whenever either trigger is pressed. Same input always yields the
// same byte-identical output.
func FormatCommands(p Packet) []string {
	var cmds []string

	for _, b := range buttonNames {
		if p.ButtonFlags&b.bit != 0 {
			cmds = append(cmds, fmt.Sprintf("BUTTON %d %s PRESS", p.PlayerIndex, b.name))
		}
	}

	mainX, mainY := mapAxis(p.LeftStickX), mapAxis(p.LeftStickY)
	if mainX != center || mainY != center {
		cmds = append(cmds, fmt.Sprintf("ANALOG %d MAIN %d %d", p.PlayerIndex, mainX, mainY))
	}

	cX, cY := mapAxis(p.RightStickX), mapAxis(p.RightStickY)
	if cX != center || cY != center {
		cmds = append(cmds, fmt.Sprintf("ANALOG %d C %d %d", p.PlayerIndex, cX, cY))
	}

	if p.LeftTrigger != 0 || p.RightTrigger != 0 {
		cmds = append(cmds, fmt.Sprintf("TRIGGER %d %d %d", p.PlayerIndex, p.LeftTrigger, p.RightTrigger))
	}

	return cmds
}

// FormatCommandLines joins FormatCommands with newlines, the form written
// directly to the emulator's stdin pipe.
func FormatCommandLines(p Packet) string {
	return strings.Join(FormatCommands(p), "\n")
}
