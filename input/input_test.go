package input

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePacket(p Packet) []byte {
	buf := make([]byte, wireLen)
	buf[0] = p.PlayerIndex
	binary.LittleEndian.PutUint16(buf[1:3], p.ButtonFlags)
	binary.LittleEndian.PutUint16(buf[3:5], uint16(p.LeftStickX))
	binary.LittleEndian.PutUint16(buf[5:7], uint16(p.LeftStickY))
	binary.LittleEndian.PutUint16(buf[7:9], uint16(p.RightStickX))
	binary.LittleEndian.PutUint16(buf[9:11], uint16(p.RightStickY))
	buf[11] = p.LeftTrigger
	buf[12] = p.RightTrigger
	binary.LittleEndian.PutUint32(buf[13:17], p.TimestampMs)
	return buf
}

func TestParsePacketRoundTrip(t *testing.T) {
	p := Packet{PlayerIndex: 1, ButtonFlags: ButtonA, LeftStickX: -32768, LeftStickY: 32767, LeftTrigger: 255, TimestampMs: 1234}
	parsed, err := ParsePacket(encodePacket(p))
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
}

func TestParsePacketRejectsShort(t *testing.T) {
	_, err := ParsePacket([]byte{1, 2, 3})
	assert.Error(t, err)
}

// TestScenario4InputMappingLiteral reproduces the exact literal from
// spec §8 scenario 4.
func TestScenario4InputMappingLiteral(t *testing.T) {
	p := Packet{
		PlayerIndex:  1,
		ButtonFlags:  0x0001, // A
		LeftStickX:   -32768,
		LeftStickY:   32767,
		LeftTrigger:  255,
		RightTrigger: 0,
	}
	cmds := FormatCommands(p)
	require.Equal(t, []string{
		"BUTTON 1 A PRESS",
		"ANALOG 1 MAIN 0 255",
		"TRIGGER 1 255 0",
	}, cmds)
}

func TestFormatCommandsDeterministic(t *testing.T) {
	p := Packet{PlayerIndex: 2, ButtonFlags: ButtonA | ButtonB, LeftStickX: 100, LeftStickY: -100}
	first := FormatCommands(p)
	second := FormatCommands(p)
	assert.Equal(t, first, second)
}

func TestMapAxisBoundaries(t *testing.T) {
	assert.Equal(t, uint8(0), mapAxis(-32768))
	assert.Equal(t, uint8(255), mapAxis(32767))
	assert.Equal(t, uint8(127), mapAxis(0))
}

func TestFormatCommandsOmitsCenteredAnalog(t *testing.T) {
	p := Packet{PlayerIndex: 1, ButtonFlags: ButtonA}
	cmds := FormatCommands(p)
	assert.Equal(t, []string{"BUTTON 1 A PRESS"}, cmds)
}

func TestInjectorWritesFormattedCommands(t *testing.T) {
	var buf bytes.Buffer
	inj := NewInjector(&buf)

	p := Packet{PlayerIndex: 1, ButtonFlags: ButtonA, LeftStickX: -32768, LeftStickY: 32767, LeftTrigger: 255}
	require.NoError(t, inj.Inject(p))

	assert.Contains(t, buf.String(), "BUTTON 1 A PRESS")
	assert.Equal(t, uint64(1), inj.Stats().PacketsWritten)
}

func TestInjectorSkipsEmptyCommandSet(t *testing.T) {
	var buf bytes.Buffer
	inj := NewInjector(&buf)

	require.NoError(t, inj.Inject(Packet{PlayerIndex: 1}))
	assert.Empty(t, buf.String())
	assert.Equal(t, uint64(0), inj.Stats().PacketsWritten)
}

func TestMappingSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")

	m := DefaultGameCubeMapping()
	require.NoError(t, SaveMapping(path, m))

	loaded, err := LoadMapping(path, Mapping{})
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestLoadMappingFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	def := DefaultWiiRemoteMapping()
	loaded, err := LoadMapping(filepath.Join(dir, "missing.json"), def)
	require.NoError(t, err)
	assert.Equal(t, def, loaded)
}

func TestMappingValidateRejectsOutOfRange(t *testing.T) {
	m := DefaultGameCubeMapping()
	m.Deadzone = 1.5
	assert.Error(t, m.Validate())
}

func TestDefaultProfilesCoverKnownGames(t *testing.T) {
	profiles := DefaultProfiles()
	for _, id := range []string{"GALE01", "GM4E01", "RSBE01"} {
		p, ok := profiles[id]
		require.True(t, ok, id)
		assert.Equal(t, id, p.GameID)
	}
}

func TestProfileForGameFallsBackForUnknownID(t *testing.T) {
	p, err := ProfileForGame("", "UNKNOWNID")
	require.NoError(t, err)
	assert.Equal(t, ConsoleGameCube, p.ConsoleType)
}
