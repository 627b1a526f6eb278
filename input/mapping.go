package input

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/opd-ai/dpstream/correlate"
)

// ConsoleType names the emulated console family a mapping targets.
type ConsoleType string

const (
	ConsoleGameCube ConsoleType = "GameCube"
	ConsoleWii      ConsoleType = "Wii"
	ConsoleWiiU     ConsoleType = "WiiU"
)

// Mapping is a controller mapping record (spec §6 persisted state):
// plain, round-trippable JSON, a button-name map, analog sensitivities,
// and motion/vibration toggles. Grounded on
// original_source/server/src/input/mapping.rs's ControllerMapping.
type Mapping struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ConsoleType ConsoleType        `json:"console_type"`
	Buttons     map[string]string `json:"buttons"`

	MainStickSensitivity float64 `json:"main_stick_sensitivity"`
	CStickSensitivity    float64 `json:"c_stick_sensitivity"`
	TriggerSensitivity   float64 `json:"trigger_sensitivity"`

	Deadzone          float64 `json:"deadzone"`
	VibrationStrength float64 `json:"vibration_strength"`
	InvertY           bool    `json:"invert_y"`

	EnableGyro      bool    `json:"enable_gyro"`
	EnableTouch     bool    `json:"enable_touch"`
	GyroSensitivity float64 `json:"gyro_sensitivity"`
}

// Validate checks that deadzone and vibration strength fall within
// [0,1]. The sensitivity fields are not range-checked.
func (m Mapping) Validate() error {
	if m.Deadzone < 0 || m.Deadzone > 1 {
		return correlate.New(correlate.KindConfiguration, "input", "deadzone out of range [0,1]")
	}
	if m.VibrationStrength < 0 || m.VibrationStrength > 1 {
		return correlate.New(correlate.KindConfiguration, "input", "vibration strength out of range [0,1]")
	}
	return nil
}

// DefaultGameCubeMapping mirrors mapping.rs's default_gamecube().
func DefaultGameCubeMapping() Mapping {
	return Mapping{
		Name:                 "Default GameCube",
		Description:          "Standard GameCube controller mapping",
		ConsoleType:          ConsoleGameCube,
		Buttons:              map[string]string{"a": "A", "b": "B", "x": "X", "y": "Y", "z": "Z", "l": "L", "r": "R", "start": "START"},
		MainStickSensitivity: 1.0,
		CStickSensitivity:    1.0,
		TriggerSensitivity:   1.0,
		Deadzone:             0.1,
		VibrationStrength:    1.0,
	}
}

// DefaultWiiRemoteMapping mirrors mapping.rs's default_wii_remote().
func DefaultWiiRemoteMapping() Mapping {
	return Mapping{
		Name:                 "Default Wii Remote",
		Description:          "Standard Wii Remote with pointer support",
		ConsoleType:          ConsoleWii,
		Buttons:              map[string]string{"a": "A", "b": "B", "x": "Y", "y": "X", "z": "Z", "l": "L", "r": "R", "start": "START"},
		MainStickSensitivity: 0.8,
		CStickSensitivity:    0.8,
		TriggerSensitivity:   1.0,
		Deadzone:             0.05,
		VibrationStrength:    0.8,
		EnableGyro:           true,
		EnableTouch:          true,
		GyroSensitivity:      2.0,
	}
}

// SaveMapping writes m as pretty JSON to path, creating parent
// directories as needed (grounded on crypto/keystore.go's
// MkdirAll-then-write pattern, without the encryption layer since
// mappings are not sensitive material).
func SaveMapping(path string, m Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return correlate.Wrap(correlate.KindIO, "input", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return correlate.Wrap(correlate.KindSerialization, "input", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return correlate.Wrap(correlate.KindIO, "input", err)
	}
	return nil
}

// LoadMapping reads a Mapping from path, falling back to def if the file
// does not exist (spec §6: "absent profiles fall back to defaults").
func LoadMapping(path string, def Mapping) (Mapping, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return def, nil
	}
	if err != nil {
		return Mapping{}, correlate.Wrap(correlate.KindIO, "input", err)
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return Mapping{}, correlate.Wrap(correlate.KindSerialization, "input", err)
	}
	return m, nil
}
