// Package config persists the emulator's host-side configuration: clock
// speed, quirk toggles, strict mode, and the keyboard-to-keypad mapping.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bethropolis/chip8toolchain/chip8"
)

// Settings is the on-disk configuration record.
type Settings struct {
	ClockSpeed         int            `json:"clockSpeed"`
	SetVFOnGfxOverflow bool           `json:"setVFOnGfxOverflow"`
	EnableLegacyShift  bool           `json:"enableLegacyShift"`
	LegacyStackInRAM   bool           `json:"legacyStackInRAM"`
	Strict             bool           `json:"strict"`
	RomsPath           string         `json:"romsPath"`
	KeyMap             map[string]int `json:"keyMap"`
}

/*
DefaultSettings returns a new Settings object with default values. All
quirks are off; the keypad follows the conventional 4x4 QWERTY block.
*/
func DefaultSettings() Settings {
	return Settings{
		ClockSpeed: 60,
		RomsPath:   "./roms",
		KeyMap: map[string]int{
			"1": 0x1, "2": 0x2, "3": 0x3, "4": 0xc,
			"q": 0x4, "w": 0x5, "e": 0x6, "r": 0xd,
			"a": 0x7, "s": 0x8, "d": 0x9, "f": 0xe,
			"z": 0xa, "x": 0x0, "c": 0xb, "v": 0xf,
		},
	}
}

// Chip8Config converts persisted settings into the interpreter's runtime
// configuration.
func (s Settings) Chip8Config() chip8.Config {
	cfg := chip8.DefaultConfig()
	if s.ClockSpeed > 0 {
		cfg.CPUHz = s.ClockSpeed
	}
	cfg.SetVFOnGfxOverflow = s.SetVFOnGfxOverflow
	cfg.EnableLegacyShift = s.EnableLegacyShift
	cfg.LegacyStackInRAM = s.LegacyStackInRAM
	cfg.Strict = s.Strict
	return cfg
}

type Manager struct {
	path string
}

/*
NewManager creates a new settings Manager for the given file path.
*/
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// DefaultPath places the settings file under the user's config directory.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locating user config dir")
	}
	return filepath.Join(configDir, "chip8toolchain", "settings.json"), nil
}

/*
Load reads settings from the file system. If the file doesn't exist,
it creates one with default settings. An unparsable file falls back to
defaults rather than aborting the run.
*/
func (m *Manager) Load() (Settings, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			s := DefaultSettings()
			err := m.Save(s)
			return s, err
		}
		return Settings{}, errors.Wrap(err, "reading settings file")
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), nil
	}
	if s.ClockSpeed == 0 {
		s.ClockSpeed = 60
	}
	if s.RomsPath == "" {
		s.RomsPath = "./roms"
	}
	return s, nil
}

/*
Save writes the given settings to the file system.
*/
func (m *Manager) Save(s Settings) error {
	configDir := filepath.Dir(m.path)
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return errors.Wrap(err, "creating config directory")
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling settings")
	}

	return os.WriteFile(m.path, data, 0644)
}
