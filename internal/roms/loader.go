// Package roms handles finding and loading ROM files for the emulator CLI.
package roms

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bethropolis/chip8toolchain/chip8"
)

// Loader lists and reads ROM images from a directory.
type Loader struct {
	RomsDir string
}

// NewLoader creates a new ROM loader, creating the directory if needed.
func NewLoader(romsDir string) *Loader {
	if _, err := os.Stat(romsDir); os.IsNotExist(err) {
		os.Mkdir(romsDir, 0755)
	}
	return &Loader{RomsDir: romsDir}
}

// List returns the ROM filenames in the configured directory.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.RomsDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading ROMs directory")
	}

	var romNames []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if !entry.IsDir() && (strings.HasSuffix(name, ".ch8") || strings.HasSuffix(name, ".c8") || strings.HasSuffix(name, ".bin")) {
			romNames = append(romNames, entry.Name())
		}
	}
	return romNames, nil
}

// LoadFromDir loads a ROM by its filename from the configured directory.
func (l *Loader) LoadFromDir(filename string) ([]byte, error) {
	return l.LoadFromPath(filepath.Join(l.RomsDir, filename))
}

// LoadFromPath loads a ROM from a file path, rejecting images larger than
// the interpreter can hold.
func (l *Loader) LoadFromPath(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading ROM file %s", path)
	}
	if len(data) > chip8.MaxROMSize {
		return nil, errors.Wrapf(&chip8.RomLoadError{Size: len(data)}, "ROM file %s", path)
	}
	return data, nil
}
