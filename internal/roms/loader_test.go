package roms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/chip8toolchain/chip8"
)

func TestListFiltersROMFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pong.ch8", "maze.c8", "out.bin", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0x00, 0xE0}, 0644))
	}

	names, err := NewLoader(dir).List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"pong.ch8", "maze.c8", "out.bin"}, names)
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pong.ch8")
	require.NoError(t, os.WriteFile(path, []byte{0x12, 0x00}, 0644))

	data, err := NewLoader(dir).LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x00}, data)

	_, err = NewLoader(dir).LoadFromPath(filepath.Join(dir, "missing.ch8"))
	require.Error(t, err)
}

func TestLoadFromPathRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.ch8")
	require.NoError(t, os.WriteFile(path, make([]byte, chip8.MaxROMSize+1), 0644))

	_, err := NewLoader(dir).LoadFromPath(path)
	require.Error(t, err)
	var romErr *chip8.RomLoadError
	require.True(t, errors.As(err, &romErr))
}
