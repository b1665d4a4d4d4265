// chip8run executes a CHIP-8 ROM headlessly. Rendering, audio, and keyboard
// hosts are expected to wrap the chip8 package themselves; this command is
// the reference driver: it runs the interpreter at the target frequency and
// prints a state snapshot when the program halts.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/bethropolis/chip8toolchain/chip8"
	"github.com/bethropolis/chip8toolchain/internal/config"
	"github.com/bethropolis/chip8toolchain/internal/roms"
)

const (
	exitUserError     = 1
	exitInternalError = 2
)

func main() {
	var freq int

	rootCmd := &cobra.Command{
		Use:           "chip8run <rom>",
		Short:         "Run a CHIP-8 ROM",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emulate(args[0], freq)
		},
	}
	rootCmd.Flags().IntVarP(&freq, "frequency", "f", 60, "target CPU frequency in Hz")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chip8run: %v\n", err)
		if _, ok := err.(*chip8.InvalidInstructionError); ok {
			os.Exit(exitInternalError)
		}
		os.Exit(exitUserError)
	}
}

func emulate(romPath string, freq int) error {
	settings := loadSettings()
	cfg := settings.Chip8Config()
	cfg.CPUHz = freq
	cfg.AudioHz = freq
	cfg.DelayHz = freq

	logger := log.New(os.Stderr, "", log.Ltime)
	cpu := chip8.New(
		chip8.WithConfig(cfg),
		chip8.WithLogger(func(level, msg string) {
			logger.Printf("[%s] %s", level, msg)
		}),
	)

	data, err := roms.NewLoader(settings.RomsPath).LoadFromPath(romPath)
	if err != nil {
		return err
	}
	if err := cpu.LoadROM(data); err != nil {
		return err
	}
	cpu.IsRunning = true

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for cpu.IsRunning && !cpu.Spinning {
		select {
		case <-interrupt:
			cpu.IsRunning = false
		default:
		}
		if err := cpu.Run(); err != nil {
			printState(cpu)
			return err
		}
		time.Sleep(time.Millisecond)
	}

	printState(cpu)
	return nil
}

func loadSettings() config.Settings {
	path, err := config.DefaultPath()
	if err != nil {
		return config.DefaultSettings()
	}
	settings, err := config.NewManager(path).Load()
	if err != nil {
		return config.DefaultSettings()
	}
	return settings
}

func printState(cpu *chip8.Chip8) {
	s := cpu.Snapshot()
	fmt.Printf("PC=%#06x I=%#05x SP=%d DT=%d ST=%d spinning=%v\n",
		s.PC, s.I, s.SP, s.DelayTimer, s.SoundTimer, s.Spinning)
	for i, v := range s.Registers {
		fmt.Printf("v%x=%#04x ", i, v)
		if i%8 == 7 {
			fmt.Println()
		}
	}
	for _, line := range s.Disassembly {
		fmt.Println(line)
	}
}
