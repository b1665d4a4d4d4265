// chip8asm assembles CHIP-8 source files into ROM images, with optional
// listing and comment-stripped outputs.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bethropolis/chip8toolchain/assembler"
)

const (
	exitUserError     = 1
	exitInternalError = 2
)

func main() {
	var output string
	var listing bool
	var strip bool
	var strict bool

	rootCmd := &cobra.Command{
		Use:           "chip8asm <input>",
		Short:         "Assemble CHIP-8 programs to executable machine code",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return assemble(args[0], output, listing, strip, strict)
		},
	}
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "binary output path (default: input with .src stripped, else input + .bin)")
	rootCmd.Flags().BoolVarP(&listing, "list", "l", false, "also write an OUTPUT.lst listing file")
	rootCmd.Flags().BoolVarP(&strip, "strip", "s", false, "also write an OUTPUT.strip comment-stripped file")
	rootCmd.Flags().BoolVarP(&strict, "enforce", "e", false, "strict mode: reject unofficial mnemonics and encodings writing VF")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chip8asm: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func assemble(input, output string, listing, strip, strict bool) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return errors.Wrap(err, "reading source file")
	}

	asm := assembler.New()
	asm.Strict = strict
	if err := asm.Assemble(string(src)); err != nil {
		return err
	}

	if output == "" {
		output = defaultOutput(input)
	}
	if err := os.WriteFile(output, asm.Binary(), 0644); err != nil {
		return errors.Wrap(err, "writing binary")
	}
	if listing {
		if err := os.WriteFile(output+".lst", []byte(asm.Listing()), 0644); err != nil {
			return errors.Wrap(err, "writing listing")
		}
	}
	if strip {
		if err := os.WriteFile(output+".strip", []byte(asm.Stripped()), 0644); err != nil {
			return errors.Wrap(err, "writing stripped source")
		}
	}
	return nil
}

// defaultOutput strips a .src suffix from the input path, or appends .bin.
func defaultOutput(input string) string {
	if strings.HasSuffix(input, ".src") {
		return strings.TrimSuffix(input, ".src")
	}
	return input + ".bin"
}

// exitCode maps user-facing failures (bad files, malformed source) to 1 and
// anything else to 2.
func exitCode(err error) int {
	var parseErr *assembler.ParseError
	var argsErr *assembler.UnknownMnemonicArgsError
	if errors.As(err, &parseErr) || errors.As(err, &argsErr) || os.IsNotExist(errors.Cause(err)) {
		return exitUserError
	}
	if _, ok := errors.Cause(err).(*os.PathError); ok {
		return exitUserError
	}
	return exitInternalError
}
