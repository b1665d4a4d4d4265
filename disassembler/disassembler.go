// Package disassembler turns a two-byte CHIP-8 instruction into a structured
// record: mnemonic, argument kinds, a rendered source line, and the
// official/unofficial/banned/super-chip classification. It is driven entirely
// by the shared opcode table, so the assembler and the emulator agree with it
// byte for byte.
package disassembler

import (
	"fmt"
	"strings"

	"github.com/bethropolis/chip8toolchain/opcode"
)

// Record describes one decoded instruction.
//
// Op is only meaningful when Valid is true or Banned is true; for data bytes
// and Super-CHIP encodings the mnemonic carries no dispatchable value.
type Record struct {
	Hex        string // 4 lowercase hex digits
	Valid      bool
	Op         opcode.Mnemonic
	Args       []opcode.ArgKind
	Text       string
	Unofficial bool
	Banned     bool
	SuperChip  bool
}

// Disassemble decodes the byte pair (hi, lo) into a Record.
//
// Super-CHIP encodings are flagged but marked invalid: they must never be
// executed. Bytes matching no pattern are data; their Text is the raw hex.
// Banned encodings keep their argument kinds (the emulator still needs them)
// but argument rendering stops, matching the classification-first contract.
func Disassemble(hi, lo byte) Record {
	rec := Record{Hex: fmt.Sprintf("%02x%02x", hi, lo)}

	if opcode.MatchSuperChip(rec.Hex) {
		rec.Op = opcode.SPR
		rec.SuperChip = true
		rec.Text = opcode.SPR.String()
		return rec
	}

	spec, variant, ok := opcode.Match(rec.Hex)
	if !ok {
		rec.Text = rec.Hex
		return rec
	}
	rec.Op = spec.Mnemonic
	rec.Args = variant.Args
	rec.Valid = true

	if variant.Banned(rec.Hex) {
		rec.Banned = true
		return rec
	}
	rec.Unofficial = spec.Unofficial
	rec.Text = render(rec.Hex, spec.Mnemonic, variant)
	return rec
}

// render produces the canonical source spelling: mnemonic padded to 5
// columns, arguments padded to 5 columns and comma-joined, trailing
// whitespace trimmed.
func render(hex string, m opcode.Mnemonic, v opcode.Variant) string {
	if len(v.Args) == 0 {
		return m.String()
	}
	slots, _ := opcode.Slots(v.Pattern, v.Args)
	parts := make([]string, 0, len(v.Args))
	for i, kind := range v.Args {
		parts = append(parts, pad(renderArg(hex, kind, slots[i])))
	}
	line := pad(m.String()) + strings.Join(parts, ",")
	return strings.TrimRight(line, " ")
}

func renderArg(hex string, kind opcode.ArgKind, slot []int) string {
	switch kind {
	case opcode.ArgReg:
		return "v" + string(hex[slot[0]])
	case opcode.ArgByte, opcode.ArgAddr, opcode.ArgNibble:
		var b strings.Builder
		b.WriteByte('#')
		for _, idx := range slot {
			b.WriteByte(hex[idx])
		}
		return b.String()
	default:
		lit, _ := kind.Literal()
		return lit
	}
}

func pad(s string) string {
	if len(s) >= 5 {
		return s
	}
	return s + strings.Repeat(" ", 5-len(s))
}
