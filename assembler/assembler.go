// Package assembler translates CHIP-8 assembly source into a flat binary
// image, two bytes per instruction, big-endian. It runs the classic two
// passes: the first tokenizes every line and assigns memory addresses
// (recording label definitions on the way), the second resolves each
// mnemonic against the shared opcode table and substitutes argument nibbles
// into the matched pattern. Listing and comment-stripped renditions of the
// source are available after assembly.
package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bethropolis/chip8toolchain/opcode"
)

const (
	// ProgramStart is where the CHIP-8 interpreter loads a ROM.
	ProgramStart = 0x200

	commentChar = ';'
	hexEscape   = '#'
)

// Assembler holds per-run state. A zero-value Assembler is not usable; call
// New. Set Strict before Assemble to reject unofficial mnemonics and any
// encoding whose destination register is VF.
type Assembler struct {
	Strict bool

	collection []*tokenLine
	labels     map[string]uint16
	addr       uint16
}

// New creates an Assembler with the program counter parked at the standard
// load address.
func New() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
		addr:   ProgramStart,
	}
}

// Assemble runs both passes over src. It stops at the first malformed line,
// returning a *ParseError or *UnknownMnemonicArgsError describing it. On
// success Binary, Listing and Stripped render the results.
func (a *Assembler) Assemble(src string) error {
	a.collection = a.collection[:0]
	a.labels = make(map[string]uint16)
	a.addr = ProgramStart

	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	// Pass one: tokenize and address.
	for i, raw := range lines {
		tl, err := tokenize(raw, i+1)
		if err != nil {
			return err
		}
		a.collection = append(a.collection, tl)
		if tl.Empty {
			continue
		}
		if err := a.assignAddress(tl); err != nil {
			return err
		}
	}

	// Pass two: encode.
	for _, tl := range a.collection {
		if tl.Empty {
			continue
		}
		if err := a.encodeInstruction(tl); err != nil {
			return err
		}
		if err := a.encodeData(tl); err != nil {
			return err
		}
	}
	return nil
}

// assignAddress records any label on the line and advances the current
// address by the line's footprint: two bytes for an instruction, width times
// value count for a data declaration.
func (a *Assembler) assignAddress(tl *tokenLine) error {
	if tl.Label != "" {
		if _, dup := a.labels[tl.Label]; dup {
			return &ParseError{Line: tl.Number, Kind: DuplicateLabel, Detail: tl.Label}
		}
		a.labels[tl.Label] = a.addr
	}
	switch {
	case tl.Mnemonic != "":
		if _, ok := opcode.Lookup(tl.Mnemonic); !ok {
			return &ParseError{Line: tl.Number, Kind: UnknownMnemonic, Detail: tl.Mnemonic}
		}
		if len(tl.Args) > 3 {
			return &ParseError{Line: tl.Number, Kind: ArgCountMismatch, Detail: tl.Mnemonic}
		}
		tl.Addr = a.addr
		tl.HasAddr = true
		a.addr += 2
	case tl.DataSize != 0:
		tl.Addr = a.addr
		tl.HasAddr = true
		a.addr += uint16(tl.DataSize * len(tl.DataVals))
	}
	return nil
}

// encodeInstruction resolves the mnemonic against the opcode table: variants
// are tried in declaration order and the first whose argument kinds accept
// the provided tokens wins.
func (a *Assembler) encodeInstruction(tl *tokenLine) error {
	if tl.Mnemonic == "" {
		return nil
	}
	spec, _ := opcode.Lookup(tl.Mnemonic)
	if a.Strict && spec.Unofficial {
		return &ParseError{Line: tl.Number, Kind: UnknownMnemonic, Detail: tl.Mnemonic + " (unofficial, strict mode)"}
	}

	for _, variant := range spec.Variants {
		if len(variant.Args) != len(tl.Args) {
			continue
		}
		hex, ok := a.encodeVariant(variant, tl.Args)
		if !ok {
			continue
		}
		if a.Strict && variant.Banned(hex) {
			return &UnknownMnemonicArgsError{Line: tl.Number}
		}
		v, err := strconv.ParseUint(hex, 16, 16)
		if err != nil {
			return &ParseError{Line: tl.Number, Kind: BadHexLiteral, Detail: hex}
		}
		tl.Instruction = uint16(v)
		tl.HasInstruction = true
		return nil
	}
	return &UnknownMnemonicArgsError{Line: tl.Number}
}

// encodeVariant substitutes the argument tokens into the variant's pattern
// wildcards. Wildcard nibbles no argument claims (the Vy nibble of the
// one-operand shift encodings) are filled with the last register digit, so
// the shifted register reads the same under the legacy-shift quirk.
func (a *Assembler) encodeVariant(variant opcode.Variant, args []string) (string, bool) {
	out := []byte(variant.Pattern)
	slots, leftover := opcode.Slots(variant.Pattern, variant.Args)
	regDigit := byte('0')

	for i, kind := range variant.Args {
		digits, ok := a.encodeArg(kind, args[i])
		if !ok {
			return "", false
		}
		for j, idx := range slots[i] {
			out[idx] = digits[j]
		}
		if kind == opcode.ArgReg && len(digits) == 1 {
			regDigit = digits[0]
		}
	}
	for _, idx := range leftover {
		out[idx] = regDigit
	}
	return string(out), true
}

// encodeArg validates one argument token against the kind the variant
// expects and returns the hex digits it contributes, width nibbles long.
func (a *Assembler) encodeArg(kind opcode.ArgKind, token string) ([]byte, bool) {
	if lit, isLit := kind.Literal(); isLit {
		return nil, token == lit
	}
	switch kind {
	case opcode.ArgReg:
		if len(token) == 2 && token[0] == 'v' && isHexDigit(token[1]) {
			return []byte{token[1]}, true
		}
	case opcode.ArgAddr:
		if len(token) == 4 && token[0] == hexEscape && allHexDigits(token[1:]) {
			return []byte(token[1:]), true
		}
		if addr, ok := a.labels[token]; ok {
			return []byte(fmt.Sprintf("%03x", addr&0xFFF)), true
		}
	case opcode.ArgByte:
		if len(token) == 3 && token[0] == hexEscape && allHexDigits(token[1:]) {
			return []byte(token[1:]), true
		}
		if n, err := strconv.Atoi(token); err == nil && n >= 0 && n <= 255 {
			return []byte(fmt.Sprintf("%02x", n)), true
		}
	case opcode.ArgNibble:
		if len(token) == 2 && token[0] == hexEscape && isHexDigit(token[1]) {
			return []byte{token[1]}, true
		}
	}
	return nil, false
}

// encodeData parses every value of a data declaration into an integer no
// wider than the directive allows.
func (a *Assembler) encodeData(tl *tokenLine) error {
	if tl.DataSize == 0 {
		return nil
	}
	limit := uint64(1) << (8 * uint(tl.DataSize))
	for _, raw := range tl.DataVals {
		var val uint64
		switch {
		case raw != "" && raw[0] == hexEscape:
			digits := raw[1:]
			if len(digits) != 2*tl.DataSize || !allHexDigits(digits) {
				return &ParseError{Line: tl.Number, Kind: BadDataLiteral, Detail: raw}
			}
			v, err := strconv.ParseUint(digits, 16, 64)
			if err != nil {
				return &ParseError{Line: tl.Number, Kind: BadHexLiteral, Detail: raw}
			}
			val = v
		default:
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return &ParseError{Line: tl.Number, Kind: BadDataLiteral, Detail: raw}
			}
			val = v
		}
		if val >= limit {
			return &ParseError{Line: tl.Number, Kind: DataDeclarationOverflow, Detail: raw}
		}
		tl.DataInts = append(tl.DataInts, uint32(val))
	}
	return nil
}

// Binary renders the assembled image: instructions and data values in source
// order, big-endian.
func (a *Assembler) Binary() []byte {
	var out []byte
	for _, tl := range a.collection {
		switch {
		case tl.HasInstruction:
			out = append(out, byte(tl.Instruction>>8), byte(tl.Instruction))
		case len(tl.DataInts) > 0:
			for _, v := range tl.DataInts {
				for shift := (tl.DataSize - 1) * 8; shift >= 0; shift -= 8 {
					out = append(out, byte(v>>uint(shift)))
				}
			}
		}
	}
	return out
}

// Listing renders the source annotated with addresses and encodings. Data
// declarations show only their address (their encoded width varies); empty
// and label-only lines show neither.
func (a *Assembler) Listing() string {
	var b strings.Builder
	for _, tl := range a.collection {
		switch {
		case tl.HasInstruction:
			fmt.Fprintf(&b, "0x%04x    0x%04x    %s\n", tl.Addr, tl.Instruction, tl.Original)
		case len(tl.DataInts) > 0:
			fmt.Fprintf(&b, "0x%04x%s%s\n", tl.Addr, strings.Repeat(" ", 14), tl.Original)
		default:
			fmt.Fprintf(&b, "%s%s\n", strings.Repeat(" ", 20), tl.Original)
		}
	}
	return b.String()
}

// Stripped renders every non-empty line with its comment removed and
// trailing whitespace trimmed.
func (a *Assembler) Stripped() string {
	var b strings.Builder
	for _, tl := range a.collection {
		if tl.Empty {
			continue
		}
		text := tl.Original
		if i := strings.IndexByte(text, commentChar); i >= 0 {
			text = text[:i]
		}
		b.WriteString(strings.TrimRight(text, " \t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// Labels returns a copy of the label map built by pass one.
func (a *Assembler) Labels() map[string]uint16 {
	out := make(map[string]uint16, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func allHexDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}
