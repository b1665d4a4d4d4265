// Package opcode is the declarative CHIP-8 instruction table shared by the
// assembler, the disassembler and the emulator core. Nothing in this package
// executes an instruction or parses source text; it only describes the
// 4-hex-digit shape of every encoding so the three consumers stay in sync.
package opcode

// ArgKind is one of the closed set of argument shapes an instruction variant
// can take.
type ArgKind int

const (
	ArgReg    ArgKind = iota // V0-VF, consumes one hex nibble
	ArgAddr                  // 12-bit address, consumes three nibbles
	ArgByte                  // 8-bit immediate, consumes two nibbles
	ArgNibble                // 4-bit immediate, consumes one nibble
	ArgI                     // literal "i" (index register)
	ArgV0                    // literal "v0"
	ArgDT                    // literal "dt"
	ArgST                    // literal "st"
	ArgK                     // literal "k" (any key)
	ArgF                     // literal "f" (font pointer)
	ArgB                     // literal "b" (BCD store)
	ArgIndI                  // literal "[i]"
)

// Width reports how many hex nibbles a positional argument of this kind
// consumes in a 4-digit opcode pattern. Literal kinds consume none: they
// carry no information in the instruction bits beyond the opcode itself.
func (k ArgKind) Width() int {
	switch k {
	case ArgReg, ArgNibble:
		return 1
	case ArgByte:
		return 2
	case ArgAddr:
		return 3
	default:
		return 0
	}
}

// Literal returns the fixed token text this argument kind renders/parses as
// when it consumes no pattern nibbles, and whether it is in fact a literal.
func (k ArgKind) Literal() (string, bool) {
	switch k {
	case ArgI:
		return "i", true
	case ArgV0:
		return "v0", true
	case ArgDT:
		return "dt", true
	case ArgST:
		return "st", true
	case ArgK:
		return "k", true
	case ArgF:
		return "f", true
	case ArgB:
		return "b", true
	case ArgIndI:
		return "[i]", true
	default:
		return "", false
	}
}

// Mnemonic is a closed, tagged enumeration of every CHIP-8 instruction name.
// Dispatch over Mnemonic compiles to a dense jump table, unlike the string
// identity comparisons it replaces.
type Mnemonic int

const (
	CLS Mnemonic = iota
	RET
	SYS
	JP
	CALL
	SE
	SNE
	SKP
	SKNP
	LD
	ADD
	OR
	AND
	XOR
	SUB
	SHR
	SUBN
	SHL
	RND
	DRW
	// SPR is a pseudo-mnemonic for detected Super-CHIP/XO-CHIP encodings.
	// It has no Table entry: it can be reported but never assembled or
	// executed.
	SPR
	mnemonicCount
)

var mnemonicNames = [mnemonicCount]string{
	CLS: "cls", RET: "ret", SYS: "sys", JP: "jp", CALL: "call",
	SE: "se", SNE: "sne", SKP: "skp", SKNP: "sknp", LD: "ld",
	ADD: "add", OR: "or", AND: "and", XOR: "xor", SUB: "sub",
	SHR: "shr", SUBN: "subn", SHL: "shl", RND: "rnd", DRW: "drw",
	SPR: "SPR",
}

// String renders the assembly-source spelling of the mnemonic.
func (m Mnemonic) String() string {
	if m < 0 || m >= mnemonicCount {
		return "???"
	}
	return mnemonicNames[m]
}

// Variant is one concrete encoding shape of a mnemonic.
type Variant struct {
	// Pattern is a 4-character template over {0-9,a-f,.}; '.' marks a
	// wildcard nibble. Lowercase hex only.
	Pattern string
	Args    []ArgKind
	// DestReg is the pattern index (0-3) of the nibble that names the
	// destination V register, or -1 if this variant writes no V register.
	// Used for the banned-if-strict (writes VF) classification.
	DestReg int
}

// Spec is a mnemonic and its ordered list of encoding variants.
type Spec struct {
	Mnemonic   Mnemonic
	Variants   []Variant
	Unofficial bool
}

var destNone = -1

// Table lists every CHIP-8 mnemonic in declaration order. Variants within a
// Spec, and Specs within Table, are tried in order; the first structural
// match wins both for disassembly (pattern match) and assembly (argument-kind
// match). 00e0/00ee are declared ahead of the generic "sys nnn" catch-all so
// the exact encodings win first.
var Table = []Spec{
	{Mnemonic: CLS, Variants: []Variant{{Pattern: "00e0", Args: nil, DestReg: destNone}}},
	{Mnemonic: RET, Variants: []Variant{{Pattern: "00ee", Args: nil, DestReg: destNone}}},
	{Mnemonic: SYS, Variants: []Variant{{Pattern: "0...", Args: []ArgKind{ArgAddr}, DestReg: destNone}}},
	{Mnemonic: JP, Variants: []Variant{
		{Pattern: "1...", Args: []ArgKind{ArgAddr}, DestReg: destNone},
		{Pattern: "b...", Args: []ArgKind{ArgV0, ArgAddr}, DestReg: destNone},
	}},
	{Mnemonic: CALL, Variants: []Variant{{Pattern: "2...", Args: []ArgKind{ArgAddr}, DestReg: destNone}}},
	{Mnemonic: SE, Variants: []Variant{
		{Pattern: "3...", Args: []ArgKind{ArgReg, ArgByte}, DestReg: destNone},
		{Pattern: "5..0", Args: []ArgKind{ArgReg, ArgReg}, DestReg: destNone},
	}},
	{Mnemonic: SNE, Variants: []Variant{
		{Pattern: "4...", Args: []ArgKind{ArgReg, ArgByte}, DestReg: destNone},
		{Pattern: "9..0", Args: []ArgKind{ArgReg, ArgReg}, DestReg: destNone},
	}},
	{Mnemonic: SKP, Variants: []Variant{{Pattern: "e.9e", Args: []ArgKind{ArgReg}, DestReg: destNone}}},
	{Mnemonic: SKNP, Variants: []Variant{{Pattern: "e.a1", Args: []ArgKind{ArgReg}, DestReg: destNone}}},
	{Mnemonic: LD, Variants: []Variant{
		{Pattern: "6...", Args: []ArgKind{ArgReg, ArgByte}, DestReg: 1},
		{Pattern: "8..0", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1},
		{Pattern: "f.07", Args: []ArgKind{ArgReg, ArgDT}, DestReg: 1},
		{Pattern: "f.0a", Args: []ArgKind{ArgReg, ArgK}, DestReg: 1},
		{Pattern: "f.15", Args: []ArgKind{ArgDT, ArgReg}, DestReg: destNone},
		{Pattern: "f.18", Args: []ArgKind{ArgST, ArgReg}, DestReg: destNone},
		{Pattern: "f.29", Args: []ArgKind{ArgF, ArgReg}, DestReg: destNone},
		{Pattern: "f.33", Args: []ArgKind{ArgB, ArgReg}, DestReg: destNone},
		{Pattern: "f.55", Args: []ArgKind{ArgIndI, ArgReg}, DestReg: destNone},
		{Pattern: "f.65", Args: []ArgKind{ArgReg, ArgIndI}, DestReg: 1},
		{Pattern: "a...", Args: []ArgKind{ArgI, ArgAddr}, DestReg: destNone},
	}},
	{Mnemonic: ADD, Variants: []Variant{
		{Pattern: "7...", Args: []ArgKind{ArgReg, ArgByte}, DestReg: 1},
		{Pattern: "8..4", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1},
		{Pattern: "f.1e", Args: []ArgKind{ArgI, ArgReg}, DestReg: destNone},
	}},
	{Mnemonic: OR, Variants: []Variant{{Pattern: "8..1", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1}}},
	{Mnemonic: AND, Variants: []Variant{{Pattern: "8..2", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1}}},
	{Mnemonic: XOR, Variants: []Variant{{Pattern: "8..3", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1}}, Unofficial: true},
	{Mnemonic: SUB, Variants: []Variant{{Pattern: "8..5", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1}}},
	{Mnemonic: SHR, Variants: []Variant{{Pattern: "8..6", Args: []ArgKind{ArgReg}, DestReg: 1}}, Unofficial: true},
	{Mnemonic: SUBN, Variants: []Variant{{Pattern: "8..7", Args: []ArgKind{ArgReg, ArgReg}, DestReg: 1}}, Unofficial: true},
	{Mnemonic: SHL, Variants: []Variant{{Pattern: "8..e", Args: []ArgKind{ArgReg}, DestReg: 1}}, Unofficial: true},
	{Mnemonic: RND, Variants: []Variant{{Pattern: "c...", Args: []ArgKind{ArgReg, ArgByte}, DestReg: 1}}},
	{Mnemonic: DRW, Variants: []Variant{{Pattern: "d...", Args: []ArgKind{ArgReg, ArgReg, ArgNibble}, DestReg: destNone}}},
}

// SuperChipPatterns are opcode shapes belonging to the Super-CHIP/XO-CHIP
// extensions. They must be detected (classified SPR) but never executed;
// checked ahead of Table so e.g. "00fe" is never mistaken for a sys no-op.
var SuperChipPatterns = []string{
	"00c.", // scroll-down n lines
	"00fb", // scroll right 4 pixels
	"00fc", // scroll left 4 pixels
	"00fd", // exit interpreter
	"00fe", // low-res (64x32) mode
	"00ff", // high-res (128x64) mode
	"d..0", // 16x16 sprite draw
	"f.30", // point I at 10-byte hi-res font for digit Vx
	"f.75", // save v0..vx to RPL flags
	"f.85", // restore v0..vx from RPL flags
}

// Banned reports whether a concrete encoding of this variant names VF as its
// destination register. Such encodings clobber the flag register and are
// rejected when strict mode is on.
func (v Variant) Banned(hex string) bool {
	return v.DestReg >= 0 && v.DestReg < len(hex) && hex[v.DestReg] == 'f'
}

// matchPattern reports whether a lowercase 4-hex-digit instruction string
// satisfies a pattern template.
func matchPattern(pattern, hex string) bool {
	if len(pattern) != 4 || len(hex) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if pattern[i] != '.' && pattern[i] != hex[i] {
			return false
		}
	}
	return true
}

// MatchSuperChip reports whether hex (a lowercase 4-hex-digit string) matches
// a Super-CHIP/XO-CHIP pattern.
func MatchSuperChip(hex string) bool {
	for _, p := range SuperChipPatterns {
		if matchPattern(p, hex) {
			return true
		}
	}
	return false
}

// Match finds the first (Spec, Variant) pair whose pattern matches hex, a
// lowercase 4-hex-digit instruction string. ok is false if no variant in the
// table matches, meaning the bytes should be treated as data.
func Match(hex string) (spec Spec, variant Variant, ok bool) {
	for _, s := range Table {
		for _, v := range s.Variants {
			if matchPattern(v.Pattern, hex) {
				return s, v, true
			}
		}
	}
	return Spec{}, Variant{}, false
}

// Lookup returns the Spec for a mnemonic by name (assembler source tokens are
// case-folded to lowercase before calling this).
func Lookup(name string) (Spec, bool) {
	for _, s := range Table {
		if s.Mnemonic.String() == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Slots computes, for a variant's pattern, the nibble indices (0-3) each
// positional argument occupies, plus any wildcard nibbles left unclaimed by
// an argument (e.g. the Vy nibble of the one-operand "shr Vx" encoding).
// Disassembler rendering and assembler encoding both call this so the two
// halves of the table never drift apart.
func Slots(pattern string, args []ArgKind) (slots [][]int, leftover []int) {
	var wildcards []int
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '.' {
			wildcards = append(wildcards, i)
		}
	}
	used := make(map[int]bool, len(wildcards))
	slots = make([][]int, len(args))
	cursor := 0
	for i, a := range args {
		w := a.Width()
		idxs := make([]int, 0, w)
		for j := 0; j < w && cursor < len(wildcards); j++ {
			idxs = append(idxs, wildcards[cursor])
			used[wildcards[cursor]] = true
			cursor++
		}
		slots[i] = idxs
	}
	for _, w := range wildcards {
		if !used[w] {
			leftover = append(leftover, w)
		}
	}
	return slots, leftover
}
