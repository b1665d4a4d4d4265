package assembler

import "strings"

// tokenLine is one source line carried through both assembler passes. Pass 1
// fills the token fields and Addr; pass 2 fills Instruction or DataInts.
type tokenLine struct {
	Original string
	Number   int // 1-based source line number

	Label    string
	Mnemonic string
	Args     []string

	DataSize int // byte width of a data declaration, 0 if none
	DataVals []string

	Addr           uint16
	HasAddr        bool
	Instruction    uint16
	HasInstruction bool
	DataInts       []uint32

	Empty bool
}

// dataWidths maps data-declaration directives to their per-value byte width.
var dataWidths = map[string]int{
	"db": 1,
	"dw": 2,
	"dd": 3,
}

// tokenize splits a raw source line into label, mnemonic/directive and
// arguments. Comments run from the comment marker to end of line; everything
// is case-folded to lowercase so `LD V0, #2A` and `ld v0, #2a` tokenize
// identically.
func tokenize(raw string, number int) (*tokenLine, error) {
	tl := &tokenLine{Original: raw, Number: number}

	text := raw
	if i := strings.IndexByte(text, commentChar); i >= 0 {
		text = text[:i]
	}
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		tl.Empty = true
		return tl, nil
	}

	fields := strings.Fields(text)
	if strings.HasSuffix(fields[0], ":") {
		tl.Label = strings.TrimSuffix(fields[0], ":")
		if tl.Label == "" {
			return nil, &ParseError{Line: number, Kind: BadDataLiteral, Detail: "empty label"}
		}
		fields = fields[1:]
		if len(fields) == 0 {
			return tl, nil
		}
	}

	head := fields[0]
	rest := strings.TrimSpace(strings.Join(fields[1:], " "))

	if width, ok := dataWidths[head]; ok {
		tl.DataSize = width
		tl.DataVals = splitArgs(rest)
		if len(tl.DataVals) == 0 {
			return nil, &ParseError{Line: number, Kind: BadDataLiteral, Detail: "data declaration with no values"}
		}
		return tl, nil
	}

	tl.Mnemonic = head
	tl.Args = splitArgs(rest)
	return tl, nil
}

func splitArgs(rest string) []string {
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, ",")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		args = append(args, strings.TrimSpace(p))
	}
	return args
}
