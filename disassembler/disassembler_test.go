package disassembler

import (
	"testing"

	"github.com/bethropolis/chip8toolchain/opcode"
)

// TestDisassembleRendering pins the rendered-text layout: mnemonic and each
// argument padded to five columns, comma-joined, trailing space trimmed.
func TestDisassembleRendering(t *testing.T) {
	tests := []struct {
		hi, lo byte
		want   string
	}{
		{0x00, 0xE0, "cls"},
		{0x00, 0xEE, "ret"},
		{0x60, 0x2A, "ld   v0   ,#2a"},
		{0x81, 0x20, "ld   v1   ,v2"},
		{0xA1, 0x23, "ld   i    ,#123"},
		{0x12, 0x34, "jp   #234"},
		{0xB2, 0x34, "jp   v0   ,#234"},
		{0xD1, 0x25, "drw  v1   ,v2   ,#5"},
		{0xF3, 0x07, "ld   v3   ,dt"},
		{0xF3, 0x0A, "ld   v3   ,k"},
		{0xF3, 0x15, "ld   dt   ,v3"},
		{0xF3, 0x18, "ld   st   ,v3"},
		{0xF3, 0x29, "ld   f    ,v3"},
		{0xF3, 0x33, "ld   b    ,v3"},
		{0xF3, 0x55, "ld   [i]  ,v3"},
		{0xF3, 0x65, "ld   v3   ,[i]"},
		{0xE3, 0x9E, "skp  v3"},
		{0x82, 0x46, "shr  v2"},
		{0x03, 0x45, "sys  #345"},
	}
	for _, tt := range tests {
		rec := Disassemble(tt.hi, tt.lo)
		if !rec.Valid {
			t.Errorf("Disassemble(%02x%02x) marked invalid", tt.hi, tt.lo)
			continue
		}
		if rec.Text != tt.want {
			t.Errorf("Disassemble(%02x%02x) = %q, want %q", tt.hi, tt.lo, rec.Text, tt.want)
		}
	}
}

// TestDisassembleData checks unmatched bytes come back invalid with the raw
// hex as their text.
func TestDisassembleData(t *testing.T) {
	rec := Disassemble(0xFF, 0xFF)
	if rec.Valid {
		t.Error("Expected data bytes to be invalid")
	}
	if rec.Text != "ffff" {
		t.Errorf("Expected raw hex text, got %q", rec.Text)
	}
	if rec.SuperChip || rec.Banned || rec.Unofficial {
		t.Error("Expected no classification flags on data")
	}
}

// TestDisassembleSuperChip checks extension opcodes are flagged but invalid.
func TestDisassembleSuperChip(t *testing.T) {
	for _, pair := range [][2]byte{{0x00, 0xFE}, {0x00, 0xC5}, {0xD1, 0x20}, {0xF1, 0x30}} {
		rec := Disassemble(pair[0], pair[1])
		if !rec.SuperChip {
			t.Errorf("Expected %02x%02x to flag super_chip", pair[0], pair[1])
		}
		if rec.Valid {
			t.Errorf("Expected %02x%02x to be invalid", pair[0], pair[1])
		}
		if rec.Text != "SPR" {
			t.Errorf("Expected SPR text, got %q", rec.Text)
		}
	}
}

// TestDisassembleBanned checks a VF-destination encoding keeps its argument
// kinds for the emulator but stops rendering.
func TestDisassembleBanned(t *testing.T) {
	rec := Disassemble(0x6F, 0x2A) // ld vf, #2a
	if !rec.Banned {
		t.Error("Expected banned flag")
	}
	if !rec.Valid {
		t.Error("Expected banned encoding to stay valid")
	}
	if rec.Op != opcode.LD {
		t.Errorf("Expected ld, got %s", rec.Op)
	}
	if len(rec.Args) != 2 {
		t.Errorf("Expected argument kinds preserved, got %v", rec.Args)
	}
	if rec.Text != "" {
		t.Errorf("Expected argument rendering to stop, got %q", rec.Text)
	}
}

// TestDisassembleUnofficial checks the four unofficial mnemonics are
// flagged.
func TestDisassembleUnofficial(t *testing.T) {
	tests := []struct {
		hi, lo byte
		op     opcode.Mnemonic
	}{
		{0x81, 0x23, opcode.XOR},
		{0x81, 0x26, opcode.SHR},
		{0x81, 0x27, opcode.SUBN},
		{0x81, 0x2E, opcode.SHL},
	}
	for _, tt := range tests {
		rec := Disassemble(tt.hi, tt.lo)
		if !rec.Unofficial {
			t.Errorf("Expected %02x%02x to flag unofficial", tt.hi, tt.lo)
		}
		if rec.Op != tt.op {
			t.Errorf("Expected %s, got %s", tt.op, rec.Op)
		}
	}
	if Disassemble(0x81, 0x24).Unofficial {
		t.Error("Expected add vx,vy to be official")
	}
}
