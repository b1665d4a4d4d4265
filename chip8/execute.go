package chip8

import (
	"github.com/bethropolis/chip8toolchain/disassembler"
	"github.com/bethropolis/chip8toolchain/opcode"
)

// execute dispatches one decoded instruction. Handlers that transfer control
// set PC to target minus 2 so the unconditional advance at the end of Tick
// lands on the target.
func (c *Chip8) execute(rec disassembler.Record, hi, lo byte) error {
	op := uint16(hi)<<8 | uint16(lo)
	x := (op >> 8) & 0xF
	y := (op >> 4) & 0xF
	nnn := op & 0x0FFF
	kk := lo
	n := lo & 0x0F

	switch rec.Op {
	case opcode.CLS:
		for i := GfxStart; i < GfxStart+GfxSize; i++ {
			c.Memory[i] = 0
		}
		c.DrawFlag = true

	case opcode.RET:
		if c.SP == 0 {
			return &StackUnderflowError{PC: c.PC}
		}
		c.SP--
		c.PC = c.Stack[c.SP]

	case opcode.SYS:
		c.warnf("RCA 1802 call to %#05x was ignored", nnn)

	case opcode.CALL:
		if c.SP >= StackSize {
			return &StackOverflowError{PC: c.PC}
		}
		if c.cfg.LegacyStackInRAM {
			addr := legacyStackBase + 2*c.SP
			c.Memory[addr] = byte(c.PC >> 8)
			c.Memory[addr+1] = byte(c.PC)
		}
		c.Stack[c.SP] = c.PC
		c.SP++
		c.PC = nnn - 2

	case opcode.JP:
		target := nnn
		if len(rec.Args) == 2 {
			target = nnn + uint16(c.Registers[0])
		}
		if target == c.PC {
			c.Spinning = true
		}
		c.PC = target - 2

	case opcode.SKP:
		if c.Keys[c.Registers[x]&0x0F] {
			c.PC += 2
		}

	case opcode.SKNP:
		if !c.Keys[c.Registers[x]&0x0F] {
			c.PC += 2
		}

	case opcode.SE:
		if c.Registers[x] == c.skipOperand(rec, y, kk) {
			c.PC += 2
		}

	case opcode.SNE:
		if c.Registers[x] != c.skipOperand(rec, y, kk) {
			c.PC += 2
		}

	case opcode.LD:
		c.load(rec, x, y, nnn, kk)

	case opcode.ADD:
		switch {
		case rec.Args[0] == opcode.ArgI:
			sum := c.I + uint16(c.Registers[x])
			if sum > 0xFF && c.cfg.SetVFOnGfxOverflow {
				c.Registers[0xF] = 1
			}
			c.I = sum & 0xFFF
		case rec.Args[1] == opcode.ArgByte:
			c.Registers[x] += kk
		default:
			sum := uint16(c.Registers[x]) + uint16(c.Registers[y])
			c.Registers[x] = byte(sum)
			if sum > 0xFF {
				c.Registers[0xF] = 1
			} else {
				c.Registers[0xF] = 0
			}
		}

	case opcode.OR:
		c.Registers[x] |= c.Registers[y]

	case opcode.AND:
		c.Registers[x] &= c.Registers[y]

	case opcode.XOR:
		c.Registers[x] ^= c.Registers[y]

	case opcode.SUB:
		if c.Registers[x] >= c.Registers[y] {
			c.Registers[0xF] = 1
		} else {
			c.Registers[0xF] = 0
		}
		c.Registers[x] -= c.Registers[y]

	case opcode.SUBN:
		if c.Registers[y] >= c.Registers[x] {
			c.Registers[0xF] = 1
		} else {
			c.Registers[0xF] = 0
		}
		c.Registers[x] = c.Registers[y] - c.Registers[x]

	case opcode.SHR:
		src := x
		if c.cfg.EnableLegacyShift {
			src = y
		}
		c.Registers[0xF] = c.Registers[src] & 0x1
		c.Registers[x] = c.Registers[src] >> 1

	case opcode.SHL:
		src := x
		if c.cfg.EnableLegacyShift {
			src = y
		}
		c.Registers[0xF] = c.Registers[src] >> 7
		c.Registers[x] = c.Registers[src] << 1

	case opcode.RND:
		c.Registers[x] = byte(c.rng.Intn(256)) & kk

	case opcode.DRW:
		c.draw(x, y, n)
	}
	return nil
}

// skipOperand picks the comparison value of se/sne: an immediate byte or Vy,
// depending on the matched variant.
func (c *Chip8) skipOperand(rec disassembler.Record, y uint16, kk byte) byte {
	if rec.Args[1] == opcode.ArgByte {
		return kk
	}
	return c.Registers[y]
}

// load handles the eleven ld variants, distinguished by argument kinds.
func (c *Chip8) load(rec disassembler.Record, x, y, nnn uint16, kk byte) {
	a1, a2 := rec.Args[0], rec.Args[1]

	if a1 == opcode.ArgReg {
		switch a2 {
		case opcode.ArgByte:
			c.Registers[x] = kk
		case opcode.ArgReg:
			c.Registers[x] = c.Registers[y]
		case opcode.ArgDT:
			c.Registers[x] = c.DelayTimer
		case opcode.ArgK:
			c.WaitingForKey = true
			c.PC -= 2
		case opcode.ArgIndI:
			for i := uint16(0); i <= x; i++ {
				c.Registers[i] = c.Memory[(c.I+i)&0xFFF]
			}
		}
		return
	}

	switch a1 {
	case opcode.ArgDT:
		c.DelayTimer = c.Registers[x]
	case opcode.ArgST:
		c.SoundTimer = c.Registers[x]
	case opcode.ArgF:
		c.I = FontSetStart + 5*uint16(c.Registers[x])
	case opcode.ArgB:
		v := c.Registers[x]
		c.Memory[c.I&0xFFF] = v / 100
		c.Memory[(c.I+1)&0xFFF] = (v / 10) % 10
		c.Memory[(c.I+2)&0xFFF] = v % 10
	case opcode.ArgIndI:
		for i := uint16(0); i <= x; i++ {
			c.Memory[(c.I+i)&0xFFF] = c.Registers[i]
		}
	case opcode.ArgI:
		c.I = nnn
	}
}

// draw XORs an n-row sprite from ram[I..I+n) onto the framebuffer at
// (Vx mod 64, Vy mod 32). Each sprite row straddles at most two framebuffer
// bytes; the second byte wraps to the start of the same row at the right
// edge, and byte indices wrap modulo the framebuffer at the bottom. VF
// records whether any lit pixel was cleared.
func (c *Chip8) draw(x, y uint16, n byte) {
	vx := int(c.Registers[x])
	vy := int(c.Registers[y])
	if vx >= DisplayWidth || vy >= DisplayHeight {
		c.warnf("sprite origin (%d, %d) outside the visible frame, wrapping", vx, vy)
	}
	c.DrawFlag = true

	xOrigin := (vx / 8) % gfxRowBytes
	yOrigin := (vy % DisplayHeight) * gfxRowBytes
	shift := uint(vx % DisplayWidth % 8)
	nextOffset := 1
	if xOrigin+1 == gfxRowBytes {
		nextOffset = 1 - gfxRowBytes
	}

	c.Registers[0xF] = 0
	for row := 0; row < int(n); row++ {
		sprite := uint16(c.Memory[(int(c.I)+row)&0xFFF]) << (8 - shift)

		first := GfxStart + (xOrigin+yOrigin+row*gfxRowBytes)%GfxSize
		second := GfxStart + (xOrigin+yOrigin+row*gfxRowBytes+nextOffset)%GfxSize

		o0, o1 := c.Memory[first], c.Memory[second]
		xored := (uint16(o0)<<8 | uint16(o1)) ^ sprite
		n0, n1 := byte(xored>>8), byte(xored)
		c.Memory[first], c.Memory[second] = n0, n1

		if (n0^o0)&o0 != 0 || (n1^o1)&o1 != 0 {
			c.Registers[0xF] = 1
		}
	}
}
