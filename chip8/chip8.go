// Package chip8 is a cycle-stepped CHIP-8 interpreter. The host drives it by
// calling Run in its event loop; each call executes at most one CPU tick and
// decrements the two timers (60 Hz by default) when their periods have
// elapsed. The
// framebuffer lives inside emulated RAM at GfxStart, packed one bit per
// pixel, MSB-left, eight bytes per row.
package chip8

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/bethropolis/chip8toolchain/disassembler"
)

const (
	DisplayWidth  = 64
	DisplayHeight = 32
	ProgramStart  = 0x200
	FontSetStart  = 0x50

	// GfxStart is where the packed framebuffer sits in RAM.
	GfxStart = 0xF00
	// GfxSize is the framebuffer footprint in bytes.
	GfxSize     = DisplayWidth / 8 * DisplayHeight
	gfxRowBytes = DisplayWidth / 8

	// StackSize is the call depth of the interpreter.
	StackSize = 12
	// MaxROMSize is the largest loadable ROM image.
	MaxROMSize = 3232

	// legacyStackBase is where the legacy-stack-in-RAM quirk shadows
	// return addresses, growing upward two bytes per frame.
	legacyStackBase = 0xEA0
)

// Log levels passed to a LogFunc.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// LogFunc receives soft diagnostics: unofficial instructions executed,
// sprite origins outside the visible frame, sys calls ignored. A nil LogFunc
// suppresses them.
type LogFunc func(level, msg string)

// Config gathers the behavioral toggles of the interpreter. Quirks reflect
// differences between historic CHIP-8 implementations.
type Config struct {
	CPUHz   int
	AudioHz int
	DelayHz int

	// SetVFOnGfxOverflow makes "add i, vx" set VF when I overflows past
	// 0xFF. Used by Spacefight 2019.
	SetVFOnGfxOverflow bool
	// EnableLegacyShift makes shr/shl read Vy and store into Vx instead
	// of shifting Vx in place.
	EnableLegacyShift bool
	// Strict rejects banned encodings, those whose destination register
	// is VF.
	Strict bool
	// LegacyStackInRAM shadows return addresses into RAM below the
	// framebuffer on call, the way some historic interpreters did.
	LegacyStackInRAM bool
}

// DefaultConfig matches the documented CLI defaults: everything at 60 Hz,
// all quirks off.
func DefaultConfig() Config {
	return Config{CPUHz: 60, AudioHz: 60, DelayHz: 60}
}

// Chip8 represents the state of the CHIP-8 emulator.
type Chip8 struct {
	Memory     [4096]byte
	Registers  [16]byte
	I          uint16
	PC         uint16
	DelayTimer byte
	SoundTimer byte
	Stack      [StackSize]uint16
	SP         int
	Keys       [16]bool

	DrawFlag      bool
	WaitingForKey bool
	Spinning      bool
	IsRunning     bool
	Breakpoints   map[uint16]bool

	// prevKeypad is the keypad snapshot taken before the last executed
	// instruction, one bit per key with key 0 leftmost. Only "ld vx, k"
	// consults it.
	prevKeypad uint16

	cfg Config
	log LogFunc
	rng *rand.Rand

	cpuPeriod   time.Duration
	audioPeriod time.Duration
	delayPeriod time.Duration
	lastCPU     time.Time
	lastAudio   time.Time
	lastDelay   time.Time
}

// FontSet holds the sixteen 5-byte hex digit glyphs.
var FontSet = []byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Option configures a Chip8 at construction.
type Option func(*Chip8)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Chip8) { c.cfg = cfg }
}

// WithLogger installs the diagnostics callback.
func WithLogger(fn LogFunc) Option {
	return func(c *Chip8) { c.log = fn }
}

// WithRandSource seeds the rnd instruction deterministically.
func WithRandSource(src rand.Source) Option {
	return func(c *Chip8) { c.rng = rand.New(src) }
}

// New creates and initializes a new Chip8 emulator.
func New(opts ...Option) *Chip8 {
	c := &Chip8{
		cfg:         DefaultConfig(),
		Breakpoints: make(map[uint16]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.cpuPeriod = hzPeriod(c.cfg.CPUHz)
	c.audioPeriod = hzPeriod(c.cfg.AudioHz)
	c.delayPeriod = hzPeriod(c.cfg.DelayHz)
	c.Reset()
	return c
}

func hzPeriod(hz int) time.Duration {
	if hz <= 0 {
		hz = 60
	}
	return time.Second / time.Duration(hz)
}

// Reset returns the machine to power-on state. Breakpoints are cleared but
// the map stays allocated.
func (c *Chip8) Reset() {
	c.Memory = [4096]byte{}
	c.Registers = [16]byte{}
	c.Stack = [StackSize]uint16{}
	c.Keys = [16]bool{}
	c.I = 0
	c.PC = ProgramStart
	c.SP = 0
	c.DelayTimer = 0
	c.SoundTimer = 0
	c.prevKeypad = 0
	c.DrawFlag = false
	c.WaitingForKey = false
	c.Spinning = false
	c.IsRunning = false

	for k := range c.Breakpoints {
		delete(c.Breakpoints, k)
	}

	copy(c.Memory[FontSetStart:], FontSet)

	now := time.Now()
	c.lastCPU = now
	c.lastAudio = now
	c.lastDelay = now
}

// LoadROM copies a ROM image to the program region.
func (c *Chip8) LoadROM(data []byte) error {
	if len(data) > MaxROMSize || len(data) > len(c.Memory)-ProgramStart {
		return &RomLoadError{Size: len(data)}
	}
	copy(c.Memory[ProgramStart:], data)
	return nil
}

// Run advances the machine by wall-clock time: one CPU tick when the CPU
// period has elapsed, and one decrement of each timer when its configured
// period (AudioHz, DelayHz) has. It returns promptly either way, so the host can call it from a tight
// event loop.
func (c *Chip8) Run() error {
	now := time.Now()
	var err error
	if c.IsRunning && now.Sub(c.lastCPU) >= c.cpuPeriod {
		c.lastCPU = now
		err = c.Tick()
	}
	if now.Sub(c.lastAudio) >= c.audioPeriod {
		c.lastAudio = now
		if c.SoundTimer > 0 {
			c.SoundTimer--
		}
	}
	if now.Sub(c.lastDelay) >= c.delayPeriod {
		c.lastDelay = now
		if c.DelayTimer > 0 {
			c.DelayTimer--
		}
	}
	return err
}

// Tick executes one CPU cycle without regard for the target frequency.
//
// A pending key wait is serviced first: until a newly-pressed key shows up
// (an edge against the snapshot taken when the wait began), the PC stays
// parked on the "ld vx, k" instruction and nothing else runs.
func (c *Chip8) Tick() error {
	if c.Breakpoints[c.PC] {
		c.IsRunning = false
		return nil
	}

	if c.WaitingForKey {
		c.resolveKeyWait()
		return nil
	}
	c.prevKeypad = c.keypadMask()

	hi, lo := c.Memory[c.PC&0xFFF], c.Memory[(c.PC+1)&0xFFF]
	rec := disassembler.Disassemble(hi, lo)
	if !rec.Valid || (c.cfg.Strict && rec.Banned) {
		return &InvalidInstructionError{PC: c.PC, Bytes: [2]byte{hi, lo}}
	}
	if rec.Unofficial {
		c.warnf("unofficial instruction %s executed at %#06x", rec.Op, c.PC)
	}

	if err := c.execute(rec, hi, lo); err != nil {
		return err
	}
	c.PC += 2
	return nil
}

// keypadMask packs the keypad into sixteen bits, key 0 in the highest bit.
func (c *Chip8) keypadMask() uint16 {
	var mask uint16
	for i, down := range c.Keys {
		if down {
			mask |= 1 << (15 - i)
		}
	}
	return mask
}

// resolveKeyWait completes "ld vx, k" once a key not pressed at wait start
// is pressed. The lowest-numbered new key wins.
func (c *Chip8) resolveKeyWait() {
	mask := c.keypadMask()
	newly := (mask ^ c.prevKeypad) & mask
	if newly == 0 {
		return
	}
	for key := 0; key < 16; key++ {
		if newly&(1<<(15-key)) != 0 {
			x := c.Memory[c.PC&0xFFF] & 0x0F
			c.Registers[x] = byte(key)
			c.PC += 2
			c.WaitingForKey = false
			return
		}
	}
}

// SetKey records host keypad state for key 0x0-0xF.
func (c *Chip8) SetKey(key int, down bool) {
	if key >= 0 && key < len(c.Keys) {
		c.Keys[key] = down
	}
}

// AudioOn reports whether the buzzer should sound.
func (c *Chip8) AudioOn() bool {
	return c.SoundTimer > 0
}

// ClearDrawFlag resets the draw flag after the host has presented a frame.
func (c *Chip8) ClearDrawFlag() {
	c.DrawFlag = false
}

// Framebuffer returns a copy of the packed framebuffer, stable between
// ticks.
func (c *Chip8) Framebuffer() []byte {
	out := make([]byte, GfxSize)
	copy(out, c.Memory[GfxStart:GfxStart+GfxSize])
	return out
}

// Pixel reports the pixel at (x, y), wrapping both coordinates.
func (c *Chip8) Pixel(x, y int) bool {
	x = ((x % DisplayWidth) + DisplayWidth) % DisplayWidth
	y = ((y % DisplayHeight) + DisplayHeight) % DisplayHeight
	b := c.Memory[GfxStart+y*gfxRowBytes+x/8]
	return b&(0x80>>uint(x%8)) != 0
}

// RAM returns a copy of all 4096 bytes of emulated memory.
func (c *Chip8) RAM() []byte {
	out := make([]byte, len(c.Memory))
	copy(out, c.Memory[:])
	return out
}

// SetBreakpoint pauses execution when PC reaches addr.
func (c *Chip8) SetBreakpoint(addr uint16) {
	c.Breakpoints[addr] = true
}

// ClearBreakpoint removes a breakpoint.
func (c *Chip8) ClearBreakpoint(addr uint16) {
	delete(c.Breakpoints, addr)
}

// State is a read-only snapshot of the CPU for diagnostics.
type State struct {
	PC            uint16
	I             uint16
	SP            int
	DelayTimer    byte
	SoundTimer    byte
	Registers     [16]byte
	Stack         []uint16
	Spinning      bool
	WaitingForKey bool
	Disassembly   []string
	Breakpoints   map[uint16]bool
}

// Snapshot captures the CPU state plus a short disassembly window around the
// program counter.
func (c *Chip8) Snapshot() State {
	s := State{
		PC:            c.PC,
		I:             c.I,
		SP:            c.SP,
		DelayTimer:    c.DelayTimer,
		SoundTimer:    c.SoundTimer,
		Registers:     c.Registers,
		Stack:         append([]uint16(nil), c.Stack[:c.SP]...),
		Spinning:      c.Spinning,
		WaitingForKey: c.WaitingForKey,
		Breakpoints:   make(map[uint16]bool, len(c.Breakpoints)),
	}
	for k, v := range c.Breakpoints {
		s.Breakpoints[k] = v
	}
	for off := -10; off < 10; off++ {
		addr := int(c.PC) + off*2
		if addr < ProgramStart || addr >= len(c.Memory)-1 {
			continue
		}
		rec := disassembler.Disassemble(c.Memory[addr], c.Memory[addr+1])
		line := fmt.Sprintf("%#06x: %s", addr, rec.Text)
		if addr == int(c.PC) {
			line = "► " + line
		}
		s.Disassembly = append(s.Disassembly, line)
	}
	return s
}

func (c *Chip8) warnf(format string, args ...interface{}) {
	if c.log != nil {
		c.log(LevelWarning, fmt.Sprintf(format, args...))
	}
}
