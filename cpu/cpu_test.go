package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	deep "github.com/go-test/deep"

	"github.com/berisd/go6510/chips"
)

// flatMemory is a 64K flat RAM used to back Bus in tests. It also tracks
// writes that should be rejected so BusWriteRejected can be exercised.
type flatMemory struct {
	addr      [65536]uint8
	roFrom    uint16
	roTo      uint16
	roEnabled bool
}

func (r *flatMemory) isRO(addr uint16) bool {
	return r.roEnabled && addr >= r.roFrom && addr <= r.roTo
}

// Read implements cpu.Bus.
func (r *flatMemory) Read(addr uint16) (uint8, chips.CallbackTag) {
	return r.addr[addr], chips.None
}

// Write implements cpu.Bus.
func (r *flatMemory) Write(addr uint16, val uint8) (bool, chips.CallbackTag) {
	if r.isRO(addr) {
		return false, chips.None
	}
	r.addr[addr] = val
	return true, chips.None
}

func (r *flatMemory) setWordLE(addr uint16, val uint16) {
	r.addr[addr] = uint8(val & 0xFF)
	r.addr[addr+1] = uint8(val >> 8)
}

// newTestCore wires a Core to a fresh flatMemory with RESET_VECTOR pointed
// at start. NewCore's PowerOn runs Reset to completion; the helper then pins
// S to 0xFF and P to S1|I so every test starts from the same state.
func newTestCore(t *testing.T, start uint16) (*Core, *flatMemory) {
	t.Helper()
	mem := &flatMemory{}
	mem.setWordLE(RESET_VECTOR, start)
	mem.setWordLE(IRQ_VECTOR, 0xD000)
	mem.setWordLE(NMI_VECTOR, 0xD100)
	c, err := NewCore(&CoreDef{Bus: mem})
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	c.PC = start
	c.S = 0xFF
	c.P = P_S1 | P_INTERRUPT
	return c, mem
}

// tick runs one bus cycle and fails the test on an unexpected error.
func tick(t *testing.T, c *Core, cycle uint32) {
	t.Helper()
	if err := c.Tick(cycle); err != nil {
		t.Fatalf("Tick(%d): unexpected error: %v", cycle, err)
	}
	c.TickDone()
}

// runInstruction ticks the CPU until the current instruction completes,
// returning the number of cycles consumed.
func runInstruction(t *testing.T, c *Core, cycle *uint32) int {
	t.Helper()
	n := 0
	for {
		if err := c.Tick(*cycle); err != nil {
			t.Fatalf("Tick(%d): unexpected error: %v", *cycle, err)
		}
		done := c.opDone
		c.TickDone()
		*cycle++
		n++
		if done {
			return n
		}
	}
}

func TestReset(t *testing.T) {
	c, _ := newTestCore(t, 0x1234)
	if c.PC != 0x1234 {
		t.Errorf("PC after reset = %.4X, want 0x1234", c.PC)
	}
	if c.S != 0xFF {
		t.Errorf("S after reset = %.2X, want 0xFF", c.S)
	}
	if c.P&P_INTERRUPT == 0 {
		t.Error("interrupt disable flag not set after reset")
	}
}

func TestLDAImmediate(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xA9 // LDA #imm
	mem.addr[0x0801] = 0x42

	var cycle uint32
	n := runInstruction(t, c, &cycle)
	if n != 2 {
		t.Errorf("LDA #imm took %d cycles, want 2", n)
	}
	if c.A != 0x42 {
		t.Errorf("A = %.2X, want 0x42", c.A)
	}
	if c.PC != 0x0802 {
		t.Errorf("PC = %.4X, want 0x0802", c.PC)
	}
}

func TestADCOverflow(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xA9 // LDA #$A0
	mem.addr[0x0801] = 0xA0
	mem.addr[0x0802] = 0x69 // ADC #$A0
	mem.addr[0x0803] = 0xA0

	var cycle uint32
	runInstruction(t, c, &cycle)
	runInstruction(t, c, &cycle)

	if c.A != 0x40 {
		t.Errorf("A = %.2X, want 0x40", c.A)
	}
	if c.P&P_CARRY == 0 {
		t.Error("carry not set")
	}
	if c.P&P_OVERFLOW == 0 {
		t.Error("overflow not set, two negative operands should overflow to positive")
	}
	if c.P&P_ZERO != 0 {
		t.Error("zero should not be set")
	}
	if c.P&P_NEGATIVE != 0 {
		t.Error("negative should not be set, result is 0x40")
	}
}

func TestSBCBorrow(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xA9 // LDA #$50
	mem.addr[0x0801] = 0x50
	mem.addr[0x0802] = 0x38 // SEC
	mem.addr[0x0803] = 0xE9 // SBC #$F0
	mem.addr[0x0804] = 0xF0

	var cycle uint32
	runInstruction(t, c, &cycle)
	runInstruction(t, c, &cycle)
	runInstruction(t, c, &cycle)

	if c.A != 0x60 {
		t.Errorf("A = %.2X, want 0x60 (0x50-0xF0 wraps)", c.A)
	}
	if c.P&P_CARRY != 0 {
		t.Error("carry should be clear: a borrow occurred")
	}
}

func TestJSRRTS(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0x20 // JSR $1000
	mem.addr[0x0801] = 0x00
	mem.addr[0x0802] = 0x10
	mem.addr[0x1000] = 0x60 // RTS

	var cycle uint32
	n := runInstruction(t, c, &cycle)
	if n != 6 {
		t.Errorf("JSR took %d cycles, want 6", n)
	}
	if c.PC != 0x1000 {
		t.Fatalf("PC after JSR = %.4X, want 0x1000", c.PC)
	}
	wantS := uint8(0xFD)
	if c.S != wantS {
		t.Errorf("S after JSR = %.2X, want %.2X", c.S, wantS)
	}

	n = runInstruction(t, c, &cycle)
	if n != 6 {
		t.Errorf("RTS took %d cycles, want 6", n)
	}
	if c.PC != 0x0803 {
		t.Errorf("PC after RTS = %.4X, want 0x0803", c.PC)
	}
	if c.S != 0xFF {
		t.Errorf("S after RTS = %.2X, want 0xFF", c.S)
	}
}

// TestIRQLatency verifies the two cycle recognition delay: an IRQ line
// asserted with fewer than interruptRecognitionDelay cycles elapsed must
// not be taken yet.
func TestIRQLatency(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	for i := uint16(0); i < 8; i++ {
		mem.addr[0x0800+i] = 0xEA // NOP
	}
	c.P &^= P_INTERRUPT

	var cycle uint32
	c.SetVICIRQ(true)
	// Run one full NOP (2 cycles) immediately after assertion; recognition
	// delay hasn't elapsed so the instruction fetched must still be the NOP
	// at 0x0800 (leaving PC at 0x0801), not the IRQ sequence.
	runInstruction(t, c, &cycle)
	if c.PC != 0x0801 || c.runningInterrupt {
		t.Fatalf("IRQ taken before recognition delay elapsed: PC=%.4X runningInterrupt=%v", c.PC, c.runningInterrupt)
	}

	// Enough cycles have now passed (1 NOP = 2 cycles since assertion);
	// the interrupt sequence should kick in on the next opcode fetch.
	tick(t, c, cycle)
	if !c.runningInterrupt && c.irqRaised == kIRQ_NONE {
		t.Fatalf("IRQ not recognized after recognition delay elapsed")
	}
}

// TestNMIPreemptsIRQ verifies NMI always wins when both lines are pending.
func TestNMIPreemptsIRQ(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	for i := uint16(0); i < 8; i++ {
		mem.addr[0x0800+i] = 0xEA
	}
	c.P &^= P_INTERRUPT

	var cycle uint32
	c.SetVICIRQ(true)
	c.SetNMI(true)

	// Drain recognition-delay cycles, then take the first tick of the
	// interrupt sequence, where the pending source is chosen.
	runInstruction(t, c, &cycle)
	tick(t, c, cycle)
	cycle++

	if c.irqRaised != kIRQ_NMI {
		t.Errorf("irqRaised = %v, want kIRQ_NMI when both lines are pending", c.irqRaised)
	}
	// Finish the interrupt sequence.
	runInstruction(t, c, &cycle)
	if c.PC != 0xD100 {
		t.Errorf("PC = %.4X, want 0xD100 (NMI vector)", c.PC)
	}
}

// TestBAStall verifies the CPU doesn't begin a new instruction fetch while
// BA/RDY is held low, but does tick forward once released.
func TestBAStall(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xA9
	mem.addr[0x0801] = 0x7E

	c.SetBALow(true)
	if err := c.Tick(0); err != nil {
		t.Fatalf("Tick: unexpected error: %v", err)
	}
	c.TickDone()
	if c.opTick != 0 {
		t.Fatalf("opTick = %d, want 0 while stalled at an instruction boundary", c.opTick)
	}

	c.SetBALow(false)
	var cycle uint32 = 1
	runInstruction(t, c, &cycle)
	if c.A != 0x7E {
		t.Errorf("A = %.2X, want 0x7E after stall released", c.A)
	}
}

func TestDecodeTableComplete(t *testing.T) {
	for op := 0; op < 256; op++ {
		c, mem := newTestCore(t, 0x0800)
		mem.addr[0x0800] = uint8(op)
		mem.addr[0x0801] = 0x00
		mem.addr[0x0802] = 0x00
		var cycle uint32
		if _, err := func() (int, error) {
			n := 0
			for {
				err := c.Tick(cycle)
				done := c.opDone
				c.TickDone()
				cycle++
				n++
				if err != nil {
					return n, err
				}
				if done || n > 9 {
					return n, nil
				}
			}
		}(); err != nil {
			if _, ok := err.(HaltInstruction); !ok {
				t.Errorf("opcode 0x%.2X: unexpected error %v", op, err)
			}
		}
	}
}

// TestPHPSetsBRKBit verifies the B flag and the always-one bit are pushed
// as 1 by PHP, matching the well known "no such flag, only a push-time
// artifact" behavior.
func TestPHPSetsBRKBit(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0x08 // PHP
	c.P = P_S1 | P_ZERO

	var cycle uint32
	runInstruction(t, c, &cycle)

	pushed := mem.addr[0x01FF]
	if pushed&P_B == 0 {
		t.Errorf("pushed P = %.2X, want B bit set", pushed)
	}
	if pushed&P_S1 == 0 {
		t.Errorf("pushed P = %.2X, want bit 5 set", pushed)
	}
}

func TestCMPContract(t *testing.T) {
	tests := []struct {
		name        string
		a, operand  uint8
		wantCarry   bool
		wantZero    bool
		wantNeg     bool
	}{
		{"equal", 0x42, 0x42, true, true, false},
		{"greater", 0x50, 0x10, true, false, false},
		{"less", 0x10, 0x50, false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, mem := newTestCore(t, 0x0800)
			mem.addr[0x0800] = 0xA9 // LDA #a
			mem.addr[0x0801] = tc.a
			mem.addr[0x0802] = 0xC9 // CMP #operand
			mem.addr[0x0803] = tc.operand

			var cycle uint32
			runInstruction(t, c, &cycle)
			runInstruction(t, c, &cycle)

			if got := c.P&P_CARRY != 0; got != tc.wantCarry {
				t.Errorf("carry = %v, want %v", got, tc.wantCarry)
			}
			if got := c.P&P_ZERO != 0; got != tc.wantZero {
				t.Errorf("zero = %v, want %v", got, tc.wantZero)
			}
			if got := c.P&P_NEGATIVE != 0; got != tc.wantNeg {
				t.Errorf("negative = %v, want %v", got, tc.wantNeg)
			}
			if c.A != tc.a {
				t.Errorf("A mutated by CMP: got %.2X want %.2X", c.A, tc.a)
			}
		})
	}
}

func TestZeropageIndexedWrap(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xA2 // LDX #$10
	mem.addr[0x0801] = 0x10
	mem.addr[0x0802] = 0xB5 // LDA $F8,X  -> wraps to zeropage 0x08
	mem.addr[0x0803] = 0xF8
	mem.addr[0x0008] = 0x99

	var cycle uint32
	runInstruction(t, c, &cycle)
	runInstruction(t, c, &cycle)

	if c.A != 0x99 {
		t.Errorf("A = %.2X, want 0x99 (zeropage,X must wrap within page 0)", c.A)
	}
}

// TestIndirectJMPPageWrapBug reproduces the famous NMOS 6502/6510 behavior
// where JMP ($xxFF) fetches its high byte from $xx00 instead of ($xx+1)00.
func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0x6C // JMP ($30FF)
	mem.addr[0x0801] = 0xFF
	mem.addr[0x0802] = 0x30
	mem.addr[0x30FF] = 0x00
	mem.addr[0x3000] = 0x40 // wrong high byte the bug reads
	mem.addr[0x3100] = 0x80 // correct high byte, must NOT be used

	var cycle uint32
	runInstruction(t, c, &cycle)

	if c.PC != 0x4000 {
		t.Errorf("PC = %.4X, want 0x4000 (page-wrap bug reproduced)", c.PC)
	}
}

func TestRMWDummyWrite(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xE6 // INC $10
	mem.addr[0x0801] = 0x10
	mem.addr[0x0010] = 0x7F

	var cycle uint32
	n := runInstruction(t, c, &cycle)
	if n != 5 {
		t.Errorf("INC zp took %d cycles, want 5 (read, dummy write, real write)", n)
	}
	if mem.addr[0x0010] != 0x80 {
		t.Errorf("mem[0x10] = %.2X, want 0x80", mem.addr[0x0010])
	}
}

// TestBRKPushesCorrectState exercises the descriptor diffing style the
// teacher uses deep.Equal for: comparing full register snapshots instead
// of field by field.
func TestBRKPushesCorrectState(t *testing.T) {
	type snapshot struct {
		A, X, Y, S, P uint8
		PC            uint16
	}
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0x00 // BRK
	mem.addr[0x0801] = 0x00
	c.A, c.X, c.Y = 0x11, 0x22, 0x33

	var cycle uint32
	runInstruction(t, c, &cycle)

	want := snapshot{A: 0x11, X: 0x22, Y: 0x33, S: 0xFC, PC: 0xD000}
	got := snapshot{A: c.A, X: c.X, Y: c.Y, S: c.S, PC: c.PC}
	if diff := deep.Equal(want, got); diff != nil {
		t.Errorf("post-BRK state diff: %v\ncore: %s", diff, spew.Sdump(c))
	}
	if c.P&P_INTERRUPT == 0 {
		t.Error("interrupt disable not set after BRK")
	}
}

func TestOperandHook(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.addr[0x0800] = 0xAD // LDA $1234
	mem.addr[0x0801] = 0x34
	mem.addr[0x0802] = 0x12
	mem.addr[0x1234] = 0x55

	var cycle uint32
	for {
		err := c.Tick(cycle)
		c.TickDone()
		cycle++
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if _, _, has := c.Operand(); has {
			break
		}
		if c.opDone {
			t.Fatal("instruction completed without ever reporting an operand address")
		}
	}
	addr, _, has := c.Operand()
	if !has || addr != 0x1234 {
		t.Errorf("Operand() = addr=%.4X has=%v, want addr=0x1234 has=true", addr, has)
	}
}

func TestBusWriteRejected(t *testing.T) {
	c, mem := newTestCore(t, 0x0800)
	mem.roEnabled = true
	mem.roFrom, mem.roTo = 0x2000, 0x2000
	mem.addr[0x0800] = 0xA9 // LDA #$01
	mem.addr[0x0801] = 0x01
	mem.addr[0x0802] = 0x8D // STA $2000
	mem.addr[0x0803] = 0x00
	mem.addr[0x0804] = 0x20

	var cycle uint32
	runInstruction(t, c, &cycle)

	n := 0
	var err error
	for {
		err = c.Tick(cycle)
		done := c.opDone
		c.TickDone()
		cycle++
		n++
		if err != nil || done || n > 8 {
			break
		}
	}
	if _, ok := err.(BusWriteRejected); !ok {
		t.Errorf("err = %v (%T), want BusWriteRejected", err, err)
	}
}
