// Package cpu implements the 6510 tick state machine: register file,
// 256-entry opcode decode/dispatch, addressing-mode micro-sequences and
// interrupt acknowledgement, driven one bus cycle at a time by Tick.
package cpu

import (
	"fmt"
	"math/rand"

	"github.com/berisd/go6510/chips"
)

// irqType is an enumeration of the valid interrupt-in-flight states.
type irqType int

const (
	kIRQ_UNIMPLMENTED irqType = iota // Start of valid irq enumerations.
	kIRQ_NONE                        // No interrupt raised.
	kIRQ_IRQ                         // Standard IRQ signal.
	kIRQ_NMI                         // NMI signal.
	kIRQ_MAX                         // End of irq enumerations.
)

const (
	NMI_VECTOR   = uint16(0xFFFA)
	RESET_VECTOR = uint16(0xFFFC)
	IRQ_VECTOR   = uint16(0xFFFE)

	P_NEGATIVE  = uint8(0x80)
	P_OVERFLOW  = uint8(0x40)
	P_S1        = uint8(0x20) // Always 1
	P_B         = uint8(0x10) // Only set during BRK. Cleared on all other interrupts.
	P_DECIMAL   = uint8(0x8)
	P_INTERRUPT = uint8(0x4)
	P_ZERO      = uint8(0x2)
	P_CARRY     = uint8(0x1)

	NEGATIVE_ONE = uint8(0xFF)

	// interruptRecognitionDelay is the number of bus cycles a line must
	// stay asserted before the CPU is allowed to act on it. Modeled
	// after the 2-cycle internal synchronizer on real 65xx silicon.
	interruptRecognitionDelay = uint32(2)
)

// Bus is the memory-mapped collaborator the CPU reads and writes every
// cycle. Implementations fan out to RAM, VIC-II, CIA1/CIA2 and color RAM
// and report back a CallbackTag describing any IRQ/NMI side effect the
// access triggered.
type Bus interface {
	Read(addr uint16) (uint8, chips.CallbackTag)
	Write(addr uint16, val uint8) (bool, chips.CallbackTag)
}

// Core holds the full architectural and microarchitectural state of a
// single 6510 and steps it one bus cycle at a time via Tick.
type Core struct {
	A                 uint8   // Accumulator register
	X                 uint8   // X register
	Y                 uint8   // Y register
	S                 uint8   // Stack pointer
	P                 uint8   // Status register
	PC                uint16  // Program counter
	tickDone          bool    // True if TickDone() was called before the current Tick() call
	bus               Bus     // Memory-mapped collaborator (RAM/VIC/CIA/color RAM fan-out).
	debug             bool    // When true, Debug() returns a trace line for the last tick.
	lastDebug         string  // Trace line produced by the most recently completed tick.
	cycleIndex        uint32  // Bus cycle counter supplied by the host via Tick.
	baLow             bool    // True while RDY/BA is held low by the host (VIC badline stalls).
	vicIRQ            bool    // Current level of the VIC-II IRQ line.
	ciaIRQ            bool    // Current level of the CIA1/CIA2 IRQ line.
	irqLine           bool    // OR of vicIRQ/ciaIRQ, latched for recognition-delay timing.
	firstIRQCycle     uint32  // cycleIndex at which irqLine most recently went false->true.
	nmiLine           bool    // Current level of the NMI line.
	nmiArmed          bool    // True once an unserviced 0->1 NMI edge has been recognized.
	firstNMICycle     uint32  // cycleIndex at which the NMI line most recently went false->true.
	busErr            error   // Set by wr() when a write the bus rejects occurs; consumed at end of Tick.
	reset             bool    // Whether reset has occurred.
	op                uint8   // The current working opcode
	opVal             uint8   // The 1st byte argument after the opcode (all instructions have this).
	opTick            int     // Tick number for internal operation of opcode.
	opAddr            uint16  // Address computed during opcode to be used for read/write (indirect, etc modes).
	opHasAddr         bool    // True once opAddr holds a valid computed operand address for this instruction.
	opDone            bool    // Stays false until the current opcode has completed all ticks.
	addrDone          bool    // Stays false until the current opcode has completed any addressing mode ticks.
	skipInterrupt     bool    // Skip interrupt processing on the next instruction.
	prevSkipInterrupt bool    // Previous instruction skipped interrupt processing (so we shouldn't).
	irqRaised         irqType // Must be between UNIMPLEMENTED and MAX from above.
	runningInterrupt  bool    // Whether we're running an interrupt setup or an opcode.
	halted            bool    // If stopped due to a halt instruction
	haltOpcode        uint8   // Opcode that caused the halt
	opMnemonic        string  // decodeTable mnemonic for op, set only when debug is true.
}

// A few custom error types to distinguish why the CPU stopped.

// InvalidCPUState represents an invalid CPU state in the emulator.
type InvalidCPUState struct {
	Reason string
}

// Error implements the interface for error types.
func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// HaltInstruction represents an opcode which halts the CPU (the 6510 JAM/KIL
// family of undocumented opcodes).
type HaltInstruction struct {
	Opcode uint8
}

// Error implements the interface for error types.
func (e HaltInstruction) Error() string {
	return fmt.Sprintf("HALT(0x%.2X) executed", e.Opcode)
}

// DecodeFailure is returned when the opcode table has no entry for the
// fetched byte. The 256-entry table is total, so this indicates a defect
// in the table rather than anything a caller can recover from.
type DecodeFailure struct {
	Opcode uint8
}

// Error implements the interface for error types.
func (e DecodeFailure) Error() string {
	return fmt.Sprintf("no decode table entry for opcode 0x%.2X", e.Opcode)
}

// BusWriteRejected is returned when the bus collaborator refuses a write
// (e.g. a write to a read-only mapped region).
type BusWriteRejected struct {
	Addr uint16
}

// Error implements the interface for error types.
func (e BusWriteRejected) Error() string {
	return fmt.Sprintf("bus rejected write to 0x%.4X", e.Addr)
}

// CoreDef defines a 6510 processor instance.
type CoreDef struct {
	// Bus is the memory-mapped collaborator (RAM/VIC/CIA/color RAM fan-out).
	Bus Bus
	// Debug enables accumulation of a per-tick trace string retrievable via Debug().
	Debug bool
}

// NewCore creates a new 6510 CPU wired to the given bus and returns it in
// powered-on state.
func NewCore(def *CoreDef) (*Core, error) {
	if def.Bus == nil {
		return nil, InvalidCPUState{"CoreDef.Bus must not be nil"}
	}
	p := &Core{
		bus:      def.Bus,
		debug:    def.Debug,
		tickDone: true,
	}
	if err := p.PowerOn(); err != nil {
		return nil, err
	}
	return p, nil
}

// rd reads a byte from the bus and immediately folds in any CallbackTag
// the access produced (VIC/CIA IRQ assertion or clear).
func (p *Core) rd(addr uint16) uint8 {
	v, tag := p.bus.Read(addr)
	p.consumeTag(tag)
	return v
}

// wr writes a byte to the bus, folding in any CallbackTag produced. A
// rejected write is latched into busErr and surfaced once the in-flight
// opcode or interrupt sequence finishes its current tick.
func (p *Core) wr(addr uint16, val uint8) {
	ok, tag := p.bus.Write(addr, val)
	p.consumeTag(tag)
	if !ok && p.busErr == nil {
		p.busErr = BusWriteRejected{addr}
	}
}

// consumeTag folds a CallbackTag signaled by the bus into the CPU's own
// IRQ/NMI latches, stamping the cycle index on any false->true transition
// so the 2-cycle recognition delay can be enforced later.
func (p *Core) consumeTag(tag chips.CallbackTag) {
	switch tag {
	case chips.TriggerVICIrq:
		p.setVICLine(true)
	case chips.ClearVICIrq:
		p.setVICLine(false)
	case chips.TriggerCIAIrq:
		p.setCIALine(true)
	case chips.ClearCIAIrq:
		p.setCIALine(false)
	case chips.TriggerNMI:
		p.SetNMI(true)
	case chips.ClearNMI:
		p.SetNMI(false)
	}
}

func (p *Core) setVICLine(v bool) {
	p.vicIRQ = v
	p.updateIRQLine()
}

func (p *Core) setCIALine(v bool) {
	p.ciaIRQ = v
	p.updateIRQLine()
}

func (p *Core) updateIRQLine() {
	newLine := p.vicIRQ || p.ciaIRQ
	if newLine && !p.irqLine {
		p.firstIRQCycle = p.cycleIndex
	}
	p.irqLine = newLine
}

// SetVICIRQ sets the level of the VIC-II IRQ line directly, for hosts that
// don't route VIC register access through the Bus collaborator.
func (p *Core) SetVICIRQ(v bool) { p.setVICLine(v) }

// SetCIAIRQ sets the level of the CIA1/CIA2 IRQ line directly.
func (p *Core) SetCIAIRQ(v bool) { p.setCIALine(v) }

// SetNMI sets the level of the NMI line. NMI is edge sensitive: a
// false->true transition arms a pending NMI that will be serviced once
// recognized, and won't refire until another such transition occurs.
func (p *Core) SetNMI(v bool) {
	if v && !p.nmiLine {
		p.firstNMICycle = p.cycleIndex
		p.nmiArmed = true
	}
	p.nmiLine = v
}

// SetBALow sets the state of the BA (bus available) / RDY line. While held
// low the CPU does not start a new instruction: Tick returns without
// fetching an opcode. Only that instruction-boundary fetch is held back;
// the later cycles of an instruction or interrupt sequence already in
// flight, reads included, still run.
func (p *Core) SetBALow(v bool) {
	p.baLow = v
}

// Debug returns a one-line trace of the most recently completed tick, or
// the empty string if debug tracing is disabled.
func (p *Core) Debug() string {
	if !p.debug {
		return ""
	}
	return p.lastDebug
}

// Operand returns the address and value the currently executing
// instruction has computed an operand for, and whether one has been
// computed yet this instruction. Intended for a disassembler collaborator
// to inspect effective addresses without recomputing addressing-mode math.
func (p *Core) Operand() (uint16, uint8, bool) {
	return p.opAddr, p.opVal, p.opHasAddr
}

// PowerOn will reset the CPU to power on state which isn't well defined.
// Registers are random, stack is at random (though visual 6502 claims it's 0xFD due to a push P/PC in reset).
// and P is cleared with interrupts disabled and decimal mode random.
// The starting PC value is loaded from the reset vector.
func (p *Core) PowerOn() error {
	// This bit is always set.
	flags := P_S1
	// Randomize decimal state at startup, matching real NMOS 6510 behavior.
	// DecimalMode has no effect on ADC/SBC in this implementation (see DESIGN.md)
	// but the bit itself still powers on in an undefined state.
	if rand.Float32() > 0.5 {
		flags |= P_DECIMAL
	}

	// Randomize register contents
	p.A = uint8(rand.Intn(256))
	p.X = uint8(rand.Intn(256))
	p.Y = uint8(rand.Intn(256))
	p.S = uint8(rand.Intn(256))
	p.P = flags
	// Reset to get everything else setup.
	for {
		done, err := p.Reset()
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return nil
}

// Reset is similar to PowerOn except the main registers are not touched. The stack is moved
// 3 bytes as if PC/P have been pushed. Flags are not disturbed except for interrupts being disabled
// and the PC is loaded from the reset vector. This takes 6 cycles once triggered.
// Will return true when reset is complete and errors if any occur.
func (p *Core) Reset() (bool, error) {
	// If we haven't previously started a reset trigger it now
	if !p.reset {
		p.reset = true
		p.tickDone = false
		p.opTick = 0
	}
	p.opTick++
	switch {
	case p.opTick < 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("Reset: bad opTick: %d", p.opTick)}
	case p.opTick == 1:
		// Standard first tick reads current PC value
		_ = p.rd(p.PC)
		// Disable interrupts
		p.P |= P_INTERRUPT
		// Reset other state now
		p.halted = false
		p.haltOpcode = 0x00
		p.irqRaised = kIRQ_NONE
		return false, nil
	case p.opTick >= 2 && p.opTick <= 4:
		// Most registers unaffected but stack acts like PC/P have been pushed so decrement by 3 bytes over next 3 ticks.
		p.S--
		return false, nil
	case p.opTick == 5:
		// Load PC from reset vector
		p.opVal = p.rd(RESET_VECTOR)
		return false, nil
	}
	// case p.opTick == 6:
	p.PC = (uint16(p.rd(RESET_VECTOR+1)) << 8) + uint16(p.opVal)
	p.reset = false
	p.opTick = 0
	p.tickDone = true
	return true, nil
}

// irqRecognized reports whether the latched IRQ line has been asserted
// long enough to be acted on and isn't masked by the interrupt-disable flag.
func (p *Core) irqRecognized() bool {
	if !p.irqLine || p.P&P_INTERRUPT != 0 {
		return false
	}
	return p.cycleIndex-p.firstIRQCycle >= interruptRecognitionDelay
}

// nmiRecognized reports whether an armed NMI edge has been asserted long
// enough to be acted on. NMI always preempts IRQ and is never masked.
func (p *Core) nmiRecognized() bool {
	if !p.nmiArmed {
		return false
	}
	return p.cycleIndex-p.firstNMICycle >= interruptRecognitionDelay
}

// Tick runs a single bus cycle through the CPU, which may execute a new
// instruction or may be finishing one already in flight. cycleIndex is the
// host's monotonic bus-cycle counter, used to time the interrupt
// recognition delay. An error is returned if the instruction isn't
// implemented or otherwise halts the CPU.
// For an NMOS cpu on a taken branch an interrupt coming in immediately
// after will cause one more instruction to be executed before the first
// interrupt instruction. This is accounted for by executing this
// instruction before handling the interrupt (whose state is cached).
func (p *Core) Tick(cycleIndex uint32) error {
	if !p.tickDone {
		p.opDone = true
		return InvalidCPUState{"called Tick() without calling TickDone() at end of last cycle"}
	}
	p.tickDone = false
	p.cycleIndex = cycleIndex
	p.lastDebug = ""

	// While BA/RDY is held low the CPU does not fetch a new opcode. Cycles of
	// an instruction already in progress (opTick != 0) are not stalled.
	if p.baLow && p.opTick == 0 {
		p.opDone = false
		return nil
	}

	if p.irqRaised < kIRQ_NONE || p.irqRaised >= kIRQ_MAX {
		p.opDone = true
		return InvalidCPUState{fmt.Sprintf("p.irqRaised is invalid: %d", p.irqRaised)}
	}
	// Fast path if halted. The PC won't advance. i.e. we just keep returning the same error.
	if p.halted {
		p.opDone = true
		return HaltInstruction{p.haltOpcode}
	}

	// Increment up front so we're not zero based per se. i.e. each new instruction then
	// starts at opTick == 1.
	p.opTick++

	// If we get a new interrupt while running one then NMI always wins until it's done.
	if p.irqRecognized() || p.nmiRecognized() {
		switch p.irqRaised {
		case kIRQ_NONE:
			p.irqRaised = kIRQ_IRQ
			if p.nmiRecognized() {
				p.irqRaised = kIRQ_NMI
			}
		case kIRQ_IRQ:
			if p.nmiRecognized() {
				p.irqRaised = kIRQ_NMI
			}
		}
	}

	switch {
	case p.opTick == 1:
		// If opTick is 1 it means we're starting a new instruction based on the PC value so grab the opcode now.
		p.op = p.rd(p.PC)

		// Reset done state
		p.opDone = false
		p.addrDone = false
		p.opHasAddr = false

		// PC always advances on every opcode start except IRQ/HMI (unless we're skipping to run one more instruction).
		if p.irqRaised == kIRQ_NONE || p.skipInterrupt {
			p.PC++
			p.runningInterrupt = false
		}
		if p.irqRaised != kIRQ_NONE && !p.skipInterrupt {
			p.runningInterrupt = true
		}
		return nil
	case p.opTick == 2:
		// All instructions fetch the value after the opcode (though some like BRK/PHP/etc ignore it).
		// We keep it since some instructions such as absolute addr then require getting one
		// more byte. So cache at this stage since we no idea if it's needed.
		// NOTE: the PC doesn't increment here as that's dependent on addressing mode which will handle it.
		p.opVal = p.rd(p.PC)

		// We've started a new instruction so no longer skipping interrupt processing.
		p.prevSkipInterrupt = false
		if p.skipInterrupt {
			p.skipInterrupt = false
			p.prevSkipInterrupt = true
		}
	case p.opTick > 8:
		// This is impossible on a 65XX as all instructions take no more than 8 ticks.
		// Technically documented instructions max at 7 ticks but a RMW indirect X/Y will take 8.
		p.opDone = true
		return InvalidCPUState{fmt.Sprintf("opTick %d too large (> 8)", p.opTick)}
	}

	var err error
	if p.runningInterrupt {
		addr := IRQ_VECTOR
		if p.irqRaised == kIRQ_NMI {
			addr = NMI_VECTOR
		}
		p.opDone, err = p.runInterrupt(addr, true)
		if p.opDone && p.irqRaised == kIRQ_NMI {
			p.nmiArmed = false
		}
	} else {
		p.opDone, err = p.processOpcode()
	}

	if err == nil && p.busErr != nil {
		err = p.busErr
	}
	p.busErr = nil

	if p.debug {
		p.lastDebug = fmt.Sprintf("cyc=%d op=%.2X(%s) tick=%d PC=%.4X A=%.2X X=%.2X Y=%.2X S=%.2X P=%.2X",
			p.cycleIndex, p.op, p.opMnemonic, p.opTick, p.PC, p.A, p.X, p.Y, p.S, p.P)
	}

	if p.halted {
		p.haltOpcode = p.op
		p.opDone = true
		return HaltInstruction{p.op}
	}
	if err != nil {
		// Still consider this a halt since it's an internal precondition check.
		p.haltOpcode = p.op
		p.halted = true
		p.opDone = true
		return err
	}
	if p.opDone {
		// So the next tick starts a new instruction
		// It'll handle doing start of instruction reset on state (which includes resetting p.opDone, p.addrDone).
		p.opTick = 0
		// If we're currently running one clear state so we don't loop trying to run it again.
		if p.runningInterrupt {
			p.irqRaised = kIRQ_NONE
		}
		p.runningInterrupt = false
	}
	return nil
}

// TickDone is to be called after all chips have run a given Tick() cycle in order to do post
// processing that's normally controlled by a clock interlocking all the chips. i.e. setups for
// latch loads that take effect on the start of the next cycle. i.e. this could have been
// implemented as PreTick in the same way. Including this in Tick() requires a specific
// ordering between chips in order to present a consistent view otherwise.
func (p *Core) TickDone() {
	p.tickDone = true
}

func (p *Core) InstructionDone() bool {
	return p.opDone
}

// processOpcode looks the fetched opcode up in decodeTable and runs its
// entry against the current tick. decodeTable is total over the uint8
// domain (built and verified against the 256-opcode references below), so
// a nil exec is a corrupt table rather than anything reachable in practice.
//
// References used to build decodeTable:
// http://wiki.nesdev.com/w/index.php/CPU_unofficial_opcodes#Games_using_unofficial_opcodes
// http://www.ffd2.com/fridge/docs/6502-NMOS.extra.opcodes
// http://nesdev.com/6502_cpu.txt
// http://visual6502.org/wiki/index.php?title=6502_Opcode_8B_(XAA,_ANE)
// http://obelisk.me.uk/6502/reference.html
func (p *Core) processOpcode() (bool, error) {
	entry := decodeTable[p.op]
	if entry.exec == nil {
		return true, DecodeFailure{p.op}
	}
	if p.debug {
		p.opMnemonic = entry.mnemonic
	}
	return entry.exec(p)
}

// execFn is the uniform shape every decodeTable entry dispatches through:
// given the running Core, perform one tick's worth of work for that opcode
// and report whether the instruction is complete.
type execFn func(*Core) (bool, error)

// addrMethod is the method-expression shape of the Core.addrXXX family,
// e.g. (*Core).addrZP, used to build execFn closures generically instead of
// hand-writing one closure per opcode.
type addrMethod func(*Core, instructionMode) (bool, error)

// decodeEntry is one row of decodeTable: the mnemonic (surfaced through
// Debug()) and the closure that runs the opcode.
type decodeEntry struct {
	mnemonic string
	exec     execFn
}

// load builds an execFn for a read-modify-register opcode: run addrFunc
// (curried against kLOAD_INSTRUCTION via loadInstruction) until it reports
// the operand address/value are ready, then run opFunc against them.
func load(addrFunc addrMethod, opFunc execFn) execFn {
	return func(p *Core) (bool, error) {
		return p.loadInstruction(
			func(m instructionMode) (bool, error) { return addrFunc(p, m) },
			func() (bool, error) { return opFunc(p) },
		)
	}
}

// rmw builds an execFn for a read-modify-write opcode, the addressing mode
// having already performed the dummy write rmwInstruction expects.
func rmw(addrFunc addrMethod, opFunc execFn) execFn {
	return func(p *Core) (bool, error) {
		return p.rmwInstruction(
			func(m instructionMode) (bool, error) { return addrFunc(p, m) },
			func() (bool, error) { return opFunc(p) },
		)
	}
}

// store builds an execFn for a store opcode; valFunc is evaluated fresh on
// every tick so the written value always reflects the register's current
// contents (needed for SAX, whose value is A&X).
func store(addrFunc addrMethod, valFunc func(*Core) uint8) execFn {
	return func(p *Core) (bool, error) {
		return p.storeInstruction(
			func(m instructionMode) (bool, error) { return addrFunc(p, m) },
			valFunc(p),
		)
	}
}

// loadReg builds an execFn for a single-tick register transfer/increment
// opcode (TAX, DEY, INX, ...) that goes through loadRegister for its flag
// side effects.
func loadReg(ptrFunc func(*Core) *uint8, valFunc func(*Core) uint8) execFn {
	return func(p *Core) (bool, error) {
		return p.loadRegister(ptrFunc(p), valFunc(p))
	}
}

// nopRead builds an execFn for an undocumented NOP that still performs the
// addressing mode's read (and its cycle count) but discards the value.
func nopRead(addrFunc addrMethod) execFn {
	return func(p *Core) (bool, error) {
		return addrFunc(p, kLOAD_INSTRUCTION)
	}
}

// nop is the implied-mode NOP: one tick, no bus access beyond the opcode
// fetch and following-byte read already done by Tick.
func nop() execFn {
	return func(*Core) (bool, error) { return true, nil }
}

// hlt marks the CPU halted. Tick() checks p.halted before looking at the
// returned error, so the return value here is never observed.
func hlt() execFn {
	return func(p *Core) (bool, error) {
		p.halted = true
		return false, nil
	}
}

// Register accessors shared across many decodeTable rows: regX reads a
// register's current value (for stores and transfers), ptrX exposes the
// register as the *uint8 loadRegister needs to set flags on.
var (
	regA  = func(p *Core) uint8 { return p.A }
	regX  = func(p *Core) uint8 { return p.X }
	regY  = func(p *Core) uint8 { return p.Y }
	regAX = func(p *Core) uint8 { return p.A & p.X }

	ptrA = func(p *Core) *uint8 { return &p.A }
	ptrX = func(p *Core) *uint8 { return &p.X }
	ptrY = func(p *Core) *uint8 { return &p.Y }

	valS   = func(p *Core) uint8 { return p.S }
	valXm1 = func(p *Core) uint8 { return p.X - 1 }
	valXp1 = func(p *Core) uint8 { return p.X + 1 }
	valYm1 = func(p *Core) uint8 { return p.Y - 1 }
	valYp1 = func(p *Core) uint8 { return p.Y + 1 }
)

// decodeTable is the 256-entry opcode decode table, one row per possible
// fetched byte, each naming its addressing mode and semantic function.
var decodeTable = [256]decodeEntry{
	0x00: {"BRK", (*Core).iBRK},
	0x01: {"ORA (d,x)", load((*Core).addrIndirectX, (*Core).iORA)},
	0x02: {"HLT", hlt()},
	0x03: {"SLO (d,x)", rmw((*Core).addrIndirectX, (*Core).iSLO)},
	0x04: {"NOP d", nopRead((*Core).addrZP)},
	0x05: {"ORA d", load((*Core).addrZP, (*Core).iORA)},
	0x06: {"ASL d", rmw((*Core).addrZP, (*Core).iASL)},
	0x07: {"SLO d", rmw((*Core).addrZP, (*Core).iSLO)},
	0x08: {"PHP", (*Core).iPHP},
	0x09: {"ORA #i", load((*Core).addrImmediate, (*Core).iORA)},
	0x0A: {"ASL", (*Core).iASLAcc},
	0x0B: {"ANC #i", load((*Core).addrImmediate, (*Core).iANC)},
	0x0C: {"NOP a", nopRead((*Core).addrAbsolute)},
	0x0D: {"ORA a", load((*Core).addrAbsolute, (*Core).iORA)},
	0x0E: {"ASL a", rmw((*Core).addrAbsolute, (*Core).iASL)},
	0x0F: {"SLO a", rmw((*Core).addrAbsolute, (*Core).iSLO)},

	0x10: {"BPL *+r", (*Core).iBPL},
	0x11: {"ORA (d),y", load((*Core).addrIndirectY, (*Core).iORA)},
	0x12: {"HLT", hlt()},
	0x13: {"SLO (d),y", rmw((*Core).addrIndirectY, (*Core).iSLO)},
	0x14: {"NOP d,x", nopRead((*Core).addrZPX)},
	0x15: {"ORA d,x", load((*Core).addrZPX, (*Core).iORA)},
	0x16: {"ASL d,x", rmw((*Core).addrZPX, (*Core).iASL)},
	0x17: {"SLO d,x", rmw((*Core).addrZPX, (*Core).iSLO)},
	0x18: {"CLC", (*Core).iCLC},
	0x19: {"ORA a,y", load((*Core).addrAbsoluteY, (*Core).iORA)},
	0x1A: {"NOP", nop()},
	0x1B: {"SLO a,y", rmw((*Core).addrAbsoluteY, (*Core).iSLO)},
	0x1C: {"NOP a,x", nopRead((*Core).addrAbsoluteX)},
	0x1D: {"ORA a,x", load((*Core).addrAbsoluteX, (*Core).iORA)},
	0x1E: {"ASL a,x", rmw((*Core).addrAbsoluteX, (*Core).iASL)},
	0x1F: {"SLO a,x", rmw((*Core).addrAbsoluteX, (*Core).iSLO)},

	0x20: {"JSR a", (*Core).iJSR},
	0x21: {"AND (d,x)", load((*Core).addrIndirectX, (*Core).iAND)},
	0x22: {"HLT", hlt()},
	0x23: {"RLA (d,x)", rmw((*Core).addrIndirectX, (*Core).iRLA)},
	0x24: {"BIT d", load((*Core).addrZP, (*Core).iBIT)},
	0x25: {"AND d", load((*Core).addrZP, (*Core).iAND)},
	0x26: {"ROL d", rmw((*Core).addrZP, (*Core).iROL)},
	0x27: {"RLA d", rmw((*Core).addrZP, (*Core).iRLA)},
	0x28: {"PLP", (*Core).iPLP},
	0x29: {"AND #i", load((*Core).addrImmediate, (*Core).iAND)},
	0x2A: {"ROL", (*Core).iROLAcc},
	0x2B: {"ANC #i", load((*Core).addrImmediate, (*Core).iANC)},
	0x2C: {"BIT a", load((*Core).addrAbsolute, (*Core).iBIT)},
	0x2D: {"AND a", load((*Core).addrAbsolute, (*Core).iAND)},
	0x2E: {"ROL a", rmw((*Core).addrAbsolute, (*Core).iROL)},
	0x2F: {"RLA a", rmw((*Core).addrAbsolute, (*Core).iRLA)},

	0x30: {"BMI *+r", (*Core).iBMI},
	0x31: {"AND (d),y", load((*Core).addrIndirectY, (*Core).iAND)},
	0x32: {"HLT", hlt()},
	0x33: {"RLA (d),y", rmw((*Core).addrIndirectY, (*Core).iRLA)},
	0x34: {"NOP d,x", nopRead((*Core).addrZPX)},
	0x35: {"AND d,x", load((*Core).addrZPX, (*Core).iAND)},
	0x36: {"ROL d,x", rmw((*Core).addrZPX, (*Core).iROL)},
	0x37: {"RLA d,x", rmw((*Core).addrZPX, (*Core).iRLA)},
	0x38: {"SEC", (*Core).iSEC},
	0x39: {"AND a,y", load((*Core).addrAbsoluteY, (*Core).iAND)},
	0x3A: {"NOP", nop()},
	0x3B: {"RLA a,y", rmw((*Core).addrAbsoluteY, (*Core).iRLA)},
	0x3C: {"NOP a,x", nopRead((*Core).addrAbsoluteX)},
	0x3D: {"AND a,x", load((*Core).addrAbsoluteX, (*Core).iAND)},
	0x3E: {"ROL a,x", rmw((*Core).addrAbsoluteX, (*Core).iROL)},
	0x3F: {"RLA a,x", rmw((*Core).addrAbsoluteX, (*Core).iRLA)},

	0x40: {"RTI", (*Core).iRTI},
	0x41: {"EOR (d,x)", load((*Core).addrIndirectX, (*Core).iEOR)},
	0x42: {"HLT", hlt()},
	0x43: {"SRE (d,x)", rmw((*Core).addrIndirectX, (*Core).iSRE)},
	0x44: {"NOP d", nopRead((*Core).addrZP)},
	0x45: {"EOR d", load((*Core).addrZP, (*Core).iEOR)},
	0x46: {"LSR d", rmw((*Core).addrZP, (*Core).iLSR)},
	0x47: {"SRE d", rmw((*Core).addrZP, (*Core).iSRE)},
	0x48: {"PHA", (*Core).iPHA},
	0x49: {"EOR #i", load((*Core).addrImmediate, (*Core).iEOR)},
	0x4A: {"LSR", (*Core).iLSRAcc},
	0x4B: {"ALR #i", load((*Core).addrImmediate, (*Core).iALR)},
	0x4C: {"JMP a", (*Core).iJMP},
	0x4D: {"EOR a", load((*Core).addrAbsolute, (*Core).iEOR)},
	0x4E: {"LSR a", rmw((*Core).addrAbsolute, (*Core).iLSR)},
	0x4F: {"SRE a", rmw((*Core).addrAbsolute, (*Core).iSRE)},

	0x50: {"BVC *+r", (*Core).iBVC},
	0x51: {"EOR (d),y", load((*Core).addrIndirectY, (*Core).iEOR)},
	0x52: {"HLT", hlt()},
	0x53: {"SRE (d),y", rmw((*Core).addrIndirectY, (*Core).iSRE)},
	0x54: {"NOP d,x", nopRead((*Core).addrZPX)},
	0x55: {"EOR d,x", load((*Core).addrZPX, (*Core).iEOR)},
	0x56: {"LSR d,x", rmw((*Core).addrZPX, (*Core).iLSR)},
	0x57: {"SRE d,x", rmw((*Core).addrZPX, (*Core).iSRE)},
	0x58: {"CLI", (*Core).iCLI},
	0x59: {"EOR a,y", load((*Core).addrAbsoluteY, (*Core).iEOR)},
	0x5A: {"NOP", nop()},
	0x5B: {"SRE a,y", rmw((*Core).addrAbsoluteY, (*Core).iSRE)},
	0x5C: {"NOP a,x", nopRead((*Core).addrAbsoluteX)},
	0x5D: {"EOR a,x", load((*Core).addrAbsoluteX, (*Core).iEOR)},
	0x5E: {"LSR a,x", rmw((*Core).addrAbsoluteX, (*Core).iLSR)},
	0x5F: {"SRE a,x", rmw((*Core).addrAbsoluteX, (*Core).iSRE)},

	0x60: {"RTS", (*Core).iRTS},
	0x61: {"ADC (d,x)", load((*Core).addrIndirectX, (*Core).iADC)},
	0x62: {"HLT", hlt()},
	0x63: {"RRA (d,x)", rmw((*Core).addrIndirectX, (*Core).iRRA)},
	0x64: {"NOP d", nopRead((*Core).addrZP)},
	0x65: {"ADC d", load((*Core).addrZP, (*Core).iADC)},
	0x66: {"ROR d", rmw((*Core).addrZP, (*Core).iROR)},
	0x67: {"RRA d", rmw((*Core).addrZP, (*Core).iRRA)},
	0x68: {"PLA", (*Core).iPLA},
	0x69: {"ADC #i", load((*Core).addrImmediate, (*Core).iADC)},
	0x6A: {"ROR", (*Core).iRORAcc},
	0x6B: {"ARR #i", load((*Core).addrImmediate, (*Core).iARR)},
	0x6C: {"JMP (a)", (*Core).iJMPIndirect},
	0x6D: {"ADC a", load((*Core).addrAbsolute, (*Core).iADC)},
	0x6E: {"ROR a", rmw((*Core).addrAbsolute, (*Core).iROR)},
	0x6F: {"RRA a", rmw((*Core).addrAbsolute, (*Core).iRRA)},

	0x70: {"BVS *+r", (*Core).iBVS},
	0x71: {"ADC (d),y", load((*Core).addrIndirectY, (*Core).iADC)},
	0x72: {"HLT", hlt()},
	0x73: {"RRA (d),y", rmw((*Core).addrIndirectY, (*Core).iRRA)},
	0x74: {"NOP d,x", nopRead((*Core).addrZPX)},
	0x75: {"ADC d,x", load((*Core).addrZPX, (*Core).iADC)},
	0x76: {"ROR d,x", rmw((*Core).addrZPX, (*Core).iROR)},
	0x77: {"RRA d,x", rmw((*Core).addrZPX, (*Core).iRRA)},
	0x78: {"SEI", (*Core).iSEI},
	0x79: {"ADC a,y", load((*Core).addrAbsoluteY, (*Core).iADC)},
	0x7A: {"NOP", nop()},
	0x7B: {"RRA a,y", rmw((*Core).addrAbsoluteY, (*Core).iRRA)},
	0x7C: {"NOP a,x", nopRead((*Core).addrAbsoluteX)},
	0x7D: {"ADC a,x", load((*Core).addrAbsoluteX, (*Core).iADC)},
	0x7E: {"ROR a,x", rmw((*Core).addrAbsoluteX, (*Core).iROR)},
	0x7F: {"RRA a,x", rmw((*Core).addrAbsoluteX, (*Core).iRRA)},

	0x80: {"NOP #i", nopRead((*Core).addrImmediate)},
	0x81: {"STA (d,x)", store((*Core).addrIndirectX, regA)},
	0x82: {"NOP #i", nopRead((*Core).addrImmediate)},
	0x83: {"SAX (d,x)", store((*Core).addrIndirectX, regAX)},
	0x84: {"STY d", store((*Core).addrZP, regY)},
	0x85: {"STA d", store((*Core).addrZP, regA)},
	0x86: {"STX d", store((*Core).addrZP, regX)},
	0x87: {"SAX d", store((*Core).addrZP, regAX)},
	0x88: {"DEY", loadReg(ptrY, valYm1)},
	0x89: {"NOP #i", nopRead((*Core).addrImmediate)},
	0x8A: {"TXA", loadReg(ptrA, regX)},
	0x8B: {"XAA #i", load((*Core).addrImmediate, (*Core).iXAA)},
	0x8C: {"STY a", store((*Core).addrAbsolute, regY)},
	0x8D: {"STA a", store((*Core).addrAbsolute, regA)},
	0x8E: {"STX a", store((*Core).addrAbsolute, regX)},
	0x8F: {"SAX a", store((*Core).addrAbsolute, regAX)},

	0x90: {"BCC *+d", (*Core).iBCC},
	0x91: {"STA (d),y", store((*Core).addrIndirectY, regA)},
	0x92: {"HLT", hlt()},
	0x93: {"AHX (d),y", func(p *Core) (bool, error) { return p.iAHX(p.addrIndirectY) }},
	0x94: {"STY d,x", store((*Core).addrZPX, regY)},
	0x95: {"STA d,x", store((*Core).addrZPX, regA)},
	0x96: {"STX d,y", store((*Core).addrZPY, regX)},
	0x97: {"SAX d,y", store((*Core).addrZPY, regAX)},
	0x98: {"TYA", loadReg(ptrA, regY)},
	0x99: {"STA a,y", store((*Core).addrAbsoluteY, regA)},
	0x9A: {"TXS", func(p *Core) (bool, error) { p.S = p.X; return true, nil }},
	0x9B: {"TAS a,y", (*Core).iTAS},
	0x9C: {"SHY a,x", func(p *Core) (bool, error) { return p.iSHY(p.addrAbsoluteX) }},
	0x9D: {"STA a,x", store((*Core).addrAbsoluteX, regA)},
	0x9E: {"SHX a,y", func(p *Core) (bool, error) { return p.iSHX(p.addrAbsoluteY) }},
	0x9F: {"AHX a,y", func(p *Core) (bool, error) { return p.iAHX(p.addrAbsoluteY) }},

	0xA0: {"LDY #i", load((*Core).addrImmediate, (*Core).loadRegisterY)},
	0xA1: {"LDA (d,x)", load((*Core).addrIndirectX, (*Core).loadRegisterA)},
	0xA2: {"LDX #i", load((*Core).addrImmediate, (*Core).loadRegisterX)},
	0xA3: {"LAX (d,x)", load((*Core).addrIndirectX, (*Core).iLAX)},
	0xA4: {"LDY d", load((*Core).addrZP, (*Core).loadRegisterY)},
	0xA5: {"LDA d", load((*Core).addrZP, (*Core).loadRegisterA)},
	0xA6: {"LDX d", load((*Core).addrZP, (*Core).loadRegisterX)},
	0xA7: {"LAX d", load((*Core).addrZP, (*Core).iLAX)},
	0xA8: {"TAY", loadReg(ptrY, regA)},
	0xA9: {"LDA #i", load((*Core).addrImmediate, (*Core).loadRegisterA)},
	0xAA: {"TAX", loadReg(ptrX, regA)},
	0xAB: {"LAX #i", load((*Core).addrImmediate, (*Core).iLAX)},
	0xAC: {"LDY a", load((*Core).addrAbsolute, (*Core).loadRegisterY)},
	0xAD: {"LDA a", load((*Core).addrAbsolute, (*Core).loadRegisterA)},
	0xAE: {"LDX a", load((*Core).addrAbsolute, (*Core).loadRegisterX)},
	0xAF: {"LAX a", load((*Core).addrAbsolute, (*Core).iLAX)},

	0xB0: {"BCS *+d", (*Core).iBCS},
	0xB1: {"LDA (d),y", load((*Core).addrIndirectY, (*Core).loadRegisterA)},
	0xB2: {"HLT", hlt()},
	0xB3: {"LAX (d),y", load((*Core).addrIndirectY, (*Core).iLAX)},
	0xB4: {"LDY d,x", load((*Core).addrZPX, (*Core).loadRegisterY)},
	0xB5: {"LDA d,x", load((*Core).addrZPX, (*Core).loadRegisterA)},
	0xB6: {"LDX d,y", load((*Core).addrZPY, (*Core).loadRegisterX)},
	0xB7: {"LAX d,y", load((*Core).addrZPY, (*Core).iLAX)},
	0xB8: {"CLV", (*Core).iCLV},
	0xB9: {"LDA a,y", load((*Core).addrAbsoluteY, (*Core).loadRegisterA)},
	0xBA: {"TSX", loadReg(ptrX, valS)},
	0xBB: {"LAS a,y", load((*Core).addrAbsoluteY, (*Core).iLAS)},
	0xBC: {"LDY a,x", load((*Core).addrAbsoluteX, (*Core).loadRegisterY)},
	0xBD: {"LDA a,x", load((*Core).addrAbsoluteX, (*Core).loadRegisterA)},
	0xBE: {"LDX a,y", load((*Core).addrAbsoluteY, (*Core).loadRegisterX)},
	0xBF: {"LAX a,y", load((*Core).addrAbsoluteY, (*Core).iLAX)},

	0xC0: {"CPY #i", load((*Core).addrImmediate, (*Core).compareY)},
	0xC1: {"CMP (d,x)", load((*Core).addrIndirectX, (*Core).compareA)},
	0xC2: {"NOP #i", nopRead((*Core).addrImmediate)},
	0xC3: {"DCP (d,X)", rmw((*Core).addrIndirectX, (*Core).iDCP)},
	0xC4: {"CPY d", load((*Core).addrZP, (*Core).compareY)},
	0xC5: {"CMP d", load((*Core).addrZP, (*Core).compareA)},
	0xC6: {"DEC d", rmw((*Core).addrZP, (*Core).iDEC)},
	0xC7: {"DCP d", rmw((*Core).addrZP, (*Core).iDCP)},
	0xC8: {"INY", loadReg(ptrY, valYp1)},
	0xC9: {"CMP #i", load((*Core).addrImmediate, (*Core).compareA)},
	0xCA: {"DEX", loadReg(ptrX, valXm1)},
	0xCB: {"AXS #i", load((*Core).addrImmediate, (*Core).iAXS)},
	0xCC: {"CPY a", load((*Core).addrAbsolute, (*Core).compareY)},
	0xCD: {"CMP a", load((*Core).addrAbsolute, (*Core).compareA)},
	0xCE: {"DEC a", rmw((*Core).addrAbsolute, (*Core).iDEC)},
	0xCF: {"DCP a", rmw((*Core).addrAbsolute, (*Core).iDCP)},

	0xD0: {"BNE *+r", (*Core).iBNE},
	0xD1: {"CMP (d),y", load((*Core).addrIndirectY, (*Core).compareA)},
	0xD2: {"HLT", hlt()},
	0xD3: {"DCP (d),y", rmw((*Core).addrIndirectY, (*Core).iDCP)},
	0xD4: {"NOP d,x", nopRead((*Core).addrZPX)},
	0xD5: {"CMP d,x", load((*Core).addrZPX, (*Core).compareA)},
	0xD6: {"DEC d,x", rmw((*Core).addrZPX, (*Core).iDEC)},
	0xD7: {"DCP d,x", rmw((*Core).addrZPX, (*Core).iDCP)},
	0xD8: {"CLD", (*Core).iCLD},
	0xD9: {"CMP a,y", load((*Core).addrAbsoluteY, (*Core).compareA)},
	0xDA: {"NOP", nop()},
	0xDB: {"DCP a,y", rmw((*Core).addrAbsoluteY, (*Core).iDCP)},
	0xDC: {"NOP a,x", nopRead((*Core).addrAbsoluteX)},
	0xDD: {"CMP a,x", load((*Core).addrAbsoluteX, (*Core).compareA)},
	0xDE: {"DEC a,x", rmw((*Core).addrAbsoluteX, (*Core).iDEC)},
	0xDF: {"DCP a,x", rmw((*Core).addrAbsoluteX, (*Core).iDCP)},

	0xE0: {"CPX #i", load((*Core).addrImmediate, (*Core).compareX)},
	0xE1: {"SBC (d,x)", load((*Core).addrIndirectX, (*Core).iSBC)},
	0xE2: {"NOP #i", nopRead((*Core).addrImmediate)},
	0xE3: {"ISC (d,x)", rmw((*Core).addrIndirectX, (*Core).iISC)},
	0xE4: {"CPX d", load((*Core).addrZP, (*Core).compareX)},
	0xE5: {"SBC d", load((*Core).addrZP, (*Core).iSBC)},
	0xE6: {"INC d", rmw((*Core).addrZP, (*Core).iINC)},
	0xE7: {"ISC d", rmw((*Core).addrZP, (*Core).iISC)},
	0xE8: {"INX", loadReg(ptrX, valXp1)},
	0xE9: {"SBC #i", load((*Core).addrImmediate, (*Core).iSBC)},
	0xEA: {"NOP", nop()},
	0xEB: {"SBC #i", load((*Core).addrImmediate, (*Core).iSBC)},
	0xEC: {"CPX a", load((*Core).addrAbsolute, (*Core).compareX)},
	0xED: {"SBC a", load((*Core).addrAbsolute, (*Core).iSBC)},
	0xEE: {"INC a", rmw((*Core).addrAbsolute, (*Core).iINC)},
	0xEF: {"ISC a", rmw((*Core).addrAbsolute, (*Core).iISC)},

	0xF0: {"BEQ *+d", (*Core).iBEQ},
	0xF1: {"SBC (d),y", load((*Core).addrIndirectY, (*Core).iSBC)},
	0xF2: {"HLT", hlt()},
	0xF3: {"ISC (d),y", rmw((*Core).addrIndirectY, (*Core).iISC)},
	0xF4: {"NOP d,x", nopRead((*Core).addrZPX)},
	0xF5: {"SBC d,x", load((*Core).addrZPX, (*Core).iSBC)},
	0xF6: {"INC d,x", rmw((*Core).addrZPX, (*Core).iINC)},
	0xF7: {"ISC d,x", rmw((*Core).addrZPX, (*Core).iISC)},
	0xF8: {"SED", (*Core).iSED},
	0xF9: {"SBC a,y", load((*Core).addrAbsoluteY, (*Core).iSBC)},
	0xFA: {"NOP", nop()},
	0xFB: {"ISC a,y", rmw((*Core).addrAbsoluteY, (*Core).iISC)},
	0xFC: {"NOP a,x", nopRead((*Core).addrAbsoluteX)},
	0xFD: {"SBC a,x", load((*Core).addrAbsoluteX, (*Core).iSBC)},
	0xFE: {"INC a,x", rmw((*Core).addrAbsoluteX, (*Core).iINC)},
	0xFF: {"ISC a,x", rmw((*Core).addrAbsoluteX, (*Core).iISC)},
}

// zeroCheck sets the Z flag based on the register contents.
func (p *Core) zeroCheck(reg uint8) {
	p.P &^= P_ZERO
	if reg == 0 {
		p.P |= P_ZERO
	}
}

// negativeCheck sets the N flag based on the register contents.
func (p *Core) negativeCheck(reg uint8) {
	p.P &^= P_NEGATIVE
	if (reg & P_NEGATIVE) == 0x80 {
		p.P |= P_NEGATIVE
	}
}

// carryCheck sets the C flag if the result of an 8 bit ALU operation
// (passed as a 16 bit result) caused a carry out by generating a value >= 0x100.
// NOTE: this compares against 0x100 rather than masking it, so any value at
//       or above 0x100 (including 0x200 and up) counts as a carry.
func (p *Core) carryCheck(res uint16) {
	p.P &^= P_CARRY
	if res >= 0x100 {
		p.P |= P_CARRY
	}
}

// overflowCheck sets the V flag if the result of the ALU operation
// caused a two's complement sign change.
// Taken from http://www.righto.com/2012/12/the-6502-overflow-flag-explained.html
func (p *Core) overflowCheck(reg uint8, arg uint8, res uint8) {
	p.P &^= P_OVERFLOW
	// If the originals signs differ from the end sign bit
	if (reg^res)&(arg^res)&0x80 != 0x00 {
		p.P |= P_OVERFLOW
	}
}

// instructionMode is an enumeration indicating the type of instruction being processed.
// Used below in addressing modes.
type instructionMode int

const (
	kLOAD_INSTRUCTION instructionMode = iota
	kRMW_INSTRUCTION
	kSTORE_INSTRUCTION
)

// addrImmediate implements immediate mode - #i
// returning the value in p.opVal
// NOTE: This has no W or RMW mode so the argument is ignored.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrImmediate(instructionMode) (bool, error) {
	if p.opTick != 2 {
		return true, InvalidCPUState{fmt.Sprintf("addrImmediate invalid opTick %d, not 2", p.opTick)}
	}
	// This mode consumed the opVal so increment the PC.
	p.PC++
	return true, nil
}

// addrZP implements Zero page mode - d
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrZP(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("addrZP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Already read the value but need to bump the PC
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		done := false
		// For a store we're done since we have the address needed.
		if mode == kSTORE_INSTRUCTION {
			done = true
		}
		return done, nil
	case p.opTick == 3:
		p.opVal = p.rd(p.opAddr)
		done := true
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	}
	// case p.opTick == 4:
	p.wr(p.opAddr, p.opVal)
	return true, nil
}

// addrZPX implements Zero page plus X mode - d,x
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrZPX(mode instructionMode) (bool, error) {
	return p.addrZPXY(mode, p.X)
}

// addrZPY implements Zero page plus Y mode - d,y
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrZPY(mode instructionMode) (bool, error) {
	return p.addrZPXY(mode, p.Y)
}

// addrZPXY implements the details for addrZPX and addrZPY since they only differ based on the register used.
// See those functions for arg/return specifics.
func (p *Core) addrZPXY(mode instructionMode, reg uint8) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 5:
		return true, InvalidCPUState{fmt.Sprintf("addrZPXY invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		// Already read the value but need to bump the PC
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		// Read from the ZP addr and then add the register for the real read later.
		_ = p.rd(p.opAddr)
		// Does this as a uint8 so it wraps as needed.
		p.opAddr = uint16(uint8(p.opVal + reg))
		done := false
		// For a store we're done since we have the address needed.
		if mode == kSTORE_INSTRUCTION {
			done = true
		}
		return done, nil
	case p.opTick == 4:
		// Now read from the final address.
		p.opVal = p.rd(p.opAddr)
		done := true
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	}
	// case p.opTick == 5:
	p.wr(p.opAddr, p.opVal)
	return true, nil
}

// addrIndirectX implements Zero page indirect plus X mode - (d,x)
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrIndirectX(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 7:
		return true, InvalidCPUState{fmt.Sprintf("addrIndirectX invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		// Already read the value but need to bump the PC
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		// Read from the ZP addr. We'll add the X register as well for the real read next.
		_ = p.rd(p.opAddr)
		// Does this as a uint8 so it wraps as needed.
		p.opAddr = uint16(uint8(p.opVal + p.X))
		return false, nil
	case p.opTick == 4:
		// Read effective addr low byte.
		p.opVal = p.rd(p.opAddr)
		// Setup opAddr for next read and handle wrapping
		p.opAddr = uint16(uint8(p.opAddr&0x00FF) + 1)
		return false, nil
	case p.opTick == 5:
		p.opAddr = (uint16(p.rd(p.opAddr)) << 8) + uint16(p.opVal)
		done := false
		// For a store we're done since we have the address needed.
		if mode == kSTORE_INSTRUCTION {
			done = true
		}
		return done, nil
	case p.opTick == 6:
		p.opVal = p.rd(p.opAddr)
		done := true
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	}
	// case p.opTick == 7:
	p.wr(p.opAddr, p.opVal)
	return true, nil
}

// addrIndirectY implements Zero page indirect plus Y mode - (d),y
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrIndirectY(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 7:
		return true, InvalidCPUState{fmt.Sprintf("addrIndirectY invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		// Already read the value but need to bump the PC
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		// Read from the ZP addr to start building our pointer.
		p.opVal = p.rd(p.opAddr)
		// Setup opAddr for next read and handle wrapping
		p.opAddr = uint16(uint8(p.opAddr&0x00FF) + 1)
		return false, nil
	case p.opTick == 4:
		// Compute effective address and then add Y to it (possibly wrongly).
		p.opAddr = (uint16(p.rd(p.opAddr)) << 8) + uint16(p.opVal)
		// Add Y but do it in a way which won't page wrap (if needed)
		a := (p.opAddr & 0xFF00) + uint16(uint8(p.opAddr&0xFF)+p.Y)
		p.opVal = 0
		if a != (p.opAddr + uint16(p.Y)) {
			// Signal for next phase we got it wrong.
			p.opVal = 1
		}
		p.opAddr = a
		return false, nil
	case p.opTick == 5:
		t := p.opVal
		p.opVal = p.rd(p.opAddr)

		// Check old opVal to see if it's non-zero. If so it means the Y addition
		// crosses a page boundary and we'll have to fixup.
		// For a load operation that means another tick to read the correct
		// address.
		// For RMW it doesn't matter (we always do the extra tick).
		// For Store we're done. Just fixup p.opAddr so the return value is correct.
		done := true
		if t != 0 {
			p.opAddr += 0x0100
			if mode == kLOAD_INSTRUCTION {
				done = false
			}
		}
		// For RMW it doesn't matter, we tick again.
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	case p.opTick == 6:
		// Optional (on load) in case adding Y went past a page boundary.
		p.opVal = p.rd(p.opAddr)
		done := true
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	}
	// case p.opTick == 7:
	p.wr(p.opAddr, p.opVal)
	return true, nil
}

// addrAbsolute implements absolute mode - a
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrAbsolute(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 5:
		return true, InvalidCPUState{fmt.Sprintf("addrAbsolute invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		// opVal has already been read so start constructing the address
		p.opAddr = 0x00FF & uint16(p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		p.opVal = p.rd(p.PC)
		p.PC++
		p.opAddr |= (uint16(p.opVal) << 8)
		done := false
		if mode == kSTORE_INSTRUCTION {
			done = true
		}
		return done, nil
	case p.opTick == 4:
		// For load and RMW instructions
		p.opVal = p.rd(p.opAddr)
		done := true
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	}
	// case p.opTick == 5:
	p.wr(p.opAddr, p.opVal)
	return true, nil
}

// addrAbsoluteX implements absolute plus X mode - a,x
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrAbsoluteX(mode instructionMode) (bool, error) {
	return p.addrAbsoluteXY(mode, p.X)
}

// addrAbsoluteY implements absolute plus Y mode - a,y
// returning the value in p.opVal and the address read in p.opAddr (so RW operations can do things without having to
// reread memory incorrectly to compute a storage address).
// If mode is RMW then another tick will occur that writes the read value back to the same address due to how
// the 6502 operates.
// Returns error on invalid tick.
// The bool return value is true if this tick ends address processing.
func (p *Core) addrAbsoluteY(mode instructionMode) (bool, error) {
	return p.addrAbsoluteXY(mode, p.Y)
}

// addrAbsoluteXY implements the details for addrAbsoluteX and addrAbsoluteY since they only differ based on the register used.
// See those functions for arg/return specifics.
func (p *Core) addrAbsoluteXY(mode instructionMode, reg uint8) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("addrAbsoluteX invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		// opVal has already been read so start constructing the address
		p.opAddr = 0x00FF & uint16(p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		p.opVal = p.rd(p.PC)
		p.PC++
		p.opAddr |= (uint16(p.opVal) << 8)
		// Add X but do it in a way which won't page wrap (if needed)
		a := (p.opAddr & 0xFF00) + uint16(uint8(p.opAddr&0x00FF)+reg)
		p.opVal = 0
		if a != (p.opAddr + uint16(reg)) {
			// Signal for next phase we got it wrong.
			p.opVal = 1
		}
		p.opAddr = a
		return false, nil
	case p.opTick == 4:
		t := p.opVal
		p.opVal = p.rd(p.opAddr)
		// Check old opVal to see if it's non-zero. If so it means the X addition
		// crosses a page boundary and we'll have to fixup.
		// For a load operation that means another tick to read the correct
		// address.
		// For RMW it doesn't matter (we always do the extra tick).
		// For Store we're done. Just fixup p.opAddr so the return value is correct.
		done := true
		if t != 0 {
			p.opAddr += 0x0100
			if mode == kLOAD_INSTRUCTION {
				done = false
			}
		}
		// For RMW it doesn't matter, we tick again.
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	case p.opTick == 5:
		// Optional (on load) in case adding X went past a page boundary.
		p.opVal = p.rd(p.opAddr)
		done := true
		if mode == kRMW_INSTRUCTION {
			done = false
		}
		return done, nil
	}
	// case p.opTick == 6:
	p.wr(p.opAddr, p.opVal)
	return true, nil
}

// loadRegister takes the val and inserts it into the register passed in. It then does
// Z and N checks against the new value.
// Always returns true and no error since this is a single tick operation.
func (p *Core) loadRegister(reg *uint8, val uint8) (bool, error) {
	*reg = val
	p.zeroCheck(*reg)
	p.negativeCheck(*reg)
	return true, nil
}

// loadRegisterA is the curried version of loadRegister that uses p.opVal and A implicitly.
// This way it can be used as the opFunc argument during load/rmw instructions.
// Always returns true and no error since this is a single tick operation.
func (p *Core) loadRegisterA() (bool, error) {
	p.loadRegister(&p.A, p.opVal)
	return true, nil
}

// loadRegisterX is the curried version of loadRegister that uses p.opVal and X implicitly.
// This way it can be used as the opFunc argument during load/rmw instructions.
// Always returns true and no error since this is a single tick operation.
func (p *Core) loadRegisterX() (bool, error) {
	return p.loadRegister(&p.X, p.opVal)
}

// loadRegisterY is the curried version of loadRegister that uses p.opVal and Y implicitly.
// This way it can be used as the opFunc argument during load/rmw instructions.
// Always returns true and no error since this is a single tick operation.
func (p *Core) loadRegisterY() (bool, error) {
	return p.loadRegister(&p.Y, p.opVal)
}

// pushStack pushes the given byte onto the stack and adjusts the stack pointer accordingly.
func (p *Core) pushStack(val uint8) {
	p.wr(0x0100+uint16(p.S), val)
	p.S--
}

// popStack pops the top byte off the stack and adjusts the stack pointer accordingly.
func (p *Core) popStack() uint8 {
	p.S++
	return p.rd(0x0100 + uint16(p.S))
}

// branchNOP reads the next byte as the branch offset and increments the PC.
// Used for the 2rd tick when branches aren't taken.
func (p *Core) branchNOP() (bool, error) {
	if p.opTick <= 1 || p.opTick > 3 {
		return true, InvalidCPUState{fmt.Sprintf("branchNOP invalid opTick %d", p.opTick)}
	}
	p.PC++
	return true, nil
}

// performBranch does the heavy lifting for branching by
// computing the new PC and computing appropriate cycle costs.
// It returns true when the instruction is done and error if the tick
// becomes invalid.
func (p *Core) performBranch() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("performBranch invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Increment the PC
		p.PC++
		return false, nil
	case p.opTick == 3:
		// We only skip if the last instruction didn't. This way a branch always doesn't prevent interrupt processing
		// since real silicon this is what happens (just a delay in the pipelining).
		if !p.prevSkipInterrupt {
			p.skipInterrupt = true
		}
		// Per http://www.6502.org/tutorials/6502opcodes.html
		// the wrong page is defined as the a different page than
		// the next byte after the jump. i.e. current PC at the moment.

		// Now compute the new PC but possibly wrong page.
		// Stash the old one in p.opAddr so we can use in tick 4 if needed.
		p.opAddr = p.PC
		p.PC = (p.PC & 0xFF00) + uint16(uint8(p.PC&0x00FF)+p.opVal)
		// It always triggers a bus read of the PC.
		_ = p.rd(p.PC)
		if p.PC == (p.opAddr + uint16(int16(int8(p.opVal)))) {
			return true, nil
		}
		return false, nil
	}
	// case p.opTick == 4:
	// Set correct PC value
	p.PC = p.opAddr + uint16(int16(int8(p.opVal)))
	// Always read the next opcode
	_ = p.rd(p.PC)
	return true, nil
}

const BRK = uint8(0x00)

// runInterrupt does all the heavy lifting for any interrupt processing.
// i.e. pushing values onto the stack and loading PC with the right address.
// Pass in the vector to be used for loading the PC (which means for BRK
// it can change if an NMI happens before we get to the load ticks).
// Returns true when complete (and PC is correct). Can return an error on an
// invalid tick count.
func (p *Core) runInterrupt(addr uint16, irq bool) (bool, error) {
	switch {
	case p.opTick < 1 || p.opTick > 7:
		return true, InvalidCPUState{fmt.Sprintf("runInterrupt invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		// Increment the PC on a non IRQ (i.e. BRK) since that changes where returns happen.
		if !irq {
			p.PC++
		}
		return false, nil
	case p.opTick == 3:
		p.pushStack(uint8((p.PC & 0xFF00) >> 8))
		return false, nil
	case p.opTick == 4:
		p.pushStack(uint8(p.PC & 0xFF))
		return false, nil
	case p.opTick == 5:
		push := p.P
		// S1 is always set
		push |= P_S1
		// B always set unless this triggered due to IRQ
		push |= P_B
		if irq {
			push &^= P_B
		}
		p.P |= P_INTERRUPT
		p.pushStack(push)
		return false, nil
	case p.opTick == 6:
		p.opVal = p.rd(addr)
		return false, nil
	}
	// case p.opTick == 7:
	p.PC = (uint16(p.rd(addr+1)) << 8) + uint16(p.opVal)
	// If we didn't previously skip an interrupt from processing make sure we execute the first instruction of
	// a handler before firing again.
	if irq && !p.prevSkipInterrupt {
		p.skipInterrupt = true
	}
	return true, nil
}

// iADC implements ADC and sets all associated flags. DecimalMode is never
// consulted: BCD arithmetic is out of scope for this core and the status
// flag is tracked as inert state only. SBC is not derived from this
// function; see iSBC, which re-derives the borrow directly.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iADC() (bool, error) {
	// Pull the carry bit out which thankfully is the low bit so can be
	// used directly.
	carry := p.P & P_CARRY

	sum := p.A + p.opVal + carry
	p.overflowCheck(p.A, p.opVal, sum)
	// Yes, could do bit checks here like the hardware but
	// just treating as uint16 math is simpler to code.
	p.carryCheck(uint16(p.A) + uint16(p.opVal) + uint16(carry))

	// Now set the accumulator so the other flag checks are against the result.
	p.loadRegister(&p.A, sum)
	return true, nil
}

// iASLAcc implements the ASL instruction directly on the accumulator.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since accumulator mode is done on tick 2 and never returns an error.
func (p *Core) iASLAcc() (bool, error) {
	p.carryCheck(uint16(p.A) << 1)
	p.loadRegister(&p.A, p.A<<1)
	return true, nil
}

// iASL implements the ASL instruction on the given memory location in p.opAddr.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iASL() (bool, error) {
	new := p.opVal << 1
	p.wr(p.opAddr, new)
	p.carryCheck(uint16(p.opVal) << 1)
	p.zeroCheck(new)
	p.negativeCheck(new)
	return true, nil
}

// iBCC implements the BCC instruction and branches if C is clear.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBCC() (bool, error) {
	if p.P&P_CARRY == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBCS implements the BCS instruction and branches if C is set.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBCS() (bool, error) {
	if p.P&P_CARRY != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBEQ implements the BEQ instruction and branches if Z is set.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBEQ() (bool, error) {
	if p.P&P_ZERO != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBIT implements the BIT instruction for AND'ing against A
// and setting N/V based on the value.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iBIT() (bool, error) {
	p.zeroCheck(p.A & p.opVal)
	p.negativeCheck(p.opVal)
	// Copy V from bit 6
	p.P &^= P_OVERFLOW
	if p.opVal&P_OVERFLOW != 0x00 {
		p.P |= P_OVERFLOW
	}
	return true, nil
}

// iBMI implements the BMI instructions and branches if N is set.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBMI() (bool, error) {
	if p.P&P_NEGATIVE != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBNE implements the BNE instructions and branches if Z is clear.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBNE() (bool, error) {
	if p.P&P_ZERO == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBPL implements the BPL instructions and branches if N is clear.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBPL() (bool, error) {
	if p.P&P_NEGATIVE == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBRK implements the BRK instruction and sets up and then calls the interrupt
// handler referenced at IRQ_VECTOR (normally).
// Returns true when on the correct PC. Returns error on an invalid tick.
func (p *Core) iBRK() (bool, error) {
	// Basically this is the same code as an interrupt handler so can change
	// change if interrupt state changes on a per tick basis. i.e. we might
	// push P with P_B set but go to NMI vector on the right timing.
	// PC comes from IRQ_VECTOR normally unless we've raised an NMI
	vec := IRQ_VECTOR
	if p.irqRaised == kIRQ_NMI {
		vec = NMI_VECTOR
	}
	itr := false
	if p.irqRaised != kIRQ_NONE {
		itr = true
	}
	done, err := p.runInterrupt(vec, itr)
	if done {
		// Eat any pending interrupt since BRK is special.
		p.irqRaised = kIRQ_NONE
	}
	return done, err
}

// iBVC implements the BVC instructions and branches if V is clear.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBVC() (bool, error) {
	if p.P&P_OVERFLOW == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBVS implements the BVS instructions and branches if V is set.
// Returns true when the branch has set the correct PC. Returns error on an invalid tick.
func (p *Core) iBVS() (bool, error) {
	if p.P&P_OVERFLOW != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// compare implements the logic for all CMP/CPX/CPY instructions and
// sets flags accordingly from the results.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) compare(reg uint8, val uint8) (bool, error) {
	p.zeroCheck(reg - val)
	p.negativeCheck(reg - val)
	// A-M done as 2's complement addition by ones complement and add 1
	// This way we get valid sign extension and a carry bit test.
	p.carryCheck(uint16(reg) + uint16(^val) + uint16(1))
	return true, nil
}

// compareA is a curried version of compare that references A and uses p.opVal for the value.
// This way it can be used as the opFunc in loadInstruction.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) compareA() (bool, error) {
	return p.compare(p.A, p.opVal)
}

// compareX is a curried version of compare that references X and uses p.opVal for the value.
// This way it can be used as the opFunc in loadInstruction.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) compareX() (bool, error) {
	return p.compare(p.X, p.opVal)
}

// compareY is a curried version of compare that references Y and uses p.opVal for the value.
// This way it can be used as the opFunc in loadInstruction.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) compareY() (bool, error) {
	return p.compare(p.Y, p.opVal)
}

// iJMP implments the JMP instruction for jumping to a new address.
// Doesn't use addressing mode functions since it's technically not a load/rmw/store
// instruction so doesn't fit exactly.
// Returns true when the PC is correct. Returns an error on an invalid tick.
func (p *Core) iJMP() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 3:
		return true, InvalidCPUState{fmt.Sprintf("JMP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// We've already read opVal which is the new PCL so increment the PC for the next tick.
		p.PC++
		return false, nil
	}
	// case p.opTick == 3:
	// Get the next bit of the PC and assemble it.
	v := p.rd(p.PC)
	p.opAddr = (uint16(v) << 8) + uint16(p.opVal)
	p.PC = p.opAddr
	return true, nil
}

// iJMPIndirect implements the indirect JMP instruction for jumping through a pointer to a new address.
// Assumes address is in p.opAddr correctly.
// Returns true when the PC is correct. Returns an error on an invalid tick.
func (p *Core) iJMPIndirect() (bool, error) {
	// First 3 ticks are the same as an absolute address
	if p.opTick < 4 {
		return p.addrAbsolute(kLOAD_INSTRUCTION)
	}
	switch {
	case p.opTick > 5:
		return true, InvalidCPUState{fmt.Sprintf("iJMPIndirect invalid opTick: %d", p.opTick)}
	case p.opTick == 4:
		// Read the low byte of the pointer and stash it in opVal
		p.opVal = p.rd(p.opAddr)
		return false, nil
	}
	// case p.opTick == 5:
	// Read the high byte. This reads the wrong address if there was a page
	// wrap (the source's famous $xxFF indirect-JMP bug, reproduced here
	// since it's part of NMOS 6502/6510 behavior, not a gap to fix).
	a := (p.opAddr & 0xFF00) + uint16(uint8(p.opAddr&0xFF)+1)
	v := p.rd(a)
	p.opAddr = (uint16(v) << 8) + uint16(p.opVal)
	p.PC = p.opAddr
	return true, nil
}

// iJSR implments the JSR instruction for jumping to a subroutine.
// Returns true when the PC is correct. Returns an error on an invalid tick.
func (p *Core) iJSR() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("JSR invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing happens here except to make the PC correct.
		// NOTE: This means the PC pushed below is actually pointing in the middle of
		//       the address. RTS handles this by adding one to the popped PC value.
		p.PC++
		return false, nil
	case p.opTick == 3:
		// Not 100% sure what happens on this cycle.
		// Per http://nesdev.com/6502_cpu.txt we read the current stack
		// value because there needs to be a tick to make S correct.
		p.S--
		_ = p.popStack()
		return false, nil
	case p.opTick == 4:
		p.pushStack(uint8((p.PC & 0xFF00) >> 8))
		return false, nil
	case p.opTick == 5:
		p.pushStack(uint8(p.PC & 0xFF))
		return false, nil
	}
	// case p.opTick == 6:
	p.PC = (uint16(p.rd(p.PC)) << 8) + uint16(p.opVal)
	return true, nil
}

// iLSRAcc implements the LSR instruction directly on the accumulator.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since accumulator mode is done on tick 2 and never returns an error.
func (p *Core) iLSRAcc() (bool, error) {
	// Get bit0 from A but in a 16 bit value and then shift it up into
	// the carry position
	p.carryCheck(uint16(p.A&0x01) << 8)
	p.loadRegister(&p.A, p.A>>1)
	return true, nil
}

// iLSR implements the LSR instruction on p.opAddr.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iLSR() (bool, error) {
	new := p.opVal >> 1
	p.wr(p.opAddr, new)
	// Get bit0 from orig but in a 16 bit value and then shift it up into
	// the carry position
	p.carryCheck(uint16(p.opVal&0x01) << 8)
	p.zeroCheck(new)
	p.negativeCheck(new)
	return true, nil
}

// iPHA implements the PHA instruction and pushs A onto the stack.
// Returns true when done. Returns error on an invalid tick.
func (p *Core) iPHA() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 3:
		return true, InvalidCPUState{fmt.Sprintf("PHA invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing else happens here
		return false, nil
	}
	// case p.opTick == 3:
	p.pushStack(p.A)
	return true, nil
}

// iPLA implements the PLA instruction and pops the stock into the accumulator.
// Returns true when done. Returns error on an invalid tick.
func (p *Core) iPLA() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("PLA invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing else happens here
		return false, nil
	case p.opTick == 3:
		// A read of the current stack happens while the CPU is incrementing S.
		// Since our popStack does both of these together on this cycle it's just
		// a throw away read.
		p.S--
		_ = p.popStack()
		return false, nil
	}
	// case p.opTick == 4:
	// The real read
	p.loadRegister(&p.A, p.popStack())
	return true, nil
}

// iPHP implements the PHP instructions for pushing P onto the stacks.
// Returns true when done. Returns error on an invalid tick.
func (p *Core) iPHP() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 3:
		return true, InvalidCPUState{fmt.Sprintf("PHP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing else happens here
		return false, nil
	}
	// case p.opTick == 3:
	push := p.P
	// This bit is always set no matter what.
	push |= P_S1

	// PHP always sets this bit where-as IRQ/NMI won't.
	push |= P_B
	p.pushStack(push)
	return true, nil
}

// iPLP implements the PLP instruction and pops the stack into the flags.
// Returns true when done. Returns error on an invalid tick.
func (p *Core) iPLP() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("PLP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing else happens here
		return false, nil
	case p.opTick == 3:
		// A read of the current stack happens while the CPU is incrementing S.
		// Since our popStack does both of these together on this cycle it's just
		// a throw away read.
		p.S--
		_ = p.popStack()
		return false, nil
	}
	// case p.opTick == 4:
	// The real read
	p.P = p.popStack()
	// The actual flags register always has S1 set to one
	p.P |= P_S1
	// And the B bit is never set in the register
	p.P &^= P_B
	return true, nil
}

// iROLAcc implements the ROL instruction directly on the accumulator.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since accumulator mode is done on tick 2 and never returns an error.
func (p *Core) iROLAcc() (bool, error) {
	carry := p.P & P_CARRY
	p.carryCheck(uint16(p.A) << 1)
	p.loadRegister(&p.A, (p.A<<1)|carry)
	return true, nil
}

// iROL implements the ROL instruction on p.opAddr.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iROL() (bool, error) {
	carry := p.P & P_CARRY
	new := (p.opVal << 1) | carry
	p.wr(p.opAddr, new)
	p.carryCheck(uint16(p.opVal) << 1)
	p.zeroCheck(new)
	p.negativeCheck(new)
	return true, nil
}

// iRORAcc implements the ROR instruction directly on the accumulator.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since accumulator mode is done on tick 2 and never returns an error.
func (p *Core) iRORAcc() (bool, error) {
	carry := (p.P & P_CARRY) << 7
	// Just see if carry is set or not.
	p.carryCheck((uint16(p.A) << 8) & 0x0100)
	p.loadRegister(&p.A, (p.A>>1)|carry)
	return true, nil
}

// iROR implements the ROR instruction on p.opAddr.
// It then sets all associated flags and adjust cycles as needed.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iROR() (bool, error) {
	carry := (p.P & P_CARRY) << 7
	new := (p.opVal >> 1) | carry
	p.wr(p.opAddr, new)
	// Just see if carry is set or not.
	p.carryCheck((uint16(p.opVal) << 8) & 0x0100)
	p.zeroCheck(new)
	p.negativeCheck(new)
	return true, nil
}

// iRTI implements the RTI instruction and pops the flags and PC off the stack for returning from an interrupt.
// Returns true when done. Returns error on an invalid tick.
func (p *Core) iRTI() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("RTI invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing else happens here
		return false, nil
	case p.opTick == 3:
		// A read of the current stack happens while the CPU is incrementing S.
		// Since our popStack does both of these together on this cycle it's just
		// a throw away read.
		p.S--
		_ = p.popStack()
		return false, nil
	case p.opTick == 4:
		// The real read for P
		p.P = p.popStack()
		// The actual flags register always has S1 set to one
		p.P |= P_S1
		// And the B bit is never set in the register
		p.P &^= P_B
		return false, nil
	case p.opTick == 5:
		// PCL
		p.opVal = p.popStack()
		return false, nil
	}
	// case p.opTick == 6:
	// PCH
	p.PC = (uint16(p.popStack()) << 8) + uint16(p.opVal)
	return true, nil
}

// iRTS implements the RTS instruction and pops the PC off the stack adding one to it.
func (p *Core) iRTS() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("RTS invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		// Nothing else happens here
		return false, nil
	case p.opTick == 3:
		// A read of the current stack happens while the CPU is incrementing S.
		// Since our popStack does both of these together on this cycle it's just
		// a throw away read.
		p.S--
		_ = p.popStack()
		return false, nil
	case p.opTick == 4:
		// PCL
		p.opVal = p.popStack()
		return false, nil
	case p.opTick == 5:
		// PCH
		p.PC = (uint16(p.popStack()) << 8) + uint16(p.opVal)
		return false, nil
	}
	// case p.opTick == 6:
	// Read the current PC and then get it incremented for the next instruction.
	_ = p.rd(p.PC)
	p.PC++
	return true, nil
}

// iSBC implements the SBC instruction and sets all associated flags.
// BCD is out of scope; the subtraction A - operand - (1 - carry) is always
// computed in signed int16 arithmetic and the low byte kept as the result.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iSBC() (bool, error) {
	borrow := int16(1) - int16(p.P&P_CARRY)
	full := int16(p.A) - int16(p.opVal) - borrow
	res := uint8(uint16(full) & 0xFF)

	p.overflowCheck(p.A, ^p.opVal, res)
	p.negativeCheck(res)
	p.zeroCheck(res)
	// Carry is clear exactly when subtraction needed to borrow (went negative).
	if full >= 0 {
		p.P |= P_CARRY
	} else {
		p.P &^= P_CARRY
	}
	p.A = res
	return true, nil
}

// iALR implements the undocumented opcode for ALR. This does AND #i (p.opVal) and then LSR setting all associated flags.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iALR() (bool, error) {
	p.loadRegister(&p.A, p.A&p.opVal)
	return p.iLSRAcc()
}

// iANC implements the undocumented opcode for ANC. This does AND #i (p.opVal) and then sets carry based on bit 7 (sign extend).
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iANC() (bool, error) {
	p.loadRegister(&p.A, p.A&p.opVal)
	p.carryCheck(uint16(p.A) << 1)
	return true, nil
}

// iARR implements the undocumented opcode for ARR. This does AND #i (p.opVal) and then ROR except some flags are set differently.
// Implemented as described in http://nesdev.com/6502_cpu.txt
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iARR() (bool, error) {
	t := p.A & p.opVal
	p.loadRegister(&p.A, t)
	p.iRORAcc()
	// C is bit 6
	p.carryCheck((uint16(p.A) << 2) & 0x0100)
	// V is bit 5 ^ bit 6
	if ((p.A&0x40)>>6)^((p.A&0x20)>>5) != 0x00 {
		p.P |= P_OVERFLOW
	} else {
		p.P &^= P_OVERFLOW
	}
	return true, nil
}

// iAXS implements the undocumented opcode for AXS. (A AND X) - p.opVal (no borrow) setting all associated flags post SBC.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iAXS() (bool, error) {
	// Save A off to restore later
	a := p.A
	p.loadRegister(&p.A, p.A&p.X)
	// Carry is always set
	p.P |= P_CARRY
	v := p.P & P_OVERFLOW
	p.iSBC()
	// Clear V now in case SBC set it so we can properly restore it below.
	p.P &^= P_OVERFLOW
	// Save A in a temp so we can load registers in the right order to set flags (based on X, not old A)
	x := p.A
	p.loadRegister(&p.A, a)
	p.loadRegister(&p.X, x)
	// Restore V from our initial state.
	p.P |= v
	return true, nil
}

// iLAX implements the undocumented opcode for LAX. This loads A and X with the same value and sets all associated flags.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iLAX() (bool, error) {
	p.loadRegister(&p.A, p.opVal)
	p.loadRegister(&p.X, p.opVal)
	return true, nil
}

// iDCP implements the undocumented opcode for DCP. This decrements p.opAddr and then does a CMP with A setting associated flags.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iDCP() (bool, error) {
	p.opVal -= 1
	p.wr(p.opAddr, p.opVal)
	return p.compareA()
}

// iISC implements the undocumented opcode for ISC. This increments the value at p.opAddr and then does an SBC with setting associated flags.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iISC() (bool, error) {
	p.opVal += 1
	p.wr(p.opAddr, p.opVal)
	return p.iSBC()
}

// iSLO implements the undocumented opcode for SLO. This does an ASL on p.opAddr and then OR's it against A. Sets flags and carry.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iSLO() (bool, error) {
	p.wr(p.opAddr, p.opVal<<1)
	p.carryCheck(uint16(p.opVal) << 1)
	p.loadRegister(&p.A, (p.opVal<<1)|p.A)
	return true, nil
}

// iRLA implements the undocumented opcode for RLA. This does a ROL on p.opAddr address and then AND's it against A. Sets flags and carry.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iRLA() (bool, error) {
	n := p.opVal<<1 | (p.P & P_CARRY)
	p.wr(p.opAddr, n)
	p.carryCheck(uint16(p.opVal) << 1)
	p.loadRegister(&p.A, n&p.A)
	return true, nil
}

// iSRE implements the undocumented opcode for SRE. This does a LSR on p.opAddr and then EOR's it against A. Sets flags and carry.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iSRE() (bool, error) {
	p.wr(p.opAddr, p.opVal>>1)
	// Old bit 0 becomes carry
	p.carryCheck((uint16(p.opVal) << 8) & 0x0100)
	p.loadRegister(&p.A, (p.opVal>>1)^p.A)
	return true, nil
}

// iRRA implements the undocumented opcode for RRA. This does a ROR on p.opAddr and then ADC's it against A. Sets flags and carry.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iRRA() (bool, error) {
	n := ((p.P & P_CARRY) << 7) | p.opVal>>1
	p.wr(p.opAddr, n)
	// Old bit 0 becomes carry
	p.carryCheck((uint16(p.opVal) << 8) & 0x0100)
	p.opVal = n
	return p.iADC()
}

// iXAA implements the undocumented opcode for XAA. We'll go with http://visual6502.org/wiki/index.php?title=6502_Opcode_8B_(XAA,_ANE)
// for implementation and pick 0xEE as the constant. According to VICE this may break so might need to change it to 0xFF
// https://sourceforge.net/tracker/?func=detail&aid=2110948&group_id=223021&atid=1057617
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iXAA() (bool, error) {
	p.loadRegister(&p.A, (p.A|0xEE)&p.X&p.opVal)
	return true, nil
}

// store implements the STA/STX/STY instruction for storing a value (from a register) in RAM.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) store(val uint8, addr uint16) (bool, error) {
	p.wr(addr, val)
	return true, nil
}

// storeWithFlags stores the val to the given addr and also sets Z/N flags accordingly.
// Generally used to implmenet INC/DEC.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) storeWithFlags(val uint8, addr uint16) (bool, error) {
	p.zeroCheck(val)
	p.negativeCheck(val)
	return p.store(val, addr)
}

// iCLV implements the CLV instruction clearing the V status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iCLV() (bool, error) {
	p.P &^= P_OVERFLOW
	return true, nil
}

// iCLD implements the CLD instruction clearing the D status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iCLD() (bool, error) {
	p.P &^= P_DECIMAL
	return true, nil
}

// iCLC implements the CLC instruction clearing the C status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iCLC() (bool, error) {
	p.P &^= P_CARRY
	return true, nil
}

// iCLI implements the CLI instruction clearing the I status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iCLI() (bool, error) {
	p.P &^= P_INTERRUPT
	return true, nil
}

// iSED implements the SED instruction setting the D status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iSED() (bool, error) {
	p.P |= P_DECIMAL
	return true, nil
}

// iSEC implements the SEC instruction setting the C status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iSEC() (bool, error) {
	p.P |= P_CARRY
	return true, nil
}

// iSEI implements the SEI instruction setting the I status bit.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iSEI() (bool, error) {
	p.P |= P_INTERRUPT
	return true, nil
}

// iORA implements the ORA instruction which ORs p.opVal with A.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iORA() (bool, error) {
	return p.loadRegister(&p.A, p.A|p.opVal)
}

// iAND implements the AND instruction which ANDs p.opVal with A.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iAND() (bool, error) {
	return p.loadRegister(&p.A, p.A&p.opVal)
}

// iEOR implements the EOR instruction which EORs p.opVal with A.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iEOR() (bool, error) {
	return p.loadRegister(&p.A, p.A^p.opVal)
}

// iDEC implements the DEC instruction by decrementing the value (p.opVal) at p.opAddr.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iDEC() (bool, error) {
	return p.storeWithFlags(p.opVal-1, p.opAddr)
}

// iINC implements the INC instruction by incrementing the value (p.opVal) at p.opAddr.
// Always returns true since this takes one tick and never returns an error.
func (p *Core) iINC() (bool, error) {
	return p.storeWithFlags(p.opVal+1, p.opAddr)
}

// iAHX implements the undocumented AHX instruction based on the addressing mode passed in.
// The value stored is (A & X & (ADDR_HI + 1))
// Returns true when complete and any error.
func (p *Core) iAHX(addrFunc func(instructionMode) (bool, error)) (bool, error) {
	// This is a store but we can't use storeInstruction since it depends on knowing p.opAddr
	// for the final computed value so we have to do the addressing mode ourselves.
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(kSTORE_INSTRUCTION)
		return false, err
	}
	val := p.A & p.X & uint8((p.opAddr>>8)+1)
	return p.store(val, p.opAddr)
}

// iSHY implements the undocumented SHY instruction based on the addressing mode passed in.
// The value stored is (Y & (ADDR_HI + 1))
// Returns true when complete and any error.
func (p *Core) iSHY(addrFunc func(instructionMode) (bool, error)) (bool, error) {
	// This is a store but we can't use storeInstruction since it depends on knowing p.opAddr
	// for the final computed value so we have to do the addressing mode ourselves.
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(kSTORE_INSTRUCTION)
		return false, err
	}
	val := p.Y & uint8((p.opAddr>>8)+1)
	return p.store(val, p.opAddr)
}

// iSHX implements the undocumented SHX instruction based on the addressing mode passed in.
// The value stored is (X & (ADDR_HI + 1))
// Returns true when complete and any error.
func (p *Core) iSHX(addrFunc func(instructionMode) (bool, error)) (bool, error) {
	// This is a store but we can't use storeInstruction since it depends on knowing p.opAddr
	// for the final computed value so we have to do the addressing mode ourselves.
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(kSTORE_INSTRUCTION)
		return false, err
	}
	val := p.X & uint8((p.opAddr>>8)+1)
	return p.store(val, p.opAddr)
}

// iTAS implements the undocumented TAS instruction which only has one addressing more.
// This does the same operations as AHX above but then also sets S = A&X
// Returns true when complete and any error.
func (p *Core) iTAS() (bool, error) {
	p.S = p.A & p.X
	return p.iAHX(p.addrAbsoluteY)
}

// iLAS implements the undocumented LAS instruction.
// This take opVal and ANDs it with S and then stores that in A,X,S setting flags accordingly.
// Always returns true because it cannot error.
func (p *Core) iLAS() (bool, error) {
	p.S = p.S & p.opVal
	p.loadRegister(&p.X, p.S)
	p.loadRegister(&p.A, p.S)
	return true, nil
}

// loadInstruction abstracts all load instruction opcodes. The address mode function is used to get the proper values loaded into p.opAddr and p.opVal.
// Then on the same tick this is done the opFunc is called to load the appropriate register.
// Returns true when complete and any error.
func (p *Core) loadInstruction(addrFunc func(instructionMode) (bool, error), opFunc func() (bool, error)) (bool, error) {
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(kLOAD_INSTRUCTION)
	}
	if err != nil {
		return true, err
	}
	if p.addrDone {
		p.opHasAddr = true
		return opFunc()
	}
	return false, nil
}

// rmwInstruction abstracts all rmw instruction opcodes. The address mode function is used to get the proper values loaded into p.opAddr and p.opVal.
// This assumes the address mode function also handle the extra write rmw instructions perform.
// Then on the next tick the opFunc is called to perform the final write operation.
// Returns true when complete and any error.
func (p *Core) rmwInstruction(addrFunc func(instructionMode) (bool, error), opFunc func() (bool, error)) (bool, error) {
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(kRMW_INSTRUCTION)
		if p.addrDone {
			p.opHasAddr = true
		}
		return false, err
	}
	return opFunc()
}

// storeInstruction abstracts all store instruction opcodes. The address mode function is used to get the proper values loaded into p.opAddr and p.opVal.
// Then on the next tick the val passed is stored to p.opAddr.
// Returns true when complete and any error.
func (p *Core) storeInstruction(addrFunc func(instructionMode) (bool, error), val uint8) (bool, error) {
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(kSTORE_INSTRUCTION)
		if p.addrDone {
			p.opHasAddr = true
		}
		return false, err
	}
	return p.store(val, p.opAddr)
}
