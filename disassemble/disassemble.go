// Package disassemble implements a disassembler for 6502 opcodes
package disassemble

import (
	"fmt"

	"github.com/berisd/go6510/memory"
)

// addrMode names the operand-encoding shape an opcode byte decodes to.
type addrMode int

const (
	kMODE_IMPLIED addrMode = iota
	kMODE_IMMEDIATE
	kMODE_ZP
	kMODE_ZPX
	kMODE_ZPY
	kMODE_INDIRECTX
	kMODE_INDIRECTY
	kMODE_ABSOLUTE
	kMODE_ABSOLUTEX
	kMODE_ABSOLUTEY
	kMODE_INDIRECT
	kMODE_RELATIVE
)

// opcodeInfo is one row of opcodeTable: the mnemonic printed for an opcode
// byte and the operand shape that tells Step how many bytes to consume and
// how to format them.
type opcodeInfo struct {
	mnemonic string
	mode     addrMode
}

// opcodeTable maps every possible fetched byte to its disassembly shape,
// including the NMOS 6510's undocumented opcodes (HLT/SLO/RLA/SRE/RRA/SAX/
// LAX/DCP/ISC/ANC/ALR/ARR/AXS/XAA). Opcode 0xAB decodes deterministically as
// LAX #imm per the documented resolution of that ambiguous slot. Bytes with
// no entry fall through to Step's "UNIMPLEMENTED" default.
var opcodeTable = [256]opcodeInfo{
	0x00: {"BRK", kMODE_IMMEDIATE}, // operand byte is read and skipped, not a true immediate
	0x01: {"ORA", kMODE_INDIRECTX},
	0x02: {"HLT", kMODE_IMPLIED},
	0x03: {"SLO", kMODE_INDIRECTX},
	0x04: {"NOP", kMODE_ZP},
	0x05: {"ORA", kMODE_ZP},
	0x06: {"ASL", kMODE_ZP},
	0x07: {"SLO", kMODE_ZP},
	0x08: {"PHP", kMODE_IMPLIED},
	0x09: {"ORA", kMODE_IMMEDIATE},
	0x0A: {"ASL", kMODE_IMPLIED},
	0x0B: {"ANC", kMODE_IMMEDIATE},
	0x0C: {"NOP", kMODE_ABSOLUTE},
	0x0D: {"ORA", kMODE_ABSOLUTE},
	0x0E: {"ASL", kMODE_ABSOLUTE},
	0x0F: {"SLO", kMODE_ABSOLUTE},

	0x10: {"BPL", kMODE_RELATIVE},
	0x11: {"ORA", kMODE_INDIRECTY},
	0x12: {"HLT", kMODE_IMPLIED},
	0x13: {"SLO", kMODE_INDIRECTY},
	0x14: {"NOP", kMODE_ZPX},
	0x15: {"ORA", kMODE_ZPX},
	0x16: {"ASL", kMODE_ZPX},
	0x17: {"SLO", kMODE_ZPX},
	0x18: {"CLC", kMODE_IMPLIED},
	0x19: {"ORA", kMODE_ABSOLUTEY},
	0x1A: {"NOP", kMODE_IMPLIED},
	0x1B: {"SLO", kMODE_ABSOLUTEY},
	0x1C: {"NOP", kMODE_ABSOLUTEX},
	0x1D: {"ORA", kMODE_ABSOLUTEX},
	0x1E: {"ASL", kMODE_ABSOLUTEX},
	0x1F: {"SLO", kMODE_ABSOLUTEX},

	0x20: {"JSR", kMODE_ABSOLUTE},
	0x21: {"AND", kMODE_INDIRECTX},
	0x22: {"HLT", kMODE_IMPLIED},
	0x23: {"RLA", kMODE_INDIRECTX},
	0x24: {"BIT", kMODE_ZP},
	0x25: {"AND", kMODE_ZP},
	0x26: {"ROL", kMODE_ZP},
	0x27: {"RLA", kMODE_ZP},
	0x28: {"PLP", kMODE_IMPLIED},
	0x29: {"AND", kMODE_IMMEDIATE},
	0x2A: {"ROL", kMODE_IMPLIED},
	0x2B: {"ANC", kMODE_IMMEDIATE},
	0x2C: {"BIT", kMODE_ABSOLUTE},
	0x2D: {"AND", kMODE_ABSOLUTE},
	0x2E: {"ROL", kMODE_ABSOLUTE},
	0x2F: {"RLA", kMODE_ABSOLUTE},

	0x30: {"BMI", kMODE_RELATIVE},
	0x31: {"AND", kMODE_INDIRECTY},
	0x32: {"HLT", kMODE_IMPLIED},
	0x33: {"RLA", kMODE_INDIRECTY},
	0x34: {"NOP", kMODE_ZPX},
	0x35: {"AND", kMODE_ZPX},
	0x36: {"ROL", kMODE_ZPX},
	0x37: {"RLA", kMODE_ZPX},
	0x38: {"SEC", kMODE_IMPLIED},
	0x39: {"AND", kMODE_ABSOLUTEY},
	0x3A: {"NOP", kMODE_IMPLIED},
	0x3B: {"RLA", kMODE_ABSOLUTEY},
	0x3C: {"NOP", kMODE_ABSOLUTEX},
	0x3D: {"AND", kMODE_ABSOLUTEX},
	0x3E: {"ROL", kMODE_ABSOLUTEX},
	0x3F: {"RLA", kMODE_ABSOLUTEX},

	0x40: {"RTI", kMODE_IMPLIED},
	0x41: {"EOR", kMODE_INDIRECTX},
	0x42: {"HLT", kMODE_IMPLIED},
	0x43: {"SRE", kMODE_INDIRECTX},
	0x44: {"NOP", kMODE_ZP},
	0x45: {"EOR", kMODE_ZP},
	0x46: {"LSR", kMODE_ZP},
	0x47: {"SRE", kMODE_ZP},
	0x48: {"PHA", kMODE_IMPLIED},
	0x49: {"EOR", kMODE_IMMEDIATE},
	0x4A: {"LSR", kMODE_IMPLIED},
	0x4B: {"ALR", kMODE_IMMEDIATE},
	0x4C: {"JMP", kMODE_ABSOLUTE},
	0x4D: {"EOR", kMODE_ABSOLUTE},
	0x4E: {"LSR", kMODE_ABSOLUTE},
	0x4F: {"SRE", kMODE_ABSOLUTE},

	0x50: {"BVC", kMODE_RELATIVE},
	0x51: {"EOR", kMODE_INDIRECTY},
	0x52: {"HLT", kMODE_IMPLIED},
	0x53: {"SRE", kMODE_INDIRECTY},
	0x54: {"NOP", kMODE_ZPX},
	0x55: {"EOR", kMODE_ZPX},
	0x56: {"LSR", kMODE_ZPX},
	0x57: {"SRE", kMODE_ZPX},
	0x58: {"CLI", kMODE_IMPLIED},
	0x59: {"EOR", kMODE_ABSOLUTEY},
	0x5A: {"NOP", kMODE_IMPLIED},
	0x5B: {"SRE", kMODE_ABSOLUTEY},
	0x5C: {"NOP", kMODE_ABSOLUTEX},
	0x5D: {"EOR", kMODE_ABSOLUTEX},
	0x5E: {"LSR", kMODE_ABSOLUTEX},
	0x5F: {"SRE", kMODE_ABSOLUTEX},

	0x60: {"RTS", kMODE_IMPLIED},
	0x61: {"ADC", kMODE_INDIRECTX},
	0x62: {"HLT", kMODE_IMPLIED},
	0x63: {"RRA", kMODE_INDIRECTX},
	0x64: {"NOP", kMODE_ZP},
	0x65: {"ADC", kMODE_ZP},
	0x66: {"ROR", kMODE_ZP},
	0x67: {"RRA", kMODE_ZP},
	0x68: {"PLA", kMODE_IMPLIED},
	0x69: {"ADC", kMODE_IMMEDIATE},
	0x6A: {"ROR", kMODE_IMPLIED},
	0x6B: {"ARR", kMODE_IMMEDIATE},
	0x6C: {"JMP", kMODE_INDIRECT},
	0x6D: {"ADC", kMODE_ABSOLUTE},
	0x6E: {"ROR", kMODE_ABSOLUTE},
	0x6F: {"RRA", kMODE_ABSOLUTE},

	0x70: {"BVS", kMODE_RELATIVE},
	0x71: {"ADC", kMODE_INDIRECTY},
	0x72: {"HLT", kMODE_IMPLIED},
	0x73: {"RRA", kMODE_INDIRECTY},
	0x74: {"NOP", kMODE_ZPX},
	0x75: {"ADC", kMODE_ZPX},
	0x76: {"ROR", kMODE_ZPX},
	0x77: {"RRA", kMODE_ZPX},
	0x78: {"SEI", kMODE_IMPLIED},
	0x79: {"ADC", kMODE_ABSOLUTEY},
	0x7A: {"NOP", kMODE_IMPLIED},
	0x7B: {"RRA", kMODE_ABSOLUTEY},
	0x7C: {"NOP", kMODE_ABSOLUTEX},
	0x7D: {"ADC", kMODE_ABSOLUTEX},
	0x7E: {"ROR", kMODE_ABSOLUTEX},
	0x7F: {"RRA", kMODE_ABSOLUTEX},

	0x80: {"NOP", kMODE_IMMEDIATE},
	0x81: {"STA", kMODE_INDIRECTX},
	0x82: {"NOP", kMODE_IMMEDIATE},
	0x83: {"SAX", kMODE_INDIRECTX},
	0x84: {"STY", kMODE_ZP},
	0x85: {"STA", kMODE_ZP},
	0x86: {"STX", kMODE_ZP},
	0x87: {"SAX", kMODE_ZP},
	0x88: {"DEY", kMODE_IMPLIED},
	0x89: {"NOP", kMODE_IMMEDIATE},
	0x8A: {"TXA", kMODE_IMPLIED},
	0x8B: {"XAA", kMODE_IMMEDIATE},
	0x8C: {"STY", kMODE_ABSOLUTE},
	0x8D: {"STA", kMODE_ABSOLUTE},
	0x8E: {"STX", kMODE_ABSOLUTE},
	0x8F: {"SAX", kMODE_ABSOLUTE},

	0x90: {"BCC", kMODE_RELATIVE},
	0x91: {"STA", kMODE_INDIRECTY},
	0x92: {"HLT", kMODE_IMPLIED},
	0x93: {"AHX", kMODE_INDIRECTY},
	0x94: {"STY", kMODE_ZPX},
	0x95: {"STA", kMODE_ZPX},
	0x96: {"STX", kMODE_ZPY},
	0x97: {"SAX", kMODE_ZPY},
	0x98: {"TYA", kMODE_IMPLIED},
	0x99: {"STA", kMODE_ABSOLUTEY},
	0x9A: {"TXS", kMODE_IMPLIED},
	0x9B: {"TAS", kMODE_ABSOLUTEY},
	0x9C: {"SHY", kMODE_ABSOLUTEX},
	0x9D: {"STA", kMODE_ABSOLUTEX},
	0x9E: {"SHX", kMODE_ABSOLUTEY},
	0x9F: {"AHX", kMODE_ABSOLUTEY},

	0xA0: {"LDY", kMODE_IMMEDIATE},
	0xA1: {"LDA", kMODE_INDIRECTX},
	0xA2: {"LDX", kMODE_IMMEDIATE},
	0xA3: {"LAX", kMODE_INDIRECTX},
	0xA4: {"LDY", kMODE_ZP},
	0xA5: {"LDA", kMODE_ZP},
	0xA6: {"LDX", kMODE_ZP},
	0xA7: {"LAX", kMODE_ZP},
	0xA8: {"TAY", kMODE_IMPLIED},
	0xA9: {"LDA", kMODE_IMMEDIATE},
	0xAA: {"TAX", kMODE_IMPLIED},
	0xAB: {"LAX", kMODE_IMMEDIATE},
	0xAC: {"LDY", kMODE_ABSOLUTE},
	0xAD: {"LDA", kMODE_ABSOLUTE},
	0xAE: {"LDX", kMODE_ABSOLUTE},
	0xAF: {"LAX", kMODE_ABSOLUTE},

	0xB0: {"BCS", kMODE_RELATIVE},
	0xB1: {"LDA", kMODE_INDIRECTY},
	0xB2: {"HLT", kMODE_IMPLIED},
	0xB3: {"LAX", kMODE_INDIRECTY},
	0xB4: {"LDY", kMODE_ZPX},
	0xB5: {"LDA", kMODE_ZPX},
	0xB6: {"LDX", kMODE_ZPY},
	0xB7: {"LAX", kMODE_ZPY},
	0xB8: {"CLV", kMODE_IMPLIED},
	0xB9: {"LDA", kMODE_ABSOLUTEY},
	0xBA: {"TSX", kMODE_IMPLIED},
	0xBB: {"LAS", kMODE_ABSOLUTEY},
	0xBC: {"LDY", kMODE_ABSOLUTEX},
	0xBD: {"LDA", kMODE_ABSOLUTEX},
	0xBE: {"LDX", kMODE_ABSOLUTEY},
	0xBF: {"LAX", kMODE_ABSOLUTEY},

	0xC0: {"CPY", kMODE_IMMEDIATE},
	0xC1: {"CMP", kMODE_INDIRECTX},
	0xC2: {"NOP", kMODE_IMMEDIATE},
	0xC3: {"DCP", kMODE_INDIRECTX},
	0xC4: {"CPY", kMODE_ZP},
	0xC5: {"CMP", kMODE_ZP},
	0xC6: {"DEC", kMODE_ZP},
	0xC7: {"DCP", kMODE_ZP},
	0xC8: {"INY", kMODE_IMPLIED},
	0xC9: {"CMP", kMODE_IMMEDIATE},
	0xCA: {"DEX", kMODE_IMPLIED},
	0xCB: {"AXS", kMODE_IMMEDIATE},
	0xCC: {"CPY", kMODE_ABSOLUTE},
	0xCD: {"CMP", kMODE_ABSOLUTE},
	0xCE: {"DEC", kMODE_ABSOLUTE},
	0xCF: {"DCP", kMODE_ABSOLUTE},

	0xD0: {"BNE", kMODE_RELATIVE},
	0xD1: {"CMP", kMODE_INDIRECTY},
	0xD2: {"HLT", kMODE_IMPLIED},
	0xD3: {"DCP", kMODE_INDIRECTY},
	0xD4: {"NOP", kMODE_ZPX},
	0xD5: {"CMP", kMODE_ZPX},
	0xD6: {"DEC", kMODE_ZPX},
	0xD7: {"DCP", kMODE_ZPX},
	0xD8: {"CLD", kMODE_IMPLIED},
	0xD9: {"CMP", kMODE_ABSOLUTEY},
	0xDA: {"NOP", kMODE_IMPLIED},
	0xDB: {"DCP", kMODE_ABSOLUTEY},
	0xDC: {"NOP", kMODE_ABSOLUTEX},
	0xDD: {"CMP", kMODE_ABSOLUTEX},
	0xDE: {"DEC", kMODE_ABSOLUTEX},
	0xDF: {"DCP", kMODE_ABSOLUTEX},

	0xE0: {"CPX", kMODE_IMMEDIATE},
	0xE1: {"SBC", kMODE_INDIRECTX},
	0xE2: {"NOP", kMODE_IMMEDIATE},
	0xE3: {"ISC", kMODE_INDIRECTX},
	0xE4: {"CPX", kMODE_ZP},
	0xE5: {"SBC", kMODE_ZP},
	0xE6: {"INC", kMODE_ZP},
	0xE7: {"ISC", kMODE_ZP},
	0xE8: {"INX", kMODE_IMPLIED},
	0xE9: {"SBC", kMODE_IMMEDIATE},
	0xEA: {"NOP", kMODE_IMPLIED},
	0xEB: {"SBC", kMODE_IMMEDIATE},
	0xEC: {"CPX", kMODE_ABSOLUTE},
	0xED: {"SBC", kMODE_ABSOLUTE},
	0xEE: {"INC", kMODE_ABSOLUTE},
	0xEF: {"ISC", kMODE_ABSOLUTE},

	0xF0: {"BEQ", kMODE_RELATIVE},
	0xF1: {"SBC", kMODE_INDIRECTY},
	0xF2: {"HLT", kMODE_IMPLIED},
	0xF3: {"ISC", kMODE_INDIRECTY},
	0xF4: {"NOP", kMODE_ZPX},
	0xF5: {"SBC", kMODE_ZPX},
	0xF6: {"INC", kMODE_ZPX},
	0xF7: {"ISC", kMODE_ZPX},
	0xF8: {"SED", kMODE_IMPLIED},
	0xF9: {"SBC", kMODE_ABSOLUTEY},
	0xFA: {"NOP", kMODE_IMPLIED},
	0xFB: {"ISC", kMODE_ABSOLUTEY},
	0xFC: {"NOP", kMODE_ABSOLUTEX},
	0xFD: {"SBC", kMODE_ABSOLUTEX},
	0xFE: {"INC", kMODE_ABSOLUTEX},
	0xFF: {"ISC", kMODE_ABSOLUTEX},
}

// Step disassembles the instruction at pc, returning its text and the
// number of bytes to advance pc to reach the next instruction. This does
// not interpret control flow: a JMP target is never followed, so a run of
// LDA/JMP/LDA disassembles as exactly that sequence. Step always reads two
// bytes past pc regardless of the instruction's real width, so callers must
// ensure pc+2 is a valid address.
func Step(pc uint16, r memory.Bank) (string, int) {
	o := r.Read(pc)
	pc1 := r.Read(pc + 1)
	pc2 := r.Read(pc + 2)
	// Sign-extended for relative branch target math below.
	rel := uint16(int16(int8(pc1)))

	info, ok := opcodeTable[o], opcodeTable[o].mnemonic != ""
	if !ok {
		info = opcodeInfo{"UNIMPLEMENTED", kMODE_IMPLIED}
	}

	count := 2
	out := fmt.Sprintf("%.4X %.2X ", pc, o)
	switch info.mode {
	case kMODE_IMMEDIATE:
		out += fmt.Sprintf("%.2X      %s #%.2X       ", pc1, info.mnemonic, pc1)
	case kMODE_ZP:
		out += fmt.Sprintf("%.2X      %s %.2X        ", pc1, info.mnemonic, pc1)
	case kMODE_ZPX:
		out += fmt.Sprintf("%.2X      %s %.2X,X      ", pc1, info.mnemonic, pc1)
	case kMODE_ZPY:
		out += fmt.Sprintf("%.2X      %s %.2X,Y      ", pc1, info.mnemonic, pc1)
	case kMODE_INDIRECTX:
		out += fmt.Sprintf("%.2X      %s (%.2X,X)    ", pc1, info.mnemonic, pc1)
	case kMODE_INDIRECTY:
		out += fmt.Sprintf("%.2X      %s (%.2X),Y    ", pc1, info.mnemonic, pc1)
	case kMODE_ABSOLUTE:
		out += fmt.Sprintf("%.2X %.2X   %s %.2X%.2X      ", pc1, pc2, info.mnemonic, pc2, pc1)
		count++
	case kMODE_ABSOLUTEX:
		out += fmt.Sprintf("%.2X %.2X   %s %.2X%.2X,X    ", pc1, pc2, info.mnemonic, pc2, pc1)
		count++
	case kMODE_ABSOLUTEY:
		out += fmt.Sprintf("%.2X %.2X   %s %.2X%.2X,Y    ", pc1, pc2, info.mnemonic, pc2, pc1)
		count++
	case kMODE_INDIRECT:
		out += fmt.Sprintf("%.2X %.2X   %s (%.2X%.2X)    ", pc1, pc2, info.mnemonic, pc2, pc1)
		count++
	case kMODE_IMPLIED:
		out += fmt.Sprintf("        %s           ", info.mnemonic)
		count--
	case kMODE_RELATIVE:
		out += fmt.Sprintf("%.2X      %s %.2X (%.4X) ", pc1, info.mnemonic, pc1, pc+rel+2)
	default:
		panic(fmt.Sprintf("invalid addressing mode: %d", info.mode))
	}
	return out, count
}
