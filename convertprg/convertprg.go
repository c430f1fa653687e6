// Command convertprg takes a C64 style PRG file and converts it into a 64k
// bin image for running as a test cart.
//
// Execution starts at 0xD000, which JSRs to the given start PC and then
// loops. BRK/IRQ/NMI vectors all point at 0xC000, which simply infinite
// loops.
//
// Certain parts of zero page and low RAM are preset with the values a real
// C64 carries there (e.g. the pointers used to locate BASIC), so test
// programs that peek at those locations see plausible data.
//
// The output file is named after the input with .bin appended.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/berisd/go6510/memory"
)

const (
	infiniteLoopAddr = 0xC000
	dispatchAddr     = 0xD000
	kernalPrintAddr  = 0xFFD2
)

var startPC = flag.Int("start_pc", 0x0000, "PC value to start execution")

// zeroPagePresets mirrors the power-on contents a real C64's KERNAL leaves
// in low RAM (http://sta.c64.org/cbm64mem.html) so test programs that peek
// at BASIC/KERNAL bookkeeping locations see plausible values.
var zeroPagePresets = map[uint16]uint8{
	0x0000: 0x37,
	0x0003: 0xAA,
	0x0004: 0xB1,
	0x0005: 0x91,
	0x0006: 0xB3,
	0x0016: 0x19,
	0x002B: 0x01, // pointer to start of BASIC area
	0x002C: 0x08,
	0x0038: 0xA0, // pointer to end of BASIC area
	0x0053: 0x03,
	0x0054: 0x4C,
	0x0091: 0xFF,
	0x009A: 0x03,
	0x00B2: 0x3C,
	0x00B3: 0x03,
	0x00C8: 0x27,
	0x00D5: 0x27,

	0x0282: 0x08,
	0x0284: 0xA0,
	0x0288: 0x04,
	0x0300: 0x8B,
	0x0301: 0xE3,
	0x0302: 0x83,
	0x0303: 0xA4,
	0x0304: 0x7C,
	0x0305: 0xA5,
	0x0306: 0x1A,
	0x0307: 0xA7,
	0x0308: 0xE4,
	0x0309: 0xA7,
	0x030A: 0x86,
	0x030B: 0xAE,
	0x0310: 0x4C,
	0x0314: 0x31,
	0x0315: 0xEA,
	0x0316: 0x66,
	0x0317: 0xFE,
	0x0318: 0x47,
	0x0319: 0xFE,
	0x031A: 0x4A,
	0x031B: 0xF3,
	0x031C: 0x91,
	0x031D: 0xF2,
	0x031E: 0x0E,
	0x031F: 0xF2,
	0x0320: 0x50,
	0x0321: 0xF2,
	0x0322: 0x33,
	0x0323: 0xF3,
	0x0324: 0x57,
	0x0325: 0xF1,
	0x0326: 0xCA,
	0x0327: 0xF1,
	0x0328: 0xED,
	0x0329: 0xF6,
	0x032A: 0x3E,
	0x032B: 0xF1,
	0x032C: 0x2F,
	0x032D: 0xF3,
	0x032E: 0x66,
	0x032F: 0xFE,
	0x0330: 0xA5,
	0x0331: 0xF4,
	0x0332: 0xED,
	0x0333: 0xF5,
}

// buildTestCart loads prg (a raw PRG body, load address already stripped)
// into a Controller at addr and writes the test-cart boot routine, reset
// vectors, and zero-page presets around it.
func buildTestCart(prg []byte, addr uint16, startPC uint16) memory.Controller {
	bank, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		log.Fatalf("allocating RAM: %v", err)
	}
	ctrl := memory.NewBank2RAM(bank)

	maxLen := (1 << 16) - int(addr)
	if len(prg) > maxLen {
		log.Printf("length %d at offset 0x%.4X too long, truncating to 64k", len(prg), addr)
		prg = prg[:maxLen]
	}
	for i, b := range prg {
		ctrl.WriteByte(addr+uint16(i), b)
	}

	ctrl.WriteByte(infiniteLoopAddr, 0x4C) // JMP infiniteLoopAddr
	ctrl.WriteWordLE(infiniteLoopAddr+1, infiniteLoopAddr)

	ctrl.WriteByte(dispatchAddr, 0x20) // JSR startPC
	ctrl.WriteWordLE(dispatchAddr+1, startPC)
	ctrl.WriteByte(dispatchAddr+3, 0x4C) // JMP dispatchAddr+3 (spin forever)
	ctrl.WriteWordLE(dispatchAddr+4, dispatchAddr+3)

	ctrl.WriteByte(kernalPrintAddr, 0x60) // RTS

	ctrl.WriteWordLE(cpuVector("NMI"), infiniteLoopAddr)
	ctrl.WriteWordLE(cpuVector("RESET"), dispatchAddr)
	ctrl.WriteWordLE(cpuVector("IRQ"), infiniteLoopAddr)

	for a, v := range zeroPagePresets {
		ctrl.WriteByte(a, v)
	}
	return ctrl
}

func cpuVector(name string) uint16 {
	switch name {
	case "NMI":
		return 0xFFFA
	case "RESET":
		return 0xFFFC
	case "IRQ":
		return 0xFFFE
	default:
		panic("unknown vector " + name)
	}
}

// dumpImage reads every byte of ctrl's backing address space into a flat
// 64k slice suitable for writing out as a raw binary image.
func dumpImage(ctrl memory.Controller) []byte {
	out := make([]byte, 1<<16)
	for i := range out {
		out[i] = ctrl.ReadByte(uint16(i))
	}
	return out
}

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("usage: %s --start_pc=XXXX <filename>", os.Args[0])
	}
	if *startPC < 0 || *startPC > 0xFFFF {
		log.Fatal("--start_pc out of range. Must be between 0-65535")
	}

	fn := flag.Args()[0]
	raw, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("can't open %s: %v", fn, err)
	}
	if len(raw) < 2 {
		log.Fatalf("%s too short to carry a PRG load address", fn)
	}
	addr := uint16(raw[0]) | uint16(raw[1])<<8
	fmt.Printf("Addr is 0x%.4X\n", addr)

	ctrl := buildTestCart(raw[2:], addr, uint16(*startPC))
	out := dumpImage(ctrl)

	outfn := fn + ".bin"
	if err := os.WriteFile(outfn, out, 0o644); err != nil {
		log.Fatalf("can't write %q: %v", outfn, err)
	}
}
