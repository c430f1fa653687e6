// Command disassembler loads a binary image and disassembles it to stdout
// starting at the first instruction. Files ending in .prg (case
// insensitive) are treated as C64 program files: the first two bytes are
// read as the little-endian load address. When that address is the BASIC
// start address ($0801) the BASIC program text is listed first, then
// disassembly resumes at the first byte past the program's end.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/berisd/go6510/c64basic"
	"github.com/berisd/go6510/disassemble"
	"github.com/berisd/go6510/memory"
)

const basicLoadAddr = 0x0801

var (
	startPC = flag.Uint("start_pc", 0x0000, "PC value to start disassembling")
	offset  = flag.Uint("offset", 0x0000, "offset into RAM to load the image at; ignored for .prg files")
)

// image is a loaded binary ready to disassemble: the bytes themselves, the
// RAM offset they were loaded at, and the PC disassembly should begin from.
type image struct {
	bytes  []byte
	offset uint16
	pc     uint16
	isPRG  bool
}

func loadImage(path string) (*image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	img := &image{bytes: raw, offset: uint16(*offset), pc: uint16(*startPC)}
	if strings.EqualFold(filepath.Ext(path), ".prg") {
		if len(raw) < 2 {
			return nil, fmt.Errorf("%s too short to carry a PRG load address", path)
		}
		img.isPRG = true
		img.offset = uint16(raw[0]) | uint16(raw[1])<<8
		img.pc = img.offset
		img.bytes = raw[2:]
	}
	if max := 1<<16 - int(img.offset); len(img.bytes) > max {
		log.Printf("image of %d bytes at offset 0x%.4X truncated to fit the 64k address space", len(img.bytes), img.offset)
		img.bytes = img.bytes[:max]
	}
	return img, nil
}

// bankFromImage copies img into a fresh RAM bank.
func bankFromImage(img *image) (memory.Bank, error) {
	bank, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		return nil, fmt.Errorf("allocating RAM: %w", err)
	}
	bank.PowerOn()
	for i, b := range img.bytes {
		bank.Write(img.offset+uint16(i), b)
	}
	return bank, nil
}

func listBasic(pc uint16, bank memory.Bank) uint16 {
	for {
		out, next, err := c64basic.List(pc, bank)
		if next == 0x0000 {
			pc += 2 // skip the 2 NUL bytes of the final (0x0000) link pointer
			fmt.Printf("PC: %.4X\n", pc)
			return pc
		}
		fmt.Printf("%.4X %s\n", pc, out)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		pc = next
	}
}

func disassembleRange(pc uint16, bank memory.Bank, byteCount int) {
	seen := 0
	for seen < byteCount {
		dis, n := disassemble.Step(pc, bank)
		pc += uint16(n)
		seen += n
		fmt.Println(dis)
	}
}

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("usage: %s [-start_pc <pc>] [-offset <offset>] <filename>", os.Args[0])
	}

	img, err := loadImage(flag.Args()[0])
	if err != nil {
		log.Fatal(err)
	}
	if img.isPRG {
		fmt.Println("C64 program file")
	}
	fmt.Printf("0x%.2X bytes at pc: %.4X\n", len(img.bytes), img.pc)

	bank, err := bankFromImage(img)
	if err != nil {
		log.Fatal(err)
	}

	pc := img.pc
	if img.isPRG && img.offset == basicLoadAddr {
		pc = listBasic(pc, bank)
	}
	// PC may wrap past 0xFFFF, so bound the loop on bytes consumed rather
	// than on PC.
	disassembleRange(pc, bank, len(img.bytes))
}
