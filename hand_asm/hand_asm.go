// Command hand_asm takes a filename and produces a bin file from parsing
// the input as a hand-assembled listing of the form:
//
//	XXXX OP A1 A2 ....
//
// where XXXX is a 4-hex-digit address field (only used to anchor the line;
// bytes are still emitted in listing order) and OP/A1/A2 are hex byte
// values (at most three per line; more is an error), optionally followed by
// a tab-separated comment or a "(*)..." annotation, both of which are
// discarded.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/berisd/go6510/memory"
)

var offset = flag.Int("offset", 0x0000, "offset to start writing assembled data; everything prior is zero filled")

// addrLine matches a listing line worth assembling: four hex digits at the
// start of the line, a space, then the byte tokens.
func addrLine(line string) (string, bool) {
	if len(line) < 5 {
		return "", false
	}
	for i := 0; i < 4; i++ {
		c := line[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return "", false
		}
	}
	if line[4] != ' ' {
		return "", false
	}
	return line[5:], true
}

// stripAnnotations removes a trailing tab-introduced comment or a "(*)..."
// marker from a line's byte-token field.
func stripAnnotations(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "(*)"); i >= 0 {
		s = s[:i]
	}
	return s
}

// assemble reads src line by line and returns the assembled byte stream,
// padded with offset leading zero bytes.
func assemble(src *bufio.Scanner, offset int) ([]byte, error) {
	out := make([]byte, offset)
	lineNo := 0
	for src.Scan() {
		lineNo++
		rest, ok := addrLine(src.Text())
		if !ok {
			continue
		}
		rest = stripAnnotations(rest)
		toks := strings.Fields(rest)
		if len(toks) > 3 {
			return nil, fmt.Errorf("invalid line %d: %q", lineNo, src.Text())
		}
		for _, tok := range toks {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d %q: %w", lineNo, src.Text(), err)
			}
			out = append(out, byte(b))
		}
	}
	return out, src.Err()
}

// bankDump loads bytes into a RAM bank at 0 and reads them back out,
// exercising the same Bank interface the rest of the module's tools
// round-trip binary images through.
func bankDump(bytes []byte) ([]byte, error) {
	bank, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		return nil, fmt.Errorf("allocating RAM: %w", err)
	}
	for i, b := range bytes {
		bank.Write(uint16(i), b)
	}
	out := make([]byte, len(bytes))
	for i := range out {
		out[i] = bank.Read(uint16(i))
	}
	return out, nil
}

func main() {
	flag.Parse()
	if len(flag.Args()) != 2 {
		log.Fatalf("usage: %s <input> <output>", os.Args[0])
	}
	in, out := flag.Args()[0], flag.Args()[1]

	f, err := os.Open(in)
	if err != nil {
		log.Fatalf("can't open %q: %v", in, err)
	}
	defer f.Close()

	assembled, err := assemble(bufio.NewScanner(f), *offset)
	if err != nil {
		log.Fatal(err)
	}

	image, err := bankDump(assembled)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(out, image, 0o644); err != nil {
		log.Fatalf("can't write %q: %v", out, err)
	}
}
