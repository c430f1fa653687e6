// Package c64basic lists a Commodore 64 BASIC program's tokenized text
// back into source form, assuming the standard load address of 0x0801.
package c64basic

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/berisd/go6510/memory"
)

// keywords holds the BASIC V2 token set, indexed by tok-0x80. Tokens below
// 0x80 are plain ASCII and never reach this table; tokens above 0xCB have
// no assigned keyword and are a tokenizer error.
var keywords = [...]string{
	0x80 - 0x80: "END",
	0x81 - 0x80: "FOR",
	0x82 - 0x80: "NEXT",
	0x83 - 0x80: "DATA",
	0x84 - 0x80: "INPUT#",
	0x85 - 0x80: "INPUT",
	0x86 - 0x80: "DIM",
	0x87 - 0x80: "READ",
	0x88 - 0x80: "LET",
	0x89 - 0x80: "GOTO",
	0x8A - 0x80: "RUN",
	0x8B - 0x80: "IF",
	0x8C - 0x80: "RESTORE",
	0x8D - 0x80: "GOSUB",
	0x8E - 0x80: "RETURN",
	0x8F - 0x80: "REM",
	0x90 - 0x80: "STOP",
	0x91 - 0x80: "ON",
	0x92 - 0x80: "WAIT",
	0x93 - 0x80: "LOAD",
	0x94 - 0x80: "SAVE",
	0x95 - 0x80: "VERIFY",
	0x96 - 0x80: "DEF",
	0x97 - 0x80: "POKE",
	0x98 - 0x80: "PRINT#",
	0x99 - 0x80: "PRINT",
	0x9A - 0x80: "CONT",
	0x9B - 0x80: "LIST",
	0x9C - 0x80: "CLR",
	0x9D - 0x80: "CMD",
	0x9E - 0x80: "SYS",
	0x9F - 0x80: "OPEN",
	0xA0 - 0x80: "CLOSE",
	0xA1 - 0x80: "GET",
	0xA2 - 0x80: "NEW",
	0xA3 - 0x80: "TAB(",
	0xA4 - 0x80: "TO",
	0xA5 - 0x80: "FN",
	0xA6 - 0x80: "SPC(",
	0xA7 - 0x80: "THEN",
	0xA8 - 0x80: "NOT",
	0xA9 - 0x80: "STEP",
	0xAA - 0x80: "+",
	0xAB - 0x80: "-",
	0xAC - 0x80: "*",
	0xAD - 0x80: "/",
	0xAE - 0x80: "^",
	0xAF - 0x80: "AND",
	0xB0 - 0x80: "OR",
	0xB1 - 0x80: ">",
	0xB2 - 0x80: "=",
	0xB3 - 0x80: "<",
	0xB4 - 0x80: "SGN",
	0xB5 - 0x80: "INT",
	0xB6 - 0x80: "ABS",
	0xB7 - 0x80: "USR",
	0xB8 - 0x80: "FRE",
	0xB9 - 0x80: "POS",
	0xBA - 0x80: "SQR",
	0xBB - 0x80: "RND",
	0xBC - 0x80: "LOG",
	0xBD - 0x80: "EXP",
	0xBE - 0x80: "COS",
	0xBF - 0x80: "SIN",
	0xC0 - 0x80: "TAN",
	0xC1 - 0x80: "ATN",
	0xC2 - 0x80: "PEEK",
	0xC3 - 0x80: "LEN",
	0xC4 - 0x80: "STR$",
	0xC5 - 0x80: "VAL",
	0xC6 - 0x80: "ASC",
	0xC7 - 0x80: "CHR$",
	0xC8 - 0x80: "LEFT$",
	0xC9 - 0x80: "RIGHT$",
	0xCA - 0x80: "MID$",
	0xCB - 0x80: "GO",
}

const (
	tokenLow  = 0x80
	tokenHigh = 0xCB
)

func readWordLE(r memory.Bank, addr uint16) uint16 {
	return uint16(r.Read(addr)) | uint16(r.Read(addr+1))<<8
}

// decodeToken returns the source text for a single tokenized byte. ASCII
// passes through unchanged; a byte above tokenHigh with no assigned
// keyword reports ok=false.
func decodeToken(tok uint8) (string, bool) {
	if tok < tokenLow {
		return string(rune(tok)), true
	}
	if tok > tokenHigh {
		return "", false
	}
	return keywords[tok-tokenLow], true
}

// List detokenizes the BASIC line at pc and returns its source text along
// with the address of the next line. It performs no loop detection: a
// program whose link pointers cycle will make List loop forever unless the
// caller tracks visited addresses itself. A normal end of program (next
// line pointer == 0x0000) reports an empty line and a next-address of
// 0x0000. A token outside the assigned range reports as much of the line
// as decoded plus a syntax error, mirroring how the real machine aborts
// LIST on a corrupt program. The returned text is plain ASCII; mapping it
// to PETSCII display glyphs is the caller's job.
func List(pc uint16, r memory.Bank) (string, uint16, error) {
	nextLine := readWordLE(r, pc)
	pc += 2
	if nextLine == 0x0000 {
		return "", 0x0000, nil
	}

	lineNum := readWordLE(r, pc)
	pc += 2

	var line bytes.Buffer
	fmt.Fprintf(&line, "%d ", lineNum)

	for {
		tok := r.Read(pc)
		pc++
		if tok == 0x00 {
			break
		}
		text, ok := decodeToken(tok)
		if !ok {
			return line.String(), 0, errors.New("?SYNTAX  ERROR")
		}
		line.WriteString(text)
	}
	return line.String(), nextLine, nil
}
