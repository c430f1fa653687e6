package disassemble

import (
	"strings"
	"testing"

	"github.com/berisd/go6510/memory"
)

func TestStepImmediate(t *testing.T) {
	b, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		t.Fatalf("New8BitRAMBank: %v", err)
	}
	b.Write(0x0800, 0xA9) // LDA #$42
	b.Write(0x0801, 0x42)

	out, count := Step(0x0800, b)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if !strings.Contains(out, "LDA") || !strings.Contains(out, "#42") {
		t.Errorf("out = %q, want LDA #42", out)
	}
}

func TestStepAbsolute(t *testing.T) {
	b, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		t.Fatalf("New8BitRAMBank: %v", err)
	}
	b.Write(0x0800, 0x4C) // JMP $1234
	b.Write(0x0801, 0x34)
	b.Write(0x0802, 0x12)

	out, count := Step(0x0800, b)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if !strings.Contains(out, "JMP") || !strings.Contains(out, "1234") {
		t.Errorf("out = %q, want JMP 1234", out)
	}
}

func TestStepUndocumented0xABIsLAX(t *testing.T) {
	b, err := memory.New8BitRAMBank(1<<16, nil)
	if err != nil {
		t.Fatalf("New8BitRAMBank: %v", err)
	}
	b.Write(0x0800, 0xAB)
	b.Write(0x0801, 0x00)

	out, _ := Step(0x0800, b)
	if !strings.Contains(out, "LAX") {
		t.Errorf("out = %q, want opcode 0xAB disassembled as LAX", out)
	}
}
