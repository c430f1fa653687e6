package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berisd/go6510/chips"
	"github.com/berisd/go6510/memory"
)

func newDispatcher(t *testing.T) (*Dispatcher, *memory.Bank2RAM, *chips.StubVIC, *chips.StubCIA, *chips.StubCIA) {
	t.Helper()
	ram, err := memory.New8BitRAMBank(1<<16, nil)
	assert.NoError(t, err)
	mem := memory.NewBank2RAM(ram)
	vic := chips.NewStubVIC()
	cia1 := chips.NewStubCIA()
	cia2 := chips.NewStubCIA()
	return New(mem, vic, cia1, cia2), mem, vic, cia1, cia2
}

func TestDispatcherRoutesToVIC(t *testing.T) {
	d, _, _, _, _ := newDispatcher(t)

	_, tag := d.Write(0xD020, 0x06)
	assert.Equal(t, chips.None, tag)

	val, _ := d.Read(0xD020)
	assert.Equal(t, uint8(0x06), val)
}

func TestDispatcherColorRAMNibbleMask(t *testing.T) {
	d, _, vic, _, _ := newDispatcher(t)
	vic.WriteRegister(0xD020, 0xF0) // sets vic.last = 0xF0

	ok, _ := d.Write(0xD800, 0xFF)
	assert.True(t, ok)

	val, _ := d.Read(0xD800)
	assert.Equal(t, uint8(0xF0|0x0F), val, "color RAM reads low nibble from RAM, high nibble from VIC's last byte")
}

func TestDispatcherRoutesToCIA(t *testing.T) {
	d, _, _, cia1, cia2 := newDispatcher(t)
	cia1.AssertIRQ(chips.TriggerCIAIrq)

	val, tag := d.Read(0xDC0D)
	assert.Equal(t, uint8(0), val)
	assert.Equal(t, chips.TriggerCIAIrq, tag)

	_, tag = d.Write(0xDD0D, 0x81)
	assert.Equal(t, chips.None, tag)
	_ = cia2
}

func TestDispatcherDFFFToggles(t *testing.T) {
	d, _, _, _, _ := newDispatcher(t)

	first, _ := d.Read(0xDFFF)
	second, _ := d.Read(0xDFFF)
	assert.Equal(t, uint8(0xAA), first)
	assert.Equal(t, uint8(0x55), second)
}

func TestDispatcherFallsThroughToRAMWhenIOOff(t *testing.T) {
	ram, err := memory.New8BitRAMBank(1<<16, nil)
	assert.NoError(t, err)
	mem := memory.NewBank2RAM(ram)
	mem.IOEnabled = false
	d := New(mem, chips.NewStubVIC(), chips.NewStubCIA(), chips.NewStubCIA())

	ok, _ := d.Write(0xD020, 0x42)
	assert.True(t, ok)
	val, _ := d.Read(0xD020)
	assert.Equal(t, uint8(0x42), val, "with IO banked out, the VIC window must read/write straight through to RAM")
}

func TestDispatcherOutsideIORangeGoesToMemory(t *testing.T) {
	d, mem, _, _, _ := newDispatcher(t)
	ok, tag := d.Write(0x1000, 0x55)
	assert.True(t, ok)
	assert.Equal(t, chips.None, tag)
	assert.Equal(t, uint8(0x55), mem.ReadByte(0x1000))
}
