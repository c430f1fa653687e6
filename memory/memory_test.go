package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRAMBankReadWrite(t *testing.T) {
	b, err := New8BitRAMBank(1<<16, nil)
	assert.NoError(t, err)

	b.Write(0x1234, 0x42)
	assert.Equal(t, uint8(0x42), b.Read(0x1234))
	assert.Equal(t, uint8(0x42), b.DatabusVal())
}

func TestRAMBankAliasing(t *testing.T) {
	b, err := New8BitRAMBank(256, nil)
	assert.NoError(t, err)

	b.Write(0x00, 0x11)
	assert.Equal(t, uint8(0x11), b.Read(0x100), "a 256 byte bank must alias every 0x100 addresses")
}

func TestRAMBankRejectsOddSize(t *testing.T) {
	_, err := New8BitRAMBank(257, nil)
	assert.Error(t, err)
}

func TestBank2RAMControllerContract(t *testing.T) {
	b, err := New8BitRAMBank(1<<16, nil)
	assert.NoError(t, err)
	c := NewBank2RAM(b)

	assert.True(t, c.IOOn())
	assert.True(t, c.WriteByte(0x1000, 0x99))
	assert.Equal(t, uint8(0x99), c.ReadByte(0x1000))

	assert.True(t, c.WriteWordLE(0x2000, 0xBEEF))
	assert.Equal(t, uint16(0xBEEF), c.ReadWordLE(0x2000))
	assert.Equal(t, uint8(0xEF), c.ReadByte(0x2000))
	assert.Equal(t, uint8(0xBE), c.ReadByte(0x2001))
}

func TestLatestDatabusVal(t *testing.T) {
	parent, err := New8BitRAMBank(256, nil)
	assert.NoError(t, err)
	child, err := New8BitRAMBank(256, parent)
	assert.NoError(t, err)

	parent.Write(0x01, 0x77)
	child.Write(0x02, 0x88)

	assert.Equal(t, uint8(0x77), LatestDatabusVal(child), "should walk up to the outermost parent's databus value")
}
