// Package memory defines the basic interfaces for working
// with a 6502 family memory map. Since each implementation
// that is emulated has specific mappings (including shadowed
// regions) this is defined as an interface.
package memory

import (
	"fmt"
	"math/rand"
	"time"
)

type Bank interface {
	// Read returns the data byte stored at addr.
	Read(addr uint16) uint8
	// Write updates addr with the new value. For ROM addresses this is simply a no-op without
	// any error.
	Write(addr uint16, val uint8)
	// PowerOn performs power on reset of the memory. This is implementation specific as to
	// whether it's randomized or preset to all zeros.
	PowerOn()
	// Parent holds a reference (if non-nil) to the next level memory controller. A chain
	// of these can be created in order to find the top one and be able to query items
	// such as the databus state (from the last value to go over it). Some implementations
	// depend on transient databus state due to side effects.
	Parent() Bank
	// DatabusVal returns the last value seen to go across on the data bus.
	DatabusVal() uint8
}

// LatestDatabusVal hunts up a chain of Banks until it finds the outermost one and
// return the DatabusVal from it.
func LatestDatabusVal(b Bank) uint8 {
	if b.Parent() != nil {
		return LatestDatabusVal(b.Parent())
	}
	return b.DatabusVal()
}

// Controller is the memory-mapped RAM/ROM/bank-switch collaborator the bus
// dispatcher falls through to outside the VIC-II/CIA/color-RAM windows.
// It generalizes Bank with word-at-a-time helpers (for vector/operand reads)
// and an IOOn query so the dispatcher knows whether the $D000-$DFFF I/O
// window is currently banked in or has been switched out to RAM/ROM.
type Controller interface {
	// ReadByte returns the byte stored at addr.
	ReadByte(addr uint16) uint8
	// WriteByte stores val at addr and reports whether the write was
	// accepted (false for a ROM-backed or otherwise read-only address).
	WriteByte(addr uint16, val uint8) bool
	// ReadWordLE returns the little-endian 16 bit value at addr, addr+1.
	ReadWordLE(addr uint16) uint16
	// WriteWordLE stores val as a little-endian 16 bit value at addr, addr+1
	// and reports whether both byte writes were accepted.
	WriteWordLE(addr uint16, val uint16) bool
	// IOOn reports whether the $D000-$DFFF I/O area is currently banked in.
	// When false, the bus dispatcher routes that range straight through to
	// this Controller instead of to VIC-II/CIA/color RAM.
	IOOn() bool
}

// Bank2RAM adapts a memory.Bank into a Controller backed entirely by RAM,
// with the I/O area always banked in. This is the Controller used by tests
// and by any host that doesn't model PLA bank switching.
type Bank2RAM struct {
	Bank Bank
	// IOEnabled controls the value IOOn reports; defaults to true.
	IOEnabled bool
}

// NewBank2RAM wraps b as a Controller with the I/O area banked in.
func NewBank2RAM(b Bank) *Bank2RAM {
	return &Bank2RAM{Bank: b, IOEnabled: true}
}

// ReadByte implements Controller.
func (c *Bank2RAM) ReadByte(addr uint16) uint8 {
	return c.Bank.Read(addr)
}

// WriteByte implements Controller. Plain RAM accepts every write.
func (c *Bank2RAM) WriteByte(addr uint16, val uint8) bool {
	c.Bank.Write(addr, val)
	return true
}

// ReadWordLE implements Controller.
func (c *Bank2RAM) ReadWordLE(addr uint16) uint16 {
	lo := uint16(c.Bank.Read(addr))
	hi := uint16(c.Bank.Read(addr + 1))
	return (hi << 8) | lo
}

// WriteWordLE implements Controller.
func (c *Bank2RAM) WriteWordLE(addr uint16, val uint16) bool {
	c.Bank.Write(addr, uint8(val&0xFF))
	c.Bank.Write(addr+1, uint8(val>>8))
	return true
}

// IOOn implements Controller.
func (c *Bank2RAM) IOOn() bool {
	return c.IOEnabled
}

// ram implements a standard R/W interface to an address space for 8 bit systems.
// If this is mapped into a larger memory map it's up to a parent Bank to properly mask addr
// before calling Read/Write.
type ram struct {
	ram        []uint8
	parent     Bank
	databusVal uint8
}

// New8BitRAMBank creates a R/W RAM bank of the given size. Size must be a power of 2.
// If this is smaller than 64k (uint16 max) aliasing will occur on Read/Write.
func New8BitRAMBank(size int, parent Bank) (Bank, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("invalid size: %d must be a power of 2", size)
	}
	if size > 1<<16 {
		return nil, fmt.Errorf("invalid size: %d is bigger than 64k", size)
	}
	b := &ram{
		parent: parent,
	}
	// Go ahead and completely preallocate this now.
	b.ram = make([]uint8, size, size)
	return b, nil
}

// Read implements the interface for Bank. Address is clipped based on length of ram buffer.
func (r *ram) Read(addr uint16) uint8 {
	// Mask addr to fit
	addr &= uint16(len(r.ram) - 1)
	val := r.ram[addr]
	r.databusVal = val
	return val
}

// Write implements the interface for Bank. Address is clipped based on length of ram buffer.
func (r *ram) Write(addr uint16, val uint8) {
	// Mask addr to fit
	addr &= uint16(len(r.ram) - 1)
	r.databusVal = val
	r.ram[addr] = val
}

// PowerOn implements the interface for memory.Bank and randomizes the RAM.
func (r *ram) PowerOn() {
	rand.Seed(time.Now().UnixNano())
	for i := range r.ram {
		r.ram[i] = uint8(rand.Intn(256))
	}
}

// Parent implements the interface for returning a possible parent memory.Bank.
func (r *ram) Parent() Bank {
	return r.parent
}

// DatabusVal returns the most recent seen databus item.
func (r *ram) DatabusVal() uint8 {
	return r.databusVal
}
