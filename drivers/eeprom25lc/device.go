// Package eeprom25lc drives the Microchip 25LC256 SPI EEPROM: 32 KiB in
// 512 pages of 64 bytes. Writes are blocking; the driver polls the status
// register write-in-progress bit until the part reports completion. The
// poll has no timeout: completion is bounded by the part's Twc (5 ms) and
// a bit that never clears means the hardware is gone, which this firmware
// treats as unrecoverable.
package eeprom25lc

import (
	"tinygo.org/x/drivers"
)

// Geometry.
const (
	PageSize  = 64
	PageCount = 512
	SizeBytes = PageSize * PageCount
)

// Instruction set.
const (
	opWrite  = 0x02
	opRead   = 0x03
	opWRDI   = 0x04
	opRDSR   = 0x05
	opWREN   = 0x06
)

// Status register bits.
const (
	StatusWriteInProgress = 0x01
	StatusWriteEnabled    = 0x02
)

// PinOutput drives the chip-select line (true = high/deasserted).
type PinOutput func(high bool)

// Device represents a 25LC256 on an SPI bus with a dedicated CS line.
type Device struct {
	bus drivers.SPI
	cs  PinOutput

	// Fixed buffers to avoid per-call heap allocations.
	w [4]byte
	r [1]byte
}

func New(bus drivers.SPI, cs PinOutput) *Device {
	return &Device{bus: bus, cs: cs}
}

// ReadStatus returns the status register.
func (d *Device) ReadStatus() (byte, error) {
	d.cs(false)
	defer d.cs(true)
	d.w[0] = opRDSR
	if err := d.bus.Tx(d.w[:1], nil); err != nil {
		return 0, err
	}
	if err := d.bus.Tx(nil, d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// writeEnable sets the write-enable latch; required before every write.
func (d *Device) writeEnable() error {
	d.cs(false)
	defer d.cs(true)
	d.w[0] = opWREN
	return d.bus.Tx(d.w[:1], nil)
}

// waitWriteComplete spins on the write-in-progress bit. Deliberately
// unbounded; see the package comment.
func (d *Device) waitWriteComplete() error {
	for {
		s, err := d.ReadStatus()
		if err != nil {
			return err
		}
		if s&StatusWriteInProgress == 0 {
			return nil
		}
	}
}

// ReadByte reads one byte at addr.
func (d *Device) ReadByte(addr uint16) (byte, error) {
	d.cs(false)
	defer d.cs(true)
	d.w[0] = opRead
	d.w[1] = byte(addr >> 8)
	d.w[2] = byte(addr)
	if err := d.bus.Tx(d.w[:3], nil); err != nil {
		return 0, err
	}
	if err := d.bus.Tx(nil, d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// WriteByte writes one byte at addr and blocks until the cycle completes.
func (d *Device) WriteByte(addr uint16, val byte) error {
	if err := d.writeEnable(); err != nil {
		return err
	}
	d.cs(false)
	d.w[0] = opWrite
	d.w[1] = byte(addr >> 8)
	d.w[2] = byte(addr)
	d.w[3] = val
	if err := d.bus.Tx(d.w[:4], nil); err != nil {
		d.cs(true)
		return err
	}
	d.cs(true)
	return d.waitWriteComplete()
}

// ReadPage reads len(dst) bytes starting at addr (up to one page).
func (d *Device) ReadPage(addr uint16, dst []byte) error {
	d.cs(false)
	defer d.cs(true)
	d.w[0] = opRead
	d.w[1] = byte(addr >> 8)
	d.w[2] = byte(addr)
	if err := d.bus.Tx(d.w[:3], nil); err != nil {
		return err
	}
	return d.bus.Tx(nil, dst)
}

// WritePage writes len(src) bytes starting at addr and blocks until the
// cycle completes. Writes crossing a 64-byte page boundary wrap within the
// page on the part itself; callers keep writes page-aligned.
func (d *Device) WritePage(addr uint16, src []byte) error {
	if err := d.writeEnable(); err != nil {
		return err
	}
	d.cs(false)
	d.w[0] = opWrite
	d.w[1] = byte(addr >> 8)
	d.w[2] = byte(addr)
	if err := d.bus.Tx(d.w[:3], nil); err != nil {
		d.cs(true)
		return err
	}
	if err := d.bus.Tx(src, nil); err != nil {
		d.cs(true)
		return err
	}
	d.cs(true)
	return d.waitWriteComplete()
}
