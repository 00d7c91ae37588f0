// Package lis3dh drives the ST LIS3DH 3-axis accelerometer over SPI in the
// FIFO + threshold-interrupt configuration this logger needs: low-power
// 200 Hz sampling into the 32-level hardware FIFO, INT1 routed to FIFO
// overrun and over-threshold events.
package lis3dh

import (
	"tinygo.org/x/drivers"
)

// FIFO geometry.
const (
	Levels        = 32
	Axes          = 3
	BytesPerLevel = Axes * 2 // low + high byte per axis
	RawBytes      = Levels * BytesPerLevel
)

// RawBurst is one full FIFO read-out: 32 levels of X/Y/Z low+high register
// pairs, in register order.
type RawBurst [RawBytes]byte

// PinOutput drives a chip-select line (true = high/deasserted).
type PinOutput func(high bool)

// Config carries the tunable interrupt parameters. Zero values select the
// defaults from the original board bring-up.
type Config struct {
	Threshold byte // INT1_THS, 16 mg/LSB at +-2g
	Duration  byte // INT1_DURATION, 5 ms/LSB at 200 Hz
}

// Device represents a LIS3DH on an SPI bus with a dedicated CS line.
type Device struct {
	bus drivers.SPI
	cs  PinOutput

	ths byte
	dur byte

	// Fixed buffers to avoid per-call heap allocations.
	w [2]byte
	r [1]byte
}

// New constructs a Device. Call Configure before use.
func New(bus drivers.SPI, cs PinOutput) *Device {
	return &Device{
		bus: bus,
		cs:  cs,
		ths: DefaultThreshold,
		dur: DefaultDuration,
	}
}

// Configure programs the full register set and leaves the part stopped:
// axes sampling disabled, FIFO bypassed, INT1 events masked.
func (d *Device) Configure(cfg Config) error {
	if cfg.Threshold != 0 {
		d.ths = cfg.Threshold
	}
	if cfg.Duration != 0 {
		d.dur = cfg.Duration
	}

	seq := [...][2]byte{
		{regCtrl1, ctrl1StopXYZ},
		{regCtrl3, ctrl3Null},
		{regCtrl4, ctrl4BDUActive},
		{regCtrl5, ctrl5FIFOEnable},
		{regFIFOCtrl, fifoCtrlBypass},
		{regInt1Cfg, int1CfgDisabled},
		{regInt1Ths, d.ths},
		{regInt1Dur, d.dur},
	}
	for _, p := range seq {
		if err := d.WriteRegister(p[0], p[1]); err != nil {
			return err
		}
	}
	return d.Stop()
}

// Connected reads WHO_AM_I and reports whether a LIS3DH answered.
func (d *Device) Connected() (bool, error) {
	v, err := d.ReadRegister(regWhoAmI)
	if err != nil {
		return false, err
	}
	return v == WhoAmIValue, nil
}

// Start enables sampling, the FIFO, and INT1 generation for both the
// over-threshold and FIFO-overrun events.
func (d *Device) Start() error {
	seq := [...][2]byte{
		{regCtrl1, ctrl1StartXYZ},
		{regCtrl3, ctrl3IA1Overrun},
		{regCtrl5, ctrl5FIFOEnable},
		{regFIFOCtrl, fifoCtrlFIFO},
		{regInt1Cfg, int1CfgXYZHigh},
	}
	for _, p := range seq {
		if err := d.WriteRegister(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// Stop disables sampling and masks all interrupt sources.
func (d *Device) Stop() error {
	seq := [...][2]byte{
		{regCtrl1, ctrl1StopXYZ},
		{regCtrl3, ctrl3Null},
		{regCtrl5, ctrl5FIFODisable},
		{regFIFOCtrl, fifoCtrlBypass},
		{regInt1Cfg, int1CfgDisabled},
	}
	for _, p := range seq {
		if err := d.WriteRegister(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// ReadBurst performs the bulk ordered read of all 32 FIFO levels into buf.
// Each level is one 6-byte auto-incremented read starting at OUT_X_L.
func (d *Device) ReadBurst(buf *RawBurst) error {
	for i := 0; i < Levels; i++ {
		d.cs(false)
		d.w[0] = regOutXLBurst
		if err := d.bus.Tx(d.w[:1], nil); err != nil {
			d.cs(true)
			return err
		}
		if err := d.bus.Tx(nil, buf[i*BytesPerLevel:(i+1)*BytesPerLevel]); err != nil {
			d.cs(true)
			return err
		}
		d.cs(true)
	}
	return nil
}

// ResetFIFO cycles the FIFO through bypass back to FIFO mode, clearing its
// contents and re-arming overrun detection.
func (d *Device) ResetFIFO() error {
	if err := d.WriteRegister(regFIFOCtrl, fifoCtrlBypass); err != nil {
		return err
	}
	return d.WriteRegister(regFIFOCtrl, fifoCtrlFIFO)
}

// FIFOOverrun reports whether the FIFO overrun bit is set in FIFO_SRC.
func (d *Device) FIFOOverrun() (bool, error) {
	v, err := d.ReadRegister(regFIFOSrc)
	if err != nil {
		return false, err
	}
	return v&FIFOSrcOvrMask != 0, nil
}

// ReadInt1Source returns the raw INT1_SRC register. Reading it also clears
// the latched interrupt condition on the part.
func (d *Device) ReadInt1Source() (byte, error) {
	return d.ReadRegister(RegInt1Src)
}

// ReadRegister reads a single register.
func (d *Device) ReadRegister(reg byte) (byte, error) {
	d.cs(false)
	defer d.cs(true)
	d.w[0] = reg | readBit
	if err := d.bus.Tx(d.w[:1], nil); err != nil {
		return 0, err
	}
	if err := d.bus.Tx(nil, d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// WriteRegister writes a single register.
func (d *Device) WriteRegister(reg, val byte) error {
	d.cs(false)
	defer d.cs(true)
	d.w[0] = reg
	d.w[1] = val
	return d.bus.Tx(d.w[:2], nil)
}
