package lis3dh

// Register map (subset used by this application).
const (
	regWhoAmI   = 0x0F
	regCtrl1    = 0x20
	regCtrl3    = 0x22
	regCtrl4    = 0x23
	regCtrl5    = 0x24
	regFIFOCtrl = 0x2E
	regFIFOSrc  = 0x2F
	regInt1Cfg  = 0x30
	RegInt1Src  = 0x31
	regInt1Ths  = 0x32
	regInt1Dur  = 0x33

	// OUT_X_L with the read and auto-increment bits set, for burst reads.
	regOutXLBurst = 0x28 | readBit | autoIncBit
)

// SPI framing bits.
const (
	readBit    = 0x80
	autoIncBit = 0x40
)

// Register values.
const (
	// CTRL_REG1: low-power mode, 200 Hz ODR; axes disabled vs enabled.
	ctrl1StopXYZ  = 0x68
	ctrl1StartXYZ = 0x6F

	// CTRL_REG3: INT1 routing off vs IA1 + FIFO overrun.
	ctrl3Null       = 0x00
	ctrl3IA1Overrun = 0x42

	// CTRL_REG4: block data update, FSR +-2g, 4-wire SPI.
	ctrl4BDUActive = 0x80

	// CTRL_REG5: FIFO enable bit.
	ctrl5FIFOEnable  = 0x40
	ctrl5FIFODisable = 0x00

	// FIFO_CTRL_REG modes.
	fifoCtrlBypass = 0x00
	fifoCtrlFIFO   = 0x40

	// INT1_CFG: high events on X, Y, Z vs none.
	int1CfgDisabled  = 0x00
	int1CfgXYZHigh   = 0x2A

	// Interrupt identity and status masks.
	WhoAmIValue    = 0x33
	FIFOSrcOvrMask = 0x40 // FIFO_SRC_REG overrun bit
	Int1SrcIAMask  = 0x40 // INT1_SRC interrupt-active bit
)

// Default threshold/duration: 1.6 g (16 mg/LSB at +-2g FSR) held for
// 100 ms (5 ms/LSB at 200 Hz ODR).
const (
	DefaultThreshold = 0x64
	DefaultDuration  = 0x14
)
