//go:build rp2040

// Firmware entry point for the Raspberry Pi Pico build of the motion
// logger. Wires the two SPI chips, the button, the potentiometer and the
// UART console onto the service stack and parks.
//
// Pinout:
//
//	SPI0  SCK GP2, SDO GP3, SDI GP4
//	CS    accelerometer GP5, EEPROM GP6
//	INT1  accelerometer interrupt GP7
//	BTN   user button GP8 (active low, pull-up)
//	LED   on-board LED GP25 (PWM)
//	POT   wiper on GP26 / ADC0
//	UART0 TX GP0, RX GP1, 115200 8N1
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"motionlog-go/bus"
	"motionlog-go/drivers/eeprom25lc"
	"motionlog-go/drivers/lis3dh"
	"motionlog-go/services/config"
	"motionlog-go/services/console"
	"motionlog-go/services/notify"
	"motionlog-go/services/recorder"
	"motionlog-go/services/recorder/logstore"
	"motionlog-go/x/timex"
)

const (
	pinSCK       = machine.GP2
	pinSDO       = machine.GP3
	pinSDI       = machine.GP4
	pinSensorCS  = machine.GP5
	pinEEPROMCS  = machine.GP6
	pinSensorINT = machine.GP7
	pinButton    = machine.GP8
	pinLED       = machine.GP25
	pinPot       = machine.GP26
)

// Button timing, matching the original hardware behaviour: releases within
// a second of each other count as a double click, holds past two seconds
// as a long press.
const (
	doubleClickWindow = time.Second
	longPressHold     = 2 * time.Second
)

func csOutput(p machine.Pin) func(bool) {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.High()
	return p.Set
}

// pwmCtrl names the slice controller surface without depending on the
// unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// ledPWM adapts an RP2040 PWM channel to the notify service.
type ledPWM struct {
	ctrl pwmCtrl
	ch   uint8
}

func (l *ledPWM) Set(duty byte) {
	l.ctrl.Set(l.ch, l.ctrl.Top()*uint32(duty)/255)
}

// potADC scales the 16-bit ADC reading to the byte range the dead-band
// mapping works in.
type potADC struct {
	adc machine.ADC
}

func (p *potADC) Get() byte { return byte(p.adc.Get() >> 8) }

func main() {
	time.Sleep(3 * time.Second)
	println("Info: motionlog booting")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	b := bus.NewBus(8)

	// Configuration first: topics are retained, services read them later.
	cfgConn := b.NewConnection("config")
	if err := config.NewConfigService().Start(ctx, cfgConn); err != nil {
		println("Error: config:", err.Error())
	}
	cfgSub := cfgConn.Subscribe(bus.T("config", "sensor"))
	var sensorCfg any
	select {
	case msg := <-cfgSub.Channel():
		sensorCfg = msg.Payload
	default:
	}
	cfgConn.Unsubscribe(cfgSub)
	notifySub := cfgConn.Subscribe(bus.T("config", "notify"))
	var notifyCfg any
	select {
	case msg := <-notifySub.Channel():
		notifyCfg = msg.Payload
	default:
	}
	cfgConn.Unsubscribe(notifySub)

	// Shared SPI bus, one CS per chip.
	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 1_000_000,
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinSDI,
		Mode:      3,
	}); err != nil {
		println("Fatal: SPI:", err.Error())
		return
	}

	sensor := lis3dh.New(spi, csOutput(pinSensorCS))
	if ok, err := sensor.Connected(); err != nil || !ok {
		println("Fatal: accelerometer not responding")
		return
	}
	if err := sensor.Configure(lis3dh.Config{
		Threshold: config.Byte(sensorCfg, "threshold", lis3dh.DefaultThreshold),
		Duration:  config.Byte(sensorCfg, "duration", lis3dh.DefaultDuration),
	}); err != nil {
		println("Fatal: accelerometer init:", err.Error())
		return
	}

	eeprom := eeprom25lc.New(spi, csOutput(pinEEPROMCS))
	store := logstore.New(eeprom)

	// Potentiometer for the verbose setting in config mode.
	machine.InitADC()
	adc := machine.ADC{Pin: pinPot}
	adc.Configure(machine.ADCConfig{})
	pot := notify.NewPotReader(&potADC{adc: adc},
		config.Byte(notifyCfg, "pot_low", 64),
		config.Byte(notifyCfg, "pot_high", 128))

	svc := recorder.New(sensor, store, timex.NewBootClock(), pot)
	recConn := b.NewConnection("recorder")

	// Sensor INT1 carries both the FIFO overrun and the over-threshold
	// interrupt; the handler reads the source registers to tell them apart
	// and only sets flags, the loop does the heavy work.
	pinSensorINT.Configure(machine.PinConfig{Mode: machine.PinInput})
	if err := pinSensorINT.SetInterrupt(machine.PinRising, func(machine.Pin) {
		if ovr, err := sensor.FIFOOverrun(); err == nil && ovr {
			svc.Flags.SetBurstReady()
		}
		if src, err := sensor.ReadInt1Source(); err == nil && src&lis3dh.Int1SrcIAMask != 0 {
			svc.Flags.SetThreshold()
		}
	}); err != nil {
		println("Fatal: sensor interrupt:", err.Error())
		return
	}

	// Button edge classifier: press timestamps on the falling edge,
	// click/hold decision on the rising edge.
	pinButton.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	var pressedAt, lastRelease time.Time
	if err := pinButton.SetInterrupt(machine.PinRising|machine.PinFalling, func(p machine.Pin) {
		now := time.Now()
		if !p.Get() {
			pressedAt = now
			return
		}
		if now.Sub(pressedAt) >= longPressHold {
			svc.Flags.SetLongPress()
			return
		}
		if now.Sub(lastRelease) <= doubleClickWindow {
			svc.Flags.SetDoubleClick()
		}
		lastRelease = now
	}); err != nil {
		println("Fatal: button interrupt:", err.Error())
		return
	}

	// UART console plus verbose telemetry on the same port.
	uart := uartx.UART0
	if err := uart.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	}); err != nil {
		println("Fatal: UART:", err.Error())
		return
	}
	if err := console.New(uart, store).Start(ctx, nil); err != nil {
		println("Fatal: console:", err.Error())
		return
	}
	if err := console.NewTelemetry(uart).Start(ctx, b.NewConnection("telemetry")); err != nil {
		println("Fatal: telemetry:", err.Error())
		return
	}

	// LED follows the retained mode topic. GP25 sits on PWM slice 4.
	var pwm pwmCtrl = machine.PWM4
	if err := pwm.Configure(machine.PWMConfig{Period: 1e9 / 1000}); err != nil {
		println("Fatal: PWM:", err.Error())
		return
	}
	ch, err := pwm.Channel(pinLED)
	if err != nil {
		println("Fatal: PWM channel:", err.Error())
		return
	}
	if err := notify.New(&ledPWM{ctrl: pwm, ch: ch}).Start(ctx, b.NewConnection("notify")); err != nil {
		println("Fatal: notify:", err.Error())
		return
	}

	// Recorder last: Resume publishes the boot mode for everyone above.
	if err := svc.Start(ctx, recConn); err != nil {
		println("Fatal: recorder:", err.Error())
		return
	}
	println("Info: motionlog running, mode", svc.Mode().String())

	select {}
}
