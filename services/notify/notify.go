// Package notify drives the status LED from the published mode and maps
// the config potentiometer onto the verbose setting.
//
// LED encoding: off in stop, full brightness while acquiring, and in
// config a steady half brightness when verbose is selected or a faint
// glow when it is not, so the knob position is visible at a glance.
package notify

import (
	"context"

	"motionlog-go/bus"
	"motionlog-go/services/recorder"
	"motionlog-go/x/mathx"
)

// PWM drives the LED brightness. Satisfied by machine.PWM channels in the
// firmware main.
type PWM interface {
	Set(duty byte)
}

// ADC reads the potentiometer wiper, scaled to a byte.
type ADC interface {
	Get() byte
}

// LED duty per mode.
const (
	dutyOff       = 0x00
	dutyStart     = 0xFF
	dutyConfigOn  = 0x7F
	dutyConfigOff = 0x10
)

// Service mirrors the retained mode and verbose topics onto the LED.
type Service struct {
	led PWM

	mode    string
	verbose bool
}

func New(led PWM) *Service {
	return &Service{led: led}
}

func (s *Service) apply() {
	switch s.mode {
	case "start":
		s.led.Set(dutyStart)
	case "config":
		if s.verbose {
			s.led.Set(dutyConfigOn)
		} else {
			s.led.Set(dutyConfigOff)
		}
	default:
		s.led.Set(dutyOff)
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	modeSub := conn.Subscribe(recorder.TopicMode)
	defer conn.Unsubscribe(modeSub)
	verbSub := conn.Subscribe(recorder.TopicVerbose)
	defer conn.Unsubscribe(verbSub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-modeSub.Channel():
			if m, ok := msg.Payload.(string); ok {
				s.mode = m
				s.apply()
			}
		case msg := <-verbSub.Channel():
			if v, ok := msg.Payload.(bool); ok {
				s.verbose = v
				s.apply()
			}
		}
	}
}

// Start launches the LED follower.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.led.Set(dutyOff)
	go s.serviceLoop(ctx, conn)
	return nil
}

// PotReader maps the potentiometer onto a boolean with a dead band: below
// low reads false, above high reads true, anything between leaves the
// previous value alone so a wiper resting near the middle does not
// flicker. Implements the recorder's VerboseInput.
type PotReader struct {
	adc       ADC
	low, high byte
}

func NewPotReader(adc ADC, low, high byte) *PotReader {
	low = mathx.Min(low, high)
	return &PotReader{adc: adc, low: low, high: high}
}

func (p *PotReader) Read(old bool) bool {
	raw := p.adc.Get()
	switch {
	case raw < p.low:
		return false
	case raw > p.high:
		return true
	}
	return old
}
