// Package recorder runs the acquisition pipeline: it drains the event
// flags set by the sensor and button interrupts, feeds bursts through the
// downsampler into the history arena, captures over-threshold events to
// the log store, and publishes mode and telemetry over the bus.
//
// Everything happens on one cooperative loop. Interrupt handlers only set
// flags; the loop does all bus I/O, so the drivers never see concurrent
// calls.
package recorder

import (
	"context"
	"runtime"

	"motionlog-go/bus"
	"motionlog-go/drivers/lis3dh"
	"motionlog-go/services/recorder/history"
	"motionlog-go/services/recorder/logstore"
	"motionlog-go/services/recorder/mode"
)

// Bus topics owned by this service.
var (
	TopicMode      = bus.Topic{"recorder", "mode"}
	TopicVerbose   = bus.Topic{"recorder", "verbose"}
	TopicTelemetry = bus.Topic{"telemetry", "burst"}
)

// TelemetryBurst is the payload published on TopicTelemetry: the high axis
// bytes of one full burst, undecimated.
type TelemetryBurst [lis3dh.Levels * lis3dh.Axes]byte

// Sensor is the slice of the accelerometer driver the loop needs.
// Satisfied by *lis3dh.Device.
type Sensor interface {
	Start() error
	Stop() error
	ReadBurst(raw *lis3dh.RawBurst) error
	ResetFIFO() error
	ReadInt1Source() (byte, error)
}

// Clock provides the log timestamp. Satisfied by *timex.BootClock.
type Clock interface {
	Seconds() uint16
}

// VerboseInput maps the config potentiometer onto the verbose setting.
// Read receives the current value and returns the new one, so a reading
// inside the dead band leaves the setting alone. Nil disables pot input.
type VerboseInput interface {
	Read(old bool) bool
}

// Service owns the event flags, the history arena and the mode controller.
type Service struct {
	Flags EventFlags

	sensor Sensor
	store  *logstore.Store
	clock  Clock
	pot    VerboseInput

	ctrl *mode.Controller
	hist history.Buffer

	raw lis3dh.RawBurst
}

func New(sensor Sensor, store *logstore.Store, clock Clock, pot VerboseInput) *Service {
	return &Service{
		sensor: sensor,
		store:  store,
		clock:  clock,
		pot:    pot,
		ctrl:   mode.New(store, sensor),
	}
}

// Mode returns the current run mode.
func (s *Service) Mode() mode.Mode { return s.ctrl.Mode() }

// Resume restores the persisted mode and announces it. Called once before
// the loop starts.
func (s *Service) Resume(conn *bus.Connection) error {
	if err := s.ctrl.Resume(); err != nil {
		return err
	}
	s.publishMode(conn)
	s.publishVerbose(conn)
	return nil
}

func (s *Service) publishMode(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(TopicMode, s.ctrl.Mode().String(), true))
}

func (s *Service) publishVerbose(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(TopicVerbose, s.ctrl.Verbose(), true))
}

// Step drains every pending event once. Split out from Run so tests can
// drive the loop deterministically.
func (s *Service) Step(conn *bus.Connection) error {
	if s.Flags.takeDoubleClick() {
		if err := s.ctrl.HandleDoubleClick(); err != nil {
			return err
		}
		s.publishMode(conn)
	}
	if s.Flags.takeLongPress() {
		if err := s.ctrl.HandleLongPress(); err != nil {
			return err
		}
		s.publishMode(conn)
		s.publishVerbose(conn)
	}

	if s.ctrl.Mode() == mode.Config && s.pot != nil {
		old := s.ctrl.Verbose()
		if v := s.pot.Read(old); v != old {
			s.ctrl.SetVerbose(v)
			s.publishVerbose(conn)
		}
	}

	if s.Flags.takeBurstReady() {
		if err := s.drainBurst(conn); err != nil {
			return err
		}
	}
	if s.Flags.takeThreshold() {
		if err := s.captureEvent(); err != nil {
			return err
		}
	}
	return nil
}

// captureEvent logs one over-threshold event: the first INT1 source read
// is the event register recorded, then the latch is spun clear so the
// interrupt can re-arm. The spin is unbounded; the latch clears as soon as
// the acceleration drops below threshold.
func (s *Service) captureEvent() error {
	id, err := s.store.LogCount()
	if err != nil {
		return err
	}
	ev, err := s.sensor.ReadInt1Source()
	if err != nil {
		return err
	}
	ts := s.clock.Seconds()

	for cur := ev; cur&lis3dh.Int1SrcIAMask != 0; {
		cur, err = s.sensor.ReadInt1Source()
		if err != nil {
			return err
		}
	}

	if err := s.store.AppendLog(id, ev, ts, &s.hist); err != nil {
		return err
	}
	return s.sensor.ResetFIFO()
}

// drainBurst reads the full FIFO, pushes the reduced burst onto the
// history arena, streams telemetry when the persisted verbose flag is set,
// and re-arms the FIFO.
func (s *Service) drainBurst(conn *bus.Connection) error {
	if err := s.sensor.ReadBurst(&s.raw); err != nil {
		return err
	}
	s.hist.Push(history.Reduce(&s.raw))

	f, err := s.store.Flags()
	if err != nil {
		return err
	}
	if f.Has(logstore.FlagVerbose) {
		var tb TelemetryBurst
		history.HighBytes(&s.raw, (*[lis3dh.Levels * lis3dh.Axes]byte)(&tb))
		conn.Publish(conn.NewMessage(TopicTelemetry, tb, false))
	}
	return s.sensor.ResetFIFO()
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.Step(conn); err != nil {
			println("Error: recorder:", err.Error())
		}
		runtime.Gosched()
	}
}

// Start resumes the persisted mode and launches the service loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if err := s.Resume(conn); err != nil {
		return err
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
