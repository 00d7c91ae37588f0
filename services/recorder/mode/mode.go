// Package mode implements the run-mode state machine. Stop and Start
// toggle on double-click; long-press overlays Config on either and, on the
// next long-press, drops back to whichever of the two the persisted mirror
// names. The mirror in the store, not an in-memory "previous mode", is the
// single source of truth, so a power cycle inside Config resumes cleanly.
package mode

import (
	"motionlog-go/services/recorder/logstore"
)

// Mode is the current run mode.
type Mode uint8

const (
	Stop Mode = iota
	Start
	Config
)

func (m Mode) String() string {
	switch m {
	case Stop:
		return "stop"
	case Start:
		return "start"
	case Config:
		return "config"
	}
	return "unknown"
}

// Acquirer starts and stops sensor acquisition. Satisfied by
// *lis3dh.Device.
type Acquirer interface {
	Start() error
	Stop() error
}

// FlagStore persists the control flags. Satisfied by *logstore.Store.
type FlagStore interface {
	Flags() (logstore.Flags, error)
	SetFlag(f logstore.Flags, on bool) error
}

// Controller drives mode transitions. Not safe for concurrent use; the
// recorder loop is its only caller.
type Controller struct {
	store FlagStore
	acq   Acquirer

	mode    Mode
	verbose bool
}

func New(store FlagStore, acq Acquirer) *Controller {
	return &Controller{store: store, acq: acq}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Verbose returns the in-memory verbose-send setting. Outside Config this
// tracks the persisted flag; inside Config it is the value being edited.
func (c *Controller) Verbose() bool { return c.verbose }

// SetVerbose updates the in-memory verbose setting. Only meaningful in
// Config; the value is persisted when Config exits.
func (c *Controller) SetVerbose(v bool) { c.verbose = v }

// Resume restores the boot mode from the persisted mirror. Config never
// survives a power cycle: the overlay flag is cleared and the unit comes
// up in the mirrored Stop or Start.
func (c *Controller) Resume() error {
	f, err := c.store.Flags()
	if err != nil {
		return err
	}
	if f.Has(logstore.FlagConfig) {
		if err := c.store.SetFlag(logstore.FlagConfig, false); err != nil {
			return err
		}
	}
	c.verbose = f.Has(logstore.FlagVerbose)
	if f.Has(logstore.FlagStart) {
		c.mode = Start
		return c.acq.Start()
	}
	c.mode = Stop
	return c.acq.Stop()
}

// HandleDoubleClick toggles Stop and Start. A double-click inside Config
// does nothing.
func (c *Controller) HandleDoubleClick() error {
	switch c.mode {
	case Stop:
		if err := c.store.SetFlag(logstore.FlagStart, true); err != nil {
			return err
		}
		c.mode = Start
		return c.acq.Start()
	case Start:
		if err := c.store.SetFlag(logstore.FlagStart, false); err != nil {
			return err
		}
		c.mode = Stop
		return c.acq.Stop()
	}
	return nil
}

// HandleLongPress enters Config from Stop or Start, or exits it. On exit
// the verbose setting is latched to the store and the next mode comes from
// the persisted start/stop mirror.
func (c *Controller) HandleLongPress() error {
	if c.mode != Config {
		if err := c.store.SetFlag(logstore.FlagConfig, true); err != nil {
			return err
		}
		c.mode = Config
		return c.acq.Stop()
	}

	if err := c.store.SetFlag(logstore.FlagVerbose, c.verbose); err != nil {
		return err
	}
	if err := c.store.SetFlag(logstore.FlagConfig, false); err != nil {
		return err
	}
	f, err := c.store.Flags()
	if err != nil {
		return err
	}
	if f.Has(logstore.FlagStart) {
		c.mode = Start
		return c.acq.Start()
	}
	c.mode = Stop
	return nil
}
