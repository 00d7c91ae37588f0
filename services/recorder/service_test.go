package recorder

import (
	"testing"

	"motionlog-go/bus"
	"motionlog-go/drivers/eeprom25lc"
	"motionlog-go/drivers/lis3dh"
	"motionlog-go/services/recorder/history"
	"motionlog-go/services/recorder/logstore"
	"motionlog-go/services/recorder/mode"
)

type memDevice struct {
	mem [eeprom25lc.SizeBytes]byte
}

func (m *memDevice) ReadByte(addr uint16) (byte, error) { return m.mem[addr], nil }
func (m *memDevice) WriteByte(addr uint16, val byte) error {
	m.mem[addr] = val
	return nil
}
func (m *memDevice) ReadPage(addr uint16, dst []byte) error {
	copy(dst, m.mem[addr:])
	return nil
}
func (m *memDevice) WritePage(addr uint16, src []byte) error {
	copy(m.mem[addr:], src)
	return nil
}

// fakeSensor scripts INT1 source reads and serves a canned burst.
type fakeSensor struct {
	running    bool
	burst      lis3dh.RawBurst
	burstReads int
	fifoResets int
	int1       []byte
}

func (f *fakeSensor) Start() error { f.running = true; return nil }
func (f *fakeSensor) Stop() error  { f.running = false; return nil }

func (f *fakeSensor) ReadBurst(raw *lis3dh.RawBurst) error {
	*raw = f.burst
	f.burstReads++
	return nil
}

func (f *fakeSensor) ResetFIFO() error { f.fifoResets++; return nil }

func (f *fakeSensor) ReadInt1Source() (byte, error) {
	if len(f.int1) == 0 {
		return 0, nil
	}
	b := f.int1[0]
	f.int1 = f.int1[1:]
	return b, nil
}

type fixedClock uint16

func (c fixedClock) Seconds() uint16 { return uint16(c) }

// fakePot returns a scripted sequence of verbose values, then holds.
type fakePot struct {
	vals []bool
}

func (p *fakePot) Read(old bool) bool {
	if len(p.vals) == 0 {
		return old
	}
	v := p.vals[0]
	p.vals = p.vals[1:]
	return v
}

type harness struct {
	svc    *Service
	sensor *fakeSensor
	store  *logstore.Store
	conn   *bus.Connection
	sub    *bus.Subscription // recorder/mode
}

func newHarness(t *testing.T, pot VerboseInput) *harness {
	t.Helper()
	b := bus.NewBus(8)
	sensor := &fakeSensor{}
	store := logstore.New(&memDevice{})
	svc := New(sensor, store, fixedClock(777), pot)

	conn := b.NewConnection("recorder")
	watcher := b.NewConnection("test")
	sub := watcher.Subscribe(TopicMode)
	return &harness{svc: svc, sensor: sensor, store: store, conn: conn, sub: sub}
}

func (h *harness) lastMode(t *testing.T) string {
	t.Helper()
	var last string
	for {
		select {
		case msg := <-h.sub.Channel():
			last = msg.Payload.(string)
		default:
			if last == "" {
				t.Fatal("no mode message")
			}
			return last
		}
	}
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	if err := h.svc.Step(h.conn); err != nil {
		t.Fatal(err)
	}
}

func TestResumePublishesRetainedStop(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.svc.Resume(h.conn); err != nil {
		t.Fatal(err)
	}
	if got := h.lastMode(t); got != "stop" {
		t.Fatalf("mode = %q, want stop", got)
	}
	if h.sensor.running {
		t.Fatal("acquisition running after cold boot")
	}
}

func TestDoubleClickDrains(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.svc.Resume(h.conn); err != nil {
		t.Fatal(err)
	}

	h.svc.Flags.SetDoubleClick()
	h.step(t)
	if got := h.lastMode(t); got != "start" {
		t.Fatalf("mode = %q, want start", got)
	}
	if !h.sensor.running {
		t.Fatal("sensor not started")
	}

	// The flag was consumed: another step changes nothing.
	h.step(t)
	if h.svc.Mode() != mode.Start {
		t.Fatal("mode moved without an event")
	}
}

func TestBurstDrainFeedsHistory(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.svc.Resume(h.conn); err != nil {
		t.Fatal(err)
	}
	for i := range h.sensor.burst {
		h.sensor.burst[i] = byte(i)
	}

	h.svc.Flags.SetBurstReady()
	h.step(t)

	if h.sensor.burstReads != 1 {
		t.Fatalf("burst reads = %d, want 1", h.sensor.burstReads)
	}
	if h.sensor.fifoResets != 1 {
		t.Fatal("FIFO not re-armed after drain")
	}
	if h.svc.hist.Len() != 1 {
		t.Fatalf("history len = %d, want 1", h.svc.hist.Len())
	}
	if got, want := h.svc.hist.At(0), history.Reduce(&h.sensor.burst); got != want {
		t.Fatal("history holds something other than the reduced burst")
	}
}

func TestTelemetryGatedOnVerboseFlag(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.svc.Resume(h.conn); err != nil {
		t.Fatal(err)
	}
	tsub := h.conn.Subscribe(TopicTelemetry)
	for i := range h.sensor.burst {
		h.sensor.burst[i] = byte(i)
	}

	// Verbose off: burst drains silently.
	h.svc.Flags.SetBurstReady()
	h.step(t)
	select {
	case <-tsub.Channel():
		t.Fatal("telemetry published with verbose off")
	default:
	}

	if err := h.store.SetFlag(logstore.FlagVerbose, true); err != nil {
		t.Fatal(err)
	}
	h.svc.Flags.SetBurstReady()
	h.step(t)

	msg := <-tsub.Channel()
	tb := msg.Payload.(TelemetryBurst)
	for i := range tb {
		if tb[i] != byte(i*2+1) { // high byte of each register pair
			t.Fatalf("telemetry byte %d = %d, want %d", i, tb[i], i*2+1)
		}
	}
}

func TestThresholdCapturesEvent(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.svc.Resume(h.conn); err != nil {
		t.Fatal(err)
	}
	// Fill the history with two bursts first.
	for i := range h.sensor.burst {
		h.sensor.burst[i] = 0x10
	}
	h.svc.Flags.SetBurstReady()
	h.step(t)
	h.svc.Flags.SetBurstReady()
	h.step(t)

	// First read is the logged event register; the latch stays set for one
	// more read before clearing.
	h.sensor.int1 = []byte{0x6A, 0x6A, 0x2A}
	h.svc.Flags.SetThreshold()
	h.step(t)

	if n, _ := h.store.LogCount(); n != 1 {
		t.Fatalf("log count = %d, want 1", n)
	}
	recs, err := h.store.ReadLog(0)
	if err != nil {
		t.Fatal(err)
	}
	r := recs[0]
	if r.ID != 0 || r.EventReg != 0x6A || r.Timestamp != 777 {
		t.Fatalf("header = %+v", r)
	}
	if len(h.sensor.int1) != 0 {
		t.Fatal("INT1 latch not spun clear")
	}
	if h.sensor.fifoResets != 3 {
		t.Fatalf("fifo resets = %d, want 3", h.sensor.fifoResets)
	}
}

func TestPotEditsVerboseOnlyInConfig(t *testing.T) {
	pot := &fakePot{vals: []bool{true}}
	h := newHarness(t, pot)
	if err := h.svc.Resume(h.conn); err != nil {
		t.Fatal(err)
	}

	// In Stop the pot is ignored.
	h.step(t)
	if len(pot.vals) != 1 {
		t.Fatal("pot read outside config")
	}

	h.svc.Flags.SetLongPress()
	h.step(t)
	if h.svc.Mode() != mode.Config {
		t.Fatal("long-press did not enter config")
	}
	// Pot was consumed this step and flipped verbose on.
	if len(pot.vals) != 0 {
		t.Fatal("pot not read in config")
	}

	h.svc.Flags.SetLongPress()
	h.step(t)
	f, _ := h.store.Flags()
	if !f.Has(logstore.FlagVerbose) {
		t.Fatal("edited verbose not latched on config exit")
	}
}
