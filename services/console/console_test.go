package console

import (
	"bytes"
	"testing"

	"motionlog-go/drivers/eeprom25lc"
	"motionlog-go/drivers/lis3dh"
	"motionlog-go/errcode"
	"motionlog-go/services/recorder"
	"motionlog-go/services/recorder/history"
	"motionlog-go/services/recorder/logrec"
	"motionlog-go/services/recorder/logstore"
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

// fakePort serves a scripted request and records everything written.
type fakePort struct {
	in  []byte
	out bytes.Buffer
}

func (p *fakePort) ReadByte() (byte, error) {
	if len(p.in) == 0 {
		return 0, errcode.Busy
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, nil
}

func (p *fakePort) WriteByte(b byte) error {
	p.out.WriteByte(b)
	return nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func newConsole(in ...byte) (*Service, *fakePort, *logstore.Store) {
	port := &fakePort{in: in}
	store := logstore.New(&memDevice{})
	return New(port, store), port, store
}

func appendLog(t *testing.T, store *logstore.Store, id byte, ts uint16) {
	t.Helper()
	var h history.Buffer
	for i := byte(1); i <= history.Depth; i++ {
		var r history.ReducedBurst
		for j := range r {
			r[j] = id + i
		}
		h.Push(r)
	}
	if err := store.AppendLog(id, 0x6A, ts, &h); err != nil {
		t.Fatal(err)
	}
}

func TestPollNoRequest(t *testing.T) {
	svc, port, _ := newConsole()
	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	if port.out.Len() != 0 {
		t.Fatal("wrote without a request")
	}
}

func TestResetAcks(t *testing.T) {
	svc, port, store := newConsole(OpReset)
	appendLog(t, store, 0, 1)

	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	if got := port.out.Bytes(); len(got) != 1 || got[0] != OpAck {
		t.Fatalf("response = % X, want the ack byte", got)
	}
	if n, _ := store.LogCount(); n != 0 {
		t.Fatal("store not erased")
	}
}

func TestLogCount(t *testing.T) {
	svc, port, store := newConsole(OpLogCount)
	appendLog(t, store, 0, 1)
	appendLog(t, store, 1, 2)

	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	if got := port.out.Bytes(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("response = % X, want the count 2", got)
	}
}

func TestReadControl(t *testing.T) {
	svc, port, store := newConsole(OpReadControl)
	if err := store.SetFlag(logstore.FlagStart, true); err != nil {
		t.Fatal(err)
	}
	if err := store.SetFlag(logstore.FlagVerbose, true); err != nil {
		t.Fatal(err)
	}

	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	want := byte(logstore.FlagStart | logstore.FlagVerbose)
	if got := port.out.Bytes(); len(got) != 1 || got[0] != want {
		t.Fatalf("response = % X, want %02X", got, want)
	}
}

func TestReadLogSendsWholeGroup(t *testing.T) {
	svc, port, store := newConsole(OpReadLog, 1)
	appendLog(t, store, 0, 10)
	appendLog(t, store, 1, 20)

	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	got := port.out.Bytes()
	if len(got) != logstore.PagesPerLog*logrec.RecordBytes {
		t.Fatalf("response length %d, want %d", len(got), logstore.PagesPerLog*logrec.RecordBytes)
	}
	for p := 0; p < logstore.PagesPerLog; p++ {
		var page [logrec.RecordBytes]byte
		copy(page[:], got[p*logrec.RecordBytes:])
		r := logrec.Decode(&page)
		if r.ID != 1 || r.Timestamp != 20 {
			t.Fatalf("record %d header = %+v", p, r)
		}
	}
}

func TestReadLogUnknownIDSendsNothing(t *testing.T) {
	svc, port, store := newConsole(OpReadLog, 99)
	appendLog(t, store, 0, 10)

	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	if port.out.Len() != 0 {
		t.Fatalf("unknown id produced %d bytes", port.out.Len())
	}
}

func TestUnknownOpcodeIgnored(t *testing.T) {
	svc, port, _ := newConsole(0x7F)
	if err := svc.Poll(); err != nil {
		t.Fatal(err)
	}
	if port.out.Len() != 0 {
		t.Fatal("unknown opcode produced output")
	}
}

func TestTelemetryFraming(t *testing.T) {
	port := &fakePort{}
	tw := NewTelemetry(port)

	var tb recorder.TelemetryBurst
	for i := range tb {
		tb[i] = byte(i)
	}
	if err := tw.WriteBurst(&tb); err != nil {
		t.Fatal(err)
	}

	got := port.out.Bytes()
	if len(got) != lis3dh.Levels*FrameBytes {
		t.Fatalf("stream length %d, want %d", len(got), lis3dh.Levels*FrameBytes)
	}
	for lvl := 0; lvl < lis3dh.Levels; lvl++ {
		f := got[lvl*FrameBytes : (lvl+1)*FrameBytes]
		if f[0] != FrameStart || f[4] != FrameEnd {
			t.Fatalf("frame %d markers = %02X %02X", lvl, f[0], f[4])
		}
		for ax := 0; ax < lis3dh.Axes; ax++ {
			if f[1+ax] != byte(lvl*lis3dh.Axes+ax) {
				t.Fatalf("frame %d axis %d = %d", lvl, ax, f[1+ax])
			}
		}
	}
}
