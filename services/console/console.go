// Package console speaks the one-byte-opcode query protocol on the UART
// and streams verbose telemetry frames. The protocol is synchronous and
// unframed: one opcode in, a fixed-size answer out, no length prefixes, no
// checksums. While verbose telemetry is enabled the stream shares the port
// with query responses; clients turn verbose off before querying.
package console

import (
	"context"
	"runtime"

	"motionlog-go/bus"
	"motionlog-go/errcode"
	"motionlog-go/services/recorder/logrec"
	"motionlog-go/services/recorder/logstore"
)

// Request opcodes and the lone response marker.
const (
	OpReset       = 0x52 // 'R': erase the store, answer OpAck
	OpLogCount    = 0x4E // 'N': answer one count byte
	OpReadControl = 0x43 // 'C': answer the control flags byte
	OpReadLog     = 0x4C // 'L': followed by an id byte; answer the records
	OpAck         = 0x4B // 'K'
)

// Port is the byte stream the console speaks over. Satisfied by the UART
// types in the firmware main. ReadByte returns an error when no byte is
// pending; the console treats that as "no request" and yields.
type Port interface {
	ReadByte() (byte, error)
	WriteByte(b byte) error
	Write(p []byte) (int, error)
}

// Service answers console requests against the log store.
type Service struct {
	port  Port
	store *logstore.Store

	page [logrec.RecordBytes]byte
}

func New(port Port, store *logstore.Store) *Service {
	return &Service{port: port, store: store}
}

// Poll handles at most one pending request. Returns immediately when no
// opcode is waiting.
func (s *Service) Poll() error {
	op, err := s.port.ReadByte()
	if err != nil {
		return nil
	}
	return s.dispatch(op)
}

func (s *Service) dispatch(op byte) error {
	switch op {
	case OpReset:
		if err := s.store.EraseAll(); err != nil {
			return err
		}
		return s.port.WriteByte(OpAck)

	case OpLogCount:
		n, err := s.store.LogCount()
		if err != nil {
			return err
		}
		return s.port.WriteByte(n)

	case OpReadControl:
		f, err := s.store.Flags()
		if err != nil {
			return err
		}
		return s.port.WriteByte(byte(f))

	case OpReadLog:
		id := s.readByteBlocking()
		return s.sendLog(id)
	}
	// Unknown opcode: swallowed, nothing sent.
	return nil
}

// readByteBlocking spins until the next byte of a multi-byte request
// arrives. The client sends the id back to back with the opcode, so the
// spin is short-lived in practice; a client that stops mid-request parks
// the console until it resumes.
func (s *Service) readByteBlocking() byte {
	for {
		b, err := s.port.ReadByte()
		if err == nil {
			return b
		}
		runtime.Gosched()
	}
}

// sendLog writes the whole record group for id, in store order. An unknown
// id sends nothing at all; the client times out and reports the miss.
func (s *Service) sendLog(id byte) error {
	recs, err := s.store.ReadLog(id)
	if errcode.Of(err) == errcode.NotFound {
		return nil
	}
	if err != nil {
		return err
	}
	for i := range recs {
		logrec.Encode(&recs[i], &s.page)
		if _, err := s.port.Write(s.page[:]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) serviceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.Poll(); err != nil {
			println("Error: console:", err.Error())
		}
		runtime.Gosched()
	}
}

// Start launches the console polling loop.
func (s *Service) Start(ctx context.Context, _ *bus.Connection) error {
	go s.serviceLoop(ctx)
	return nil
}
