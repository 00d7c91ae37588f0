// Package logstore lays the event log out on the 25LC256:
//
//	0x0000        control flags byte
//	0x0008/0x0009 used-page counter, little-endian
//	0x0040        first log page; logs grow upward in groups of
//	              PagesPerLog pages, one record per page
//
// The store is append-only. When a full group no longer fits, the append
// is silently skipped: the firmware keeps running and the console simply
// stops reporting new logs.
package logstore

import (
	"sync"

	"motionlog-go/drivers/eeprom25lc"
	"motionlog-go/errcode"
	"motionlog-go/services/recorder/history"
	"motionlog-go/services/recorder/logrec"
)

// Control region layout.
const (
	ctrlFlagsAddr = 0x0000
	ctrlPagesLo   = 0x0008
	ctrlPagesHi   = 0x0009

	// DataBase is the first log page; page 0 is reserved for control state.
	DataBase = 0x0040

	// PagesPerLog is the group size: one record per history slice.
	PagesPerLog = history.Pages
)

// Flags is the persisted control flags byte.
type Flags byte

const (
	FlagStart   Flags = 1 << 0 // acquisition mirror: start vs stop
	FlagConfig  Flags = 1 << 1 // config overlay active
	FlagVerbose Flags = 1 << 2 // verbose telemetry enabled
	FlagReset   Flags = 1 << 3 // set by EraseAll, cleared on next flag save
)

// Has reports whether f contains all bits of mask.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// PageDevice is the slice of the EEPROM driver the store needs. Satisfied
// by *eeprom25lc.Device; tests substitute an in-memory array.
type PageDevice interface {
	ReadByte(addr uint16) (byte, error)
	WriteByte(addr uint16, val byte) error
	ReadPage(addr uint16, dst []byte) error
	WritePage(addr uint16, src []byte) error
}

var _ PageDevice = (*eeprom25lc.Device)(nil)

// Store manages the log region and the control page. Safe for use from
// the recorder loop and the console goroutine; each operation holds the
// lock for its full read or write sequence, so a console read never
// observes a half-written log group.
type Store struct {
	mu  sync.Mutex
	dev PageDevice

	// Page-sized scratch, reused across operations.
	page [eeprom25lc.PageSize]byte
}

func New(dev PageDevice) *Store {
	return &Store{dev: dev}
}

// Flags reads the control flags byte.
func (s *Store) Flags() (Flags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags()
}

func (s *Store) flags() (Flags, error) {
	b, err := s.dev.ReadByte(ctrlFlagsAddr)
	return Flags(b), err
}

// SetFlag sets or clears one control flag with a read-modify-write, so the
// remaining flags survive. Any flag save also consumes the reset marker,
// except a save of the marker itself.
func (s *Store) SetFlag(f Flags, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.flags()
	if err != nil {
		return err
	}
	if on {
		cur |= f
	} else {
		cur &^= f
	}
	if f != FlagReset {
		cur &^= FlagReset
	}
	return s.dev.WriteByte(ctrlFlagsAddr, byte(cur))
}

// PagesUsed reads the used-page counter. Always a multiple of PagesPerLog.
func (s *Store) PagesUsed() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagesUsed()
}

func (s *Store) pagesUsed() (uint16, error) {
	lo, err := s.dev.ReadByte(ctrlPagesLo)
	if err != nil {
		return 0, err
	}
	hi, err := s.dev.ReadByte(ctrlPagesHi)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (s *Store) setPagesUsed(n uint16) error {
	if err := s.dev.WriteByte(ctrlPagesLo, byte(n)); err != nil {
		return err
	}
	return s.dev.WriteByte(ctrlPagesHi, byte(n>>8))
}

// LogCount returns the number of stored logs. The console reports this as
// a single byte, so the count wraps the same way log IDs do.
func (s *Store) LogCount() (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, err := s.pagesUsed()
	if err != nil {
		return 0, err
	}
	return uint8(pages / PagesPerLog), nil
}

// AppendLog writes one log group: PagesPerLog records sharing the id,
// event register and timestamp, carrying consecutive slices of the history
// window. If the group does not fit below the top of the part the append
// is a silent no-op.
func (s *Store) AppendLog(id, eventReg byte, ts uint16, h *history.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, err := s.pagesUsed()
	if err != nil {
		return err
	}
	base := uint32(DataBase) + uint32(pages)*eeprom25lc.PageSize
	if base+PagesPerLog*eeprom25lc.PageSize > eeprom25lc.SizeBytes {
		return nil
	}

	rec := logrec.Record{ID: id, EventReg: eventReg, Timestamp: ts}
	for p := 0; p < PagesPerLog; p++ {
		rec.Payload = h.Slice(p)
		logrec.Encode(&rec, &s.page)
		addr := uint16(base) + uint16(p)*eeprom25lc.PageSize
		if err := s.dev.WritePage(addr, s.page[:]); err != nil {
			return err
		}
	}
	return s.setPagesUsed(pages + PagesPerLog)
}

// FindByID scans log headers from the bottom of the data region, stride
// one page, and returns the address of the first page whose id byte
// matches. Earliest match wins; duplicate IDs from counter wraparound
// shadow later logs.
func (s *Store) FindByID(id byte) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByID(id)
}

func (s *Store) findByID(id byte) (uint16, error) {
	for addr := uint32(DataBase); addr+eeprom25lc.PageSize <= eeprom25lc.SizeBytes; addr += eeprom25lc.PageSize {
		b, err := s.dev.ReadByte(uint16(addr))
		if err != nil {
			return 0, err
		}
		if b == id {
			return uint16(addr), nil
		}
	}
	return 0, errcode.NotFound
}

// ReadLog returns the PagesPerLog records of the log with the given id, in
// store order. Returns errcode.NotFound if no header matches.
func (s *Store) ReadLog(id byte) ([PagesPerLog]logrec.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [PagesPerLog]logrec.Record
	addr, err := s.findByID(id)
	if err != nil {
		return out, err
	}
	for p := 0; p < PagesPerLog; p++ {
		if err := s.dev.ReadPage(addr+uint16(p)*eeprom25lc.PageSize, s.page[:]); err != nil {
			return out, err
		}
		out[p] = logrec.Decode(&s.page)
	}
	return out, nil
}

// EraseAll zeroes the whole data region, resets the page counter and
// leaves only the reset marker set in the control flags. The control page
// itself is rewritten, not bulk-erased, so the layout constants above stay
// the single source of truth.
func (s *Store) EraseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = [eeprom25lc.PageSize]byte{}
	for addr := uint32(DataBase); addr < eeprom25lc.SizeBytes; addr += eeprom25lc.PageSize {
		if err := s.dev.WritePage(uint16(addr), s.page[:]); err != nil {
			return err
		}
	}
	if err := s.setPagesUsed(0); err != nil {
		return err
	}
	return s.dev.WriteByte(ctrlFlagsAddr, byte(FlagReset))
}
