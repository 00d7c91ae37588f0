// Package logrec defines the fixed 64-byte log record and its page
// serialization:
//
//	+--------------------+
//	|       Log ID       |   <1 byte>
//	+--------------------+
//	|   Event register   |   <1 byte>
//	+--------------------+
//	|     Timestamp      |   <2 bytes, little-endian seconds since boot>
//	+--------------------+
//	|      Payload       |   <60 bytes of history window data>
//	+--------------------+
//
// One over-threshold event produces a group of records sharing the same
// header and carrying consecutive slices of the history window.
package logrec

// Record geometry.
const (
	HeaderBytes  = 4
	PayloadBytes = 60
	RecordBytes  = HeaderBytes + PayloadBytes // one store page
)

// Record is one log entry in memory.
type Record struct {
	ID        uint8
	EventReg  uint8
	Timestamp uint16
	Payload   [PayloadBytes]byte
}

// Encode serializes r into its fixed page representation.
func Encode(r *Record, dst *[RecordBytes]byte) {
	dst[0] = r.ID
	dst[1] = r.EventReg
	dst[2] = byte(r.Timestamp)
	dst[3] = byte(r.Timestamp >> 8)
	copy(dst[HeaderBytes:], r.Payload[:])
}

// Decode is the exact inverse of Encode.
func Decode(src *[RecordBytes]byte) Record {
	var r Record
	r.ID = src[0]
	r.EventReg = src[1]
	r.Timestamp = uint16(src[2]) | uint16(src[3])<<8
	copy(r.Payload[:], src[HeaderBytes:])
	return r
}
