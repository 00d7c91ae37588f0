package logrec

import "testing"

func TestRoundTrip(t *testing.T) {
	r := Record{ID: 17, EventReg: 0x6A, Timestamp: 0xBEEF}
	for i := range r.Payload {
		r.Payload[i] = byte(i * 3)
	}

	var buf [RecordBytes]byte
	Encode(&r, &buf)
	if got := Decode(&buf); got != r {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, r)
	}
}

func TestHeaderLayout(t *testing.T) {
	r := Record{ID: 0x03, EventReg: 0x40, Timestamp: 0x1234}
	var buf [RecordBytes]byte
	Encode(&r, &buf)

	// id, event register, timestamp low, timestamp high, in that order.
	if buf[0] != 0x03 || buf[1] != 0x40 || buf[2] != 0x34 || buf[3] != 0x12 {
		t.Fatalf("header = % X", buf[:HeaderBytes])
	}
}

func TestPayloadVerbatim(t *testing.T) {
	var r Record
	for i := range r.Payload {
		r.Payload[i] = byte(255 - i)
	}
	var buf [RecordBytes]byte
	Encode(&r, &buf)
	for i := 0; i < PayloadBytes; i++ {
		if buf[HeaderBytes+i] != byte(255-i) {
			t.Fatalf("payload byte %d moved", i)
		}
	}
}

func TestTimestampSaturationValueSurvives(t *testing.T) {
	r := Record{Timestamp: 0xFFFF}
	var buf [RecordBytes]byte
	Encode(&r, &buf)
	if got := Decode(&buf); got.Timestamp != 0xFFFF {
		t.Fatalf("timestamp = 0x%04X", got.Timestamp)
	}
}
