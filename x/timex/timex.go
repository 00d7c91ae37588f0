package timex

import "time"

// BootClock reports whole seconds elapsed since it was created.
// The log record timestamp field is 16 bits; Seconds saturates at 0xFFFF
// (about 18 hours) instead of wrapping.
type BootClock struct {
	start time.Time
}

func NewBootClock() *BootClock { return &BootClock{start: time.Now()} }

func (c *BootClock) Seconds() uint16 {
	s := int64(time.Since(c.start) / time.Second)
	if s > 0xFFFF {
		return 0xFFFF
	}
	return uint16(s)
}
