// Package history holds the sliding window of recent motion data: each
// completed FIFO burst is decimated and pushed onto a fixed-depth,
// newest-first arena. When an over-threshold event fires, the flattened
// window is sliced into fixed-width log pages.
package history

import (
	"motionlog-go/drivers/lis3dh"
)

// Window and page geometry.
const (
	DownSample    = 2                                   // keep every other level
	ReducedLevels = lis3dh.Levels / DownSample          // 16
	ReducedBytes  = ReducedLevels * lis3dh.Axes         // 48 per burst
	Depth         = 6                                   // bursts retained
	FlatBytes     = Depth * ReducedBytes                // 288
	PageBytes     = 60                                  // log page payload
	Pages         = (FlatBytes + PageBytes - 1) / PageBytes // 5
)

// ReducedBurst is one decimated burst: 16 levels of X/Y/Z high bytes.
type ReducedBurst [ReducedBytes]byte

// Reduce decimates a raw burst: only the high-order byte of each axis
// register pair is kept (the part runs in low-power 8-bit mode), then every
// DownSample-th level. Pure decimation, no averaging.
func Reduce(raw *lis3dh.RawBurst) ReducedBurst {
	var high [lis3dh.Levels * lis3dh.Axes]byte
	HighBytes(raw, &high)

	var out ReducedBurst
	for lvl := 0; lvl < ReducedLevels; lvl++ {
		src := lvl * DownSample * lis3dh.Axes
		dst := lvl * lis3dh.Axes
		out[dst] = high[src]
		out[dst+1] = high[src+1]
		out[dst+2] = high[src+2]
	}
	return out
}

// HighBytes extracts the high register byte of every axis reading, in level
// order. Shared by Reduce and the verbose telemetry path, which streams the
// undecimated levels.
func HighBytes(raw *lis3dh.RawBurst, dst *[lis3dh.Levels * lis3dh.Axes]byte) {
	for i := range dst {
		dst[i] = raw[i*2+1]
	}
}

// Buffer is the history arena: index 0 is always the newest burst.
// Push shifts existing entries down and truncates at Depth; entries are
// physically reordered so the newest-first invariant is explicit, not an
// artifact of index arithmetic.
type Buffer struct {
	bursts [Depth]ReducedBurst
	n      int
}

// Len returns the number of bursts currently held (<= Depth).
func (b *Buffer) Len() int { return b.n }

// At returns the i-th burst, newest first. i must be < Len().
func (b *Buffer) At(i int) ReducedBurst { return b.bursts[i] }

// Push prepends r, evicting the oldest burst once the arena is full.
func (b *Buffer) Push(r ReducedBurst) {
	last := b.n
	if last >= Depth {
		last = Depth - 1
	}
	for i := last; i > 0; i-- {
		b.bursts[i] = b.bursts[i-1]
	}
	b.bursts[0] = r
	if b.n < Depth {
		b.n++
	}
}

// Reset empties the arena.
func (b *Buffer) Reset() {
	b.n = 0
	for i := range b.bursts {
		b.bursts[i] = ReducedBurst{}
	}
}

// Slice returns the payload for one log page. The flattened window is laid
// out newest burst first; page 0 carries its final PageBytes (the oldest
// data) and the last page carries the leading remainder padded with zeros
// to the fixed width. Unfilled arena slots read as zero bytes.
func (b *Buffer) Slice(page int) [PageBytes]byte {
	var flat [FlatBytes]byte
	for i := 0; i < Depth; i++ {
		copy(flat[i*ReducedBytes:], b.bursts[i][:])
	}

	var out [PageBytes]byte
	end := FlatBytes - page*PageBytes
	if end <= 0 {
		return out
	}
	start := end - PageBytes
	if start < 0 {
		start = 0
	}
	copy(out[:], flat[start:end])
	return out
}
