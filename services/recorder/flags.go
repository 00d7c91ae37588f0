package recorder

import "sync/atomic"

// EventFlags is the handoff between interrupt handlers and the service
// loop. Each flag has a single writer (one handler) and a single consumer
// (the loop), which takes it with a compare-and-swap so a re-fire during
// processing is never lost.
type EventFlags struct {
	burstReady  atomic.Bool
	threshold   atomic.Bool
	doubleClick atomic.Bool
	longPress   atomic.Bool
}

// Handler-side setters.
func (f *EventFlags) SetBurstReady()  { f.burstReady.Store(true) }
func (f *EventFlags) SetThreshold()   { f.threshold.Store(true) }
func (f *EventFlags) SetDoubleClick() { f.doubleClick.Store(true) }
func (f *EventFlags) SetLongPress()   { f.longPress.Store(true) }

// Loop-side take operations: report whether the flag was set and clear it.
func (f *EventFlags) takeBurstReady() bool  { return f.burstReady.CompareAndSwap(true, false) }
func (f *EventFlags) takeThreshold() bool   { return f.threshold.CompareAndSwap(true, false) }
func (f *EventFlags) takeDoubleClick() bool { return f.doubleClick.CompareAndSwap(true, false) }
func (f *EventFlags) takeLongPress() bool   { return f.longPress.CompareAndSwap(true, false) }
