package console

import (
	"context"

	"motionlog-go/bus"
	"motionlog-go/drivers/lis3dh"
	"motionlog-go/services/recorder"
)

// Telemetry frame markers.
const (
	FrameStart = 0xA0
	FrameEnd   = 0xC0
	FrameBytes = 5 // start, X, Y, Z, end
)

// Telemetry subscribes to the recorder's burst topic and writes one
// five-byte frame per FIFO level.
type Telemetry struct {
	port Port
}

func NewTelemetry(port Port) *Telemetry {
	return &Telemetry{port: port}
}

// WriteBurst streams one burst as lis3dh.Levels frames.
func (t *Telemetry) WriteBurst(tb *recorder.TelemetryBurst) error {
	var frame [FrameBytes]byte
	frame[0] = FrameStart
	frame[4] = FrameEnd
	for lvl := 0; lvl < lis3dh.Levels; lvl++ {
		frame[1] = tb[lvl*lis3dh.Axes]
		frame[2] = tb[lvl*lis3dh.Axes+1]
		frame[3] = tb[lvl*lis3dh.Axes+2]
		if _, err := t.port.Write(frame[:]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telemetry) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(recorder.TopicTelemetry)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sub.Channel():
			tb, ok := msg.Payload.(recorder.TelemetryBurst)
			if !ok {
				continue
			}
			if err := t.WriteBurst(&tb); err != nil {
				println("Error: telemetry:", err.Error())
			}
		}
	}
}

// Start launches the telemetry stream writer.
func (t *Telemetry) Start(ctx context.Context, conn *bus.Connection) error {
	go t.serviceLoop(ctx, conn)
	return nil
}
