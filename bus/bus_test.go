// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func expectPayload(t *testing.T, sub *Subscription, want any) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if got.Payload != want {
			t.Errorf("expected payload %v, got %v", want, got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message %v", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %v", got.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("recorder", "mode"))

	conn.Publish(conn.NewMessage(T("recorder", "mode"), "start", false))
	expectPayload(t, sub, "start")
}

func TestExactTopicsOnly(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("telemetry", "burst"))
	conn.Publish(conn.NewMessage(T("telemetry"), "wrong", false))
	conn.Publish(conn.NewMessage(T("telemetry", "burst", "extra"), "wrong", false))
	expectNoMessage(t, sub)

	conn.Publish(conn.NewMessage(T("telemetry", "burst"), "right", false))
	expectPayload(t, sub, "right")
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("recorder", "mode"), "stop", true))

	// Late subscriber still sees the current value.
	sub := conn.Subscribe(T("recorder", "mode"))
	expectPayload(t, sub, "stop")
}

func TestRetainedCleared(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("recorder", "mode"), "start", true))
	conn.Publish(conn.NewMessage(T("recorder", "mode"), nil, true))

	sub := conn.Subscribe(T("recorder", "mode"))
	expectNoMessage(t, sub)
}

func TestDropOldestOnFullQueue(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("telemetry", "burst"))
	for i := 0; i < 5; i++ {
		conn.Publish(conn.NewMessage(T("telemetry", "burst"), i, false))
	}

	// Queue depth 2: the two newest survive.
	expectPayload(t, sub, 3)
	expectPayload(t, sub, 4)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("recorder", "verbose"))
	sub.Unsubscribe()

	// Channel is closed; publish must not panic.
	conn.Publish(conn.NewMessage(T("recorder", "verbose"), true, false))
	if _, open := <-sub.Channel(); open {
		t.Fatal("expected closed channel after Unsubscribe")
	}
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	s1 := conn.Subscribe(T("a"))
	s2 := conn.Subscribe(T("b"))
	conn.Disconnect()

	if _, open := <-s1.Channel(); open {
		t.Fatal("s1 still open after Disconnect")
	}
	if _, open := <-s2.Channel(); open {
		t.Fatal("s2 still open after Disconnect")
	}
}
