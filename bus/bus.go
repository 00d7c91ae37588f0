// bus.go
package bus

import (
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of path elements, e.g. Topic{"recorder", "mode"}.
type Topic []string

// key flattens a topic for map lookup. Elements never contain '/'.
func (t Topic) key() string {
	switch len(t) {
	case 0:
		return ""
	case 1:
		return t[0]
	}
	n := len(t) - 1
	for _, e := range t {
		n += len(e)
	}
	b := make([]byte, 0, n)
	for i, e := range t {
		if i > 0 {
			b = append(b, '/')
		}
		b = append(b, e...)
	}
	return string(b)
}

// T is a convenience constructor.
func T(elems ...string) Topic { return Topic(elems) }

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

// Bus is a small in-process pub/sub hub with retained messages. Topics are
// exact paths; there is no pattern matching, the topic set of this firmware
// is fixed and known at compile time.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]*Subscription
	retained map[string]*Message
	qLen     int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		subs:     make(map[string][]*Subscription),
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

// NewMessage builds a message bound to no particular connection.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to all subscribers of its exact topic.
func (b *Bus) Publish(msg *Message) {
	k := msg.Topic.key()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[k] {
		select {
		case sub.ch <- msg:
		default:
			// drop oldest if queue full
			<-sub.ch
			sub.ch <- msg
		}
	}

	// Store or clear retained message.
	if msg.Retained {
		if msg.Payload == nil {
			delete(b.retained, k)
		} else {
			b.retained[k] = msg
		}
	}
}

func (b *Bus) addSubscription(sub *Subscription) {
	k := sub.topic.key()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[k] = append(b.subs[k], sub)

	// Deliver retained message if present.
	if m := b.retained[k]; m != nil {
		select {
		case sub.ch <- m:
		default:
		}
	}
}

func (b *Bus) removeSubscription(sub *Subscription) {
	k := sub.topic.key()

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[k]
	for i, s := range list {
		if s == sub {
			b.subs[k] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[k]) == 0 {
		delete(b.subs, k)
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string // placeholder for future identity/auth
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

// NewMessage builds a message for publication on this connection's bus.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.removeSubscription(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.removeSubscription(sub)
		close(sub.ch)
	}
}
