package relay

import "sync"

// Broker is an in-process relay, keyed by topic. It backs the relayd hub
// and lets tests run both ends of a session in one process with the same
// best-effort semantics as the network transports.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySub]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*memorySub]struct{})}
}

// Connect returns a Conn backed by this broker. Every Conn sees every
// publish on a subscribed topic, including its own.
func (b *Broker) Connect() Conn {
	return &memoryConn{broker: b}
}

func (b *Broker) publish(topic string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[topic] {
		select {
		case s.ch <- payload:
		default:
			// Slow subscriber; best effort means we drop.
		}
	}
}

func (b *Broker) subscribe(s *memorySub) {
	b.mu.Lock()
	if b.subs[s.topic] == nil {
		b.subs[s.topic] = make(map[*memorySub]struct{})
	}
	b.subs[s.topic][s] = struct{}{}
	b.mu.Unlock()
}

func (b *Broker) unsubscribe(s *memorySub) {
	b.mu.Lock()
	if set, ok := b.subs[s.topic]; ok {
		if _, live := set[s]; live {
			delete(set, s)
			close(s.ch)
			if len(set) == 0 {
				delete(b.subs, s.topic)
			}
		}
	}
	b.mu.Unlock()
}

type memoryConn struct {
	broker *Broker
	mu     sync.Mutex
	subs   []*memorySub
	closed bool
}

type memorySub struct {
	broker *Broker
	topic  string
	ch     chan []byte
}

func (c *memoryConn) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrPublish
	}
	// Copy so the caller may reuse its buffer.
	dup := make([]byte, len(payload))
	copy(dup, payload)
	c.broker.publish(topic, dup)
	return nil
}

func (c *memoryConn) Subscribe(topic string, fn Handler) (Subscription, error) {
	s := &memorySub{broker: c.broker, topic: topic, ch: make(chan []byte, 16)}
	c.broker.subscribe(s)
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	go func() {
		for payload := range s.ch {
			fn(topic, payload)
		}
	}()
	return s, nil
}

func (c *memoryConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.broker.unsubscribe(s)
	}
}

func (s *memorySub) Unsubscribe() error {
	s.broker.unsubscribe(s)
	return nil
}
