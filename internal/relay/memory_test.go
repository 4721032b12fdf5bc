package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector funnels handler callbacks into a slice the test can inspect,
// the same shape the controller uses in production.
type collector struct {
	mu       sync.Mutex
	payloads []string
	notify   chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 64)}
}

func (c *collector) handler(topic string, payload []byte) {
	c.mu.Lock()
	c.payloads = append(c.payloads, string(payload))
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.payloads)
		c.mu.Unlock()
		if got >= n {
			break
		}
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d payloads, have %d", n, got)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.payloads...)
}

func TestBroker_PublishReachesSubscribers(t *testing.T) {
	b := NewBroker()
	pub := b.Connect()
	sub := b.Connect()
	defer pub.Close()
	defer sub.Close()

	col := newCollector()
	_, err := sub.Subscribe("typing-game/abc12345/host", col.handler)
	require.NoError(t, err)

	require.NoError(t, pub.Publish("typing-game/abc12345/host", []byte("one")))
	require.NoError(t, pub.Publish("typing-game/abc12345/host", []byte("two")))

	got := col.waitFor(t, 2)
	assert.ElementsMatch(t, []string{"one", "two"}, got)
}

func TestBroker_TopicIsolation(t *testing.T) {
	b := NewBroker()
	pub := b.Connect()
	sub := b.Connect()
	defer pub.Close()
	defer sub.Close()

	col := newCollector()
	_, err := sub.Subscribe("typing-game/abc12345/guest", col.handler)
	require.NoError(t, err)

	require.NoError(t, pub.Publish("typing-game/abc12345/host", []byte("wrong topic")))
	require.NoError(t, pub.Publish("typing-game/abc12345/guest", []byte("right topic")))

	got := col.waitFor(t, 1)
	assert.Equal(t, []string{"right topic"}, got)
}

func TestBroker_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	pub := b.Connect()
	sub := b.Connect()
	defer pub.Close()
	defer sub.Close()

	col := newCollector()
	s, err := sub.Subscribe("typing-game/abc12345/control", col.handler)
	require.NoError(t, err)

	require.NoError(t, pub.Publish("typing-game/abc12345/control", []byte("before")))
	col.waitFor(t, 1)

	require.NoError(t, s.Unsubscribe())
	require.NoError(t, pub.Publish("typing-game/abc12345/control", []byte("after")))

	time.Sleep(50 * time.Millisecond)
	got := col.waitFor(t, 1)
	assert.Equal(t, []string{"before"}, got)
}

func TestBroker_PublishAfterCloseFails(t *testing.T) {
	b := NewBroker()
	conn := b.Connect()
	conn.Close()
	err := conn.Publish("typing-game/abc12345/host", []byte("late"))
	assert.ErrorIs(t, err, ErrPublish)
}
