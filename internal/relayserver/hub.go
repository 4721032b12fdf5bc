// Package relayserver is a minimal self-hostable relay daemon speaking
// the same publish/subscribe contract as a public NATS server, over
// WebSocket. It understands nothing about the game: topics are opaque
// strings and payloads opaque bytes.
package relayserver

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/relay"
)

// Client is one connected relay user. The send channel is drained by the
// connection's write pump; a full channel means a slow consumer and the
// frame is dropped, matching the relay's best-effort contract.
type Client struct {
	id   string
	send chan []byte
}

func newClient(id string) *Client {
	return &Client{id: id, send: make(chan []byte, 64)}
}

// Hub fans published frames out to topic subscribers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	if h.byConn[c] == nil {
		h.byConn[c] = make(map[string]struct{})
	}
	h.byConn[c][topic] = struct{}{}
	log.Debug().Str("client", c.id).Str("topic", topic).Msg("subscribed")
}

func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, topic)
}

// Drop removes a disconnected client from every topic.
func (h *Hub) Drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.byConn[c] {
		h.removeLocked(c, topic)
	}
	delete(h.byConn, c)
}

func (h *Hub) removeLocked(c *Client, topic string) {
	if set, ok := h.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	if set, ok := h.byConn[c]; ok {
		delete(set, topic)
	}
}

// Publish delivers a payload to every subscriber of the topic, the
// publisher included if it subscribed, mirroring NATS echo semantics.
func (h *Hub) Publish(topic string, payload []byte) {
	frame, err := json.Marshal(relay.Frame{Op: relay.OpMessage, Topic: topic, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		select {
		case c.send <- frame:
		default:
			log.Warn().Str("client", c.id).Str("topic", topic).Msg("slow subscriber, dropping frame")
		}
	}
}

// SubscriberCount reports how many clients listen on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
