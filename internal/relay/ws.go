package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// Frame is the wire unit exchanged with a relayd. Clients send
// "sub"/"unsub"/"pub"; the daemon fans out "msg" frames to subscribers.
// The relayd server speaks the same schema.
type Frame struct {
	Op      string `json:"op"`
	Topic   string `json:"topic"`
	Payload []byte `json:"payload,omitempty"`
}

const (
	OpSub     = "sub"
	OpUnsub   = "unsub"
	OpPublish = "pub"
	OpMessage = "msg"
)

const (
	wsDialTimeout  = 10 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsMaxRetries   = 4
)

type wsConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]Handler
	closed   bool
}

type wsSub struct {
	conn  *wsConn
	topic string
}

// DialWS connects to a self-hosted relayd over WebSocket, retrying with
// exponential backoff before giving up. Bounded retry lives here, in the
// transport, never in the race loop.
func DialWS(ctx context.Context, url string) (Conn, error) {
	var ws *websocket.Conn

	backoff := retry.WithMaxRetries(wsMaxRetries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, wsDialTimeout)
		defer cancel()
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("relayd dial failed, retrying")
			return retry.RetryableError(err)
		}
		ws = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dial relayd %s: %v", ErrConnect, url, err)
	}

	c := &wsConn{ws: ws, handlers: make(map[string]Handler)}
	go c.readLoop()
	log.Info().Str("url", url).Msg("connected to relayd")
	return c, nil
}

func (c *wsConn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Error().Err(err).Msg("relayd connection lost")
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Op != OpMessage {
			continue
		}
		c.mu.Lock()
		fn := c.handlers[f.Topic]
		c.mu.Unlock()
		if fn != nil {
			fn(f.Topic, f.Payload)
		}
	}
}

func (c *wsConn) send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Publish(topic string, payload []byte) error {
	if err := c.send(Frame{Op: OpPublish, Topic: topic, Payload: payload}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, topic, err)
	}
	return nil
}

func (c *wsConn) Subscribe(topic string, fn Handler) (Subscription, error) {
	c.mu.Lock()
	c.handlers[topic] = fn
	c.mu.Unlock()
	if err := c.send(Frame{Op: OpSub, Topic: topic}); err != nil {
		c.mu.Lock()
		delete(c.handlers, topic)
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return &wsSub{conn: c, topic: topic}, nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.ws.Close()
}

func (s *wsSub) Unsubscribe() error {
	s.conn.mu.Lock()
	delete(s.conn.handlers, s.topic)
	s.conn.mu.Unlock()
	return s.conn.send(Frame{Op: OpUnsub, Topic: s.topic})
}
