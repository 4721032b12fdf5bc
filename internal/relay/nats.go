package relay

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultNATSURL is a public demo broker reachable from most networks,
// the same role HiveMQ's public broker played for the MQTT ancestors of
// this protocol.
const DefaultNATSURL = "nats://demo.nats.io:4222"

const (
	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
)

type natsConn struct {
	nc *nats.Conn
}

type natsSub struct {
	sub *nats.Subscription
}

// DialNATS connects to a NATS server. Core NATS (no JetStream) matches
// the contract exactly: best-effort, unordered fan-out per subject.
func DialNATS(url string) (Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to NATS %s: %v", ErrConnect, url, err)
	}

	log.Info().Str("url", url).Msg("connected to NATS relay")
	return &natsConn{nc: nc}, nil
}

func (c *natsConn) Publish(topic string, payload []byte) error {
	if err := c.nc.Publish(topic, payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, topic, err)
	}
	return nil
}

func (c *natsConn) Subscribe(topic string, fn Handler) (Subscription, error) {
	sub, err := c.nc.Subscribe(topic, func(m *nats.Msg) {
		fn(m.Subject, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return &natsSub{sub: sub}, nil
}

func (c *natsConn) Close() {
	c.nc.Close()
}

func (s *natsSub) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
