// Package relay abstracts the public message relay the two players meet
// on. Delivery is best effort: no ordering guarantee, no acknowledgments,
// no transactions. The race core never blocks on a network round-trip.
package relay

import "errors"

var (
	// ErrConnect means the relay is unreachable. Fatal; the session aborts.
	ErrConnect = errors.New("relay connect failed")
	// ErrPublish is transient; the caller skips this tick and retries the next.
	ErrPublish = errors.New("relay publish failed")
)

// Handler receives inbound payloads. It is invoked from the transport's
// delivery goroutine and must not block; funnel into a buffered channel.
type Handler func(topic string, payload []byte)

// Subscription is an active topic subscription.
type Subscription interface {
	Unsubscribe() error
}

// Conn is a live connection to a relay.
type Conn interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, fn Handler) (Subscription, error)
	Close()
}
