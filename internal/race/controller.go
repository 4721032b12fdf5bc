package race

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/protocol"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/relay"
)

// KeyKind classifies a keystroke event from the input collaborator.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyBackspace
	KeyCancel
)

// Key is one keystroke delivered to the race loop.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Message is an inbound relay payload queued for the race loop.
type Message struct {
	Topic   string
	Payload []byte
}

// Config holds the controller's timing knobs.
type Config struct {
	PublishInterval time.Duration // snapshot cadence while racing
	HandshakeWait   time.Duration // how long to wait for the peer
	PresenceResend  time.Duration // guest presence re-announce interval
}

func DefaultConfig() Config {
	return Config{
		PublishInterval: 200 * time.Millisecond,
		HandshakeWait:   60 * time.Second,
		PresenceResend:  2 * time.Second,
	}
}

// Controller owns a RaceSession and drives it from a single event loop
// multiplexing keystrokes, the publish ticker and inbound relay traffic.
// Relay callbacks only ever touch the inbound queue; all session state is
// mutated from the consuming loop, so no locking is needed.
type Controller struct {
	conn    relay.Conn
	clock   clockwork.Clock
	cfg     Config
	render  func(View)
	session *Session
	inbound chan Message
	subs    []relay.Subscription
}

// NewController wires a controller onto an open relay connection. The
// render callback receives a read-only view each loop iteration; pass nil
// to run headless (tests).
func NewController(conn relay.Conn, clock clockwork.Clock, cfg Config, render func(View)) *Controller {
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = DefaultConfig().PublishInterval
	}
	if cfg.HandshakeWait <= 0 {
		cfg.HandshakeWait = DefaultConfig().HandshakeWait
	}
	if cfg.PresenceResend <= 0 {
		cfg.PresenceResend = DefaultConfig().PresenceResend
	}
	return &Controller{
		conn:    conn,
		clock:   clock,
		cfg:     cfg,
		render:  render,
		inbound: make(chan Message, 64),
	}
}

// Session exposes the current session; nil before Host or Join.
func (c *Controller) Session() *Session { return c.session }

// Host creates a fresh session around a new game code and subscribes to
// the guest and control topics. It publishes nothing until the guest
// announces itself in AwaitPeer. Returns the code to share out-of-band.
func (c *Controller) Host(name, passage string) (string, error) {
	code := protocol.NewGameCode()
	c.session = NewSession(code, protocol.RoleHost, name, passage)

	if err := c.subscribeSession(); err != nil {
		return "", err
	}
	c.session.Phase = PhaseAwaitingPeer
	log.Info().Str("code", code).Msg("hosting race, waiting for guest")
	return code, nil
}

// Join attaches to an existing game code as the guest and announces
// presence on the control topic. The passage stays empty until the host's
// acknowledgment arrives; the guest's clock cannot start before that.
func (c *Controller) Join(code, name string) error {
	c.session = NewSession(code, protocol.RoleGuest, name, "")

	if err := c.subscribeSession(); err != nil {
		return err
	}
	c.session.Phase = PhaseAwaitingPeer
	if err := c.publishPresence(); err != nil {
		log.Warn().Err(err).Msg("join presence publish failed, will resend")
	}
	log.Info().Str("code", code).Msg("joined race, waiting for host")
	return nil
}

func (c *Controller) subscribeSession() error {
	s := c.session
	topics := []string{
		protocol.SnapshotTopic(s.Code, s.Remote.Role),
		protocol.ControlTopic(s.Code),
	}
	for _, topic := range topics {
		sub, err := c.conn.Subscribe(topic, c.enqueue)
		if err != nil {
			c.Release()
			return fmt.Errorf("subscribe session topics: %w", err)
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

// enqueue runs on the transport's delivery goroutine. Bounded queue,
// drop-on-full: the relay is best effort anyway and the next snapshot
// supersedes a lost one.
func (c *Controller) enqueue(topic string, payload []byte) {
	select {
	case c.inbound <- Message{Topic: topic, Payload: payload}:
	default:
		log.Warn().Str("topic", topic).Msg("inbound queue full, dropping message")
	}
}

// AwaitPeer blocks until the handshake completes, the wait window
// expires, or ctx is cancelled. On success the session is in PhaseRacing
// with the passage agreed on both sides.
func (c *Controller) AwaitPeer(ctx context.Context) error {
	s := c.session
	deadline := c.clock.NewTimer(c.cfg.HandshakeWait)
	defer deadline.Stop()
	resend := c.clock.NewTicker(c.cfg.PresenceResend)
	defer resend.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Phase = PhaseCancelled
			c.Release()
			return ErrCancelled
		case <-deadline.Chan():
			s.Phase = PhaseTimedOut
			c.Release()
			return ErrHandshakeTimeout
		case <-resend.Chan():
			// Presence messages are fire-and-forget on a lossy relay; the
			// guest keeps knocking until the host answers.
			if s.Local.Role == protocol.RoleGuest {
				if err := c.publishPresence(); err != nil {
					log.Warn().Err(err).Msg("presence resend failed")
				}
			}
		case m := <-c.inbound:
			done, err := c.handleHandshakeMessage(m)
			if err != nil {
				s.Phase = PhaseCancelled
				c.Release()
				return err
			}
			if done {
				s.Phase = PhaseRacing
				log.Info().
					Str("opponent", s.Remote.Name).
					Str("role", string(s.Local.Role)).
					Msg("handshake complete, racing")
				return nil
			}
		}
	}
}

// handleHandshakeMessage processes one inbound message while awaiting the
// peer. Returns done=true once the handshake requirements are met.
func (c *Controller) handleHandshakeMessage(m Message) (bool, error) {
	s := c.session
	if m.Topic != protocol.ControlTopic(s.Code) {
		return false, nil // snapshots are meaningless before racing
	}
	ctl, err := protocol.DecodeControl(m.Payload)
	if err != nil {
		log.Debug().Err(err).Msg("discarding malformed control message")
		return false, nil
	}
	if ctl.SenderRole == s.Local.Role {
		return false, nil // our own message echoed back by the relay
	}

	switch ctl.Type {
	case protocol.ControlPresence:
		if s.Remote.Name == "" && ctl.Name != "" {
			s.Remote.Name = ctl.Name
		}
		if s.Local.Role == protocol.RoleHost {
			// Guest is here: answer with the authoritative passage.
			if err := c.publishPresence(); err != nil {
				return false, fmt.Errorf("send host acknowledgment: %w", err)
			}
			return true, nil
		}
		// Guest side: the host acknowledgment carries the passage.
		if ctl.Passage == "" {
			return false, nil
		}
		if ctl.PassageSum != "" && ctl.PassageSum != protocol.PassageSum(ctl.Passage) {
			return false, ErrPassageMismatch
		}
		s.SetPassage(ctl.Passage)
		return true, nil
	default:
		return false, nil
	}
}

func (c *Controller) publishPresence() error {
	s := c.session
	ctl := protocol.Control{
		Type:       protocol.ControlPresence,
		SenderRole: s.Local.Role,
		Name:       s.Local.Name,
		SentAtMs:   c.clock.Now().UnixMilli(),
	}
	if s.Local.Role == protocol.RoleHost {
		ctl.Passage = s.Passage
		ctl.PassageSum = s.PassageSum
	}
	data, err := ctl.Encode()
	if err != nil {
		return err
	}
	return c.conn.Publish(protocol.ControlTopic(s.Code), data)
}

// Run drives the racing loop until a terminal phase. Returns nil when the
// race finished (win or lose), ErrCancelled on user abort or ctx
// cancellation, ErrPassageMismatch when the sides disagree on the text.
func (c *Controller) Run(ctx context.Context, keys <-chan Key) error {
	s := c.session
	if s == nil || s.Phase != PhaseRacing {
		return fmt.Errorf("controller not in racing phase")
	}

	ticker := c.clock.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()
	defer c.Release()

	c.draw()
	for {
		select {
		case <-ctx.Done():
			s.Phase = PhaseCancelled
			return ErrCancelled

		case k, ok := <-keys:
			if !ok {
				s.Phase = PhaseCancelled
				return ErrCancelled
			}
			if done := c.handleKey(k); done {
				c.draw()
				return nil
			}
			if s.Phase == PhaseCancelled {
				return ErrCancelled
			}

		case m := <-c.inbound:
			if err := c.handleInbound(m); err != nil {
				s.Phase = PhaseCancelled
				return err
			}
			if s.Phase == PhaseFinished {
				c.draw()
				return nil
			}

		case <-ticker.Chan():
			s.RefreshLocal(c.clock.Now())
			c.publishSnapshot()
		}
		c.draw()
	}
}

// handleKey applies one keystroke. Returns true when the keystroke
// completed the race.
func (c *Controller) handleKey(k Key) bool {
	s := c.session
	switch k.Kind {
	case KeyCancel:
		s.Phase = PhaseCancelled
		return false
	case KeyBackspace:
		if r := []rune(s.Local.Typed); len(r) > 0 {
			s.Local.Typed = string(r[:len(r)-1])
		}
	case KeyRune:
		if s.Local.StartTime.IsZero() {
			s.Local.StartTime = c.clock.Now()
		}
		s.Local.Typed += string(k.Rune)
	}
	s.RefreshLocal(c.clock.Now())
	if s.Local.Finished {
		c.finishLocal()
		return true
	}
	return false
}

// handleInbound routes one relay message while racing.
func (c *Controller) handleInbound(m Message) error {
	s := c.session
	switch m.Topic {
	case protocol.ControlTopic(s.Code):
		ctl, err := protocol.DecodeControl(m.Payload)
		if err != nil {
			log.Debug().Err(err).Msg("discarding malformed control message")
			return nil
		}
		if ctl.SenderRole == s.Local.Role {
			return nil
		}
		if ctl.Type == protocol.ControlComplete {
			c.remoteComplete(ctl)
		}
		return nil

	case protocol.SnapshotTopic(s.Code, s.Remote.Role):
		snap, err := protocol.DecodeSnapshot(m.Payload)
		if err != nil {
			log.Debug().Err(err).Msg("discarding malformed snapshot")
			return nil
		}
		wasFinished := s.Remote.Finished
		if err := s.ApplyRemoteSnapshot(snap, c.clock.Now()); err != nil {
			return err
		}
		// A completion riding on a snapshot counts the same as the control
		// message, in case the latter was lost.
		if s.Remote.Finished && !wasFinished {
			c.declareRemoteWinner()
		}
		return nil
	}
	return nil
}

// remoteComplete handles the opponent's COMPLETE event. Arrival order at
// this observer is authoritative: if we have not finished yet, they won.
func (c *Controller) remoteComplete(ctl protocol.Control) {
	s := c.session
	s.MarkRemoteFinished(ctl.FinishedAtMs, c.clock.Now())
	c.declareRemoteWinner()
}

func (c *Controller) declareRemoteWinner() {
	s := c.session
	if s.Winner != "" {
		return // already decided, late events change nothing
	}
	if s.Local.Finished {
		return // we finished first on our own timeline
	}
	s.Winner = s.Remote.Role
	s.Phase = PhaseFinished
	log.Info().Str("winner", string(s.Winner)).Msg("opponent finished first")
}

// finishLocal runs the moment local completion is detected. The COMPLETE
// control message goes out synchronously, before any further UI update,
// so the opponent learns the result off the snapshot cadence.
func (c *Controller) finishLocal() {
	s := c.session
	now := c.clock.Now()
	s.Local.Finished = true
	s.Local.FinishTime = now
	s.Local.FinishedAtMs = s.Local.ElapsedMs
	if s.Winner == "" {
		s.Winner = s.Local.Role
	}
	s.Phase = PhaseFinished

	ctl := protocol.Control{
		Type:         protocol.ControlComplete,
		SenderRole:   s.Local.Role,
		Name:         s.Local.Name,
		FinishedAtMs: s.Local.FinishedAtMs,
		SentAtMs:     now.UnixMilli(),
	}
	if data, err := ctl.Encode(); err == nil {
		if err := c.conn.Publish(protocol.ControlTopic(s.Code), data); err != nil {
			log.Warn().Err(err).Msg("completion publish failed")
		}
	}
	// One final snapshot reflecting the terminal state.
	c.publishSnapshot()
	log.Info().
		Float64("wpm", s.Local.WPM).
		Float64("accuracy", s.Local.Accuracy).
		Msg("local player finished")
}

// publishSnapshot is fire-and-forget: a failed publish is logged and the
// next tick tries again.
func (c *Controller) publishSnapshot() {
	s := c.session
	data, err := s.Snapshot().Encode()
	if err != nil {
		return
	}
	topic := protocol.SnapshotTopic(s.Code, s.Local.Role)
	if err := c.conn.Publish(topic, data); err != nil {
		log.Warn().Err(err).Msg("snapshot publish failed, skipping tick")
	}
}

func (c *Controller) draw() {
	if c.render != nil {
		c.render(c.session.View())
	}
}

// Release drops the session's subscriptions. Idempotent; called on every
// terminal transition without waiting for in-flight acknowledgments.
func (c *Controller) Release() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Debug().Err(err).Msg("unsubscribe failed during release")
		}
	}
	c.subs = nil
}
