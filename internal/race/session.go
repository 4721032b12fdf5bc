package race

import (
	"errors"
	"time"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/metrics"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/protocol"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAwaitingPeer Phase = "awaiting_peer"
	PhaseRacing       Phase = "racing"
	PhaseFinished     Phase = "finished"
	PhaseCancelled    Phase = "cancelled"
	PhaseTimedOut     Phase = "handshake_timeout"
)

var (
	// ErrHandshakeTimeout means no peer presence arrived within the wait window.
	ErrHandshakeTimeout = errors.New("handshake timeout: opponent not found")
	// ErrPassageMismatch means the two sides disagree on the passage after handshake.
	ErrPassageMismatch = errors.New("passage mismatch between players")
	// ErrCancelled means the user aborted the session.
	ErrCancelled = errors.New("race cancelled")
)

// PlayerState is one player's progress. The local copy is mutated by the
// controller on keystrokes and ticks; the remote copy only ever changes
// through ApplyRemoteSnapshot.
type PlayerState struct {
	Role         protocol.Role
	Name         string
	Typed        string // local side only; remote mirrors length
	TypedLength  int
	StartTime    time.Time
	LastUpdate   time.Time
	ElapsedMs    int64
	WPM          float64
	Accuracy     float64
	Progress     float64
	Finished     bool
	FinishTime   time.Time
	FinishedAtMs int64
}

// Session is the shared state of one two-player race. It is mutated only
// from the controller's single event loop.
type Session struct {
	Code       string
	Passage    string // set once at handshake, immutable after
	PassageSum string
	Local      PlayerState
	Remote     PlayerState
	Phase      Phase
	Winner     protocol.Role // empty until decided
}

// NewSession creates a session for the given role. The host passes its
// chosen passage; the guest passes "" and adopts the host's at handshake.
func NewSession(code string, role protocol.Role, name, passage string) *Session {
	s := &Session{
		Code:    code,
		Passage: passage,
		Local: PlayerState{
			Role:     role,
			Name:     name,
			Accuracy: 100,
		},
		Remote: PlayerState{
			Role:     role.Opponent(),
			Accuracy: 100,
		},
		Phase: PhaseIdle,
	}
	if passage != "" {
		s.PassageSum = protocol.PassageSum(passage)
	}
	return s
}

// SetPassage fixes the passage text at handshake.
func (s *Session) SetPassage(passage string) {
	s.Passage = passage
	s.PassageSum = protocol.PassageSum(passage)
}

// ApplyRemoteSnapshot merges an inbound snapshot into the remote mirror.
// The merge is idempotent and order-tolerant: anything with an elapsedMs
// below what we already hold is a stale duplicate and is dropped, and the
// finished flag is sticky once set. A checksum disagreement is fatal to
// the session.
func (s *Session) ApplyRemoteSnapshot(msg protocol.Snapshot, now time.Time) error {
	if msg.SenderRole != s.Remote.Role {
		return nil
	}
	if s.PassageSum != "" && msg.PassageSum != "" && msg.PassageSum != s.PassageSum {
		return ErrPassageMismatch
	}
	if msg.ElapsedMs < s.Remote.ElapsedMs {
		return nil // out-of-order delivery, keep the newer state
	}

	r := &s.Remote
	r.ElapsedMs = msg.ElapsedMs
	r.TypedLength = msg.TypedLength
	r.WPM = msg.WPM
	r.Accuracy = msg.Accuracy
	if msg.Progress > 0 {
		r.Progress = msg.Progress
	} else if plen := len([]rune(s.Passage)); plen > 0 {
		r.Progress = float64(msg.TypedLength) / float64(plen)
	}
	if r.Name == "" && msg.Name != "" {
		r.Name = msg.Name
	}
	if msg.Finished && !r.Finished {
		r.Finished = true
		r.FinishedAtMs = msg.FinishedAtMs
		if r.FinishedAtMs == 0 {
			r.FinishedAtMs = msg.ElapsedMs
		}
	}
	r.LastUpdate = now
	return nil
}

// MarkRemoteFinished records the opponent's completion event. Sticky: a
// repeat or late event changes nothing.
func (s *Session) MarkRemoteFinished(finishedAtMs int64, now time.Time) {
	if s.Remote.Finished {
		return
	}
	s.Remote.Finished = true
	s.Remote.FinishedAtMs = finishedAtMs
	s.Remote.Progress = 1
	s.Remote.LastUpdate = now
}

// RefreshLocal recomputes the local metrics from the typed prefix. Called
// on every keystroke and every render tick.
func (s *Session) RefreshLocal(now time.Time) {
	l := &s.Local
	l.TypedLength = len([]rune(l.Typed))
	var elapsed time.Duration
	if !l.StartTime.IsZero() {
		elapsed = now.Sub(l.StartTime)
	}
	rep := metrics.Compute(l.Typed, s.Passage, elapsed)
	l.ElapsedMs = elapsed.Milliseconds()
	l.WPM = rep.WPM
	l.Accuracy = rep.Accuracy
	l.Progress = rep.Progress
	l.Finished = rep.Finished && s.Passage != ""
	l.LastUpdate = now
}

// Snapshot projects the local state onto the wire schema.
func (s *Session) Snapshot() protocol.Snapshot {
	return protocol.Snapshot{
		SenderRole:   s.Local.Role,
		ElapsedMs:    s.Local.ElapsedMs,
		TypedLength:  s.Local.TypedLength,
		WPM:          s.Local.WPM,
		Accuracy:     s.Local.Accuracy,
		Progress:     s.Local.Progress,
		Finished:     s.Local.Finished,
		FinishedAtMs: s.Local.FinishedAtMs,
		Name:         s.Local.Name,
		PassageSum:   s.PassageSum,
	}
}

// View is the read-only projection handed to the renderer each tick.
type View struct {
	Phase   Phase
	Code    string
	Passage string
	Local   PlayerState
	Remote  PlayerState
	Winner  protocol.Role
}

func (s *Session) View() View {
	return View{
		Phase:   s.Phase,
		Code:    s.Code,
		Passage: s.Passage,
		Local:   s.Local,
		Remote:  s.Remote,
		Winner:  s.Winner,
	}
}
