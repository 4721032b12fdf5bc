package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
)

// Control message types.
const (
	ControlPresence = "PRESENCE"
	ControlComplete = "COMPLETE"
)

// ErrMalformed marks an inbound payload that fails schema validation.
// Callers discard these; they are never propagated as a crash.
var ErrMalformed = errors.New("malformed message")

// Snapshot is the wire-level progress report published on a player's
// role topic every publish tick. Unknown fields are ignored on decode
// for forward compatibility.
type Snapshot struct {
	SenderRole   Role    `json:"senderRole"`
	ElapsedMs    int64   `json:"elapsedMs"`
	TypedLength  int     `json:"typedLength"`
	WPM          float64 `json:"wpm"`
	Accuracy     float64 `json:"accuracy"`
	Finished     bool    `json:"finished"`
	Progress     float64 `json:"progress,omitempty"`
	Name         string  `json:"name,omitempty"`
	PassageSum   string  `json:"passageSum,omitempty"`
	FinishedAtMs int64   `json:"finishedAtMs,omitempty"`
}

// Control is the envelope for handshake and completion events on the
// control topic.
type Control struct {
	Type         string `json:"type"`
	SenderRole   Role   `json:"senderRole"`
	Name         string `json:"name,omitempty"`
	Passage      string `json:"passage,omitempty"`
	PassageSum   string `json:"passageSum,omitempty"`
	FinishedAtMs int64  `json:"finishedAtMs,omitempty"`
	SentAtMs     int64  `json:"sentAtMs"`
}

func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func (c Control) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeSnapshot parses and validates a snapshot payload.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !s.SenderRole.Valid() {
		return Snapshot{}, fmt.Errorf("%w: bad senderRole %q", ErrMalformed, s.SenderRole)
	}
	if s.ElapsedMs < 0 || s.TypedLength < 0 {
		return Snapshot{}, fmt.Errorf("%w: negative counters", ErrMalformed)
	}
	return s, nil
}

// DecodeControl parses and validates a control payload. Unknown control
// types decode fine; the caller ignores types it does not understand.
func DecodeControl(data []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(data, &c); err != nil {
		return Control{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.Type == "" {
		return Control{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if !c.SenderRole.Valid() {
		return Control{}, fmt.Errorf("%w: bad senderRole %q", ErrMalformed, c.SenderRole)
	}
	return c, nil
}

// PassageSum fingerprints the passage so both sides can detect a
// handshake disagreement without shipping the full text on every message.
func PassageSum(passage string) string {
	h := fnv.New32a()
	h.Write([]byte(passage))
	return fmt.Sprintf("%08x", h.Sum32())
}
