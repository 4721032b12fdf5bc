package protocol

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// CodeLength is the fixed length of a game code: the first segment of a
// v4 UUID, 8 lowercase hex characters (32 bits of entropy).
const CodeLength = 8

var ErrBadCode = errors.New("invalid game code")

// NewGameCode returns a fresh single-session game code.
func NewGameCode() string {
	return uuid.New().String()[:CodeLength]
}

// ParseGameCode normalizes user input into a bare game code. It accepts
// both the bare code and a pasted full topic ("typing-game/<code>").
func ParseGameCode(input string) (string, error) {
	code := strings.TrimSpace(strings.ToLower(input))
	code = strings.TrimPrefix(code, TopicRoot+"/")
	if len(code) != CodeLength {
		return "", ErrBadCode
	}
	for _, c := range code {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", ErrBadCode
		}
	}
	return code, nil
}
