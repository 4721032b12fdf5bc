// Package term is the rendering and input collaborator: a raw-mode key
// reader and an ANSI screen. It only ever reads the core's view; it never
// mutates race state.
package term

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/race"
)

// Input captures keystrokes from a terminal in raw mode and feeds them to
// the race loop as race.Key events.
type Input struct {
	f        *os.File
	oldState *term.State
	keys     chan race.Key
}

// NewInput switches the terminal to raw mode and starts the read
// goroutine. Call Restore before printing anything afterwards.
func NewInput(f *os.File) (*Input, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	in := &Input{f: f, oldState: oldState, keys: make(chan race.Key, 16)}
	go in.readLoop()
	return in, nil
}

// Keys is the event stream consumed by the race controller.
func (in *Input) Keys() <-chan race.Key {
	return in.keys
}

// Restore puts the terminal back into cooked mode.
func (in *Input) Restore() {
	term.Restore(int(in.f.Fd()), in.oldState)
}

func (in *Input) readLoop() {
	defer close(in.keys)
	buf := make([]byte, 64)
	var pending []byte
	for {
		n, err := in.f.Read(buf)
		if err != nil {
			return
		}
		pending = append(pending, buf[:n]...)
		for len(pending) > 0 {
			k, size, ok := decodeKey(pending)
			if !ok {
				break // incomplete utf-8 sequence, wait for more bytes
			}
			pending = pending[size:]
			if k != nil {
				in.keys <- *k
			}
		}
	}
}

// decodeKey turns raw terminal bytes into key events. Escape sequences
// beyond a bare ESC (arrow keys etc.) are consumed and dropped.
func decodeKey(b []byte) (*race.Key, int, bool) {
	switch b[0] {
	case 0x03, 0x1b: // Ctrl-C, ESC
		if b[0] == 0x1b && len(b) > 1 {
			// CSI sequence: swallow it entirely.
			return nil, len(b), true
		}
		return &race.Key{Kind: race.KeyCancel}, 1, true
	case 0x7f, 0x08: // DEL, BS
		return &race.Key{Kind: race.KeyBackspace}, 1, true
	case '\r', '\n', '\t':
		return nil, 1, true // no multi-line passages
	}
	if b[0] < 0x20 {
		return nil, 1, true // other control chars
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size == 1 {
		if !utf8.FullRune(b) {
			return nil, 0, false
		}
		return nil, 1, true
	}
	return &race.Key{Kind: race.KeyRune, Rune: r}, size, true
}
