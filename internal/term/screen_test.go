package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/leaderboard"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/protocol"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/race"
)

func TestColorize(t *testing.T) {
	out := colorize("cat", "cag")
	assert.Contains(t, out, ansiGreen+"c"+ansiReset)
	assert.Contains(t, out, ansiGreen+"a"+ansiReset)
	// third position mistyped: passage rune shown in red
	assert.Contains(t, out, ansiRed+"t"+ansiReset)

	out = colorize("cat", "c")
	assert.Contains(t, out, ansiDim+"a"+ansiReset)
	assert.Contains(t, out, ansiDim+"t"+ansiReset)
}

func TestDraw_WinnerBanner(t *testing.T) {
	var sb strings.Builder
	s := NewScreen(&sb)
	v := race.View{
		Phase:   race.PhaseFinished,
		Passage: "cat",
		Local:   race.PlayerState{Role: protocol.RoleHost, Name: "Ada", Typed: "cat", WPM: 6, Accuracy: 100, Progress: 1, Finished: true},
		Remote:  race.PlayerState{Role: protocol.RoleGuest, Name: "Grace"},
		Winner:  protocol.RoleHost,
	}
	s.Draw(v)
	assert.Contains(t, sb.String(), "You are the winner!")

	sb.Reset()
	v.Winner = protocol.RoleGuest
	s.Draw(v)
	assert.Contains(t, sb.String(), "You lose!")
}

func TestDrawLeaderboard(t *testing.T) {
	var sb strings.Builder
	s := NewScreen(&sb)

	s.DrawLeaderboard(nil)
	assert.Contains(t, sb.String(), "No scores yet!")

	sb.Reset()
	s.DrawLeaderboard([]leaderboard.Entry{
		{Name: "Ada", WPM: 72, Accuracy: 98.5, Date: "2026-08-31 12:00"},
	})
	out := sb.String()
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "72")
	assert.Contains(t, out, "98.5%")
}

func TestDecodeKey(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
		want  *race.Key
		size  int
	}{
		{"printable ascii", []byte("a"), &race.Key{Kind: race.KeyRune, Rune: 'a'}, 1},
		{"backspace del", []byte{0x7f}, &race.Key{Kind: race.KeyBackspace}, 1},
		{"backspace bs", []byte{0x08}, &race.Key{Kind: race.KeyBackspace}, 1},
		{"ctrl-c cancels", []byte{0x03}, &race.Key{Kind: race.KeyCancel}, 1},
		{"bare esc cancels", []byte{0x1b}, &race.Key{Kind: race.KeyCancel}, 1},
		{"arrow sequence dropped", []byte{0x1b, '[', 'A'}, nil, 3},
		{"newline dropped", []byte("\r"), nil, 1},
		{"multibyte rune", []byte("é"), &race.Key{Kind: race.KeyRune, Rune: 'é'}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, size, ok := decodeKey(tc.input)
			assert.True(t, ok)
			assert.Equal(t, tc.size, size)
			assert.Equal(t, tc.want, k)
		})
	}

	t.Run("incomplete utf-8 waits for more", func(t *testing.T) {
		_, _, ok := decodeKey([]byte{0xc3}) // first byte of é
		assert.False(t, ok)
	})
}
