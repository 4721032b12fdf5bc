package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameCode_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := NewGameCode()
		parsed, err := ParseGameCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, parsed)
		seen[code] = true
	}
	// 32 bits of entropy; 50 draws colliding would mean a broken generator
	assert.Equal(t, 50, len(seen))
}

func TestParseGameCode(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare code", input: "deadbeef", want: "deadbeef"},
		{name: "uppercase normalized", input: "DEADBEEF", want: "deadbeef"},
		{name: "pasted full topic", input: "typing-game/deadbeef", want: "deadbeef"},
		{name: "surrounding whitespace", input: "  deadbeef\n", want: "deadbeef"},
		{name: "too short", input: "dead", wantErr: true},
		{name: "non-hex", input: "deadbeez", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseGameCode(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "typing-game/cafe0123", SessionTopic("cafe0123"))
	assert.Equal(t, "typing-game/cafe0123/host", SnapshotTopic("cafe0123", RoleHost))
	assert.Equal(t, "typing-game/cafe0123/guest", SnapshotTopic("cafe0123", RoleGuest))
	assert.Equal(t, "typing-game/cafe0123/control", ControlTopic("cafe0123"))
}

func TestDecodeSnapshot(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := Snapshot{SenderRole: RoleHost, ElapsedMs: 1500, TypedLength: 12, WPM: 48, Accuracy: 96.5, Progress: 0.25}
		data, err := in.Encode()
		require.NoError(t, err)
		out, err := DecodeSnapshot(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		data := []byte(`{"senderRole":"guest","elapsedMs":100,"typedLength":3,"futureField":"x"}`)
		s, err := DecodeSnapshot(data)
		require.NoError(t, err)
		assert.Equal(t, RoleGuest, s.SenderRole)
		assert.Equal(t, int64(100), s.ElapsedMs)
	})

	t.Run("malformed payloads", func(t *testing.T) {
		for _, data := range [][]byte{
			[]byte("not json"),
			[]byte(`{"senderRole":"referee","elapsedMs":1}`),
			[]byte(`{"senderRole":"host","elapsedMs":-5}`),
			[]byte(`{"senderRole":"host","typedLength":-1}`),
		} {
			_, err := DecodeSnapshot(data)
			assert.ErrorIs(t, err, ErrMalformed, "payload %s", data)
		}
	})
}

func TestDecodeControl(t *testing.T) {
	t.Run("presence with passage", func(t *testing.T) {
		in := Control{Type: ControlPresence, SenderRole: RoleHost, Name: "Ada", Passage: "To be, or not to be", PassageSum: PassageSum("To be, or not to be"), SentAtMs: 42}
		data, err := in.Encode()
		require.NoError(t, err)
		out, err := DecodeControl(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("unknown type still decodes", func(t *testing.T) {
		c, err := DecodeControl([]byte(`{"type":"SPECTATE","senderRole":"guest"}`))
		require.NoError(t, err)
		assert.Equal(t, "SPECTATE", c.Type)
	})

	t.Run("missing type rejected", func(t *testing.T) {
		_, err := DecodeControl([]byte(`{"senderRole":"guest"}`))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestPassageSum(t *testing.T) {
	a := PassageSum("the quick brown fox")
	b := PassageSum("the quick brown fox")
	c := PassageSum("the quick brown fix")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 8)
}
