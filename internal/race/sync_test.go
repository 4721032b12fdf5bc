package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/protocol"
)

func newRacingSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("cafe0123", protocol.RoleHost, "Ada", "the quick brown fox jumps over the lazy dog.")
	s.Phase = PhaseRacing
	return s
}

func snap(elapsedMs int64, typed int, progress float64, finished bool) protocol.Snapshot {
	return protocol.Snapshot{
		SenderRole:  protocol.RoleGuest,
		ElapsedMs:   elapsedMs,
		TypedLength: typed,
		WPM:         40,
		Accuracy:    95,
		Progress:    progress,
		Finished:    finished,
	}
}

func TestApplyRemoteSnapshot_Idempotent(t *testing.T) {
	s := newRacingSession(t)
	now := time.Now()

	msg := snap(500, 10, 0.3, false)
	require.NoError(t, s.ApplyRemoteSnapshot(msg, now))
	first := s.Remote

	require.NoError(t, s.ApplyRemoteSnapshot(msg, now))
	assert.Equal(t, first, s.Remote, "second application must be a no-op")
}

func TestApplyRemoteSnapshot_StaleDropped(t *testing.T) {
	s := newRacingSession(t)
	now := time.Now()

	require.NoError(t, s.ApplyRemoteSnapshot(snap(500, 10, 0.3, false), now))
	kept := s.Remote

	// Out-of-order delivery: lower elapsed with higher progress must not win.
	require.NoError(t, s.ApplyRemoteSnapshot(snap(300, 15, 0.5, false), now))
	assert.Equal(t, kept, s.Remote)
	assert.Equal(t, int64(500), s.Remote.ElapsedMs)
	assert.InDelta(t, 0.3, s.Remote.Progress, 0.001)
}

func TestApplyRemoteSnapshot_MonotonicProgress(t *testing.T) {
	s := newRacingSession(t)
	now := time.Now()

	last := 0.0
	for _, m := range []protocol.Snapshot{
		snap(100, 2, 0.05, false),
		snap(300, 6, 0.14, false),
		snap(300, 6, 0.14, false), // duplicate
		snap(200, 9, 0.2, false),  // stale
		snap(700, 20, 0.45, false),
	} {
		require.NoError(t, s.ApplyRemoteSnapshot(m, now))
		if s.Remote.Progress < last {
			t.Fatalf("progress regressed: %v -> %v", last, s.Remote.Progress)
		}
		last = s.Remote.Progress
	}
	assert.Equal(t, int64(700), s.Remote.ElapsedMs)
}

func TestApplyRemoteSnapshot_FinishedSticky(t *testing.T) {
	s := newRacingSession(t)
	now := time.Now()

	require.NoError(t, s.ApplyRemoteSnapshot(snap(1000, 44, 1.0, true), now))
	require.True(t, s.Remote.Finished)

	// Later elapsed but finished=false: the flag must survive.
	require.NoError(t, s.ApplyRemoteSnapshot(snap(1200, 44, 1.0, false), now))
	assert.True(t, s.Remote.Finished)
	assert.Equal(t, int64(1000), s.Remote.FinishedAtMs)
}

func TestApplyRemoteSnapshot_ChecksumMismatchFatal(t *testing.T) {
	s := newRacingSession(t)
	m := snap(100, 2, 0.05, false)
	m.PassageSum = protocol.PassageSum("a completely different passage")
	err := s.ApplyRemoteSnapshot(m, time.Now())
	assert.ErrorIs(t, err, ErrPassageMismatch)
}

func TestApplyRemoteSnapshot_WrongRoleIgnored(t *testing.T) {
	s := newRacingSession(t)
	m := snap(100, 2, 0.05, false)
	m.SenderRole = protocol.RoleHost // our own role echoed back
	require.NoError(t, s.ApplyRemoteSnapshot(m, time.Now()))
	assert.Equal(t, int64(0), s.Remote.ElapsedMs)
}

func TestApplyRemoteSnapshot_NameSetOnce(t *testing.T) {
	s := newRacingSession(t)
	now := time.Now()

	m := snap(100, 2, 0.05, false)
	m.Name = "Grace"
	require.NoError(t, s.ApplyRemoteSnapshot(m, now))
	assert.Equal(t, "Grace", s.Remote.Name)

	m2 := snap(200, 4, 0.1, false)
	m2.Name = "Impostor"
	require.NoError(t, s.ApplyRemoteSnapshot(m2, now))
	assert.Equal(t, "Grace", s.Remote.Name)
}

func TestApplyRemoteSnapshot_ProgressDerivedFromLength(t *testing.T) {
	s := NewSession("cafe0123", protocol.RoleHost, "Ada", "cat")
	s.Phase = PhaseRacing
	m := protocol.Snapshot{SenderRole: protocol.RoleGuest, ElapsedMs: 100, TypedLength: 2}
	require.NoError(t, s.ApplyRemoteSnapshot(m, time.Now()))
	assert.InDelta(t, 2.0/3.0, s.Remote.Progress, 0.001)
}
