package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Scenarios(t *testing.T) {
	cases := []struct {
		name     string
		typed    string
		passage  string
		elapsed  time.Duration
		wpm      float64
		accuracy float64
		progress float64
		finished bool
	}{
		{
			name:    "exact match cat in six seconds",
			typed:   "cat",
			passage: "cat",
			elapsed: 6 * time.Second,
			// (3/5) / 0.1min
			wpm:      6,
			accuracy: 100,
			progress: 1,
			finished: true,
		},
		{
			name:     "one wrong char full length",
			typed:    "cag",
			passage:  "cat",
			elapsed:  6 * time.Second,
			wpm:      4,
			accuracy: 100 * 2.0 / 3.0,
			progress: 1,
			finished: false,
		},
		{
			name:     "empty prefix",
			typed:    "",
			passage:  "cat",
			elapsed:  time.Second,
			wpm:      0,
			accuracy: 100,
			progress: 0,
			finished: false,
		},
		{
			name:     "elapsed below guard is zero wpm",
			typed:    "cat",
			passage:  "cat",
			elapsed:  20 * time.Millisecond,
			wpm:      0,
			accuracy: 100,
			progress: 1,
			finished: true,
		},
		{
			name:     "overtyped past passage end",
			typed:    "cats",
			passage:  "cat",
			elapsed:  6 * time.Second,
			wpm:      6,
			accuracy: 75,
			progress: 1,
			finished: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Compute(tc.typed, tc.passage, tc.elapsed)
			assert.InDelta(t, tc.wpm, r.WPM, 0.001)
			assert.InDelta(t, tc.accuracy, r.Accuracy, 0.001)
			assert.InDelta(t, tc.progress, r.Progress, 0.001)
			assert.Equal(t, tc.finished, r.Finished)
		})
	}
}

func TestAccuracy_RangeOverPrefixes(t *testing.T) {
	passage := "the quick brown fox"
	for i := 0; i <= len(passage); i++ {
		p := passage[:i]
		acc := Accuracy(p, passage)
		if acc < 0 || acc > 100 {
			t.Fatalf("accuracy(%q)=%v out of [0,100]", p, acc)
		}
		if got := Progress(p, passage); got < 0 || got > 1 {
			t.Fatalf("progress(%q)=%v out of [0,1]", p, got)
		}
	}
	assert.Equal(t, 100.0, Accuracy(passage, passage))
	assert.Equal(t, 1.0, Progress(passage, passage))
}

func TestProgress_EmptyPassage(t *testing.T) {
	assert.Equal(t, 0.0, Progress("anything", ""))
}
