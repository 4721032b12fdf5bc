package metrics

import "time"

// minElapsed guards the WPM division; anything shorter reports 0.
const minElapsed = 50 * time.Millisecond

// Report holds the derived stats for one player at a point in time.
type Report struct {
	WPM      float64
	Accuracy float64
	Progress float64
	Finished bool
}

// Compute derives all stats from the typed prefix, the passage and the
// elapsed time since the first keystroke. Pure function, safe to call on
// every keystroke and render tick.
func Compute(typed, passage string, elapsed time.Duration) Report {
	return Report{
		WPM:      WPM(typed, passage, elapsed),
		Accuracy: Accuracy(typed, passage),
		Progress: Progress(typed, passage),
		Finished: Finished(typed, passage),
	}
}

// CorrectChars counts typed runes that match the passage at the same
// position. Runes typed past the end of the passage are incorrect.
func CorrectChars(typed, passage string) int {
	tr := []rune(typed)
	pr := []rune(passage)
	correct := 0
	for i, r := range tr {
		if i < len(pr) && r == pr[i] {
			correct++
		}
	}
	return correct
}

// WPM is (correct characters / 5) per elapsed minute. Mistyped characters
// do not count toward the numerator but the clock still runs.
func WPM(typed, passage string, elapsed time.Duration) float64 {
	if elapsed < minElapsed {
		return 0
	}
	words := float64(CorrectChars(typed, passage)) / 5.0
	return words / elapsed.Minutes()
}

// Accuracy is the percentage of typed characters that are correct,
// clamped to [0,100]. An empty prefix is 100% accurate.
func Accuracy(typed, passage string) float64 {
	total := len([]rune(typed))
	if total == 0 {
		return 100
	}
	pct := float64(CorrectChars(typed, passage)) / float64(total) * 100
	return clamp(pct, 0, 100)
}

// Progress is the typed length over the passage length, clamped to [0,1].
// Length-based only: a wrong character still advances progress.
func Progress(typed, passage string) float64 {
	plen := len([]rune(passage))
	if plen == 0 {
		return 0
	}
	return clamp(float64(len([]rune(typed)))/float64(plen), 0, 1)
}

// Finished requires an exact match against the passage. A garbled prefix
// of full length never counts as finished.
func Finished(typed, passage string) bool {
	return typed == passage
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
