package term

import (
	"fmt"
	"io"
	"strings"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/leaderboard"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/race"
)

const (
	ansiClear  = "\x1b[2J\x1b[H"
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiReset  = "\x1b[0m"
	lineEnding = "\r\n" // raw mode: \n alone does not return the carriage
)

// Screen renders race views with plain ANSI escapes.
type Screen struct {
	w io.Writer
}

func NewScreen(w io.Writer) *Screen {
	return &Screen{w: w}
}

// Draw paints the race view. Called once per loop iteration; the view is
// a read-only copy of the session.
func (s *Screen) Draw(v race.View) {
	var b strings.Builder
	b.WriteString(ansiClear)
	b.WriteString("Type the following text:" + lineEnding + lineEnding)
	b.WriteString("  " + colorize(v.Passage, v.Local.Typed) + lineEnding + lineEnding)
	b.WriteString(strings.Repeat("-", 60) + lineEnding)
	b.WriteString(statsLine(name(v.Local.Name, "You")+" (You)", v.Local) + lineEnding)
	b.WriteString(statsLine(name(v.Remote.Name, "Opponent"), v.Remote) + lineEnding)

	if v.Phase == race.PhaseFinished {
		b.WriteString(lineEnding)
		if v.Winner == v.Local.Role {
			b.WriteString(ansiBold + "You are the winner!" + ansiReset + lineEnding)
		} else {
			b.WriteString(ansiBold + "You lose! Better luck next time." + ansiReset + lineEnding)
		}
	}
	fmt.Fprint(s.w, b.String())
}

// DrawLeaderboard prints the top-10 table after a race or from the menu.
func (s *Screen) DrawLeaderboard(entries []leaderboard.Entry) {
	var b strings.Builder
	b.WriteString("\n--- Leaderboard (Top 10) ---\n")
	if len(entries) == 0 {
		b.WriteString("No scores yet!\n")
	} else {
		b.WriteString(fmt.Sprintf("%-5s %-15s %5s %10s %18s\n", "Rank", "Name", "WPM", "Accuracy", "Date"))
		for i, e := range entries {
			n := e.Name
			if len(n) > 15 {
				n = n[:15]
			}
			b.WriteString(fmt.Sprintf("%-5d %-15s %5.0f %9.1f%% %18s\n", i+1, n, e.WPM, e.Accuracy, e.Date))
		}
	}
	fmt.Fprint(s.w, b.String())
}

// colorize paints typed characters green when correct and red when not;
// the untyped remainder is dimmed.
func colorize(passage, typed string) string {
	pr := []rune(passage)
	tr := []rune(typed)
	var b strings.Builder
	for i, r := range pr {
		switch {
		case i < len(tr) && tr[i] == r:
			b.WriteString(ansiGreen + string(r) + ansiReset)
		case i < len(tr):
			b.WriteString(ansiRed + string(r) + ansiReset)
		default:
			b.WriteString(ansiDim + string(r) + ansiReset)
		}
	}
	return b.String()
}

func statsLine(label string, p race.PlayerState) string {
	return fmt.Sprintf("%s -> WPM: %.0f | Progress: %.0f%% | Accuracy: %.1f%%",
		label, p.WPM, p.Progress*100, p.Accuracy)
}

func name(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
