// Package leaderboard keeps a local top-10 score file. I/O failures are
// never fatal to a race; callers log and move on.
package leaderboard

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

const (
	// Keep specifies how many entries survive a trim.
	Keep = 10

	dateLayout = "2006-01-02 15:04"
)

// Entry is one recorded score.
type Entry struct {
	Name     string  `json:"name"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Date     string  `json:"date"`
}

// Load reads the score file. A missing file is an empty board, and a
// corrupt one is treated the same rather than blocking play.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

// Record appends a score, re-sorts by WPM then accuracy (both
// descending), trims to the top entries and writes the file back.
func Record(path, name string, wpm, accuracy float64, now time.Time) error {
	entries, err := Load(path)
	if err != nil {
		return err
	}
	entries = append(entries, Entry{
		Name:     name,
		WPM:      wpm,
		Accuracy: accuracy,
		Date:     now.Format(dateLayout),
	})
	entries = Top(entries)

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write leaderboard: %w", err)
	}
	return nil
}

// Top sorts entries best-first and trims them to the keep limit.
func Top(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].WPM != entries[j].WPM {
			return entries[i].WPM > entries[j].WPM
		}
		return entries[i].Accuracy > entries[j].Accuracy
	})
	if len(entries) > Keep {
		entries = entries[:Keep]
	}
	return entries
}
