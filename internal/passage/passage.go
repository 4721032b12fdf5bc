// Package passage holds the fixed catalog of race texts. The host picks
// one and ships it to the guest during the handshake; there is no passage
// management beyond this list.
package passage

import "math/rand"

var catalog = []string{
	"The quick brown fox jumps over the lazy dog.",
	"Never underestimate the power of a well-placed semicolon.",
	"To be, or not to be, that is the question.",
	"The journey of a thousand miles begins with a single step.",
	"In the beginning, the universe was created. This has made a lot of people very angry and been widely regarded as a bad move.",
}

// Count returns the catalog size.
func Count() int {
	return len(catalog)
}

// At returns the passage at index i, or false if out of range. Useful for
// deterministic demos via the -passage flag.
func At(i int) (string, bool) {
	if i < 0 || i >= len(catalog) {
		return "", false
	}
	return catalog[i], true
}

// Random picks a passage for a new race.
func Random() string {
	return catalog[rand.Intn(len(catalog))]
}
