package passage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog(t *testing.T) {
	assert.Equal(t, 5, Count())

	for i := 0; i < Count(); i++ {
		p, ok := At(i)
		assert.True(t, ok)
		assert.NotEmpty(t, p)
	}

	_, ok := At(-1)
	assert.False(t, ok)
	_, ok = At(Count())
	assert.False(t, ok)
}

func TestRandomReturnsCatalogEntry(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < Count(); i++ {
		p, _ := At(i)
		seen[p] = true
	}
	for i := 0; i < 20; i++ {
		assert.True(t, seen[Random()])
	}
}
