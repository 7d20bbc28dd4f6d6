package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDs hands out "<prefix>-1", "<prefix>-2", ... so traces taken in
// tests are byte-identical between runs.
type FixedRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedRunIDs returns a generator. An empty prefix becomes "run".
func NewFixedRunIDs(prefix string) *FixedRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &FixedRunIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
