package matcher

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/linkage/internal/ir"
)

// Ledger is the append-only exhaustion ledger.
//
// Append must add the value and read back the slot atomically so that two
// appends to one slot can never observe the same length.
type Ledger interface {
	Append(ctx context.Context, key ir.LedgerKey, value any) ([]ir.LedgerEntry, error)
	Entries(ctx context.Context, key ir.LedgerKey) ([]ir.LedgerEntry, error)
}

// MemoryLedger keeps ledger slots in process memory.
type MemoryLedger struct {
	mu    sync.Mutex
	slots map[ir.LedgerKey][]ir.LedgerEntry
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{slots: make(map[ir.LedgerKey][]ir.LedgerEntry)}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, key ir.LedgerKey, value any) ([]ir.LedgerEntry, error) {
	normalized, err := ir.Normalize(value)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.slots[key]
	slot = append(slot, ir.LedgerEntry{Seq: int64(len(slot) + 1), Value: normalized})
	l.slots[key] = slot
	return cloneEntries(slot), nil
}

// Entries implements Ledger.
func (l *MemoryLedger) Entries(_ context.Context, key ir.LedgerKey) ([]ir.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneEntries(l.slots[key]), nil
}

// Keys returns every slot key, sorted by scope, path and kind.
func (l *MemoryLedger) Keys() []ir.LedgerKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]ir.LedgerKey, 0, len(l.slots))
	for k := range l.slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func cloneEntries(entries []ir.LedgerEntry) []ir.LedgerEntry {
	out := make([]ir.LedgerEntry, len(entries))
	copy(out, entries)
	return out
}
