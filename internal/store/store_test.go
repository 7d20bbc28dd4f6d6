package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/ir"
	"github.com/roach88/linkage/internal/matcher"
)

// createTestStore opens a store in a temp dir and closes it on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	mode, err := s.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

// TestOpen_Idempotent tests reopening keeps existing entries.
func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	key := ir.LedgerKey{Scope: "s", Path: "/id", Kind: "repetition"}

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), key, "x")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Entries(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []ir.LedgerEntry{{Seq: 1, Value: "x"}}, entries)
}

func TestAppend_SequencesPerSlot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := ir.LedgerKey{Scope: "s", Path: "/a", Kind: "repetition"}
	b := ir.LedgerKey{Scope: "s", Path: "/b", Kind: "repetition"}

	entries, err := s.Append(ctx, a, map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, []ir.LedgerEntry{{Seq: 1, Value: map[string]any{"n": 1.0}}}, entries)

	_, err = s.Append(ctx, b, "<any>")
	require.NoError(t, err)
	entries, err = s.Append(ctx, a, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[1].Seq)
	assert.Equal(t, 2.0, entries[1].Value)

	empty, err := s.Entries(ctx, ir.LedgerKey{Scope: "other", Path: "/a", Kind: "repetition"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestAppend_ConcurrentSameSlot tests that concurrent appends never share a seq.
func TestAppend_ConcurrentSameSlot(t *testing.T) {
	s := createTestStore(t)
	key := ir.LedgerKey{Scope: "s", Path: "/x", Kind: "repetition"}
	const n = 20

	var wg sync.WaitGroup
	lengths := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries, err := s.Append(context.Background(), key, "<any>")
			assert.NoError(t, err)
			lengths <- len(entries)
		}()
	}
	wg.Wait()
	close(lengths)

	seen := make(map[int]bool)
	for l := range lengths {
		assert.False(t, seen[l], "length %d observed twice", l)
		seen[l] = true
	}
	assert.Len(t, seen, n)
}

// TestLedger_AppendOnly tests that the triggers reject rewrites.
func TestLedger_AppendOnly(t *testing.T) {
	s := createTestStore(t)
	key := ir.LedgerKey{Scope: "s", Path: "/x", Kind: "repetition"}
	_, err := s.Append(context.Background(), key, "v")
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE ledger_entries SET value = '"w"'`)
	assert.ErrorContains(t, err, "append-only")
	_, err = s.db.Exec(`DELETE FROM ledger_entries`)
	assert.ErrorContains(t, err, "append-only")
}

func TestCountValue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := ir.LedgerKey{Scope: "s", Path: "/status", Kind: "repetition"}
	for _, v := range []any{"ready", "pending", "ready"} {
		_, err := s.Append(ctx, key, v)
		require.NoError(t, err)
	}
	n, err := s.CountValue(ctx, key, "ready")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReplayLedger_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	appends := []ir.LedgerKey{
		{Scope: "s", Path: "/b", Kind: "repetition"},
		{Scope: "s", Path: "/a", Kind: "repetition"},
		{Scope: "t", Path: "/a", Kind: "repetition"},
		{Scope: "s", Path: "/b", Kind: "repetition"},
		{Scope: "s", Path: "/B", Kind: "repetition"},
	}
	for i, k := range appends {
		_, err := s.Append(ctx, k, float64(i))
		require.NoError(t, err)
	}

	slots, err := s.ReplayLedger(ctx, "s")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "/B", slots[0].Key.Path, "binary collation puts upper case first")
	assert.Equal(t, "/a", slots[1].Key.Path)
	assert.Equal(t, "/b", slots[2].Key.Path)
	assert.Equal(t, []ir.LedgerEntry{{Seq: 1, Value: 0.0}, {Seq: 2, Value: 3.0}}, slots[2].Entries)

	scopes, err := s.Scopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "t"}, scopes)

	none, err := s.ReplayLedger(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestStore_DrivesRepetitionMatcher tests the store as a matcher ledger
// across separate matcher contexts, as in repeated scenario runs.
func TestStore_DrivesRepetitionMatcher(t *testing.T) {
	s := createTestStore(t)
	m := matcher.NewRepetitionMatcher("/id", 3, matcher.Any)
	values := matcher.PairOperator{Response: ir.HTTPResponse{Status: 200, Body: map[string]any{"id": 1.0}}}

	var results []matcher.Result
	for i := 0; i < 3; i++ {
		ctx := matcher.NewContext(values, matcher.WithLedger(s), matcher.WithScope("create pet"))
		results = append(results, m.Execute(ctx))
	}
	assert.Equal(t, []matcher.Result{matcher.Success{}, matcher.Success{}, matcher.Exhausted{}}, results)
}
