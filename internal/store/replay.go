package store

import (
	"context"
	"fmt"

	"github.com/roach88/linkage/internal/ir"
)

// Slot is one ledger slot with its entries.
type Slot struct {
	Key     ir.LedgerKey     `json:"key"`
	Entries []ir.LedgerEntry `json:"entries"`
}

// ReplayLedger returns every slot of scope, ordered by path then kind
// under binary collation, each with entries ordered by seq.
func (s *Store) ReplayLedger(ctx context.Context, scope string) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, kind, seq, value FROM ledger_entries
		WHERE scope = ?
		ORDER BY path COLLATE BINARY ASC, kind COLLATE BINARY ASC, seq ASC
	`, scope)
	if err != nil {
		return nil, fmt.Errorf("replay %q: %w", scope, err)
	}
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		var (
			path, kind, raw string
			seq             int64
		)
		if err := rows.Scan(&path, &kind, &seq, &raw); err != nil {
			return nil, fmt.Errorf("replay %q: %w", scope, err)
		}
		value, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("replay %q: %w", scope, err)
		}
		key := ir.LedgerKey{Scope: scope, Path: path, Kind: kind}
		if n := len(slots); n == 0 || slots[n-1].Key != key {
			slots = append(slots, Slot{Key: key})
		}
		last := &slots[len(slots)-1]
		last.Entries = append(last.Entries, ir.LedgerEntry{Seq: seq, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("replay %q: %w", scope, err)
	}
	return slots, nil
}

// Scopes lists every scope with at least one entry, sorted.
func (s *Store) Scopes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT scope FROM ledger_entries ORDER BY scope COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("list scopes: %w", err)
		}
		out = append(out, scope)
	}
	return out, rows.Err()
}
