package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/linkage/internal/ir"
)

// Append adds value to the slot at key and returns every entry of the slot
// after the append, ordered by seq.
func (s *Store) Append(ctx context.Context, key ir.LedgerKey, value any) ([]ir.LedgerEntry, error) {
	data, err := ir.MarshalCanonical(value)
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", key, err)
	}
	hash, err := ir.LedgerValueHash(value)
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append %s: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	var last int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ledger_entries
		WHERE scope = ? AND path = ? AND kind = ?
	`, key.Scope, key.Path, key.Kind).Scan(&last); err != nil {
		return nil, fmt.Errorf("append %s: read seq: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (scope, path, kind, seq, value, value_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key.Scope, key.Path, key.Kind, last+1, string(data), hash); err != nil {
		return nil, fmt.Errorf("append %s: %w", key, err)
	}

	entries, err := readSlot(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append %s: commit: %w", key, err)
	}
	return entries, nil
}

// Entries returns the slot at key ordered by seq.
func (s *Store) Entries(ctx context.Context, key ir.LedgerKey) ([]ir.LedgerEntry, error) {
	return readSlot(ctx, s.db, key)
}

// CountValue returns how many entries of the slot hold value.
func (s *Store) CountValue(ctx context.Context, key ir.LedgerKey, value any) (int, error) {
	hash, err := ir.LedgerValueHash(value)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ledger_entries
		WHERE scope = ? AND path = ? AND kind = ? AND value_hash = ?
	`, key.Scope, key.Path, key.Kind, hash).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", key, err)
	}
	return n, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readSlot(ctx context.Context, q querier, key ir.LedgerKey) ([]ir.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT seq, value FROM ledger_entries
		WHERE scope = ? AND path = ? AND kind = ?
		ORDER BY seq ASC
	`, key.Scope, key.Path, key.Kind)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer rows.Close()

	entries := []ir.LedgerEntry{}
	for rows.Next() {
		var (
			seq int64
			raw string
		)
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		value, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("read %s seq %d: %w", key, seq, err)
		}
		entries = append(entries, ir.LedgerEntry{Seq: seq, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return entries, nil
}

func decodeValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}
