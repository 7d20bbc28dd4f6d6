package ir

// LedgerKey addresses one exhaustion ledger slot. Scope is the scenario the
// slot belongs to; Path and Kind identify the matcher that owns it.
//
// Slots of different scopes never share entries, so concurrent runs of
// different scenarios never contend on the same slot.
type LedgerKey struct {
	Scope string `json:"scope"`
	Path  string `json:"path"`
	Kind  string `json:"kind"`
}

// String renders the key as "scope|path|kind" for logs and CLI output.
func (k LedgerKey) String() string {
	return k.Scope + "|" + k.Path + "|" + k.Kind
}

// LedgerEntry is one appended ledger value. Seq is 1-based and strictly
// increasing within a slot; entries are never rewritten.
type LedgerEntry struct {
	Seq   int64 `json:"seq"`
	Value any   `json:"value"`
}
