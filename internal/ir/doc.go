// Package ir provides the in-memory contract model shared by every linkage
// package.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// the contract model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - OperationReference is a comparable value type so it can key maps
//   - Link values are immutable once NewLink returns
//   - Extraction expressions are namespaced by link name at parse time
//   - JSON values are plain Go values (nil, bool, float64, string, []any, map[string]any)
//   - Canonical JSON is the only encoding used for equality and ledger storage
package ir
