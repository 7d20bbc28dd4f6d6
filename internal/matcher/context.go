package matcher

import (
	"context"

	"github.com/roach88/linkage/internal/ir"
)

// Context carries everything a matcher reads during Execute: the values
// under test, the pattern resolver and the exhaustion ledger for the
// current scope.
//
// Context is a value. AppendToLedger returns a new Context recording the
// append, so callers thread it through explicitly.
type Context struct {
	values   ValueOperator
	resolver *Resolver
	ledger   Ledger
	scope    string
	ctx      context.Context
	appended []ir.LedgerKey
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithResolver sets the pattern resolver.
func WithResolver(r *Resolver) ContextOption {
	return func(c *Context) { c.resolver = r }
}

// WithLedger sets the exhaustion ledger.
func WithLedger(l Ledger) ContextOption {
	return func(c *Context) { c.ledger = l }
}

// WithScope sets the ledger scope, normally the scenario ID.
func WithScope(scope string) ContextOption {
	return func(c *Context) { c.scope = scope }
}

// WithGoContext sets the context passed to ledger calls.
func WithGoContext(ctx context.Context) ContextOption {
	return func(c *Context) { c.ctx = ctx }
}

// NewContext returns a Context over values. Without options it uses a fresh
// MemoryLedger, the built-in patterns and an empty scope.
func NewContext(values ValueOperator, opts ...ContextOption) Context {
	c := Context{values: values}
	for _, opt := range opts {
		opt(&c)
	}
	if c.ledger == nil {
		c.ledger = NewMemoryLedger()
	}
	if c.resolver == nil {
		c.resolver = NewResolver()
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c
}

// Extract returns the value at path.
func (c Context) Extract(path string) (any, error) {
	return c.values.Get(path)
}

// WithValues returns a copy of c reading from values.
func (c Context) WithValues(values ValueOperator) Context {
	c.values = values
	return c
}

// Resolver returns the pattern resolver.
func (c Context) Resolver() *Resolver { return c.resolver }

// Scope returns the ledger scope.
func (c Context) Scope() string { return c.scope }

// Ledger returns the exhaustion ledger.
func (c Context) Ledger() Ledger { return c.ledger }

// Entries reads one ledger slot.
func (c Context) Entries(key ir.LedgerKey) ([]ir.LedgerEntry, error) {
	return c.ledger.Entries(c.ctx, key)
}

// AppendToLedger appends value to the slot at key. It returns the Context
// that records the append and the slot's entries after it.
func (c Context) AppendToLedger(key ir.LedgerKey, value any) (Context, []ir.LedgerEntry, error) {
	entries, err := c.ledger.Append(c.ctx, key, value)
	if err != nil {
		return c, nil, err
	}
	next := c
	next.appended = make([]ir.LedgerKey, len(c.appended), len(c.appended)+1)
	copy(next.appended, c.appended)
	next.appended = append(next.appended, key)
	return next, entries, nil
}

// Appended returns the slots appended to through this Context, in order.
func (c Context) Appended() []ir.LedgerKey {
	out := make([]ir.LedgerKey, len(c.appended))
	copy(out, c.appended)
	return out
}
