package matcher

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkage/internal/ir"
)

// TestEqualityMatcher_ReportsBothValues tests the John/Jane mismatch report.
func TestEqualityMatcher_ReportsBothValues(t *testing.T) {
	m := &EqualityMatcher{Path: "/name", Expected: "John", Strategy: Equals}
	res := m.Execute(NewContext(values(map[string]any{"name": "Jane"})))

	mm, ok := AsMisMatch(res)
	require.True(t, ok)
	assert.Equal(t, FailureKindMismatch, mm.Failure.Kind)
	assert.Contains(t, mm.Failure.Report(), "John")
	assert.Contains(t, mm.Failure.Report(), "Jane")
	assert.Contains(t, mm.Failure.Report(), ">> /name:")
}

func TestEqualityMatcher(t *testing.T) {
	body := map[string]any{
		"name": "test", "age": 42.0, "tags": []any{"a", "b"},
		"flag": "true", "active": true, "none": nil, "empty": "null",
		"nested": map[string]any{"a": 1.0},
	}
	tests := []struct {
		name     string
		path     string
		expected any
		text     bool
		strategy EqualityStrategy
		success  bool
	}{
		{"equal string", "/name", "test", false, Equals, true},
		{"directive literal equals number", "/age", "42", true, Equals, true},
		{"directive literal equals boolean", "/active", "true", true, Equals, true},
		{"directive literal equals null", "/none", "null", true, Equals, true},
		{"typed string is not a number", "/age", "42", false, Equals, false},
		{"typed boolean is not a string", "/flag", true, false, Equals, false},
		{"typed null is not a string", "/empty", nil, false, Equals, false},
		{"typed null equals null", "/none", nil, false, Equals, true},
		{"nested values compare strictly", "/nested", map[string]any{"a": "1"}, false, Equals, false},
		{"nested values equal", "/nested", map[string]any{"a": 1}, false, Equals, true},
		{"different number", "/age", 41.0, false, Equals, false},
		{"equal array", "/tags", []any{"a", "b"}, false, Equals, true},
		{"array order matters", "/tags", []any{"b", "a"}, false, Equals, false},
		{"neq differs", "/name", "other", true, NotEquals, true},
		{"neq same", "/name", "test", true, NotEquals, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &EqualityMatcher{Path: tt.path, Expected: tt.expected, Strategy: tt.strategy, Text: tt.text}
			res := m.Execute(NewContext(values(body)))
			assert.Equal(t, tt.success, IsSuccess(res), res.String())
		})
	}
	assert.False(t, (&EqualityMatcher{}).CanBeExhausted())
}

// TestParseComposite_TextOnlyLoosensDirectiveStrings tests that a directive
// string matches typed values by text while map directives stay strict.
func TestParseComposite_TextOnlyLoosensDirectiveStrings(t *testing.T) {
	body := map[string]any{"active": true, "flag": "true"}
	tests := []struct {
		name    string
		path    string
		raw     any
		success bool
	}{
		{"text exact matches boolean", "/active", "exact: true", true},
		{"text literal matches boolean", "/active", "true", true},
		{"map exact string is strict", "/active", map[string]any{"exact": "true"}, false},
		{"map exact boolean is strict", "/flag", map[string]any{"exact": true}, false},
		{"map exact boolean matches", "/active", map[string]any{"exact": true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseComposite(tt.path, tt.raw, NewContext(values(body)))
			require.NoError(t, err)
			res := c.Execute(NewContext(values(body)))
			assert.Equal(t, tt.success, IsSuccess(res), res.String())
		})
	}
}

func TestEqualityMatcher_NotEqualsMessage(t *testing.T) {
	m := &EqualityMatcher{Path: "/name", Expected: "test", Strategy: NotEquals}
	mm, ok := AsMisMatch(m.Execute(NewContext(values(map[string]any{"name": "test"}))))
	require.True(t, ok)
	assert.Equal(t, `expected value other than "test" but got "test"`, mm.Failure.Message)
}

// TestEqualityMatcher_MissingPath tests extraction failures are distinct from mismatches.
func TestEqualityMatcher_MissingPath(t *testing.T) {
	m := &EqualityMatcher{Path: "/missing", Expected: "x", Strategy: Equals}
	mm, ok := AsMisMatch(m.Execute(NewContext(values(map[string]any{}))))
	require.True(t, ok)
	assert.Equal(t, FailureKindExtraction, mm.Failure.Kind)
	assert.Contains(t, mm.Failure.Message, "couldn't extract value at path /missing")
}

func TestPatternMatcher(t *testing.T) {
	body := map[string]any{
		"id":      "0b6f5f6e-3b8e-4bb0-9f62-6c1f0b2f1a11",
		"count":   3.0,
		"created": "2024-05-01T10:00:00Z",
		"pet":     map[string]any{"name": "Rex", "extra": true},
	}
	r := NewResolver()
	require.NoError(t, r.Register("Pet", map[string]any{
		"type":       "object",
		"required":   []any{"name"},
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}))

	tests := []struct {
		name     string
		path     string
		pattern  string
		strategy PatternStrategy
		success  bool
	}{
		{"number", "/count", "number", Full, true},
		{"integer", "/count", "integer", Full, true},
		{"string is not number", "/id", "number", Full, false},
		{"uuid", "/id", "uuid", Full, true},
		{"datetime", "/created", "datetime", Full, true},
		{"bad date", "/id", "date", Full, false},
		{"shorthand", "/count", "(number)", Full, true},
		{"full rejects extra keys", "/pet", "pet", Full, false},
		{"partial allows extra keys", "/pet", "Pet", Partial, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &PatternMatcher{Path: tt.path, Pattern: tt.pattern, Strategy: tt.strategy}
			res := m.Execute(NewContext(values(body), WithResolver(r)))
			assert.Equal(t, tt.success, IsSuccess(res), res.String())
		})
	}
}

func TestPatternMatcher_ViolationCauses(t *testing.T) {
	m := &PatternMatcher{Path: "/count", Pattern: "string", Strategy: Full}
	mm, ok := AsMisMatch(m.Execute(NewContext(values(map[string]any{"count": 1.0}))))
	require.True(t, ok)
	assert.Equal(t, FailureKindMismatch, mm.Failure.Kind)
	assert.NotEmpty(t, mm.Failure.Causes)
}

// TestPatternMatcher_LookupFailure tests unknown patterns surface as pattern_lookup.
func TestPatternMatcher_LookupFailure(t *testing.T) {
	m := &PatternMatcher{Path: "/x", Pattern: "NoSuchPattern", Strategy: Full}
	mm, ok := AsMisMatch(m.Execute(NewContext(values(map[string]any{"x": 1.0}))))
	require.True(t, ok)
	assert.Equal(t, FailureKindPatternLookup, mm.Failure.Kind)
	assert.Contains(t, mm.Failure.Message, "nosuchpattern")
}

func TestResolver_BrokenSchemaIsLookupFailure(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Register("broken", map[string]any{"type": 12.0}))
	_, err := r.Validate("broken", true, "x")
	assert.Error(t, err)

	assert.Error(t, r.Register("scalar", "not a schema"))
	assert.Contains(t, r.Names(), "broken")
	assert.Contains(t, r.Names(), "uuid")
}

// TestCloseObjects_OnlySubschemas tests that FULL closes nested object
// schemas but leaves property names and literal values alone.
func TestCloseObjects_OnlySubschemas(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"properties": map[string]any{"type": "string"},
			"owner": map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
			},
			"meta": map[string]any{"const": map[string]any{"properties": "x"}},
			"kind": map[string]any{"enum": []any{map[string]any{"properties": 1.0}}},
		},
		"allOf": []any{map[string]any{"properties": map[string]any{"id": map[string]any{}}}},
	}

	closed := closeObjects(cloneSchema(schema)).(map[string]any)
	props := closed["properties"].(map[string]any)

	assert.Equal(t, false, closed["additionalProperties"])
	assert.NotContains(t, props, "additionalProperties", "property names are not a schema")
	assert.Equal(t, false, props["owner"].(map[string]any)["additionalProperties"])
	assert.Equal(t, map[string]any{"properties": "x"}, props["meta"].(map[string]any)["const"])
	assert.Equal(t, []any{map[string]any{"properties": 1.0}}, props["kind"].(map[string]any)["enum"])
	assert.Equal(t, false, closed["allOf"].([]any)[0].(map[string]any)["additionalProperties"])
}

// TestResolver_FullKeepsConstObjects tests that a const object still
// matches under FULL while unknown nested keys are rejected.
func TestResolver_FullKeepsConstObjects(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Register("Tagged", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"meta": map[string]any{"const": map[string]any{"properties": "x"}},
			"owner": map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
			},
		},
	}))

	violations, err := r.Validate("Tagged", true, map[string]any{"meta": map[string]any{"properties": "x"}})
	require.NoError(t, err)
	assert.Empty(t, violations)

	extra := map[string]any{"owner": map[string]any{"name": "Ann", "age": 3.0}}
	violations, err = r.Validate("Tagged", true, extra)
	require.NoError(t, err)
	assert.NotEmpty(t, violations)

	violations, err = r.Validate("Tagged", false, extra)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestRegexMatcher(t *testing.T) {
	body := map[string]any{"name": "John", "code": 1234.0, "flag": true, "obj": map[string]any{}}
	tests := []struct {
		name    string
		path    string
		re      string
		success bool
	}{
		{"string match", "/name", "^J.*", true},
		{"string miss", "/name", "^K", false},
		{"number coerced", "/code", `^\d{4}$`, true},
		{"bool coerced", "/flag", "^true$", true},
		{"object rejected", "/obj", ".*", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &RegexMatcher{Path: tt.path, Regex: regexp.MustCompile(tt.re)}
			assert.Equal(t, tt.success, IsSuccess(m.Execute(NewContext(values(body)))))
		})
	}
}

func TestGenerateExample(t *testing.T) {
	for _, re := range []string{`^J.*`, `^[a-z]{3}-\d{2,4}$`, `(cat|dog)s?`, `^\w+@\w+\.com$`, `[^0-9]x+`, `^$`} {
		t.Run(re, func(t *testing.T) {
			compiled := regexp.MustCompile(re)
			got, err := GenerateExample(compiled)
			require.NoError(t, err)
			assert.True(t, compiled.MatchString(got), "%q should match %s", got, re)
		})
	}

	got, err := ExampleFromDirective("pattern: ^[A-Z]{2}[0-9]{3}$")
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z]{2}[0-9]{3}$`, got)

	_, err = ExampleFromDirective("exact: x")
	assert.Error(t, err)
}

// TestRepetitionMatcher_AnyExhaustsOnNth tests N-1 Successes then Exhausted.
func TestRepetitionMatcher_AnyExhaustsOnNth(t *testing.T) {
	const n = 4
	m := NewRepetitionMatcher("/id", n, Any)
	ctx := NewContext(values(map[string]any{"id": "x"}), WithScope("scenario"))

	for i := 1; i < n; i++ {
		assert.Equal(t, Success{}, m.Execute(ctx), "run %d", i)
	}
	assert.Equal(t, Exhausted{}, m.Execute(ctx))

	entries, err := ctx.Entries(m.LedgerKey("scenario"))
	require.NoError(t, err)
	require.Len(t, entries, n)
	assert.Equal(t, MarkerAny, entries[0].Value)
	assert.Equal(t, int64(n), entries[n-1].Seq)
}

// TestRepetitionMatcher_Unbounded tests times -1 never exhausts nor records.
func TestRepetitionMatcher_Unbounded(t *testing.T) {
	m := NewRepetitionMatcher("/id", Unbounded, Any)
	ledger := NewMemoryLedger()
	ctx := NewContext(values(map[string]any{}), WithLedger(ledger))

	for i := 0; i < 20; i++ {
		assert.Equal(t, Success{}, m.Execute(ctx))
	}
	assert.False(t, m.CanBeExhausted())
	assert.Empty(t, ledger.Keys())
}

func TestRepetitionMatcher_EachCountsTarget(t *testing.T) {
	ledger := NewMemoryLedger()
	m := NewRepetitionMatcher("/status", 2, Each).WithTarget("ready")
	run := func(status string) Result {
		return m.Execute(NewContext(values(map[string]any{"status": status}), WithLedger(ledger), WithScope("s")))
	}

	assert.Equal(t, Success{}, run("pending"))
	assert.Equal(t, Success{}, run("ready"))
	assert.Equal(t, Success{}, run("pending"))
	assert.Equal(t, Exhausted{}, run("ready"))

	entries, err := ledger.Entries(context.Background(), m.LedgerKey("s"))
	require.NoError(t, err)
	assert.Equal(t, []ir.LedgerEntry{{Seq: 1, Value: "ready"}, {Seq: 2, Value: "ready"}}, entries)
}

// TestRepetitionMatcher_EachFirstValueIsTarget tests the untargeted EACH form.
func TestRepetitionMatcher_EachFirstValueIsTarget(t *testing.T) {
	ledger := NewMemoryLedger()
	m := NewRepetitionMatcher("/v", 2, Each)
	run := func(v float64) Result {
		return m.Execute(NewContext(values(map[string]any{"v": v}), WithLedger(ledger)))
	}

	assert.Equal(t, Success{}, run(7))
	assert.Equal(t, Success{}, run(8))
	assert.Equal(t, Exhausted{}, run(7))
}

// TestRepetitionMatcher_EachTextTarget tests that a target written in
// directive text counts typed observations, while a typed target does not.
func TestRepetitionMatcher_EachTextTarget(t *testing.T) {
	repetition := func(raw any) *RepetitionMatcher {
		c, err := ParseComposite("/v", raw, NewContext(values(nil)))
		require.NoError(t, err)
		for _, m := range c.Matchers {
			if r, ok := m.(*RepetitionMatcher); ok {
				return r
			}
		}
		t.Fatalf("no repetition matcher in %v", raw)
		return nil
	}
	body := values(map[string]any{"v": 7.0})

	text := repetition("exact: 7, times: 2, value: each")
	ledger := NewMemoryLedger()
	assert.Equal(t, Success{}, text.Execute(NewContext(body, WithLedger(ledger))))
	assert.Equal(t, Exhausted{}, text.Execute(NewContext(body, WithLedger(ledger))))

	typed := repetition(map[string]any{"exact": "7", "times": 2.0, "value": "each"})
	ledger = NewMemoryLedger()
	assert.Equal(t, Success{}, typed.Execute(NewContext(body, WithLedger(ledger))))
	assert.Equal(t, Success{}, typed.Execute(NewContext(body, WithLedger(ledger))))
	assert.Empty(t, ledger.Keys())
}

func TestRepetitionMatcher_ScopesAreIndependent(t *testing.T) {
	ledger := NewMemoryLedger()
	m := NewRepetitionMatcher("/id", 2, Any)
	body := values(map[string]any{"id": 1.0})

	assert.Equal(t, Success{}, m.Execute(NewContext(body, WithLedger(ledger), WithScope("a"))))
	assert.Equal(t, Success{}, m.Execute(NewContext(body, WithLedger(ledger), WithScope("b"))))
	assert.Equal(t, Exhausted{}, m.Execute(NewContext(body, WithLedger(ledger), WithScope("a"))))
	assert.Len(t, ledger.Keys(), 2)
}

type failingLedger struct{}

func (failingLedger) Append(context.Context, ir.LedgerKey, any) ([]ir.LedgerEntry, error) {
	return nil, errors.New("disk full")
}

func (failingLedger) Entries(context.Context, ir.LedgerKey) ([]ir.LedgerEntry, error) {
	return nil, errors.New("disk full")
}

func TestRepetitionMatcher_LedgerFailure(t *testing.T) {
	m := NewRepetitionMatcher("/id", 2, Any)
	mm, ok := AsMisMatch(m.Execute(NewContext(values(map[string]any{"id": 1.0}), WithLedger(failingLedger{}))))
	require.True(t, ok)
	assert.Equal(t, FailureKindLedger, mm.Failure.Kind)
}

// TestCompositeMatcher_GuardFailsFast tests that a guard MisMatch stops the
// composite before any exhaustible matcher runs.
func TestCompositeMatcher_GuardFailsFast(t *testing.T) {
	fail := mismatch("/a", "bad")
	guard1 := &countingMatcher{result: Success{}}
	guard2 := &countingMatcher{result: fail}
	guard3 := &countingMatcher{result: Success{}}
	exhaustible := &countingMatcher{exhaustible: true, result: Exhausted{}}

	c := NewCompositeMatcher(exhaustible, guard1, guard2, guard3)
	res := c.Execute(NewContext(values(nil)))

	assert.Equal(t, fail, res)
	assert.Equal(t, 1, guard1.calls)
	assert.Equal(t, 1, guard2.calls)
	assert.Equal(t, 0, guard3.calls)
	assert.Equal(t, 0, exhaustible.calls)
}

func TestCompositeMatcher_Combination(t *testing.T) {
	first := mismatch("/x", "first")
	second := mismatch("/y", "second")
	tests := []struct {
		name    string
		results []Result
		want    Result
	}{
		{"all exhausted", []Result{Exhausted{}, Exhausted{}}, Exhausted{}},
		{"one still running", []Result{Exhausted{}, Success{}}, Success{}},
		{"first mismatch wins", []Result{Success{}, first, second}, first},
		{"mismatch beats exhausted", []Result{Exhausted{}, second}, second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var children []Matcher
			var mocks []*countingMatcher
			for _, r := range tt.results {
				m := &countingMatcher{exhaustible: true, result: r}
				mocks = append(mocks, m)
				children = append(children, m)
			}
			c := NewCompositeMatcher(children...)
			assert.Equal(t, tt.want, c.Execute(NewContext(values(nil))))
			for _, m := range mocks {
				assert.Equal(t, 1, m.calls)
			}
		})
	}
}

func TestCompositeMatcher_OnlyGuards(t *testing.T) {
	c := NewCompositeMatcher(&countingMatcher{result: Success{}})
	assert.Equal(t, Success{}, c.Execute(NewContext(values(nil))))
	assert.False(t, c.CanBeExhausted())
	assert.Same(t, c, c.Expand())
	assert.Equal(t, Success{}, NewCompositeMatcher().Execute(NewContext(values(nil))))
}

// TestCompositeMatcher_EqualityWithRepetition runs "exact: test, times: 2" end to end.
func TestCompositeMatcher_EqualityWithRepetition(t *testing.T) {
	ledger := NewMemoryLedger()
	c, err := ParseComposite("/name", "exact: test, times: 2", NewContext(values(nil)))
	require.NoError(t, err)

	ctx := func(name string) Context {
		return NewContext(values(map[string]any{"name": name}), WithLedger(ledger), WithScope("s"))
	}
	assert.Equal(t, Success{}, c.Execute(ctx("test")))
	_, isMisMatch := AsMisMatch(c.Execute(ctx("other")))
	assert.True(t, isMisMatch)
	assert.Equal(t, Exhausted{}, c.Execute(ctx("test")))
}

func TestParseAssertions(t *testing.T) {
	root, err := ParseAssertions([]ir.Assertion{
		{Path: "/name", Directive: "exact: Rex"},
		{Path: "/id", Directive: "dataType: uuid"},
	}, NewContext(values(nil)))
	require.NoError(t, err)
	assert.Len(t, root.Matchers, 2)
	assert.False(t, root.CanBeExhausted())

	_, err = ParseAssertions([]ir.Assertion{
		{Path: "/a", Directive: "exact: a, matchType: x"},
		{Path: "/b", Directive: "times: 0"},
	}, NewContext(values(nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/a")
	assert.Contains(t, err.Error(), "/b")
}

func TestContext_AppendToLedgerReturnsNewContext(t *testing.T) {
	ctx := NewContext(values(nil), WithScope("s"))
	key := ir.LedgerKey{Scope: "s", Path: "/x", Kind: string(KindRepetition)}

	next, entries, err := ctx.AppendToLedger(key, "v")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Empty(t, ctx.Appended())
	assert.Equal(t, []ir.LedgerKey{key}, next.Appended())
	assert.Equal(t, "s", next.Scope())
}

func TestPairOperator(t *testing.T) {
	op := PairOperator{
		Request: ir.HTTPRequest{
			Method:  "POST",
			Path:    "/pets/7",
			Query:   map[string]string{"limit": "5"},
			Headers: map[string]string{"X-Trace": "abc"},
			Body:    map[string]any{"name": "Rex"},
		},
		Response: ir.HTTPResponse{
			Status:  201,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    map[string]any{"id": 7.0, "tags": []any{"a"}},
		},
	}
	tests := []struct {
		path string
		want any
	}{
		{"/id", 7.0},
		{"/tags/0", "a"},
		{"response.body/id", 7.0},
		{"request.body/name", "Rex"},
		{"response.header.content-type", "application/json"},
		{"request.header.x-trace", "abc"},
		{"request.query.limit", "5"},
		{"request.path", "/pets/7"},
		{"response.status", 201.0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := op.Get(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"/nope", "response.header.X-Missing", "request.query.x", "body", "response.bodyx"} {
		_, err := op.Get(bad)
		assert.Error(t, err, bad)
	}
}
