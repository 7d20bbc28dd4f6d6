package matcher

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/linkage/internal/ir"
)

const patternBaseURL = "https://linkage.local/patterns/"

// builtinPatterns are always resolvable by name.
var builtinPatterns = map[string]map[string]any{
	"string":   {"type": "string"},
	"number":   {"type": "number"},
	"integer":  {"type": "integer"},
	"boolean":  {"type": "boolean"},
	"object":   {"type": "object"},
	"array":    {"type": "array"},
	"null":     {"type": "null"},
	"uuid":     {"type": "string", "format": "uuid"},
	"date":     {"type": "string", "format": "date"},
	"datetime": {"type": "string", "format": "date-time"},
	"email":    {"type": "string", "format": "email"},
}

// ErrUnknownPattern is returned for a pattern name that is neither built in
// nor registered.
var ErrUnknownPattern = errors.New("unknown pattern")

// Violation is one reason a value does not fit a pattern.
type Violation struct {
	Location string
	Message  string
}

// Resolver maps pattern names to JSON schemas and caches their compiled
// form. It is safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	schemas  map[string]any
	compiled map[string]*jsonschema.Schema
	printer  *message.Printer
}

// NewResolver returns a resolver that knows only the built-in patterns.
func NewResolver() *Resolver {
	return &Resolver{
		schemas:  make(map[string]any),
		compiled: make(map[string]*jsonschema.Schema),
		printer:  message.NewPrinter(language.English),
	}
}

// Register adds or replaces a named schema. Names are case-insensitive.
func (r *Resolver) Register(name string, schema any) error {
	normalized, err := ir.Normalize(schema)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", name, err)
	}
	if _, ok := normalized.(map[string]any); !ok {
		if _, isBool := normalized.(bool); !isBool {
			return fmt.Errorf("pattern %q: schema must be an object or boolean", name)
		}
	}
	key := patternKey(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[key] = normalized
	delete(r.compiled, key+"|strict")
	delete(r.compiled, key+"|loose")
	return nil
}

// Names returns every resolvable pattern name, sorted.
func (r *Resolver) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(builtinPatterns)+len(r.schemas))
	for n := range builtinPatterns {
		seen[n] = true
	}
	for n := range r.schemas {
		seen[n] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the raw schema for name. Registered schemas shadow
// built-ins.
func (r *Resolver) Lookup(name string) (any, error) {
	key := patternKey(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(key)
}

func (r *Resolver) lookupLocked(key string) (any, error) {
	if s, ok := r.schemas[key]; ok {
		return s, nil
	}
	if s, ok := builtinPatterns[key]; ok {
		return cloneSchema(s), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPattern, key)
}

// Compile returns the compiled schema for name. Strict compilation closes
// every object schema that does not state additionalProperties itself.
func (r *Resolver) Compile(name string, strict bool) (*jsonschema.Schema, error) {
	key := patternKey(name)
	cacheKey := key + "|loose"
	if strict {
		cacheKey = key + "|strict"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sch, ok := r.compiled[cacheKey]; ok {
		return sch, nil
	}
	doc, err := r.lookupLocked(key)
	if err != nil {
		return nil, err
	}
	if strict {
		doc = closeObjects(cloneSchema(doc))
	}

	url := patternBaseURL + strings.ReplaceAll(cacheKey, "|", "-") + ".json"
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add pattern %q: %w", key, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", key, err)
	}
	r.compiled[cacheKey] = sch
	return sch, nil
}

// Validate checks value against the named pattern. A non-nil error means
// the pattern itself could not be resolved or compiled; violations of a
// resolved pattern are returned as the slice.
func (r *Resolver) Validate(name string, strict bool, value any) ([]Violation, error) {
	sch, err := r.Compile(name, strict)
	if err != nil {
		return nil, err
	}
	data, err := ir.MarshalCanonical(value)
	if err != nil {
		return []Violation{{Message: err.Error()}}, nil
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []Violation{{Message: err.Error()}}, nil
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Message: err.Error()}}, nil
	}
	var out []Violation
	for _, cause := range flattenValidationErrors(ve) {
		out = append(out, Violation{
			Location: "/" + strings.Join(cause.InstanceLocation, "/"),
			Message:  cause.ErrorKind.LocalizedString(r.printer),
		})
	}
	return out, nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var flat []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// patternKey strips the "(name)" shorthand and folds case.
func patternKey(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		name = strings.TrimSpace(name[1 : len(name)-1])
	}
	return strings.ToLower(name)
}

// isPatternShorthand reports whether s has the "(name)" form.
func isPatternShorthand(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

func cloneSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneSchema(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneSchema(val)
		}
		return out
	default:
		return v
	}
}

// Keywords whose values are subschemas, lists of subschemas or maps of
// name to subschema. closeObjects only descends through these, so values
// such as const, enum and examples are never rewritten.
var (
	subschemaKeywords = []string{
		"items", "additionalItems", "additionalProperties", "contains", "not",
		"if", "then", "else", "propertyNames", "unevaluatedItems", "unevaluatedProperties",
	}
	subschemaListKeywords = []string{"allOf", "anyOf", "oneOf", "prefixItems"}
	subschemaMapKeywords  = []string{"properties", "patternProperties", "$defs", "definitions", "dependentSchemas"}
)

// closeObjects sets additionalProperties to false on every object schema
// that declares properties and leaves additionalProperties unset.
func closeObjects(v any) any {
	schema, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, k := range subschemaKeywords {
		switch sub := schema[k].(type) {
		case map[string]any:
			closeObjects(sub)
		case []any:
			for _, item := range sub {
				closeObjects(item)
			}
		}
	}
	for _, k := range subschemaListKeywords {
		if list, ok := schema[k].([]any); ok {
			for _, item := range list {
				closeObjects(item)
			}
		}
	}
	for _, k := range subschemaMapKeywords {
		if named, ok := schema[k].(map[string]any); ok {
			for _, sub := range named {
				closeObjects(sub)
			}
		}
	}
	if _, declared := schema["additionalProperties"]; !declared {
		if _, hasProps := schema["properties"]; hasProps {
			schema["additionalProperties"] = false
		}
	}
	return schema
}
