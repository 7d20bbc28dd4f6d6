package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// Directive keys.
const (
	keyExact     = "exact"
	keyMatchType = "matchType"
	keyDataType  = "dataType"
	keyPartial   = "partial"
	keyPattern   = "pattern"
	keyTimes     = "times"
	keyValue     = "value"
)

// knownKeys maps the lower-cased spelling of each key to its canonical form.
var knownKeys = map[string]string{
	"exact":     keyExact,
	"matchtype": keyMatchType,
	"datatype":  keyDataType,
	"partial":   keyPartial,
	"pattern":   keyPattern,
	"times":     keyTimes,
	"value":     keyValue,
}

// allowedKeys lists the canonical keys in documentation order.
var allowedKeys = []string{keyExact, keyMatchType, keyDataType, keyPartial, keyPattern, keyTimes, keyValue}

var segmentKey = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_]*)\s*:`)

// Property is one key/value pair of a directive.
type Property struct {
	Key   string
	Value any
}

// Properties is a parsed directive in source order.
type Properties []Property

// Get returns the value for key.
func (p Properties) Get(key string) (any, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (p Properties) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Keys returns the keys in source order.
func (p Properties) Keys() []string {
	out := make([]string, len(p))
	for i, prop := range p {
		out[i] = prop.Key
	}
	return out
}

// ParseError is a malformed directive.
type ParseError struct {
	Path    string
	Key     string
	Value   string
	Allowed []string
	Message string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "%s: ", e.Path)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, "%s: ", e.Key)
	}
	b.WriteString(e.Message)
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	return b.String()
}

// ParseProperties splits a directive such as "exact: test, times: 2" into
// ordered properties. A comma-separated segment without a "key:" prefix is
// joined back onto the previous value, so regexes and literals may contain
// commas. Known keys are matched case-insensitively and stored in canonical
// spelling. Values are trimmed strings.
func ParseProperties(s string) (Properties, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &ParseError{Message: "empty directive"}
	}

	var props Properties
	for _, seg := range strings.Split(s, ",") {
		m := segmentKey.FindStringSubmatch(seg)
		if m == nil {
			if len(props) == 0 {
				return nil, &ParseError{Value: strings.TrimSpace(seg), Message: "expected key: value", Allowed: allowedKeys}
			}
			last := &props[len(props)-1]
			last.Value = last.Value.(string) + "," + seg
			continue
		}
		key := m[1]
		if canonical, ok := knownKeys[strings.ToLower(key)]; ok {
			key = canonical
		}
		if props.Has(key) {
			return nil, &ParseError{Key: key, Message: "duplicate key"}
		}
		props = append(props, Property{Key: key, Value: seg[len(m[0]):]})
	}

	for i := range props {
		props[i].Value = strings.TrimSpace(props[i].Value.(string))
	}
	return props, nil
}

// hasKnownKey reports whether any property is a directive keyword.
func (p Properties) hasKnownKey() bool {
	for _, prop := range p {
		if _, ok := knownKeys[strings.ToLower(prop.Key)]; ok {
			return true
		}
	}
	return false
}

// mentionsKnownKey reports whether any "key:" segment of s names a
// directive keyword.
func mentionsKnownKey(s string) bool {
	for _, seg := range strings.Split(s, ",") {
		if m := segmentKey.FindStringSubmatch(seg); m != nil {
			if _, ok := knownKeys[strings.ToLower(m[1])]; ok {
				return true
			}
		}
	}
	return false
}

func (p Properties) unknownKeys() []string {
	var out []string
	for _, prop := range p {
		if _, ok := knownKeys[strings.ToLower(prop.Key)]; !ok {
			out = append(out, prop.Key)
		}
	}
	return out
}
