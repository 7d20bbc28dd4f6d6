package ir

import (
	"fmt"

	"github.com/go-openapi/jsonpointer"
)

// ExtractPointer reads the value at an RFC 6901 JSON pointer inside doc.
// The empty pointer returns doc itself.
// doc is normalized first so typed Go values and decoded JSON behave alike.
func ExtractPointer(doc any, pointer string) (any, error) {
	if pointer == "" {
		return doc, nil
	}
	normalized, err := Normalize(doc)
	if err != nil {
		return nil, err
	}
	p, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, fmt.Errorf("invalid pointer %q: %w", pointer, err)
	}
	if normalized == nil {
		return nil, fmt.Errorf("no value at %q: document is empty", pointer)
	}
	value, _, err := p.Get(normalized)
	if err != nil {
		return nil, fmt.Errorf("no value at %q: %w", pointer, err)
	}
	return value, nil
}
