package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createPet = NewOperationReference("POST", "/pets", 201, "createPet")
	getPet    = NewOperationReference("GET", "/pets/{petId}", 200, "getPet")
)

func TestNewLink_MissingPathParameter(t *testing.T) {
	_, err := NewLink("GetCreatedPet", createPet, getPet, map[string]any{
		"query.verbose": true,
	}, nil)
	require.Error(t, err)

	var linkErr *LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.Equal(t, []string{"petId"}, linkErr.Missing)
	assert.Contains(t, err.Error(), "petId")
	assert.Contains(t, err.Error(), "GetCreatedPet")
}

func TestNewLink_AcceptsBareAndPrefixedPathKeys(t *testing.T) {
	for _, key := range []string{"petId", "path.petId"} {
		t.Run(key, func(t *testing.T) {
			link, err := NewLink("GetCreatedPet", createPet, getPet, map[string]any{
				key: "$response.body#/id",
			}, nil)
			require.NoError(t, err)
			assert.Len(t, link.Parameters, 1)
		})
	}
}

func TestNewLink_RejectsEmptyName(t *testing.T) {
	_, err := NewLink("  ", createPet, getPet, map[string]any{"petId": 1}, nil)
	assert.Error(t, err)
}

func TestNewLink_RejectsInvalidExpression(t *testing.T) {
	_, err := NewLink("Bad", createPet, getPet, map[string]any{"petId": "$response.bogus"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid runtime expression")
}

func TestLink_Locate(t *testing.T) {
	link := MustLink("L", createPet, getPet, map[string]any{"petId": 1}, nil)

	tests := []struct {
		key      string
		wantLoc  ParameterLocation
		wantName string
	}{
		{"petId", LocationPath, "petId"},
		{"path.petId", LocationPath, "petId"},
		{"limit", LocationQuery, "limit"},
		{"query.limit", LocationQuery, "limit"},
		{"header.X-Trace", LocationHeader, "X-Trace"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			loc, name := link.Locate(tt.key)
			assert.Equal(t, tt.wantLoc, loc)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestLink_Apply(t *testing.T) {
	link := MustLink("GetCreatedPet", createPet, getPet, map[string]any{
		"petId":          "$response.body#/id",
		"query.owner":    "$request.body#/owner",
		"header.X-Trace": "$response.header.X-Trace",
	}, map[string]any{"note": "created {$response.body#/name}"})

	producer := Exchange{
		Operation: createPet,
		Request:   HTTPRequest{Method: "POST", Path: "/pets", Body: map[string]any{"owner": "alice"}},
		Response: HTTPResponse{
			Status:  201,
			Headers: map[string]string{"x-trace": "abc"},
			Body:    map[string]any{"id": 42, "name": "Rex"},
		},
	}
	consumer := HTTPRequest{Method: "GET", Path: "/pets/{petId}"}

	out, err := link.Apply(consumer, producer)
	require.NoError(t, err)

	assert.Equal(t, "/pets/42", out.Path)
	assert.Equal(t, "alice", out.Query["owner"])
	assert.Equal(t, "abc", out.Headers["X-Trace"])
	assert.Equal(t, map[string]any{"note": "created Rex"}, out.Body)
	assert.Equal(t, "/pets/{petId}", consumer.Path, "input request must not be modified")
}

func TestLink_ApplyFillsConcretePath(t *testing.T) {
	link := MustLink("L", createPet, getPet, map[string]any{"petId": "$response.body#/id"}, nil)
	producer := Exchange{Response: HTTPResponse{Status: 201, Body: map[string]any{"id": "p-9"}}}

	out, err := link.Apply(HTTPRequest{Method: "GET", Path: "/pets/placeholder"}, producer)
	require.NoError(t, err)
	assert.Equal(t, "/pets/p-9", out.Path)
}

func TestLink_ApplyMissingValue(t *testing.T) {
	link := MustLink("L", createPet, getPet, map[string]any{"petId": "$response.body#/id"}, nil)
	producer := Exchange{Response: HTTPResponse{Status: 201, Body: map[string]any{}}}

	_, err := link.Apply(HTTPRequest{Method: "GET"}, producer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't extract value")
}
