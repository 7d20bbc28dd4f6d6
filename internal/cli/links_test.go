package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinks_Listed(t *testing.T) {
	out, err := execute(t, "links", writeContract(t, petsCUE))
	require.NoError(t, err)

	assert.Contains(t, out, "GetCreatedPet: POST /pets -> 201 (createPet) -> GET /pets/{petId} -> 200 (getPet)")
	assert.Contains(t, out, "petId")
	assert.NotContains(t, out, "✗")
}

func TestLinks_CyclesReported(t *testing.T) {
	out, err := execute(t, "--format", "json", "links", writeContract(t, cyclicCUE))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var result LinksResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Links, 2)
	require.Len(t, result.Cycles, 1)
	assert.Equal(t, []string{"AtoB", "BtoA"}, result.Cycles[0].Links)
}

func TestLinks_ProblemsReported(t *testing.T) {
	// The path template of getPet is never filled without the link.
	src := `package broken

operation: getPet: {method: "GET", path: "/pets/{petId}"}

scenario: [{name: "get pet", operation: "getPet", status: 200}]
`
	out, err := execute(t, "links", writeContract(t, src))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "No links declared.")
	assert.Contains(t, out, "[E104]")
}
