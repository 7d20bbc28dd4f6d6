package async

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorSchema_Reflected(t *testing.T) {
	data, err := MonitorSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, monitorSchemaID, doc["$id"])
	assert.Contains(t, string(data), "MonitorResponse")
}

func TestDecodeMonitorResult(t *testing.T) {
	res, problems, err := DecodeMonitorResult(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.True(t, res.Pending())

	res, problems, err = DecodeMonitorResult(`{"response": {"status": 204}}`)
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.False(t, res.Pending())
	assert.Equal(t, 204, res.Response.Status)

	_, problems, err = DecodeMonitorResult("not json")
	require.NoError(t, err)
	assert.Equal(t, []string{"body: not a JSON document"}, problems)

	_, problems, err = DecodeMonitorResult(map[string]any{"response": map[string]any{"status": 42.0}})
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "/response/status")
}
