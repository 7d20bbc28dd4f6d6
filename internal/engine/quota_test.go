package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunQuota_Check(t *testing.T) {
	q := NewRunQuota(3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Check("s"), "run %d", i)
	}
	err := q.Check("s")
	require.Error(t, err)

	var rx *RunsExceededError
	require.True(t, errors.As(err, &rx))
	assert.Equal(t, 4, rx.Runs)
	assert.Equal(t, 3, rx.Limit)
	assert.Equal(t, `scenario "s" exceeded max runs quota: 4 runs > 3 limit`, err.Error())
	assert.True(t, IsQuotaError(err))
	assert.Equal(t, 4, q.Current())
	assert.Equal(t, 3, q.MaxRuns())
}

func TestRuntimeError_Helpers(t *testing.T) {
	err := newRuntimeError(ErrCodeLinkResolution, "get pet", "link %q broken", "L")
	assert.Equal(t, `LINK_RESOLUTION: link "L" broken (scenario=get pet)`, err.Error())
	assert.True(t, IsLinkError(err))
	assert.False(t, IsQuotaError(err))

	wrapped := errors.Join(errors.New("ctx"), &RuntimeError{Code: ErrCodeQuotaExceeded, Message: "x"})
	assert.True(t, IsQuotaError(wrapped))
	assert.Equal(t, "QUOTA_EXCEEDED: x", (&RuntimeError{Code: ErrCodeQuotaExceeded, Message: "x"}).Error())
}
