package async

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkHeader(t *testing.T) {
	links, err := ParseLinkHeader(`</monitor/123>;rel=related;title=monitor, <https://h/x?a=1,2>; REL="next prev"; title="a; b"`)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "/monitor/123", links[0].URL)
	assert.Equal(t, "related", links[0].Rel)
	assert.Equal(t, "monitor", links[0].Title)

	assert.Equal(t, "https://h/x?a=1,2", links[1].URL)
	assert.Equal(t, "next prev", links[1].Rel)
	assert.Equal(t, "a; b", links[1].Title)

	l, ok := FindLink(links, "PREV")
	require.True(t, ok)
	assert.Equal(t, "https://h/x?a=1,2", l.URL)
	_, ok = FindLink(links, "self")
	assert.False(t, ok)
}

func TestParseLinkHeader_Errors(t *testing.T) {
	for _, h := range []string{"monitor/123; rel=related", "</monitor/123; rel=related"} {
		_, err := ParseLinkHeader(h)
		assert.Error(t, err, h)
	}
	links, err := ParseLinkHeader("")
	require.NoError(t, err)
	assert.Empty(t, links)
}
