package wiki

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFromReaderBasicHeading(t *testing.T) {
	content := "# `auth.login`: User login\n\nSome body text.\n"
	reqs, err := CollectFromReader(strings.NewReader(content), "svc/auth", nil)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "auth.login", reqs[0].Id)
	assert.Equal(t, "User login", reqs[0].Title)
	assert.False(t, reqs[0].Manual)
	assert.False(t, reqs[0].Deprecated)
}

func TestCollectFromReaderDeprecatedMarker(t *testing.T) {
	content := "# `auth.login`(deprecated): User login\n"
	reqs, err := CollectFromReader(strings.NewReader(content), "svc/auth", nil)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Deprecated)
}

func TestCollectFromReaderSkipsVerbatimBlocks(t *testing.T) {
	content := "```\n# `fake.id`: not a heading\n```\n# `real.id`: Real heading\n"
	reqs, err := CollectFromReader(strings.NewReader(content), "svc/auth", nil)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "real.id", reqs[0].Id)
}

func TestCollectFromReaderVersionGateIgnoresNewerMarker(t *testing.T) {
	content := "## `x.y`(v3:deprecated): Title\n"
	gate := 2
	reqs, err := CollectFromReader(strings.NewReader(content), "o", &gate)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].Deprecated, "gate older than heading version must discard the marker")
}

func TestCollectFromReaderVersionGateKeepsOlderMarker(t *testing.T) {
	content := "## `x.y`(v1:deprecated): Title\n"
	gate := 3
	reqs, err := CollectFromReader(strings.NewReader(content), "o", &gate)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Deprecated)
}

func TestCollectFromReaderIdempotent(t *testing.T) {
	content := "# `a.b`(manual): Some title\n"
	r1, err := CollectFromReader(strings.NewReader(content), "o", nil)
	require.NoError(t, err)
	r2, err := CollectFromReader(strings.NewReader(content), "o", nil)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
