package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdsRoundTrip(t *testing.T) {
	ids, err := ParseIds("a,b,c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestParseIdsHierarchical(t *testing.T) {
	ids, err := ParseIds("auth.login, auth.logout")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.login", "auth.logout"}, ids)
}

func TestParseIdsLeadingDot(t *testing.T) {
	_, err := ParseIds(".auth")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not start with '.'")
}

func TestParseIdsTrailingDot(t *testing.T) {
	_, err := ParseIds("auth.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not end with '.'")
}

func TestParseIdsEmptyBetweenCommas(t *testing.T) {
	_, err := ParseIds("auth,,login")
	require.Error(t, err)
}

func TestParseIdsQuotedSegment(t *testing.T) {
	ids, err := ParseIds(`auth."weird id", plain`)
	require.NoError(t, err)
	assert.Equal(t, []string{"auth.weird id", "plain"}, ids)
}

func TestParseIdsQuotedSegmentTrailingDot(t *testing.T) {
	_, err := ParseIds(`auth."weird."`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quoted IDs must not end with '.'")
}

func TestParseIdsForbiddenQuote(t *testing.T) {
	_, err := ParseIds(`auth."login`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not contain")
}

func TestParseIdsForbiddenGrouping(t *testing.T) {
	for _, raw := range []string{"auth(login)", "auth[login]", "auth{login}"} {
		_, err := ParseIds(raw)
		require.Error(t, err, raw)
		assert.Contains(t, err.Error(), "not allowed as part of a requirement ID")
	}
}
