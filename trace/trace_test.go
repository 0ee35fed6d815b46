package trace

import (
	"testing"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainCollectorFindsTags(t *testing.T) {
	content := "line one\n// [req(auth.login)]\nfunc Login() {}\n"
	entries, err := NewPlainCollector(content).Collect(nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"auth.login"}, entries[0].RequirementIds)
	assert.Equal(t, 2, entries[0].Line)
	assert.Nil(t, entries[0].Span)
}

func TestPlainCollectorNamespacedTag(t *testing.T) {
	content := "[pkg::requirements(a,b)]\n"
	entries, err := NewPlainCollector(content).Collect(nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"a", "b"}, entries[0].RequirementIds)
}

func TestPlainCollectorNoMatch(t *testing.T) {
	entries, err := NewPlainCollector("nothing here").Collect(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGoMatcherCallExpression(t *testing.T) {
	src := []byte(`package p

func f() {
	req("auth.login")
}
`)
	collector := NewAstCollector(src, golang.GetLanguage(), GoMatcher)
	require.NotNil(t, collector)
	entries, err := collector.Collect(nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"auth.login"}, entries[0].RequirementIds)
}

func TestGoMatcherSpansMultiLineDocComment(t *testing.T) {
	src := []byte(`package p

// Login authenticates a user.
// [req(auth.login)]
// It returns an error on bad credentials.
func Login() {}
`)
	collector := NewAstCollector(src, golang.GetLanguage(), GoMatcher)
	require.NotNil(t, collector)
	entries, err := collector.Collect(nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"auth.login"}, entries[0].RequirementIds)
	require.NotNil(t, entries[0].Span)
	assert.Equal(t, 6, entries[0].Span.Start)
	assert.Equal(t, 6, entries[0].Span.End)
}
