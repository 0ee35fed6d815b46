package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchDisjointSpans(t *testing.T) {
	tree := NewTree([]Span{
		{Start: 10, End: 15, RequirementId: "first", TraceLine: 8},
		{Start: 20, End: 25, RequirementId: "second", TraceLine: 18},
	})
	got := tree.Match([]int{15, 24, 30})
	assert.Equal(t, []CoveredFileTrace{
		{TraceLine: 18, RequirementIds: []string{"second"}},
	}, got)
}

func TestMatchNestedSpans(t *testing.T) {
	tree := NewTree([]Span{
		{Start: 10, End: 25, RequirementId: "outer", TraceLine: 8},
		{Start: 20, End: 24, RequirementId: "inner", TraceLine: 18},
	})
	got := tree.Match([]int{20})
	assert.Equal(t, []CoveredFileTrace{
		{TraceLine: 8, RequirementIds: []string{"outer"}},
		{TraceLine: 18, RequirementIds: []string{"inner"}},
	}, got)
}

func TestMatchEndExclusive(t *testing.T) {
	tree := NewTree([]Span{{Start: 10, End: 15, RequirementId: "r", TraceLine: 10}})
	assert.Empty(t, tree.Match([]int{15}))
	assert.NotEmpty(t, tree.Match([]int{14}))
}

func TestMatchDedupesRequirementIds(t *testing.T) {
	tree := NewTree([]Span{
		{Start: 1, End: 5, RequirementId: "r", TraceLine: 1},
	})
	got := tree.Match([]int{2, 3, 4})
	assert.Equal(t, []CoveredFileTrace{{TraceLine: 1, RequirementIds: []string{"r"}}}, got)
}
