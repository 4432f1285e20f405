package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eq(field string, value any, conj Conjunction) Condition {
	return Equality{Placement: Placement{Conjunction: conj}, Field: field, Value: value}
}

func TestScopeRuns_SplitsAtOr(t *testing.T) {
	// A AND B OR C AND D → [A B] [C D]
	scope := Scope{Conditions: []Condition{
		eq("a", 1, And),
		eq("b", 2, And),
		eq("c", 3, Or),
		eq("d", 4, And),
	}}

	runs := scope.Runs()

	require.Len(t, runs, 2)
	assert.Len(t, runs[0], 2)
	assert.Len(t, runs[1], 2)
	assert.Equal(t, "c", runs[1][0].(Equality).Field)
}

func TestScopeRuns_FirstConjunctionIgnored(t *testing.T) {
	scope := Scope{Conditions: []Condition{
		eq("a", 1, Or),
		eq("b", 2, And),
	}}

	runs := scope.Runs()

	require.Len(t, runs, 1, "a leading Or has no left operand")
	assert.Len(t, runs[0], 2)
}

func TestScopeRuns_EachOrStartsRun(t *testing.T) {
	scope := Scope{Conditions: []Condition{
		eq("a", 1, And),
		eq("b", 2, Or),
		eq("c", 3, Or),
	}}

	assert.Len(t, scope.Runs(), 3)
}

func TestScopeRuns_Empty(t *testing.T) {
	assert.Empty(t, Scope{}.Runs())
	assert.True(t, Scope{}.Empty())
}

func TestWithPlacement_ReplacesPlacement(t *testing.T) {
	p := Placement{Conjunction: Or, Negate: true, Filter: true}

	conds := []Condition{
		Equality{Field: "a"},
		TextMatch{Field: "a"},
		MultiFieldMatch{Fields: []string{"a"}},
		Membership{Field: "a"},
		Range{Field: "a"},
		Existence{Field: "a"},
		PatternMatch{Field: "a"},
		NestedPath{Path: "a"},
		Raw{Clause: map[string]any{}},
		Group{},
	}

	for _, c := range conds {
		got := WithPlacement(c, p)
		assert.Equal(t, p, PlacementOf(got), "%T", c)
		assert.Equal(t, Placement{}, PlacementOf(c), "original %T must be untouched", c)
	}
}

func TestIsRangeOp(t *testing.T) {
	for _, op := range []string{">", ">=", "<", "<="} {
		assert.True(t, IsRangeOp(op), op)
	}
	for _, op := range []string{"=", "!=", "<>", "gt", ""} {
		assert.False(t, IsRangeOp(op), op)
	}
}

func TestQuerySpecClone_Independent(t *testing.T) {
	size := 10
	spec := &QuerySpec{
		Source:     []string{"title"},
		Size:       &size,
		Conditions: []Condition{eq("a", 1, And)},
		Highlight:  Highlight{Config: Params{"pre_tags": "<em>"}},
	}

	clone := spec.Clone()
	*clone.Size = 1
	clone.Source[0] = "body"
	clone.Conditions = append(clone.Conditions, eq("b", 2, And))
	clone.Highlight.Config["pre_tags"] = "<b>"

	assert.Equal(t, 10, *spec.Size)
	assert.Equal(t, "title", spec.Source[0])
	assert.Len(t, spec.Conditions, 1)
	assert.Equal(t, "<em>", spec.Highlight.Config["pre_tags"])
}

func TestQuerySpecScopes_ShareMinimumShouldMatch(t *testing.T) {
	spec := &QuerySpec{
		Conditions:         []Condition{eq("a", 1, And)},
		PostConditions:     []Condition{eq("b", 2, And)},
		MinimumShouldMatch: 1,
	}

	assert.Equal(t, 1, spec.QueryScope().MinimumShouldMatch)
	assert.Equal(t, 1, spec.PostFilterScope().MinimumShouldMatch)
	assert.Len(t, spec.PostFilterScope().Conditions, 1)
}
