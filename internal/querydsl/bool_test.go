package querydsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esq/internal/queryir"
)

func term(field string, value any, p queryir.Placement) queryir.Condition {
	return queryir.Equality{Placement: p, Field: field, Value: value}
}

var (
	and = queryir.Placement{}
	or  = queryir.Placement{Conjunction: queryir.Or}
)

func scopeOf(conds ...queryir.Condition) queryir.Scope {
	return queryir.Scope{Conditions: conds}
}

func TestCompileScope_SingleLeaf(t *testing.T) {
	c := NewCompiler()

	got := mustJSON(t, c.CompileScope(scopeOf(term("a", 1, and))))

	assert.Equal(t, `{"term":{"a":1}}`, got)
}

func TestCompileScope_AndOrPrecedence(t *testing.T) {
	c := NewCompiler()

	got := mustJSON(t, c.CompileScope(scopeOf(
		term("a", 1, and),
		term("b", 2, or),
		term("c", 3, and),
	)))

	assert.Equal(t,
		`{"bool":{"should":[{"term":{"a":1}},{"bool":{"must":[{"term":{"b":2}},{"term":{"c":3}}]}}]}}`,
		got)
}

func TestCompileScope_NegatedFilterWildcard(t *testing.T) {
	c := NewCompiler()
	cond := queryir.PatternMatch{
		Placement: queryir.Placement{Negate: true, Filter: true},
		Field:     "name",
		Value:     "jo*",
		Kind:      queryir.Wildcard,
	}

	got := mustJSON(t, c.CompileScope(scopeOf(cond)))

	assert.Equal(t, `{"bool":{"filter":[{"bool":{"must_not":{"wildcard":{"name":{"value":"jo*"}}}}}]}}`, got)
}

func TestCompileScope_RangeScenario(t *testing.T) {
	c := NewCompiler()

	got := mustJSON(t, c.CompileScope(scopeOf(queryir.Range{Field: "age", Positional: []any{18, 30}})))

	assert.Equal(t, `{"range":{"age":{"gte":18,"lte":30}}}`, got)
}

func TestCompileScope_Empty(t *testing.T) {
	c := NewCompiler()

	assert.Equal(t, `{"match_all":{}}`, mustJSON(t, c.CompileScope(queryir.Scope{})))
}

func TestCompileScope_Buckets(t *testing.T) {
	c := NewCompiler()

	got := mustJSON(t, c.CompileScope(scopeOf(
		term("a", 1, and),
		term("b", 2, queryir.Placement{Negate: true}),
		term("c", 3, queryir.Placement{Filter: true}),
		term("d", 4, queryir.Placement{Filter: true, Negate: true}),
	)))

	assert.Equal(t,
		`{"bool":{"must":[{"term":{"a":1}}],"must_not":[{"term":{"b":2}}],"filter":[{"term":{"c":3}},{"bool":{"must_not":{"term":{"d":4}}}}]}}`,
		got)
}

func TestCompileScope_SingleNegatedLeafIsContained(t *testing.T) {
	c := NewCompiler()

	got := mustJSON(t, c.CompileScope(scopeOf(term("a", 1, queryir.Placement{Negate: true}))))

	assert.Equal(t, `{"bool":{"must_not":[{"term":{"a":1}}]}}`, got)
}

func TestCompileScope_LeadingOrIsIgnored(t *testing.T) {
	c := NewCompiler()

	got := mustJSON(t, c.CompileScope(scopeOf(term("a", 1, or), term("b", 2, and))))

	assert.Equal(t, `{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}}]}}`, got)
}

func TestCompileScope_MinimumShouldMatch(t *testing.T) {
	c := NewCompiler()
	scope := scopeOf(term("a", 1, and), term("b", 2, or))
	scope.MinimumShouldMatch = 1

	got := mustJSON(t, c.CompileScope(scope))

	assert.Equal(t, `{"bool":{"should":[{"term":{"a":1}},{"term":{"b":2}}],"minimum_should_match":1}}`, got)
}

func TestCompileScope_MinimumShouldMatchSkipsBareLeaf(t *testing.T) {
	c := NewCompiler()
	scope := scopeOf(term("a", 1, and))
	scope.MinimumShouldMatch = "75%"

	assert.Equal(t, `{"term":{"a":1}}`, mustJSON(t, c.CompileScope(scope)))
}

func TestCompileScope_MinimumShouldMatchLeavesGroupAlone(t *testing.T) {
	c := NewCompiler()
	group := queryir.Group{Scope: scopeOf(term("a", 1, and), term("b", 2, and))}
	scope := scopeOf(group)
	scope.MinimumShouldMatch = 1

	got := mustJSON(t, c.CompileScope(scope))

	assert.Equal(t, `{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}}]}}`, got)
}

func TestCompileScope_GroupInsideOr(t *testing.T) {
	c := NewCompiler()
	group := queryir.Group{
		Placement: or,
		Scope:     scopeOf(term("b", 2, and), term("c", 3, or)),
	}

	got := mustJSON(t, c.CompileScope(scopeOf(term("a", 1, and), group)))

	assert.Equal(t,
		`{"bool":{"should":[{"term":{"a":1}},{"bool":{"should":[{"term":{"b":2}},{"term":{"c":3}}]}}]}}`,
		got)
}

func TestCompileScope_RawKeepsPlacement(t *testing.T) {
	c := NewCompiler()
	raw := queryir.Raw{
		Placement: queryir.Placement{Filter: true},
		Clause:    map[string]any{"ids": map[string]any{"values": []any{"1"}}},
	}

	got := mustJSON(t, c.CompileScope(scopeOf(raw)))

	assert.Equal(t, `{"bool":{"filter":[{"ids":{"values":["1"]}}]}}`, got)
}

func TestCompileScope_DoesNotMutate(t *testing.T) {
	c := NewCompiler()
	scope := scopeOf(term("a", 1, and), term("b", 2, or))
	scope.MinimumShouldMatch = 1

	first := mustJSON(t, c.CompileScope(scope))
	second := mustJSON(t, c.CompileScope(scope))

	assert.Equal(t, first, second)
	assert.Len(t, scope.Conditions, 2)
}

// Property checks over a family of condition lists.

func conditionLists() map[string][]queryir.Condition {
	return map[string][]queryir.Condition{
		"and only":      {term("a", 1, and), term("b", 2, and), term("c", 3, and)},
		"negated":       {term("a", 1, queryir.Placement{Negate: true}), term("b", 2, and)},
		"filters":       {term("a", 1, queryir.Placement{Filter: true}), term("b", 2, queryir.Placement{Filter: true, Negate: true})},
		"one or":        {term("a", 1, and), term("b", 2, or)},
		"two ors":       {term("a", 1, and), term("b", 2, or), term("c", 3, or)},
		"mixed":         {term("a", 1, and), term("b", 2, and), term("c", 3, or), term("d", 4, queryir.Placement{Filter: true})},
		"leading or":    {term("a", 1, or), term("b", 2, and)},
		"single filter": {term("a", 1, queryir.Placement{Filter: true})},
	}
}

func TestCompileScope_ShouldCountMatchesRuns(t *testing.T) {
	c := NewCompiler()

	for name, conds := range conditionLists() {
		t.Run(name, func(t *testing.T) {
			scope := queryir.Scope{Conditions: conds}
			runs := scope.Runs()
			clause := c.CompileScope(scope)

			obj, ok := clause.(*Object)
			require.True(t, ok)

			if len(runs) == 1 {
				assert.NotContains(t, mustJSON(t, clause), `"should"`)
				return
			}

			b, ok := obj.Get("bool")
			require.True(t, ok)
			should, ok := b.(*Object).Get("should")
			require.True(t, ok)
			assert.Len(t, should, len(runs))
		})
	}
}

func TestCompileScope_BucketPlacement(t *testing.T) {
	c := NewCompiler()

	tests := []struct {
		name      string
		placement queryir.Placement
		bucket    string
	}{
		{"filter and negate", queryir.Placement{Filter: true, Negate: true}, `"filter":[{"bool":{"must_not":`},
		{"filter", queryir.Placement{Filter: true}, `"filter":[{"term"`},
		{"negate", queryir.Placement{Negate: true}, `"must_not":[{"term"`},
		{"neither", queryir.Placement{}, `"must":[{"term"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A second plain condition keeps the run from collapsing.
			got := mustJSON(t, c.CompileScope(scopeOf(term("x", 1, tt.placement), term("y", 2, queryir.Placement{Filter: true}))))
			assert.True(t, strings.Contains(got, tt.bucket), got)
		})
	}
}
