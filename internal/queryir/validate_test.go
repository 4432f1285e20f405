package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_CleanSpec(t *testing.T) {
	spec := &QuerySpec{
		Conditions: []Condition{
			Equality{Field: "status", Value: "active"},
			Range{Field: "age", Positional: []any{18, 30}},
			NestedPath{Path: "comments", Scope: Scope{Conditions: []Condition{
				Existence{Field: "comments.author"},
			}}},
		},
		Aggregations: []Aggregation{
			{Alias: "status_terms", Kind: "terms", Params: Params{"field": "status"}},
			{Alias: "recent", Kind: KindFilter, Filter: &Scope{}},
		},
	}

	result := Validate(spec)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_NilSpec(t *testing.T) {
	result := Validate(nil)

	assert.False(t, result.Valid)
	assert.Len(t, result.Problems, 1)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		spec *QuerySpec
		want string
	}{
		{
			name: "empty field",
			spec: &QuerySpec{Conditions: []Condition{Equality{Value: 1}}},
			want: "query[0].term: empty field",
		},
		{
			name: "range without bounds",
			spec: &QuerySpec{Conditions: []Condition{Range{Field: "age"}}},
			want: "query[0].range: no bounds",
		},
		{
			name: "too many positional bounds",
			spec: &QuerySpec{Conditions: []Condition{Range{Field: "age", Positional: []any{1, 2, 3}}}},
			want: "query[0].range: 3 positional bounds, at most 2 allowed",
		},
		{
			name: "unknown range operator",
			spec: &QuerySpec{Conditions: []Condition{Range{Field: "age", Bounds: map[RangeOp]any{"=": 1}}}},
			want: `query[0].range: unknown operator "="`,
		},
		{
			name: "multi match without fields",
			spec: &QuerySpec{PostConditions: []Condition{MultiFieldMatch{Value: "go"}}},
			want: "post_filter[0].multi_match: no fields",
		},
		{
			name: "nested leaf inside group",
			spec: &QuerySpec{Conditions: []Condition{Group{Scope: Scope{Conditions: []Condition{Existence{}}}}}},
			want: "query[0].group[0].exists: empty field",
		},
		{
			name: "empty group",
			spec: &QuerySpec{Conditions: []Condition{Group{}}},
			want: "query[0].group: empty group",
		},
		{
			name: "duplicate sibling alias",
			spec: &QuerySpec{Aggregations: []Aggregation{
				{Alias: "a", Kind: "terms"},
				{Alias: "a", Kind: "avg"},
			}},
			want: `aggs[1]: duplicate alias "a"`,
		},
		{
			name: "filter aggregation without scope",
			spec: &QuerySpec{Aggregations: []Aggregation{{Alias: "f", Kind: KindFilter}}},
			want: "aggs[0]: filter aggregation without conditions",
		},
		{
			name: "child alias problem",
			spec: &QuerySpec{Aggregations: []Aggregation{
				{Alias: "a", Kind: "terms", Children: []Aggregation{{Kind: "avg"}}},
			}},
			want: "aggs[0].aggs[0]: empty alias",
		},
		{
			name: "top hits fragment",
			spec: &QuerySpec{Aggregations: []Aggregation{
				{Alias: "top_hits", Kind: KindTopHits, TopHits: &QuerySpec{Sort: []Order{{Direction: "desc"}}}},
			}},
			want: "aggs[0].top_hits.sort[0]: empty field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.spec)

			assert.False(t, result.Valid)
			assert.Contains(t, result.Problems, tt.want)
		})
	}
}

func TestValidate_SameAliasAtDifferentLevels(t *testing.T) {
	spec := &QuerySpec{Aggregations: []Aggregation{
		{Alias: "a", Kind: "terms", Children: []Aggregation{{Alias: "a", Kind: "avg"}}},
	}}

	assert.True(t, Validate(spec).Valid, "aliases only need to be unique among siblings")
}
