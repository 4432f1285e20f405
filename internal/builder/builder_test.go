package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esq/internal/queryir"
)

func compact(t *testing.T, b *Builder) string {
	t.Helper()
	doc, err := b.Build()
	require.NoError(t, err)
	data, err := doc.Bytes()
	require.NoError(t, err)
	return string(data)
}

func TestWhere_Equality(t *testing.T) {
	got := compact(t, New().Where("a", "=", 1))

	assert.Equal(t, `{"query":{"term":{"a":1}}}`, got)
}

func TestWhere_AndBindsTighterThanOr(t *testing.T) {
	got := compact(t, New().
		Where("a", "=", 1).
		OrWhere("b", "=", 2).
		Where("c", "=", 3))

	assert.Equal(t,
		`{"query":{"bool":{"should":[{"term":{"a":1}},{"bool":{"must":[{"term":{"b":2}},{"term":{"c":3}}]}}]}}}`,
		got)
}

func TestWhere_MixedPlacements(t *testing.T) {
	got := compact(t, New().
		Where("status", "=", "active").
		Where("price", "<", 100, InFilter()).
		OrWhere("featured", "=", true))

	assert.Equal(t,
		`{"query":{"bool":{"should":[`+
			`{"bool":{"must":[{"term":{"status":"active"}}],"filter":[{"range":{"price":{"lt":100}}}]}},`+
			`{"term":{"featured":true}}]}}}`,
		got)
}

func TestWhere_OperatorResolution(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Builder) *Builder
		want  queryir.Condition
	}{
		{
			name:  "equals",
			build: func(b *Builder) *Builder { return b.Where("a", "=", "x") },
			want:  queryir.Equality{Field: "a", Value: "x"},
		},
		{
			name:  "not equals negates",
			build: func(b *Builder) *Builder { return b.Where("a", "!=", "x") },
			want:  queryir.Equality{Placement: queryir.Placement{Negate: true}, Field: "a", Value: "x"},
		},
		{
			name:  "diamond on WhereNot cancels out",
			build: func(b *Builder) *Builder { return b.WhereNot("a", "<>", "x") },
			want:  queryir.Equality{Field: "a", Value: "x"},
		},
		{
			name:  "slice becomes membership",
			build: func(b *Builder) *Builder { return b.Where("tags", "=", []string{"go", "es"}) },
			want:  queryir.Membership{Field: "tags", Values: []any{"go", "es"}},
		},
		{
			name:  "comparison becomes range",
			build: func(b *Builder) *Builder { return b.Filter("age", ">=", 18) },
			want: queryir.Range{
				Placement: queryir.Placement{Filter: true},
				Field:     "age",
				Bounds:    map[queryir.RangeOp]any{queryir.GTE: 18},
			},
		},
		{
			name:  "or filter not",
			build: func(b *Builder) *Builder { return b.OrFilterNot("a", "=", 1) },
			want: queryir.Equality{
				Placement: queryir.Placement{Conjunction: queryir.Or, Negate: true, Filter: true},
				Field:     "a",
				Value:     1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.build(New()).Spec()
			require.NoError(t, err)
			require.Len(t, spec.Conditions, 1)
			assert.Equal(t, tt.want, spec.Conditions[0])
		})
	}
}

func TestWhere_NegatedMembership(t *testing.T) {
	got := compact(t, New().Where("tags", "!=", []string{"a", "b"}))

	assert.Equal(t, `{"query":{"bool":{"must_not":[{"terms":{"tags":["a","b"]}}]}}}`, got)
}

func TestWhere_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Builder) *Builder
		want  error
	}{
		{"unknown operator", func(b *Builder) *Builder { return b.Where("a", "~", 1) }, ErrInvalidOperator},
		{"comparison without value", func(b *Builder) *Builder { return b.Where("a", ">", nil) }, ErrInvalidValue},
		{"list with comparison", func(b *Builder) *Builder { return b.Where("a", "<", []int{1, 2}) }, ErrInvalidOperator},
		{"empty field", func(b *Builder) *Builder { return b.Where("", "=", 1) }, ErrInvalidValue},
		{"range with unknown op", func(b *Builder) *Builder { return b.WhereRange("a", map[string]any{"=": 1}) }, ErrInvalidOperator},
		{"in without list", func(b *Builder) *Builder { return b.WhereIn("a", 1) }, ErrInvalidValue},
		{"range bound without value", func(b *Builder) *Builder { return b.WhereRange("a", map[string]any{">": nil}) }, ErrInvalidValue},
		{"between without lower bound", func(b *Builder) *Builder { return b.WhereBetween("a", nil, 10) }, ErrInvalidValue},
		{"between without upper bound", func(b *Builder) *Builder { return b.WhereBetween("a", 1, nil) }, ErrInvalidValue},
		{"where list entry too short", func(b *Builder) *Builder { return b.WhereList([][]any{{"a"}}) }, ErrInvalidStructure},
		{"where list field not string", func(b *Builder) *Builder { return b.WhereList([][]any{{1, "=", 2}}) }, ErrInvalidStructure},
		{"where list unknown operator", func(b *Builder) *Builder { return b.WhereList([][]any{{"a", "~", 1}}) }, ErrInvalidOperator},
		{"malformed raw", func(b *Builder) *Builder { return b.WhereRaw(`{"term":`) }, ErrInvalidValue},
		{"nil group", func(b *Builder) *Builder { return b.WhereGroup(nil) }, ErrInvalidStructure},
		{"empty field map", func(b *Builder) *Builder { return b.WhereFields(nil) }, ErrInvalidStructure},
		{"nil nested callback", func(b *Builder) *Builder { return b.WhereNested("p", nil, nil) }, ErrInvalidStructure},
		{"nil top hits", func(b *Builder) *Builder { return b.TopHits(nil, nil) }, ErrInvalidStructure},
		{"unknown match kind", func(b *Builder) *Builder { return b.WhereMatch("a", "x", "fuzzy_match", nil) }, ErrInvalidOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(New())

			assert.ErrorIs(t, b.Err(), tt.want)

			_, err := b.Spec()
			assert.ErrorIs(t, err, tt.want)
			_, err = b.Build()
			assert.ErrorIs(t, err, tt.want)
			_, err = b.JSON()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuilder_FirstErrorSticks(t *testing.T) {
	b := New().
		Where("a", "=", 1).
		Where("b", "~", 2).
		Where("c", ">", nil).
		Where("d", "=", 4)

	require.ErrorIs(t, b.Err(), ErrInvalidOperator)
	assert.Len(t, b.spec.Conditions, 1)
}

func TestBuilder_SubBuilderErrorPropagates(t *testing.T) {
	b := New().WhereGroup(func(q *Builder) {
		q.Where("a", "=", 1).Where("b", "<", []string{"x"})
	})

	require.ErrorIs(t, b.Err(), ErrInvalidOperator)
	assert.Empty(t, b.spec.Conditions)
}

func TestWhereFields_SortedGroup(t *testing.T) {
	got := compact(t, New().WhereFields(map[string]any{"b": 2, "a": 1}))

	assert.Equal(t, `{"query":{"bool":{"must":[{"term":{"a":1}},{"term":{"b":2}}]}}}`, got)
}

func TestWhereGroup_EmptyIsDropped(t *testing.T) {
	b := New().WhereGroup(func(*Builder) {})

	require.NoError(t, b.Err())
	assert.Equal(t, `{}`, compact(t, b))
}

func TestWhereGroup_NegatedFilterGroup(t *testing.T) {
	got := compact(t, New().WhereGroup(func(q *Builder) {
		q.Where("a", "=", 1).OrWhere("b", "=", 2)
	}, InFilter(), Not()))

	assert.Equal(t,
		`{"query":{"bool":{"filter":[{"bool":{"must_not":{"bool":{"should":[{"term":{"a":1}},{"term":{"b":2}}]}}}}]}}}`,
		got)
}

func TestWhereWildcard_NegatedFilter(t *testing.T) {
	got := compact(t, New().WhereWildcard("name", "jo*", nil, InFilter(), Not()))

	assert.Equal(t, `{"query":{"bool":{"filter":[{"bool":{"must_not":{"wildcard":{"name":{"value":"jo*"}}}}}]}}}`, got)
}

func TestWhereBetween(t *testing.T) {
	got := compact(t, New().WhereBetween("age", 18, 30))

	assert.Equal(t, `{"query":{"range":{"age":{"gte":18,"lte":30}}}}`, got)
}

func TestWhereMatchFamily(t *testing.T) {
	got := compact(t, New().
		WhereMatch("title", "quick fox", queryir.Phrase, queryir.Params{"slop": 2}).
		WhereMultiMatch([]string{"title", "body"}, "fox", "", nil).
		WhereExists("author").
		WherePrefix("sku", "AB", nil).
		WhereFuzzy("name", "jon", queryir.Params{"fuzziness": "AUTO"}).
		WhereRegexp("code", "x.*", nil))

	assert.Equal(t, `{"query":{"bool":{"must":[`+
		`{"match_phrase":{"title":{"query":"quick fox","slop":2}}},`+
		`{"multi_match":{"query":"fox","type":"best_fields","fields":["title","body"]}},`+
		`{"exists":{"field":"author"}},`+
		`{"prefix":{"sku":{"value":"AB"}}},`+
		`{"fuzzy":{"name":{"value":"jon","fuzziness":"AUTO"}}},`+
		`{"regexp":{"code":{"value":"x.*"}}}]}}}`, got)
}

func TestWhereNested(t *testing.T) {
	got := compact(t, New().WhereNested("comments", func(q *Builder) {
		q.Where("comments.author", "=", "ann")
	}, queryir.Params{"score_mode": "avg"}))

	assert.Equal(t,
		`{"query":{"nested":{"path":"comments","query":{"term":{"comments.author":"ann"}},"score_mode":"avg"}}}`,
		got)
}

func TestWhereRaw(t *testing.T) {
	tests := []struct {
		name   string
		clause any
	}{
		{"json text", `{"ids":{"values":[1,2]}}`},
		{"json bytes", []byte(`{"ids":{"values":[1,2]}}`)},
		{"value", map[string]any{"ids": map[string]any{"values": []int{1, 2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compact(t, New().WhereRaw(tt.clause))
			assert.Equal(t, `{"query":{"ids":{"values":[1,2]}}}`, got)
		})
	}
}

func TestPostWhereAndPostFilter(t *testing.T) {
	got := compact(t, New().
		Where("title", "=", "shoe").
		PostWhere("color", "=", "red").
		PostFilter(func(q *Builder) { q.Where("size", ">", 40) }))

	assert.Equal(t,
		`{"query":{"term":{"title":"shoe"}},"post_filter":{"bool":{"must":[{"term":{"color":"red"}},{"range":{"size":{"gt":40}}}]}}}`,
		got)
}

func TestWhen(t *testing.T) {
	apply := func(q *Builder) { q.Where("a", "=", 1) }
	other := func(q *Builder) { q.Where("b", "=", 2) }

	assert.Equal(t, `{"query":{"term":{"a":1}}}`, compact(t, New().When(true, apply, other)))
	assert.Equal(t, `{"query":{"term":{"b":2}}}`, compact(t, New().When(false, apply, other)))
	assert.Equal(t, `{}`, compact(t, New().When(false, apply, nil)))
}

func TestSetters(t *testing.T) {
	got := compact(t, New().
		Index("products").
		Select("title", "price").
		Collapse("sku", nil).
		From(10).
		Size(5).
		OrderBy("price", "").
		OrderBy("_score", "desc").
		OrderBy("price", "desc").
		Highlight("title", nil).
		HighlightConfig(queryir.Params{"pre_tags": []string{"<em>"}}).
		MinScore(1.5))

	assert.Equal(t, `{"_source":["title","price"],"collapse":{"field":"sku"},"from":10,"size":5,`+
		`"sort":{"price":{"order":"desc"},"_score":{"order":"desc"}},`+
		`"highlight":{"pre_tags":["<em>"],"fields":{"title":{}}},"min_score":1.5}`, got)
}

func TestScroll(t *testing.T) {
	spec, err := New().ScrollID("abc").Spec()
	require.NoError(t, err)
	assert.Equal(t, DefaultScroll, spec.Scroll)
	assert.Equal(t, "abc", spec.ScrollID)

	spec, err = New().Scroll("5m").ScrollID("abc").Spec()
	require.NoError(t, err)
	assert.Equal(t, "5m", spec.Scroll)
}

func TestRaw_ReplacesDocument(t *testing.T) {
	got := compact(t, New().Where("a", "=", 1).Size(3).Raw(`{"query":{"match_all":{}}}`))

	assert.Equal(t, `{"query":{"match_all":{}}}`, got)
}

func TestJSON_Pretty(t *testing.T) {
	got, err := New().Where("a", "=", 1).JSON()
	require.NoError(t, err)

	assert.Equal(t, "{\n    \"query\": {\n        \"term\": {\n            \"a\": 1\n        }\n    }\n}", got)
}

func TestSpec_ReturnsCopy(t *testing.T) {
	b := New().Where("a", "=", 1)
	spec, err := b.Spec()
	require.NoError(t, err)

	spec.Conditions = append(spec.Conditions, queryir.Existence{Field: "x"})

	assert.Len(t, b.spec.Conditions, 1)
}

func TestBuild_Idempotent(t *testing.T) {
	b := New().Where("a", "=", 1).OrWhere("b", "=", 2).GroupBy("c", nil)

	assert.Equal(t, compact(t, b), compact(t, b))
}

func TestWhereList(t *testing.T) {
	got := compact(t, New().WhereList([][]any{
		{"status", "active"},
		{"age", ">=", 18},
		{"role", "!=", "guest"},
	}))

	assert.Equal(t,
		`{"query":{"bool":{"must":[{"term":{"status":"active"}},{"range":{"age":{"gte":18}}}],`+
			`"must_not":[{"term":{"role":"guest"}}]}}}`,
		got)
}

func TestWhereGroup_KeepsMinimumShouldMatch(t *testing.T) {
	got := compact(t, New().
		Where("a", "=", 1).
		WhereGroup(func(q *Builder) {
			q.Where("b", "=", 2).OrWhere("c", "=", 3).MinimumShouldMatch(1)
		}))

	assert.Equal(t,
		`{"query":{"bool":{"must":[{"term":{"a":1}},`+
			`{"bool":{"should":[{"term":{"b":2}},{"term":{"c":3}}],"minimum_should_match":1}}]}}}`,
		got)
}

func TestWhereNested_KeepsMinimumShouldMatch(t *testing.T) {
	got := compact(t, New().WhereNested("comments", func(q *Builder) {
		q.Where("x", "=", 1).OrWhere("y", "=", 2).MinimumShouldMatch("50%")
	}, nil))

	assert.Equal(t,
		`{"query":{"nested":{"path":"comments","query":`+
			`{"bool":{"should":[{"term":{"x":1}},{"term":{"y":2}}],"minimum_should_match":"50%"}}}}}`,
		got)
}
