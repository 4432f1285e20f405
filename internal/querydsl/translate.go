package querydsl

import (
	"fmt"

	"github.com/roach88/esq/internal/queryir"
)

var rangeNames = map[queryir.RangeOp]string{
	queryir.GT:  "gt",
	queryir.GTE: "gte",
	queryir.LT:  "lt",
	queryir.LTE: "lte",
}

// Translate maps one condition to its clause.
//
// Leaf conditions in a non-scoring, negated placement come back wrapped as
// {"bool":{"must_not": leaf}} so they can sit in a filter bucket. Groups
// are compiled as sub-scopes and negate themselves.
func (c *Compiler) Translate(cond queryir.Condition) any {
	if g, ok := cond.(queryir.Group); ok {
		return c.compileScope(g.Scope, g.Filter && g.Negate)
	}

	leaf := c.translateLeaf(cond)
	p := queryir.PlacementOf(cond)
	if p.Filter && p.Negate {
		return Obj("bool", Obj("must_not", leaf))
	}
	return leaf
}

func (c *Compiler) translateLeaf(cond queryir.Condition) any {
	switch cd := cond.(type) {
	case queryir.Equality:
		return Obj("term", Obj(cd.Field, cd.Value))

	case queryir.TextMatch:
		kind := cd.Kind
		if kind == "" {
			kind = queryir.Match
		}
		body := Obj("query", cd.Value).Merge(cd.Params)
		return Obj(string(kind), Obj(cd.Field, body))

	case queryir.MultiFieldMatch:
		typ := cd.Type
		if typ == "" {
			typ = "best_fields"
		}
		body := NewObject().
			Set("query", cd.Value).
			Set("type", typ).
			Set("fields", nonNilStrings(cd.Fields)).
			Merge(cd.Params)
		return Obj("multi_match", body)

	case queryir.Membership:
		return Obj("terms", Obj(cd.Field, nonNilValues(cd.Values)))

	case queryir.Range:
		return Obj("range", Obj(cd.Field, rangeBounds(cd)))

	case queryir.Existence:
		return Obj("exists", Obj("field", cd.Field))

	case queryir.PatternMatch:
		body := Obj("value", cd.Value).Merge(cd.Params)
		return Obj(string(cd.Kind), Obj(cd.Field, body))

	case queryir.NestedPath:
		// Negation of a nested condition is applied once, on the leaf.
		body := NewObject().
			Set("path", cd.Path).
			Set("query", c.compileScope(cd.Scope, false)).
			Merge(cd.Params)
		return Obj("nested", body)

	case queryir.Raw:
		return cd.Clause

	default:
		panic(fmt.Sprintf("querydsl: unsupported condition type %T", cond))
	}
}

// rangeBounds folds positional and keyed bounds into gt/gte/lt/lte order.
// Positional index 0 is the inclusive lower bound, any later index the
// inclusive upper bound.
func rangeBounds(r queryir.Range) *Object {
	bounds := make(map[queryir.RangeOp]any, len(r.Bounds)+len(r.Positional))
	for i, v := range r.Positional {
		if i == 0 {
			bounds[queryir.GTE] = v
		} else {
			bounds[queryir.LTE] = v
		}
	}
	for op, v := range r.Bounds {
		bounds[op] = v
	}

	out := NewObject()
	for _, op := range queryir.RangeOps {
		if v, ok := bounds[op]; ok {
			out.Set(rangeNames[op], v)
		}
	}
	return out
}

func nonNilValues(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
