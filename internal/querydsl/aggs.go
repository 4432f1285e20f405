package querydsl

import "github.com/roach88/esq/internal/queryir"

// CompileAggregations serializes an aggregation forest into
// alias → {kind: params, aggs: children}, in sibling declaration order.
//
// Filter nodes compile their scope through CompileScope. Top-hits nodes
// merge the fragment's _source, from, size, sort and highlight sections
// over their scalar params. A repeated alias overwrites the earlier node in
// place.
func (c *Compiler) CompileAggregations(aggs []queryir.Aggregation) *Object {
	out := NewObject()
	for _, agg := range aggs {
		node := Obj(agg.Kind, c.aggregationParams(agg))
		if len(agg.Children) > 0 {
			node.Set("aggs", c.CompileAggregations(agg.Children))
		}
		out.Set(agg.Alias, node)
	}
	return out
}

func (c *Compiler) aggregationParams(agg queryir.Aggregation) any {
	if agg.Filter != nil {
		return c.CompileScope(*agg.Filter)
	}

	params := NewObject().Merge(agg.Params)
	if agg.TopHits != nil {
		c.fragmentSections(agg.TopHits, params)
	}
	return params
}
