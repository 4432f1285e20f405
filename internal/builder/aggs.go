package builder

import "github.com/roach88/esq/internal/queryir"

// Aggs adds a named aggregation. Each sub callback receives a fresh
// builder whose aggregations become children of this node.
func (b *Builder) Aggs(alias, kind string, params queryir.Params, subs ...func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	if alias == "" {
		return b.failf(ErrInvalidValue, "aggs: empty alias")
	}
	if kind == "" {
		kind = "terms"
	}
	agg := queryir.Aggregation{Alias: alias, Kind: kind, Params: params.Clone()}
	children, ok := b.subAggregations(subs)
	if !ok {
		return b
	}
	agg.Children = children
	return b.addAggregation(agg)
}

// addAggregation appends agg unless a sibling already uses its alias.
func (b *Builder) addAggregation(agg queryir.Aggregation) *Builder {
	for _, existing := range b.spec.Aggregations {
		if existing.Alias == agg.Alias {
			return b.failf(ErrInvalidStructure, "aggs: duplicate alias %q", agg.Alias)
		}
	}
	b.spec.Aggregations = append(b.spec.Aggregations, agg)
	return b
}

func (b *Builder) subAggregations(subs []func(*Builder)) ([]queryir.Aggregation, bool) {
	var children []queryir.Aggregation
	for _, fn := range subs {
		if fn == nil {
			b.failf(ErrInvalidStructure, "aggs: nil sub-aggregation callback")
			return nil, false
		}
		sub, ok := b.run(fn)
		if !ok {
			return nil, false
		}
		children = append(children, sub.spec.Aggregations...)
	}
	return children, true
}

// fieldParams returns {"field": field} overlaid with extra.
func fieldParams(field string, extra queryir.Params) queryir.Params {
	p := queryir.Params{"field": field}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func (b *Builder) metric(kind, field string, params queryir.Params, subs []func(*Builder)) *Builder {
	if field == "" {
		return b.failf(ErrInvalidValue, "%s: empty field", kind)
	}
	return b.Aggs(field+"_"+kind, kind, fieldParams(field, params), subs...)
}

// GroupBy adds a terms aggregation aliased <field>_terms.
func (b *Builder) GroupBy(field string, params queryir.Params, subs ...func(*Builder)) *Builder {
	return b.metric("terms", field, params, subs)
}

// DateGroupBy adds a date_histogram aggregation aliased
// <field>_date_histogram. Empty interval and format default to "day" and
// "yyyy-MM-dd"; min_doc_count defaults to 0.
func (b *Builder) DateGroupBy(field, interval, format string, params queryir.Params, subs ...func(*Builder)) *Builder {
	if interval == "" {
		interval = "day"
	}
	if format == "" {
		format = "yyyy-MM-dd"
	}
	p := queryir.Params{"interval": interval, "format": format, "min_doc_count": 0}
	for k, v := range params {
		p[k] = v
	}
	return b.metric("date_histogram", field, p, subs)
}

// Cardinality adds a cardinality aggregation aliased <field>_cardinality.
func (b *Builder) Cardinality(field string, params queryir.Params) *Builder {
	return b.metric("cardinality", field, params, nil)
}

// Avg adds an avg aggregation aliased <field>_avg.
func (b *Builder) Avg(field string, params queryir.Params) *Builder {
	return b.metric("avg", field, params, nil)
}

// Sum adds a sum aggregation aliased <field>_sum.
func (b *Builder) Sum(field string, params queryir.Params) *Builder {
	return b.metric("sum", field, params, nil)
}

// Min adds a min aggregation aliased <field>_min.
func (b *Builder) Min(field string, params queryir.Params) *Builder {
	return b.metric("min", field, params, nil)
}

// Max adds a max aggregation aliased <field>_max.
func (b *Builder) Max(field string, params queryir.Params) *Builder {
	return b.metric("max", field, params, nil)
}

// Stats adds a stats aggregation aliased <field>_stats.
func (b *Builder) Stats(field string, params queryir.Params) *Builder {
	return b.metric("stats", field, params, nil)
}

// ExtendedStats adds an extended_stats aggregation aliased
// <field>_extended_stats.
func (b *Builder) ExtendedStats(field string, params queryir.Params) *Builder {
	return b.metric("extended_stats", field, params, nil)
}

// TopHits adds a top_hits aggregation. Its body is params overlaid with the
// projection, pagination, sort and highlight built by fn.
func (b *Builder) TopHits(params queryir.Params, fn func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		return b.failf(ErrInvalidStructure, "top hits: nil callback")
	}
	sub, ok := b.run(fn)
	if !ok {
		return b
	}
	return b.addAggregation(queryir.Aggregation{
		Alias:   queryir.KindTopHits,
		Kind:    queryir.KindTopHits,
		Params:  params.Clone(),
		TopHits: sub.spec.Clone(),
	})
}

// TopHitsParams adds a top_hits aggregation with literal params.
func (b *Builder) TopHitsParams(params queryir.Params) *Builder {
	return b.Aggs(queryir.KindTopHits, queryir.KindTopHits, params)
}

// AggsFilter adds a filter aggregation whose scope is built by fn.
func (b *Builder) AggsFilter(alias string, fn func(*Builder), subs ...func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	if alias == "" {
		return b.failf(ErrInvalidValue, "aggs filter: empty alias")
	}
	if fn == nil {
		return b.failf(ErrInvalidStructure, "aggs filter %q: nil callback", alias)
	}
	sub, ok := b.run(fn)
	if !ok {
		return b
	}
	children, ok := b.subAggregations(subs)
	if !ok {
		return b
	}
	scope := sub.spec.QueryScope()
	return b.addAggregation(queryir.Aggregation{
		Alias:    alias,
		Kind:     queryir.KindFilter,
		Filter:   &scope,
		Children: children,
	})
}
