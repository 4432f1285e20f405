// Package querydsl compiles QueryIR condition scopes, aggregation forests and
// query specs into search-engine request documents.
package querydsl

import "github.com/roach88/esq/internal/queryir"

// Compiler turns a QuerySpec into a search document.
//
// Compilation is pure and total: it never mutates the spec, never fails on
// a spec built by the builder, and compiling the same spec twice yields the
// same document. A Compiler has no state and is safe for concurrent use.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile assembles the document sections in fixed order, emitting only
// the ones that are set:
//
//	_source, collapse, from, size, sort, query, post_filter, aggs,
//	highlight, min_score
//
// A raw override replaces the whole document and skips compilation.
func (c *Compiler) Compile(spec *queryir.QuerySpec) Document {
	if spec == nil {
		return Document{root: NewObject()}
	}
	if spec.Raw != nil {
		return Document{root: spec.Raw}
	}

	doc := NewObject()
	if len(spec.Source) > 0 {
		doc.Set("_source", spec.Source)
	}
	if spec.Collapse != nil {
		doc.Set("collapse", Obj("field", spec.Collapse.Field).Merge(spec.Collapse.Params))
	}
	if spec.From != nil {
		doc.Set("from", *spec.From)
	}
	if spec.Size != nil {
		doc.Set("size", *spec.Size)
	}
	if len(spec.Sort) > 0 {
		doc.Set("sort", compileSort(spec.Sort))
	}
	if len(spec.Conditions) > 0 {
		doc.Set("query", c.CompileScope(spec.QueryScope()))
	}
	if len(spec.PostConditions) > 0 {
		doc.Set("post_filter", c.CompileScope(spec.PostFilterScope()))
	}
	if len(spec.Aggregations) > 0 {
		doc.Set("aggs", c.CompileAggregations(spec.Aggregations))
	}
	if len(spec.Highlight.Fields) > 0 {
		doc.Set("highlight", compileHighlight(spec.Highlight))
	}
	if spec.MinScore != nil {
		doc.Set("min_score", *spec.MinScore)
	}
	return Document{root: doc}
}

// fragmentSections copies a top-hits fragment's sections onto params.
func (c *Compiler) fragmentSections(spec *queryir.QuerySpec, params *Object) {
	if len(spec.Source) > 0 {
		params.Set("_source", spec.Source)
	}
	if spec.From != nil {
		params.Set("from", *spec.From)
	}
	if spec.Size != nil {
		params.Set("size", *spec.Size)
	}
	if len(spec.Sort) > 0 {
		params.Set("sort", compileSort(spec.Sort))
	}
	if len(spec.Highlight.Fields) > 0 {
		params.Set("highlight", compileHighlight(spec.Highlight))
	}
}

func compileSort(orders []queryir.Order) *Object {
	out := NewObject()
	for _, o := range orders {
		if len(o.Spec) > 0 {
			out.Set(o.Field, NewObject().Merge(o.Spec))
			continue
		}
		out.Set(o.Field, Obj("order", o.Direction))
	}
	return out
}

// compileHighlight merges the global config with per-field overrides.
// Fields using engine defaults serialize as {}.
func compileHighlight(h queryir.Highlight) *Object {
	out := NewObject().Merge(h.Config)
	fields := NewObject()
	for _, f := range h.Fields {
		if f.Mode == queryir.UseDefaults || len(f.Params) == 0 {
			fields.Set(f.Field, NewObject())
			continue
		}
		fields.Set(f.Field, NewObject().Merge(f.Params))
	}
	out.Set("fields", fields)
	return out
}
