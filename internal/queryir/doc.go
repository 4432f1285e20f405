// Package queryir provides the condition model for esq's search query
// builder.
//
// QueryIR is the boundary between the fluent accumulation layer
// (internal/builder, query-spec files) and the document compiler
// (internal/querydsl). Builders only append to it; the compiler only reads
// it.
//
// ARCHITECTURE:
//
//	[builder calls] → [QuerySpec] → [querydsl compiler] → [search document]
//	[spec files]    ↗
//
// CONDITIONS:
//
// A Condition is one predicate plus its logical placement:
//   - Conjunction: And or Or, relative to the previous condition
//   - Negate: the predicate must not hold
//   - Filter: non-scoring context (does not affect relevance)
//
// The zero Placement is a scoring, non-negated And condition.
// The first condition's conjunction is ignored; there is no left operand.
//
// Condition variants:
//   - Equality: exact value on one field
//   - TextMatch: analyzed match, phrase or phrase-prefix on one field
//   - MultiFieldMatch: analyzed match across several fields
//   - Membership: field value in a set
//   - Range: bounded comparison, keyed or positional
//   - Existence: field present
//   - PatternMatch: prefix, wildcard, regexp or fuzzy
//   - NestedPath: sub-scope evaluated against a nested document path
//   - Raw: pre-built clause passed through verbatim
//   - Group: parenthesized sub-scope
//
// SEALED INTERFACES:
//
// Condition is a sealed interface using the marker method pattern. Only
// types in this package implement it, so compilers can switch over the
// variants exhaustively:
//
//	switch c := cond.(type) {
//	case Equality:
//	    // term leaf
//	case Group:
//	    // recurse
//	default:
//	    // unreachable
//	}
//
// AGGREGATIONS:
//
// Aggregation is a named node with a kind, scalar parameters, and ordered
// children. Filter-kind nodes carry a Scope instead of scalar parameters;
// top_hits nodes may carry a secondary QuerySpec fragment.
//
// LIFECYCLE:
//
// A QuerySpec starts empty and is mutated only by the builder. Compiling it
// never mutates it, so compiling twice yields the same document.
package queryir
