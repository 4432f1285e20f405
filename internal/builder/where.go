package builder

import (
	"fmt"
	"sort"

	"github.com/roach88/esq/internal/queryir"
)

// Supported Where operators.
var operators = map[string]bool{
	"=": true, ">": true, "<": true, ">=": true, "<=": true, "!=": true, "<>": true,
}

// Where adds a comparison condition.
//
// Operators are = > < >= <= != and <>. != and <> negate the condition.
// A slice value becomes a membership test and requires = != or <>.
// Comparison operators become a range.
func (b *Builder) Where(field, op string, value any, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	cond, err := comparison(field, op, value, placement(opts))
	if err != nil {
		return b.fail(err)
	}
	b.spec.Conditions = append(b.spec.Conditions, cond)
	return b
}

// OrWhere adds a comparison joined with OR.
func (b *Builder) OrWhere(field, op string, value any) *Builder {
	return b.Where(field, op, value, Or())
}

// WhereNot adds a negated comparison.
func (b *Builder) WhereNot(field, op string, value any) *Builder {
	return b.Where(field, op, value, Not())
}

// OrWhereNot adds a negated comparison joined with OR.
func (b *Builder) OrWhereNot(field, op string, value any) *Builder {
	return b.Where(field, op, value, Or(), Not())
}

// Filter adds a non-scoring comparison.
func (b *Builder) Filter(field, op string, value any) *Builder {
	return b.Where(field, op, value, InFilter())
}

// OrFilter adds a non-scoring comparison joined with OR.
func (b *Builder) OrFilter(field, op string, value any) *Builder {
	return b.Where(field, op, value, InFilter(), Or())
}

// FilterNot adds a negated non-scoring comparison.
func (b *Builder) FilterNot(field, op string, value any) *Builder {
	return b.Where(field, op, value, InFilter(), Not())
}

// OrFilterNot adds a negated non-scoring comparison joined with OR.
func (b *Builder) OrFilterNot(field, op string, value any) *Builder {
	return b.Where(field, op, value, InFilter(), Not(), Or())
}

func comparison(field, op string, value any, p queryir.Placement) (queryir.Condition, error) {
	if field == "" {
		return nil, wrapf(ErrInvalidValue, "where: empty field")
	}
	if !operators[op] {
		return nil, wrapf(ErrInvalidOperator, "where %q: unknown operator %q", field, op)
	}
	if value == nil {
		return nil, wrapf(ErrInvalidValue, "where %q: operator %q needs a value", field, op)
	}
	if op == "!=" || op == "<>" {
		p.Negate = !p.Negate
	}

	if values, ok := asList(value); ok {
		if op != "=" && op != "!=" && op != "<>" {
			return nil, wrapf(ErrInvalidOperator, "where %q: operator %q does not accept a list", field, op)
		}
		return queryir.Membership{Placement: p, Field: field, Values: values}, nil
	}

	if queryir.IsRangeOp(op) {
		return queryir.Range{
			Placement: p,
			Field:     field,
			Bounds:    map[queryir.RangeOp]any{queryir.RangeOp(op): value},
		}, nil
	}
	return queryir.Equality{Placement: p, Field: field, Value: value}, nil
}

// WhereFields adds a group of equality conditions, one per map entry, in
// sorted key order. Slice values become membership tests.
func (b *Builder) WhereFields(fields map[string]any, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	if len(fields) == 0 {
		return b.failf(ErrInvalidStructure, "where fields: empty condition map")
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return b.WhereGroup(func(q *Builder) {
		for _, k := range keys {
			q.Where(k, "=", fields[k])
		}
	}, opts...)
}

// WhereList adds a group of comparisons given positionally, either
// [field, value] for equality or [field, op, value].
func (b *Builder) WhereList(entries [][]any, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	if len(entries) == 0 {
		return b.failf(ErrInvalidStructure, "where list: no entries")
	}
	type entry struct {
		field, op string
		value     any
	}
	parsed := make([]entry, 0, len(entries))
	for i, e := range entries {
		var op any = "="
		var value any
		switch len(e) {
		case 2:
			value = e[1]
		case 3:
			op, value = e[1], e[2]
		default:
			return b.failf(ErrInvalidStructure, "where list[%d]: want [field, value] or [field, op, value], got %d items", i, len(e))
		}
		field, ok := e[0].(string)
		if !ok {
			return b.failf(ErrInvalidStructure, "where list[%d]: field must be a string", i)
		}
		opStr, ok := op.(string)
		if !ok {
			return b.failf(ErrInvalidStructure, "where list[%d]: operator must be a string", i)
		}
		parsed = append(parsed, entry{field, opStr, value})
	}

	return b.WhereGroup(func(q *Builder) {
		for _, e := range parsed {
			q.Where(e.field, e.op, e.value)
		}
	}, opts...)
}

// WhereGroup adds a parenthesized sub-scope built by fn. An empty group is
// dropped.
func (b *Builder) WhereGroup(fn func(*Builder), opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		return b.failf(ErrInvalidStructure, "where group: nil callback")
	}
	sub, ok := b.run(fn)
	if !ok || len(sub.spec.Conditions) == 0 {
		return b
	}
	return b.add(queryir.Group{
		Placement: placement(opts),
		Scope:     sub.spec.QueryScope(),
	})
}

// WhereMatch adds an analyzed full-text match. An empty kind means match.
func (b *Builder) WhereMatch(field string, value any, kind queryir.MatchKind, params queryir.Params, opts ...Option) *Builder {
	if kind == "" {
		kind = queryir.Match
	}
	switch kind {
	case queryir.Match, queryir.Phrase, queryir.PhrasePrefix:
	default:
		return b.failf(ErrInvalidOperator, "where match %q: unknown match kind %q", field, kind)
	}
	if field == "" {
		return b.failf(ErrInvalidValue, "where match: empty field")
	}
	return b.add(queryir.TextMatch{
		Placement: placement(opts),
		Field:     field,
		Value:     value,
		Kind:      kind,
		Params:    params.Clone(),
	})
}

// WhereMultiMatch adds an analyzed match across fields. An empty type
// means best_fields.
func (b *Builder) WhereMultiMatch(fields []string, value any, typ string, params queryir.Params, opts ...Option) *Builder {
	if len(fields) == 0 {
		return b.failf(ErrInvalidValue, "where multi match: no fields")
	}
	if typ == "" {
		typ = "best_fields"
	}
	return b.add(queryir.MultiFieldMatch{
		Placement: placement(opts),
		Fields:    append([]string(nil), fields...),
		Value:     value,
		Type:      typ,
		Params:    params.Clone(),
	})
}

// WhereIn adds a membership test. values must be a slice.
func (b *Builder) WhereIn(field string, values any, opts ...Option) *Builder {
	list, ok := asList(values)
	if !ok {
		return b.failf(ErrInvalidValue, "where in %q: values must be a list", field)
	}
	if field == "" {
		return b.failf(ErrInvalidValue, "where in: empty field")
	}
	return b.add(queryir.Membership{Placement: placement(opts), Field: field, Values: list})
}

// WhereBetween adds an inclusive range: lo becomes gte, hi becomes lte.
func (b *Builder) WhereBetween(field string, lo, hi any, opts ...Option) *Builder {
	if field == "" {
		return b.failf(ErrInvalidValue, "where between: empty field")
	}
	if lo == nil || hi == nil {
		return b.failf(ErrInvalidValue, "where between %q: both bounds need a value", field)
	}
	return b.add(queryir.Range{
		Placement:  placement(opts),
		Field:      field,
		Positional: []any{lo, hi},
	})
}

// WhereRange adds a range keyed by operator, e.g. {">": 10, "<=": 20}.
func (b *Builder) WhereRange(field string, bounds map[string]any, opts ...Option) *Builder {
	if field == "" {
		return b.failf(ErrInvalidValue, "where range: empty field")
	}
	if len(bounds) == 0 {
		return b.failf(ErrInvalidValue, "where range %q: no bounds", field)
	}
	keyed := make(map[queryir.RangeOp]any, len(bounds))
	for op, v := range bounds {
		if !queryir.IsRangeOp(op) {
			return b.failf(ErrInvalidOperator, "where range %q: unknown operator %q", field, op)
		}
		if v == nil {
			return b.failf(ErrInvalidValue, "where range %q: operator %q needs a value", field, op)
		}
		keyed[queryir.RangeOp(op)] = v
	}
	return b.add(queryir.Range{Placement: placement(opts), Field: field, Bounds: keyed})
}

// WhereExists adds a field-presence test.
func (b *Builder) WhereExists(field string, opts ...Option) *Builder {
	if field == "" {
		return b.failf(ErrInvalidValue, "where exists: empty field")
	}
	return b.add(queryir.Existence{Placement: placement(opts), Field: field})
}

// WherePrefix adds a prefix match.
func (b *Builder) WherePrefix(field string, value any, params queryir.Params, opts ...Option) *Builder {
	return b.pattern(queryir.Prefix, field, value, params, opts)
}

// WhereWildcard adds a wildcard match.
func (b *Builder) WhereWildcard(field string, value any, params queryir.Params, opts ...Option) *Builder {
	return b.pattern(queryir.Wildcard, field, value, params, opts)
}

// WhereRegexp adds a regular expression match.
func (b *Builder) WhereRegexp(field string, value any, params queryir.Params, opts ...Option) *Builder {
	return b.pattern(queryir.Regexp, field, value, params, opts)
}

// WhereFuzzy adds a fuzzy match.
func (b *Builder) WhereFuzzy(field string, value any, params queryir.Params, opts ...Option) *Builder {
	return b.pattern(queryir.Fuzzy, field, value, params, opts)
}

func (b *Builder) pattern(kind queryir.PatternKind, field string, value any, params queryir.Params, opts []Option) *Builder {
	if field == "" {
		return b.failf(ErrInvalidValue, "where %s: empty field", kind)
	}
	if value == nil {
		return b.failf(ErrInvalidValue, "where %s %q: nil value", kind, field)
	}
	return b.add(queryir.PatternMatch{
		Placement: placement(opts),
		Field:     field,
		Value:     value,
		Kind:      kind,
		Params:    params.Clone(),
	})
}

// WhereNested adds a sub-scope evaluated against a nested document path.
func (b *Builder) WhereNested(path string, fn func(*Builder), params queryir.Params, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	if path == "" {
		return b.failf(ErrInvalidValue, "where nested: empty path")
	}
	if fn == nil {
		return b.failf(ErrInvalidStructure, "where nested %q: nil callback", path)
	}
	sub, ok := b.run(fn)
	if !ok {
		return b
	}
	return b.add(queryir.NestedPath{
		Placement: placement(opts),
		Path:      path,
		Scope:     sub.spec.QueryScope(),
		Params:    params.Clone(),
	})
}

// WhereRaw adds a pre-built clause. JSON text (string or []byte) is decoded
// first.
func (b *Builder) WhereRaw(clause any, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	v, err := decodeRaw(clause)
	if err != nil {
		return b.fail(fmt.Errorf("where raw: %w", err))
	}
	return b.add(queryir.Raw{Placement: placement(opts), Clause: v})
}

// PostWhere adds a comparison to the post_filter scope.
func (b *Builder) PostWhere(field, op string, value any, opts ...Option) *Builder {
	if b.err != nil {
		return b
	}
	cond, err := comparison(field, op, value, placement(opts))
	if err != nil {
		return b.fail(err)
	}
	b.spec.PostConditions = append(b.spec.PostConditions, cond)
	return b
}

// PostFilter appends every condition built by fn to the post_filter scope.
func (b *Builder) PostFilter(fn func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		return b.failf(ErrInvalidStructure, "post filter: nil callback")
	}
	sub, ok := b.run(fn)
	if !ok {
		return b
	}
	b.spec.PostConditions = append(b.spec.PostConditions, sub.spec.Conditions...)
	return b
}

func (b *Builder) add(cond queryir.Condition) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.Conditions = append(b.spec.Conditions, cond)
	return b
}
