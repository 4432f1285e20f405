package queryir

import "fmt"

// ValidationResult lists structural problems found in a QuerySpec.
//
// The builder rejects malformed input at accumulation time, so specs built
// through it validate cleanly. Validate exists for specs assembled by hand
// and for the validate command.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each violation with its location,
	// e.g. "query[2].range: no bounds".
	Problems []string
}

// Validate checks a QuerySpec against the invariants the compiler relies on:
//  1. Every leaf names a field (or path, for nested conditions)
//  2. Range conditions carry known operators and at most two positional bounds
//  3. Aggregation aliases are non-empty and unique among siblings
//  4. Filter aggregations carry a scope
//
// Validate is a pure function with no side effects.
func Validate(spec *QuerySpec) ValidationResult {
	v := &validator{problems: []string{}}
	if spec == nil {
		v.add("spec", "nil query spec")
	} else {
		v.validateSpec("", spec)
	}

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) add(where, format string, args ...any) {
	v.problems = append(v.problems, where+": "+fmt.Sprintf(format, args...))
}

func (v *validator) validateSpec(prefix string, spec *QuerySpec) {
	v.validateConditions(prefix+"query", spec.Conditions)
	v.validateConditions(prefix+"post_filter", spec.PostConditions)
	v.validateAggregations(prefix+"aggs", spec.Aggregations)

	for i, o := range spec.Sort {
		if o.Field == "" {
			v.add(fmt.Sprintf("%ssort[%d]", prefix, i), "empty field")
		}
	}
	if spec.Collapse != nil && spec.Collapse.Field == "" {
		v.add(prefix+"collapse", "empty field")
	}
	for i, h := range spec.Highlight.Fields {
		if h.Field == "" {
			v.add(fmt.Sprintf("%shighlight[%d]", prefix, i), "empty field")
		}
	}
}

func (v *validator) validateConditions(where string, conds []Condition) {
	for i, c := range conds {
		at := fmt.Sprintf("%s[%d]", where, i)
		switch cond := c.(type) {
		case Equality:
			v.requireField(at+".term", cond.Field)
		case TextMatch:
			v.requireField(at+"."+string(cond.Kind), cond.Field)
		case MultiFieldMatch:
			if len(cond.Fields) == 0 {
				v.add(at+".multi_match", "no fields")
			}
		case Membership:
			v.requireField(at+".terms", cond.Field)
		case Range:
			v.validateRange(at+".range", cond)
		case Existence:
			v.requireField(at+".exists", cond.Field)
		case PatternMatch:
			v.requireField(at+"."+string(cond.Kind), cond.Field)
		case NestedPath:
			if cond.Path == "" {
				v.add(at+".nested", "empty path")
			}
			v.validateConditions(at+".nested", cond.Scope.Conditions)
		case Raw:
			if cond.Clause == nil {
				v.add(at+".raw", "nil clause")
			}
		case Group:
			if cond.Scope.Empty() {
				v.add(at+".group", "empty group")
			}
			v.validateConditions(at+".group", cond.Scope.Conditions)
		case nil:
			v.add(at, "nil condition")
		}
	}
}

func (v *validator) validateRange(at string, r Range) {
	v.requireField(at, r.Field)
	if len(r.Bounds) == 0 && len(r.Positional) == 0 {
		v.add(at, "no bounds")
	}
	if len(r.Positional) > 2 {
		v.add(at, "%d positional bounds, at most 2 allowed", len(r.Positional))
	}
	for op := range r.Bounds {
		if !IsRangeOp(string(op)) {
			v.add(at, "unknown operator %q", op)
		}
	}
}

func (v *validator) validateAggregations(where string, aggs []Aggregation) {
	seen := make(map[string]bool, len(aggs))
	for i, agg := range aggs {
		at := fmt.Sprintf("%s[%d]", where, i)
		if agg.Alias == "" {
			v.add(at, "empty alias")
		} else if seen[agg.Alias] {
			v.add(at, "duplicate alias %q", agg.Alias)
		}
		seen[agg.Alias] = true

		if agg.Kind == "" {
			v.add(at, "empty kind")
		}
		if agg.Kind == KindFilter {
			if agg.Filter == nil {
				v.add(at, "filter aggregation without conditions")
			} else {
				v.validateConditions(at+".filter", agg.Filter.Conditions)
			}
		}
		if agg.TopHits != nil {
			v.validateSpec(at+".top_hits.", agg.TopHits)
		}
		v.validateAggregations(at+".aggs", agg.Children)
	}
}

func (v *validator) requireField(at, field string) {
	if field == "" {
		v.add(at, "empty field")
	}
}
