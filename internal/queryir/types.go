package queryir

// Conjunction joins a condition to the one before it.
type Conjunction int

const (
	// And binds tighter than Or: A AND B OR C groups as (A AND B) OR C.
	And Conjunction = iota
	// Or starts a new run of conjunctive conditions.
	Or
)

func (c Conjunction) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

// Params holds extra engine parameters merged into a compiled leaf,
// e.g. {"boost": 2, "fuzziness": "AUTO"}.
type Params map[string]any

// Clone returns a shallow copy. A nil receiver yields nil.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Placement is the logical position of a condition inside its scope.
//
// Filter=false means the condition is scored (query context).
// Filter=true means the condition only restricts the result set.
// Negate and Filter are independent flags.
type Placement struct {
	Conjunction Conjunction
	Negate      bool
	Filter      bool
}

func (p Placement) placement() Placement { return p }

// Condition is one predicate with its placement.
//
// This is a sealed interface - only types in this package implement it.
// Every variant embeds Placement.
type Condition interface {
	conditionNode() // Marker method - seals interface to this package
	placement() Placement
}

// PlacementOf returns the placement of c.
func PlacementOf(c Condition) Placement {
	return c.placement()
}

// WithPlacement returns a copy of c with its placement replaced.
func WithPlacement(c Condition, p Placement) Condition {
	switch cond := c.(type) {
	case Equality:
		cond.Placement = p
		return cond
	case TextMatch:
		cond.Placement = p
		return cond
	case MultiFieldMatch:
		cond.Placement = p
		return cond
	case Membership:
		cond.Placement = p
		return cond
	case Range:
		cond.Placement = p
		return cond
	case Existence:
		cond.Placement = p
		return cond
	case PatternMatch:
		cond.Placement = p
		return cond
	case NestedPath:
		cond.Placement = p
		return cond
	case Raw:
		cond.Placement = p
		return cond
	case Group:
		cond.Placement = p
		return cond
	default:
		return c
	}
}

// Scope is an ordered condition list forming one logical scope: the top
// query, the post filter, a group, a nested path, or a filter aggregation.
//
// MinimumShouldMatch is nil when unset.
type Scope struct {
	Conditions         []Condition
	MinimumShouldMatch any
}

// Empty reports whether the scope holds no conditions.
func (s Scope) Empty() bool {
	return len(s.Conditions) == 0
}

// Runs splits the conditions into maximal conjunctive runs. A new run
// starts at every Or condition after the first:
//
//	A AND B OR C AND D  →  [A B] [C D]
//
// An empty scope has no runs.
func (s Scope) Runs() [][]Condition {
	var runs [][]Condition
	start := 0
	for i, c := range s.Conditions {
		if i > 0 && c.placement().Conjunction == Or {
			runs = append(runs, s.Conditions[start:i])
			start = i
		}
	}
	if start < len(s.Conditions) {
		runs = append(runs, s.Conditions[start:])
	}
	return runs
}

// Equality is an exact-value comparison on one field.
//
// Operators are resolved at accumulation time: != and <> set Negate,
// comparison operators produce a Range, and slice values produce a
// Membership. Equality therefore only ever means "field equals value".
type Equality struct {
	Placement
	Field string
	Value any
}

func (Equality) conditionNode() {}

// MatchKind selects the analyzed match flavour of a TextMatch.
type MatchKind string

const (
	Match        MatchKind = "match"
	Phrase       MatchKind = "match_phrase"
	PhrasePrefix MatchKind = "match_phrase_prefix"
)

// TextMatch is an analyzed full-text match on one field.
type TextMatch struct {
	Placement
	Field  string
	Value  any
	Kind   MatchKind
	Params Params
}

func (TextMatch) conditionNode() {}

// MultiFieldMatch is an analyzed match across several fields.
// Type is the combine strategy: best_fields, most_fields, cross_fields,
// phrase or phrase_prefix.
type MultiFieldMatch struct {
	Placement
	Fields []string
	Value  any
	Type   string
	Params Params
}

func (MultiFieldMatch) conditionNode() {}

// Membership matches when the field holds any of Values.
type Membership struct {
	Placement
	Field  string
	Values []any
}

func (Membership) conditionNode() {}

// RangeOp is a range comparison operator.
type RangeOp string

const (
	GT  RangeOp = ">"
	GTE RangeOp = ">="
	LT  RangeOp = "<"
	LTE RangeOp = "<="
)

// RangeOps lists the range operators in output order.
var RangeOps = []RangeOp{GT, GTE, LT, LTE}

// IsRangeOp reports whether op is one of > >= < <=.
func IsRangeOp(op string) bool {
	switch RangeOp(op) {
	case GT, GTE, LT, LTE:
		return true
	}
	return false
}

// Range is a bounded comparison on one field.
//
// Bounds are either keyed by operator or positional. Positional bounds are
// inclusive: index 0 is the lower bound (>=), index 1 the upper bound (<=).
// Both forms compile to the same leaf:
//
//	Range{Field: "age", Positional: []any{18, 30}}
//	Range{Field: "age", Bounds: map[RangeOp]any{GTE: 18, LTE: 30}}
type Range struct {
	Placement
	Field      string
	Bounds     map[RangeOp]any
	Positional []any
}

func (Range) conditionNode() {}

// Existence matches when the field is present.
type Existence struct {
	Placement
	Field string
}

func (Existence) conditionNode() {}

// PatternKind selects the term-level pattern query of a PatternMatch.
type PatternKind string

const (
	Prefix   PatternKind = "prefix"
	Wildcard PatternKind = "wildcard"
	Regexp   PatternKind = "regexp"
	Fuzzy    PatternKind = "fuzzy"
)

// PatternMatch is a prefix, wildcard, regexp or fuzzy match on one field.
type PatternMatch struct {
	Placement
	Field  string
	Value  any
	Kind   PatternKind
	Params Params
}

func (PatternMatch) conditionNode() {}

// NestedPath evaluates a sub-scope against a nested document path.
type NestedPath struct {
	Placement
	Path   string
	Scope  Scope
	Params Params
}

func (NestedPath) conditionNode() {}

// Raw is a pre-built clause. It bypasses translation but still takes part
// in bucket placement and negation.
type Raw struct {
	Placement
	Clause any
}

func (Raw) conditionNode() {}

// Group is a parenthesized sub-expression.
type Group struct {
	Placement
	Scope Scope
}

func (Group) conditionNode() {}
