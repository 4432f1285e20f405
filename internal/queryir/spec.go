package queryir

// Aggregation kinds with dedicated handling in the compiler.
const (
	KindFilter  = "filter"
	KindTopHits = "top_hits"
)

// Aggregation is one named node of the aggregation forest.
//
// Params holds the scalar parameters, already merged with defaults such as
// {"field": name}. Filter is set for filter-kind nodes and replaces Params.
// TopHits optionally carries a secondary fragment for top_hits nodes; its
// projection, pagination, sort and highlight sections are merged over Params.
type Aggregation struct {
	Alias    string
	Kind     string
	Params   Params
	Filter   *Scope
	TopHits  *QuerySpec
	Children []Aggregation
}

// Order is one sort entry. Spec, when set, is emitted verbatim instead of
// {"order": Direction}.
type Order struct {
	Field     string
	Direction string
	Spec      Params
}

// Collapse configures field collapsing.
type Collapse struct {
	Field  string
	Params Params
}

// HighlightMode tells whether a highlighted field uses engine defaults.
type HighlightMode int

const (
	// UseDefaults serializes as an empty object.
	UseDefaults HighlightMode = iota
	// Explicit serializes Params.
	Explicit
)

// HighlightField is one per-field highlight override.
type HighlightField struct {
	Field  string
	Mode   HighlightMode
	Params Params
}

// Highlight is the global highlight config plus per-field overrides in
// declaration order.
type Highlight struct {
	Config Params
	Fields []HighlightField
}

// QuerySpec is the builder's accumulation object.
//
// Nil pointers and empty slices mean "section not set". Scroll settings are
// request parameters for the executor, not document sections.
type QuerySpec struct {
	Index              string
	Source             []string
	Collapse           *Collapse
	From               *int
	Size               *int
	Sort               []Order
	Conditions         []Condition
	PostConditions     []Condition
	Aggregations       []Aggregation
	Highlight          Highlight
	MinimumShouldMatch any
	MinScore           *float64
	Scroll             string
	ScrollID           string
	Raw                any
}

// QueryScope returns the top-level query scope.
func (s *QuerySpec) QueryScope() Scope {
	return Scope{Conditions: s.Conditions, MinimumShouldMatch: s.MinimumShouldMatch}
}

// PostFilterScope returns the post-filter scope. It shares the spec's
// minimum-should-match setting but is compiled independently.
func (s *QuerySpec) PostFilterScope() Scope {
	return Scope{Conditions: s.PostConditions, MinimumShouldMatch: s.MinimumShouldMatch}
}

// Clone returns a copy that can be mutated without affecting s.
// Conditions and aggregations are immutable values and are shared.
func (s *QuerySpec) Clone() *QuerySpec {
	if s == nil {
		return nil
	}
	out := *s
	out.Source = append([]string(nil), s.Source...)
	out.Sort = append([]Order(nil), s.Sort...)
	out.Conditions = append([]Condition(nil), s.Conditions...)
	out.PostConditions = append([]Condition(nil), s.PostConditions...)
	out.Aggregations = append([]Aggregation(nil), s.Aggregations...)
	out.Highlight = Highlight{
		Config: s.Highlight.Config.Clone(),
		Fields: append([]HighlightField(nil), s.Highlight.Fields...),
	}
	if s.Collapse != nil {
		c := *s.Collapse
		out.Collapse = &c
	}
	if s.From != nil {
		v := *s.From
		out.From = &v
	}
	if s.Size != nil {
		v := *s.Size
		out.Size = &v
	}
	if s.MinScore != nil {
		v := *s.MinScore
		out.MinScore = &v
	}
	return &out
}

// CollapseField returns the collapse field, or "" when collapsing is off.
func (s *QuerySpec) CollapseField() string {
	if s.Collapse == nil {
		return ""
	}
	return s.Collapse.Field
}
