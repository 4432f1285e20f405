// Package builder provides the fluent accumulation API for search queries.
//
// A Builder appends conditions, aggregations and request settings to a
// queryir.QuerySpec, then hands the spec to the querydsl compiler:
//
//	doc, err := builder.New().
//		Index("products").
//		Where("status", "=", "active").
//		Where("price", "<", 100, builder.InFilter()).
//		OrWhere("featured", "=", true).
//		GroupBy("brand", nil).
//		Size(20).
//		Build()
//
// Malformed input is rejected at the call that introduced it. The first
// error sticks: the failing call appends nothing, later calls are ignored,
// and Spec, Build and JSON return it.
package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/roach88/esq/internal/querydsl"
	"github.com/roach88/esq/internal/queryir"
)

// DefaultScroll is the scroll keep-alive used when none is given.
const DefaultScroll = "2m"

// Builder accumulates one query. It is not safe for concurrent use.
type Builder struct {
	spec     queryir.QuerySpec
	compiler *querydsl.Compiler
	err      error
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{compiler: querydsl.NewCompiler()}
}

// newSub creates the builder passed to group, nested, filter and
// sub-aggregation callbacks.
func (b *Builder) newSub() *Builder {
	return &Builder{compiler: b.compiler}
}

// Err returns the first accumulation error, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) failf(sentinel error, format string, args ...any) *Builder {
	return b.fail(wrapf(sentinel, format, args...))
}

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// run invokes fn on a fresh sub-builder and folds its error into b.
func (b *Builder) run(fn func(*Builder)) (*Builder, bool) {
	sub := b.newSub()
	fn(sub)
	if sub.err != nil {
		b.fail(sub.err)
		return nil, false
	}
	return sub, true
}

// Spec returns a copy of the accumulated query spec.
func (b *Builder) Spec() (*queryir.QuerySpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.spec.Clone(), nil
}

// Build compiles the accumulated spec into a search document.
func (b *Builder) Build() (querydsl.Document, error) {
	if b.err != nil {
		return querydsl.Document{}, b.err
	}
	return b.compiler.Compile(&b.spec), nil
}

// JSON returns the compiled document as indented JSON text.
func (b *Builder) JSON() (string, error) {
	doc, err := b.Build()
	if err != nil {
		return "", err
	}
	return doc.Pretty()
}

// When applies fn if cond is true, otherwise applies otherwise (which may
// be nil).
func (b *Builder) When(cond bool, fn func(*Builder), otherwise func(*Builder)) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case cond && fn != nil:
		fn(b)
	case !cond && otherwise != nil:
		otherwise(b)
	}
	return b
}

// Index sets the target index. It is a request parameter, not a document
// section.
func (b *Builder) Index(name string) *Builder {
	b.spec.Index = name
	return b
}

// Select sets the _source projection.
func (b *Builder) Select(fields ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.Source = append([]string(nil), fields...)
	return b
}

// Collapse enables field collapsing. Params are merged next to the field.
func (b *Builder) Collapse(field string, params queryir.Params) *Builder {
	if b.err != nil {
		return b
	}
	if field == "" {
		return b.failf(ErrInvalidValue, "collapse: empty field")
	}
	b.spec.Collapse = &queryir.Collapse{Field: field, Params: params.Clone()}
	return b
}

// From sets the pagination offset.
func (b *Builder) From(n int) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.From = &n
	return b
}

// Size sets the page size.
func (b *Builder) Size(n int) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.Size = &n
	return b
}

// OrderBy appends a sort entry. An empty direction means "asc". Sorting on
// the same field again replaces the earlier entry in place.
func (b *Builder) OrderBy(field, direction string) *Builder {
	if direction == "" {
		direction = "asc"
	}
	return b.addOrder(queryir.Order{Field: field, Direction: direction})
}

// OrderBySpec appends a sort entry emitted verbatim, e.g.
// {"order": "asc", "mode": "avg"}.
func (b *Builder) OrderBySpec(field string, spec queryir.Params) *Builder {
	if len(spec) == 0 {
		return b.failf(ErrInvalidValue, "order by %q: empty sort spec", field)
	}
	return b.addOrder(queryir.Order{Field: field, Spec: spec.Clone()})
}

func (b *Builder) addOrder(o queryir.Order) *Builder {
	if b.err != nil {
		return b
	}
	if o.Field == "" {
		return b.failf(ErrInvalidValue, "order by: empty field")
	}
	for i := range b.spec.Sort {
		if b.spec.Sort[i].Field == o.Field {
			b.spec.Sort[i] = o
			return b
		}
	}
	b.spec.Sort = append(b.spec.Sort, o)
	return b
}

// Highlight adds a highlighted field. Nil or empty params use engine
// defaults. Highlighting the same field again replaces its params.
func (b *Builder) Highlight(field string, params queryir.Params) *Builder {
	if b.err != nil {
		return b
	}
	if field == "" {
		return b.failf(ErrInvalidValue, "highlight: empty field")
	}
	hf := queryir.HighlightField{Field: field}
	if len(params) > 0 {
		hf.Mode = queryir.Explicit
		hf.Params = params.Clone()
	}
	for i := range b.spec.Highlight.Fields {
		if b.spec.Highlight.Fields[i].Field == field {
			b.spec.Highlight.Fields[i] = hf
			return b
		}
	}
	b.spec.Highlight.Fields = append(b.spec.Highlight.Fields, hf)
	return b
}

// HighlightConfig merges params into the global highlight config.
func (b *Builder) HighlightConfig(params queryir.Params) *Builder {
	if b.err != nil {
		return b
	}
	if b.spec.Highlight.Config == nil {
		b.spec.Highlight.Config = queryir.Params{}
	}
	for k, v := range params {
		b.spec.Highlight.Config[k] = v
	}
	return b
}

// MinimumShouldMatch sets minimum_should_match, e.g. 1 or "75%".
func (b *Builder) MinimumShouldMatch(value any) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.MinimumShouldMatch = value
	return b
}

// MinScore sets min_score.
func (b *Builder) MinScore(score float64) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.MinScore = &score
	return b
}

// Scroll requests a scroll cursor with the given keep-alive ("" means
// DefaultScroll).
func (b *Builder) Scroll(keepAlive string) *Builder {
	if keepAlive == "" {
		keepAlive = DefaultScroll
	}
	b.spec.Scroll = keepAlive
	return b
}

// ScrollID continues an existing scroll. It implies a keep-alive when none
// was set.
func (b *Builder) ScrollID(id string) *Builder {
	if b.spec.Scroll == "" {
		b.Scroll("")
	}
	b.spec.ScrollID = id
	return b
}

// Raw replaces the whole compiled document. JSON text (string or []byte)
// is decoded first.
func (b *Builder) Raw(doc any) *Builder {
	if b.err != nil {
		return b
	}
	v, err := decodeRaw(doc)
	if err != nil {
		return b.fail(fmt.Errorf("raw: %w", err))
	}
	b.spec.Raw = v
	return b
}

// decodeRaw turns JSON text into a generic value. Numbers keep their exact
// text as json.Number.
func decodeRaw(doc any) (any, error) {
	var data []byte
	switch d := doc.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil document", ErrInvalidValue)
	case string:
		data = []byte(d)
	case []byte:
		data = d
	case json.RawMessage:
		data = d
	default:
		return doc, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidValue)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: null document", ErrInvalidValue)
	}
	return v, nil
}

// asList reports whether v is a slice or array and returns its elements.
// Byte slices are scalars.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case nil:
		return nil, false
	case []any:
		return l, true
	case []byte, json.RawMessage:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
