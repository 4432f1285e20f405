package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/esq/internal/builder"
	"github.com/roach88/esq/internal/queryir"
)

// Query is one named query compiled from a spec file.
type Query struct {
	Name string
	Spec *queryir.QuerySpec
}

// Condition kind keys recognized in where and post_filter entries.
var conditionKinds = map[string]bool{
	"where": true, "match": true, "multi_match": true, "in": true, "terms": true,
	"range": true, "between": true, "exists": true, "prefix": true,
	"wildcard": true, "regexp": true, "fuzzy": true, "nested": true,
	"group": true, "raw": true,
}

// Placement flags allowed next to the kind key.
var placementFlags = map[string]bool{"or": true, "not": true, "filter": true}

// CompileQueries compiles every entry of the top-level queries struct.
// Entries are returned in declaration order.
func CompileQueries(v cue.Value) ([]*Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	queriesVal := v.LookupPath(cue.MakePath(cue.Str("queries")))
	if !queriesVal.Exists() {
		return nil, nil
	}
	iter, err := queriesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var queries []*Query
	for iter.Next() {
		q, err := CompileQuery(iter.Value())
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// CompileQuery turns one query struct into a QuerySpec by driving the
// builder. The query name is taken from the struct label:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`queries: active: { index: "users", where: [...] }`)
//	q, err := CompileQuery(v.LookupPath(cue.ParsePath("queries.active")))
//
// Builder errors are reported as *CompileError carrying the position of
// the entry that caused them.
func CompileQuery(v cue.Value) (*Query, error) {
	name := "query"
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = sels[len(sels)-1].Unquoted()
	}
	return compileNamed(v, name)
}

func compileNamed(v cue.Value, name string) (*Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	q := &Query{Name: name}
	d := &decoder{}
	b := builder.New()
	d.query(b, v, q.Name)
	if d.err != nil {
		return nil, d.err
	}
	spec, err := b.Spec()
	if err != nil {
		return nil, &CompileError{Field: q.Name, Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	q.Spec = spec
	return q, nil
}

// decoder walks a query struct and records the first error.
type decoder struct {
	err error
}

func (d *decoder) fail(v cue.Value, field, format string, args ...any) {
	if d.err == nil {
		d.err = &CompileError{Field: field, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
	}
}

func (d *decoder) cueErr(err error) {
	if d.err == nil && err != nil {
		d.err = formatCUEError(err)
	}
}

// check converts a fresh builder error into a positioned CompileError.
func (d *decoder) check(b *builder.Builder, v cue.Value, field string) bool {
	if d.err != nil {
		return false
	}
	if err := b.Err(); err != nil {
		d.err = &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
		return false
	}
	return true
}

func (d *decoder) query(b *builder.Builder, v cue.Value, name string) {
	known := map[string]bool{
		"index": true, "select": true, "from": true, "size": true, "sort": true,
		"collapse": true, "where": true, "post_filter": true,
		"minimum_should_match": true, "min_score": true, "highlight": true,
		"aggs": true, "scroll": true, "scroll_id": true, "raw": true,
	}
	d.rejectUnknown(v, name, known)

	if s, ok := d.optString(v, name, "index"); ok {
		b.Index(s)
	}
	d.fragment(b, v, name)
	if f := lookup(v, "collapse"); f.Exists() {
		d.collapse(b, f, name+".collapse")
	}
	if f := lookup(v, "where"); f.Exists() {
		d.conditions(b, f, name+".where")
	}
	if f := lookup(v, "post_filter"); f.Exists() {
		b.PostFilter(func(sub *builder.Builder) {
			d.conditions(sub, f, name+".post_filter")
		})
		d.check(b, f, name+".post_filter")
	}
	if f := lookup(v, "minimum_should_match"); f.Exists() {
		if val, ok := d.value(f); ok {
			b.MinimumShouldMatch(val)
		}
	}
	if f := lookup(v, "min_score"); f.Exists() {
		score, err := f.Float64()
		if err != nil {
			d.fail(f, name+".min_score", "must be a number")
		} else {
			b.MinScore(score)
		}
	}
	if f := lookup(v, "aggs"); f.Exists() {
		d.aggregations(b, f, name+".aggs")
	}
	if s, ok := d.optString(v, name, "scroll"); ok {
		b.Scroll(s)
	}
	if s, ok := d.optString(v, name, "scroll_id"); ok {
		b.ScrollID(s)
	}
	if f := lookup(v, "raw"); f.Exists() {
		if val, ok := d.value(f); ok {
			b.Raw(val)
			d.check(b, f, name+".raw")
		}
	}
}

// fragment applies the sections shared by queries and top-hits fragments:
// select, from, size, sort and highlight.
func (d *decoder) fragment(b *builder.Builder, v cue.Value, name string) {
	if f := lookup(v, "select"); f.Exists() {
		fields, ok := d.strings(f, name+".select")
		if ok {
			b.Select(fields...)
		}
	}
	if n, ok := d.optInt(v, name, "from"); ok {
		b.From(n)
	}
	if n, ok := d.optInt(v, name, "size"); ok {
		b.Size(n)
	}
	if f := lookup(v, "sort"); f.Exists() {
		d.sort(b, f, name+".sort")
	}
	if f := lookup(v, "highlight"); f.Exists() {
		d.highlight(b, f, name+".highlight")
	}
}

// sort accepts a list of field names or {field, order} / {field, spec}
// entries.
func (d *decoder) sort(b *builder.Builder, v cue.Value, field string) {
	iter, err := v.List()
	if err != nil {
		d.fail(v, field, "must be a list")
		return
	}
	for i := 0; iter.Next(); i++ {
		at := fmt.Sprintf("%s[%d]", field, i)
		entry := iter.Value()
		if s, err := entry.String(); err == nil {
			b.OrderBy(s, "asc")
			d.check(b, entry, at)
			continue
		}
		name, ok := d.reqString(entry, at, "field")
		if !ok {
			return
		}
		if spec := lookup(entry, "spec"); spec.Exists() {
			params, ok := d.params(spec, at+".spec")
			if !ok {
				return
			}
			b.OrderBySpec(name, params)
		} else {
			order, _ := d.optString(entry, at, "order")
			b.OrderBy(name, order)
		}
		if !d.check(b, entry, at) {
			return
		}
	}
}

// collapse accepts a field name or {field, params}.
func (d *decoder) collapse(b *builder.Builder, v cue.Value, field string) {
	if s, err := v.String(); err == nil {
		b.Collapse(s, nil)
		d.check(b, v, field)
		return
	}
	name, ok := d.reqString(v, field, "field")
	if !ok {
		return
	}
	var params queryir.Params
	if p := lookup(v, "params"); p.Exists() {
		if params, ok = d.params(p, field+".params"); !ok {
			return
		}
	}
	b.Collapse(name, params)
	d.check(b, v, field)
}

// highlight accepts {config, fields} where fields is a struct of field
// name to params (declaration order kept) or a list of names.
func (d *decoder) highlight(b *builder.Builder, v cue.Value, field string) {
	if cfg := lookup(v, "config"); cfg.Exists() {
		params, ok := d.params(cfg, field+".config")
		if !ok {
			return
		}
		b.HighlightConfig(params)
	}
	fields := lookup(v, "fields")
	if !fields.Exists() {
		return
	}
	if names, err := fields.List(); err == nil {
		for names.Next() {
			s, err := names.Value().String()
			if err != nil {
				d.fail(names.Value(), field+".fields", "must be a list of strings")
				return
			}
			b.Highlight(s, nil)
		}
		d.check(b, fields, field+".fields")
		return
	}
	iter, err := fields.Fields()
	if err != nil {
		d.fail(fields, field+".fields", "must be a struct or a list")
		return
	}
	for iter.Next() {
		params, ok := d.params(iter.Value(), field+".fields."+iter.Selector().Unquoted())
		if !ok {
			return
		}
		b.Highlight(iter.Selector().Unquoted(), params)
	}
	d.check(b, fields, field+".fields")
}

// conditions applies a list of condition entries to b.
func (d *decoder) conditions(b *builder.Builder, v cue.Value, field string) {
	iter, err := v.List()
	if err != nil {
		d.fail(v, field, "must be a list of conditions")
		return
	}
	for i := 0; iter.Next(); i++ {
		at := fmt.Sprintf("%s[%d]", field, i)
		d.condition(b, iter.Value(), at)
		if !d.check(b, iter.Value(), at) {
			return
		}
	}
}

func (d *decoder) condition(b *builder.Builder, v cue.Value, at string) {
	iter, err := v.Fields()
	if err != nil {
		d.fail(v, at, "condition must be a struct")
		return
	}

	var kind string
	var body cue.Value
	var opts []builder.Option
	for iter.Next() {
		label := iter.Selector().Unquoted()
		switch {
		case placementFlags[label]:
			set, err := iter.Value().Bool()
			if err != nil {
				d.fail(iter.Value(), at+"."+label, "must be a bool")
				return
			}
			if set {
				opts = append(opts, flagOption(label))
			}
		case conditionKinds[label]:
			if kind != "" {
				d.fail(iter.Value(), at, "condition has both %q and %q", kind, label)
				return
			}
			kind, body = label, iter.Value()
		default:
			d.fail(iter.Value(), at, "unknown condition key %q", label)
			return
		}
	}
	if kind == "" {
		d.fail(v, at, "condition needs one of: %s", strings.Join(sortedKinds(), ", "))
		return
	}

	at = at + "." + kind
	switch kind {
	case "where":
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		op, hasOp := d.optString(body, at, "op")
		if !hasOp {
			op = "="
		}
		value, ok := d.optValue(body, "value")
		if !ok {
			d.fail(body, at, "value is required")
			return
		}
		b.Where(field, op, value, opts...)

	case "match":
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		value, _ := d.optValue(body, "value")
		matchKind, _ := d.optString(body, at, "kind")
		params, ok := d.optParams(body, at)
		if !ok {
			return
		}
		b.WhereMatch(field, value, queryir.MatchKind(matchKind), params, opts...)

	case "multi_match":
		fields, ok := d.strings(lookup(body, "fields"), at+".fields")
		if !ok {
			return
		}
		value, _ := d.optValue(body, "value")
		typ, _ := d.optString(body, at, "type")
		params, ok := d.optParams(body, at)
		if !ok {
			return
		}
		b.WhereMultiMatch(fields, value, typ, params, opts...)

	case "in", "terms":
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		values, _ := d.optValue(body, "values")
		b.WhereIn(field, values, opts...)

	case "range":
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		bounds := map[string]any{}
		for name, op := range rangeKeys {
			if val, ok := d.optValue(body, name); ok {
				bounds[op] = val
			}
		}
		b.WhereRange(field, bounds, opts...)

	case "between":
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		lo, okLo := d.optValue(body, "from")
		hi, okHi := d.optValue(body, "to")
		if !okLo || !okHi {
			d.fail(body, at, "between needs from and to")
			return
		}
		b.WhereBetween(field, lo, hi, opts...)

	case "exists":
		if s, err := body.String(); err == nil {
			b.WhereExists(s, opts...)
			return
		}
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		b.WhereExists(field, opts...)

	case "prefix", "wildcard", "regexp", "fuzzy":
		field, ok := d.reqString(body, at, "field")
		if !ok {
			return
		}
		value, _ := d.optValue(body, "value")
		params, ok := d.optParams(body, at)
		if !ok {
			return
		}
		patterns[kind](b, field, value, params, opts...)

	case "nested":
		path, ok := d.reqString(body, at, "path")
		if !ok {
			return
		}
		params, ok := d.optParams(body, at)
		if !ok {
			return
		}
		inner := lookup(body, "where")
		b.WhereNested(path, func(sub *builder.Builder) {
			if inner.Exists() {
				d.conditions(sub, inner, at+".where")
			}
		}, params, opts...)

	case "group":
		b.WhereGroup(func(sub *builder.Builder) {
			d.conditions(sub, body, at)
		}, opts...)

	case "raw":
		if s, err := body.String(); err == nil {
			b.WhereRaw(s, opts...)
			return
		}
		value, ok := d.value(body)
		if !ok {
			return
		}
		b.WhereRaw(value, opts...)
	}
}

var rangeKeys = map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}

var patterns = map[string]func(*builder.Builder, string, any, queryir.Params, ...builder.Option) *builder.Builder{
	"prefix":   (*builder.Builder).WherePrefix,
	"wildcard": (*builder.Builder).WhereWildcard,
	"regexp":   (*builder.Builder).WhereRegexp,
	"fuzzy":    (*builder.Builder).WhereFuzzy,
}

func flagOption(label string) builder.Option {
	switch label {
	case "or":
		return builder.Or()
	case "not":
		return builder.Not()
	default:
		return builder.InFilter()
	}
}

// aggregations applies a list of aggregation entries:
//
//	{alias?, kind?, field?, params?, filter?, top_hits?, aggs?}
//
// The alias defaults to <field>_<kind> and the kind to terms.
func (d *decoder) aggregations(b *builder.Builder, v cue.Value, field string) {
	iter, err := v.List()
	if err != nil {
		d.fail(v, field, "must be a list of aggregations")
		return
	}
	for i := 0; iter.Next(); i++ {
		at := fmt.Sprintf("%s[%d]", field, i)
		d.aggregation(b, iter.Value(), at)
		if !d.check(b, iter.Value(), at) {
			return
		}
	}
}

func (d *decoder) aggregation(b *builder.Builder, v cue.Value, at string) {
	d.rejectUnknown(v, at, map[string]bool{
		"alias": true, "kind": true, "field": true, "params": true,
		"filter": true, "top_hits": true, "aggs": true,
	})
	if d.err != nil {
		return
	}

	alias, _ := d.optString(v, at, "alias")
	kind, _ := d.optString(v, at, "kind")
	field, _ := d.optString(v, at, "field")
	params, ok := d.optParams(v, at)
	if !ok {
		return
	}

	var subs []func(*builder.Builder)
	if children := lookup(v, "aggs"); children.Exists() {
		subs = append(subs, func(sub *builder.Builder) {
			d.aggregations(sub, children, at+".aggs")
		})
	}

	if filter := lookup(v, "filter"); filter.Exists() || kind == queryir.KindFilter {
		if alias == "" {
			d.fail(v, at, "filter aggregation needs an alias")
			return
		}
		b.AggsFilter(alias, func(sub *builder.Builder) {
			if filter.Exists() {
				d.conditions(sub, filter, at+".filter")
			}
		}, subs...)
		return
	}

	if kind == "" {
		kind = "terms"
	}
	if field != "" {
		if params == nil {
			params = queryir.Params{}
		}
		if _, set := params["field"]; !set {
			params["field"] = field
		}
		if alias == "" {
			alias = field + "_" + kind
		}
	}

	if kind == queryir.KindTopHits {
		if frag := lookup(v, "top_hits"); frag.Exists() {
			b.TopHits(params, func(sub *builder.Builder) {
				d.rejectUnknown(frag, at+".top_hits", map[string]bool{
					"select": true, "from": true, "size": true, "sort": true, "highlight": true,
				})
				d.fragment(sub, frag, at+".top_hits")
			})
			return
		}
		b.TopHitsParams(params)
		return
	}

	if alias == "" {
		d.fail(v, at, "aggregation needs an alias or a field")
		return
	}
	b.Aggs(alias, kind, params, subs...)
}

func sortedKinds() []string {
	return []string{
		"between", "exists", "fuzzy", "group", "in", "match", "multi_match",
		"nested", "prefix", "range", "raw", "regexp", "terms", "where", "wildcard",
	}
}

func lookup(v cue.Value, name string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(name)))
}

func (d *decoder) rejectUnknown(v cue.Value, at string, known map[string]bool) {
	iter, err := v.Fields()
	if err != nil {
		d.fail(v, at, "must be a struct")
		return
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		if !known[label] {
			d.fail(iter.Value(), at, "unknown key %q", label)
			return
		}
	}
}

func (d *decoder) optString(v cue.Value, at, name string) (string, bool) {
	f := lookup(v, name)
	if !f.Exists() {
		return "", false
	}
	s, err := f.String()
	if err != nil {
		d.fail(f, at+"."+name, "must be a string")
		return "", false
	}
	return s, true
}

func (d *decoder) reqString(v cue.Value, at, name string) (string, bool) {
	s, ok := d.optString(v, at, name)
	if !ok {
		d.fail(v, at+"."+name, "%s is required", name)
		return "", false
	}
	return s, true
}

func (d *decoder) optInt(v cue.Value, at, name string) (int, bool) {
	f := lookup(v, name)
	if !f.Exists() {
		return 0, false
	}
	n, err := f.Int64()
	if err != nil {
		d.fail(f, at+"."+name, "must be an integer")
		return 0, false
	}
	return int(n), true
}

func (d *decoder) strings(v cue.Value, at string) ([]string, bool) {
	if !v.Exists() {
		d.fail(v, at, "is required")
		return nil, false
	}
	var out []string
	if err := v.Decode(&out); err != nil {
		d.fail(v, at, "must be a list of strings")
		return nil, false
	}
	return out, true
}

// value decodes a concrete CUE value into plain Go values.
func (d *decoder) value(v cue.Value) (any, bool) {
	var out any
	if err := v.Decode(&out); err != nil {
		d.cueErr(err)
		return nil, false
	}
	return normalize(out), true
}

func (d *decoder) optValue(v cue.Value, name string) (any, bool) {
	f := lookup(v, name)
	if !f.Exists() {
		return nil, false
	}
	return d.value(f)
}

func (d *decoder) params(v cue.Value, at string) (queryir.Params, bool) {
	val, ok := d.value(v)
	if !ok {
		return nil, false
	}
	m, isMap := val.(map[string]any)
	if !isMap {
		d.fail(v, at, "must be a struct")
		return nil, false
	}
	return queryir.Params(m), true
}

func (d *decoder) optParams(v cue.Value, at string) (queryir.Params, bool) {
	f := lookup(v, "params")
	if !f.Exists() {
		return nil, true
	}
	return d.params(f, at+".params")
}

// normalize maps decoded integers to int regardless of the decoder's
// integer width, and big numbers to json.Number.
func normalize(v any) any {
	switch val := v.(type) {
	case int64:
		return int(val)
	case map[string]any:
		for k, e := range val {
			val[k] = normalize(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = normalize(e)
		}
		return val
	case fmt.Stringer:
		// *big.Int and friends.
		return json.Number(val.String())
	}
	return v
}
