package querydsl

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/roach88/esq/internal/queryir"
)

// Object is a JSON object that keeps insertion order. Search engines do
// not require ordered keys, but stable section and aggregation order keeps
// compiled documents diffable and golden-testable.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Obj returns a single-entry object.
func Obj(key string, value any) *Object {
	return NewObject().Set(key, value)
}

// MatchAll returns the match-everything clause {"match_all":{}}.
func MatchAll() *Object {
	return Obj("match_all", NewObject())
}

// Set stores value under key. An existing key keeps its position.
func (o *Object) Set(key string, value any) *Object {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Merge sets every entry of p, in sorted key order.
func (o *Object) Merge(p queryir.Params) *Object {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, p[k])
	}
	return o
}

// MarshalJSON encodes the object with keys in insertion order.
// HTML characters are not escaped so highlight tags stay readable.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := encode(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Document is a compiled search request body: either an assembled Object
// or a raw override supplied by the caller.
//
// A Document is an immutable value once returned by the compiler.
type Document struct {
	root any
}

// NewDocument wraps an arbitrary JSON-encodable value. It is used for raw
// overrides and for documents decoded from storage.
func NewDocument(root any) Document {
	return Document{root: root}
}

// Root returns the underlying value.
func (d Document) Root() any {
	return d.root
}

// Object returns the assembled object, if the document is one.
func (d Document) Object() (*Object, bool) {
	obj, ok := d.root.(*Object)
	return obj, ok && obj != nil
}

// Section returns a top-level section such as "query" or "aggs".
func (d Document) Section(name string) (any, bool) {
	if obj, ok := d.Object(); ok {
		return obj.Get(name)
	}
	if m, ok := d.root.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}
	return nil, false
}

// MarshalJSON encodes the document. An empty document encodes as {}.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.root == nil {
		return []byte("{}"), nil
	}
	return encode(d.root)
}

// Bytes returns the compact JSON form.
func (d Document) Bytes() ([]byte, error) {
	return d.MarshalJSON()
}

// Pretty returns the indented JSON text form.
func (d Document) Pretty() (string, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
