package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esq/internal/querydsl"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"int32", int32(7), "7"},
		{"uint", uint(9), "9"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"null", nil, "null"},
		{"float", 0.5, "0.5"},
		{"integral float", 3.0, "3"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"large float", 1e21, "1e+21"},
		{"json number int", json.Number("10"), "10"},
		{"json number float", json.Number("1.50"), "1.5"},
		{"json number exponent", json.Number("2e2"), "200"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"b": 1, "a": 2},
		"beta":  3,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8 order.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	nfd := "cafe\u0301"
	nfc := "caf\u00e9"

	a, err := MarshalCanonical(map[string]any{nfd: nfd})
	require.NoError(t, err)
	b, err := MarshalCanonical(map[string]any{nfc: nfc})
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a))
	assert.Equal(t, "{\"caf\u00e9\":\"caf\u00e9\"}", string(a))
}

func TestMarshalCanonicalDuplicateAfterNFC(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"cafe\u0301": 1, "caf\u00e9": 2})
	assert.Error(t, err)
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalOrderedObject(t *testing.T) {
	ordered := querydsl.NewObject().Set("size", 10).Set("from", 0)

	result, err := MarshalCanonical(ordered)
	require.NoError(t, err)
	assert.Equal(t, `{"from":0,"size":10}`, string(result))
}

func TestMarshalCanonicalDocument(t *testing.T) {
	doc := querydsl.NewDocument(querydsl.Obj("query", querydsl.MatchAll()))

	result, err := MarshalCanonical(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"query":{"match_all":{}}}`, string(result))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": math.Inf(1)})
	assert.Error(t, err)

	_, err = MarshalCanonical(math.NaN())
	assert.Error(t, err)
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
