package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esq/internal/querydsl"
)

func TestDocumentHash_Known(t *testing.T) {
	h, err := DocumentHash(map[string]any{"a": 1})
	require.NoError(t, err)

	assert.Equal(t, "ced8ee436c0fcfc1405285cc0b589da86b470989a47e5e2fd07aa92d7bb71ee4", h)
}

func TestDocumentHash_OrderedAndPlainAgree(t *testing.T) {
	doc := querydsl.NewDocument(querydsl.Obj("query", querydsl.Obj("term", querydsl.Obj("a", 1))))
	plain := map[string]any{"query": map[string]any{"term": map[string]any{"a": json.Number("1")}}}

	a, err := DocumentHash(doc)
	require.NoError(t, err)
	b, err := DocumentHash(plain)
	require.NoError(t, err)

	assert.Equal(t, "5e93a23b9890e9a8d3fc26d96c53e8602a02f4dc9d4924876b81eb153fb1a7ac", a)
	assert.Equal(t, a, b)
}

func TestDocumentHash_KeyOrderIndependent(t *testing.T) {
	a := querydsl.NewObject().Set("from", 0).Set("size", 10)
	b := querydsl.NewObject().Set("size", 10).Set("from", 0)

	assert.Equal(t, MustDocumentHash(a), MustDocumentHash(b))
}

func TestDocumentHash_DiffersByContent(t *testing.T) {
	a := MustDocumentHash(map[string]any{"size": 10})
	b := MustDocumentHash(map[string]any{"size": 11})

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestRequestHash(t *testing.T) {
	doc := map[string]any{"size": 1}

	a, err := RequestHash("logs", doc)
	require.NoError(t, err)
	b, err := RequestHash("metrics", doc)
	require.NoError(t, err)
	c, err := RequestHash("logs", querydsl.Obj("size", 1))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, MustDocumentHash(doc))
}

func TestMustDocumentHash_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustDocumentHash(map[string]any{"ch": make(chan int)})
	})
}
