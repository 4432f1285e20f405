package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/esq/internal/ir"
)

// marshalDocument converts a compiled document to canonical JSON TEXT for
// storage. An empty document is stored as {}.
func marshalDocument(doc json.RawMessage) (string, error) {
	if len(doc) == 0 {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}
