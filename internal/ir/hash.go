package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for future algorithm changes.
const (
	DomainDocument = "esq/document/v1"
	DomainRequest  = "esq/request/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the identity of a compiled search document.
// Equal documents hash equally regardless of key order or number spelling.
func DocumentHash(doc any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// RequestHash computes the identity of a search request: the target index
// plus its document. Used as the response cache key.
func RequestHash(index string, doc any) (string, error) {
	body, err := toGeneric(doc)
	if err != nil {
		return "", fmt.Errorf("RequestHash: failed to marshal: %w", err)
	}
	canonical, err := MarshalCanonical(map[string]any{
		"index": index,
		"body":  body,
	})
	if err != nil {
		return "", fmt.Errorf("RequestHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustDocumentHash(doc any) string {
	h, err := DocumentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}
