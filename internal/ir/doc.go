// Package ir provides canonical JSON and content-addressed identity for
// compiled search documents.
//
// Two documents that differ only in key order, Unicode normalization form
// or number spelling share one canonical form and therefore one hash. The
// hash keys the execution journal and the response cache.
//
// ir imports nothing internal. Compiled documents reach it through
// json.Marshaler.
package ir
