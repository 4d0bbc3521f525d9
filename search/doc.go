// Package search provides full-text ranking over registered tool
// documents.
//
// The searcher indexes guide documents into an in-memory Bleve index and
// answers match queries with field boosts (tool name strongest, then
// feature and tags, then body content). The index is rebuilt only when the
// document set's fingerprint changes, so repeated searches over a stable
// registry are cheap.
//
// Empty queries return the first N documents in input order. Non-empty
// queries rank by relevance with deterministic tie-breaking: score
// descending, then document ID ascending.
package search
