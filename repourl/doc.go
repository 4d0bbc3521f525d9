// Package repourl extracts and canonicalizes repository URLs.
//
// Canonical form is the deduplication key across the whole pipeline: two
// URLs identify the same repository iff Canonicalize maps them to the same
// string. Canonicalize is a fixed point: applying it twice equals applying
// it once.
package repourl
