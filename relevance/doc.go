// Package relevance scores search results against a requirement profile.
//
// Scoring is pure and deterministic: the same result and profile always
// produce the same score, and no clock, network, or random state is
// consulted. Scores are weighted sums in [0,1]; filtering keeps results at
// or above a configurable threshold and orders survivors by score with a
// stable tie-break.
package relevance
