// Package quality assesses repository candidates against popularity,
// activity, and complexity criteria.
//
// The assessor is the only pipeline component that talks to the
// code-hosting API; everything a later stage needs from that API is copied
// into the candidate's metrics here. Scoring weights and acceptance
// thresholds live in a Policy value so deployments can tune them without
// code changes.
package quality
