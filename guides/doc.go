// Package guides produces the deep analysis of a selected repository and
// the per-feature implementation guides derived from it.
//
// Both operations go through the language-model oracle with declared
// output schemas. Analysis failure is a routable condition for the caller;
// guide generation degrades per feature instead, substituting a minimal
// guide when the oracle cannot produce a valid one, so one bad feature
// never discards the rest.
package guides
