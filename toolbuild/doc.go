// Package toolbuild converts discovery findings into callable tool
// records.
//
// A record pairs a tool descriptor with the data the dispatcher needs to
// answer calls: the guide for per-feature tools, or the record kind alone
// for meta-tools. Records are data, not closures; one generic dispatcher
// in the hosting layer interprets them, so there is no per-tool behavior
// to capture incorrectly.
//
// Tool names are deterministic: the feature name is slugged, and name
// collisions get a numeric suffix in feature order. Every generated input
// schema is checked against the JSON Schema dialect before the record is
// returned.
package toolbuild
