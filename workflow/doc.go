// Package workflow executes directed graphs of named steps over a shared
// state value.
//
// Each step runs in three phases. Prepare reads state and produces the
// step's input without side effects. Execute performs the step's work and
// is the only phase allowed to fail or be retried. Finalize writes results
// back into state and returns an action tag that selects the outgoing
// edge. The engine owns the state exclusively for the duration of a run:
// steps see it only during their prepare and finalize phases, and finalize
// runs exactly once per successful execute.
//
// Routing is a table from (step, action) to the next step, with a
// per-step default edge. A step that emits a tag with no matching edge and
// no default suspends the run: the engine returns a suspended result
// instead of raising, and the caller can resume from any step once it has
// supplied whatever external input was missing.
package workflow
