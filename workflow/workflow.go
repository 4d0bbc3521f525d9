package workflow

import (
	"context"
	"time"
)

// Action is a tag returned by a step's finalize phase, selecting the
// outgoing edge in the routing table.
type Action string

// Default is the edge taken when a step's tag has no explicit route.
const Default Action = "default"

// Step is one node in the graph, parameterized by the shared state type.
type Step[S any] interface {
	// Name identifies the step in the routing table. Must be unique
	// within an engine and stable across runs.
	Name() string

	// Actions declares every tag Finalize can return. The engine's
	// startup validation checks each declared tag against the routing
	// table.
	Actions() []Action

	// Prepare reads state and builds the execute input. It must not
	// mutate state or perform I/O.
	Prepare(state *S) (any, error)

	// Execute does the step's work. It may perform I/O, honor ctx, and
	// fail; the engine retries it per the step's retry spec. It must be
	// idempotent under retry and must not touch state.
	Execute(ctx context.Context, input any) (any, error)

	// Finalize writes results into state and picks the outgoing edge.
	// It must not perform I/O. Called exactly once per successful
	// Execute.
	Finalize(state *S, input, result any) Action
}

// RetrySpec bounds execute retries for one step. The delay is fixed
// between attempts.
type RetrySpec struct {
	MaxRetries int
	Delay      time.Duration
}

// Attempts is the total number of execute attempts this allows.
func (r RetrySpec) Attempts() int {
	if r.MaxRetries < 0 {
		return 1
	}
	return r.MaxRetries + 1
}

// Func is a Step built from closures, mainly for small steps and tests.
// Nil phases degrade gracefully: a nil Prepare yields a nil input, a nil
// Execute passes the input through, and a nil Finalize returns Default.
type Func[S any] struct {
	StepName   string
	ActionTags []Action
	PrepareFn  func(state *S) (any, error)
	ExecuteFn  func(ctx context.Context, input any) (any, error)
	FinalizeFn func(state *S, input, result any) Action
}

func (f *Func[S]) Name() string      { return f.StepName }
func (f *Func[S]) Actions() []Action { return f.ActionTags }

func (f *Func[S]) Prepare(state *S) (any, error) {
	if f.PrepareFn == nil {
		return nil, nil
	}
	return f.PrepareFn(state)
}

func (f *Func[S]) Execute(ctx context.Context, input any) (any, error) {
	if f.ExecuteFn == nil {
		return input, nil
	}
	return f.ExecuteFn(ctx, input)
}

func (f *Func[S]) Finalize(state *S, input, result any) Action {
	if f.FinalizeFn == nil {
		return Default
	}
	return f.FinalizeFn(state, input, result)
}
