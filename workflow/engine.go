package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Engine construction and validation errors.
var (
	ErrDuplicateStep = errors.New("workflow: duplicate step name")
	ErrUnknownStep   = errors.New("workflow: unknown step")
	ErrNoStart       = errors.New("workflow: no start step configured")
	ErrUnroutedTag   = errors.New("workflow: declared action has no route")
	ErrStepFailed    = errors.New("workflow: step failed after retries")
)

// Result describes how a run ended.
type Result struct {
	// Terminal is the last step that ran.
	Terminal string

	// LastAction is the tag that step emitted.
	LastAction Action

	// Suspended is true when the tag had no matching edge and no
	// default, so the run stopped awaiting external input.
	Suspended bool

	// Path lists every step executed, in order.
	Path []string

	// Version counts finalize phases applied to state during the run.
	Version int
}

// Engine runs a step graph over a shared state of type S. Configure with
// Add, Route, and SetStart, then Validate once before the first run.
type Engine[S any] struct {
	steps  map[string]Step[S]
	retry  map[string]RetrySpec
	edges  map[string]map[Action]string
	start  string
	logger *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns an empty engine. A nil logger disables logging.
func New[S any](logger *zap.Logger) *Engine[S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine[S]{
		steps:  make(map[string]Step[S]),
		retry:  make(map[string]RetrySpec),
		edges:  make(map[string]map[Action]string),
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Add registers a step with no execute retries.
func (e *Engine[S]) Add(step Step[S]) error {
	return e.AddWithRetry(step, RetrySpec{})
}

// AddWithRetry registers a step whose execute phase is retried per spec.
func (e *Engine[S]) AddWithRetry(step Step[S], spec RetrySpec) error {
	name := step.Name()
	if _, exists := e.steps[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, name)
	}
	e.steps[name] = step
	e.retry[name] = spec
	if e.start == "" {
		e.start = name
	}
	return nil
}

// Route adds an edge from step on action to the next step.
func (e *Engine[S]) Route(from string, action Action, to string) error {
	if _, ok := e.steps[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, from)
	}
	if _, ok := e.steps[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, to)
	}
	if e.edges[from] == nil {
		e.edges[from] = make(map[Action]string)
	}
	e.edges[from][action] = to
	return nil
}

// SetStart overrides the start step, which defaults to the first added.
func (e *Engine[S]) SetStart(name string) error {
	if _, ok := e.steps[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, name)
	}
	e.start = name
	return nil
}

// Validate checks the routing table against every step's declared
// actions. A step with no outgoing edges is terminal and exempt; for any
// other step, each declared action must have an explicit route or the
// step must have a default edge.
func (e *Engine[S]) Validate() error {
	if e.start == "" {
		return ErrNoStart
	}
	for name, step := range e.steps {
		out := e.edges[name]
		if len(out) == 0 {
			continue
		}
		_, hasDefault := out[Default]
		for _, action := range step.Actions() {
			if _, ok := out[action]; !ok && !hasDefault {
				return fmt.Errorf("%w: step %s, action %s", ErrUnroutedTag, name, action)
			}
		}
	}
	return nil
}

// Run executes the graph from the start step. See RunFrom.
func (e *Engine[S]) Run(ctx context.Context, state *S) (Result, error) {
	return e.RunFrom(ctx, state, e.start)
}

// RunFrom executes the graph beginning at the named step, which is how a
// suspended run resumes once the caller has updated state. The returned
// Result is meaningful even on error: it covers every step that finalized
// before the failure.
func (e *Engine[S]) RunFrom(ctx context.Context, state *S, from string) (Result, error) {
	var res Result
	current, ok := e.steps[from]
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrUnknownStep, from)
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := current.Name()
		res.Path = append(res.Path, name)
		res.Terminal = name

		input, err := current.Prepare(state)
		if err != nil {
			return res, fmt.Errorf("workflow: prepare %s: %w", name, err)
		}

		result, err := e.execute(ctx, name, current, input)
		if err != nil {
			return res, err
		}

		action := current.Finalize(state, input, result)
		res.Version++
		res.LastAction = action
		e.logger.Debug("step finalized",
			zap.String("step", name),
			zap.String("action", string(action)))

		out := e.edges[name]
		if len(out) == 0 {
			// Terminal step.
			return res, nil
		}
		next, ok := out[action]
		if !ok {
			next, ok = out[Default]
		}
		if !ok {
			e.logger.Warn("no route for action, suspending",
				zap.String("step", name),
				zap.String("action", string(action)))
			res.Suspended = true
			return res, nil
		}
		current = e.steps[next]
	}
}

// execute runs the step's execute phase under its retry spec.
func (e *Engine[S]) execute(ctx context.Context, name string, step Step[S], input any) (any, error) {
	spec := e.retry[name]
	total := spec.Attempts()

	var result any
	var err error
	for attempt := 1; attempt <= total; attempt++ {
		result, err = step.Execute(ctx, input)
		if err == nil {
			return result, nil
		}
		e.logger.Warn("step execute failed",
			zap.String("step", name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < total {
			if serr := e.sleep(ctx, spec.Delay); serr != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrStepFailed, name, err)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrStepFailed, name, total, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
