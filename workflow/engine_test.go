package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

type counters struct {
	prepares  int
	executes  int
	finalizes int
	log       []string
}

func step(name string, c *counters, action Action, tags ...Action) *Func[counters] {
	if len(tags) == 0 {
		tags = []Action{action}
	}
	return &Func[counters]{
		StepName:   name,
		ActionTags: tags,
		PrepareFn: func(s *counters) (any, error) {
			s.prepares++
			return name + "-input", nil
		},
		ExecuteFn: func(_ context.Context, input any) (any, error) {
			c.executes++
			return input, nil
		},
		FinalizeFn: func(s *counters, _, _ any) Action {
			s.finalizes++
			s.log = append(s.log, name)
			return action
		},
	}
}

func TestRun_LinearFlow(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("a", &shared, Default))
	mustAdd(t, e, step("b", &shared, Default))
	mustAdd(t, e, step("c", &shared, "done"))
	mustRoute(t, e, "a", Default, "b")
	mustRoute(t, e, "b", Default, "c")

	if err := e.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	res, err := e.Run(context.Background(), &shared)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Terminal != "c" || res.Suspended {
		t.Errorf("Terminal = %q suspended=%v", res.Terminal, res.Suspended)
	}
	if len(res.Path) != 3 {
		t.Errorf("Path = %v", res.Path)
	}
	if res.Version != 3 || shared.finalizes != 3 {
		t.Errorf("Version = %d finalizes = %d, want 3", res.Version, shared.finalizes)
	}
	if res.LastAction != "done" {
		t.Errorf("LastAction = %q", res.LastAction)
	}
}

func TestRun_BranchRouting(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("gate", &shared, "reject", "accept", "reject"))
	mustAdd(t, e, step("accepted", &shared, Default))
	mustAdd(t, e, step("rejected", &shared, Default))
	mustRoute(t, e, "gate", "accept", "accepted")
	mustRoute(t, e, "gate", "reject", "rejected")

	res, err := e.Run(context.Background(), &shared)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Terminal != "rejected" {
		t.Errorf("Terminal = %q, want rejected", res.Terminal)
	}
}

func TestRun_UnmatchedTagSuspends(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("a", &shared, "surprise", "known"))
	mustAdd(t, e, step("b", &shared, Default))
	mustRoute(t, e, "a", "known", "b")

	res, err := e.Run(context.Background(), &shared)
	if err != nil {
		t.Fatalf("Run must not fail on an unmatched tag: %v", err)
	}
	if !res.Suspended {
		t.Fatal("expected suspended result")
	}
	if res.Terminal != "a" || res.LastAction != "surprise" {
		t.Errorf("Terminal = %q LastAction = %q", res.Terminal, res.LastAction)
	}
	if shared.finalizes != 1 {
		t.Errorf("finalizes = %d, want 1", shared.finalizes)
	}
}

func TestRunFrom_ResumesSuspendedRun(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("a", &shared, "needs-input", "needs-input"))
	mustAdd(t, e, step("b", &shared, "done"))
	mustRoute(t, e, "a", "resume", "b")

	res, err := e.Run(context.Background(), &shared)
	if err != nil || !res.Suspended {
		t.Fatalf("expected suspension, got res=%+v err=%v", res, err)
	}

	// Caller supplies the missing input out of band, then resumes at b.
	res, err = e.RunFrom(context.Background(), &shared, "b")
	if err != nil {
		t.Fatalf("RunFrom: %v", err)
	}
	if res.Terminal != "b" || res.Suspended {
		t.Errorf("resume ended at %q suspended=%v", res.Terminal, res.Suspended)
	}
}

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	var shared counters
	calls := 0
	flaky := &Func[counters]{
		StepName:   "flaky",
		ActionTags: []Action{Default},
		ExecuteFn: func(_ context.Context, _ any) (any, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("transient")
			}
			return "ok", nil
		},
		FinalizeFn: func(s *counters, _, result any) Action {
			s.finalizes++
			if result != "ok" {
				t.Errorf("finalize saw %v", result)
			}
			return Default
		},
	}
	e := New[counters](nil)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	if err := e.AddWithRetry(flaky, RetrySpec{MaxRetries: 2, Delay: time.Second}); err != nil {
		t.Fatal(err)
	}

	res, err := e.Run(context.Background(), &shared)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 {
		t.Errorf("execute calls = %d, want 3", calls)
	}
	// Exactly one finalize despite the retries.
	if shared.finalizes != 1 || res.Version != 1 {
		t.Errorf("finalizes = %d version = %d", shared.finalizes, res.Version)
	}
}

func TestExecute_ExhaustedRetriesFailRun(t *testing.T) {
	var shared counters
	calls := 0
	broken := &Func[counters]{
		StepName:   "broken",
		ActionTags: []Action{Default},
		ExecuteFn: func(_ context.Context, _ any) (any, error) {
			calls++
			return nil, errors.New("always down")
		},
		FinalizeFn: func(s *counters, _, _ any) Action {
			s.finalizes++
			return Default
		},
	}
	e := New[counters](nil)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	if err := e.AddWithRetry(broken, RetrySpec{MaxRetries: 2}); err != nil {
		t.Fatal(err)
	}

	res, err := e.Run(context.Background(), &shared)
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("expected ErrStepFailed, got %v", err)
	}
	if calls != 3 {
		t.Errorf("execute calls = %d, want maxRetries+1 = 3", calls)
	}
	if shared.finalizes != 0 {
		t.Error("finalize must not run after a failed execute")
	}
	if len(res.Path) != 1 || res.Path[0] != "broken" {
		t.Errorf("Path = %v", res.Path)
	}
}

func TestValidate_UnroutedDeclaredAction(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("a", &shared, "x", "x", "y"))
	mustAdd(t, e, step("b", &shared, Default))
	mustRoute(t, e, "a", "x", "b")

	err := e.Validate()
	if !errors.Is(err, ErrUnroutedTag) {
		t.Fatalf("expected ErrUnroutedTag for undeclared route, got %v", err)
	}

	// A default edge covers the remaining tags.
	mustRoute(t, e, "a", Default, "b")
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate with default edge: %v", err)
	}
}

func TestValidate_TerminalStepExempt(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("only", &shared, "whatever", "whatever"))
	if err := e.Validate(); err != nil {
		t.Fatalf("terminal step must pass validation: %v", err)
	}
}

func TestAdd_DuplicateName(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("a", &shared, Default))
	if err := e.Add(step("a", &shared, Default)); !errors.Is(err, ErrDuplicateStep) {
		t.Errorf("expected ErrDuplicateStep, got %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	var shared counters
	e := New[counters](nil)
	mustAdd(t, e, step("a", &shared, Default))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, &shared); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if shared.finalizes != 0 {
		t.Error("no step should run under a cancelled context")
	}
}

func mustAdd(t *testing.T, e *Engine[counters], s Step[counters]) {
	t.Helper()
	if err := e.Add(s); err != nil {
		t.Fatal(err)
	}
}

func mustRoute(t *testing.T, e *Engine[counters], from string, a Action, to string) {
	t.Helper()
	if err := e.Route(from, a, to); err != nil {
		t.Fatal(err)
	}
}
