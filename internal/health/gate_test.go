package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// scriptedChecker replays a fixed sequence of results, then repeats the
// last one.
type scriptedChecker struct {
	results []Result
	errs    []error
	calls   int
}

func (c *scriptedChecker) Check(_ context.Context, _, _ string) (Result, error) {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++

	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.results[i], err
}

func testPolicy() Policy {
	return Policy{
		Interval:        time.Millisecond,
		RequiredHealthy: 3,
		MaxFailures:     2,
	}
}

func TestGate_PassesAfterHealthyStreak(t *testing.T) {
	checker := &scriptedChecker{results: []Result{Healthy}}
	gate := NewGate(checker, zaptest.NewLogger(t))

	if err := gate.Await(context.Background(), "svc-a", "staging", testPolicy()); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if checker.calls != 3 {
		t.Errorf("Expected 3 checks for the required streak, got %d", checker.calls)
	}
}

func TestGate_UnhealthyResetsStreakAndConsumesBudget(t *testing.T) {
	checker := &scriptedChecker{results: []Result{Healthy, Healthy, Unhealthy, Healthy}}
	gate := NewGate(checker, zaptest.NewLogger(t))

	if err := gate.Await(context.Background(), "svc-a", "staging", testPolicy()); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	// Two healthy, one unhealthy, then a fresh streak of three
	if checker.calls != 6 {
		t.Errorf("Expected 6 checks, got %d", checker.calls)
	}
}

func TestGate_FailsWhenBudgetExhausted(t *testing.T) {
	checker := &scriptedChecker{results: []Result{Unhealthy}}
	gate := NewGate(checker, zaptest.NewLogger(t))

	err := gate.Await(context.Background(), "svc-a", "staging", testPolicy())
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("Expected ErrUnhealthy, got %v", err)
	}
	if checker.calls != 2 {
		t.Errorf("Expected the gate to stop at the failure budget, got %d checks", checker.calls)
	}
}

func TestGate_UnknownBreaksStreakWithoutConsumingBudget(t *testing.T) {
	checker := &scriptedChecker{results: []Result{
		Healthy, Healthy, Unknown, Unknown, Unknown, Healthy,
	}}
	gate := NewGate(checker, zaptest.NewLogger(t))

	// Three Unknown results exceed MaxFailures, but only Unhealthy ones
	// count against the budget
	if err := gate.Await(context.Background(), "svc-a", "staging", testPolicy()); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if checker.calls != 8 {
		t.Errorf("Expected 8 checks, got %d", checker.calls)
	}
}

func TestGate_CheckerErrorDegradesToUnknown(t *testing.T) {
	checker := &scriptedChecker{
		results: []Result{Unhealthy, Healthy},
		errs:    []error{errors.New("connection refused")},
	}
	gate := NewGate(checker, zaptest.NewLogger(t))

	// The first observation errors and is treated as Unknown, so the
	// budget of 2 is never exhausted
	if err := gate.Await(context.Background(), "svc-a", "staging", testPolicy()); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
}

func TestGate_ContextCancellation(t *testing.T) {
	checker := &scriptedChecker{results: []Result{Unknown}}
	gate := NewGate(checker, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := gate.Await(ctx, "svc-a", "staging", testPolicy())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline error, got %v", err)
	}
}
