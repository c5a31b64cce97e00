package status

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/rolloutd/rolloutd/internal/deployments"
)

func TestTracker_ProgressIsMonotonic(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	tracker := projector.Track(id)
	tracker.Running()

	tracker.Progress(40)
	tracker.Progress(20)

	info, ok := projector.Snapshot(id)
	if !ok {
		t.Fatal("Expected a live snapshot")
	}
	if info.ProgressPercentage != 40 {
		t.Errorf("Expected progress to stay at 40, got %d", info.ProgressPercentage)
	}

	tracker.Progress(150)
	info, _ = projector.Snapshot(id)
	if info.ProgressPercentage != 100 {
		t.Errorf("Expected progress clamped to 100, got %d", info.ProgressPercentage)
	}
}

func TestTracker_TerminalLatches(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	tracker := projector.Track(id)
	tracker.Running()
	tracker.Progress(60)
	tracker.Fail("health gate failed")

	// Late writes from a straggling goroutine must not regress the state
	tracker.Running()
	tracker.Progress(70)
	tracker.Step("late step")
	tracker.Complete()

	info, ok := projector.Snapshot(id)
	if !ok {
		t.Fatal("Expected a live snapshot")
	}
	if info.Status != deployments.StatusFailed {
		t.Errorf("Expected failed status to latch, got %q", info.Status)
	}
	if info.ErrorMessage != "health gate failed" {
		t.Errorf("Expected error message preserved, got %q", info.ErrorMessage)
	}
	if info.CurrentStep != "failed" {
		t.Errorf("Expected terminal step preserved, got %q", info.CurrentStep)
	}
	if info.ProgressPercentage != 60 {
		t.Errorf("Expected progress frozen at 60, got %d", info.ProgressPercentage)
	}
}

func TestTracker_CompleteForcesFullProgress(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	tracker := projector.Track(id)
	tracker.Running()
	tracker.Progress(95)
	tracker.Complete()

	info, _ := projector.Snapshot(id)
	if info.Status != deployments.StatusCompleted {
		t.Errorf("Expected completed status, got %q", info.Status)
	}
	if info.ProgressPercentage != 100 {
		t.Errorf("Expected 100%% progress, got %d", info.ProgressPercentage)
	}
	if info.EstimatedRemainingSeconds != nil {
		t.Error("Expected no remaining-time estimate for terminal status")
	}
}

func TestTracker_StartsPendingWithoutEstimate(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	projector.Track(id)

	info, ok := projector.Snapshot(id)
	if !ok {
		t.Fatal("Expected a live snapshot")
	}
	if info.Status != deployments.StatusPending {
		t.Errorf("Expected pending status for queued execution, got %q", info.Status)
	}
	if info.CurrentStep != "waiting for executor" {
		t.Errorf("Unexpected initial step %q", info.CurrentStep)
	}
	if info.EstimatedRemainingSeconds != nil {
		t.Error("Expected no estimate before any progress")
	}
}

func TestTracker_EstimateAppearsWithProgress(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	tracker := projector.Track(id)
	tracker.Running()

	info, _ := projector.Snapshot(id)
	if info.EstimatedRemainingSeconds != nil {
		t.Error("Expected no estimate at zero progress")
	}

	tracker.Progress(50)
	info, _ = projector.Snapshot(id)
	if info.EstimatedRemainingSeconds == nil {
		t.Error("Expected an estimate once progress is reported")
	} else if *info.EstimatedRemainingSeconds < 0 {
		t.Errorf("Expected non-negative estimate, got %d", *info.EstimatedRemainingSeconds)
	}
}

func TestProjector_RequestCancel(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	if projector.RequestCancel(id) {
		t.Error("Expected RequestCancel to report false for untracked id")
	}

	tracker := projector.Track(id)
	if tracker.CancelRequested() {
		t.Error("Expected no cancellation intent initially")
	}

	if !projector.RequestCancel(id) {
		t.Error("Expected RequestCancel to report true for tracked id")
	}
	if !tracker.CancelRequested() {
		t.Error("Expected cancellation intent to be visible on the tracker")
	}
}

func TestProjector_Forget(t *testing.T) {
	projector := NewProjector(zaptest.NewLogger(t))
	id := uuid.Must(uuid.NewV7())

	tracker := projector.Track(id)
	tracker.Running()
	tracker.Complete()

	if _, ok := projector.Snapshot(id); !ok {
		t.Fatal("Expected snapshot before Forget")
	}

	projector.Forget(id)

	if _, ok := projector.Snapshot(id); ok {
		t.Error("Expected no snapshot after Forget")
	}
}
