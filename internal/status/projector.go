// Package status projects internal execution progress into the externally
// polled read model. Projections are derived state: after a restart they
// are synthesized from the durable record, never the other way around.
package status

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
)

// Projector holds one live tracker per executing deployment and serves
// consistent snapshots to any number of concurrent pollers. Snapshot reads
// never block execution; once a tracker reports a terminal status it is
// latched and no later write can regress it.
type Projector struct {
	mu       sync.RWMutex
	trackers map[uuid.UUID]*Tracker

	logger *zap.Logger
}

func NewProjector(logger *zap.Logger) *Projector {
	return &Projector{
		trackers: make(map[uuid.UUID]*Tracker),
		logger:   logger,
	}
}

// Track registers a tracker for a starting execution.
func (p *Projector) Track(id uuid.UUID) *Tracker {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := newTracker(id)
	p.trackers[id] = t
	return t
}

// Snapshot returns the live projection for id, or ok=false when no
// execution is tracked (the caller then derives one from the record).
func (p *Projector) Snapshot(id uuid.UUID) (deployments.StatusInfo, bool) {
	p.mu.RLock()
	t, ok := p.trackers[id]
	p.mu.RUnlock()

	if !ok {
		return deployments.StatusInfo{}, false
	}

	return t.Snapshot(), true
}

// RequestCancel sets cancellation intent on the tracked execution. It
// reports false when no execution is tracked for the id.
func (p *Projector) RequestCancel(id uuid.UUID) bool {
	p.mu.RLock()
	t, ok := p.trackers[id]
	p.mu.RUnlock()

	if !ok {
		return false
	}

	t.RequestCancel()
	return true
}

// Forget drops a terminal tracker. Kept separate from the terminal write so
// late pollers still observe the final snapshot for a grace period chosen
// by the caller.
func (p *Projector) Forget(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.trackers, id)
}

// Tracker accumulates progress for one execution. Writers are the owning
// executor goroutine; readers are arbitrary pollers.
type Tracker struct {
	mu sync.RWMutex

	id        uuid.UUID
	status    deployments.Status
	progress  int
	step      string
	errorMsg  string
	startedAt time.Time
	updatedAt time.Time
	cancelled bool
}

func newTracker(id uuid.UUID) *Tracker {
	now := time.Now()
	return &Tracker{
		id:        id,
		status:    deployments.StatusPending,
		step:      "waiting for executor",
		startedAt: now,
		updatedAt: now,
	}
}

// Running marks the start of execution.
func (t *Tracker) Running() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != deployments.StatusPending {
		return
	}
	t.status = deployments.StatusRunning
	t.step = "starting"
	t.startedAt = time.Now()
	t.updatedAt = t.startedAt
}

// Step records a phase boundary.
func (t *Tracker) Step(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}
	t.step = label
	t.updatedAt = time.Now()
}

// Progress raises the completion percentage. Values below the current one
// are ignored so the projection stays monotonic while running; values are
// clamped to [0, 100].
func (t *Tracker) Progress(percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent > t.progress {
		t.progress = percent
		t.updatedAt = time.Now()
	}
}

// Complete latches the terminal completed state.
func (t *Tracker) Complete() {
	t.terminal(deployments.StatusCompleted, "completed", "")
	t.mu.Lock()
	t.progress = 100
	t.mu.Unlock()
}

// Fail latches the terminal failed state with its message.
func (t *Tracker) Fail(message string) {
	t.terminal(deployments.StatusFailed, "failed", message)
}

// Cancelled latches the terminal cancelled state.
func (t *Tracker) Cancelled() {
	t.terminal(deployments.StatusCancelled, "cancelled", "")
}

func (t *Tracker) terminal(status deployments.Status, step, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}
	t.status = status
	t.step = step
	t.errorMsg = message
	t.updatedAt = time.Now()
}

// RequestCancel sets the cooperative cancellation intent. The executor
// observes it at the next phase boundary; the request is not preemptive.
func (t *Tracker) RequestCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelled = true
}

// CancelRequested reports whether cancellation intent is set.
func (t *Tracker) CancelRequested() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.cancelled
}

// Snapshot returns a consistent copy of the projection.
func (t *Tracker) Snapshot() deployments.StatusInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info := deployments.StatusInfo{
		DeploymentID:       t.id,
		Status:             t.status,
		ProgressPercentage: t.progress,
		CurrentStep:        t.step,
		UpdatedAt:          t.updatedAt,
	}

	if t.status == deployments.StatusFailed {
		info.ErrorMessage = t.errorMsg
	}

	// Best-effort linear extrapolation from elapsed time and progress;
	// absent until there is progress to extrapolate from.
	if t.status == deployments.StatusRunning && t.progress > 0 {
		elapsed := time.Since(t.startedAt)
		remaining := int(elapsed.Seconds() * float64(100-t.progress) / float64(t.progress))
		info.EstimatedRemainingSeconds = &remaining
	}

	return info
}
