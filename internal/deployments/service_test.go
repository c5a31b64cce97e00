package deployments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/rolloutd/rolloutd/internal/metrics"
	"github.com/rolloutd/rolloutd/internal/notify"
)

type fakeDispatcher struct {
	submitted    []uuid.UUID
	cancelResult bool
}

func (d *fakeDispatcher) Submit(deployment *Deployment, _ ExecutionConfig) {
	d.submitted = append(d.submitted, deployment.ID)
}

func (d *fakeDispatcher) Cancel(_ uuid.UUID) bool {
	return d.cancelResult
}

type fakeStatuses struct {
	snapshots map[uuid.UUID]StatusInfo
}

func (s *fakeStatuses) Snapshot(id uuid.UUID) (StatusInfo, bool) {
	info, ok := s.snapshots[id]
	return info, ok
}

func newTestService(t *testing.T) (*Service, *Repository, *fakeDispatcher, *fakeStatuses) {
	t.Helper()

	repo := newTestRepository(t)
	dispatcher := &fakeDispatcher{}
	statuses := &fakeStatuses{snapshots: map[uuid.UUID]StatusInfo{}}
	logger := zaptest.NewLogger(t)

	svc := NewService(
		repo,
		dispatcher,
		statuses,
		notify.NewAuditLogger(logger),
		metrics.New(prometheus.NewRegistry()),
		logger,
	)

	return svc, repo, dispatcher, statuses
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		MutationID:  "mut-1",
		SpecID:      "svc-a",
		Environment: EnvironmentStaging,
		Strategy:    StrategyRolling,
	}
}

func TestService_CreateSubmitsExecution(t *testing.T) {
	svc, repo, dispatcher, _ := newTestService(t)
	ctx := context.Background()

	deployment, err := svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if deployment.Status != StatusPending {
		t.Errorf("Expected pending status, got %q", deployment.Status)
	}
	if len(dispatcher.submitted) != 1 || dispatcher.submitted[0] != deployment.ID {
		t.Errorf("Expected deployment handed to dispatcher, got %v", dispatcher.submitted)
	}

	stored, err := repo.GetByID(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.MutationID != "mut-1" {
		t.Errorf("Expected mutation id 'mut-1', got %q", stored.MutationID)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, dispatcher, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"malformed mutation id", func(r *CreateRequest) { r.MutationID = "-bad" }},
		{"malformed spec id", func(r *CreateRequest) { r.SpecID = "" }},
		{"unknown environment", func(r *CreateRequest) { r.Environment = "qa" }},
		{"unknown strategy", func(r *CreateRequest) { r.Strategy = "yolo" }},
		{"rollback via create", func(r *CreateRequest) { r.Strategy = StrategyRollback }},
		{"unconfirmed production", func(r *CreateRequest) { r.Environment = EnvironmentProduction }},
		{"bad config value", func(r *CreateRequest) { r.Config = map[string]any{"timeoutMinutes": 0} }},
		{"unknown config key", func(r *CreateRequest) { r.Config = map[string]any{"timeOut": 5} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)

			if _, err := svc.Create(ctx, req); !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	if len(dispatcher.submitted) != 0 {
		t.Errorf("Expected no submissions for rejected requests, got %d", len(dispatcher.submitted))
	}
}

func TestService_CreateConfirmedProduction(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := validCreateRequest()
	req.Environment = EnvironmentProduction
	req.Confirmed = true

	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestService_CreateConflict(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validCreateRequest()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	req := validCreateRequest()
	req.MutationID = "mut-2"
	if _, err := svc.Create(ctx, req); !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict for busy target, got %v", err)
	}
}

func TestService_RollbackValidation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	terminal := func(env Environment, spec string, status Status) *Deployment {
		t.Helper()
		d := newTestDeployment("mut-1", spec, env)
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := repo.MarkRunning(ctx, d.ID, time.Now()); err != nil {
			t.Fatalf("MarkRunning failed: %v", err)
		}
		if _, err := repo.MarkTerminal(ctx, d.ID, status, time.Now(), ""); err != nil {
			t.Fatalf("MarkTerminal failed: %v", err)
		}
		return d
	}

	completed := terminal(EnvironmentStaging, "svc-a", StatusCompleted)

	if _, err := svc.Rollback(ctx, RollbackRequest{DeploymentID: completed.ID}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty reason, got %v", err)
	}

	req := RollbackRequest{DeploymentID: uuid.Must(uuid.NewV7()), Reason: "regression"}
	if _, err := svc.Rollback(ctx, req); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown deployment, got %v", err)
	}

	cancelled := terminal(EnvironmentStaging, "svc-b", StatusCancelled)
	req = RollbackRequest{DeploymentID: cancelled.ID, Reason: "regression"}
	if _, err := svc.Rollback(ctx, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for cancelled original, got %v", err)
	}

	pending := newTestDeployment("mut-1", "svc-c", EnvironmentStaging)
	if err := repo.Create(ctx, pending); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	req = RollbackRequest{DeploymentID: pending.ID, Reason: "regression"}
	if _, err := svc.Rollback(ctx, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for non-terminal original, got %v", err)
	}

	production := terminal(EnvironmentProduction, "svc-d", StatusFailed)
	req = RollbackRequest{DeploymentID: production.ID, Reason: "regression"}
	if _, err := svc.Rollback(ctx, req); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for unconfirmed production rollback, got %v", err)
	}
}

func TestService_RollbackOfRollbackRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	originalID := uuid.Must(uuid.NewV7())
	rollback := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	rollback.Strategy = StrategyRollback
	rollback.RollbackOf = &originalID
	rollback.RollbackReason = "first rollback"
	if err := repo.Create(ctx, rollback); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.MarkRunning(ctx, rollback.ID, time.Now()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if _, err := repo.MarkTerminal(ctx, rollback.ID, StatusFailed, time.Now(), "boom"); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	req := RollbackRequest{DeploymentID: rollback.ID, Reason: "second rollback"}
	if _, err := svc.Rollback(ctx, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState rolling back a rollback, got %v", err)
	}
}

func TestService_RollbackCreatesLinkedDeployment(t *testing.T) {
	svc, repo, dispatcher, _ := newTestService(t)
	ctx := context.Background()

	original := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, original); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.MarkRunning(ctx, original.ID, time.Now()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if _, err := repo.MarkTerminal(ctx, original.ID, StatusFailed, time.Now(), "boom"); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	req := RollbackRequest{DeploymentID: original.ID, Reason: "bad release", CreatedBy: "oncall"}
	rollback, err := svc.Rollback(ctx, req)
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if rollback.Strategy != StrategyRollback {
		t.Errorf("Expected rollback strategy, got %q", rollback.Strategy)
	}
	if rollback.RollbackOf == nil || *rollback.RollbackOf != original.ID {
		t.Errorf("Expected rollback link to %s, got %v", original.ID, rollback.RollbackOf)
	}
	if rollback.MutationID != original.MutationID {
		t.Errorf("Expected mutation id carried over, got %q", rollback.MutationID)
	}
	if rollback.RollbackReason != "bad release" {
		t.Errorf("Expected reason 'bad release', got %q", rollback.RollbackReason)
	}
	if len(dispatcher.submitted) != 1 || dispatcher.submitted[0] != rollback.ID {
		t.Errorf("Expected rollback handed to dispatcher, got %v", dispatcher.submitted)
	}
}

func TestService_CancelTerminalDeployment(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	deployment := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, deployment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.MarkRunning(ctx, deployment.ID, time.Now()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if _, err := repo.MarkTerminal(ctx, deployment.ID, StatusCompleted, time.Now(), ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	if err := svc.Cancel(ctx, deployment.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState cancelling terminal deployment, got %v", err)
	}
}

func TestService_CancelOrphanedDeployment(t *testing.T) {
	svc, repo, dispatcher, _ := newTestService(t)
	ctx := context.Background()

	// No live execution: the dispatcher reports no tracked run
	dispatcher.cancelResult = false

	deployment := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, deployment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Cancel(ctx, deployment.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != StatusCancelled {
		t.Errorf("Expected cancelled status, got %q", stored.Status)
	}

	// Lock must be released by the direct cancellation
	next := newTestDeployment("mut-2", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, next); err != nil {
		t.Errorf("Expected target to be free after cancellation, got %v", err)
	}
}

func TestService_CancelLiveDeployment(t *testing.T) {
	svc, repo, dispatcher, _ := newTestService(t)
	ctx := context.Background()

	dispatcher.cancelResult = true

	deployment := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, deployment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.MarkRunning(ctx, deployment.ID, time.Now()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}

	if err := svc.Cancel(ctx, deployment.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// Cancellation is cooperative: the record stays running until the
	// executor observes the intent at a phase boundary.
	stored, err := repo.GetByID(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != StatusRunning {
		t.Errorf("Expected running status until executor reacts, got %q", stored.Status)
	}
}

func TestService_RecoverFailsOrphanedDeployments(t *testing.T) {
	svc, repo, _, statuses := newTestService(t)
	ctx := context.Background()

	orphaned := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, orphaned); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.MarkRunning(ctx, orphaned.ID, time.Now()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}

	live := newTestDeployment("mut-1", "svc-b", EnvironmentStaging)
	if err := repo.Create(ctx, live); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	statuses.snapshots[live.ID] = StatusInfo{DeploymentID: live.ID, Status: StatusRunning}

	if err := svc.Recover(ctx); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	failed, err := repo.GetByID(ctx, orphaned.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != StatusFailed {
		t.Errorf("Expected orphaned deployment failed, got %q", failed.Status)
	}
	if failed.Error == "" {
		t.Error("Expected failure message on recovered deployment")
	}

	untouched, err := repo.GetByID(ctx, live.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != StatusPending {
		t.Errorf("Expected live deployment untouched, got %q", untouched.Status)
	}

	// The released lock makes room for the next attempt
	next := newTestDeployment("mut-2", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, next); err != nil {
		t.Errorf("Expected target to be free after recovery, got %v", err)
	}
}

func TestService_ListRejectsUnknownFilter(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	deployment := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, deployment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cases := []struct {
		name   string
		filter Filter
	}{
		{"unknown status", Filter{Status: "rolled_back"}},
		{"unknown environment", Filter{Environment: "qa"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := svc.List(ctx, c.filter, Page{}); !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	// Known enum values still filter normally
	list, err := svc.List(ctx, Filter{Status: StatusPending}, Page{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("Expected one pending deployment, got %d", list.Total)
	}
}

func TestService_GetStatus(t *testing.T) {
	svc, repo, _, statuses := newTestService(t)
	ctx := context.Background()

	deployment := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, deployment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Without a live tracker the projection is derived from the record
	_, info, err := svc.GetStatus(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if info.Status != StatusPending {
		t.Errorf("Expected derived pending status, got %q", info.Status)
	}
	if info.CurrentStep != "waiting for executor" {
		t.Errorf("Unexpected derived step %q", info.CurrentStep)
	}

	// A live tracker takes precedence over the record
	statuses.snapshots[deployment.ID] = StatusInfo{
		DeploymentID:       deployment.ID,
		Status:             StatusRunning,
		ProgressPercentage: 40,
		CurrentStep:        "replacing units 1-1 of 2",
	}

	_, info, err = svc.GetStatus(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if info.Status != StatusRunning || info.ProgressPercentage != 40 {
		t.Errorf("Expected live projection, got %+v", info)
	}

	if _, _, err := svc.GetStatus(ctx, uuid.Must(uuid.NewV7())); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown deployment, got %v", err)
	}
}

func TestService_GetStatusDerivedTerminal(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	deployment := newTestDeployment("mut-1", "svc-a", EnvironmentStaging)
	if err := repo.Create(ctx, deployment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.MarkRunning(ctx, deployment.ID, time.Now()); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if _, err := repo.MarkTerminal(ctx, deployment.ID, StatusCompleted, time.Now(), ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	_, info, err := svc.GetStatus(ctx, deployment.ID)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if info.Status != StatusCompleted {
		t.Errorf("Expected completed status, got %q", info.Status)
	}
	if info.ProgressPercentage != 100 {
		t.Errorf("Expected 100%% progress for completed deployment, got %d", info.ProgressPercentage)
	}
}
