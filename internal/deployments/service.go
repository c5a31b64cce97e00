package deployments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/metrics"
	"github.com/rolloutd/rolloutd/internal/notify"
)

// Dispatcher hands accepted deployments to the asynchronous execution
// layer. Implemented by the executor runner.
type Dispatcher interface {
	Submit(deployment *Deployment, config ExecutionConfig)
	Cancel(id uuid.UUID) bool
}

// StatusSource serves live progress projections. Implemented by the
// status projector.
type StatusSource interface {
	Snapshot(id uuid.UUID) (StatusInfo, bool)
}

// Service is the orchestrator core: it validates requests, claims the
// per-target exclusivity lock through the record store, persists lifecycle
// transitions and hands execution off to the dispatcher. It never blocks a
// caller on a running rollout.
type Service struct {
	deployments *Repository
	dispatcher  Dispatcher
	statuses    StatusSource
	notifier    notify.Notifier
	metrics     *metrics.Metrics

	logger *zap.Logger
}

func NewService(
	deployments *Repository,
	dispatcher Dispatcher,
	statuses StatusSource,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		deployments: deployments,
		dispatcher:  dispatcher,
		statuses:    statuses,
		notifier:    notifier,
		metrics:     m,

		logger: logger,
	}
}

// Create accepts a rollout request. On success a pending deployment is
// durably recorded, the target lock is held and execution has been
// scheduled; the call returns without waiting for the rollout.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Deployment, error) {
	logger := s.logger.With(
		zap.String("mutation_id", req.MutationID),
		zap.String("spec_id", req.SpecID),
		zap.String("environment", string(req.Environment)),
		zap.String("strategy", string(req.Strategy)),
	)
	logger.Info("creating deployment")

	if err := s.validateCreate(req); err != nil {
		logger.Warn("rejected deployment request", zap.Error(err))
		return nil, err
	}

	config, err := ParseExecutionConfig(req.Strategy, req.Config)
	if err != nil {
		logger.Warn("rejected deployment config", zap.Error(err))
		return nil, err
	}

	deployment := &Deployment{
		ID:          uuid.Must(uuid.NewV7()),
		MutationID:  req.MutationID,
		SpecID:      req.SpecID,
		Environment: req.Environment,
		Strategy:    req.Strategy,
		Status:      StatusPending,
		Config:      req.Config,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.accept(ctx, deployment, config); err != nil {
		logger.Error("failed to accept deployment", zap.Error(err))
		return nil, err
	}

	logger.Info("deployment created", zap.String("id", deployment.ID.String()))
	return deployment, nil
}

// Rollback creates a new deployment that reverts a prior terminal one. The
// original record is never mutated; the link runs through RollbackOf.
func (s *Service) Rollback(ctx context.Context, req RollbackRequest) (*Deployment, error) {
	logger := s.logger.With(zap.String("rollback_of", req.DeploymentID.String()))
	logger.Info("creating rollback deployment")

	if req.Reason == "" {
		return nil, fmt.Errorf("%w: rollback reason must not be empty", ErrValidation)
	}

	original, err := s.deployments.GetByID(ctx, req.DeploymentID)
	if err != nil {
		return nil, err
	}

	if original.Strategy == StrategyRollback {
		return nil, fmt.Errorf("%w: deployment %s is itself a rollback", ErrInvalidState, original.ID)
	}
	if original.Status != StatusCompleted && original.Status != StatusFailed {
		return nil, fmt.Errorf("%w: cannot roll back deployment in status %q",
			ErrInvalidState, original.Status)
	}
	if original.Environment == EnvironmentProduction && !req.Confirmed {
		return nil, fmt.Errorf("%w: production rollback requires operator confirmation", ErrValidation)
	}

	config, err := ParseExecutionConfig(StrategyRollback, original.Config)
	if err != nil {
		return nil, err
	}

	rollbackOf := original.ID
	deployment := &Deployment{
		ID:             uuid.Must(uuid.NewV7()),
		MutationID:     original.MutationID,
		SpecID:         original.SpecID,
		Environment:    original.Environment,
		Strategy:       StrategyRollback,
		Status:         StatusPending,
		Config:         original.Config,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
		RollbackOf:     &rollbackOf,
		RollbackReason: req.Reason,
	}

	if err := s.accept(ctx, deployment, config); err != nil {
		logger.Error("failed to accept rollback", zap.Error(err))
		return nil, err
	}

	logger.Info("rollback created", zap.String("id", deployment.ID.String()))
	return deployment, nil
}

// Get retrieves a deployment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Deployment, error) {
	s.logger.Debug("getting deployment", zap.String("id", id.String()))

	deployment, err := s.deployments.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get deployment", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	return deployment, nil
}

// List returns one page of deployments matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter, page Page) (DeploymentList, error) {
	s.logger.Debug("listing deployments")

	if err := filter.Validate(); err != nil {
		return DeploymentList{}, err
	}

	list, err := s.deployments.List(ctx, filter, page)
	if err != nil {
		s.logger.Error("failed to list deployments", zap.Error(err))
		return DeploymentList{}, err
	}

	return list, nil
}

// GetStatus returns the latest progress projection plus the record. Reads
// are snapshot-based and never block on execution; once a terminal status
// has been observed no later call regresses to a non-terminal one.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*Deployment, StatusInfo, error) {
	deployment, err := s.deployments.GetByID(ctx, id)
	if err != nil {
		return nil, StatusInfo{}, err
	}

	if info, ok := s.statuses.Snapshot(id); ok {
		return deployment, info, nil
	}

	return deployment, deriveStatus(deployment), nil
}

// Cancel requests cooperative cancellation. A live execution observes the
// intent at its next phase boundary; an orphaned non-terminal record (no
// live execution, e.g. right after a restart) is cancelled directly.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	deployment, err := s.deployments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if deployment.Status.Terminal() {
		return fmt.Errorf("%w: cannot cancel deployment in status %q", ErrInvalidState, deployment.Status)
	}

	if s.dispatcher.Cancel(id) {
		s.logger.Info("cancellation requested", zap.String("id", id.String()))
		return nil
	}

	cancelled, err := s.deployments.MarkTerminal(ctx, id, StatusCancelled, time.Now(), "")
	if err != nil {
		return err
	}

	s.logger.Info("orphaned deployment cancelled", zap.String("id", id.String()))
	s.publish(cancelled, "cancelled without live execution")
	return nil
}

// Recover is the crash-recovery sweep: any deployment left non-terminal
// with no live execution is failed and its target lock released. Locks are
// not held across process restarts, so this runs before the server starts
// accepting requests.
func (s *Service) Recover(ctx context.Context) error {
	unfinished, err := s.deployments.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unfinished deployments: %w", err)
	}

	for _, deployment := range unfinished {
		if _, live := s.statuses.Snapshot(deployment.ID); live {
			continue
		}

		failed, markErr := s.deployments.MarkTerminal(
			ctx,
			deployment.ID,
			StatusFailed,
			time.Now(),
			"orchestrator restarted during execution",
		)
		if markErr != nil {
			s.logger.Error("failed to fail orphaned deployment",
				zap.String("id", deployment.ID.String()),
				zap.Error(markErr),
			)
			continue
		}

		s.logger.Warn("failed orphaned deployment",
			zap.String("id", deployment.ID.String()),
			zap.String("target", deployment.Target().String()),
		)
		s.publish(failed, failed.Error)
	}

	return nil
}

// accept persists the pending record (claiming the target lock) and hands
// off to the dispatcher.
func (s *Service) accept(ctx context.Context, deployment *Deployment, config ExecutionConfig) error {
	if err := s.deployments.Create(ctx, deployment); err != nil {
		return err
	}

	s.metrics.DeploymentsCreated.WithLabelValues(
		string(deployment.Strategy),
		string(deployment.Environment),
	).Inc()
	s.publish(deployment, "accepted")

	s.dispatcher.Submit(deployment, config)
	return nil
}

func (s *Service) validateCreate(req CreateRequest) error {
	if !ValidIdentifier(req.MutationID) {
		return fmt.Errorf("%w: malformed mutation id %q", ErrValidation, req.MutationID)
	}
	if !ValidIdentifier(req.SpecID) {
		return fmt.Errorf("%w: malformed spec id %q", ErrValidation, req.SpecID)
	}
	if !req.Environment.Valid() {
		return fmt.Errorf("%w: unknown environment %q", ErrValidation, req.Environment)
	}
	if !req.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrValidation, req.Strategy)
	}
	if req.Strategy == StrategyRollback {
		return fmt.Errorf("%w: rollbacks are created through the rollback operation", ErrValidation)
	}
	if req.Environment == EnvironmentProduction && !req.Confirmed {
		return fmt.Errorf("%w: production deployment requires operator confirmation", ErrValidation)
	}

	return nil
}

func (s *Service) publish(deployment *Deployment, message string) {
	s.notifier.Notify(context.Background(), notify.Event{
		DeploymentID: deployment.ID,
		MutationID:   deployment.MutationID,
		SpecID:       deployment.SpecID,
		Environment:  string(deployment.Environment),
		Strategy:     string(deployment.Strategy),
		Status:       string(deployment.Status),
		Message:      message,
		OccurredAt:   time.Now(),
	})
}

// deriveStatus synthesizes a projection from the durable record when no
// live execution is tracked, e.g. for pending deployments or after a
// restart.
func deriveStatus(d *Deployment) StatusInfo {
	info := StatusInfo{
		DeploymentID: d.ID,
		Status:       d.Status,
		UpdatedAt:    d.UpdatedAt,
	}

	switch d.Status {
	case StatusCompleted:
		info.ProgressPercentage = 100
		info.CurrentStep = "completed"
	case StatusFailed:
		info.CurrentStep = "failed"
		info.ErrorMessage = d.Error
	case StatusCancelled:
		info.CurrentStep = "cancelled"
	case StatusRunning:
		// Running with no tracker means the execution did not survive a
		// restart; the recovery sweep will fail it shortly.
		info.CurrentStep = "running"
	default:
		info.CurrentStep = "waiting for executor"
	}

	return info
}
