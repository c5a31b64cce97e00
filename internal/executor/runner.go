package executor

import (
	"context"
	"errors"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/health"
	"github.com/rolloutd/rolloutd/internal/metrics"
	"github.com/rolloutd/rolloutd/internal/notify"
	"github.com/rolloutd/rolloutd/internal/provision"
	"github.com/rolloutd/rolloutd/internal/status"
)

// Config tunes the runner.
type Config struct {
	// Workers bounds how many deployments execute concurrently. Submitted
	// executions beyond it queue inside the pool, which still keeps the
	// scheduling delay bounded since the lock already serializes per target.
	Workers int

	// TrackerRetention is how long a terminal projection stays available
	// to late pollers before it is dropped.
	TrackerRetention time.Duration

	// MaxExecutionTime caps the per-deployment timeout regardless of what
	// its execution config asks for. Zero means no cap.
	MaxExecutionTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:          8,
		TrackerRetention: 10 * time.Minute,
	}
}

// Runner owns the deployment lifecycle around the strategy executors: the
// pending-to-running transition, the execution timeout, the final health
// gate, cancellation intent and the terminal persistence that releases the
// target lock.
type Runner struct {
	config   Config
	pool     *workerpool.WorkerPool
	registry *Registry

	repo        *deployments.Repository
	projector   *status.Projector
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	provisioner provision.Provisioner
	gate        *health.Gate

	logger *zap.Logger
}

func NewRunner(
	config Config,
	registry *Registry,
	repo *deployments.Repository,
	projector *status.Projector,
	notifier notify.Notifier,
	m *metrics.Metrics,
	provisioner provision.Provisioner,
	gate *health.Gate,
	logger *zap.Logger,
) *Runner {
	if config.Workers < 1 {
		config.Workers = DefaultConfig().Workers
	}
	if config.TrackerRetention <= 0 {
		config.TrackerRetention = DefaultConfig().TrackerRetention
	}

	return &Runner{
		config:      config,
		pool:        workerpool.New(config.Workers),
		registry:    registry,
		repo:        repo,
		projector:   projector,
		notifier:    notifier,
		metrics:     m,
		provisioner: provisioner,
		gate:        gate,
		logger:      logger,
	}
}

// Submit schedules the deployment for asynchronous execution. The caller
// has already persisted it as pending and holds the target lock through it.
func (r *Runner) Submit(deployment *deployments.Deployment, config deployments.ExecutionConfig) {
	tracker := r.projector.Track(deployment.ID)

	r.pool.Submit(func() {
		r.run(deployment, config, tracker)
	})
}

// Cancel sets cancellation intent on a live execution. The executor
// observes it at its next phase boundary; the call reports false when no
// execution is tracked for the id.
func (r *Runner) Cancel(id uuid.UUID) bool {
	return r.projector.RequestCancel(id)
}

// Stop drains the pool. Queued executions still run; the recovery sweep
// handles anything interrupted harder than that.
func (r *Runner) Stop() {
	r.pool.StopWait()
}

func (r *Runner) run(
	deployment *deployments.Deployment,
	config deployments.ExecutionConfig,
	tracker *status.Tracker,
) {
	logger := r.logger.With(
		zap.String("deployment_id", deployment.ID.String()),
		zap.String("strategy", string(deployment.Strategy)),
		zap.String("target", deployment.Target().String()),
	)

	// Intent may arrive while the execution is still queued; honor it
	// before doing any work.
	if tracker.CancelRequested() {
		r.finish(deployment, tracker, deployments.StatusCancelled, "", logger)
		return
	}

	running, err := r.repo.MarkRunning(context.Background(), deployment.ID, time.Now())
	if err != nil {
		// Typically a racing direct cancellation; nothing left to drive.
		logger.Warn("could not transition deployment to running", zap.Error(err))
		r.projector.Forget(deployment.ID)
		return
	}

	tracker.Running()
	r.metrics.ActiveExecutions.Inc()
	defer r.metrics.ActiveExecutions.Dec()

	timeout := config.Timeout()
	if r.config.MaxExecutionTime > 0 && timeout > r.config.MaxExecutionTime {
		timeout = r.config.MaxExecutionTime
	}

	r.notify(running, "execution started")
	logger.Info("execution started", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	execution := &Execution{
		Deployment:  running,
		Config:      config,
		Version:     running.MutationID,
		Provisioner: r.provisioner,
		Gate:        r.gate,
		Tracker:     tracker,
		Registry:    r.registry,
		History:     r.repo,
		Logger:      logger,
	}

	execErr := r.execute(ctx, running, execution)

	switch {
	case execErr == nil:
		r.finish(running, tracker, deployments.StatusCompleted, "", logger)

	case errors.Is(execErr, ErrCancelled):
		r.finish(running, tracker, deployments.StatusCancelled, "", logger)

	case errors.Is(execErr, context.DeadlineExceeded):
		message := "timeout after " + timeout.String()
		r.finish(running, tracker, deployments.StatusFailed, message, logger)

	default:
		r.finish(running, tracker, deployments.StatusFailed, execErr.Error(), logger)
	}
}

func (r *Runner) execute(
	ctx context.Context,
	deployment *deployments.Deployment,
	execution *Execution,
) error {
	strategyExecutor, err := r.registry.Get(deployment.Strategy)
	if err != nil {
		return err
	}

	if err := strategyExecutor.Execute(ctx, execution); err != nil {
		return err
	}

	// Success is only declared once the gate observes the configured
	// healthy streak, whatever the strategy already checked internally.
	if err := execution.Boundary(ctx, "confirming stability", 95); err != nil {
		return err
	}

	return execution.AwaitHealthy(ctx)
}

func (r *Runner) finish(
	deployment *deployments.Deployment,
	tracker *status.Tracker,
	terminal deployments.Status,
	message string,
	logger *zap.Logger,
) {
	switch terminal {
	case deployments.StatusCompleted:
		tracker.Complete()
	case deployments.StatusCancelled:
		tracker.Cancelled()
	default:
		tracker.Fail(message)
	}

	record, err := r.repo.MarkTerminal(context.Background(), deployment.ID, terminal, time.Now(), message)
	if err != nil {
		logger.Error("failed to persist terminal status", zap.Error(err))
	} else {
		r.notify(record, message)
	}

	r.metrics.DeploymentsDone.WithLabelValues(
		string(deployment.Strategy),
		string(deployment.Environment),
		string(terminal),
	).Inc()

	logger.Info("execution finished",
		zap.String("status", string(terminal)),
		zap.String("error", message),
	)

	id := deployment.ID
	time.AfterFunc(r.config.TrackerRetention, func() {
		r.projector.Forget(id)
	})
}

func (r *Runner) notify(deployment *deployments.Deployment, message string) {
	r.notifier.Notify(context.Background(), notify.Event{
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
