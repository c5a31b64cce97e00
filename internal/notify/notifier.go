// Package notify delivers deployment state-transition events to the
// notification/audit sink. Delivery is fire-and-forget: a slow or failing
// sink never blocks or fails an execution.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one deployment state transition. Fields are plain strings so
// any domain package can emit events without depending on this one's
// consumers.
type Event struct {
	DeploymentID uuid.UUID
	MutationID   string
	SpecID       string
	Environment  string
	Strategy     string
	Status       string
	Message      string
	OccurredAt   time.Time
}

// Notifier receives transition events. Implementations must tolerate
// concurrent calls and should not block.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// AuditLogger is the default sink: a structured audit trail in the log.
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

var _ Notifier = (*AuditLogger)(nil)

// Notify implements Notifier.
func (a *AuditLogger) Notify(_ context.Context, event Event) {
	a.logger.Info("deployment transition",
		zap.String("deployment_id", event.DeploymentID.String()),
		zap.String("mutation_id", event.MutationID),
		zap.String("spec_id", event.SpecID),
		zap.String("environment", event.Environment),
		zap.String("strategy", event.Strategy),
		zap.String("status", event.Status),
		zap.String("message", event.Message),
		zap.Time("occurred_at", event.OccurredAt),
	)
}

// Fanout delivers each event to every sink on its own goroutine.
type Fanout struct {
	sinks []Notifier
}

func NewFanout(sinks ...Notifier) *Fanout {
	return &Fanout{
		sinks: sinks,
	}
}

var _ Notifier = (*Fanout)(nil)

// Notify implements Notifier.
func (f *Fanout) Notify(ctx context.Context, event Event) {
	for _, sink := range f.sinks {
		go sink.Notify(ctx, event)
	}
}
