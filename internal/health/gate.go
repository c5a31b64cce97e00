// Package health implements the readiness gate shared by all strategy
// executors. The gate polls a target's health signal and only lets a
// rollout succeed after an unbroken streak of healthy observations.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result is one health observation of a target.
type Result string

const (
	// Healthy is an explicit positive signal.
	Healthy Result = "healthy"

	// Unhealthy is an explicit negative signal; it counts toward the
	// hard-failure budget immediately.
	Unhealthy Result = "unhealthy"

	// Unknown means the signal could not be obtained (e.g. a transient
	// network failure). It is retried without consuming failure budget,
	// but it does break a healthy streak.
	Unknown Result = "unknown"
)

// Checker obtains the current readiness signal of a target.
type Checker interface {
	Check(ctx context.Context, specID, environment string) (Result, error)
}

// ErrUnhealthy is returned by the gate when the hard-failure budget is
// exhausted before a sufficient healthy streak is observed.
var ErrUnhealthy = errors.New("health checks failed")

// Policy configures one gate run.
type Policy struct {
	// Interval between polls.
	Interval time.Duration

	// RequiredHealthy is the consecutive healthy streak that passes the gate.
	RequiredHealthy int

	// MaxFailures is the budget of Unhealthy observations before the gate
	// fails. Unknown observations do not consume it.
	MaxFailures int
}

// Gate drives a Checker against a policy.
type Gate struct {
	checker Checker
	logger  *zap.Logger
}

func NewGate(checker Checker, logger *zap.Logger) *Gate {
	return &Gate{
		checker: checker,
		logger:  logger,
	}
}

// Await polls until RequiredHealthy consecutive healthy signals are
// observed, the failure budget is exhausted (ErrUnhealthy), or the context
// is done. The first poll happens immediately; subsequent polls wait for
// the policy interval.
func (g *Gate) Await(ctx context.Context, specID, environment string, policy Policy) error {
	healthyStreak := 0
	failures := 0

	logger := g.logger.With(
		zap.String("spec_id", specID),
		zap.String("environment", environment),
	)

	for {
		result, err := g.checker.Check(ctx, specID, environment)
		if err != nil {
			// A checker error is indistinguishable from a transport
			// fault, so it degrades to Unknown.
			logger.Warn("health check errored", zap.Error(err))
			result = Unknown
		}

		switch result {
		case Healthy:
			healthyStreak++
			logger.Debug("health check healthy",
				zap.Int("streak", healthyStreak),
				zap.Int("required", policy.RequiredHealthy),
			)
			if healthyStreak >= policy.RequiredHealthy {
				return nil
			}

		case Unhealthy:
			healthyStreak = 0
			failures++
			logger.Warn("health check unhealthy",
				zap.Int("failures", failures),
				zap.Int("budget", policy.MaxFailures),
			)
			if failures >= policy.MaxFailures {
				return fmt.Errorf("%w: %d unhealthy signals for %s/%s",
					ErrUnhealthy, failures, specID, environment)
			}

		case Unknown:
			healthyStreak = 0
			logger.Debug("health check unknown, retrying")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("health gate interrupted: %w", ctx.Err())
		case <-time.After(policy.Interval):
		}
	}
}
