package deployments

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ExecutionConfig is the typed form of the opaque per-deployment config map.
// Unset fields take strategy defaults; unknown keys are rejected so typos
// fail at request time instead of silently changing rollout behavior.
type ExecutionConfig struct {
	// TimeoutMinutes bounds the whole execution; exceeding it fails the
	// deployment regardless of in-flight health checks.
	TimeoutMinutes int `mapstructure:"timeoutMinutes"`

	// HealthCheckIntervalSeconds is the poll cadence of the health gate.
	HealthCheckIntervalSeconds int `mapstructure:"healthCheckIntervalSeconds"`

	// RequiredHealthyChecks is the consecutive healthy streak required
	// before success is declared.
	RequiredHealthyChecks int `mapstructure:"requiredHealthyChecks"`

	// MaxHealthCheckFailures is the hard-failure budget; Unhealthy
	// results count against it, Unknown ones do not.
	MaxHealthCheckFailures int `mapstructure:"maxHealthCheckFailures"`

	// MaxConcurrentUnits bounds how many units a rolling update replaces
	// at a time.
	MaxConcurrentUnits int `mapstructure:"maxConcurrentUnits"`

	// CanaryPercentage is the traffic share routed to the new version
	// during the canary observation phase.
	CanaryPercentage int `mapstructure:"canaryPercentage"`

	// ObservationSeconds is how long canary and blue-green hold the
	// intermediate state before promoting.
	ObservationSeconds int `mapstructure:"observationSeconds"`
}

const (
	defaultTimeoutMinutes         = 30
	defaultHealthCheckInterval    = 30
	defaultRequiredHealthyChecks  = 3
	defaultMaxHealthCheckFailures = 5
	defaultMaxConcurrentUnits     = 1
	defaultCanaryPercentage       = 10
	defaultObservationSeconds     = 60
)

// DefaultExecutionConfig returns the config applied when a request carries
// no overrides.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		TimeoutMinutes:             defaultTimeoutMinutes,
		HealthCheckIntervalSeconds: defaultHealthCheckInterval,
		RequiredHealthyChecks:      defaultRequiredHealthyChecks,
		MaxHealthCheckFailures:     defaultMaxHealthCheckFailures,
		MaxConcurrentUnits:         defaultMaxConcurrentUnits,
		CanaryPercentage:           defaultCanaryPercentage,
		ObservationSeconds:         defaultObservationSeconds,
	}
}

func (c ExecutionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

func (c ExecutionConfig) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalSeconds) * time.Second
}

func (c ExecutionConfig) ObservationWindow() time.Duration {
	return time.Duration(c.ObservationSeconds) * time.Second
}

// ParseExecutionConfig decodes the opaque config map against the strategy's
// schema, applying defaults for unset fields. It returns ErrValidation for
// unknown keys, wrong value types or out-of-range values.
func ParseExecutionConfig(strategy Strategy, raw map[string]any) (ExecutionConfig, error) {
	cfg := DefaultExecutionConfig()

	if len(raw) > 0 {
		var meta mapstructure.Metadata
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &cfg,
			Metadata:         &meta,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return ExecutionConfig{}, fmt.Errorf("failed to build config decoder: %w", err)
		}
		if err := decoder.Decode(raw); err != nil {
			return ExecutionConfig{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		if len(meta.Unused) > 0 {
			return ExecutionConfig{}, fmt.Errorf("%w: unknown config keys %v", ErrValidation, meta.Unused)
		}
	}

	if err := cfg.validate(strategy); err != nil {
		return ExecutionConfig{}, err
	}

	return cfg, nil
}

func (c ExecutionConfig) validate(strategy Strategy) error {
	if c.TimeoutMinutes < 1 {
		return fmt.Errorf("%w: timeoutMinutes must be at least 1", ErrValidation)
	}
	if c.HealthCheckIntervalSeconds < 1 {
		return fmt.Errorf("%w: healthCheckIntervalSeconds must be at least 1", ErrValidation)
	}
	if c.RequiredHealthyChecks < 1 {
		return fmt.Errorf("%w: requiredHealthyChecks must be at least 1", ErrValidation)
	}
	if c.MaxHealthCheckFailures < 1 {
		return fmt.Errorf("%w: maxHealthCheckFailures must be at least 1", ErrValidation)
	}
	if c.MaxConcurrentUnits < 1 {
		return fmt.Errorf("%w: maxConcurrentUnits must be at least 1", ErrValidation)
	}
	if strategy == StrategyCanary && (c.CanaryPercentage < 1 || c.CanaryPercentage > 99) {
		return fmt.Errorf("%w: canaryPercentage must be between 1 and 99", ErrValidation)
	}
	if c.ObservationSeconds < 0 {
		return fmt.Errorf("%w: observationSeconds must not be negative", ErrValidation)
	}

	return nil
}
