package deployments

import (
	"errors"
	"testing"
)

func TestParseExecutionConfig_Defaults(t *testing.T) {
	cfg, err := ParseExecutionConfig(StrategyRolling, nil)
	if err != nil {
		t.Fatalf("ParseExecutionConfig failed: %v", err)
	}

	if cfg != DefaultExecutionConfig() {
		t.Errorf("Expected defaults %+v, got %+v", DefaultExecutionConfig(), cfg)
	}
}

func TestParseExecutionConfig_Overrides(t *testing.T) {
	raw := map[string]any{
		"timeoutMinutes":         45,
		"requiredHealthyChecks":  5,
		"maxConcurrentUnits":     3,
		"observationSeconds":     0,
		"canaryPercentage":       25,
		"maxHealthCheckFailures": 2,
	}

	cfg, err := ParseExecutionConfig(StrategyCanary, raw)
	if err != nil {
		t.Fatalf("ParseExecutionConfig failed: %v", err)
	}

	if cfg.TimeoutMinutes != 45 {
		t.Errorf("Expected timeoutMinutes 45, got %d", cfg.TimeoutMinutes)
	}
	if cfg.RequiredHealthyChecks != 5 {
		t.Errorf("Expected requiredHealthyChecks 5, got %d", cfg.RequiredHealthyChecks)
	}
	if cfg.MaxConcurrentUnits != 3 {
		t.Errorf("Expected maxConcurrentUnits 3, got %d", cfg.MaxConcurrentUnits)
	}
	if cfg.CanaryPercentage != 25 {
		t.Errorf("Expected canaryPercentage 25, got %d", cfg.CanaryPercentage)
	}
	if cfg.ObservationSeconds != 0 {
		t.Errorf("Expected observationSeconds 0, got %d", cfg.ObservationSeconds)
	}
	// Unset field keeps its default
	if cfg.HealthCheckIntervalSeconds != defaultHealthCheckInterval {
		t.Errorf("Expected default healthCheckIntervalSeconds, got %d", cfg.HealthCheckIntervalSeconds)
	}
}

func TestParseExecutionConfig_WeaklyTypedNumbers(t *testing.T) {
	// JSON decoding hands numbers over as float64
	raw := map[string]any{
		"timeoutMinutes": float64(10),
	}

	cfg, err := ParseExecutionConfig(StrategyRolling, raw)
	if err != nil {
		t.Fatalf("ParseExecutionConfig failed: %v", err)
	}

	if cfg.TimeoutMinutes != 10 {
		t.Errorf("Expected timeoutMinutes 10, got %d", cfg.TimeoutMinutes)
	}
}

func TestParseExecutionConfig_UnknownKey(t *testing.T) {
	raw := map[string]any{
		"timeoutMinuts": 45,
	}

	_, err := ParseExecutionConfig(StrategyRolling, raw)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation for unknown key, got %v", err)
	}
}

func TestParseExecutionConfig_OutOfRange(t *testing.T) {
	cases := []struct {
		name     string
		strategy Strategy
		raw      map[string]any
	}{
		{"zero timeout", StrategyRolling, map[string]any{"timeoutMinutes": 0}},
		{"zero interval", StrategyRolling, map[string]any{"healthCheckIntervalSeconds": 0}},
		{"zero required healthy", StrategyRolling, map[string]any{"requiredHealthyChecks": 0}},
		{"zero failure budget", StrategyRolling, map[string]any{"maxHealthCheckFailures": 0}},
		{"zero batch size", StrategyRolling, map[string]any{"maxConcurrentUnits": 0}},
		{"canary percentage too high", StrategyCanary, map[string]any{"canaryPercentage": 100}},
		{"canary percentage too low", StrategyCanary, map[string]any{"canaryPercentage": 0}},
		{"negative observation", StrategyRolling, map[string]any{"observationSeconds": -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExecutionConfig(tc.strategy, tc.raw)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseExecutionConfig_CanaryPercentageIgnoredForOtherStrategies(t *testing.T) {
	// The canary bounds only apply when the strategy actually uses them
	_, err := ParseExecutionConfig(StrategyRolling, map[string]any{"canaryPercentage": 0})
	if err != nil {
		t.Fatalf("ParseExecutionConfig failed: %v", err)
	}
}
