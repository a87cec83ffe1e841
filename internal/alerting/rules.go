package alerting

import (
	"fmt"

	"github.com/good-yellow-bee/emberwatch/internal/models"
)

// MetricErrorCount counts ERROR-level events for a service inside the
// rule window. It is the only metric this engine ships.
const MetricErrorCount = "error_count"

// RuleConfig describes one alerting rule evaluated per service.
type RuleConfig struct {
	// ID is the rule key stored on alerts, e.g. "error.rate.high".
	ID string `yaml:"id" json:"id"`

	// Metric is the measured quantity. Only error_count is supported.
	Metric string `yaml:"metric" json:"metric"`

	// WindowMinutes is the trailing evaluation window.
	WindowMinutes int `yaml:"window_minutes" json:"windowMinutes"`

	// TriggerThreshold opens (or refreshes) an alert when the observed
	// value exceeds it.
	TriggerThreshold float64 `yaml:"trigger_threshold" json:"triggerThreshold"`

	// RecoveryThreshold resolves an open alert when the observed value
	// is at or below it. Must not exceed TriggerThreshold; equal values
	// collapse the hysteresis band to a single boundary, which permits
	// flapping at exactly the threshold.
	RecoveryThreshold float64 `yaml:"recovery_threshold" json:"recoveryThreshold"`

	// Severity assigned to alerts this rule opens.
	Severity models.AlertSeverity `yaml:"severity" json:"severity"`
}

// Validate checks the rule configuration.
func (r *RuleConfig) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Metric != "" && r.Metric != MetricErrorCount {
		return fmt.Errorf("unsupported metric: %s", r.Metric)
	}
	if r.WindowMinutes <= 0 {
		return fmt.Errorf("window_minutes must be positive")
	}
	if r.TriggerThreshold <= 0 {
		return fmt.Errorf("trigger_threshold must be positive")
	}
	if r.RecoveryThreshold > r.TriggerThreshold {
		return fmt.Errorf("recovery_threshold must not exceed trigger_threshold")
	}
	switch r.Severity {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	case "":
		return fmt.Errorf("severity is required")
	default:
		return fmt.Errorf("invalid severity: %s", r.Severity)
	}
	return nil
}

// DefaultRules returns the built-in rule set: a high error rate rule with
// a five minute window and a threshold of five.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			ID:                "error.rate.high",
			Metric:            MetricErrorCount,
			WindowMinutes:     5,
			TriggerThreshold:  5,
			RecoveryThreshold: 5,
			Severity:          models.SeverityHigh,
		},
	}
}
