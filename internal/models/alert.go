package models

import "time"

// AlertSeverity represents alert severity level.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// AlertStatus represents the lifecycle state of an alert.
// SUPPRESSED is accepted and stored but nothing in the engine produces it;
// it is reserved for manual use.
type AlertStatus string

const (
	StatusOpen       AlertStatus = "OPEN"
	StatusResolved   AlertStatus = "RESOLVED"
	StatusSuppressed AlertStatus = "SUPPRESSED"
)

// Alert records a triggered rule for a service. At most one OPEN alert
// exists per (ServiceName, RuleID) pair at any time.
type Alert struct {
	ID          string        `json:"id"`
	RuleID      string        `json:"ruleId"`
	ServiceName string        `json:"serviceName"`
	Env         Environment   `json:"env,omitempty"`
	Tenant      string        `json:"tenant,omitempty"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Observed    float64       `json:"observed"`
	Threshold   float64       `json:"threshold"`
	OpenedAt    time.Time     `json:"openedAt"`
	ClosedAt    *time.Time    `json:"closedAt,omitempty"`
	Note        string        `json:"note,omitempty"`
}

// IsOpen reports whether the alert is still open.
func (a *Alert) IsOpen() bool {
	return a.Status == StatusOpen
}

// ParseAlertSeverity converts a string to AlertSeverity.
func ParseAlertSeverity(s string) AlertSeverity {
	switch s {
	case "low", "LOW", "Low":
		return SeverityLow
	case "medium", "MEDIUM", "Medium":
		return SeverityMedium
	case "high", "HIGH", "High":
		return SeverityHigh
	case "critical", "CRITICAL", "Critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// ParseAlertStatus converts a string to AlertStatus.
func ParseAlertStatus(s string) AlertStatus {
	switch s {
	case "open", "OPEN", "Open":
		return StatusOpen
	case "resolved", "RESOLVED", "Resolved":
		return StatusResolved
	case "suppressed", "SUPPRESSED", "Suppressed":
		return StatusSuppressed
	default:
		return StatusOpen
	}
}
