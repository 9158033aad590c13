package types

import "fmt"

// RiskStatus represents the lifecycle state of a risk. Risks are never deleted;
// ARCHIVED is the terminal state.
type RiskStatus string

const (
	RiskStatusOpen       RiskStatus = "OPEN"
	RiskStatusMonitoring RiskStatus = "MONITORING"
	RiskStatusClosed     RiskStatus = "CLOSED"
	RiskStatusArchived   RiskStatus = "ARCHIVED"
)

// AllRiskStatuses returns all valid risk statuses
func AllRiskStatuses() []RiskStatus {
	return []RiskStatus{
		RiskStatusOpen,
		RiskStatusMonitoring,
		RiskStatusClosed,
		RiskStatusArchived,
	}
}

// IsValid checks if the risk status is valid
func (s RiskStatus) IsValid() bool {
	switch s {
	case RiskStatusOpen,
		RiskStatusMonitoring,
		RiskStatusClosed,
		RiskStatusArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk status
func (s RiskStatus) String() string {
	return string(s)
}

// ParseRiskStatus parses a string into a RiskStatus
func ParseRiskStatus(s string) (RiskStatus, error) {
	status := RiskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid risk status: %s", s)
	}
	return status, nil
}
