package types

import "fmt"

// ControlType tells which inherent dimension a control mitigates
type ControlType string

const (
	ControlTypeLikelihood ControlType = "LIKELIHOOD_REDUCING"
	ControlTypeImpact     ControlType = "IMPACT_REDUCING"
)

// IsValid checks if the control type is valid
func (c ControlType) IsValid() bool {
	switch c {
	case ControlTypeLikelihood, ControlTypeImpact:
		return true
	default:
		return false
	}
}

// String returns the string representation of the control type
func (c ControlType) String() string {
	return string(c)
}

// ParseControlType parses a string into a ControlType
func ParseControlType(s string) (ControlType, error) {
	ct := ControlType(s)
	if !ct.IsValid() {
		return "", fmt.Errorf("invalid control type: %s", s)
	}
	return ct, nil
}
