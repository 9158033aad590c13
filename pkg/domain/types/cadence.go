package types

import "fmt"

// Cadence is the length of the administrative period an organization closes
type Cadence string

const (
	CadenceQuarterly  Cadence = "QUARTERLY"
	CadenceMonthly    Cadence = "MONTHLY"
	CadenceHalfYearly Cadence = "HALF_YEARLY"
	CadenceYearly     Cadence = "YEARLY"
)

// IsValid checks if the cadence is valid
func (c Cadence) IsValid() bool {
	return c.PeriodsPerYear() > 0
}

// PeriodsPerYear returns how many periods of this cadence fit in a year,
// or 0 for an unknown cadence
func (c Cadence) PeriodsPerYear() int {
	switch c {
	case CadenceQuarterly:
		return 4
	case CadenceMonthly:
		return 12
	case CadenceHalfYearly:
		return 2
	case CadenceYearly:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the cadence
func (c Cadence) String() string {
	return string(c)
}

// ParseCadence parses a string into a Cadence
func ParseCadence(s string) (Cadence, error) {
	c := Cadence(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid cadence: %s", s)
	}
	return c, nil
}
