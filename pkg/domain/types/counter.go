package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// CounterName names an organization scoped sequence, e.g. "RISK-OPS" or "CTL"
type CounterName string

var counterPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(-[A-Z0-9]+)*$`)

const (
	CounterRisk    CounterName = "RISK"
	CounterControl CounterName = "CTL"
)

// Validate checks if the CounterName is valid
func (c CounterName) Validate() error {
	if c == "" {
		return goerr.New("counter name cannot be empty")
	}
	if len(c) > 32 {
		return goerr.New("counter name is too long", goerr.V("name", c))
	}
	if !counterPattern.MatchString(string(c)) {
		return goerr.New("counter name must be uppercase alphanumeric with hyphens", goerr.V("name", c))
	}
	return nil
}

// String returns the string representation of CounterName
func (c CounterName) String() string {
	return string(c)
}

// RiskCounterFor returns the counter used to number risks of a category.
// "ops" yields "RISK-OPS"; an empty category yields "RISK".
func RiskCounterFor(prefix CounterName, category CategoryID) CounterName {
	if prefix == "" {
		prefix = CounterRisk
	}
	if category == "" {
		return prefix
	}
	return CounterName(string(prefix) + "-" + category.CounterSuffix())
}
