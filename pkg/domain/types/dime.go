package types

import (
	"github.com/m-mizutani/goerr/v2"
)

const (
	MinDIME = 0
	MaxDIME = 3
)

// DIMEScore is one of the Design, Implementation, Monitoring, Evaluation
// maturity sub-scores of a control
type DIMEScore int

// Validate checks if the DIMEScore is in range
func (d DIMEScore) Validate() error {
	if d < MinDIME || d > MaxDIME {
		return goerr.New("DIME score must be between 0 and 3", goerr.V("score", int(d)))
	}
	return nil
}

// Int returns the score as int
func (d DIMEScore) Int() int {
	return int(d)
}
