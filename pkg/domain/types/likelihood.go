package types

import (
	"github.com/m-mizutani/goerr/v2"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

// Likelihood is a 1..5 probability rating
type Likelihood int

// Validate checks if the Likelihood is in range
func (l Likelihood) Validate() error {
	if l < MinLevel || l > MaxLevel {
		return goerr.New("likelihood must be between 1 and 5", goerr.V("likelihood", int(l)))
	}
	return nil
}

// Int returns the rating as int
func (l Likelihood) Int() int {
	return int(l)
}
