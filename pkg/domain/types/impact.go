package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// Impact is a 1..5 severity rating
type Impact int

// Validate checks if the Impact is in range
func (i Impact) Validate() error {
	if i < MinLevel || i > MaxLevel {
		return goerr.New("impact must be between 1 and 5", goerr.V("impact", int(i)))
	}
	return nil
}

// Int returns the rating as int
func (i Impact) Int() int {
	return int(i)
}
