package types

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// CategoryID groups risks; each category numbers its risks on its own counter
type CategoryID string

// maxCategoryIDLength keeps "<prefix>-<CATEGORY>" within a counter name
const maxCategoryIDLength = 24

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks if the CategoryID is valid
func (c CategoryID) Validate() error {
	if c == "" {
		return goerr.New("category ID cannot be empty")
	}
	if len(c) > maxCategoryIDLength {
		return goerr.New("category ID is too long", goerr.V("id", c), goerr.V("max", maxCategoryIDLength))
	}
	if !idPattern.MatchString(string(c)) {
		return goerr.New("category ID must be lowercase alphanumeric with hyphens", goerr.V("id", c))
	}
	return nil
}

// CounterSuffix returns the category as it appears in risk codes, e.g. "OPS"
func (c CategoryID) CounterSuffix() string {
	return strings.ToUpper(string(c))
}

// String returns the string representation of CategoryID
func (c CategoryID) String() string {
	return string(c)
}
