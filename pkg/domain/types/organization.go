package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// OrganizationID scopes every counter, risk, and period in the ledger
type OrganizationID string

// Validate checks if the OrganizationID is valid
func (o OrganizationID) Validate() error {
	if o == "" {
		return goerr.New("organization ID cannot be empty")
	}
	if !idPattern.MatchString(string(o)) {
		return goerr.New("organization ID must be lowercase alphanumeric with hyphens", goerr.V("id", o))
	}
	return nil
}

// String returns the string representation of OrganizationID
func (o OrganizationID) String() string {
	return string(o)
}
