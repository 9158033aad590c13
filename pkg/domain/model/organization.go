package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model/config"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Organization represents an organization's identity and ledger settings
type Organization struct {
	ID                types.OrganizationID
	Name              string
	Cadence           types.Cadence
	RiskCounterPrefix types.CounterName
}

// ErrOrganizationNotFound is returned when an organization is not registered
var ErrOrganizationNotFound = goerr.New("organization not found")

// OrganizationEntry holds organization identity and its risk reference data
type OrganizationEntry struct {
	Organization Organization
	RiskConfig   *config.RiskConfig
}

// OrganizationRegistry holds organization configurations.
// It does not hold Repository or UseCase instances (settings only).
type OrganizationRegistry struct {
	entries map[types.OrganizationID]*OrganizationEntry
	order   []types.OrganizationID
}

// NewOrganizationRegistry creates a new empty OrganizationRegistry
func NewOrganizationRegistry() *OrganizationRegistry {
	return &OrganizationRegistry{
		entries: make(map[types.OrganizationID]*OrganizationEntry),
	}
}

// Register adds an organization entry to the registry. Missing cadence and
// counter prefix fall back to quarterly periods and "RISK".
func (r *OrganizationRegistry) Register(entry *OrganizationEntry) {
	if entry.Organization.Cadence == "" {
		entry.Organization.Cadence = types.CadenceQuarterly
	}
	if entry.Organization.RiskCounterPrefix == "" {
		entry.Organization.RiskCounterPrefix = types.CounterRisk
	}
	if _, exists := r.entries[entry.Organization.ID]; !exists {
		r.order = append(r.order, entry.Organization.ID)
	}
	r.entries[entry.Organization.ID] = entry
}

// Get retrieves an organization entry by ID
func (r *OrganizationRegistry) Get(orgID types.OrganizationID) (*OrganizationEntry, error) {
	entry, ok := r.entries[orgID]
	if !ok {
		return nil, goerr.Wrap(ErrOrganizationNotFound, "organization not found",
			goerr.V("organization_id", orgID))
	}
	return entry, nil
}

// List returns all registered organization entries in registration order
func (r *OrganizationRegistry) List() []*OrganizationEntry {
	result := make([]*OrganizationEntry, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.entries[id])
	}
	return result
}

// ValidateCategory checks a category against the organization's configured
// categories. Organizations without configured categories accept any valid ID.
func (e *OrganizationEntry) ValidateCategory(id types.CategoryID) error {
	if id == "" {
		return nil
	}
	if err := id.Validate(); err != nil {
		return err
	}
	if !e.RiskConfig.Restricted() || e.RiskConfig.FindCategory(id.String()) != nil {
		return nil
	}
	return goerr.New("category ID not found in configuration", goerr.V("id", id))
}
