package model

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Risk is a live register entry. Its identity (ID and Code) is continuous:
// risks are never cloned or deleted, and period commits only copy them.
type Risk struct {
	ID             int64
	OrganizationID types.OrganizationID
	Code           string

	Title              string
	Description        string
	Category           types.CategoryID
	Owner              string
	Status             types.RiskStatus
	InherentLikelihood types.Likelihood
	InherentImpact     types.Impact

	// Derived is written only by the residual engine
	Derived DerivedState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DerivedState is the residual exposure computed from a risk's controls
type DerivedState struct {
	ResidualLikelihood types.Likelihood
	ResidualImpact     types.Impact
	ResidualScore      int
	LastComputedAt     time.Time
}

// InherentScore returns likelihood x impact before mitigation
func (r *Risk) InherentScore() int {
	return r.InherentLikelihood.Int() * r.InherentImpact.Int()
}

// Copy returns a deep copy of the risk
func (r *Risk) Copy() *Risk {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

// InputsEqual reports whether two risks carry the same editor owned inputs
func (r *Risk) InputsEqual(other *Risk) bool {
	return r.Title == other.Title &&
		r.Description == other.Description &&
		r.Category == other.Category &&
		r.Owner == other.Owner &&
		r.Status == other.Status &&
		r.InherentLikelihood == other.InherentLikelihood &&
		r.InherentImpact == other.InherentImpact
}
