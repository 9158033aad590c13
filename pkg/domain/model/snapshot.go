package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ActivePeriod is the single "current period" pointer of an organization. It
// only moves forward, one commit at a time.
type ActivePeriod struct {
	OrganizationID types.OrganizationID
	Period         Period
	UpdatedAt      time.Time
}

// PeriodCommit is the append-only audit record of one snapshot operation
type PeriodCommit struct {
	ID             string
	OrganizationID types.OrganizationID
	Period         Period
	CommittedBy    string
	CommittedAt    time.Time
	Note           string
	RowCount       int
}

// RiskHistory is an immutable point-in-time copy of one risk, written once per
// (risk, committed period) pair
type RiskHistory struct {
	RiskID         int64
	OrganizationID types.OrganizationID
	Period         Period
	CommitID       string

	Code               string
	Title              string
	Category           types.CategoryID
	Owner              string
	Status             types.RiskStatus
	InherentLikelihood types.Likelihood
	InherentImpact     types.Impact
	InherentScore      int
	ResidualLikelihood types.Likelihood
	ResidualImpact     types.Impact
	ResidualScore      int
	ResidualComputedAt time.Time

	SnapshotAt time.Time
}

// NewRiskHistory copies the current inherent and residual state of risk. The
// derived fields are copied as stored; no recomputation happens here.
func NewRiskHistory(risk *Risk, period Period, commitID string, at time.Time) *RiskHistory {
	return &RiskHistory{
		RiskID:             risk.ID,
		OrganizationID:     risk.OrganizationID,
		Period:             period,
		CommitID:           commitID,
		Code:               risk.Code,
		Title:              risk.Title,
		Category:           risk.Category,
		Owner:              risk.Owner,
		Status:             risk.Status,
		InherentLikelihood: risk.InherentLikelihood,
		InherentImpact:     risk.InherentImpact,
		InherentScore:      risk.InherentScore(),
		ResidualLikelihood: risk.Derived.ResidualLikelihood,
		ResidualImpact:     risk.Derived.ResidualImpact,
		ResidualScore:      risk.Derived.ResidualScore,
		ResidualComputedAt: risk.Derived.LastComputedAt,
		SnapshotAt:         at,
	}
}

// PeriodSnapshot is everything a commit writes in one transaction: the audit
// record, one history entry per risk, and the successor period to activate.
type PeriodSnapshot struct {
	Commit  *PeriodCommit
	Entries []*RiskHistory
	Next    Period
}

// ErrStalePeriod is returned when a snapshot would not move the active period forward
var ErrStalePeriod = goerr.New("period would not move forward")

// Validate checks that the snapshot commits exactly the active period and
// moves the pointer strictly forward
func (s *PeriodSnapshot) Validate(active Period) error {
	if s.Commit == nil {
		return goerr.New("snapshot has no commit record")
	}
	if s.Commit.Period != active {
		return goerr.New("snapshot targets a different period",
			goerr.V("active", active.ID()), goerr.V("planned", s.Commit.Period.ID()))
	}
	if !active.Before(s.Next) {
		return goerr.Wrap(ErrStalePeriod, "next period must follow the committed one",
			goerr.V("active", active.ID()), goerr.V("next", s.Next.ID()))
	}
	if err := s.Next.Validate(); err != nil {
		return goerr.Wrap(err, "next period is not representable",
			goerr.V("active", active.ID()))
	}
	if s.Commit.RowCount != len(s.Entries) {
		return goerr.New("row count does not match entries",
			goerr.V("row_count", s.Commit.RowCount), goerr.V("entries", len(s.Entries)))
	}
	for _, entry := range s.Entries {
		if entry.Period != active {
			return goerr.New("entry targets a different period", goerr.V("risk_id", entry.RiskID))
		}
	}
	return nil
}
