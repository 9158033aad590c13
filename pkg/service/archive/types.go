package archive

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// Record is one JSON line of an archived period. The first line of an
// archive carries Commit; every following line carries one History entry.
type Record struct {
	Kind    string         `json:"kind"`
	Commit  *CommitRecord  `json:"commit,omitempty"`
	History *HistoryRecord `json:"history,omitempty"`
}

const (
	KindCommit  = "commit"
	KindHistory = "history"
)

type CommitRecord struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	PeriodID       string    `json:"period_id"`
	CommittedBy    string    `json:"committed_by"`
	CommittedAt    time.Time `json:"committed_at"`
	Note           string    `json:"note,omitempty"`
	RowCount       int       `json:"row_count"`
}

type HistoryRecord struct {
	RiskID             int64     `json:"risk_id"`
	PeriodID           string    `json:"period_id"`
	CommitID           string    `json:"commit_id"`
	Code               string    `json:"code"`
	Title              string    `json:"title"`
	Category           string    `json:"category,omitempty"`
	Owner              string    `json:"owner,omitempty"`
	Status             string    `json:"status"`
	InherentLikelihood int       `json:"inherent_likelihood"`
	InherentImpact     int       `json:"inherent_impact"`
	InherentScore      int       `json:"inherent_score"`
	ResidualLikelihood int       `json:"residual_likelihood"`
	ResidualImpact     int       `json:"residual_impact"`
	ResidualScore      int       `json:"residual_score"`
	ResidualComputedAt time.Time `json:"residual_computed_at"`
	SnapshotAt         time.Time `json:"snapshot_at"`
}

func newCommitRecord(c *model.PeriodCommit) *CommitRecord {
	return &CommitRecord{
		ID:             c.ID,
		OrganizationID: c.OrganizationID.String(),
		PeriodID:       c.Period.ID().String(),
		CommittedBy:    c.CommittedBy,
		CommittedAt:    c.CommittedAt,
		Note:           c.Note,
		RowCount:       c.RowCount,
	}
}

func newHistoryRecord(h *model.RiskHistory) *HistoryRecord {
	return &HistoryRecord{
		RiskID:             h.RiskID,
		PeriodID:           h.Period.ID().String(),
		CommitID:           h.CommitID,
		Code:               h.Code,
		Title:              h.Title,
		Category:           h.Category.String(),
		Owner:              h.Owner,
		Status:             h.Status.String(),
		InherentLikelihood: h.InherentLikelihood.Int(),
		InherentImpact:     h.InherentImpact.Int(),
		InherentScore:      h.InherentScore,
		ResidualLikelihood: h.ResidualLikelihood.Int(),
		ResidualImpact:     h.ResidualImpact.Int(),
		ResidualScore:      h.ResidualScore,
		ResidualComputedAt: h.ResidualComputedAt,
		SnapshotAt:         h.SnapshotAt,
	}
}
