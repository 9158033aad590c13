package postgres

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type sequenceRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	OrganizationID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_sequences_org_name,priority:1"`
	Name           string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_sequences_org_name,priority:2"`
	Value          int64     `gorm:"not null;default:0"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (sequenceRow) TableName() string { return "sequences" }

type riskRow struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement"`
	OrganizationID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_risks_org_code,priority:1"`
	Code               string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_risks_org_code,priority:2"`
	Title              string    `gorm:"type:text;not null"`
	Description        string    `gorm:"type:text"`
	Category           string    `gorm:"type:varchar(64);not null"`
	Owner              string    `gorm:"type:varchar(255)"`
	Status             string    `gorm:"type:varchar(16);not null"`
	InherentLikelihood int       `gorm:"not null"`
	InherentImpact     int       `gorm:"not null"`
	ResidualLikelihood int       `gorm:"not null"`
	ResidualImpact     int       `gorm:"not null"`
	ResidualScore      int       `gorm:"not null"`
	LastComputedAt     time.Time `gorm:"not null"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (riskRow) TableName() string { return "risks" }

func newRiskRow(r *model.Risk) *riskRow {
	return &riskRow{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID.String(),
		Code:               r.Code,
		Title:              r.Title,
		Description:        r.Description,
		Category:           r.Category.String(),
		Owner:              r.Owner,
		Status:             r.Status.String(),
		InherentLikelihood: r.InherentLikelihood.Int(),
		InherentImpact:     r.InherentImpact.Int(),
		ResidualLikelihood: r.Derived.ResidualLikelihood.Int(),
		ResidualImpact:     r.Derived.ResidualImpact.Int(),
		ResidualScore:      r.Derived.ResidualScore,
		LastComputedAt:     r.Derived.LastComputedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (r *riskRow) toModel() *model.Risk {
	return &model.Risk{
		ID:                 r.ID,
		OrganizationID:     types.OrganizationID(r.OrganizationID),
		Code:               r.Code,
		Title:              r.Title,
		Description:        r.Description,
		Category:           types.CategoryID(r.Category),
		Owner:              r.Owner,
		Status:             types.RiskStatus(r.Status),
		InherentLikelihood: types.Likelihood(r.InherentLikelihood),
		InherentImpact:     types.Impact(r.InherentImpact),
		Derived: model.DerivedState{
			ResidualLikelihood: types.Likelihood(r.ResidualLikelihood),
			ResidualImpact:     types.Impact(r.ResidualImpact),
			ResidualScore:      r.ResidualScore,
			LastComputedAt:     r.LastComputedAt.UTC(),
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type controlRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	OrganizationID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_controls_org_code,priority:1;index:idx_controls_org_risk,priority:1"`
	RiskID         int64     `gorm:"not null;index:idx_controls_org_risk,priority:2"`
	Code           string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_controls_org_code,priority:2"`
	Name           string    `gorm:"type:text;not null"`
	Description    string    `gorm:"type:text"`
	Type           string    `gorm:"type:varchar(32);not null"`
	Design         int       `gorm:"not null"`
	Implementation int       `gorm:"not null"`
	Monitoring     int       `gorm:"not null"`
	Evaluation     int       `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (controlRow) TableName() string { return "controls" }

func newControlRow(c *model.Control) *controlRow {
	return &controlRow{
		ID:             c.ID,
		OrganizationID: c.OrganizationID.String(),
		RiskID:         c.RiskID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		Type:           c.Type.String(),
		Design:         int(c.Design),
		Implementation: int(c.Implementation),
		Monitoring:     int(c.Monitoring),
		Evaluation:     int(c.Evaluation),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (c *controlRow) toModel() *model.Control {
	return &model.Control{
		ID:             c.ID,
		OrganizationID: types.OrganizationID(c.OrganizationID),
		RiskID:         c.RiskID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		Type:           types.ControlType(c.Type),
		Design:         types.DIMEScore(c.Design),
		Implementation: types.DIMEScore(c.Implementation),
		Monitoring:     types.DIMEScore(c.Monitoring),
		Evaluation:     types.DIMEScore(c.Evaluation),
		CreatedAt:      c.CreatedAt.UTC(),
		UpdatedAt:      c.UpdatedAt.UTC(),
	}
}

type activePeriodRow struct {
	OrganizationID string    `gorm:"primaryKey;type:varchar(64)"`
	PeriodID       string    `gorm:"type:varchar(16);not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (activePeriodRow) TableName() string { return "active_periods" }

func (a *activePeriodRow) toModel() (*model.ActivePeriod, error) {
	period, err := model.ParsePeriod(model.PeriodID(a.PeriodID))
	if err != nil {
		return nil, err
	}
	return &model.ActivePeriod{
		OrganizationID: types.OrganizationID(a.OrganizationID),
		Period:         period,
		UpdatedAt:      a.UpdatedAt.UTC(),
	}, nil
}

type commitRow struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_commits_org_period,priority:1"`
	PeriodID       string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_commits_org_period,priority:2"`
	CommittedBy    string    `gorm:"type:varchar(255);not null"`
	CommittedAt    time.Time `gorm:"not null"`
	Note           string    `gorm:"type:text"`
	RowCount       int       `gorm:"not null"`
}

func (commitRow) TableName() string { return "period_commits" }

func newCommitRow(c *model.PeriodCommit) *commitRow {
	return &commitRow{
		ID:             c.ID,
		OrganizationID: c.OrganizationID.String(),
		PeriodID:       c.Period.ID().String(),
		CommittedBy:    c.CommittedBy,
		CommittedAt:    c.CommittedAt,
		Note:           c.Note,
		RowCount:       c.RowCount,
	}
}

func (c *commitRow) toModel() (*model.PeriodCommit, error) {
	period, err := model.ParsePeriod(model.PeriodID(c.PeriodID))
	if err != nil {
		return nil, err
	}
	return &model.PeriodCommit{
		ID:             c.ID,
		OrganizationID: types.OrganizationID(c.OrganizationID),
		Period:         period,
		CommittedBy:    c.CommittedBy,
		CommittedAt:    c.CommittedAt.UTC(),
		Note:           c.Note,
		RowCount:       c.RowCount,
	}, nil
}

type historyRow struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement"`
	RiskID             int64     `gorm:"not null;uniqueIndex:idx_histories_risk_period,priority:1"`
	PeriodID           string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_histories_risk_period,priority:2;index:idx_histories_org_period,priority:2"`
	OrganizationID     string    `gorm:"type:varchar(64);not null;index:idx_histories_org_period,priority:1"`
	CommitID           string    `gorm:"type:varchar(64);not null"`
	Code               string    `gorm:"type:varchar(64);not null"`
	Title              string    `gorm:"type:text;not null"`
	Category           string    `gorm:"type:varchar(64);not null"`
	Owner              string    `gorm:"type:varchar(255)"`
	Status             string    `gorm:"type:varchar(16);not null"`
	InherentLikelihood int       `gorm:"not null"`
	InherentImpact     int       `gorm:"not null"`
	InherentScore      int       `gorm:"not null"`
	ResidualLikelihood int       `gorm:"not null"`
	ResidualImpact     int       `gorm:"not null"`
	ResidualScore      int       `gorm:"not null"`
	ResidualComputedAt time.Time `gorm:"not null"`
	SnapshotAt         time.Time `gorm:"not null"`
}

func (historyRow) TableName() string { return "risk_histories" }

func newHistoryRow(h *model.RiskHistory) *historyRow {
	return &historyRow{
		RiskID:             h.RiskID,
		PeriodID:           h.Period.ID().String(),
		OrganizationID:     h.OrganizationID.String(),
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

func (h *historyRow) toModel() (*model.RiskHistory, error) {
	period, err := model.ParsePeriod(model.PeriodID(h.PeriodID))
	if err != nil {
		return nil, err
	}
	return &model.RiskHistory{
		RiskID:             h.RiskID,
		OrganizationID:     types.OrganizationID(h.OrganizationID),
		Period:             period,
		CommitID:           h.CommitID,
		Code:               h.Code,
		Title:              h.Title,
		Category:           types.CategoryID(h.Category),
		Owner:              h.Owner,
		Status:             types.RiskStatus(h.Status),
		InherentLikelihood: types.Likelihood(h.InherentLikelihood),
		InherentImpact:     types.Impact(h.InherentImpact),
		InherentScore:      h.InherentScore,
		ResidualLikelihood: types.Likelihood(h.ResidualLikelihood),
		ResidualImpact:     types.Impact(h.ResidualImpact),
		ResidualScore:      h.ResidualScore,
		ResidualComputedAt: h.ResidualComputedAt.UTC(),
		SnapshotAt:         h.SnapshotAt.UTC(),
	}, nil
}
