package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type PeriodRepository interface {
	// GetActive returns the organization's active period or ErrNotFound
	GetActive(ctx context.Context, orgID types.OrganizationID) (*model.ActivePeriod, error)

	// EnsureActive stores initial as the active period if the organization has
	// none and returns whatever is stored afterwards
	EnsureActive(ctx context.Context, orgID types.OrganizationID, initial model.Period) (*model.ActivePeriod, error)

	// Commit snapshots the active period in one transaction: idempotency check,
	// history rows, commit record and pointer advance land together or not at all
	Commit(ctx context.Context, orgID types.OrganizationID, plan PlanFunc) (*model.PeriodCommit, error)

	GetCommit(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) (*model.PeriodCommit, error)

	// ListCommits returns commits in chronological order
	ListCommits(ctx context.Context, orgID types.OrganizationID) ([]*model.PeriodCommit, error)

	GetHistory(ctx context.Context, orgID types.OrganizationID, riskID int64, periodID model.PeriodID) (*model.RiskHistory, error)

	// ListHistoryByRisk returns one risk's snapshots in chronological order
	ListHistoryByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.RiskHistory, error)

	// ListHistoryByPeriod returns a committed period's snapshots ordered by risk ID
	ListHistoryByPeriod(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) ([]*model.RiskHistory, error)
}
