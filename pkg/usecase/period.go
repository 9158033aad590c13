package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type PeriodUseCase struct {
	repo    interfaces.Repository
	orgs    *organizations
	archive interfaces.SnapshotArchive
	now     func() time.Time
}

type CommitPeriodInput struct {
	Note string `validate:"max=1000"`

	// Period optionally pins the commit to the period the caller believes is
	// active. A pinned request never commits any other period.
	Period *model.Period
}

// CommitResult is the audit record of a commit and the period activated by it
type CommitResult struct {
	Commit *model.PeriodCommit
	Active model.Period
}

// active returns the organization's active period, initializing it to the
// period containing now on first use
func (uc *PeriodUseCase) active(ctx context.Context, entry *model.OrganizationEntry) (*model.ActivePeriod, error) {
	orgID := entry.Organization.ID
	active, err := uc.repo.Period().GetActive(ctx, orgID)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to get active period", goerr.V(OrgIDKey, orgID))
	}

	initial := model.PeriodContaining(uc.now(), entry.Organization.Cadence)
	active, err = uc.repo.Period().EnsureActive(ctx, orgID, initial)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize active period",
			goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, initial.ID()))
	}

	logging.From(ctx).Info("active period initialized", "org_id", orgID, "period", active.Period.ID())
	return active, nil
}

func (uc *PeriodUseCase) GetActivePeriod(ctx context.Context, orgID types.OrganizationID) (*model.ActivePeriod, error) {
	entry, _, err := uc.orgs.viewer(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return uc.active(ctx, entry)
}

// InitializePeriod sets the first active period explicitly. Once a period is
// active the pointer only moves through CommitPeriod.
func (uc *PeriodUseCase) InitializePeriod(ctx context.Context, orgID types.OrganizationID, period model.Period) (*model.ActivePeriod, error) {
	entry, _, err := uc.orgs.admin(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if err := period.Validate(); err != nil {
		return nil, validationError(err, "invalid period", goerr.V(PeriodKey, period))
	}
	if period.Cadence != entry.Organization.Cadence {
		return nil, goerr.Wrap(ErrValidation, "period cadence does not match organization",
			goerr.V(PeriodKey, period.ID()), goerr.V("cadence", entry.Organization.Cadence))
	}

	current, err := uc.repo.Period().GetActive(ctx, orgID)
	if err == nil {
		return nil, goerr.Wrap(ErrPeriodReopen, "organization already has an active period",
			goerr.V(OrgIDKey, orgID), goerr.V("active", current.Period.ID()), goerr.V(PeriodKey, period.ID()))
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to get active period", goerr.V(OrgIDKey, orgID))
	}

	active, err := uc.repo.Period().EnsureActive(ctx, orgID, period)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize active period",
			goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, period.ID()))
	}
	// another initializer won the race
	if active.Period != period {
		return nil, goerr.Wrap(ErrPeriodReopen, "organization already has an active period",
			goerr.V(OrgIDKey, orgID), goerr.V("active", active.Period.ID()), goerr.V(PeriodKey, period.ID()))
	}
	return active, nil
}

// CommitPeriod freezes every risk of the active period into history and
// advances the active period to its successor in one transaction. Live risks
// are read as stored and never written.
func (uc *PeriodUseCase) CommitPeriod(ctx context.Context, orgID types.OrganizationID, input CommitPeriodInput) (*CommitResult, error) {
	entry, actor, err := uc.orgs.admin(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "invalid commit input", goerr.V(OrgIDKey, orgID))
	}
	if input.Period != nil {
		if err := input.Period.Validate(); err != nil {
			return nil, validationError(err, "invalid period", goerr.V(PeriodKey, *input.Period))
		}
	}

	if _, err := uc.active(ctx, entry); err != nil {
		return nil, err
	}

	var snapshot *model.PeriodSnapshot
	plan := func(active model.Period, risks []*model.Risk) (*model.PeriodSnapshot, error) {
		if err := checkPin(active, input.Period); err != nil {
			return nil, err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate commit ID")
		}
		at := uc.now()
		commit := &model.PeriodCommit{
			ID:             id.String(),
			OrganizationID: orgID,
			Period:         active,
			CommittedBy:    actor.UserID,
			CommittedAt:    at,
			Note:           input.Note,
			RowCount:       len(risks),
		}

		entries := make([]*model.RiskHistory, 0, len(risks))
		for _, risk := range risks {
			entries = append(entries, model.NewRiskHistory(risk, active, commit.ID, at))
		}

		// the repository may run plan more than once; keep the last attempt
		snapshot = &model.PeriodSnapshot{Commit: commit, Entries: entries, Next: active.Next()}
		return snapshot, nil
	}

	commit, err := uc.repo.Period().Commit(ctx, orgID, plan)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrAlreadyCommitted):
			periodCommitTotal.WithLabelValues("already_committed").Inc()
		case errors.Is(err, interfaces.ErrContention):
			periodCommitTotal.WithLabelValues("contention").Inc()
		default:
			periodCommitTotal.WithLabelValues("error").Inc()
		}
		return nil, goerr.Wrap(err, "period not committed", goerr.V(OrgIDKey, orgID))
	}

	periodCommitTotal.WithLabelValues("ok").Inc()
	periodCommitRows.Observe(float64(commit.RowCount))
	logging.From(ctx).Info("period committed",
		"org_id", orgID,
		"period", commit.Period.ID(),
		"commit_id", commit.ID,
		"rows", commit.RowCount,
		"committed_by", commit.CommittedBy,
	)

	if uc.archive != nil && snapshot != nil {
		entries := snapshot.Entries
		async.Dispatch(ctx, "archive period", func(ctx context.Context) error {
			return uc.archive.Put(ctx, commit, entries)
		})
	}

	return &CommitResult{Commit: commit, Active: commit.Period.Next()}, nil
}

// checkPin compares the caller's expected period with the active one
func checkPin(active model.Period, pin *model.Period) error {
	if pin == nil || *pin == active {
		return nil
	}
	if pin.Before(active) {
		return goerr.Wrap(ErrPeriodAlreadyCommitted, "requested period was already committed",
			goerr.V(PeriodKey, pin.ID()), goerr.V("active", active.ID()))
	}
	return goerr.Wrap(ErrValidation, "requested period is not the active period",
		goerr.V(PeriodKey, pin.ID()), goerr.V("active", active.ID()))
}

func (uc *PeriodUseCase) GetCommit(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) (*model.PeriodCommit, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}
	if _, err := model.ParsePeriod(periodID); err != nil {
		return nil, validationError(err, "invalid period", goerr.V(PeriodKey, periodID))
	}

	commit, err := uc.repo.Period().GetCommit(ctx, orgID, periodID)
	if err != nil {
		return nil, commitError(err, "failed to get commit", orgID, periodID)
	}
	return commit, nil
}

func (uc *PeriodUseCase) ListCommits(ctx context.Context, orgID types.OrganizationID) ([]*model.PeriodCommit, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}

	commits, err := uc.repo.Period().ListCommits(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list commits", goerr.V(OrgIDKey, orgID))
	}
	return commits, nil
}

func (uc *PeriodUseCase) GetHistory(ctx context.Context, orgID types.OrganizationID, riskID int64, periodID model.PeriodID) (*model.RiskHistory, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}
	if _, err := model.ParsePeriod(periodID); err != nil {
		return nil, validationError(err, "invalid period", goerr.V(PeriodKey, periodID))
	}

	history, err := uc.repo.Period().GetHistory(ctx, orgID, riskID, periodID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrHistoryNotFound, "failed to get history",
				goerr.V(OrgIDKey, orgID), goerr.V(RiskIDKey, riskID), goerr.V(PeriodKey, periodID))
		}
		return nil, goerr.Wrap(err, "failed to get history",
			goerr.V(OrgIDKey, orgID), goerr.V(RiskIDKey, riskID), goerr.V(PeriodKey, periodID))
	}
	return history, nil
}

// ListRiskHistory returns one risk's snapshots, oldest period first
func (uc *PeriodUseCase) ListRiskHistory(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.RiskHistory, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}
	if _, err := uc.repo.Risk().Get(ctx, orgID, riskID); err != nil {
		return nil, riskError(err, "failed to get risk", orgID, riskID)
	}

	histories, err := uc.repo.Period().ListHistoryByRisk(ctx, orgID, riskID)
	if err != nil {
		return nil, riskError(err, "failed to list risk history", orgID, riskID)
	}
	return histories, nil
}

// ListPeriodHistory returns every snapshot of a committed period
func (uc *PeriodUseCase) ListPeriodHistory(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) (*model.PeriodCommit, []*model.RiskHistory, error) {
	commit, err := uc.GetCommit(ctx, orgID, periodID)
	if err != nil {
		return nil, nil, err
	}

	histories, err := uc.repo.Period().ListHistoryByPeriod(ctx, orgID, periodID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list period history",
			goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, periodID))
	}
	return commit, histories, nil
}

// ExportPeriod writes a committed period and its snapshots to sink
func (uc *PeriodUseCase) ExportPeriod(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID, sink interfaces.SnapshotArchive) (*model.PeriodCommit, error) {
	commit, histories, err := uc.ListPeriodHistory(ctx, orgID, periodID)
	if err != nil {
		return nil, err
	}
	if err := sink.Put(ctx, commit, histories); err != nil {
		return nil, goerr.Wrap(err, "failed to export period",
			goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, periodID))
	}
	return commit, nil
}

func commitError(err error, msg string, orgID types.OrganizationID, periodID model.PeriodID) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrCommitNotFound, msg, goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, periodID))
	}
	return goerr.Wrap(err, msg, goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, periodID))
}
