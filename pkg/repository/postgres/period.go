package postgres

import (
	"context"
	"errors"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const historyBatchSize = 500

type periodRepository struct {
	pg *Postgres
}

func (r *periodRepository) GetActive(ctx context.Context, orgID types.OrganizationID) (*model.ActivePeriod, error) {
	var row activePeriodRow
	err := r.pg.db.WithContext(ctx).Where("organization_id = ?", orgID.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "active period not found", goerr.V("org_id", orgID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active period", goerr.V("org_id", orgID))
	}
	return row.toModel()
}

func (r *periodRepository) EnsureActive(ctx context.Context, orgID types.OrganizationID, initial model.Period) (*model.ActivePeriod, error) {
	seed := &activePeriodRow{
		OrganizationID: orgID.String(),
		PeriodID:       initial.ID().String(),
		UpdatedAt:      now(),
	}
	db := r.pg.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, translate(err, "failed to ensure active period", goerr.V("org_id", orgID))
	}

	var row activePeriodRow
	if err := db.Where("organization_id = ?", orgID.String()).Take(&row).Error; err != nil {
		return nil, translate(err, "failed to get active period", goerr.V("org_id", orgID))
	}
	return row.toModel()
}

func (r *periodRepository) Commit(ctx context.Context, orgID types.OrganizationID, plan interfaces.PlanFunc) (*model.PeriodCommit, error) {
	var committed *model.PeriodCommit
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		var activeRow activePeriodRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ?", orgID.String()).
			Take(&activeRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return goerr.Wrap(interfaces.ErrNotFound, "active period not found", goerr.V("org_id", orgID))
		}
		if err != nil {
			return err
		}
		active, err := activeRow.toModel()
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&commitRow{}).
			Where("organization_id = ? AND period_id = ?", orgID.String(), activeRow.PeriodID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return goerr.Wrap(interfaces.ErrAlreadyCommitted, "period already committed",
				goerr.V("org_id", orgID), goerr.V("period", activeRow.PeriodID))
		}

		// FOR SHARE holds risk writers off until the snapshot is written
		var riskRows []riskRow
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("organization_id = ?", orgID.String()).
			Order("id").
			Find(&riskRows).Error; err != nil {
			return err
		}
		risks := make([]*model.Risk, 0, len(riskRows))
		for i := range riskRows {
			risks = append(risks, riskRows[i].toModel())
		}

		snapshot, err := plan(active.Period, risks)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return goerr.New("commit plan returned no snapshot")
		}
		if err := snapshot.Validate(active.Period); err != nil {
			return err
		}

		if len(snapshot.Entries) > 0 {
			rows := make([]*historyRow, 0, len(snapshot.Entries))
			for _, entry := range snapshot.Entries {
				rows = append(rows, newHistoryRow(entry))
			}
			if err := tx.CreateInBatches(rows, historyBatchSize).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(newCommitRow(snapshot.Commit)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return goerr.Wrap(interfaces.ErrAlreadyCommitted, "period already committed",
					goerr.V("org_id", orgID), goerr.V("period", activeRow.PeriodID))
			}
			return err
		}
		if err := tx.Model(&activeRow).Updates(map[string]interface{}{
			"period_id":  snapshot.Next.ID().String(),
			"updated_at": snapshot.Commit.CommittedAt,
		}).Error; err != nil {
			return err
		}

		committed = snapshot.Commit
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to commit period", goerr.V("org_id", orgID))
	}

	return committed, nil
}

func (r *periodRepository) GetCommit(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) (*model.PeriodCommit, error) {
	var row commitRow
	err := r.pg.db.WithContext(ctx).
		Where("organization_id = ? AND period_id = ?", orgID.String(), periodID.String()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "commit not found", goerr.V("org_id", orgID), goerr.V("period", periodID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get commit", goerr.V("period", periodID))
	}
	return row.toModel()
}

func (r *periodRepository) ListCommits(ctx context.Context, orgID types.OrganizationID) ([]*model.PeriodCommit, error) {
	var rows []commitRow
	if err := r.pg.db.WithContext(ctx).
		Where("organization_id = ?", orgID.String()).
		Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list commits", goerr.V("org_id", orgID))
	}

	commits := make([]*model.PeriodCommit, 0, len(rows))
	for i := range rows {
		commit, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Period.Before(commits[j].Period) })
	return commits, nil
}

func (r *periodRepository) GetHistory(ctx context.Context, orgID types.OrganizationID, riskID int64, periodID model.PeriodID) (*model.RiskHistory, error) {
	var row historyRow
	err := r.pg.db.WithContext(ctx).
		Where("organization_id = ? AND risk_id = ? AND period_id = ?", orgID.String(), riskID, periodID.String()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "history not found",
			goerr.V("org_id", orgID), goerr.V("risk_id", riskID), goerr.V("period", periodID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get history", goerr.V("risk_id", riskID))
	}
	return row.toModel()
}

func (r *periodRepository) ListHistoryByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.RiskHistory, error) {
	entries, err := r.listHistory(ctx, "organization_id = ? AND risk_id = ?", orgID.String(), riskID)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Period.Before(entries[j].Period) })
	return entries, nil
}

func (r *periodRepository) ListHistoryByPeriod(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) ([]*model.RiskHistory, error) {
	return r.listHistory(ctx, "organization_id = ? AND period_id = ?", orgID.String(), periodID.String())
}

func (r *periodRepository) listHistory(ctx context.Context, query string, args ...interface{}) ([]*model.RiskHistory, error) {
	var rows []historyRow
	if err := r.pg.db.WithContext(ctx).Where(query, args...).Order("risk_id").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list history", goerr.V("args", args))
	}

	entries := make([]*model.RiskHistory, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
