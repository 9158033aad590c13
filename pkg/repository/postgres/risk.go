package postgres

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type riskRepository struct {
	pg *Postgres
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, derive interfaces.DeriveFunc) (*model.Risk, error) {
	var created *model.Risk
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		ts := now()
		candidate := risk.Copy()
		candidate.ID = 0
		candidate.CreatedAt = ts
		candidate.UpdatedAt = ts
		candidate.Derived = model.DerivedState{LastComputedAt: ts}

		row := newRiskRow(candidate)
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return goerr.Wrap(interfaces.ErrConflict, "risk code already exists",
					goerr.V("org_id", risk.OrganizationID), goerr.V("code", risk.Code))
			}
			return err
		}

		created = row.toModel()
		derived, err := derive(created.Copy(), nil)
		if err != nil {
			return err
		}
		created.Derived = derived
		return tx.Save(newRiskRow(created)).Error
	})
	if err != nil {
		return nil, translate(err, "failed to create risk", goerr.V("code", risk.Code))
	}

	return created, nil
}

// lockRisk reads a risk with FOR UPDATE so that writers of the same risk
// and its controls serialize
func lockRisk(tx *gorm.DB, orgID types.OrganizationID, id int64) (*model.Risk, error) {
	var row riskRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID.String(), id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func listControls(tx *gorm.DB, orgID types.OrganizationID, riskID int64) ([]*model.Control, error) {
	var rows []controlRow
	if err := tx.Where("organization_id = ? AND risk_id = ?", orgID.String(), riskID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	controls := make([]*model.Control, 0, len(rows))
	for i := range rows {
		controls = append(controls, rows[i].toModel())
	}
	return controls, nil
}

func (r *riskRepository) Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Risk, error) {
	return r.find(ctx, "organization_id = ? AND id = ?", orgID.String(), id)
}

func (r *riskRepository) GetByCode(ctx context.Context, orgID types.OrganizationID, code string) (*model.Risk, error) {
	return r.find(ctx, "organization_id = ? AND code = ?", orgID.String(), code)
}

func (r *riskRepository) find(ctx context.Context, query string, args ...interface{}) (*model.Risk, error) {
	var row riskRow
	err := r.pg.db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("args", args))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("args", args))
	}
	return row.toModel(), nil
}

func (r *riskRepository) List(ctx context.Context, orgID types.OrganizationID) ([]*model.Risk, error) {
	var rows []riskRow
	if err := r.pg.db.WithContext(ctx).
		Where("organization_id = ?", orgID.String()).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to list risks", goerr.V("org_id", orgID))
	}

	risks := make([]*model.Risk, 0, len(rows))
	for i := range rows {
		risks = append(risks, rows[i].toModel())
	}
	return risks, nil
}

func (r *riskRepository) Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Risk) error, derive interfaces.DeriveFunc) (*model.Risk, error) {
	var updated *model.Risk
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		current, err := lockRisk(tx, orgID, id)
		if err != nil {
			return err
		}
		controls, err := listControls(tx, orgID, id)
		if err != nil {
			return err
		}

		next := current.Copy()
		if err := mutate(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.OrganizationID = current.OrganizationID
		next.Code = current.Code
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now()

		derived, err := derive(next.Copy(), controls)
		if err != nil {
			return err
		}
		next.Derived = derived
		updated = next
		return tx.Save(newRiskRow(next)).Error
	})
	if err != nil {
		return nil, translate(err, "failed to update risk", goerr.V("id", id))
	}

	return updated, nil
}

func (r *riskRepository) Recompute(ctx context.Context, orgID types.OrganizationID, id int64, derive interfaces.DeriveFunc) (*model.Risk, error) {
	var updated *model.Risk
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		current, err := lockRisk(tx, orgID, id)
		if err != nil {
			return err
		}
		controls, err := listControls(tx, orgID, id)
		if err != nil {
			return err
		}

		derived, err := derive(current.Copy(), controls)
		if err != nil {
			return err
		}
		current.Derived = derived
		updated = current
		return tx.Save(newRiskRow(current)).Error
	})
	if err != nil {
		return nil, translate(err, "failed to recompute risk", goerr.V("id", id))
	}

	return updated, nil
}
