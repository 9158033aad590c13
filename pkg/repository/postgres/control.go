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

type controlRepository struct {
	pg *Postgres
}

func lockControl(tx *gorm.DB, orgID types.OrganizationID, id int64) (*controlRow, error) {
	var row controlRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID.String(), id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *controlRepository) Create(ctx context.Context, control *model.Control, derive interfaces.DeriveFunc) (*model.Control, *model.Risk, error) {
	orgID := control.OrganizationID

	var created *model.Control
	var updated *model.Risk
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		risk, err := lockRisk(tx, orgID, control.RiskID)
		if err != nil {
			return err
		}

		ts := now()
		candidate := control.Copy()
		candidate.ID = 0
		candidate.CreatedAt = ts
		candidate.UpdatedAt = ts
		row := newControlRow(candidate)
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return goerr.Wrap(interfaces.ErrConflict, "control code already exists",
					goerr.V("org_id", orgID), goerr.V("code", control.Code))
			}
			return err
		}
		created = row.toModel()

		controls, err := listControls(tx, orgID, risk.ID)
		if err != nil {
			return err
		}
		derived, err := derive(risk.Copy(), controls)
		if err != nil {
			return err
		}
		risk.Derived = derived
		updated = risk
		return tx.Save(newRiskRow(risk)).Error
	})
	if err != nil {
		return nil, nil, translate(err, "failed to create control", goerr.V("risk_id", control.RiskID))
	}

	return created, updated, nil
}

func (r *controlRepository) Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Control, error) {
	var row controlRow
	err := r.pg.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID.String(), id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get control", goerr.V("id", id))
	}
	return row.toModel(), nil
}

func (r *controlRepository) ListByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.Control, error) {
	db := r.pg.db.WithContext(ctx)

	var count int64
	if err := db.Model(&riskRow{}).
		Where("organization_id = ? AND id = ?", orgID.String(), riskID).
		Count(&count).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to check risk", goerr.V("risk_id", riskID))
	}
	if count == 0 {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("risk_id", riskID))
	}

	controls, err := listControls(db, orgID, riskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list controls", goerr.V("risk_id", riskID))
	}
	return controls, nil
}

func (r *controlRepository) Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Control) error, derive interfaces.DeriveFunc) (*model.Control, *model.Risk, error) {
	var updatedControl *model.Control
	var updatedRisk *model.Risk
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		// lock order is risk then control, same as Create
		var owner controlRow
		if err := tx.Select("risk_id").Where("organization_id = ? AND id = ?", orgID.String(), id).Take(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
			}
			return err
		}
		risk, err := lockRisk(tx, orgID, owner.RiskID)
		if err != nil {
			return err
		}
		row, err := lockControl(tx, orgID, id)
		if err != nil {
			return err
		}

		current := row.toModel()
		next := current.Copy()
		if err := mutate(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.OrganizationID = current.OrganizationID
		next.RiskID = current.RiskID
		next.Code = current.Code
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now()
		if err := tx.Save(newControlRow(next)).Error; err != nil {
			return err
		}

		controls, err := listControls(tx, orgID, risk.ID)
		if err != nil {
			return err
		}
		derived, err := derive(risk.Copy(), controls)
		if err != nil {
			return err
		}
		risk.Derived = derived
		updatedControl = next
		updatedRisk = risk
		return tx.Save(newRiskRow(risk)).Error
	})
	if err != nil {
		return nil, nil, translate(err, "failed to update control", goerr.V("id", id))
	}

	return updatedControl, updatedRisk, nil
}

func (r *controlRepository) Delete(ctx context.Context, orgID types.OrganizationID, id int64, derive interfaces.DeriveFunc) (*model.Risk, error) {
	var updated *model.Risk
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		var owner controlRow
		if err := tx.Select("risk_id").Where("organization_id = ? AND id = ?", orgID.String(), id).Take(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
			}
			return err
		}
		risk, err := lockRisk(tx, orgID, owner.RiskID)
		if err != nil {
			return err
		}
		row, err := lockControl(tx, orgID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(row).Error; err != nil {
			return err
		}

		controls, err := listControls(tx, orgID, risk.ID)
		if err != nil {
			return err
		}
		derived, err := derive(risk.Copy(), controls)
		if err != nil {
			return err
		}
		risk.Derived = derived
		updated = risk
		return tx.Save(newRiskRow(risk)).Error
	})
	if err != nil {
		return nil, translate(err, "failed to delete control", goerr.V("id", id))
	}

	return updated, nil
}
