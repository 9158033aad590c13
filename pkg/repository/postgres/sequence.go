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

type sequenceRepository struct {
	pg *Postgres
}

func (r *sequenceRepository) Next(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (int64, error) {
	var next int64
	err := r.pg.transaction(ctx, func(tx *gorm.DB) error {
		seed := &sequenceRow{OrganizationID: orgID.String(), Name: name.String(), UpdatedAt: now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		var row sequenceRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND name = ?", orgID.String(), name.String()).
			Take(&row).Error; err != nil {
			return err
		}

		next = row.Value + 1
		return tx.Model(&row).Updates(map[string]interface{}{
			"value":      next,
			"updated_at": now(),
		}).Error
	})
	if err != nil {
		return 0, translate(err, "failed to increment counter", goerr.V("org_id", orgID), goerr.V("name", name))
	}

	return next, nil
}

func (r *sequenceRepository) Get(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*model.SequenceCounter, error) {
	var row sequenceRow
	err := r.pg.db.WithContext(ctx).
		Where("organization_id = ? AND name = ?", orgID.String(), name.String()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "counter not found", goerr.V("org_id", orgID), goerr.V("name", name))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get counter", goerr.V("org_id", orgID), goerr.V("name", name))
	}

	return &model.SequenceCounter{
		OrganizationID: orgID,
		Name:           name,
		Value:          row.Value,
		UpdatedAt:      row.UpdatedAt.UTC(),
	}, nil
}
