package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type RiskRepository interface {
	// Create inserts a risk with an auto-generated ID. The code must be unique
	// within the organization (ErrConflict otherwise).
	Create(ctx context.Context, risk *model.Risk, derive DeriveFunc) (*model.Risk, error)

	// Get retrieves a risk by ID
	Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Risk, error)

	// GetByCode retrieves a risk by its human readable code
	GetByCode(ctx context.Context, orgID types.OrganizationID, code string) (*model.Risk, error)

	// List retrieves all risks of the organization, any status, ordered by ID
	List(ctx context.Context, orgID types.OrganizationID) ([]*model.Risk, error)

	// Update applies mutate to the editor owned inputs and re-derives the
	// residual state in the same transaction. Identity and derived fields set
	// by mutate are discarded.
	Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Risk) error, derive DeriveFunc) (*model.Risk, error)

	// Recompute re-derives and persists the residual state in its own transaction
	Recompute(ctx context.Context, orgID types.OrganizationID, id int64, derive DeriveFunc) (*model.Risk, error)
}
