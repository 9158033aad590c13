package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ControlRepository writes controls and the owning risk's derived state
// atomically; every mutation returns the risk as it was committed.
type ControlRepository interface {
	Create(ctx context.Context, control *model.Control, derive DeriveFunc) (*model.Control, *model.Risk, error)

	Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Control, error)

	// ListByRisk returns the controls of one risk ordered by ID
	ListByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.Control, error)

	// Update applies mutate to the control. ID, RiskID, Code and the
	// organization cannot be changed.
	Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Control) error, derive DeriveFunc) (*model.Control, *model.Risk, error)

	Delete(ctx context.Context, orgID types.OrganizationID, id int64, derive DeriveFunc) (*model.Risk, error)
}
