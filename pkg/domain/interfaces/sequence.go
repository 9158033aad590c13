package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type SequenceRepository interface {
	// Next locks the (orgID, name) counter, increments it and returns the new
	// value. The counter is created at 0 on first use inside the same
	// transaction. Returns ErrContention if the lock is not acquired before
	// ctx is done.
	Next(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (int64, error)

	// Get returns the current counter row
	Get(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*model.SequenceCounter, error)
}
