package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// SnapshotArchive receives a copy of every committed period outside the
// commit transaction
type SnapshotArchive interface {
	Put(ctx context.Context, commit *model.PeriodCommit, entries []*model.RiskHistory) error
}
