package memory

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func TestSequenceNextTimesOutWhileLocked(t *testing.T) {
	repo := New()
	const orgID = types.OrganizationID("acme")

	row := repo.sequence.row(orgID, types.CounterRisk)
	gt.NoError(t, row.lock.Acquire(context.Background(), 1)).Required()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := repo.Sequence().Next(ctx, orgID, types.CounterRisk)
	gt.Error(t, err).Is(interfaces.ErrContention)

	// other counters do not share the lock
	v, err := repo.Sequence().Next(context.Background(), orgID, types.CounterControl)
	gt.NoError(t, err).Required()
	gt.Value(t, v).Equal(int64(1))

	row.lock.Release(1)
	v, err = repo.Sequence().Next(context.Background(), orgID, types.CounterRisk)
	gt.NoError(t, err).Required()
	gt.Value(t, v).Equal(int64(1))
}

func TestCommitRejectsAlreadyCommittedPeriod(t *testing.T) {
	repo := New()
	ctx := context.Background()
	const orgID = types.OrganizationID("acme")
	q1 := model.Period{Year: 2026, Number: 1, Cadence: types.CadenceQuarterly}

	_, err := repo.Period().EnsureActive(ctx, orgID, q1)
	gt.NoError(t, err).Required()

	plan := func(active model.Period, risks []*model.Risk) (*model.PeriodSnapshot, error) {
		return &model.PeriodSnapshot{
			Commit: &model.PeriodCommit{ID: "c-" + active.ID().String(), OrganizationID: orgID, Period: active},
			Next:   active.Next(),
		}, nil
	}
	_, err = repo.Period().Commit(ctx, orgID, plan)
	gt.NoError(t, err).Required()

	// force the pointer back to a committed period; the guard must hold
	repo.store.active[orgID].Period = q1
	_, err = repo.Period().Commit(ctx, orgID, plan)
	gt.Error(t, err).Is(interfaces.ErrAlreadyCommitted)

	commits, err := repo.Period().ListCommits(ctx, orgID)
	gt.NoError(t, err).Required()
	gt.Array(t, commits).Length(1)
}
