package repository_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

func runSequenceRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Next starts at 1 and increments", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()

		for want := int64(1); want <= 3; want++ {
			got, err := repo.Sequence().Next(ctx, orgID, types.CounterRisk)
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(want)
		}

		counter, err := repo.Sequence().Get(ctx, orgID, types.CounterRisk)
		gt.NoError(t, err).Required()
		gt.Value(t, counter.Value).Equal(int64(3))
		gt.Value(t, counter.OrganizationID).Equal(orgID)
	})

	t.Run("counters are independent per organization and name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgA := newOrgID()
		orgB := newOrgID()

		_, err := repo.Sequence().Next(ctx, orgA, types.CounterRisk)
		gt.NoError(t, err).Required()
		_, err = repo.Sequence().Next(ctx, orgA, types.CounterRisk)
		gt.NoError(t, err).Required()

		v, err := repo.Sequence().Next(ctx, orgB, types.CounterRisk)
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal(int64(1))

		v, err = repo.Sequence().Next(ctx, orgA, types.CounterControl)
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal(int64(1))
	})

	t.Run("Get returns not found for unused counter", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Sequence().Get(context.Background(), newOrgID(), types.CounterName("NEVER"))
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("concurrent callers receive distinct consecutive values", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()
		const callers = 50

		values := make([]int64, callers)
		var eg errgroup.Group
		for i := range callers {
			eg.Go(func() error {
				// a caller that loses every lock race is retried; the values it
				// eventually gets must still be unique
				for {
					v, err := repo.Sequence().Next(ctx, orgID, types.CounterRisk)
					if errors.Is(err, interfaces.ErrContention) {
						continue
					}
					if err != nil {
						return err
					}
					values[i] = v
					return nil
				}
			})
		}
		gt.NoError(t, eg.Wait()).Required()

		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		for i, v := range values {
			gt.Value(t, v).Equal(int64(i + 1))
		}
	})
}

func TestSequenceRepository_Memory(t *testing.T) {
	runSequenceRepositoryTest(t, newMemoryRepository)
}

func TestSequenceRepository_Firestore(t *testing.T) {
	runSequenceRepositoryTest(t, newFirestoreRepository)
}

func TestSequenceRepository_Postgres(t *testing.T) {
	runSequenceRepositoryTest(t, newPostgresRepository)
}
