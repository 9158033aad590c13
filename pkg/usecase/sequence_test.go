package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"golang.org/x/sync/errgroup"
)

// lockedSequence never grants its counter lock
type lockedSequence struct{}

func (lockedSequence) Next(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (int64, error) {
	<-ctx.Done()
	return 0, goerr.Wrap(interfaces.ErrContention, "counter locked", goerr.V("name", name))
}

func (lockedSequence) Get(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*model.SequenceCounter, error) {
	return nil, goerr.Wrap(interfaces.ErrNotFound, "counter not found")
}

type contendedRepository struct {
	*memory.Memory
}

func (r *contendedRepository) Sequence() interfaces.SequenceRepository {
	return lockedSequence{}
}

func TestSequenceUseCase_Generate(t *testing.T) {
	t.Run("codes increase without gaps under concurrency", func(t *testing.T) {
		_, uc := setupUseCases(t)
		ctx := editorContext()

		var mu sync.Mutex
		seen := map[string]bool{}
		var eg errgroup.Group
		for range 20 {
			eg.Go(func() error {
				code, err := uc.Sequence.Generate(ctx, testOrgID, "AUDIT")
				if err != nil {
					return err
				}
				mu.Lock()
				seen[code.Value] = true
				mu.Unlock()
				return nil
			})
		}
		gt.NoError(t, eg.Wait()).Required()

		gt.Number(t, len(seen)).Equal(20)
		gt.Bool(t, seen["AUDIT-0001"]).True()
		gt.Bool(t, seen["AUDIT-0020"]).True()
	})

	t.Run("invalid counter name", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Sequence.Generate(editorContext(), testOrgID, "not valid")
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("viewer cannot generate", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Sequence.Generate(viewerContext(), testOrgID, "AUDIT")
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})
}

func TestSequenceUseCase_LockTimeout(t *testing.T) {
	repo := &contendedRepository{Memory: memory.New()}
	uc := usecase.New(repo,
		usecase.WithOrganizationRegistry(newRegistry(testOrgID)),
		usecase.WithSequenceLockTimeout(20*time.Millisecond),
		usecase.WithClock(func() time.Time { return testNow }),
	)

	t.Run("NextValue reports contention", func(t *testing.T) {
		_, err := uc.Sequence.NextValue(context.Background(), testOrgID, "AUDIT")
		gt.Error(t, err).Is(usecase.ErrContention)
	})

	t.Run("NextCode falls back to a non-sequential code", func(t *testing.T) {
		code, err := uc.Sequence.NextCode(context.Background(), testOrgID, "AUDIT")
		gt.NoError(t, err).Required()
		gt.Bool(t, code.Sequential).False()
		gt.Value(t, code.Value).Equal(model.FallbackCode("AUDIT", testNow))
	})

	t.Run("risk creation still succeeds", func(t *testing.T) {
		risk := createRisk(t, uc, "ops")
		gt.Bool(t, strings.HasPrefix(risk.Code, "RISK-OPS-X")).True()
	})

	t.Run("cancelled caller keeps its error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := uc.Sequence.NextCode(ctx, testOrgID, "AUDIT")
		gt.Error(t, err).Is(usecase.ErrContention)
	})
}
