package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func runControlRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	setup := func(t *testing.T) (interfaces.Repository, types.OrganizationID, *model.Risk) {
		repo := newRepo(t)
		orgID := newOrgID()
		risk, err := repo.Risk().Create(context.Background(), newRisk(orgID, "RISK-0001"), derive)
		gt.NoError(t, err).Required()
		return repo, orgID, risk
	}

	t.Run("Create recomputes the owning risk in the same write", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		// 50% likelihood control: L 4 -> 2
		control, updated, err := repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeLikelihood, 3, 3, 0, 0), derive)
		gt.NoError(t, err).Required()

		gt.Value(t, control.ID).NotEqual(int64(0))
		gt.Value(t, control.RiskID).Equal(risk.ID)
		gt.Value(t, updated.Derived.ResidualLikelihood).Equal(types.Likelihood(2))
		gt.Value(t, updated.Derived.ResidualImpact).Equal(types.Impact(5))
		gt.Value(t, updated.Derived.ResidualScore).Equal(10)

		stored, err := repo.Risk().Get(ctx, orgID, risk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Derived.ResidualScore).Equal(10)
		gt.Value(t, stored.InherentLikelihood).Equal(risk.InherentLikelihood)
	})

	t.Run("Create returns not found for unknown risk", func(t *testing.T) {
		repo, orgID, _ := setup(t)
		_, _, err := repo.Control().Create(context.Background(),
			newControl(orgID, 987654321, "CTL-0001", types.ControlTypeLikelihood, 3, 3, 3, 3), derive)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Create writes nothing when derive fails", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		failing := func(*model.Risk, []*model.Control) (model.DerivedState, error) {
			return model.DerivedState{}, goerr.New("recomputation failed")
		}
		_, _, err := repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeLikelihood, 3, 3, 3, 3), failing)
		gt.Value(t, err).NotNil()

		controls, err := repo.Control().ListByRisk(ctx, orgID, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, controls).Length(0)

		stored, err := repo.Risk().Get(ctx, orgID, risk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Derived.ResidualScore).Equal(risk.Derived.ResidualScore)
	})

	t.Run("Create rejects duplicate control code", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		_, _, err := repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeLikelihood, 1, 1, 1, 1), derive)
		gt.NoError(t, err).Required()
		_, _, err = repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeImpact, 1, 1, 1, 1), derive)
		gt.Error(t, err).Is(interfaces.ErrConflict)
	})

	t.Run("Update changes scores but not ownership", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		control, _, err := repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeLikelihood, 3, 3, 0, 0), derive)
		gt.NoError(t, err).Required()

		updatedControl, updatedRisk, err := repo.Control().Update(ctx, orgID, control.ID, func(c *model.Control) error {
			c.Monitoring = 3
			c.Evaluation = 3
			c.RiskID = 42
			return nil
		}, derive)
		gt.NoError(t, err).Required()

		gt.Value(t, updatedControl.RiskID).Equal(risk.ID)
		gt.Value(t, updatedControl.Monitoring).Equal(types.DIMEScore(3))
		// 100% effective control floors likelihood at 1
		gt.Value(t, updatedRisk.Derived.ResidualLikelihood).Equal(types.Likelihood(1))
		gt.Value(t, updatedRisk.Derived.ResidualScore).Equal(5)

		got, err := repo.Control().Get(ctx, orgID, control.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Evaluation).Equal(types.DIMEScore(3))
	})

	t.Run("Delete of the last control returns risk to inherent baseline", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		control, _, err := repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeImpact, 3, 3, 3, 3), derive)
		gt.NoError(t, err).Required()

		updated, err := repo.Control().Delete(ctx, orgID, control.ID, derive)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Derived.ResidualLikelihood).Equal(risk.InherentLikelihood)
		gt.Value(t, updated.Derived.ResidualImpact).Equal(risk.InherentImpact)
		gt.Value(t, updated.Derived.ResidualScore).Equal(risk.InherentScore())

		_, err = repo.Control().Get(ctx, orgID, control.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		_, err = repo.Control().Delete(ctx, orgID, control.ID, derive)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("ListByRisk returns controls ordered by ID", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		for _, code := range []string{"CTL-0001", "CTL-0002"} {
			_, _, err := repo.Control().Create(ctx,
				newControl(orgID, risk.ID, code, types.ControlTypeLikelihood, 2, 2, 2, 2), derive)
			gt.NoError(t, err).Required()
		}

		controls, err := repo.Control().ListByRisk(ctx, orgID, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, controls).Length(2)
		gt.Value(t, controls[0].Code).Equal("CTL-0001")
		gt.Bool(t, controls[0].ID < controls[1].ID).True()

		_, err = repo.Control().ListByRisk(ctx, orgID, 987654321)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("controls are invisible to other organizations", func(t *testing.T) {
		repo, orgID, risk := setup(t)
		ctx := context.Background()

		control, _, err := repo.Control().Create(ctx,
			newControl(orgID, risk.ID, "CTL-0001", types.ControlTypeLikelihood, 1, 1, 1, 1), derive)
		gt.NoError(t, err).Required()

		_, err = repo.Control().Get(ctx, newOrgID(), control.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestControlRepository_Memory(t *testing.T) {
	runControlRepositoryTest(t, newMemoryRepository)
}

func TestControlRepository_Firestore(t *testing.T) {
	runControlRepositoryTest(t, newFirestoreRepository)
}

func TestControlRepository_Postgres(t *testing.T) {
	runControlRepositoryTest(t, newPostgresRepository)
}
