package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

func TestResidualUseCase_Derive(t *testing.T) {
	_, uc := setupUseCases(t)
	risk := &model.Risk{ID: 7, InherentLikelihood: 4, InherentImpact: 5}

	t.Run("no controls keeps inherent ratings", func(t *testing.T) {
		state, err := uc.Residual.Derive(risk, nil)
		gt.NoError(t, err).Required()
		gt.Value(t, state.ResidualScore).Equal(20)
		gt.Value(t, state.LastComputedAt).Equal(testNow)
	})

	t.Run("undesigned control has no effect", func(t *testing.T) {
		state, err := uc.Residual.Derive(risk, []*model.Control{
			{RiskID: 7, Type: types.ControlTypeLikelihood, Design: 0, Implementation: 3, Monitoring: 3, Evaluation: 3},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, state.ResidualLikelihood).Equal(types.Likelihood(4))
	})

	t.Run("control of another risk fails", func(t *testing.T) {
		_, err := uc.Residual.Derive(risk, []*model.Control{
			{ID: 1, RiskID: 8, Type: types.ControlTypeLikelihood, Design: 3, Implementation: 3},
		})
		gt.Error(t, err).Is(usecase.ErrRecomputation)
	})

	t.Run("invalid inherent rating fails", func(t *testing.T) {
		_, err := uc.Residual.Derive(&model.Risk{ID: 7, InherentLikelihood: 0, InherentImpact: 5}, nil)
		gt.Error(t, err).Is(usecase.ErrRecomputation)
	})

	t.Run("invalid DIME score fails", func(t *testing.T) {
		_, err := uc.Residual.Derive(risk, []*model.Control{
			{ID: 1, RiskID: 7, Type: types.ControlTypeImpact, Design: 5, Implementation: 3},
		})
		gt.Error(t, err).Is(usecase.ErrRecomputation)
	})
}

func TestResidualUseCase_GetDerivedState(t *testing.T) {
	_, uc := setupUseCases(t)
	risk := createRisk(t, uc, "ops")

	state, err := uc.Residual.GetDerivedState(viewerContext(), testOrgID, risk.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, *state).Equal(risk.Derived)

	_, err = uc.Residual.GetDerivedState(viewerContext(), testOrgID, 404)
	gt.Error(t, err).Is(usecase.ErrRiskNotFound)
}
