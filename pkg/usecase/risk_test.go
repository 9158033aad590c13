package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

func TestRiskUseCase_CreateRisk(t *testing.T) {
	t.Run("assigns sequential codes per category", func(t *testing.T) {
		_, uc := setupUseCases(t)

		first := createRisk(t, uc, "ops")
		second := createRisk(t, uc, "ops")
		other := createRisk(t, uc, "sec")
		plain := createRisk(t, uc, "")

		gt.Value(t, first.Code).Equal("RISK-OPS-0001")
		gt.Value(t, second.Code).Equal("RISK-OPS-0002")
		gt.Value(t, other.Code).Equal("RISK-SEC-0001")
		gt.Value(t, plain.Code).Equal("RISK-0001")
	})

	t.Run("derives the baseline residual state", func(t *testing.T) {
		_, uc := setupUseCases(t)

		risk := createRisk(t, uc, "ops")
		gt.Value(t, risk.Status).Equal(types.RiskStatusOpen)
		gt.Value(t, risk.Derived.ResidualLikelihood).Equal(types.Likelihood(4))
		gt.Value(t, risk.Derived.ResidualImpact).Equal(types.Impact(5))
		gt.Value(t, risk.Derived.ResidualScore).Equal(20)
		gt.Value(t, risk.Derived.LastComputedAt).Equal(testNow)
	})

	t.Run("rejects out of range ratings", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Risk.CreateRisk(editorContext(), testOrgID, usecase.CreateRiskInput{
			Title:              "Bad",
			InherentLikelihood: 6,
			InherentImpact:     3,
		})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("rejects unconfigured category", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Risk.CreateRisk(editorContext(), testOrgID, usecase.CreateRiskInput{
			Title:              "Unknown",
			Category:           "finance",
			InherentLikelihood: 3,
			InherentImpact:     3,
		})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Risk.CreateRisk(viewerContext(), testOrgID, usecase.CreateRiskInput{
			Title:              "Read only",
			InherentLikelihood: 3,
			InherentImpact:     3,
		})
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("actor of another organization is denied", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Risk.CreateRisk(actorContext("globex", types.RoleAdmin), testOrgID, usecase.CreateRiskInput{
			Title:              "Cross org",
			InherentLikelihood: 3,
			InherentImpact:     3,
		})
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Risk.CreateRisk(actorContext("initech", types.RoleAdmin), "initech", usecase.CreateRiskInput{
			Title:              "Nowhere",
			InherentLikelihood: 3,
			InherentImpact:     3,
		})
		gt.Error(t, err).Is(usecase.ErrOrganizationNotFound)
	})
}

func TestRiskUseCase_UpdateRisk(t *testing.T) {
	t.Run("changing inherent ratings recomputes residual", func(t *testing.T) {
		_, uc := setupUseCases(t)
		risk := createRisk(t, uc, "ops")

		updated, err := uc.Risk.UpdateRisk(editorContext(), testOrgID, risk.ID, usecase.UpdateRiskInput{
			InherentLikelihood: ptr(types.Likelihood(2)),
			Status:             ptr(types.RiskStatusMonitoring),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Code).Equal(risk.Code)
		gt.Value(t, updated.Status).Equal(types.RiskStatusMonitoring)
		gt.Value(t, updated.Derived.ResidualLikelihood).Equal(types.Likelihood(2))
		gt.Value(t, updated.Derived.ResidualScore).Equal(10)
	})

	t.Run("invalid status leaves the risk unchanged", func(t *testing.T) {
		_, uc := setupUseCases(t)
		risk := createRisk(t, uc, "ops")

		_, err := uc.Risk.UpdateRisk(editorContext(), testOrgID, risk.ID, usecase.UpdateRiskInput{
			Title:  ptr("Renamed"),
			Status: ptr(types.RiskStatus("DELETED")),
		})
		gt.Error(t, err).Is(usecase.ErrValidation)

		got, err := uc.Risk.GetRisk(viewerContext(), testOrgID, risk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal(risk.Title)
	})

	t.Run("unknown risk", func(t *testing.T) {
		_, uc := setupUseCases(t)

		_, err := uc.Risk.UpdateRisk(editorContext(), testOrgID, 999, usecase.UpdateRiskInput{Title: ptr("x")})
		gt.Error(t, err).Is(usecase.ErrRiskNotFound)
	})
}

func TestRiskUseCase_ListRisks(t *testing.T) {
	_, uc := setupUseCases(t)
	first := createRisk(t, uc, "ops")
	second := createRisk(t, uc, "sec")

	_, err := uc.Risk.UpdateRisk(editorContext(), testOrgID, second.ID, usecase.UpdateRiskInput{
		Status: ptr(types.RiskStatusClosed),
	})
	gt.NoError(t, err).Required()

	all, err := uc.Risk.ListRisks(viewerContext(), testOrgID, "")
	gt.NoError(t, err).Required()
	gt.Array(t, all).Length(2)
	gt.Value(t, all[0].ID).Equal(first.ID)

	open, err := uc.Risk.ListRisks(viewerContext(), testOrgID, types.RiskStatusOpen)
	gt.NoError(t, err).Required()
	gt.Array(t, open).Length(1)
	gt.Value(t, open[0].ID).Equal(first.ID)

	_, err = uc.Risk.ListRisks(viewerContext(), testOrgID, "GONE")
	gt.Error(t, err).Is(usecase.ErrValidation)
}

func TestCheckWritableFields(t *testing.T) {
	gt.NoError(t, usecase.CheckWritableFields([]string{"title", "inherent_likelihood", "status"}))

	for _, field := range []string{"residual_score", "Residual_Likelihood", "residual_impact", "last_computed_at", "derived"} {
		t.Run(field, func(t *testing.T) {
			gt.Error(t, usecase.CheckWritableFields([]string{"title", field})).Is(usecase.ErrDerivedFieldWrite)
		})
	}
}
