package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/model/config"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

const testOrgID types.OrganizationID = "acme"

// testNow falls in 2026-Q3
var testNow = time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC)

func newRegistry(orgIDs ...types.OrganizationID) *model.OrganizationRegistry {
	registry := model.NewOrganizationRegistry()
	for _, id := range orgIDs {
		registry.Register(&model.OrganizationEntry{
			Organization: model.Organization{ID: id, Name: strings.ToUpper(string(id)), Cadence: types.CadenceQuarterly},
			RiskConfig: &config.RiskConfig{
				Categories: []config.Category{
					{ID: "ops", Name: "Operations"},
					{ID: "sec", Name: "Security"},
				},
			},
		})
	}
	return registry
}

func setupUseCases(t *testing.T, opts ...usecase.Option) (*memory.Memory, *usecase.UseCases) {
	t.Helper()
	repo := memory.New()
	base := []usecase.Option{
		usecase.WithOrganizationRegistry(newRegistry(testOrgID, "globex")),
		usecase.WithClock(func() time.Time { return testNow }),
	}
	return repo, usecase.New(repo, append(base, opts...)...)
}

func actorContext(orgID types.OrganizationID, role types.Role) context.Context {
	return auth.ContextWithActor(context.Background(), &auth.Actor{
		UserID:         "u-" + strings.ToLower(role.String()),
		OrganizationID: orgID,
		Role:           role,
	})
}

func adminContext() context.Context {
	return actorContext(testOrgID, types.RoleAdmin)
}

func editorContext() context.Context {
	return actorContext(testOrgID, types.RoleEditor)
}

func viewerContext() context.Context {
	return actorContext(testOrgID, types.RoleViewer)
}

func createRisk(t *testing.T, uc *usecase.UseCases, category types.CategoryID) *model.Risk {
	t.Helper()
	risk, err := uc.Risk.CreateRisk(editorContext(), testOrgID, usecase.CreateRiskInput{
		Title:              "Payment outage",
		Category:           category,
		Owner:              "alice@example.com",
		InherentLikelihood: 4,
		InherentImpact:     5,
	})
	if err != nil {
		t.Fatalf("failed to create risk: %+v", err)
	}
	return risk
}

func ptr[T any](v T) *T {
	return &v
}
