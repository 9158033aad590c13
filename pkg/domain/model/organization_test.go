package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/config"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func TestNewOrganizationRegistry(t *testing.T) {
	reg := model.NewOrganizationRegistry()
	gt.Value(t, reg).NotNil()
	gt.Array(t, reg.List()).Length(0)
}

func TestOrganizationRegistry_RegisterDefaults(t *testing.T) {
	reg := model.NewOrganizationRegistry()
	reg.Register(&model.OrganizationEntry{
		Organization: model.Organization{ID: "acme", Name: "Acme"},
	})

	entry, err := reg.Get("acme")
	gt.NoError(t, err).Required()
	gt.Value(t, entry.Organization.Cadence).Equal(types.CadenceQuarterly)
	gt.Value(t, entry.Organization.RiskCounterPrefix).Equal(types.CounterRisk)
}

func TestOrganizationRegistry_RegisterOverwrite(t *testing.T) {
	reg := model.NewOrganizationRegistry()

	reg.Register(&model.OrganizationEntry{
		Organization: model.Organization{ID: "acme", Name: "Old Name"},
	})
	reg.Register(&model.OrganizationEntry{
		Organization: model.Organization{ID: "acme", Name: "New Name", Cadence: types.CadenceMonthly},
	})

	// Should not duplicate the entry
	gt.Array(t, reg.List()).Length(1)
	gt.Value(t, reg.List()[0].Organization.Name).Equal("New Name")
	gt.Value(t, reg.List()[0].Organization.Cadence).Equal(types.CadenceMonthly)
}

func TestOrganizationRegistry_List(t *testing.T) {
	reg := model.NewOrganizationRegistry()
	for _, id := range []types.OrganizationID{"alpha", "beta", "gamma"} {
		reg.Register(&model.OrganizationEntry{Organization: model.Organization{ID: id}})
	}

	entries := reg.List()
	gt.Array(t, entries).Length(3)

	// Verify registration order is preserved
	gt.Value(t, entries[0].Organization.ID).Equal(types.OrganizationID("alpha"))
	gt.Value(t, entries[1].Organization.ID).Equal(types.OrganizationID("beta"))
	gt.Value(t, entries[2].Organization.ID).Equal(types.OrganizationID("gamma"))
}

func TestOrganizationRegistry_GetNotFound(t *testing.T) {
	reg := model.NewOrganizationRegistry()

	entry, err := reg.Get("nonexistent")
	gt.Value(t, entry).Nil()
	gt.Value(t, err).NotNil()
	gt.Bool(t, errors.Is(err, model.ErrOrganizationNotFound)).True()
}

func TestOrganizationEntry_ValidateCategory(t *testing.T) {
	open := &model.OrganizationEntry{Organization: model.Organization{ID: "acme"}}
	gt.NoError(t, open.ValidateCategory("anything"))
	gt.NoError(t, open.ValidateCategory(""))
	gt.Value(t, open.ValidateCategory("Not Valid")).NotNil()

	restricted := &model.OrganizationEntry{
		Organization: model.Organization{ID: "acme"},
		RiskConfig: &config.RiskConfig{
			Categories: []config.Category{{ID: "ops", Name: "Operations"}},
		},
	}
	gt.NoError(t, restricted.ValidateCategory("ops"))
	gt.Value(t, restricted.ValidateCategory("finance")).NotNil()
}
