package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func TestNewRiskHistory(t *testing.T) {
	computedAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	snapshotAt := time.Date(2026, 9, 30, 23, 0, 0, 0, time.UTC)
	period := model.Period{Year: 2026, Number: 3, Cadence: types.CadenceQuarterly}

	risk := &model.Risk{
		ID:                 42,
		OrganizationID:     "acme",
		Code:               "RISK-OPS-0042",
		Title:              "Datacenter power loss",
		Category:           "ops",
		Owner:              "facilities",
		Status:             types.RiskStatusMonitoring,
		InherentLikelihood: 4,
		InherentImpact:     5,
		// deliberately stale relative to any controls: history copies as-is
		Derived: model.DerivedState{
			ResidualLikelihood: 2,
			ResidualImpact:     5,
			ResidualScore:      10,
			LastComputedAt:     computedAt,
		},
	}

	h := model.NewRiskHistory(risk, period, "commit-1", snapshotAt)
	gt.Value(t, h.RiskID).Equal(int64(42))
	gt.Value(t, h.Period.ID()).Equal(model.PeriodID("2026-Q3"))
	gt.Value(t, h.CommitID).Equal("commit-1")
	gt.Value(t, h.Code).Equal("RISK-OPS-0042")
	gt.Value(t, h.Status).Equal(types.RiskStatusMonitoring)
	gt.Value(t, h.InherentScore).Equal(20)
	gt.Value(t, h.ResidualLikelihood).Equal(types.Likelihood(2))
	gt.Value(t, h.ResidualScore).Equal(10)
	gt.Value(t, h.ResidualComputedAt).Equal(computedAt)
	gt.Value(t, h.SnapshotAt).Equal(snapshotAt)
}

func TestRisk_Copy(t *testing.T) {
	risk := &model.Risk{ID: 1, Title: "original"}
	copied := risk.Copy()
	copied.Title = "changed"
	gt.Value(t, risk.Title).Equal("original")
	gt.Bool(t, risk.InputsEqual(copied)).False()
}

func TestPeriodSnapshot_Validate(t *testing.T) {
	active := model.Period{Year: 2026, Number: 3, Cadence: types.CadenceQuarterly}
	newSnapshot := func(active model.Period) *model.PeriodSnapshot {
		return &model.PeriodSnapshot{
			Commit:  &model.PeriodCommit{ID: "commit-1", Period: active, RowCount: 1},
			Entries: []*model.RiskHistory{{RiskID: 1, Period: active}},
			Next:    active.Next(),
		}
	}

	t.Run("valid snapshot", func(t *testing.T) {
		gt.NoError(t, newSnapshot(active).Validate(active))
	})

	t.Run("next must move forward", func(t *testing.T) {
		s := newSnapshot(active)
		s.Next = active
		gt.Error(t, s.Validate(active)).Is(model.ErrStalePeriod)
	})

	t.Run("row count must match entries", func(t *testing.T) {
		s := newSnapshot(active)
		s.Commit.RowCount = 2
		gt.Error(t, s.Validate(active))
	})

	t.Run("last representable period has no successor", func(t *testing.T) {
		last := model.Period{Year: 9999, Number: 4, Cadence: types.CadenceQuarterly}
		s := newSnapshot(last)
		gt.Value(t, s.Next.ID()).Equal(model.PeriodID("10000-Q1"))
		gt.Error(t, s.Validate(last)).Is(model.ErrInvalidPeriod)
	})
}
