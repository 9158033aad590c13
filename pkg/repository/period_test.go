package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func snapshotPlan(orgID types.OrganizationID, actor string) interfaces.PlanFunc {
	return func(active model.Period, risks []*model.Risk) (*model.PeriodSnapshot, error) {
		at := time.Now().UTC().Truncate(time.Microsecond)
		commitID := uuid.NewString()
		entries := make([]*model.RiskHistory, 0, len(risks))
		for _, risk := range risks {
			entries = append(entries, model.NewRiskHistory(risk, active, commitID, at))
		}
		return &model.PeriodSnapshot{
			Commit: &model.PeriodCommit{
				ID:             commitID,
				OrganizationID: orgID,
				Period:         active,
				CommittedBy:    actor,
				CommittedAt:    at,
				Note:           "quarter close",
				RowCount:       len(entries),
			},
			Entries: entries,
			Next:    active.Next(),
		}, nil
	}
}

func runPeriodRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	q3 := model.Period{Year: 2026, Number: 3, Cadence: types.CadenceQuarterly}

	t.Run("EnsureActive inserts once and keeps the first period", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()

		_, err := repo.Period().GetActive(ctx, orgID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		active, err := repo.Period().EnsureActive(ctx, orgID, q3)
		gt.NoError(t, err).Required()
		gt.Value(t, active.Period).Equal(q3)

		again, err := repo.Period().EnsureActive(ctx, orgID, q3.Next())
		gt.NoError(t, err).Required()
		gt.Value(t, again.Period).Equal(q3)

		got, err := repo.Period().GetActive(ctx, orgID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Period.ID()).Equal(model.PeriodID("2026-Q3"))
	})

	t.Run("Commit snapshots every risk and advances the pointer", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()

		open, err := repo.Risk().Create(ctx, newRisk(orgID, "RISK-0001"), derive)
		gt.NoError(t, err).Required()
		closedInput := newRisk(orgID, "RISK-0002")
		closedInput.Status = types.RiskStatusClosed
		closed, err := repo.Risk().Create(ctx, closedInput, derive)
		gt.NoError(t, err).Required()
		_, _, err = repo.Control().Create(ctx,
			newControl(orgID, open.ID, "CTL-0001", types.ControlTypeLikelihood, 3, 3, 0, 0), derive)
		gt.NoError(t, err).Required()

		_, err = repo.Period().EnsureActive(ctx, orgID, q3)
		gt.NoError(t, err).Required()

		commit, err := repo.Period().Commit(ctx, orgID, snapshotPlan(orgID, "admin-1"))
		gt.NoError(t, err).Required()
		gt.Value(t, commit.Period).Equal(q3)
		gt.Value(t, commit.RowCount).Equal(2)
		gt.Value(t, commit.CommittedBy).Equal("admin-1")

		active, err := repo.Period().GetActive(ctx, orgID)
		gt.NoError(t, err).Required()
		gt.Value(t, active.Period.ID()).Equal(model.PeriodID("2026-Q4"))

		entries, err := repo.Period().ListHistoryByPeriod(ctx, orgID, q3.ID())
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(2)
		gt.Value(t, entries[0].RiskID).Equal(open.ID)
		gt.Value(t, entries[0].ResidualScore).Equal(10)
		gt.Value(t, entries[0].InherentScore).Equal(20)
		gt.Value(t, entries[1].RiskID).Equal(closed.ID)
		gt.Value(t, entries[1].Status).Equal(types.RiskStatusClosed)

		entry, err := repo.Period().GetHistory(ctx, orgID, open.ID, q3.ID())
		gt.NoError(t, err).Required()
		gt.Value(t, entry.CommitID).Equal(commit.ID)
		gt.Value(t, entry.ResidualLikelihood).Equal(types.Likelihood(2))

		// live risk keeps its identity and stays editable
		live, err := repo.Risk().Get(ctx, orgID, open.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, live.Code).Equal("RISK-0001")
		_, err = repo.Risk().Update(ctx, orgID, open.ID, func(r *model.Risk) error {
			r.InherentImpact = 2
			return nil
		}, derive)
		gt.NoError(t, err).Required()

		frozen, err := repo.Period().GetHistory(ctx, orgID, open.ID, q3.ID())
		gt.NoError(t, err).Required()
		gt.Value(t, frozen.InherentImpact).Equal(types.Impact(5))
	})

	t.Run("consecutive commits build a chronological history", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()

		risk, err := repo.Risk().Create(ctx, newRisk(orgID, "RISK-0001"), derive)
		gt.NoError(t, err).Required()
		_, err = repo.Period().EnsureActive(ctx, orgID, q3)
		gt.NoError(t, err).Required()

		for range 3 {
			_, err := repo.Period().Commit(ctx, orgID, snapshotPlan(orgID, "admin-1"))
			gt.NoError(t, err).Required()
		}

		commits, err := repo.Period().ListCommits(ctx, orgID)
		gt.NoError(t, err).Required()
		gt.Array(t, commits).Length(3)
		gt.Value(t, commits[0].Period.ID()).Equal(model.PeriodID("2026-Q3"))
		gt.Value(t, commits[1].Period.ID()).Equal(model.PeriodID("2026-Q4"))
		gt.Value(t, commits[2].Period.ID()).Equal(model.PeriodID("2027-Q1"))

		history, err := repo.Period().ListHistoryByRisk(ctx, orgID, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(3)
		gt.Value(t, history[2].Period.ID()).Equal(model.PeriodID("2027-Q1"))

		got, err := repo.Period().GetCommit(ctx, orgID, "2026-Q4")
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(commits[1].ID)
	})

	t.Run("Commit without an active period is not found", func(t *testing.T) {
		repo := newRepo(t)
		orgID := newOrgID()
		_, err := repo.Period().Commit(context.Background(), orgID, snapshotPlan(orgID, "admin-1"))
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("failed plan leaves nothing behind", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()

		_, err := repo.Risk().Create(ctx, newRisk(orgID, "RISK-0001"), derive)
		gt.NoError(t, err).Required()
		_, err = repo.Period().EnsureActive(ctx, orgID, q3)
		gt.NoError(t, err).Required()

		_, err = repo.Period().Commit(ctx, orgID, func(model.Period, []*model.Risk) (*model.PeriodSnapshot, error) {
			return nil, goerr.New("plan failed")
		})
		gt.Value(t, err).NotNil()

		active, err := repo.Period().GetActive(ctx, orgID)
		gt.NoError(t, err).Required()
		gt.Value(t, active.Period).Equal(q3)

		_, err = repo.Period().GetCommit(ctx, orgID, q3.ID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		entries, err := repo.Period().ListHistoryByPeriod(ctx, orgID, q3.ID())
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(0)
	})

	t.Run("plan that does not move forward is rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		orgID := newOrgID()

		_, err := repo.Period().EnsureActive(ctx, orgID, q3)
		gt.NoError(t, err).Required()

		plan := snapshotPlan(orgID, "admin-1")
		_, err = repo.Period().Commit(ctx, orgID, func(active model.Period, risks []*model.Risk) (*model.PeriodSnapshot, error) {
			snapshot, err := plan(active, risks)
			if err != nil {
				return nil, err
			}
			snapshot.Next = active
			return snapshot, nil
		})
		gt.Error(t, err).Is(model.ErrStalePeriod)

		active, err := repo.Period().GetActive(ctx, orgID)
		gt.NoError(t, err).Required()
		gt.Value(t, active.Period).Equal(q3)
	})

	t.Run("GetHistory returns not found for uncommitted period", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Period().GetHistory(context.Background(), newOrgID(), 1, "2026-Q1")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestPeriodRepository_Memory(t *testing.T) {
	runPeriodRepositoryTest(t, newMemoryRepository)
}

func TestPeriodRepository_Firestore(t *testing.T) {
	runPeriodRepositoryTest(t, newFirestoreRepository)
}

func TestPeriodRepository_Postgres(t *testing.T) {
	runPeriodRepositoryTest(t, newPostgresRepository)
}
