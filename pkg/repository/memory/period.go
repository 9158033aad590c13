package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type periodRepository struct {
	store *store
}

func (r *periodRepository) GetActive(ctx context.Context, orgID types.OrganizationID) (*model.ActivePeriod, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.active[orgID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "active period not found", goerr.V("org_id", orgID))
	}
	copied := *active
	return &copied, nil
}

func (r *periodRepository) EnsureActive(ctx context.Context, orgID types.OrganizationID, initial model.Period) (*model.ActivePeriod, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.active[orgID]
	if !ok {
		active = &model.ActivePeriod{
			OrganizationID: orgID,
			Period:         initial,
			UpdatedAt:      time.Now().UTC(),
		}
		s.active[orgID] = active
	}
	copied := *active
	return &copied, nil
}

func (r *periodRepository) Commit(ctx context.Context, orgID types.OrganizationID, plan interfaces.PlanFunc) (*model.PeriodCommit, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.active[orgID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "active period not found", goerr.V("org_id", orgID))
	}
	periodID := active.Period.ID()
	if _, exists := s.commits[orgID][periodID]; exists {
		return nil, goerr.Wrap(interfaces.ErrAlreadyCommitted, "period already committed",
			goerr.V("org_id", orgID), goerr.V("period", periodID))
	}

	snapshot, err := plan(active.Period, s.listRisks(orgID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, goerr.New("commit plan returned no snapshot")
	}
	if err := snapshot.Validate(active.Period); err != nil {
		return nil, err
	}

	histories := ensure(s.histories, orgID)
	for _, entry := range snapshot.Entries {
		if _, exists := histories[historyKey{riskID: entry.RiskID, periodID: periodID}]; exists {
			return nil, goerr.Wrap(interfaces.ErrConflict, "history already exists",
				goerr.V("risk_id", entry.RiskID), goerr.V("period", periodID))
		}
	}
	for _, entry := range snapshot.Entries {
		copied := *entry
		histories[historyKey{riskID: entry.RiskID, periodID: periodID}] = &copied
	}

	commit := *snapshot.Commit
	ensure(s.commits, orgID)[periodID] = &commit
	s.active[orgID] = &model.ActivePeriod{
		OrganizationID: orgID,
		Period:         snapshot.Next,
		UpdatedAt:      commit.CommittedAt,
	}

	result := commit
	return &result, nil
}

func (r *periodRepository) GetCommit(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) (*model.PeriodCommit, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, ok := s.commits[orgID][periodID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "commit not found", goerr.V("org_id", orgID), goerr.V("period", periodID))
	}
	copied := *commit
	return &copied, nil
}

func (r *periodRepository) ListCommits(ctx context.Context, orgID types.OrganizationID) ([]*model.PeriodCommit, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	commits := make([]*model.PeriodCommit, 0, len(s.commits[orgID]))
	for _, commit := range s.commits[orgID] {
		copied := *commit
		commits = append(commits, &copied)
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Period.Before(commits[j].Period) })
	return commits, nil
}

func (r *periodRepository) GetHistory(ctx context.Context, orgID types.OrganizationID, riskID int64, periodID model.PeriodID) (*model.RiskHistory, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.histories[orgID][historyKey{riskID: riskID, periodID: periodID}]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "history not found",
			goerr.V("org_id", orgID), goerr.V("risk_id", riskID), goerr.V("period", periodID))
	}
	copied := *entry
	return &copied, nil
}

func (r *periodRepository) ListHistoryByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.RiskHistory, error) {
	return r.listHistory(orgID, func(h *model.RiskHistory) bool { return h.RiskID == riskID }, func(a, b *model.RiskHistory) bool {
		return a.Period.Before(b.Period)
	}), nil
}

func (r *periodRepository) ListHistoryByPeriod(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) ([]*model.RiskHistory, error) {
	return r.listHistory(orgID, func(h *model.RiskHistory) bool { return h.Period.ID() == periodID }, func(a, b *model.RiskHistory) bool {
		return a.RiskID < b.RiskID
	}), nil
}

func (r *periodRepository) listHistory(orgID types.OrganizationID, match func(*model.RiskHistory) bool, less func(a, b *model.RiskHistory) bool) []*model.RiskHistory {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*model.RiskHistory
	for _, entry := range s.histories[orgID] {
		if match(entry) {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return entries
}
