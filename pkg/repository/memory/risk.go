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

type riskRepository struct {
	store *store
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, derive interfaces.DeriveFunc) (*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := ensure(s.riskCodes, risk.OrganizationID)
	if _, exists := codes[risk.Code]; exists {
		return nil, goerr.Wrap(interfaces.ErrConflict, "risk code already exists",
			goerr.V("org_id", risk.OrganizationID), goerr.V("code", risk.Code))
	}

	now := time.Now().UTC()
	created := risk.Copy()
	created.ID = s.nextRiskID
	created.CreatedAt = now
	created.UpdatedAt = now

	derived, err := derive(created.Copy(), nil)
	if err != nil {
		return nil, err
	}
	created.Derived = derived

	s.nextRiskID++
	codes[created.Code] = created.ID
	ensure(s.risks, created.OrganizationID)[created.ID] = created
	return created.Copy(), nil
}

func (r *riskRepository) Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	risk, ok := s.risks[orgID][id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	return risk.Copy(), nil
}

func (r *riskRepository) GetByCode(ctx context.Context, orgID types.OrganizationID, code string) (*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.riskCodes[orgID][code]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("code", code))
	}
	return s.risks[orgID][id].Copy(), nil
}

func (r *riskRepository) List(ctx context.Context, orgID types.OrganizationID) ([]*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listRisks(orgID), nil
}

// listRisks returns copies ordered by ID. Caller holds mu.
func (s *store) listRisks(orgID types.OrganizationID) []*model.Risk {
	risks := make([]*model.Risk, 0, len(s.risks[orgID]))
	for _, risk := range s.risks[orgID] {
		risks = append(risks, risk.Copy())
	}
	sort.Slice(risks, func(i, j int) bool { return risks[i].ID < risks[j].ID })
	return risks
}

func (r *riskRepository) Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Risk) error, derive interfaces.DeriveFunc) (*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.risks[orgID][id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}

	next := current.Copy()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.OrganizationID = current.OrganizationID
	next.Code = current.Code
	next.CreatedAt = current.CreatedAt
	next.Derived = current.Derived
	next.UpdatedAt = time.Now().UTC()

	updated, err := s.rederive(next, derive)
	if err != nil {
		return nil, err
	}
	s.risks[orgID][id] = updated
	return updated.Copy(), nil
}

func (r *riskRepository) Recompute(ctx context.Context, orgID types.OrganizationID, id int64, derive interfaces.DeriveFunc) (*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.risks[orgID][id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}

	updated, err := s.rederive(current, derive)
	if err != nil {
		return nil, err
	}
	s.risks[orgID][id] = updated
	return updated.Copy(), nil
}
