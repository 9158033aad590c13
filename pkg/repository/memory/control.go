package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type controlRepository struct {
	store *store
}

func (r *controlRepository) Create(ctx context.Context, control *model.Control, derive interfaces.DeriveFunc) (*model.Control, *model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	orgID := control.OrganizationID
	risk, ok := s.risks[orgID][control.RiskID]
	if !ok {
		return nil, nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found",
			goerr.V("org_id", orgID), goerr.V("risk_id", control.RiskID))
	}

	codes := ensure(s.controlCodes, orgID)
	if _, exists := codes[control.Code]; exists {
		return nil, nil, goerr.Wrap(interfaces.ErrConflict, "control code already exists",
			goerr.V("org_id", orgID), goerr.V("code", control.Code))
	}

	now := time.Now().UTC()
	created := control.Copy()
	created.ID = s.nextControlID
	created.CreatedAt = now
	created.UpdatedAt = now

	controls := ensure(s.controls, orgID)
	controls[created.ID] = created
	updated, err := s.rederive(risk, derive)
	if err != nil {
		delete(controls, created.ID)
		return nil, nil, err
	}

	s.nextControlID++
	codes[created.Code] = created.ID
	s.risks[orgID][risk.ID] = updated
	return created.Copy(), updated.Copy(), nil
}

func (r *controlRepository) Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Control, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	control, ok := s.controls[orgID][id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	return control.Copy(), nil
}

func (r *controlRepository) ListByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.Control, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.risks[orgID][riskID]; !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("risk_id", riskID))
	}
	return s.controlsOf(orgID, riskID), nil
}

func (r *controlRepository) Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Control) error, derive interfaces.DeriveFunc) (*model.Control, *model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.controls[orgID][id]
	if !ok {
		return nil, nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}

	next := current.Copy()
	if err := mutate(next); err != nil {
		return nil, nil, err
	}
	next.ID = current.ID
	next.OrganizationID = current.OrganizationID
	next.RiskID = current.RiskID
	next.Code = current.Code
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	s.controls[orgID][id] = next
	updated, err := s.rederive(s.risks[orgID][next.RiskID], derive)
	if err != nil {
		s.controls[orgID][id] = current
		return nil, nil, err
	}
	s.risks[orgID][updated.ID] = updated
	return next.Copy(), updated.Copy(), nil
}

func (r *controlRepository) Delete(ctx context.Context, orgID types.OrganizationID, id int64, derive interfaces.DeriveFunc) (*model.Risk, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.controls[orgID][id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}

	delete(s.controls[orgID], id)
	updated, err := s.rederive(s.risks[orgID][current.RiskID], derive)
	if err != nil {
		s.controls[orgID][id] = current
		return nil, err
	}
	s.risks[orgID][updated.ID] = updated
	return updated.Copy(), nil
}
