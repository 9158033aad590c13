package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type RiskUseCase struct {
	repo     interfaces.Repository
	orgs     *organizations
	sequence *SequenceUseCase
	residual *ResidualUseCase
}

// CreateRiskInput holds the editor owned inputs of a new risk. Residual
// values have no field here; they are always derived.
type CreateRiskInput struct {
	Title              string           `validate:"required,max=200"`
	Description        string           `validate:"max=4000"`
	Category           types.CategoryID `validate:"max=64"`
	Owner              string           `validate:"max=255"`
	Status             types.RiskStatus
	InherentLikelihood types.Likelihood `validate:"min=1,max=5"`
	InherentImpact     types.Impact     `validate:"min=1,max=5"`
}

// UpdateRiskInput is a partial update; nil fields are left unchanged
type UpdateRiskInput struct {
	Title              *string           `validate:"omitempty,min=1,max=200"`
	Description        *string           `validate:"omitempty,max=4000"`
	Category           *types.CategoryID `validate:"omitempty,max=64"`
	Owner              *string           `validate:"omitempty,max=255"`
	Status             *types.RiskStatus
	InherentLikelihood *types.Likelihood `validate:"omitempty,min=1,max=5"`
	InherentImpact     *types.Impact     `validate:"omitempty,min=1,max=5"`
}

// derivedFields are the wire names owned by the residual engine
var derivedFields = map[string]struct{}{
	"residual_likelihood": {},
	"residual_impact":     {},
	"residual_score":      {},
	"last_computed_at":    {},
	"derived":             {},
}

// CheckWritableFields rejects a write request that names any derived field.
// It runs before any write so a rejected request changes nothing.
func CheckWritableFields(fields []string) error {
	for _, field := range fields {
		name := strings.ToLower(field)
		if _, ok := derivedFields[name]; ok || strings.HasPrefix(name, "residual") {
			return goerr.Wrap(ErrDerivedFieldWrite, "derived field in write request", goerr.V("field", field))
		}
	}
	return nil
}

func (uc *RiskUseCase) CreateRisk(ctx context.Context, orgID types.OrganizationID, input CreateRiskInput) (*model.Risk, error) {
	entry, _, err := uc.orgs.editor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "invalid risk input", goerr.V(OrgIDKey, orgID))
	}
	if err := entry.ValidateCategory(input.Category); err != nil {
		return nil, validationError(err, "invalid risk category", goerr.V("category", input.Category))
	}
	status := input.Status
	if status == "" {
		status = types.RiskStatusOpen
	}
	if !status.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "invalid risk status", goerr.V("status", status))
	}

	counter := types.RiskCounterFor(entry.Organization.RiskCounterPrefix, input.Category)
	code, err := uc.sequence.NextCode(ctx, orgID, counter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate risk code", goerr.V(OrgIDKey, orgID))
	}

	risk := &model.Risk{
		OrganizationID:     orgID,
		Code:               code.Value,
		Title:              input.Title,
		Description:        input.Description,
		Category:           input.Category,
		Owner:              input.Owner,
		Status:             status,
		InherentLikelihood: input.InherentLikelihood,
		InherentImpact:     input.InherentImpact,
	}

	created, err := uc.repo.Risk().Create(ctx, risk, uc.residual.Derive)
	if err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, goerr.Wrap(ErrDuplicateCode, "risk code already exists",
				goerr.V(OrgIDKey, orgID), goerr.V("code", code.Value))
		}
		return nil, goerr.Wrap(err, "failed to create risk", goerr.V(OrgIDKey, orgID))
	}

	logging.From(ctx).Info("risk created",
		"org_id", orgID, "risk_id", created.ID, "code", created.Code, "sequential", code.Sequential)
	return created, nil
}

func (uc *RiskUseCase) UpdateRisk(ctx context.Context, orgID types.OrganizationID, riskID int64, input UpdateRiskInput) (*model.Risk, error) {
	entry, _, err := uc.orgs.editor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "invalid risk input", goerr.V(RiskIDKey, riskID))
	}
	if input.Category != nil {
		if err := entry.ValidateCategory(*input.Category); err != nil {
			return nil, validationError(err, "invalid risk category", goerr.V("category", *input.Category))
		}
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "invalid risk status", goerr.V("status", *input.Status))
	}

	updated, err := uc.repo.Risk().Update(ctx, orgID, riskID, func(r *model.Risk) error {
		if input.Title != nil {
			r.Title = *input.Title
		}
		if input.Description != nil {
			r.Description = *input.Description
		}
		if input.Category != nil {
			r.Category = *input.Category
		}
		if input.Owner != nil {
			r.Owner = *input.Owner
		}
		if input.Status != nil {
			r.Status = *input.Status
		}
		if input.InherentLikelihood != nil {
			r.InherentLikelihood = *input.InherentLikelihood
		}
		if input.InherentImpact != nil {
			r.InherentImpact = *input.InherentImpact
		}
		return nil
	}, uc.residual.Derive)
	if err != nil {
		return nil, riskError(err, "failed to update risk", orgID, riskID)
	}

	return updated, nil
}

func (uc *RiskUseCase) GetRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) (*model.Risk, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}

	risk, err := uc.repo.Risk().Get(ctx, orgID, riskID)
	if err != nil {
		return nil, riskError(err, "failed to get risk", orgID, riskID)
	}
	return risk, nil
}

// ListRisks returns the organization's risks, optionally only those in status
func (uc *RiskUseCase) ListRisks(ctx context.Context, orgID types.OrganizationID, status types.RiskStatus) ([]*model.Risk, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "invalid risk status", goerr.V("status", status))
	}

	risks, err := uc.repo.Risk().List(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risks", goerr.V(OrgIDKey, orgID))
	}
	if status == "" {
		return risks, nil
	}

	filtered := make([]*model.Risk, 0, len(risks))
	for _, r := range risks {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}
