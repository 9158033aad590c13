package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type ControlUseCase struct {
	repo     interfaces.Repository
	orgs     *organizations
	sequence *SequenceUseCase
	residual *ResidualUseCase
}

type CreateControlInput struct {
	RiskID         int64  `validate:"required,gt=0"`
	Name           string `validate:"required,max=200"`
	Description    string `validate:"max=4000"`
	Type           types.ControlType
	Design         types.DIMEScore `validate:"min=0,max=3"`
	Implementation types.DIMEScore `validate:"min=0,max=3"`
	Monitoring     types.DIMEScore `validate:"min=0,max=3"`
	Evaluation     types.DIMEScore `validate:"min=0,max=3"`
}

// UpdateControlInput is a partial update. The owning risk cannot change.
type UpdateControlInput struct {
	Name           *string `validate:"omitempty,min=1,max=200"`
	Description    *string `validate:"omitempty,max=4000"`
	Type           *types.ControlType
	Design         *types.DIMEScore `validate:"omitempty,min=0,max=3"`
	Implementation *types.DIMEScore `validate:"omitempty,min=0,max=3"`
	Monitoring     *types.DIMEScore `validate:"omitempty,min=0,max=3"`
	Evaluation     *types.DIMEScore `validate:"omitempty,min=0,max=3"`
}

// ControlResult is a written control together with its risk as re-derived in
// the same transaction
type ControlResult struct {
	Control *model.Control
	Risk    *model.Risk
}

func (uc *ControlUseCase) CreateControl(ctx context.Context, orgID types.OrganizationID, input CreateControlInput) (*ControlResult, error) {
	if _, _, err := uc.orgs.editor(ctx, orgID); err != nil {
		return nil, err
	}

	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "invalid control input", goerr.V(RiskIDKey, input.RiskID))
	}

	control := &model.Control{
		OrganizationID: orgID,
		RiskID:         input.RiskID,
		Name:           input.Name,
		Description:    input.Description,
		Type:           input.Type,
		Design:         input.Design,
		Implementation: input.Implementation,
		Monitoring:     input.Monitoring,
		Evaluation:     input.Evaluation,
	}
	if err := control.Validate(); err != nil {
		return nil, validationError(err, "invalid control", goerr.V(RiskIDKey, input.RiskID))
	}

	// fail fast on an unknown risk before a counter value is consumed
	if _, err := uc.repo.Risk().Get(ctx, orgID, input.RiskID); err != nil {
		return nil, riskError(err, "failed to get risk of control", orgID, input.RiskID)
	}

	code, err := uc.sequence.NextCode(ctx, orgID, types.CounterControl)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate control code", goerr.V(OrgIDKey, orgID))
	}
	control.Code = code.Value

	created, risk, err := uc.repo.Control().Create(ctx, control, uc.residual.Derive)
	if err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, goerr.Wrap(ErrDuplicateCode, "control code already exists",
				goerr.V(OrgIDKey, orgID), goerr.V("code", code.Value))
		}
		return nil, riskError(err, "failed to create control", orgID, input.RiskID)
	}

	logging.From(ctx).Info("control created",
		"org_id", orgID, "risk_id", risk.ID, "control_id", created.ID,
		"residual_score", risk.Derived.ResidualScore)
	return &ControlResult{Control: created, Risk: risk}, nil
}

func (uc *ControlUseCase) UpdateControl(ctx context.Context, orgID types.OrganizationID, controlID int64, input UpdateControlInput) (*ControlResult, error) {
	if _, _, err := uc.orgs.editor(ctx, orgID); err != nil {
		return nil, err
	}

	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "invalid control input", goerr.V(ControlIDKey, controlID))
	}

	updated, risk, err := uc.repo.Control().Update(ctx, orgID, controlID, func(c *model.Control) error {
		if input.Name != nil {
			c.Name = *input.Name
		}
		if input.Description != nil {
			c.Description = *input.Description
		}
		if input.Type != nil {
			c.Type = *input.Type
		}
		if input.Design != nil {
			c.Design = *input.Design
		}
		if input.Implementation != nil {
			c.Implementation = *input.Implementation
		}
		if input.Monitoring != nil {
			c.Monitoring = *input.Monitoring
		}
		if input.Evaluation != nil {
			c.Evaluation = *input.Evaluation
		}
		if err := c.Validate(); err != nil {
			return validationError(err, "invalid control", goerr.V(ControlIDKey, controlID))
		}
		return nil
	}, uc.residual.Derive)
	if err != nil {
		return nil, controlError(err, "failed to update control", orgID, controlID)
	}

	return &ControlResult{Control: updated, Risk: risk}, nil
}

// DeleteControl removes a control and returns its risk re-derived without it
func (uc *ControlUseCase) DeleteControl(ctx context.Context, orgID types.OrganizationID, controlID int64) (*model.Risk, error) {
	if _, _, err := uc.orgs.editor(ctx, orgID); err != nil {
		return nil, err
	}

	risk, err := uc.repo.Control().Delete(ctx, orgID, controlID, uc.residual.Derive)
	if err != nil {
		return nil, controlError(err, "failed to delete control", orgID, controlID)
	}

	logging.From(ctx).Info("control deleted",
		"org_id", orgID, "risk_id", risk.ID, "control_id", controlID,
		"residual_score", risk.Derived.ResidualScore)
	return risk, nil
}

func (uc *ControlUseCase) GetControl(ctx context.Context, orgID types.OrganizationID, controlID int64) (*model.Control, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}

	control, err := uc.repo.Control().Get(ctx, orgID, controlID)
	if err != nil {
		return nil, controlError(err, "failed to get control", orgID, controlID)
	}
	return control, nil
}

func (uc *ControlUseCase) ListControls(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.Control, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}

	if _, err := uc.repo.Risk().Get(ctx, orgID, riskID); err != nil {
		return nil, riskError(err, "failed to get risk", orgID, riskID)
	}

	controls, err := uc.repo.Control().ListByRisk(ctx, orgID, riskID)
	if err != nil {
		return nil, riskError(err, "failed to list controls", orgID, riskID)
	}
	return controls, nil
}

func controlError(err error, msg string, orgID types.OrganizationID, controlID int64) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrControlNotFound, msg, goerr.V(OrgIDKey, orgID), goerr.V(ControlIDKey, controlID))
	}
	return goerr.Wrap(err, msg, goerr.V(OrgIDKey, orgID), goerr.V(ControlIDKey, controlID))
}
