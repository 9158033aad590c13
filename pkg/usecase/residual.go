package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ResidualUseCase owns the derived residual fields of every risk. Nothing
// else writes them: repositories call Derive inside the transaction of the
// write that changed a risk's inputs or controls.
type ResidualUseCase struct {
	repo interfaces.Repository
	orgs *organizations
	now  func() time.Time
}

// Derive computes the residual state of risk from the complete set of its
// controls. It is an interfaces.DeriveFunc.
func (uc *ResidualUseCase) Derive(risk *model.Risk, controls []*model.Control) (model.DerivedState, error) {
	if err := risk.InherentLikelihood.Validate(); err != nil {
		residualRecomputeTotal.WithLabelValues("error").Inc()
		return model.DerivedState{}, goerr.Wrap(ErrRecomputation, "invalid inherent likelihood",
			goerr.V(RiskIDKey, risk.ID), goerr.V("reason", err.Error()))
	}
	if err := risk.InherentImpact.Validate(); err != nil {
		residualRecomputeTotal.WithLabelValues("error").Inc()
		return model.DerivedState{}, goerr.Wrap(ErrRecomputation, "invalid inherent impact",
			goerr.V(RiskIDKey, risk.ID), goerr.V("reason", err.Error()))
	}
	for _, c := range controls {
		if c.RiskID != risk.ID {
			residualRecomputeTotal.WithLabelValues("error").Inc()
			return model.DerivedState{}, goerr.Wrap(ErrRecomputation, "control belongs to another risk",
				goerr.V(RiskIDKey, risk.ID), goerr.V(ControlIDKey, c.ID))
		}
		if err := c.Validate(); err != nil {
			residualRecomputeTotal.WithLabelValues("error").Inc()
			return model.DerivedState{}, goerr.Wrap(ErrRecomputation, "invalid control",
				goerr.V(RiskIDKey, risk.ID), goerr.V(ControlIDKey, c.ID), goerr.V("reason", err.Error()))
		}
	}

	residualRecomputeTotal.WithLabelValues("ok").Inc()
	return model.ComputeResidual(risk.InherentLikelihood, risk.InherentImpact, controls, uc.now()), nil
}

// Recompute re-derives and persists a risk's residual state in its own
// transaction. It backs `validate --repair` and is not exposed over HTTP.
func (uc *ResidualUseCase) Recompute(ctx context.Context, orgID types.OrganizationID, riskID int64) (*model.Risk, error) {
	risk, err := uc.repo.Risk().Recompute(ctx, orgID, riskID, uc.Derive)
	if err != nil {
		return nil, riskError(err, "failed to recompute residual", orgID, riskID)
	}
	return risk, nil
}

// GetDerivedState returns the stored residual state of a risk
func (uc *ResidualUseCase) GetDerivedState(ctx context.Context, orgID types.OrganizationID, riskID int64) (*model.DerivedState, error) {
	if _, _, err := uc.orgs.viewer(ctx, orgID); err != nil {
		return nil, err
	}

	risk, err := uc.repo.Risk().Get(ctx, orgID, riskID)
	if err != nil {
		return nil, riskError(err, "failed to get risk", orgID, riskID)
	}
	derived := risk.Derived
	return &derived, nil
}

// riskError maps repository failures for a risk onto use case errors
func riskError(err error, msg string, orgID types.OrganizationID, riskID int64) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrRiskNotFound, msg, goerr.V(OrgIDKey, orgID), goerr.V(RiskIDKey, riskID))
	}
	return goerr.Wrap(err, msg, goerr.V(OrgIDKey, orgID), goerr.V(RiskIDKey, riskID))
}
