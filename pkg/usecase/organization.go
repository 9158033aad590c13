package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type organizations struct {
	registry *model.OrganizationRegistry
}

// access resolves the organization and checks that the actor in ctx belongs
// to it with at least the required role
func (o *organizations) access(ctx context.Context, orgID types.OrganizationID, allowed func(types.Role) bool) (*model.OrganizationEntry, *auth.Actor, error) {
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(ErrAccessDenied, "no actor in context", goerr.V(OrgIDKey, orgID))
	}
	if actor.OrganizationID != orgID {
		return nil, nil, goerr.Wrap(ErrAccessDenied, "actor belongs to another organization",
			goerr.V(OrgIDKey, orgID), goerr.V("actor_org_id", actor.OrganizationID))
	}
	if !allowed(actor.Role) {
		return nil, nil, goerr.Wrap(ErrAccessDenied, "role not allowed",
			goerr.V(OrgIDKey, orgID), goerr.V("role", actor.Role), goerr.V("user_id", actor.UserID))
	}

	entry, err := o.registry.Get(orgID)
	if err != nil {
		return nil, nil, err
	}
	return entry, actor, nil
}

func (o *organizations) viewer(ctx context.Context, orgID types.OrganizationID) (*model.OrganizationEntry, *auth.Actor, error) {
	return o.access(ctx, orgID, types.Role.IsValid)
}

func (o *organizations) editor(ctx context.Context, orgID types.OrganizationID) (*model.OrganizationEntry, *auth.Actor, error) {
	return o.access(ctx, orgID, types.Role.CanEdit)
}

func (o *organizations) admin(ctx context.Context, orgID types.OrganizationID) (*model.OrganizationEntry, *auth.Actor, error) {
	return o.access(ctx, orgID, types.Role.CanAdminister)
}

// validationError wraps a validator or domain validation failure in ErrValidation
func validationError(err error, msg string, values ...goerr.Option) error {
	if errors.Is(err, ErrValidation) {
		return err
	}
	return goerr.Wrap(ErrValidation, msg, append(values, goerr.V("reason", err.Error()))...)
}
