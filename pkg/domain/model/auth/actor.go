package auth

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ErrNoActor is returned when a request context carries no authenticated actor
var ErrNoActor = goerr.New("no actor in context")

// Actor is the authenticated caller supplied by the identity surface
type Actor struct {
	UserID         string
	OrganizationID types.OrganizationID
	Role           types.Role
}

// SystemActor is used by trusted in-process callers such as the CLI
func SystemActor(orgID types.OrganizationID, userID string) *Actor {
	return &Actor{UserID: userID, OrganizationID: orgID, Role: types.RoleAdmin}
}

type ctxActorKey struct{}

// ContextWithActor returns a child context carrying actor
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx
func ActorFromContext(ctx context.Context) (*Actor, error) {
	actor, ok := ctx.Value(ctxActorKey{}).(*Actor)
	if !ok || actor == nil {
		return nil, ErrNoActor
	}
	return actor, nil
}

// Validate checks the actor's fields
func (a *Actor) Validate() error {
	if a.UserID == "" {
		return goerr.New("actor user ID is required")
	}
	if err := a.OrganizationID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid actor organization")
	}
	if !a.Role.IsValid() {
		return goerr.New("invalid actor role", goerr.V("role", a.Role))
	}
	return nil
}
