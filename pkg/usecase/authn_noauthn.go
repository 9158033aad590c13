package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// NoAuthnUseCase trusts the actor headers of a request (for development/testing).
// Missing headers fall back to the configured default actor.
type NoAuthnUseCase struct {
	userID string
	role   types.Role
}

func NewNoAuthnUseCase(userID string, role types.Role) *NoAuthnUseCase {
	return &NoAuthnUseCase{userID: userID, role: role}
}

func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, cred Credential) (*auth.Actor, error) {
	actor := &auth.Actor{
		UserID:         uc.userID,
		OrganizationID: cred.OrgID,
		Role:           uc.role,
	}
	if cred.ActorID != "" {
		actor.UserID = cred.ActorID
	}
	if cred.Role != "" {
		actor.Role = types.Role(strings.ToUpper(cred.Role))
	}

	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "invalid actor headers", goerr.V("reason", err.Error()))
	}
	return actor, nil
}

func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
