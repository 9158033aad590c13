package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// actorMiddleware authenticates the request and stores the actor in its
// context. The organization in the path must be the actor's own.
func actorMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := types.OrganizationID(chi.URLParam(r, "orgID"))

			if authUC == nil {
				writeError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "authentication is not configured"))
				return
			}

			cred := usecase.Credential{
				BearerToken: bearerToken(r),
				OrgID:       orgID,
			}
			if authUC.IsNoAuthn() {
				cred.ActorID = r.Header.Get(headerActorID)
				cred.Role = r.Header.Get(headerActorRole)
			}

			actor, err := authUC.Authenticate(r.Context(), cred)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if actor.OrganizationID != orgID {
				writeError(w, r, goerr.Wrap(usecase.ErrAccessDenied, "actor belongs to another organization",
					goerr.V(usecase.OrgIDKey, orgID), goerr.V("actor_org_id", actor.OrganizationID)))
				return
			}

			ctx := auth.ContextWithActor(r.Context(), actor)
			ctx = logging.With(ctx, logging.From(ctx).With("actor", actor.UserID, "org_id", orgID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
