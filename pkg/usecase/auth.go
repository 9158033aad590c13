package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Credential is what a request presents to identify its actor
type Credential struct {
	BearerToken string

	// Only trusted in no-auth mode
	ActorID string
	Role    string
	OrgID   types.OrganizationID
}

type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, cred Credential) (*auth.Actor, error)
	IsNoAuthn() bool
}

// AuthUseCase verifies bearer JWTs against a JWKS endpoint. Tokens carry the
// actor in the "sub", "org" and "role" claims.
type AuthUseCase struct {
	keySet   jwk.Set
	audience string
	issuer   string
}

type AuthOption func(*AuthUseCase)

func WithAudience(audience string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.audience = audience
	}
}

func WithIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

// WithKeySet uses a fixed key set instead of fetching one; used by tests
func WithKeySet(keySet jwk.Set) AuthOption {
	return func(uc *AuthUseCase) {
		uc.keySet = keySet
	}
}

// NewAuthUseCase registers jwksURL in a refreshing key cache and fetches it
// once so a wrong URL fails at startup
func NewAuthUseCase(ctx context.Context, jwksURL string, options ...AuthOption) (*AuthUseCase, error) {
	uc := &AuthUseCase{}
	for _, opt := range options {
		opt(uc)
	}
	if uc.keySet != nil {
		return uc, nil
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, goerr.Wrap(err, "failed to register JWKS URL", goerr.V("jwks_url", jwksURL))
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch JWKS", goerr.V("jwks_url", jwksURL))
	}
	uc.keySet = jwk.NewCachedSet(cache, jwksURL)

	return uc, nil
}

func (uc *AuthUseCase) Authenticate(ctx context.Context, cred Credential) (*auth.Actor, error) {
	if cred.BearerToken == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "bearer token is required")
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(uc.keySet),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(10 * time.Second),
	}
	if uc.audience != "" {
		opts = append(opts, jwt.WithAudience(uc.audience))
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}

	token, err := jwt.Parse([]byte(cred.BearerToken), opts...)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "failed to parse or verify JWT", goerr.V("reason", err.Error()))
	}

	org, err := stringClaim(token, "org")
	if err != nil {
		return nil, err
	}
	role, err := stringClaim(token, "role")
	if err != nil {
		return nil, err
	}

	actor := &auth.Actor{
		UserID:         token.Subject(),
		OrganizationID: types.OrganizationID(org),
		Role:           types.Role(strings.ToUpper(role)),
	}
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "invalid actor claims", goerr.V("reason", err.Error()))
	}
	return actor, nil
}

func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

func stringClaim(token jwt.Token, name string) (string, error) {
	v, ok := token.Get(name)
	if !ok {
		return "", goerr.Wrap(ErrUnauthenticated, "claim not found in token", goerr.V("claim", name))
	}
	s, ok := v.(string)
	if !ok {
		return "", goerr.Wrap(ErrUnauthenticated, "claim is not a string", goerr.V("claim", name))
	}
	return s, nil
}
