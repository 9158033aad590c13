package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for request authentication
type Auth struct {
	jwksURL    string
	audience   string
	issuer     string
	noAuthUser string
	noAuthRole string
}

// Flags returns CLI flags for authentication configuration
func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwks-url",
			Usage:       "JWK Set URL used to verify bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("RISKLEDGER_JWKS_URL"),
			Destination: &x.jwksURL,
		},
		&cli.StringFlag{
			Name:        "jwt-audience",
			Usage:       "Expected aud claim of bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("RISKLEDGER_JWT_AUDIENCE"),
			Destination: &x.audience,
		},
		&cli.StringFlag{
			Name:        "jwt-issuer",
			Usage:       "Expected iss claim of bearer tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("RISKLEDGER_JWT_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip token verification and act as the given user ID (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("RISKLEDGER_NO_AUTH"),
			Destination: &x.noAuthUser,
		},
		&cli.StringFlag{
			Name:        "no-auth-role",
			Usage:       "Default role in no-auth mode [ADMIN|EDITOR|VIEWER]",
			Category:    "Authentication",
			Value:       string(types.RoleViewer),
			Sources:     cli.EnvVars("RISKLEDGER_NO_AUTH_ROLE"),
			Destination: &x.noAuthRole,
		},
	}
}

// LogValue implements slog.LogValuer
func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("jwks_url", x.jwksURL),
		slog.String("audience", x.audience),
		slog.String("issuer", x.issuer),
		slog.Bool("no_auth", x.noAuthUser != ""),
	)
}

// IsNoAuthMode returns true when token verification is skipped
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUser != ""
}

// Configure builds the authentication use case. Exactly one of --jwks-url
// and --no-auth must be set.
func (x *Auth) Configure(ctx context.Context) (usecase.AuthUseCaseInterface, error) {
	switch {
	case x.noAuthUser != "" && x.jwksURL != "":
		return nil, goerr.New("--no-auth and --jwks-url are mutually exclusive")

	case x.noAuthUser != "":
		role, err := types.ParseRole(x.noAuthRole)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid no-auth role")
		}
		logging.From(ctx).Warn("Running in no-auth mode (development only)",
			"user_id", x.noAuthUser, "role", role)
		return usecase.NewNoAuthnUseCase(x.noAuthUser, role), nil

	case x.jwksURL != "":
		var opts []usecase.AuthOption
		if x.audience != "" {
			opts = append(opts, usecase.WithAudience(x.audience))
		}
		if x.issuer != "" {
			opts = append(opts, usecase.WithIssuer(x.issuer))
		}
		authUC, err := usecase.NewAuthUseCase(ctx, x.jwksURL, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure token authentication")
		}
		logging.From(ctx).Info("Token authentication enabled", "jwks_url", x.jwksURL)
		return authUC, nil

	default:
		return nil, goerr.New("authentication is not configured, set --jwks-url or --no-auth")
	}
}
