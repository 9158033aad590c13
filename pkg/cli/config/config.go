package config

import (
	"context"
	"errors"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	domainConfig "github.com/secmon-lab/riskledger/pkg/domain/model/config"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the TOML application configuration
type AppConfig struct {
	Organizations []Organization `toml:"organization"`
}

// Organization is one [[organization]] table
type Organization struct {
	ID                string     `toml:"id"`
	Name              string     `toml:"name"`
	Cadence           string     `toml:"cadence"`
	RiskCounterPrefix string     `toml:"risk_counter_prefix"`
	Categories        []Category `toml:"category"`
}

// Category represents a risk category configuration
type Category struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Validate checks if the Category is valid
func (c *Category) Validate() error {
	id := types.CategoryID(c.ID)
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid category ID")
	}
	if c.Name == "" {
		return goerr.Wrap(ErrMissingName, "category name is required", goerr.V(CategoryIDKey, c.ID))
	}
	return nil
}

// Validate checks the organization and its categories
func (o *Organization) Validate() error {
	id := types.OrganizationID(o.ID)
	if err := id.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid organization ID",
			goerr.V(OrganizationIDKey, o.ID), goerr.V("reason", err.Error()))
	}
	if o.Name == "" {
		return goerr.Wrap(ErrMissingName, "organization name is required", goerr.V(OrganizationIDKey, o.ID))
	}
	if o.Cadence != "" {
		if _, err := types.ParseCadence(o.Cadence); err != nil {
			return goerr.Wrap(ErrInvalidCadence, "unknown cadence",
				goerr.V(OrganizationIDKey, o.ID), goerr.V("cadence", o.Cadence))
		}
	}
	if o.RiskCounterPrefix != "" {
		if err := types.CounterName(o.RiskCounterPrefix).Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid risk counter prefix",
				goerr.V(OrganizationIDKey, o.ID), goerr.V("reason", err.Error()))
		}
	}

	categoryIDs := make(map[string]bool)
	for _, cat := range o.Categories {
		if err := cat.Validate(); err != nil {
			return goerr.Wrap(err, "invalid category", goerr.V(OrganizationIDKey, o.ID))
		}
		if categoryIDs[cat.ID] {
			return goerr.Wrap(ErrDuplicateCategory, "duplicate category ID",
				goerr.V(OrganizationIDKey, o.ID), goerr.V(CategoryIDKey, cat.ID))
		}
		categoryIDs[cat.ID] = true
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if len(a.Organizations) == 0 {
		return goerr.Wrap(ErrInvalidConfig, "at least one organization is required")
	}

	orgIDs := make(map[string]bool)
	for _, org := range a.Organizations {
		if err := org.Validate(); err != nil {
			return err
		}
		if orgIDs[org.ID] {
			return goerr.Wrap(ErrDuplicateOrganization, "duplicate organization ID", goerr.V(OrganizationIDKey, org.ID))
		}
		orgIDs[org.ID] = true
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("reason", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// ToRegistry converts AppConfig to the domain organization registry
func (a *AppConfig) ToRegistry() *model.OrganizationRegistry {
	registry := model.NewOrganizationRegistry()
	for _, org := range a.Organizations {
		categories := make([]domainConfig.Category, len(org.Categories))
		for i, cat := range org.Categories {
			categories[i] = domainConfig.Category{
				ID:          cat.ID,
				Name:        cat.Name,
				Description: cat.Description,
			}
		}

		registry.Register(&model.OrganizationEntry{
			Organization: model.Organization{
				ID:                types.OrganizationID(org.ID),
				Name:              org.Name,
				Cadence:           types.Cadence(org.Cadence),
				RiskCounterPrefix: types.CounterName(org.RiskCounterPrefix),
			},
			RiskConfig: &domainConfig.RiskConfig{Categories: categories},
		})
	}
	return registry
}

// App holds CLI flags for the application configuration file
type App struct {
	path       string
	defaultOrg string
}

// Flags returns CLI flags for application configuration
func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file declaring organizations",
			Sources:     cli.EnvVars("RISKLEDGER_CONFIG"),
			Destination: &x.path,
		},
		&cli.StringFlag{
			Name:        "default-org",
			Usage:       "Organization registered when no configuration file is given",
			Value:       "default",
			Sources:     cli.EnvVars("RISKLEDGER_DEFAULT_ORG"),
			Destination: &x.defaultOrg,
		},
	}
}

// Configure loads the configuration file into a registry. Without a file a
// single quarterly organization named by --default-org is registered.
func (x *App) Configure(ctx context.Context) (*AppConfig, *model.OrganizationRegistry, error) {
	if x.path == "" {
		cfg := &AppConfig{
			Organizations: []Organization{{ID: x.defaultOrg, Name: x.defaultOrg}},
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, goerr.Wrap(err, "invalid default organization")
		}
		logging.From(ctx).Warn("No configuration file, using default organization", "org_id", x.defaultOrg)
		return cfg, cfg.ToRegistry(), nil
	}

	cfg, err := LoadAppConfiguration(x.path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.ToRegistry(), nil
}
