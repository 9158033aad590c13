package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var checkDB bool
	var repair bool

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-db",
		Usage:       "Also check stored residuals and commit row counts against the repository",
		Destination: &checkDB,
	})
	flags = append(flags, &cli.BoolFlag{
		Name:        "repair",
		Usage:       "Recompute residuals that differ from their controls (implies --check-db)",
		Destination: &repair,
	})
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate configuration files and optionally check DB consistency",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			// Step 1: Load and validate configuration files
			cfg, registry, err := appCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"organization_count", len(cfg.Organizations),
			)
			for _, entry := range registry.List() {
				categories := 0
				if entry.RiskConfig != nil {
					categories = len(entry.RiskConfig.Categories)
				}
				logger.Info("Organization validated",
					"id", entry.Organization.ID,
					"name", entry.Organization.Name,
					"cadence", entry.Organization.Cadence,
					"category_count", categories,
				)
			}

			// Step 2: DB consistency check on request
			if !checkDB && !repair {
				logger.Info("DB consistency check not requested")
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo, usecase.WithOrganizationRegistry(registry))
			validationResult, err := uc.ValidateDB(ctx)
			if err != nil {
				return goerr.Wrap(err, "DB consistency check failed")
			}

			if repair && validationResult.HasIssues() {
				repaired, err := uc.RepairResiduals(ctx, validationResult)
				if err != nil {
					return goerr.Wrap(err, "failed to repair residuals",
						goerr.V("repaired_count", len(repaired)))
				}
				for _, risk := range repaired {
					logger.Info("Residual recomputed",
						"organization_id", risk.OrganizationID,
						"risk_id", risk.ID,
						"residual_score", risk.Derived.ResidualScore,
					)
				}

				validationResult, err = uc.ValidateDB(ctx)
				if err != nil {
					return goerr.Wrap(err, "DB consistency check failed after repair")
				}
			}

			if validationResult.HasIssues() {
				for _, issue := range validationResult.Issues {
					logger.Warn("DB consistency issue found",
						"kind", issue.Kind,
						"organization_id", issue.OrganizationID,
						"risk_id", issue.RiskID,
						"period_id", issue.PeriodID,
						"message", issue.Message,
						"expected", issue.Expected,
						"actual", issue.Actual,
					)
				}

				return goerr.New("DB consistency check found issues",
					goerr.V("issue_count", len(validationResult.Issues)))
			}

			logger.Info("DB consistency check passed")
			return nil
		},
	}
}
