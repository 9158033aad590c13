package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/service/archive"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var orgID string
	var period string
	var appCfg config.App
	var repoCfg config.Repository
	var archiveCfg config.Archive

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "org",
			Usage:       "Organization to export",
			Required:    true,
			Sources:     cli.EnvVars("RISKLEDGER_ORG"),
			Destination: &orgID,
		},
		&cli.StringFlag{
			Name:        "period",
			Usage:       "Committed period to export (e.g. 2026-Q3)",
			Required:    true,
			Destination: &period,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:  "export",
		Usage: "Write a committed period as JSONL to stdout or the archive bucket",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			periodID := model.PeriodID(period)
			if _, err := model.ParsePeriod(periodID); err != nil {
				return goerr.Wrap(err, "invalid period", goerr.V("period", period))
			}

			_, registry, err := appCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to load organization configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			var sink interfaces.SnapshotArchive = archive.NewWriter(os.Stdout)
			gcs, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if gcs != nil {
				defer safe.Close(ctx, gcs)
				sink = gcs
			}

			org := types.OrganizationID(orgID)
			ctx = auth.ContextWithActor(ctx, &auth.Actor{
				UserID:         "riskledger-cli",
				OrganizationID: org,
				Role:           types.RoleViewer,
			})
			uc := usecase.New(repo, usecase.WithOrganizationRegistry(registry))

			commit, err := uc.Period.ExportPeriod(ctx, org, periodID, sink)
			if err != nil {
				return err
			}
			logging.From(ctx).Info("Period exported",
				"org_id", org,
				"period", periodID,
				"rows", commit.RowCount,
			)
			return nil
		},
	}
}
