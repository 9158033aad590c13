package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdCommit() *cli.Command {
	var orgID string
	var actorID string
	var note string
	var period string
	var appCfg config.App
	var repoCfg config.Repository
	var archiveCfg config.Archive

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "org",
			Usage:       "Organization whose active period is committed",
			Required:    true,
			Sources:     cli.EnvVars("RISKLEDGER_ORG"),
			Destination: &orgID,
		},
		&cli.StringFlag{
			Name:        "actor",
			Usage:       "User ID recorded as the committer",
			Value:       "riskledger-cli",
			Sources:     cli.EnvVars("RISKLEDGER_ACTOR"),
			Destination: &actorID,
		},
		&cli.StringFlag{
			Name:        "note",
			Usage:       "Note stored on the commit record",
			Destination: &note,
		},
		&cli.StringFlag{
			Name:        "period",
			Usage:       "Commit only if the active period is this one (e.g. 2026-Q3)",
			Destination: &period,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:  "commit",
		Usage: "Snapshot every risk of an organization into its active period and advance it",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			_, registry, err := appCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to load organization configuration")
			}

			// An unusable archive must fail before the period is committed.
			gcs, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if gcs != nil {
				defer safe.Close(ctx, gcs)
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			input := usecase.CommitPeriodInput{Note: note}
			if period != "" {
				p, err := model.ParsePeriod(model.PeriodID(period))
				if err != nil {
					return goerr.Wrap(err, "invalid period", goerr.V("period", period))
				}
				input.Period = &p
			}

			org := types.OrganizationID(orgID)
			ctx = auth.ContextWithActor(ctx, auth.SystemActor(org, actorID))
			uc := usecase.New(repo, usecase.WithOrganizationRegistry(registry))

			result, err := uc.Period.CommitPeriod(ctx, org, input)
			if err != nil {
				return err
			}
			printCommit(os.Stdout, result)

			// The archive is written synchronously so the process does not
			// exit before the object is stored.
			if gcs != nil {
				if _, err := uc.Period.ExportPeriod(ctx, org, result.Commit.Period.ID(), gcs); err != nil {
					return err
				}
				logging.From(ctx).Info("Committed period archived", "object", gcs.ObjectName(result.Commit))
			}
			return nil
		},
	}
}

func printCommit(w io.Writer, result *usecase.CommitResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	_, _ = green.Fprint(w, "committed ")
	_, _ = bold.Fprintf(w, "%s", result.Commit.Period.ID())
	_, _ = fmt.Fprintf(w, " for %s\n", result.Commit.OrganizationID)
	_, _ = fmt.Fprintf(w, "  commit:    %s\n", result.Commit.ID)
	_, _ = fmt.Fprintf(w, "  risks:     %d\n", result.Commit.RowCount)
	_, _ = fmt.Fprintf(w, "  by:        %s\n", result.Commit.CommittedBy)
	_, _ = fmt.Fprintf(w, "  at:        %s\n", result.Commit.CommittedAt.Format("2006-01-02T15:04:05Z07:00"))
	_, _ = fmt.Fprint(w, "  active:    ")
	_, _ = color.New(color.FgCyan).Fprintf(w, "%s\n", result.Active.ID())
}
