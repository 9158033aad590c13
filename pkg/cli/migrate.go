package cli

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	fsrepo "github.com/secmon-lab/riskledger/pkg/repository/firestore"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying (firestore only)",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or PostgreSQL tables",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := repoCfg.Validate(); err != nil {
				return err
			}

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dryRun)
			case config.BackendPostgres:
				return migratePostgres(ctx, &repoCfg, dryRun)
			default:
				logging.From(ctx).Info("Nothing to migrate", "backend", repoCfg.Backend())
				return nil
			}
		},
	}
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.From(ctx)

	projectID := repoCfg.ProjectID()
	databaseID := repoCfg.DatabaseID()
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	logger.Info("Migrate configuration",
		"projectID", projectID,
		"databaseID", databaseID,
		"dryRun", dryRun)

	indexConfig := getIndexConfig(repoCfg.CollectionPrefix())

	client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
		fireconf.WithLogger(logger),
		fireconf.WithDryRun(dryRun),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer safe.Close(ctx, client)

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		current, err := client.Import(ctx, collectionNames(indexConfig)...)
		if err != nil {
			return goerr.Wrap(err, "failed to import current indexes")
		}
		diff, err := client.DiffConfigs(current)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		steps := migrationSteps(diff)
		if len(steps) == 0 {
			logger.Info("No changes required")
			return nil
		}
		for _, step := range steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"fields", step.Fields)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// migrationStep is one index change of a dry run
type migrationStep struct {
	Collection string
	Operation  string
	Fields     []string
}

func migrationSteps(diff *fireconf.DiffResult) []migrationStep {
	if diff == nil {
		return nil
	}
	var steps []migrationStep
	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			steps = append(steps, migrationStep{Collection: col.Name, Operation: "create index", Fields: indexFields(idx)})
		}
		for _, idx := range col.IndexesToDelete {
			steps = append(steps, migrationStep{Collection: col.Name, Operation: "delete index", Fields: indexFields(idx)})
		}
		if col.TTLAction != "" && col.TTL != nil {
			steps = append(steps, migrationStep{Collection: col.Name, Operation: "ttl " + strings.ToLower(string(col.TTLAction)), Fields: []string{col.TTL.Field}})
		}
	}
	return steps
}

func indexFields(idx fireconf.Index) []string {
	fields := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		fields = append(fields, f.Path+" "+string(f.Order))
	}
	return fields
}

func collectionNames(cfg *fireconf.Config) []string {
	names := make([]string, 0, len(cfg.Collections))
	for _, col := range cfg.Collections {
		names = append(names, col.Name)
	}
	return names
}

func migratePostgres(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.From(ctx)
	if dryRun {
		logger.Info("Dry run is not supported for postgres, tables are created on apply")
		return nil
	}

	repo, err := repoCfg.Postgres(ctx)
	if err != nil {
		return err
	}
	defer safe.Close(ctx, repo)

	if err := repo.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to migrate postgres schema")
	}
	logger.Info("PostgreSQL schema migrated")
	return nil
}

// getIndexConfig returns the composite indexes backing the Firestore queries
func getIndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: fsrepo.CollectionName(prefix, "controls"),
				Indexes: []fireconf.Index{
					// loadControls: organization_id ==, risk_id ==
					{
						Fields: []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "risk_id", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: fsrepo.CollectionName(prefix, "risks"),
				Indexes: []fireconf.Index{
					// GetByCode: organization_id ==, code ==
					{
						Fields: []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "code", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: fsrepo.CollectionName(prefix, "risk_histories"),
				Indexes: []fireconf.Index{
					// ListHistoryByRisk: organization_id ==, risk_id ==
					{
						Fields: []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "risk_id", Order: fireconf.OrderAscending},
						},
					},
					// ListHistoryByPeriod: organization_id ==, period_id ==
					{
						Fields: []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "period_id", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
