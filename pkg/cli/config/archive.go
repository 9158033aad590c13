package config

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/service/archive"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Archive holds CLI flags for the committed period archive
type Archive struct {
	bucket string
	prefix string
}

// Flags returns CLI flags for archive configuration
func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket receiving a JSONL copy of every committed period",
			Category:    "Archive",
			Sources:     cli.EnvVars("RISKLEDGER_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix inside the archive bucket",
			Category:    "Archive",
			Sources:     cli.EnvVars("RISKLEDGER_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

// LogValue implements slog.LogValuer
func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,61}[a-z0-9]$`)

// Validate checks the bucket name before any client is created
func (x *Archive) Validate() error {
	if !x.IsEnabled() {
		return nil
	}
	if !bucketNamePattern.MatchString(x.bucket) {
		return goerr.Wrap(ErrInvalidArchiveBucket, "bucket name must be 3-63 lowercase letters, digits, dots, dashes or underscores",
			goerr.V("bucket", x.bucket))
	}
	return nil
}

// IsEnabled returns true when a bucket is configured
func (x *Archive) IsEnabled() bool {
	return x.bucket != ""
}

// Configure returns the Cloud Storage archive, or nil when no bucket is set.
// The caller closes the returned archive.
func (x *Archive) Configure(ctx context.Context) (*archive.GCS, error) {
	if !x.IsEnabled() {
		return nil, nil
	}
	if err := x.Validate(); err != nil {
		return nil, err
	}

	var opts []archive.GCSOption
	if x.prefix != "" {
		opts = append(opts, archive.WithPrefix(x.prefix))
	}
	gcs, err := archive.NewGCS(ctx, x.bucket, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure archive", goerr.V("bucket", x.bucket))
	}
	logging.From(ctx).Info("Committed periods are archived", "archive", x)
	return gcs, nil
}
