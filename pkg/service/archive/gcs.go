package archive

import (
	"context"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"google.golang.org/api/option"
)

// GCS archives each committed period as one JSON lines object:
// gs://{bucket}/{prefix}/{org}/{period}.jsonl
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.SnapshotArchive = &GCS{}

type GCSOption func(*GCS)

func WithPrefix(prefix string) GCSOption {
	return func(x *GCS) {
		x.prefix = prefix
	}
}

func NewGCS(ctx context.Context, bucket string, opts []GCSOption, clientOpts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	x := &GCS{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// ObjectName returns the object path of a committed period
func (x *GCS) ObjectName(commit *model.PeriodCommit) string {
	return path.Join(x.prefix, commit.OrganizationID.String(), commit.Period.ID().String()+".jsonl")
}

func (x *GCS) Put(ctx context.Context, commit *model.PeriodCommit, entries []*model.RiskHistory) error {
	name := x.ObjectName(commit)
	w := x.client.Bucket(x.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"

	if err := encode(w, commit, entries); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close archive object", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}

	logging.From(ctx).Info("period archived",
		"bucket", x.bucket, "object", name, "rows", len(entries))
	return nil
}

func (x *GCS) Close() error {
	return x.client.Close()
}
