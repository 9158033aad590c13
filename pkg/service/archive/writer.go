package archive

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// Writer archives periods as JSON lines to an io.Writer such as stdout
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

var _ interfaces.SnapshotArchive = &Writer{}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (x *Writer) Put(ctx context.Context, commit *model.PeriodCommit, entries []*model.RiskHistory) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return encode(x.w, commit, entries)
}

func encode(w io.Writer, commit *model.PeriodCommit, entries []*model.RiskHistory) error {
	if commit == nil {
		return goerr.New("commit is required")
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(Record{Kind: KindCommit, Commit: newCommitRecord(commit)}); err != nil {
		return goerr.Wrap(err, "failed to encode commit record", goerr.V("commit_id", commit.ID))
	}
	for _, entry := range entries {
		if err := enc.Encode(Record{Kind: KindHistory, History: newHistoryRecord(entry)}); err != nil {
			return goerr.Wrap(err, "failed to encode history record",
				goerr.V("commit_id", commit.ID), goerr.V("risk_id", entry.RiskID))
		}
	}
	return nil
}
