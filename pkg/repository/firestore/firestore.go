package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Firestore struct {
	client   *firestore.Client
	sequence *sequenceRepository
	risk     *riskRepository
	control  *controlRepository
	period   *periodRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.sequence.collections.prefix = prefix
		f.risk.collections.prefix = prefix
		f.control.collections.prefix = prefix
		f.period.collections.prefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:   client,
		sequence: &sequenceRepository{client: client},
		risk:     &riskRepository{client: client},
		control:  &controlRepository{client: client},
		period:   &periodRepository{client: client},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Sequence() interfaces.SequenceRepository {
	return f.sequence
}

func (f *Firestore) Risk() interfaces.RiskRepository {
	return f.risk
}

func (f *Firestore) Control() interfaces.ControlRepository {
	return f.control
}

func (f *Firestore) Period() interfaces.PeriodRepository {
	return f.period
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collections resolves collection names under an optional prefix
type collections struct {
	prefix string
}

func (c collections) name(base string) string {
	return CollectionName(c.prefix, base)
}

// CollectionName returns the stored name of a base collection under prefix
func CollectionName(prefix, base string) string {
	if prefix != "" {
		return prefix + "_" + base
	}
	return base
}

func (c collections) counters() string      { return c.name("counters") }
func (c collections) sequences() string     { return c.name("sequences") }
func (c collections) risks() string         { return c.name("risks") }
func (c collections) controls() string      { return c.name("controls") }
func (c collections) codes() string         { return c.name("codes") }
func (c collections) activePeriods() string { return c.name("active_periods") }
func (c collections) commits() string       { return c.name("period_commits") }
func (c collections) histories() string     { return c.name("risk_histories") }

func idDoc(id int64) string {
	return fmt.Sprintf("%d", id)
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "_")
}

// peekNextID reads an internal ID counter inside tx and returns the value to
// assign. The caller stores it back with setCounter once all reads are done.
func peekNextID(tx *firestore.Transaction, ref *firestore.DocumentRef) (int64, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 1, nil
		}
		return 0, goerr.Wrap(err, "failed to get counter")
	}

	currentValue, err := doc.DataAt("value")
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get counter value")
	}
	val, ok := currentValue.(int64)
	if !ok {
		return 0, goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
	}
	return val + 1, nil
}

func setCounter(tx *firestore.Transaction, ref *firestore.DocumentRef, value int64) error {
	return tx.Set(ref, map[string]interface{}{"value": value})
}

func exists(tx *firestore.Transaction, ref *firestore.DocumentRef) (bool, error) {
	_, err := tx.Get(ref)
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to get document", goerr.V("path", ref.Path))
}

// translate maps transaction failures caused by lock waits onto ErrContention
// and keeps sentinel errors raised inside the transaction function intact
func translate(err error, msg string, values ...goerr.Option) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		interfaces.ErrNotFound, interfaces.ErrConflict, interfaces.ErrContention,
		interfaces.ErrAlreadyCommitted, model.ErrStalePeriod,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerr.Wrap(interfaces.ErrContention, msg, append(values, goerr.V("cause", err.Error()))...)
	}
	switch status.Code(err) {
	case codes.Aborted, codes.DeadlineExceeded, codes.ResourceExhausted:
		return goerr.Wrap(interfaces.ErrContention, msg, append(values, goerr.V("cause", err.Error()))...)
	case codes.AlreadyExists:
		return goerr.Wrap(interfaces.ErrConflict, msg, values...)
	}
	return goerr.Wrap(err, msg, values...)
}
