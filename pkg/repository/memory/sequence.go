package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"golang.org/x/sync/semaphore"
)

type sequenceKey struct {
	orgID types.OrganizationID
	name  types.CounterName
}

// counter is a row with its own row lock. The lock is a weighted semaphore so
// that waiting on it honours the caller's context deadline.
type counter struct {
	lock      *semaphore.Weighted
	value     int64
	updatedAt time.Time
}

type sequenceRepository struct {
	mu       sync.Mutex
	counters map[sequenceKey]*counter
}

func newSequenceRepository() *sequenceRepository {
	return &sequenceRepository{
		counters: make(map[sequenceKey]*counter),
	}
}

func (r *sequenceRepository) row(orgID types.OrganizationID, name types.CounterName) *counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sequenceKey{orgID: orgID, name: name}
	c, ok := r.counters[key]
	if !ok {
		c = &counter{lock: semaphore.NewWeighted(1)}
		r.counters[key] = c
	}
	return c
}

func (r *sequenceRepository) Next(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (int64, error) {
	c := r.row(orgID, name)
	if err := c.lock.Acquire(ctx, 1); err != nil {
		return 0, goerr.Wrap(interfaces.ErrContention, "failed to lock counter",
			goerr.V("org_id", orgID), goerr.V("name", name), goerr.V("cause", err.Error()))
	}
	defer c.lock.Release(1)

	c.value++
	c.updatedAt = time.Now().UTC()
	return c.value, nil
}

func (r *sequenceRepository) Get(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*model.SequenceCounter, error) {
	r.mu.Lock()
	c, ok := r.counters[sequenceKey{orgID: orgID, name: name}]
	r.mu.Unlock()
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "counter not found", goerr.V("org_id", orgID), goerr.V("name", name))
	}

	if err := c.lock.Acquire(ctx, 1); err != nil {
		return nil, goerr.Wrap(interfaces.ErrContention, "failed to lock counter", goerr.V("name", name))
	}
	defer c.lock.Release(1)

	return &model.SequenceCounter{
		OrganizationID: orgID,
		Name:           name,
		Value:          c.value,
		UpdatedAt:      c.updatedAt,
	}, nil
}
