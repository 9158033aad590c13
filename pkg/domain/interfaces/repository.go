package interfaces

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// Repository defines the interface for data persistence. Every backend must
// provide transactional semantics for the compound operations below.
type Repository interface {
	Sequence() SequenceRepository
	Risk() RiskRepository
	Control() ControlRepository
	Period() PeriodRepository

	Close() error
}

// Sentinel errors shared by all repository backends
var (
	ErrNotFound = goerr.New("not found")
	// ErrConflict is a uniqueness violation; retrying with the same input fails again
	ErrConflict = goerr.New("conflict")
	// ErrContention means a lock could not be taken before the context ended; retryable
	ErrContention = goerr.New("contention")
	// ErrAlreadyCommitted is returned when the active period already has a commit
	ErrAlreadyCommitted = goerr.New("period already committed")
)

// DeriveFunc computes a risk's derived state from its stored inputs and the
// full set of controls linked to it after the triggering write. Repositories
// call it inside the transaction of that write and persist its result.
type DeriveFunc func(risk *model.Risk, controls []*model.Control) (model.DerivedState, error)

// PlanFunc builds the snapshot to write for the active period from the
// organization's risks as they are stored. It is called inside the commit
// transaction after the idempotency check.
type PlanFunc func(active model.Period, risks []*model.Risk) (*model.PeriodSnapshot, error)
