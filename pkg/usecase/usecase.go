package usecase

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// DefaultSequenceLockTimeout bounds the wait for a counter row lock before
// code generation falls back to a non-sequential code
const DefaultSequenceLockTimeout = 3 * time.Second

var validate = validator.New(validator.WithRequiredStructEnabled())

type UseCases struct {
	repo                interfaces.Repository
	registry            *model.OrganizationRegistry
	archive             interfaces.SnapshotArchive
	sequenceLockTimeout time.Duration
	now                 func() time.Time

	Sequence *SequenceUseCase
	Residual *ResidualUseCase
	Risk     *RiskUseCase
	Control  *ControlUseCase
	Period   *PeriodUseCase
	Auth     AuthUseCaseInterface
}

type Option func(*UseCases)

func WithOrganizationRegistry(registry *model.OrganizationRegistry) Option {
	return func(uc *UseCases) {
		uc.registry = registry
	}
}

// WithSnapshotArchive copies every committed period to archive after the commit
func WithSnapshotArchive(archive interfaces.SnapshotArchive) Option {
	return func(uc *UseCases) {
		uc.archive = archive
	}
}

func WithSequenceLockTimeout(d time.Duration) Option {
	return func(uc *UseCases) {
		if d > 0 {
			uc.sequenceLockTimeout = d
		}
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

// WithClock replaces the time source; used by tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:                repo,
		sequenceLockTimeout: DefaultSequenceLockTimeout,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.registry == nil {
		uc.registry = model.NewOrganizationRegistry()
	}

	orgs := &organizations{registry: uc.registry}
	uc.Sequence = &SequenceUseCase{repo: repo, orgs: orgs, lockTimeout: uc.sequenceLockTimeout, now: uc.now}
	uc.Residual = &ResidualUseCase{repo: repo, orgs: orgs, now: uc.now}
	uc.Risk = &RiskUseCase{repo: repo, orgs: orgs, sequence: uc.Sequence, residual: uc.Residual}
	uc.Control = &ControlUseCase{repo: repo, orgs: orgs, sequence: uc.Sequence, residual: uc.Residual}
	uc.Period = &PeriodUseCase{repo: repo, orgs: orgs, archive: uc.archive, now: uc.now}

	return uc
}

// Registry returns the organization registry the use cases were built with
func (uc *UseCases) Registry() *model.OrganizationRegistry {
	return uc.registry
}
