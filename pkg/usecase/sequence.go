package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

type SequenceUseCase struct {
	repo        interfaces.Repository
	orgs        *organizations
	lockTimeout time.Duration
	now         func() time.Time
}

// GeneratedCode is a human readable record code. Sequential is false when
// the counter lock could not be taken in time and a fallback code was issued.
type GeneratedCode struct {
	Value      string
	Sequential bool
}

// NextValue returns the next value of the (orgID, name) counter, waiting at
// most the configured lock timeout. ErrContention on timeout.
func (uc *SequenceUseCase) NextValue(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (int64, error) {
	if err := name.Validate(); err != nil {
		return 0, validationError(err, "invalid counter name", goerr.V("name", name))
	}

	lockCtx, cancel := context.WithTimeout(ctx, uc.lockTimeout)
	defer cancel()

	started := time.Now()
	value, err := uc.repo.Sequence().Next(lockCtx, orgID, name)
	sequenceWaitSeconds.Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, interfaces.ErrContention) {
			sequenceNextTotal.WithLabelValues("contention").Inc()
			return 0, goerr.Wrap(err, "counter lock not acquired in time",
				goerr.V(OrgIDKey, orgID), goerr.V("name", name), goerr.V("timeout", uc.lockTimeout))
		}
		sequenceNextTotal.WithLabelValues("error").Inc()
		return 0, goerr.Wrap(err, "failed to get next counter value", goerr.V(OrgIDKey, orgID), goerr.V("name", name))
	}

	sequenceNextTotal.WithLabelValues("ok").Inc()
	return value, nil
}

// NextCode returns the next sequential code for name, or a non-sequential
// fallback code when the counter stays locked past the timeout
func (uc *SequenceUseCase) NextCode(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*GeneratedCode, error) {
	value, err := uc.NextValue(ctx, orgID, name)
	if err == nil {
		return &GeneratedCode{Value: model.FormatCode(name, value), Sequential: true}, nil
	}

	// only the bounded lock wait falls back; a caller that gave up keeps its error
	if !errors.Is(err, ErrContention) || ctx.Err() != nil {
		return nil, err
	}

	code := model.FallbackCode(name, uc.now())
	sequenceFallbackTotal.Inc()
	logging.From(ctx).Warn("counter lock timed out, issued non-sequential code",
		"org_id", orgID, "name", name, "code", code)
	return &GeneratedCode{Value: code, Sequential: false}, nil
}

// Generate issues the next code of an arbitrary counter for an editor of
// the organization
func (uc *SequenceUseCase) Generate(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*GeneratedCode, error) {
	if _, _, err := uc.orgs.editor(ctx, orgID); err != nil {
		return nil, err
	}
	return uc.NextCode(ctx, orgID, name)
}
