package usecase

import (
	"errors"

	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrRiskNotFound         = errors.New("risk not found")
	ErrControlNotFound      = errors.New("control not found")
	ErrHistoryNotFound      = errors.New("history not found")
	ErrCommitNotFound       = errors.New("commit not found")
	ErrOrganizationNotFound = model.ErrOrganizationNotFound

	// Retryable: the counter lock or a transaction lost a race
	ErrContention = interfaces.ErrContention

	// Uniqueness errors; retrying the same request fails again
	ErrDuplicateCode          = errors.New("duplicate code")
	ErrConflict               = interfaces.ErrConflict
	ErrPeriodAlreadyCommitted = interfaces.ErrAlreadyCommitted

	// Inconsistent state, rejected before anything is written
	ErrDerivedFieldWrite = errors.New("residual fields are derived and cannot be written")
	ErrPeriodReopen      = errors.New("period cannot be reopened or moved backward")

	// Recomputation failed; the triggering write is rolled back
	ErrRecomputation = errors.New("residual recomputation failed")

	ErrValidation      = errors.New("validation failed")
	ErrAccessDenied    = errors.New("access denied")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Context keys for error values
const (
	OrgIDKey     = "org_id"
	RiskIDKey    = "risk_id"
	ControlIDKey = "control_id"
	PeriodKey    = "period"
)
