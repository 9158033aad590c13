package http

import (
	"errors"
	"net/http"

	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/errutil"
)

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrRiskNotFound),
		errors.Is(err, usecase.ErrControlNotFound),
		errors.Is(err, usecase.ErrHistoryNotFound),
		errors.Is(err, usecase.ErrCommitNotFound),
		errors.Is(err, usecase.ErrOrganizationNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDuplicateCode),
		errors.Is(err, usecase.ErrPeriodAlreadyCommitted),
		errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrDerivedFieldWrite),
		errors.Is(err, usecase.ErrPeriodReopen):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrContention):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	errutil.HandleHTTP(r.Context(), w, err, status)
}
