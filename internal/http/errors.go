package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/directory"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// statusFor maps domain errors to an HTTP status and a user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrTenantNotResolved):
		return http.StatusBadRequest, "tenant not resolved"
	case errors.Is(err, domain.ErrTenantNotFound):
		return http.StatusNotFound, "clinic not found for this subdomain"
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable, "directory unavailable, try again"
	case errors.Is(err, domain.ErrIsolatedBackendUnavailable):
		return http.StatusServiceUnavailable, "degraded service"
	case errors.Is(err, domain.ErrRegistryUnavailable):
		return http.StatusServiceUnavailable, "backend registry unavailable, try again"
	case errors.Is(err, directory.ErrInvalidTenant):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, Fail(msg))
}
