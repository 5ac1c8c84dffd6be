package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/router"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/tenancy"
)

// TenantHandler clinic-scoped read endpoints
type TenantHandler struct {
	Catalog *router.Catalog
	Logger  *zap.Logger
}

func tenantJSON(t *domain.Tenant) map[string]any {
	return map[string]any{
		"clinic_id":       t.ID,
		"subdomain":       t.Subdomain,
		"name":            t.DisplayName,
		"email":           t.ContactEmail,
		"phone":           t.Phone,
		"address":         t.Address,
		"photo_url":       t.PhotoURL,
		"storage_backend": t.StorageBackendName,
		"status":          t.Status,
	}
}

// GetTenant the clinic resolved for this request and its isolation decision.
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok {
		writeError(w, h.Logger, domain.ErrTenantNotResolved)
		return
	}
	out := tenantJSON(tc.Tenant)
	out["isolated"] = tc.Decision.Isolated
	out["backend"] = tc.Router.Route("").Name()
	if tc.Router.Degraded() {
		writeJSON(w, http.StatusOK, Warn("degraded service", out))
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// GetRoute where operations on ?table= go for this clinic.
func (h *TenantHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok {
		writeError(w, h.Logger, domain.ErrTenantNotResolved)
		return
	}
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	if table == "" {
		writeJSON(w, http.StatusBadRequest, Fail("table is required"))
		return
	}
	catalog := h.Catalog
	if catalog == nil {
		catalog = router.DefaultCatalog()
	}
	backend := tc.Router.Route(table)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"table":    table,
		"category": catalog.Category(table).String(),
		"backend":  backend.Name(),
		"kind":     string(backend.Kind()),
	}))
}
