package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/directory"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
)

// TenantsHandler clinic directory management (platform-level)
type TenantsHandler struct {
	Directory *directory.Service
	Logger    *zap.Logger
}

type tenantPayload struct {
	Subdomain      string `json:"subdomain"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	PhotoURL       string `json:"photo_url"`
	StorageBackend string `json:"storage_backend"`
	Status         string `json:"status"`
}

func (p tenantPayload) tenant() *domain.Tenant {
	return &domain.Tenant{
		Subdomain:          p.Subdomain,
		DisplayName:        p.Name,
		ContactEmail:       p.Email,
		Phone:              p.Phone,
		Address:            p.Address,
		PhotoURL:           p.PhotoURL,
		StorageBackendName: p.StorageBackend,
		Status:             p.Status,
	}
}

func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Directory == nil {
		writeJSON(w, http.StatusOK, Fail("tenant directory is not configured"))
		return
	}

	switch {
	case r.URL.Path == "/admin/api/v1/tenants":
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			filter := repository.TenantFilters{Status: q.Get("status"), Search: q.Get("search")}
			page := parseInt(q.Get("page"), 1)
			size := parseInt(q.Get("size"), 50)
			items, total, err := h.Directory.ListTenants(r.Context(), filter, page, size)
			if err != nil {
				h.Logger.Error("Failed to list clinics", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, Fail("failed to list tenants"))
				return
			}
			out := make([]any, 0, len(items))
			for _, t := range items {
				out = append(out, tenantJSON(t))
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": total}))
			return
		case http.MethodPost:
			var payload tenantPayload
			if err := readBodyJSON(r, 1<<20, &payload); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			t, err := h.Directory.CreateTenant(r.Context(), payload.tenant())
			if err != nil {
				writeError(w, h.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(tenantJSON(t)))
			return
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/tenants/"):
		rest := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/tenants/")
		parts := strings.Split(rest, "/")
		if parts[0] == "" || len(parts) > 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		id := parts[0]
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// PUT /admin/api/v1/tenants/:id/status
		if len(parts) == 2 {
			if parts[1] != "status" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var payload struct {
				Status string `json:"status"`
			}
			if err := readBodyJSON(r, 1<<20, &payload); err != nil {
				writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
				return
			}
			if err := h.Directory.SetTenantStatus(r.Context(), id, payload.Status); err != nil {
				writeError(w, h.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{"clinic_id": id, "status": payload.Status}))
			return
		}

		// PUT /admin/api/v1/tenants/:id
		var payload tenantPayload
		if err := readBodyJSON(r, 1<<20, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		if err := h.Directory.UpdateTenant(r.Context(), id, payload.tenant()); err != nil {
			writeError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"clinic_id": id}))
		return
	}

	w.WriteHeader(http.StatusNotFound)
}
