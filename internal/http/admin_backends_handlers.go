package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/registry"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BackendsHandler isolated backend registrations: spreadsheet export and
// import, removal, cache invalidation.
type BackendsHandler struct {
	Static      *registry.Static              // optional
	Repo        repository.BackendsRepository // optional; imports go here when set
	Invalidator registry.Invalidator          // optional
	Logger      *zap.Logger
}

func (h *BackendsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/admin/api/v1/backends/export":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r)
	case "/admin/api/v1/backends/import":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.importXLSX(w, r)
	case "/admin/api/v1/backends/invalidate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.invalidate(w, r)
	default:
		sub := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/admin/api/v1/backends/"))
		if sub == "" || strings.Contains(sub, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.remove(w, r, sub)
	}
}

// remove drops the clinic's isolated registration; its next session
// resolves to the shared backend.
func (h *BackendsHandler) remove(w http.ResponseWriter, r *http.Request, sub string) {
	if h.Repo == nil && h.Static == nil {
		writeJSON(w, http.StatusOK, Fail("no writable backend registry configured"))
		return
	}
	if h.Repo != nil {
		if err := h.Repo.DeleteBackend(r.Context(), sub); err != nil {
			h.Logger.Error("Failed to delete backend", zap.String("subdomain", sub), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to delete backend"))
			return
		}
	}
	if h.Static != nil {
		h.Static.Remove(sub)
	}
	h.dropCached(r, sub)
	h.Logger.Info("Backend registration removed", zap.String("subdomain", sub))
	writeJSON(w, http.StatusOK, Ok(map[string]any{"subdomain": sub}))
}

// entries merges the database and the static table; static entries win,
// matching lookup order.
func (h *BackendsHandler) entries(r *http.Request) (map[string]domain.Connection, error) {
	out := map[string]domain.Connection{}
	if h.Repo != nil {
		fromDB, err := h.Repo.ListBackends(r.Context())
		if err != nil {
			return nil, err
		}
		for sub, c := range fromDB {
			out[sub] = c
		}
	}
	if h.Static != nil {
		for sub, c := range h.Static.Entries() {
			out[sub] = c
		}
	}
	return out, nil
}

func (h *BackendsHandler) export(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries(r)
	if err != nil {
		h.Logger.Error("Failed to list backends", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list backends"))
		return
	}
	withCredentials := r.URL.Query().Get("credentials") == "true"
	data, err := registry.ExportXLSX(entries, withCredentials)
	if err != nil {
		h.Logger.Error("Failed to export backends", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export backends"))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="backends.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *BackendsHandler) importXLSX(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = io.LimitReader(r.Body, 10<<20)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("file is required"))
			return
		}
		defer file.Close()
		src = file
	}
	body, err := io.ReadAll(src)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("file is required"))
		return
	}

	parsed, skipped, err := registry.LoadStaticXLSX(bytes.NewReader(body))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	imported := 0
	for sub, conn := range parsed.Entries() {
		switch {
		case h.Repo != nil:
			if err := h.Repo.UpsertBackend(r.Context(), sub, conn); err != nil {
				h.Logger.Error("Failed to import backend", zap.String("subdomain", sub), zap.Error(err))
				skipped = append(skipped, sub)
				continue
			}
		case h.Static != nil:
			h.Static.Register(sub, conn)
		default:
			writeJSON(w, http.StatusOK, Fail("no writable backend registry configured"))
			return
		}
		h.dropCached(r, sub)
		imported++
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"imported": imported, "skipped": skipped}))
}

func (h *BackendsHandler) invalidate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Subdomain string `json:"subdomain"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	sub := strings.ToLower(strings.TrimSpace(payload.Subdomain))
	if sub == "" {
		writeJSON(w, http.StatusBadRequest, Fail("subdomain is required"))
		return
	}
	if h.Invalidator != nil {
		if err := h.Invalidator.Invalidate(r.Context(), sub); err != nil {
			h.Logger.Error("Failed to invalidate backend", zap.String("subdomain", sub), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to invalidate"))
			return
		}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"subdomain": sub}))
}

func (h *BackendsHandler) dropCached(r *http.Request, sub string) {
	if h.Invalidator == nil {
		return
	}
	if err := h.Invalidator.Invalidate(r.Context(), sub); err != nil {
		h.Logger.Warn("Failed to invalidate backend cache", zap.String("subdomain", sub), zap.Error(err))
	}
}
