package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/identity"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/session"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/tenancy"
)

// AuthHandler records per-role logins and gates /app.
//
// Logins are recorded as claimed: no password is checked and the token is
// not signed. This is a routing gate, not authentication.
type AuthHandler struct {
	KV         store.KV
	SessionTTL time.Duration
	LoginPath  string
	Logger     *zap.Logger
}

func (h *AuthHandler) sessions(r *http.Request) *session.Store {
	return session.NewStore(h.KV, sessionIDFrom(r.Context()), h.SessionTTL)
}

func (h *AuthHandler) loginPath() string {
	if h.LoginPath == "" {
		return "/login"
	}
	return h.LoginPath
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok {
		writeError(w, h.Logger, domain.ErrTenantNotResolved)
		return
	}
	var payload struct {
		Role   string `json:"role"`
		UserID string `json:"user_id"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(payload.Role)))
	if !role.Valid() {
		writeJSON(w, http.StatusBadRequest, Fail("invalid role"))
		return
	}
	if strings.TrimSpace(payload.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id is required"))
		return
	}

	rec, err := h.sessions(r).Login(r.Context(), role, tc.Tenant.ID, payload.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	h.Logger.Info("Session recorded",
		zap.String("clinic_id", tc.Tenant.ID),
		zap.String("role", string(role)),
		zap.String("user_id", rec.UserID),
	)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"clinic_id":  rec.TenantID,
		"role":       rec.Role,
		"user_id":    rec.UserID,
		"token":      rec.Token,
		"created_at": rec.CreatedAt,
	}))
}

// Logout purges one role (?role= or body) or, without a role, every
// key of the session, clinic identity included.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Role string `json:"role"`
	}
	_ = readBodyJSON(r, 1<<20, &payload)
	if q := r.URL.Query().Get("role"); q != "" {
		payload.Role = q
	}

	sessions := h.sessions(r)
	if payload.Role != "" {
		role := domain.Role(strings.ToLower(payload.Role))
		if !role.Valid() {
			writeJSON(w, http.StatusBadRequest, Fail("invalid role"))
			return
		}
		if err := sessions.Purge(r.Context(), role); err != nil {
			writeError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"role": role}))
		return
	}

	ids := identity.New(h.KV, sessionIDFrom(r.Context()), h.SessionTTL)
	if err := ids.ClearTenant(r.Context()); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	// sweeps role records and anything else left under the session
	if err := sessions.Destroy(r.Context()); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{}))
}

// Session gate state of ?role= (default staff) for the resolved clinic.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	role := domain.RoleStaff
	if q := r.URL.Query().Get("role"); q != "" {
		role = domain.Role(strings.ToLower(q))
	}
	if !role.Valid() {
		writeJSON(w, http.StatusBadRequest, Fail("invalid role"))
		return
	}
	state, err := h.evaluate(r, role)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"role": role, "state": state.String()}))
}

func (h *AuthHandler) evaluate(r *http.Request, role domain.Role) (session.State, error) {
	resolved := ""
	if tc, ok := tenancy.FromContext(r.Context()); ok {
		resolved = tc.Tenant.ID
	}
	gate := session.NewGate(h.sessions(r), h.Logger)
	return gate.Evaluate(r.Context(), role, resolved)
}

// RequireSession lets the request through only when role is authenticated
// for the resolved clinic; otherwise it redirects to the login page.
func (h *AuthHandler) RequireSession(role domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := h.evaluate(r, role)
			if err != nil {
				writeError(w, h.Logger, err)
				return
			}
			switch state {
			case session.Authenticated:
				next.ServeHTTP(w, r)
			case session.Loading:
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusServiceUnavailable, Warn[any]("loading", nil))
			default:
				http.Redirect(w, r, h.loginPath()+"?role="+string(role), http.StatusSeeOther)
			}
		})
	}
}

// App placeholder for the protected dashboard pages.
func (h *AuthHandler) App(w http.ResponseWriter, r *http.Request) {
	tc, _ := tenancy.FromContext(r.Context())
	out := map[string]any{"path": r.URL.Path}
	if tc != nil {
		out["clinic"] = tenantJSON(tc.Tenant)
	}
	writeJSON(w, http.StatusOK, Ok(out))
}
