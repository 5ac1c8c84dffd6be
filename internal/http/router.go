package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// Router wraps http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// chain applies mws so the first one runs first.
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// HealthCheck is one dependency reported by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterHealthRoutes answers 503 when any check fails.
func (r *Router) RegisterHealthRoutes(checks ...HealthCheck) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		failed := map[string]string{}
		for _, c := range checks {
			if err := c.Check(req.Context()); err != nil {
				r.logger.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
				failed[c.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, Result[map[string]any]{
				Code:    http.StatusServiceUnavailable,
				Type:    "error",
				Message: "unhealthy",
				Result:  map[string]any{"status": "degraded", "failed": failed},
			})
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterTenantRoutes clinic-scoped API; every request resolves the
// clinic from its Host header first.
func (r *Router) RegisterTenantRoutes(h *TenantHandler, sessions *Sessions, tenants *TenantResolver) {
	scoped := func(f http.HandlerFunc, method string) http.Handler {
		return chain(f, allowMethod(method), sessions.Middleware, tenants.Middleware)
	}
	r.HandleHandler("/api/v1/tenant", scoped(h.GetTenant, http.MethodGet))
	r.HandleHandler("/api/v1/route", scoped(h.GetRoute, http.MethodGet))
}

// RegisterAuthRoutes login/logout/session state
func (r *Router) RegisterAuthRoutes(h *AuthHandler, sessions *Sessions, tenants *TenantResolver) {
	r.HandleHandler("/auth/api/v1/login", chain(http.HandlerFunc(h.Login),
		allowMethod(http.MethodPost), sessions.Middleware, tenants.Middleware))
	r.HandleHandler("/auth/api/v1/session", chain(http.HandlerFunc(h.Session),
		allowMethod(http.MethodGet), sessions.Middleware, tenants.Middleware))
	// logout works without a resolvable clinic
	r.HandleHandler("/auth/api/v1/logout", chain(http.HandlerFunc(h.Logout),
		allowMethod(http.MethodPost), sessions.Middleware))
}

// RegisterAppRoutes protected pages, one subtree per role.
func (r *Router) RegisterAppRoutes(h *AuthHandler, sessions *Sessions, tenants *TenantResolver) {
	for _, role := range domain.AllRoles {
		r.HandleHandler("/app/"+string(role)+"/", chain(http.HandlerFunc(h.App),
			sessions.Middleware, tenants.Middleware, h.RequireSession(role)))
	}
}

// RegisterAdminRoutes platform-level administration (not clinic-scoped)
func (r *Router) RegisterAdminRoutes(t *TenantsHandler, b *BackendsHandler, admin Middleware) {
	r.HandleHandler("/admin/api/v1/tenants", admin(t))
	r.HandleHandler("/admin/api/v1/tenants/", admin(t))
	r.HandleHandler("/admin/api/v1/backends/", admin(b))
}

func allowMethod(method string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
