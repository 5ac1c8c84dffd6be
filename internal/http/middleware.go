package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/tenancy"
)

type sessionIDKey struct{}

// Sessions issues and reads the session cookie that scopes the identity
// and session key space.
type Sessions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func (s *Sessions) cookieName() string {
	if s.CookieName == "" {
		return "clinic_sid"
	}
	return s.CookieName
}

// Middleware attaches the session id, issuing a new cookie when the
// request has none.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(s.cookieName()); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			cookie := &http.Cookie{
				Name:     s.cookieName(),
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if s.TTL > 0 {
				cookie.MaxAge = int(s.TTL.Seconds())
			}
			http.SetCookie(w, cookie)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey{}, sid)))
	})
}

func sessionIDFrom(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey{}).(string)
	return sid
}

// TenantResolver runs session initialization for the clinic named by the
// Host header and attaches the result to the request context.
type TenantResolver struct {
	Pipeline   *tenancy.Pipeline
	BaseDomain string
	Logger     *zap.Logger
}

func (t *TenantResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subdomain := tenancy.SubdomainFromHost(r.Host, t.BaseDomain)
		tc, err := t.Pipeline.Initialize(r.Context(), subdomain, sessionIDFrom(r.Context()))
		if err != nil {
			t.Logger.Debug("Tenant resolution failed",
				zap.String("host", r.Host),
				zap.String("subdomain", subdomain),
				zap.Error(err),
			)
			writeError(w, t.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithTenantContext(r.Context(), tc)))
	})
}

// AdminAuth requires "Authorization: Bearer <token>". An empty token
// disables the admin API.
func AdminAuth(token string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, Result[any]{
					Code: ResultUnauthorized, Type: "error", Message: "unauthorized",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
