// Package router picks the backend every data operation goes to.
package router

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// Params binds a router to one session's isolation decision.
type Params struct {
	Subdomain           string
	Catalog             *Catalog
	Central             *Backend
	Shared              *Backend
	Pool                *Pool
	Decision            domain.IsolationDecision
	AllowSharedFallback bool
	Logger              *zap.Logger
}

// Router Query Router for one session. Immutable once built.
type Router struct {
	catalog  *Catalog
	central  *Backend
	tenant   *Backend
	decision domain.IsolationDecision
	degraded bool
}

// New binds p.Decision. For an isolated decision the backend is opened
// (or reused) and pinged. When it cannot be reached New fails with
// *domain.IsolatedBackendUnavailableError, unless AllowSharedFallback is
// set, in which case the router binds the shared backend and reports
// Degraded.
func New(ctx context.Context, p Params) (*Router, error) {
	if p.Catalog == nil || p.Central == nil || p.Shared == nil {
		return nil, errors.New("router: catalog, central and shared backends are required")
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		catalog:  p.Catalog,
		central:  p.Central,
		tenant:   p.Shared,
		decision: p.Decision,
	}
	if !p.Decision.Isolated {
		return r, nil
	}

	backend, err := bindIsolated(ctx, p)
	if err == nil {
		r.tenant = backend
		return r, nil
	}

	unavailable := &domain.IsolatedBackendUnavailableError{
		Subdomain: p.Subdomain,
		Endpoint:  p.Decision.Connection.Endpoint,
		Err:       err,
	}
	if !p.AllowSharedFallback {
		logger.Error("Isolated backend unavailable",
			zap.String("subdomain", p.Subdomain),
			zap.String("backend", p.Decision.Connection.BackendName),
			zap.Error(err),
		)
		return nil, unavailable
	}

	logger.Error("Isolated backend unavailable, routing tenant data to shared backend",
		zap.String("subdomain", p.Subdomain),
		zap.String("backend", p.Decision.Connection.BackendName),
		zap.Bool("isolation_lost", true),
		zap.Error(err),
	)
	r.decision = domain.Shared()
	r.degraded = true
	return r, nil
}

func bindIsolated(ctx context.Context, p Params) (*Backend, error) {
	if p.Pool == nil {
		return nil, errors.New("no backend pool configured")
	}
	backend, err := p.Pool.Get(ctx, p.Decision.Connection)
	if err != nil {
		return nil, err
	}
	if err := backend.Ping(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

// Route returns the backend for table: administrative tables always go
// to the central backend, everything else follows the bound decision.
func (r *Router) Route(table string) *Backend {
	if r.catalog.Category(table) == domain.Administrative {
		return r.central
	}
	return r.tenant
}

// Decision the decision actually in effect.
func (r *Router) Decision() domain.IsolationDecision { return r.decision }

// Degraded reports a fallback from isolated to shared.
func (r *Router) Degraded() bool { return r.degraded }
