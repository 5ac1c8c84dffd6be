// Package tenancy runs session initialization: subdomain to clinic,
// clinic to isolation decision, decision to a bound query router.
package tenancy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/directory"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/identity"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/resolver"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/router"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
)

// TenantContext everything a request needs to act on behalf of one clinic.
type TenantContext struct {
	Tenant   *domain.Tenant
	Identity *identity.Store
	Decision domain.IsolationDecision
	Router   *router.Router
}

// Options wires a Pipeline.
type Options struct {
	Directory           *directory.Service
	Resolver            *resolver.Resolver
	KV                  store.KV
	IdentityTTL         time.Duration
	Catalog             *router.Catalog
	Central             *router.Backend
	Shared              *router.Backend
	Pool                *router.Pool
	AllowSharedFallback bool
	Logger              *zap.Logger
}

type Pipeline struct {
	opts   Options
	logger *zap.Logger
}

func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = router.DefaultCatalog()
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Identity returns the identity store of sessionID.
func (p *Pipeline) Identity(sessionID string) *identity.Store {
	return identity.New(p.opts.KV, sessionID, p.opts.IdentityTTL)
}

// Initialize resolves subdomain for sessionID. The identity store is only
// written once the directory confirms the clinic; a failure at any later
// step leaves that record in place, so the next request retries from the
// resolver on.
func (p *Pipeline) Initialize(ctx context.Context, subdomain, sessionID string) (*TenantContext, error) {
	if subdomain == "" || sessionID == "" {
		return nil, domain.ErrTenantNotResolved
	}
	ids := p.Identity(sessionID)

	tenant, err := p.opts.Directory.ResolveSubdomain(ctx, subdomain, ids)
	if err != nil {
		return nil, err
	}

	decision, err := p.opts.Resolver.Resolve(ctx, tenant.Subdomain)
	if err != nil {
		if !p.opts.AllowSharedFallback || !errors.Is(err, domain.ErrRegistryUnavailable) {
			return nil, err
		}
		p.logger.Error("Backend registry unavailable, routing tenant data to shared backend",
			zap.String("subdomain", tenant.Subdomain),
			zap.Bool("isolation_lost", true),
			zap.Error(err),
		)
		decision = domain.Shared()
	}

	rt, err := router.New(ctx, router.Params{
		Subdomain:           tenant.Subdomain,
		Catalog:             p.opts.Catalog,
		Central:             p.opts.Central,
		Shared:              p.opts.Shared,
		Pool:                p.opts.Pool,
		Decision:            decision,
		AllowSharedFallback: p.opts.AllowSharedFallback,
		Logger:              p.logger,
	})
	if err != nil {
		return nil, err
	}

	return &TenantContext{
		Tenant:   tenant,
		Identity: ids,
		Decision: rt.Decision(),
		Router:   rt,
	}, nil
}

type ctxKey struct{}

// WithTenantContext attaches tc to ctx.
func WithTenantContext(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the TenantContext attached by WithTenantContext.
func FromContext(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(ctxKey{}).(*TenantContext)
	return tc, ok && tc != nil
}
