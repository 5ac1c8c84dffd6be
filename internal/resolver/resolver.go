// Package resolver decides, per subdomain, whether a clinic's data lives
// in an isolated backend or in the shared one.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/registry"
)

// Resolver Per-Tenant Client Resolver. It holds no cache of its own;
// every call consults the registry.
type Resolver struct {
	registry registry.Registry
	logger   *zap.Logger
}

func New(reg registry.Registry, logger *zap.Logger) *Resolver {
	return &Resolver{registry: reg, logger: logger}
}

// Resolve returns the isolation decision for subdomain. A subdomain
// without an isolated backend is not an error: the decision is Shared.
// The error is only set when the registry itself could not be consulted.
func (r *Resolver) Resolve(ctx context.Context, subdomain string) (domain.IsolationDecision, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))

	conn, ok, err := r.registry.Lookup(ctx, subdomain)
	if err != nil {
		r.logger.Error("Backend registry lookup failed",
			zap.String("subdomain", subdomain),
			zap.Error(err),
		)
		return domain.Shared(), fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
	if !ok {
		r.logger.Warn("No isolated backend registered, using shared backend",
			zap.String("subdomain", subdomain),
		)
		return domain.Shared(), nil
	}

	decision, err := domain.Isolated(conn)
	if err != nil {
		r.logger.Warn("Registered backend is incomplete, using shared backend",
			zap.String("subdomain", subdomain),
			zap.Bool("has_endpoint", conn.Endpoint != ""),
			zap.Bool("has_credential", conn.Credential != ""),
		)
		return domain.Shared(), nil
	}

	r.logger.Debug("Isolated backend resolved",
		zap.String("subdomain", subdomain),
		zap.String("backend", conn.BackendName),
	)
	return decision, nil
}
