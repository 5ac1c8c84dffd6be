// Package session holds the locally recorded logins and the gate that
// decides whether protected pages may render.
//
// The gate trusts what was recorded at login; tokens are not verified
// against any server-side authority.
package session

import (
	"context"

	"go.uber.org/zap"
)

// State of the gate for one role.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Gate Session/Auth Gate
type Gate struct {
	sessions *Store
	logger   *zap.Logger
}

func NewGate(sessions *Store, logger *zap.Logger) *Gate {
	return &Gate{sessions: sessions, logger: logger}
}

// Evaluate decides the state of role against the tenant resolved for this
// request. An empty resolvedTenantID means resolution is still pending.
// A record belonging to another tenant purges every role's record.
func (g *Gate) Evaluate(ctx context.Context, role Role, resolvedTenantID string) (State, error) {
	if resolvedTenantID == "" {
		return Loading, nil
	}

	rec, ok, err := g.sessions.Get(ctx, role)
	if err != nil {
		return Loading, err
	}
	if !ok {
		return Unauthenticated, nil
	}
	if rec.TenantID != resolvedTenantID {
		g.logger.Warn("Session belongs to another clinic, purging",
			zap.String("role", string(role)),
			zap.String("session_tenant_id", rec.TenantID),
			zap.String("resolved_tenant_id", resolvedTenantID),
		)
		if err := g.sessions.PurgeAll(ctx); err != nil {
			return Unauthenticated, err
		}
		return Unauthenticated, nil
	}
	return Authenticated, nil
}
