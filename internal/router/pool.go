package router

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/config"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/database"
)

// Opener opens a handle for an isolated backend.
type Opener func(ctx context.Context, conn domain.Connection) (*sql.DB, error)

// PostgresOpener opens conn through lib/pq with the pool settings of cfg.
func PostgresOpener(cfg *config.DatabaseConfig) Opener {
	return func(ctx context.Context, conn domain.Connection) (*sql.DB, error) {
		dsn, err := DSN(conn)
		if err != nil {
			return nil, err
		}
		return database.Open(ctx, dsn, cfg)
	}
}

// DSN merges the credential into the endpoint as the password. The
// endpoint may be a postgres:// URL or a key=value connection string.
func DSN(conn domain.Connection) (string, error) {
	if !conn.Valid() {
		return "", fmt.Errorf("endpoint and credential are required")
	}
	ep := strings.TrimSpace(conn.Endpoint)
	if strings.HasPrefix(ep, "postgres://") || strings.HasPrefix(ep, "postgresql://") {
		u, err := url.Parse(ep)
		if err != nil {
			return "", fmt.Errorf("invalid endpoint: %w", err)
		}
		user := ""
		if u.User != nil {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, conn.Credential)
		return u.String(), nil
	}
	cred := strings.ReplaceAll(conn.Credential, `\`, `\\`)
	cred = strings.ReplaceAll(cred, `'`, `\'`)
	return ep + " password='" + cred + "'", nil
}

// Pool opens each isolated backend once and hands the same *Backend to
// every session that resolves to it. Entries are keyed by endpoint; a
// rotated credential replaces the entry and closes the old handle.
type Pool struct {
	mu      sync.Mutex
	open    Opener
	entries map[string]*poolEntry
	logger  *zap.Logger
}

type poolEntry struct {
	credential string
	ready      chan struct{}
	backend    *Backend
	err        error
}

func NewPool(open Opener, logger *zap.Logger) *Pool {
	return &Pool{open: open, entries: map[string]*poolEntry{}, logger: logger}
}

func poolKey(conn domain.Connection) string {
	return strings.TrimSpace(conn.Endpoint)
}

// Get returns the cached backend for conn, opening it on first use.
// Failed opens are not cached.
func (p *Pool) Get(ctx context.Context, conn domain.Connection) (*Backend, error) {
	key := poolKey(conn)

	p.mu.Lock()
	e, ok := p.entries[key]
	var stale *poolEntry
	if ok && e.credential != conn.Credential {
		stale, ok = e, false
	}
	if !ok {
		e = &poolEntry{credential: conn.Credential, ready: make(chan struct{})}
		p.entries[key] = e
	}
	p.mu.Unlock()

	if stale != nil {
		p.logger.Info("Isolated backend credential rotated, closing old handle",
			zap.String("backend", conn.BackendName))
		go p.retire(stale)
	}

	if !ok {
		db, err := p.open(ctx, conn)
		if err != nil {
			e.err = err
			p.mu.Lock()
			if p.entries[key] == e {
				delete(p.entries, key)
			}
			p.mu.Unlock()
		} else {
			name := conn.BackendName
			if name == "" {
				name = "isolated"
			}
			e.backend = NewBackend(name, KindIsolated, db)
			p.logger.Info("Isolated backend opened", zap.String("backend", name))
		}
		close(e.ready)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.ready:
		return e.backend, e.err
	}
}

// retire closes a replaced entry's handle once its open has finished.
func (p *Pool) retire(e *poolEntry) {
	<-e.ready
	if e.backend == nil || e.backend.db == nil {
		return
	}
	if err := e.backend.db.Close(); err != nil {
		p.logger.Warn("Failed to close rotated backend", zap.String("backend", e.backend.Name()), zap.Error(err))
	}
}

// Len number of open backends.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		select {
		case <-e.ready:
			if e.backend != nil {
				n++
			}
		default:
		}
	}
	return n
}

// Close closes every open backend.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for key, e := range p.entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.backend != nil && e.backend.db != nil {
			if err := e.backend.db.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.entries, key)
	}
	return firstErr
}
