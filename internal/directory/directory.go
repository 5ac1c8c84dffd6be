// Package directory resolves clinics against the central directory and
// keeps the session's identity store in step with what it finds.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/identity"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
)

// Config lookup timing. Zero values fall back to the defaults below.
type Config struct {
	Timeout time.Duration // per attempt
	Retries int           // extra attempts after a transport failure
	Backoff time.Duration // first retry delay, doubled each attempt
}

const (
	defaultTimeout = 3 * time.Second
	defaultBackoff = 100 * time.Millisecond
)

// Service Tenant Directory Lookup
type Service struct {
	repo   repository.TenantsRepository
	cfg    Config
	logger *zap.Logger
	group  singleflight.Group
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewService(repo repository.TenantsRepository, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Service{repo: repo, cfg: cfg, logger: logger, sleep: sleepCtx}
}

// FetchTenant loads the clinic with id and, on success, records its
// identifying tuple in ids (when non-nil). On any error ids is untouched.
func (s *Service) FetchTenant(ctx context.Context, id string, ids *identity.Store) (*domain.Tenant, error) {
	if id == "" {
		return nil, domain.ErrTenantNotResolved
	}
	t, err := s.lookup(ctx, "id:"+id, id, func(ctx context.Context) (*domain.Tenant, error) {
		return s.repo.GetTenant(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, t, ids); err != nil {
		return nil, err
	}
	return t, nil
}

// ResolveSubdomain maps an incoming subdomain to its clinic, recording the
// result in ids the same way FetchTenant does.
func (s *Service) ResolveSubdomain(ctx context.Context, subdomain string, ids *identity.Store) (*domain.Tenant, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, domain.ErrTenantNotResolved
	}
	t, err := s.lookup(ctx, "sub:"+subdomain, subdomain, func(ctx context.Context) (*domain.Tenant, error) {
		return s.repo.GetTenantBySubdomain(ctx, subdomain)
	})
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, t, ids); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) record(ctx context.Context, t *domain.Tenant, ids *identity.Store) error {
	if ids == nil {
		return nil
	}
	if err := ids.SetProfile(ctx, identity.ProfileFromTenant(t)); err != nil {
		return fmt.Errorf("failed to record tenant identity: %w", err)
	}
	return nil
}

// lookup coalesces concurrent reads of the same key and applies the
// timeout/retry policy. Callers whose ctx ends stop waiting; the shared
// read keeps going for the others.
func (s *Service) lookup(ctx context.Context, flightKey, key string, fetch func(context.Context) (*domain.Tenant, error)) (*domain.Tenant, error) {
	ch := s.group.DoChan(flightKey, func() (any, error) {
		return s.fetchWithRetry(context.WithoutCancel(ctx), key, fetch)
	})
	select {
	case <-ctx.Done():
		return nil, &domain.DirectoryUnavailableError{Key: key, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		t := *res.Val.(*domain.Tenant)
		return &t, nil
	}
}

func (s *Service) fetchWithRetry(ctx context.Context, key string, fetch func(context.Context) (*domain.Tenant, error)) (*domain.Tenant, error) {
	var lastErr error
	delay := s.cfg.Backoff
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				break
			}
			delay *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		t, err := fetch(attemptCtx)
		cancel()

		if err == nil {
			if !t.Active() {
				s.logger.Info("Clinic is not active",
					zap.String("key", key),
					zap.String("status", t.Status),
				)
				return nil, &domain.TenantNotFoundError{Key: key}
			}
			return t, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.TenantNotFoundError{Key: key}
		}

		lastErr = err
		s.logger.Warn("Directory lookup failed",
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, &domain.DirectoryUnavailableError{Key: key, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
