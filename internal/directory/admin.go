package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
)

// ErrInvalidTenant rejected admin input.
var ErrInvalidTenant = errors.New("invalid clinic")

// subdomains are single DNS labels
var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSubdomain reports whether s can be used as a clinic subdomain.
func ValidSubdomain(s string) bool {
	return subdomainPattern.MatchString(s)
}

func (s *Service) ListTenants(ctx context.Context, filter repository.TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	return s.repo.ListTenants(ctx, filter, page, size)
}

func (s *Service) CreateTenant(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	t.Subdomain = strings.ToLower(strings.TrimSpace(t.Subdomain))
	if strings.TrimSpace(t.DisplayName) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTenant)
	}
	if !ValidSubdomain(t.Subdomain) {
		return nil, fmt.Errorf("%w: subdomain %q", ErrInvalidTenant, t.Subdomain)
	}
	id, err := s.repo.CreateTenant(ctx, t)
	if err != nil {
		return nil, invalid(err)
	}
	s.logger.Info("Clinic created",
		zap.String("clinic_id", id),
		zap.String("subdomain", t.Subdomain),
	)
	created := *t
	created.ID = id
	if created.Status == "" {
		created.Status = domain.TenantStatusActive
	}
	return &created, nil
}

func (s *Service) UpdateTenant(ctx context.Context, id string, t *domain.Tenant) error {
	if t.Subdomain != "" {
		t.Subdomain = strings.ToLower(strings.TrimSpace(t.Subdomain))
		if !ValidSubdomain(t.Subdomain) {
			return fmt.Errorf("%w: subdomain %q", ErrInvalidTenant, t.Subdomain)
		}
	}
	return invalid(notFound(id, s.repo.UpdateTenant(ctx, id, t)))
}

func (s *Service) SetTenantStatus(ctx context.Context, id, status string) error {
	switch status {
	case domain.TenantStatusActive, domain.TenantStatusSuspended, domain.TenantStatusDeleted:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidTenant, status)
	}
	if err := notFound(id, s.repo.SetTenantStatus(ctx, id, status)); err != nil {
		return err
	}
	s.logger.Info("Clinic status changed",
		zap.String("clinic_id", id),
		zap.String("status", status),
	)
	return nil
}

// invalid marks repository rejections caused by the input as ErrInvalidTenant.
func invalid(err error) error {
	if errors.Is(err, repository.ErrSubdomainTaken) || errors.Is(err, repository.ErrNoFieldsToUpdate) {
		return fmt.Errorf("%w: %w", ErrInvalidTenant, err)
	}
	return err
}

func notFound(key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.TenantNotFoundError{Key: key}
	}
	return err
}
