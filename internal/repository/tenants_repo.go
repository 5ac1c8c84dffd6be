package repository

import (
	"context"
	"errors"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

var (
	// ErrSubdomainTaken another clinic already uses the subdomain.
	ErrSubdomainTaken = errors.New("subdomain already in use")
	// ErrNoFieldsToUpdate an update carried only empty fields.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

// TenantsRepository central clinic directory (clinicas_central).
// Lookups that match nothing return an error wrapping sql.ErrNoRows.
type TenantsRepository interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)

	// GetTenantBySubdomain subdomain has a unique index
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)

	ListTenants(ctx context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error)

	// CreateTenant returns the new clinic_id. A blank ID is generated.
	CreateTenant(ctx context.Context, tenant *domain.Tenant) (string, error)

	// UpdateTenant writes only the non-empty fields of tenant.
	UpdateTenant(ctx context.Context, tenantID string, tenant *domain.Tenant) error

	// SetTenantStatus active/suspended/deleted
	SetTenantStatus(ctx context.Context, tenantID string, status string) error
}

// TenantFilters list filters
type TenantFilters struct {
	Status string // active/suspended/deleted
	Search string // name, case-insensitive substring
}

// BackendsRepository isolated backend registrations (tenant_backends).
type BackendsRepository interface {
	GetBackend(ctx context.Context, subdomain string) (*domain.Connection, error)
	ListBackends(ctx context.Context) (map[string]domain.Connection, error)
	UpsertBackend(ctx context.Context, subdomain string, conn domain.Connection) error
	DeleteBackend(ctx context.Context, subdomain string) error
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	return page, size
}
