package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// MemoryTenantsRepository supports the directory when DB is disabled.
type MemoryTenantsRepository struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant // clinic_id -> Tenant
}

func NewMemoryTenantsRepository() *MemoryTenantsRepository {
	return &MemoryTenantsRepository{tenants: map[string]domain.Tenant{}}
}

var _ TenantsRepository = (*MemoryTenantsRepository)(nil)

func (r *MemoryTenantsRepository) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}
	return &t, nil
}

func (r *MemoryTenantsRepository) GetTenantBySubdomain(_ context.Context, subdomain string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subdomain = strings.ToLower(subdomain)
	for _, t := range r.tenants {
		if t.Subdomain == subdomain {
			t := t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
}

func (r *MemoryTenantsRepository) ListTenants(_ context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Tenant, 0, len(r.tenants))
	search := strings.ToLower(filter.Search)
	for _, t := range r.tenants {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.DisplayName), search) {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].DisplayName < all[j].DisplayName
	})

	page, size = normalizePage(page, size)
	total := len(all)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]*domain.Tenant, 0, end-start)
	for i := start; i < end; i++ {
		t := all[i]
		out = append(out, &t)
	}
	return out, total, nil
}

func (r *MemoryTenantsRepository) CreateTenant(_ context.Context, tenant *domain.Tenant) (string, error) {
	if tenant == nil || tenant.DisplayName == "" || tenant.Subdomain == "" {
		return "", fmt.Errorf("name and subdomain are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t := *tenant
	t.Subdomain = strings.ToLower(t.Subdomain)
	for _, existing := range r.tenants {
		if existing.Subdomain == t.Subdomain {
			return "", fmt.Errorf("%w: %q", ErrSubdomainTaken, t.Subdomain)
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TenantStatusActive
	}
	r.tenants[t.ID] = t
	return t.ID, nil
}

func (r *MemoryTenantsRepository) UpdateTenant(_ context.Context, tenantID string, tenant *domain.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}
	if *tenant == (domain.Tenant{}) {
		return ErrNoFieldsToUpdate
	}
	if tenant.Subdomain != "" {
		sub := strings.ToLower(tenant.Subdomain)
		for id, existing := range r.tenants {
			if id != tenantID && existing.Subdomain == sub {
				return fmt.Errorf("%w: %q", ErrSubdomainTaken, sub)
			}
		}
		t.Subdomain = sub
	}
	keep := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	keep(&t.DisplayName, tenant.DisplayName)
	keep(&t.ContactEmail, tenant.ContactEmail)
	keep(&t.Phone, tenant.Phone)
	keep(&t.Address, tenant.Address)
	keep(&t.PhotoURL, tenant.PhotoURL)
	keep(&t.StorageBackendName, tenant.StorageBackendName)
	r.tenants[tenantID] = t
	return nil
}

func (r *MemoryTenantsRepository) SetTenantStatus(_ context.Context, tenantID string, status string) error {
	switch status {
	case domain.TenantStatusActive, domain.TenantStatusSuspended, domain.TenantStatusDeleted:
	default:
		return fmt.Errorf("invalid tenant status %q", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}
	t.Status = status
	r.tenants[tenantID] = t
	return nil
}
