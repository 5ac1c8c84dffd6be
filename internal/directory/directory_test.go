package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/identity"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
)

// flakyRepo fails GetTenant until failures is exhausted, optionally blocking first.
type flakyRepo struct {
	*repository.MemoryTenantsRepository
	failures atomic.Int32
	calls    atomic.Int32
	block    chan struct{}
	waitCtx  bool
}

func (r *flakyRepo) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	r.calls.Add(1)
	if r.block != nil {
		<-r.block
	}
	if r.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.failures.Load() > 0 {
		r.failures.Add(-1)
		return nil, errors.New("connection refused")
	}
	return r.MemoryTenantsRepository.GetTenant(ctx, id)
}

func setupDirectory(t *testing.T, cfg Config) (*Service, *flakyRepo, *identity.Store, string) {
	mem := repository.NewMemoryTenantsRepository()
	id, err := mem.CreateTenant(context.Background(), &domain.Tenant{
		DisplayName:        "Clinica Um",
		Subdomain:          "clinica-1",
		ContactEmail:       "contato@clinica1.com",
		StorageBackendName: "clinica1-db",
	})
	require.NoError(t, err)

	repo := &flakyRepo{MemoryTenantsRepository: mem}
	svc := NewService(repo, cfg, zap.NewNop())
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc, repo, identity.New(store.NewMemoryKV(), "sess-1", 0), id
}

func TestFetchTenant_WritesConsistentIdentity(t *testing.T) {
	svc, _, ids, id := setupDirectory(t, Config{})
	ctx := context.Background()

	// stale subdomain from earlier in the session
	require.NoError(t, ids.SetProfile(ctx, identity.Profile{TenantID: id, Subdomain: "old-subdomain"}))

	tenant, err := svc.FetchTenant(ctx, id, ids)
	require.NoError(t, err)
	assert.Equal(t, "Clinica Um", tenant.DisplayName)

	p, ok, err := ids.Profile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, identity.Profile{
		TenantID:           id,
		Subdomain:          "clinica-1",
		DisplayName:        "Clinica Um",
		StorageBackendName: "clinica1-db",
	}, p)

	// idempotent refresh
	_, err = svc.FetchTenant(ctx, id, ids)
	require.NoError(t, err)
	p2, _, err := ids.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, p2)
}

func TestFetchTenant_NotFoundLeavesIdentityUntouched(t *testing.T) {
	svc, _, ids, _ := setupDirectory(t, Config{})
	ctx := context.Background()

	before := identity.Profile{TenantID: "prev", Subdomain: "prev-sub", DisplayName: "Prev"}
	require.NoError(t, ids.SetProfile(ctx, before))

	_, err := svc.FetchTenant(ctx, "does-not-exist", ids)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTenantNotFound))
	assert.False(t, errors.Is(err, domain.ErrDirectoryUnavailable))

	after, ok, err := ids.Profile(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestFetchTenant_NotFoundOnEmptyIdentity(t *testing.T) {
	svc, _, ids, _ := setupDirectory(t, Config{})
	ctx := context.Background()

	_, err := svc.FetchTenant(ctx, "does-not-exist", ids)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	_, ok, err := ids.TenantID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchTenant_InactiveIsNotFound(t *testing.T) {
	svc, repo, ids, id := setupDirectory(t, Config{})
	require.NoError(t, repo.SetTenantStatus(context.Background(), id, domain.TenantStatusSuspended))

	_, err := svc.FetchTenant(context.Background(), id, ids)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestFetchTenant_RetriesTransportFailures(t *testing.T) {
	svc, repo, ids, id := setupDirectory(t, Config{Retries: 2})
	repo.failures.Store(2)

	tenant, err := svc.FetchTenant(context.Background(), id, ids)
	require.NoError(t, err)
	assert.Equal(t, id, tenant.ID)
	assert.Equal(t, int32(3), repo.calls.Load())
}

func TestFetchTenant_UnavailableAfterRetries(t *testing.T) {
	svc, repo, ids, id := setupDirectory(t, Config{Retries: 1})
	repo.failures.Store(10)

	_, err := svc.FetchTenant(context.Background(), id, ids)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDirectoryUnavailable))
	assert.False(t, errors.Is(err, domain.ErrTenantNotFound))
	assert.Equal(t, int32(2), repo.calls.Load())

	_, ok, err := ids.TenantID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchTenant_TimeoutIsUnavailable(t *testing.T) {
	svc, repo, ids, id := setupDirectory(t, Config{Timeout: 10 * time.Millisecond})
	repo.waitCtx = true

	_, err := svc.FetchTenant(context.Background(), id, ids)
	assert.ErrorIs(t, err, domain.ErrDirectoryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchTenant_CoalescesConcurrentCalls(t *testing.T) {
	svc, repo, _, id := setupDirectory(t, Config{})
	repo.block = make(chan struct{})
	kv := store.NewMemoryKV()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*domain.Tenant, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.FetchTenant(context.Background(), id, identity.New(kv, "shared", 0))
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(repo.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, id, results[i].ID)
	}
	assert.Equal(t, int32(1), repo.calls.Load())

	p, ok, err := identity.New(kv, "shared", 0).Profile(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "clinica-1", p.Subdomain)
}

func TestResolveSubdomain(t *testing.T) {
	svc, _, ids, id := setupDirectory(t, Config{})
	ctx := context.Background()

	tenant, err := svc.ResolveSubdomain(ctx, " Clinica-1 ", ids)
	require.NoError(t, err)
	assert.Equal(t, id, tenant.ID)

	got, err := ids.RequireTenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.ResolveSubdomain(ctx, "nova-clinica-sem-registro", nil)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	_, err = svc.ResolveSubdomain(ctx, "", nil)
	assert.ErrorIs(t, err, domain.ErrTenantNotResolved)
}

func TestAdminOperations(t *testing.T) {
	svc, _, _, id := setupDirectory(t, Config{})
	ctx := context.Background()

	created, err := svc.CreateTenant(ctx, &domain.Tenant{DisplayName: "Clinica Dois", Subdomain: "Clinica-2"})
	require.NoError(t, err)
	assert.Equal(t, "clinica-2", created.Subdomain)
	assert.Equal(t, domain.TenantStatusActive, created.Status)

	_, err = svc.CreateTenant(ctx, &domain.Tenant{DisplayName: "Bad", Subdomain: "bad_sub.domain"})
	assert.ErrorIs(t, err, ErrInvalidTenant)
	_, err = svc.CreateTenant(ctx, &domain.Tenant{Subdomain: "sem-nome"})
	assert.ErrorIs(t, err, ErrInvalidTenant)
	assert.ErrorIs(t, svc.SetTenantStatus(ctx, id, "archived"), ErrInvalidTenant)

	require.NoError(t, svc.UpdateTenant(ctx, id, &domain.Tenant{DisplayName: "Clinica Um (Matriz)"}))
	err = svc.UpdateTenant(ctx, "does-not-exist", &domain.Tenant{DisplayName: "x"})
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	require.NoError(t, svc.SetTenantStatus(ctx, created.ID, domain.TenantStatusSuspended))
	items, total, err := svc.ListTenants(ctx, repository.TenantFilters{Status: domain.TenantStatusActive}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Clinica Um (Matriz)", items[0].DisplayName)
}

func TestUpdateTenant_PartialAndConflicts(t *testing.T) {
	svc, _, _, id := setupDirectory(t, Config{})
	ctx := context.Background()

	require.NoError(t, svc.UpdateTenant(ctx, id, &domain.Tenant{DisplayName: "Renamed"}))
	got, err := svc.FetchTenant(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.DisplayName)
	assert.Equal(t, "contato@clinica1.com", got.ContactEmail)
	assert.Equal(t, "clinica1-db", got.StorageBackendName)

	other, err := svc.CreateTenant(ctx, &domain.Tenant{DisplayName: "Clinica Dois", Subdomain: "clinica-2"})
	require.NoError(t, err)

	err = svc.UpdateTenant(ctx, other.ID, &domain.Tenant{Subdomain: "clinica-1"})
	assert.ErrorIs(t, err, ErrInvalidTenant)
	assert.ErrorIs(t, err, repository.ErrSubdomainTaken)

	_, err = svc.CreateTenant(ctx, &domain.Tenant{DisplayName: "Dup", Subdomain: "Clinica-2"})
	assert.ErrorIs(t, err, ErrInvalidTenant)

	assert.ErrorIs(t, svc.UpdateTenant(ctx, id, &domain.Tenant{}), ErrInvalidTenant)
}

func TestValidSubdomain(t *testing.T) {
	for _, ok := range []string{"clinica-1", "a", "nova-clinica-sem-registro"} {
		assert.True(t, ValidSubdomain(ok), ok)
	}
	for _, bad := range []string{"", "-x", "x-", "Clinica", "a.b", "a_b"} {
		assert.False(t, ValidSubdomain(bad), bad)
	}
}
