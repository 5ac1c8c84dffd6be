package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/directory"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/registry"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/resolver"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/router"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
)

type failingRegistry struct{}

func (failingRegistry) Lookup(context.Context, string) (domain.Connection, bool, error) {
	return domain.Connection{}, false, errors.New("connection refused")
}

type fixture struct {
	kv       *store.MemoryKV
	repo     *repository.MemoryTenantsRepository
	static   *registry.Static
	isoMock  sqlmock.Sqlmock
	opts     Options
	tenantID string
}

func newMockDB(t *testing.T, monitorPings bool) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func setupPipeline(t *testing.T) *fixture {
	repo := repository.NewMemoryTenantsRepository()
	id, err := repo.CreateTenant(context.Background(), &domain.Tenant{
		Subdomain:          "clinica1",
		DisplayName:        "Clinica Um",
		StorageBackendName: "clinica1-db",
	})
	require.NoError(t, err)

	centralDB, _ := newMockDB(t, false)
	sharedDB, _ := newMockDB(t, false)
	isoDB, isoMock := newMockDB(t, true)
	open := func(context.Context, domain.Connection) (*sql.DB, error) { return isoDB, nil }

	static := registry.NewStatic(nil)
	kv := store.NewMemoryKV()
	f := &fixture{kv: kv, repo: repo, static: static, isoMock: isoMock, tenantID: id}
	f.opts = Options{
		Directory: directory.NewService(repo, directory.Config{}, zap.NewNop()),
		Resolver:  resolver.New(static, zap.NewNop()),
		KV:        kv,
		Central:   router.NewBackend("central", router.KindCentral, centralDB),
		Shared:    router.NewBackend("shared", router.KindShared, sharedDB),
		Pool:      router.NewPool(open, zap.NewNop()),
		Logger:    zap.NewNop(),
	}
	return f
}

func TestInitialize_SharedClinic(t *testing.T) {
	f := setupPipeline(t)
	tc, err := NewPipeline(f.opts).Initialize(context.Background(), "clinica1", "sess-1")
	require.NoError(t, err)

	assert.Equal(t, f.tenantID, tc.Tenant.ID)
	assert.False(t, tc.Decision.Isolated)
	assert.Equal(t, router.KindShared, tc.Router.Route("pacientes").Kind())
	assert.Equal(t, router.KindCentral, tc.Router.Route("clinicas_central").Kind())

	id, err := tc.Identity.RequireTenantID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.tenantID, id)
}

func TestInitialize_IsolatedClinic(t *testing.T) {
	f := setupPipeline(t)
	f.static.Register("clinica1", domain.Connection{Endpoint: "host=db1", Credential: "pw", BackendName: "clinica1-db"})
	f.isoMock.ExpectPing()

	tc, err := NewPipeline(f.opts).Initialize(context.Background(), "Clinica1", "sess-1")
	require.NoError(t, err)

	assert.True(t, tc.Decision.Isolated)
	assert.Equal(t, router.KindIsolated, tc.Router.Route("pacientes").Kind())
	assert.Equal(t, "clinica1-db", tc.Router.Route("exames").Name())
	assert.Equal(t, router.KindCentral, tc.Router.Route("assinaturas").Kind())
	assert.NoError(t, f.isoMock.ExpectationsWereMet())
}

func TestInitialize_UnknownSubdomainLeavesIdentityEmpty(t *testing.T) {
	f := setupPipeline(t)
	p := NewPipeline(f.opts)

	_, err := p.Initialize(context.Background(), "nope", "sess-1")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	_, ok, err := p.Identity("sess-1").TenantID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInitialize_RequiresSubdomainAndSession(t *testing.T) {
	p := NewPipeline(setupPipeline(t).opts)
	_, err := p.Initialize(context.Background(), "", "sess-1")
	assert.ErrorIs(t, err, domain.ErrTenantNotResolved)
	_, err = p.Initialize(context.Background(), "clinica1", "")
	assert.ErrorIs(t, err, domain.ErrTenantNotResolved)
}

func TestInitialize_RegistryUnavailable(t *testing.T) {
	f := setupPipeline(t)
	f.opts.Resolver = resolver.New(failingRegistry{}, zap.NewNop())

	_, err := NewPipeline(f.opts).Initialize(context.Background(), "clinica1", "sess-1")
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)

	f.opts.AllowSharedFallback = true
	tc, err := NewPipeline(f.opts).Initialize(context.Background(), "clinica1", "sess-1")
	require.NoError(t, err)
	assert.False(t, tc.Decision.Isolated)
	assert.Equal(t, router.KindShared, tc.Router.Route("pacientes").Kind())
}

func TestInitialize_IsolatedBackendDown(t *testing.T) {
	f := setupPipeline(t)
	f.static.Register("clinica1", domain.Connection{Endpoint: "host=db1", Credential: "pw"})
	f.isoMock.ExpectPing().WillReturnError(errors.New("dial tcp: refused"))

	_, err := NewPipeline(f.opts).Initialize(context.Background(), "clinica1", "sess-1")
	var unavailable *domain.IsolatedBackendUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "clinica1", unavailable.Subdomain)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	tc := &TenantContext{Tenant: &domain.Tenant{ID: "A"}}
	got, ok := FromContext(WithTenantContext(context.Background(), tc))
	require.True(t, ok)
	assert.Same(t, tc, got)
}

func TestSubdomainFromHost(t *testing.T) {
	tests := []struct {
		host, base, want string
	}{
		{"clinica1.example.com", "", "clinica1"},
		{"Clinica1.Example.com:8080", "", "clinica1"},
		{"clinica1.example.com", "example.com", "clinica1"},
		{"example.com", "example.com", ""},
		{"a.b.example.com", "example.com", ""},
		{"clinica1.other.com", "example.com", ""},
		{"localhost:8080", "", ""},
		{"127.0.0.1:8080", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host+"|"+tt.base, func(t *testing.T) {
			assert.Equal(t, tt.want, SubdomainFromHost(tt.host, tt.base))
		})
	}
}
