package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/registry"
)

type failingRegistry struct{}

func (failingRegistry) Lookup(context.Context, string) (domain.Connection, bool, error) {
	return domain.Connection{}, false, errors.New("connection refused")
}

func newStatic() *registry.Static {
	return registry.NewStatic(map[string]domain.Connection{
		"clinica-1":  {Endpoint: "host=db1 dbname=clinica1", Credential: "s3cret", BackendName: "clinica1-db"},
		"incompleta": {Endpoint: "host=db3"},
	})
}

func TestResolve_RegisteredSubdomainIsIsolated(t *testing.T) {
	r := New(newStatic(), zap.NewNop())

	d, err := r.Resolve(context.Background(), "clinica-1")
	require.NoError(t, err)
	assert.True(t, d.Isolated)
	assert.NotEmpty(t, d.Connection.Endpoint)
	assert.NotEmpty(t, d.Connection.Credential)

	d, err = r.Resolve(context.Background(), "  CLINICA-1 ")
	require.NoError(t, err)
	assert.True(t, d.Isolated)
}

func TestResolve_UnknownSubdomainIsSharedWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := New(newStatic(), zap.New(core))

	d, err := r.Resolve(context.Background(), "nova-clinica-sem-registro")
	require.NoError(t, err)
	assert.False(t, d.Isolated)
	assert.Equal(t, domain.Connection{}, d.Connection)
	assert.Equal(t, 1, logs.FilterMessage("No isolated backend registered, using shared backend").Len())
}

func TestResolve_IncompleteEntryIsShared(t *testing.T) {
	r := New(newStatic(), zap.NewNop())

	d, err := r.Resolve(context.Background(), "incompleta")
	require.NoError(t, err)
	assert.False(t, d.Isolated)
}

func TestResolve_NoPermanentNegativeCaching(t *testing.T) {
	static := newStatic()
	r := New(static, zap.NewNop())
	ctx := context.Background()

	d, err := r.Resolve(ctx, "nova-clinica-sem-registro")
	require.NoError(t, err)
	assert.False(t, d.Isolated)

	static.Register("nova-clinica-sem-registro", domain.Connection{Endpoint: "host=db4", Credential: "pw"})

	d, err = r.Resolve(ctx, "nova-clinica-sem-registro")
	require.NoError(t, err)
	assert.True(t, d.Isolated)
	assert.Equal(t, "host=db4", d.Connection.Endpoint)
}

func TestResolve_RegistryFailure(t *testing.T) {
	r := New(failingRegistry{}, zap.NewNop())

	d, err := r.Resolve(context.Background(), "clinica-1")
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)
	assert.False(t, d.Isolated)
}
