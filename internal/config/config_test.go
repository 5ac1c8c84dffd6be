package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "clinicas_central", cfg.Central.Database)
	assert.Equal(t, "clinicas_shared", cfg.Shared.Database)
	assert.Equal(t, cfg.Central.Host, cfg.Shared.Host)
	assert.Equal(t, 3*time.Second, cfg.Directory.Timeout)
	assert.Equal(t, 2, cfg.Directory.Retries)
	assert.Equal(t, 5*time.Minute, cfg.Registry.CacheTTL)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "clinic_sid", cfg.Session.CookieName)
	assert.False(t, cfg.AllowSharedFallback)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("BASE_DOMAIN", "clinicas.example.com")
	t.Setenv("DB_HOST", "central.internal")
	t.Setenv("SHARED_DB_HOST", "shared.internal")
	t.Setenv("SHARED_DB_NAME", "tenants")
	t.Setenv("DIRECTORY_TIMEOUT", "750ms")
	t.Setenv("DIRECTORY_RETRIES", "oops")
	t.Setenv("REGISTRY_CACHE_TTL", "0s")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("ALLOW_SHARED_FALLBACK", "true")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "clinicas.example.com", cfg.HTTP.BaseDomain)
	assert.Equal(t, "central.internal", cfg.Central.Host)
	assert.Equal(t, "shared.internal", cfg.Shared.Host)
	assert.Equal(t, "tenants", cfg.Shared.Database)
	assert.Equal(t, 750*time.Millisecond, cfg.Directory.Timeout)
	assert.Equal(t, 2, cfg.Directory.Retries, "invalid values keep the default")
	assert.Equal(t, time.Duration(0), cfg.Registry.CacheTTL)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.True(t, cfg.AllowSharedFallback)
}
