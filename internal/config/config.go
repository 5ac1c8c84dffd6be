package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/config"
)

// Config clinic-tenancy (HTTP API) settings
type Config struct {
	HTTP struct {
		Addr       string
		BaseDomain string // clinics are served from <subdomain>.<BaseDomain>
	}
	DBEnabled bool
	Central   commoncfg.DatabaseConfig // directory + registry + administrative tables
	Shared    commoncfg.DatabaseConfig // tenant-owned data of non-isolated clinics
	Isolated  commoncfg.DatabaseConfig // pool sizing for isolated backends

	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	Log          struct {
		Level  string
		Format string
	}
	Directory DirectoryConfig
	Registry  RegistryConfig
	MQTT      MQTTConfig
	Session   SessionConfig

	AllowSharedFallback bool   // route to shared when an isolated backend is down
	AdminToken          string // bearer token for /admin; empty disables the admin API
}

// DirectoryConfig tenant directory lookup timing
type DirectoryConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// RegistryConfig where isolated backends are registered
type RegistryConfig struct {
	StaticXLSX string // optional workbook loaded at startup, consulted first

	ProvisioningURL     string // provisioning service; empty means use tenant_backends
	ProvisioningToken   string
	ProvisioningTimeout time.Duration

	CacheTTL time.Duration // Redis cache of positive lookups; 0 disables
}

// MQTTConfig provisioning events (cache invalidation)
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
	Topic string
}

// SessionConfig session cookie and key space
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.BaseDomain = getEnv("BASE_DOMAIN", "")

	// false runs on in-memory repositories with no shared or isolated data
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Central = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "clinicas_central",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Central.LoadFromEnv("DB")
	cfg.Shared = cfg.Central
	cfg.Shared.Database = "clinicas_shared"
	cfg.Shared.LoadFromEnv("SHARED_DB")
	cfg.Isolated = commoncfg.DatabaseConfig{MaxConns: 5, MaxIdle: 2}
	cfg.Isolated.LoadFromEnv("ISOLATED_DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Directory.Timeout = parseDuration(getEnv("DIRECTORY_TIMEOUT", "3s"), 3*time.Second)
	cfg.Directory.Retries = parseInt(getEnv("DIRECTORY_RETRIES", "2"), 2)
	cfg.Directory.Backoff = parseDuration(getEnv("DIRECTORY_BACKOFF", "100ms"), 100*time.Millisecond)

	cfg.Registry.StaticXLSX = getEnv("REGISTRY_STATIC_XLSX", "")
	cfg.Registry.ProvisioningURL = getEnv("PROVISIONING_URL", "")
	cfg.Registry.ProvisioningToken = getEnv("PROVISIONING_TOKEN", "")
	cfg.Registry.ProvisioningTimeout = parseDuration(getEnv("PROVISIONING_TIMEOUT", "5s"), 5*time.Second)
	cfg.Registry.CacheTTL = parseDuration(getEnv("REGISTRY_CACHE_TTL", "5m"), 5*time.Minute)

	// provisioning events, disabled by default
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "clinic-tenancy"
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "clinics/backends/provisioned")

	cfg.Session.CookieName = getEnv("SESSION_COOKIE", "clinic_sid")
	cfg.Session.TTL = parseDuration(getEnv("SESSION_TTL", "12h"), 12*time.Hour)
	cfg.Session.Secure = getEnv("SESSION_COOKIE_SECURE", "false") == "true"

	cfg.AllowSharedFallback = getEnv("ALLOW_SHARED_FALLBACK", "false") == "true"
	cfg.AdminToken = getEnv("ADMIN_TOKEN", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
