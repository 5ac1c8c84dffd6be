package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/config"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/directory"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
	httpapi "github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/http"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/database"
	applog "github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/logger"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/mqtt"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/platform/redis"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/registry"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/repository"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/resolver"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/router"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/service"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/store"
	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/tenancy"
)

func main() {
	cfg := config.Load()

	logger, err := applog.NewLogger(cfg.Log.Level, cfg.Log.Format, "clinic-tenancy")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Session key space (identity + per-role sessions)
	var kv store.KV
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		if c, err := redis.Connect(context.Background(), &cfg.Redis, 3*time.Second); err == nil {
			redisClient = c
			kv = store.NewRedisKV(c)
		} else {
			logger.Warn("Redis enabled but connection failed, sessions are kept in memory", zap.Error(err))
		}
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}

	// Central directory + shared backend
	var centralDB, sharedDB *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Central); err == nil {
			centralDB = d
			logger.Info("Central directory DB enabled")
		} else {
			logger.Warn("Central DB enabled but connection failed, falling back to in-memory directory", zap.Error(err))
		}
		if d, err := database.NewPostgresDB(&cfg.Shared); err == nil {
			sharedDB = d
		} else {
			logger.Warn("Shared DB connection failed", zap.Error(err))
		}
	}

	var tenantsRepo repository.TenantsRepository
	var backendsRepo repository.BackendsRepository
	if centralDB != nil {
		tenantsRepo = repository.NewPostgresTenantsRepository(centralDB)
		backendsRepo = repository.NewPostgresBackendsRepository(centralDB)
	} else {
		mem := repository.NewMemoryTenantsRepository()
		// dev seed so a plain `go run` answers on demo.<base domain>
		_, _ = mem.CreateTenant(context.Background(), &domain.Tenant{
			Subdomain:   "demo",
			DisplayName: "Clinica Demo",
		})
		tenantsRepo = mem
	}

	// Isolated backend registry: spreadsheet first, then provisioning
	// service or tenant_backends, Redis-cached.
	static := registry.NewStatic(nil)
	if path := cfg.Registry.StaticXLSX; path != "" {
		if loaded, err := loadStaticXLSX(path, logger); err == nil {
			static = loaded
		} else {
			logger.Error("Failed to load static backend registry", zap.String("path", path), zap.Error(err))
		}
	}
	var dynamic registry.Registry
	switch {
	case cfg.Registry.ProvisioningURL != "":
		dynamic = registry.NewHTTP(registry.HTTPConfig{
			BaseURL:    cfg.Registry.ProvisioningURL,
			Token:      cfg.Registry.ProvisioningToken,
			Timeout:    cfg.Registry.ProvisioningTimeout,
			RetryCount: 2,
		}, logger)
	case backendsRepo != nil:
		dynamic = registry.NewPostgres(backendsRepo)
	}
	chain := registry.Chain{static}
	var invalidator registry.Invalidator
	if dynamic != nil {
		if redisClient != nil && cfg.Registry.CacheTTL > 0 {
			cached := registry.NewCached(dynamic, redisClient, cfg.Registry.CacheTTL, logger)
			invalidator = cached
			dynamic = cached
		}
		chain = append(chain, dynamic)
	}

	// Provisioning events drop cached registry entries
	var mqttClient *mqtt.Client
	var watcher *registry.Watcher
	if cfg.MQTT.Enabled && invalidator != nil {
		if c, err := mqtt.NewClient(&cfg.MQTT.MQTTConfig, logger); err == nil {
			mqttClient = c
			watcher = registry.NewWatcher(c, invalidator, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
			if err := watcher.Start(); err != nil {
				logger.Error("Failed to subscribe to provisioning topic", zap.Error(err))
				watcher = nil
			}
		} else {
			logger.Warn("MQTT enabled but connection failed, registry cache relies on TTL", zap.Error(err))
		}
	}

	catalog := router.DefaultCatalog()
	pool := router.NewPool(router.PostgresOpener(&cfg.Isolated), logger)
	dir := directory.NewService(tenantsRepo, directory.Config{
		Timeout: cfg.Directory.Timeout,
		Retries: cfg.Directory.Retries,
		Backoff: cfg.Directory.Backoff,
	}, logger)

	pipeline := tenancy.NewPipeline(tenancy.Options{
		Directory:           dir,
		Resolver:            resolver.New(chain, logger),
		KV:                  kv,
		IdentityTTL:         cfg.Session.TTL,
		Catalog:             catalog,
		Central:             router.NewBackend("central", router.KindCentral, centralDB),
		Shared:              router.NewBackend("shared", router.KindShared, sharedDB),
		Pool:                pool,
		AllowSharedFallback: cfg.AllowSharedFallback,
		Logger:              logger,
	})

	sessions := &httpapi.Sessions{CookieName: cfg.Session.CookieName, TTL: cfg.Session.TTL, Secure: cfg.Session.Secure}
	tenants := &httpapi.TenantResolver{Pipeline: pipeline, BaseDomain: cfg.HTTP.BaseDomain, Logger: logger}
	auth := &httpapi.AuthHandler{KV: kv, SessionTTL: cfg.Session.TTL, Logger: logger}

	var checks []httpapi.HealthCheck
	if centralDB != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "central_db", Check: centralDB.PingContext})
	}
	if redisClient != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if watcher != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "provisioning_events", Check: watcher.Check})
	}

	r := httpapi.NewRouter(logger)
	r.RegisterHealthRoutes(checks...)
	r.RegisterTenantRoutes(&httpapi.TenantHandler{Catalog: catalog, Logger: logger}, sessions, tenants)
	r.RegisterAuthRoutes(auth, sessions, tenants)
	r.RegisterAppRoutes(auth, sessions, tenants)
	r.RegisterAdminRoutes(
		&httpapi.TenantsHandler{Directory: dir, Logger: logger},
		&httpapi.BackendsHandler{Static: static, Repo: backendsRepo, Invalidator: chain, Logger: logger},
		httpapi.AdminAuth(cfg.AdminToken),
	)

	srv := service.NewServer(cfg.HTTP.Addr, r, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if watcher != nil {
		_ = watcher.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = pool.Close()
	_ = redis.Close(redisClient)
	_ = database.Close(sharedDB)
	_ = database.Close(centralDB)
}

func loadStaticXLSX(path string, logger *zap.Logger) (*registry.Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	static, skipped, err := registry.LoadStaticXLSX(f)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		logger.Warn("Static backend registry row skipped", zap.String("path", path), zap.String("reason", s))
	}
	logger.Info("Static backend registry loaded", zap.String("path", path), zap.Int("entries", len(static.Entries())))
	return static, nil
}
