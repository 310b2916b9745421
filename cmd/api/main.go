// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carterperez-dev/templates/plan-backend/internal/admin"
	"github.com/carterperez-dev/templates/plan-backend/internal/auth"
	"github.com/carterperez-dev/templates/plan-backend/internal/config"
	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/health"
	"github.com/carterperez-dev/templates/plan-backend/internal/middleware"
	"github.com/carterperez-dev/templates/plan-backend/internal/plan"
	"github.com/carterperez-dev/templates/plan-backend/internal/resource"
	"github.com/carterperez-dev/templates/plan-backend/internal/server"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
	"github.com/carterperez-dev/templates/plan-backend/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Database.Driver,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	closers := &cleanup{logger: logger}
	defer closers.run()

	st, db, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	if db != nil {
		closers.add("database", db.Close)
	}

	adminCfg := admin.HandlerConfig{Store: st}
	if db != nil {
		adminCfg.DBStats = db.Stats
	}

	// Left as a nil interface when redis is off so health skips the check.
	var redisChecker health.Checker
	var rdb *core.Redis
	planCache := plan.NewCache(nil, 0)
	if cfg.Redis.Enabled() {
		rdb, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		closers.add("redis", rdb.Close)
		redisChecker = rdb
		planCache = plan.NewCache(rdb.Client, cfg.Redis.PlanCacheTTL)
		adminCfg.RedisStats = rdb.PoolStats
		adminCfg.RedisPing = rdb.Ping
		logger.Info("redis connected",
			"pool_size", cfg.Redis.PoolSize,
			"plan_cache_ttl", cfg.Redis.PlanCacheTTL,
		)
	} else {
		logger.Info("redis not configured, plan cache disabled")
	}

	hasher, err := core.NewPasswordHasher(core.DefaultArgonParams)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "HS256",
		"ttl", jwtManager.TTL(),
	)

	planSvc := plan.NewService(st, planCache)
	seeded, err := planSvc.EnsureCatalog(ctx, cfg.Plans.Seed)
	if err != nil {
		return err
	}
	logger.Info("plan catalog ready", "created", seeded)

	authSvc := auth.NewService(st, hasher, jwtManager, cfg.Plans.DefaultOnRegister)
	resolver := auth.NewResolver(jwtManager, st.Users(), planSvc)
	userSvc := user.NewService(st, planSvc)

	authHandler := auth.NewHandler(authSvc)
	userHandler := user.NewHandler(userSvc)
	planHandler := plan.NewHandler(planSvc)
	resourceHandler := resource.NewHandler(resource.NewDispatcher())
	adminHandler := admin.NewHandler(adminCfg)
	healthHandler := health.NewHandler(st, redisChecker)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.Authenticator(resolver)
	adminOnly := middleware.RequireAdminToken(cfg.Admin.Token)
	if cfg.Admin.Token == "" {
		logger.Warn("admin token not set, operator routes are open")
	}

	authHandler.RegisterRoutes(router)
	userHandler.RegisterRoutes(router, authenticator, adminOnly)
	planHandler.RegisterRoutes(router, adminOnly)
	resourceHandler.RegisterRoutes(router, authenticator)
	adminHandler.RegisterRoutes(router, adminOnly)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	closers.run()

	logger.Info("application stopped")
	return nil
}

// cleanup releases startup resources in reverse order of acquisition. run is
// idempotent so it can be both deferred and called on the normal path.
type cleanup struct {
	logger  *slog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (c *cleanup) add(name string, fn func() error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

func (c *cleanup) run() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		nc := c.closers[i]
		if err := nc.close(); err != nil {
			c.logger.Error(nc.name+" close error", "error", err)
		}
	}
	c.closers = nil
}

// openStore returns the configured store. The database handle is nil for
// the in-memory driver.
func openStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (store.Store, *core.Database, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil, nil
	}

	db, err := core.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)

	if cfg.AutoMigrate {
		applied, err := store.Migrate(ctx, db.DB)
		if err != nil {
			_ = db.Close() //nolint:errcheck // cleanup on migration failure
			return nil, nil, err
		}
		logger.Info("migrations applied", "count", applied)
	}

	return store.NewPostgres(db.DB), db, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
