package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-console/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-console/internal/app"
	"github.com/odyssey-erp/odyssey-console/internal/auth"
	"github.com/odyssey-erp/odyssey-console/internal/console"
	"github.com/odyssey-erp/odyssey-console/internal/guard"
	"github.com/odyssey-erp/odyssey-console/internal/landing"
	"github.com/odyssey-erp/odyssey-console/internal/navigation"
	"github.com/odyssey-erp/odyssey-console/internal/observability"
	"github.com/odyssey-erp/odyssey-console/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-console/internal/platform/db"
	"github.com/odyssey-erp/odyssey-console/internal/rbac"
	"github.com/odyssey-erp/odyssey-console/internal/session"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
	"github.com/odyssey-erp/odyssey-console/internal/users"
	"github.com/odyssey-erp/odyssey-console/internal/view"
	"github.com/odyssey-erp/odyssey-console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		logger.Error("odyssey", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("odyssey-console"))
	if err != nil {
		return err
	}
	defer dbpool.Close()

	userService := users.NewService(users.NewRepository(dbpool))

	if cli.IsCommand(args) {
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = jobsCLI.Close() }()
		return cli.Run(ctx, cli.Env{
			Out:     os.Stdout,
			Migrate: func(ctx context.Context) error { return db.Migrate(ctx, dbpool, logger) },
			Users:   userService,
			Jobs:    jobsCLI,
		}, args)
	}
	if len(args) > 0 && args[0] != "serve" {
		return cli.ErrUsage
	}
	return serve(ctx, cfg, logger, dbpool, userService)
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger, dbpool *pgxpool.Pool, userService *users.Service) error {
	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, dbpool, logger); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tree, err := loadTree(cfg.NavTreeFile)
	if err != nil {
		return err
	}
	logger.Info("navigation tree loaded", slog.Int("nodes", tree.Len()), slog.Int("pages", len(tree.Pages())))

	sessionManager := shared.NewSessionManager(redisClient, "console_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := observability.NewMetrics()
	rbacService := rbac.NewService(dbpool)
	backend, err := newBackend(cfg, dbpool, rbacService, redisClient, logger)
	if err != nil {
		return err
	}

	registry := session.NewRegistry(func(id string) *session.Store {
		return session.NewStore(sessionManager.Tokens(id),
			session.WithExpiry(auth.TokenExpiry),
			session.WithLogger(logger.With(slog.String("session_id", id))))
	})

	routeGuard := guard.New(cfg.SignInPath, cfg.UnauthorizedPath)
	routeGuard.Logger = logger
	routeGuard.Metrics = metrics

	rbacMiddleware := rbac.Middleware{Permissions: session.PermissionsFromRequest, Logger: logger}
	resolver := landing.Resolver{
		Tree:             tree,
		DashboardPath:    "/dashboard",
		UnauthorizedPath: cfg.UnauthorizedPath,
		Logger:           logger,
		Metrics:          metrics,
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() { _ = jobClient.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Registry:           registry,
		Backend:            backend,
		Guard:              routeGuard,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        auth.NewHandler(logger, backend, templates, sessionManager, csrfManager, registry, cfg.SignInPath),
		ConsoleHandler:     console.NewHandler(logger, templates, csrfManager, tree, rbacMiddleware, resolver),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, userService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("auth_backend", cfg.AuthBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweepSessions(gctx, registry, cfg.SessionIdle, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		return nil
	})
	return g.Wait()
}

func loadTree(path string) (*navigation.Tree, error) {
	if path == "" {
		return navigation.Default()
	}
	return navigation.LoadFile(path)
}

// newBackend picks the auth backend and fronts it with the Redis cache of
// Me lookups.
func newBackend(cfg *app.Config, pool *pgxpool.Pool, roles auth.RoleSource, client *redis.Client, logger *slog.Logger) (auth.Backend, error) {
	var next auth.Backend
	switch cfg.AuthBackend {
	case app.AuthBackendPostgres:
		next = auth.NewPGBackend(auth.NewRepository(pool), roles, cfg.AuthTokenTTL)
	case app.AuthBackendREST:
		next = auth.NewRESTBackend(auth.RESTConfig{
			BaseURL: cfg.AuthAPIURL,
			Timeout: cfg.AuthAPITimeout,
			Retries: cfg.AuthAPIRetries,
		})
	default:
		return nil, fmt.Errorf("unknown auth backend %q", cfg.AuthBackend)
	}
	return auth.NewCachedBackend(next, cache.NewJSON(client, "auth:me:", cfg.AuthCacheTTL), logger), nil
}

func sweepSessions(ctx context.Context, registry *session.Registry, idle time.Duration, logger *slog.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := registry.Sweep(now, idle); n > 0 {
				logger.Debug("swept idle sessions", slog.Int("removed", n), slog.Int("remaining", registry.Len()))
			}
		}
	}
}
