package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Shreyas-sv10/Shop2/internal/di"
	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
	"github.com/Shreyas-sv10/Shop2/internal/handlers"
	"github.com/Shreyas-sv10/Shop2/internal/platform/auth"
	"github.com/Shreyas-sv10/Shop2/internal/platform/config"
	"github.com/Shreyas-sv10/Shop2/internal/platform/idempotency"
	"github.com/Shreyas-sv10/Shop2/internal/platform/observability"
	"github.com/Shreyas-sv10/Shop2/internal/platform/requestctx"
	"github.com/Shreyas-sv10/Shop2/internal/platform/session"
	"github.com/Shreyas-sv10/Shop2/internal/repositories/memory"
	"github.com/Shreyas-sv10/Shop2/internal/seed"
	"github.com/Shreyas-sv10/Shop2/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("till")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	generated, err := config.EnsureLocalSecrets(&cfg, rand.Reader)
	if err != nil {
		logger.Fatal("failed to generate local secrets", zap.Error(err))
	}
	if len(generated) > 0 {
		logger.Warn("generated ephemeral secrets; sessions and admin tokens will not survive a restart",
			zap.Strings("secrets", generated))
	}

	catalog, err := seed.Load(cfg.Catalog.SeedFile)
	if err != nil {
		logger.Fatal("failed to load catalog seed", zap.String("path", cfg.Catalog.SeedFile), zap.Error(err))
	}
	store := storeProfile(cfg, catalog.Store)

	registry, err := memory.NewRegistry(catalog.Products)
	if err != nil {
		logger.Fatal("failed to initialise stores", zap.Error(err))
	}

	tillMetrics := observability.NewTillMetrics(observability.WithMetricsLogger(logger.Named("metrics")))
	buildInfo := buildInfoFromEnv(os.Getenv, cfg, startedAt)

	container, err := di.NewContainer(ctx, cfg, registry,
		di.WithLogger(logger.Named("services")),
		di.WithMetrics(tillMetrics),
		di.WithBuildInfo(buildInfo),
	)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer func() {
		if err := container.Close(context.Background()); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      []byte(cfg.Session.HashKey),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
		idempotency.WithOptionalKey(),
		idempotency.WithRequester(tillSessionID),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.Sweep(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	adminGuard := auth.RequireAdmin(container.Tokens,
		auth.WithGuardLogger(observability.NewPrintfAdapter(logger.Named("auth"))),
		auth.WithGuardMetrics(tillMetrics),
	)

	svc := container.Services
	catalogHandlers := handlers.NewCatalogHandlers(svc.Catalog)
	cartHandlers := handlers.NewCartHandlers(svc.Cart)
	billHandlers := handlers.NewBillHandlers(svc.Bills, store, handlers.WithBillIdempotency(idempotencyMiddleware))
	adminHandlers := handlers.NewAdminHandlers(svc.Admin, svc.Catalog, svc.Bills,
		handlers.WithAdminGuard(adminGuard),
		handlers.WithAdminLoginLimit(cfg.RateLimits.LoginPerMinute),
		handlers.WithAdminStore(store),
	)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(svc.System),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithTillMiddlewares(sessions.Middleware(logger.Named("session"))),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithBillRoutes(billHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("till listening",
			zap.String("store", store.Name),
			zap.Int("products", len(catalog.Products)),
			zap.String("version", buildInfo.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(getenv func(string) string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(getenv("TILL_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(getenv("TILL_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

// storeProfile merges the seed's store block under explicit configuration.
func storeProfile(cfg config.Config, profile seed.StoreProfile) domain.Store {
	store := domain.Store{
		Name:           firstNonEmpty(cfg.Store.Name, profile.Name),
		Address:        firstNonEmpty(cfg.Store.Address, profile.Address),
		FooterMarkdown: firstNonEmpty(cfg.Store.FooterMarkdown, profile.FooterMarkdown),
		Location:       cfg.Store.Location,
	}
	if store.Location == nil {
		store.Location = time.UTC
	}
	return store
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func tillSessionID(ctx context.Context) string {
	info, ok := requestctx.Till(ctx)
	if !ok {
		return ""
	}
	return info.SessionID
}

func traceProjectID(cfg config.Config) string {
	return strings.TrimSpace(cfg.Trace.ProjectID)
}
