package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Shreyas-sv10/Shop2/internal/platform/auth"
	"github.com/Shreyas-sv10/Shop2/internal/platform/config"
	"github.com/Shreyas-sv10/Shop2/internal/platform/observability"
	"github.com/Shreyas-sv10/Shop2/internal/repositories"
	"github.com/Shreyas-sv10/Shop2/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog services.CatalogService
	Cart    services.CartService
	Bills   services.BillService
	Admin   services.AdminService
	System  services.SystemService
}

// Container wires repositories, services, and the admin token issuer for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Tokens       *auth.TokenIssuer
}

// Option customises container wiring.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics services.Metrics
	clock   func() time.Time
	build   services.BuildInfo
	idGen   func() string
}

// WithLogger routes service events to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records till counters through m.
func WithMetrics(m services.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the wall clock shared by services and the token issuer.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithBuildInfo reports version metadata through the system service.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *options) {
		o.build = info
	}
}

// WithBillIDGenerator overrides bill id minting.
func WithBillIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.idGen = fn
	}
}

// NewContainer constructs the runtime dependencies. Tests can supply in-memory registries and
// a fixed clock.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(cfg.Admin.TokenSecret),
		Issuer: cfg.Admin.TokenIssuer,
		TTL:    cfg.Admin.TokenTTL,
		Clock:  o.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("build token issuer: %w", err)
	}

	svc, err := buildServices(ctx, reg, cfg, tokens, o)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
		Tokens:       tokens,
	}, nil
}

// Close releases repository resources. Readiness reports error afterwards.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, tokens *auth.TokenIssuer, o options) (Services, error) {
	var svc Services
	logger := observability.ServiceLogger(o.logger)

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: reg.Catalog(),
		Clock:   o.clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Catalog:    catalogSvc,
		Clock:      o.clock,
		Logger:     logger,
		Metrics:    o.metrics,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	billSvc, err := services.NewBillService(services.BillServiceDeps{
		Carts:       reg.Carts(),
		Ledger:      reg.Ledger(),
		Clock:       o.clock,
		IDGenerator: o.idGen,
		Logger:      logger,
		Metrics:     o.metrics,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build bill service: %w", err)
	}
	svc.Bills = billSvc

	authn, err := auth.NewStaticAuthenticator(cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return Services{}, fmt.Errorf("build admin authenticator: %w", err)
	}
	adminSvc, err := services.NewAdminService(services.AdminServiceDeps{
		Authenticator: authn,
		Tokens:        tokens,
		Catalog:       catalogSvc,
		Logger:        logger,
		Metrics:       o.metrics,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build admin service: %w", err)
	}
	svc.Admin = adminSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := o.build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		if build.StartedAt.IsZero() {
			build.StartedAt = o.clock().UTC()
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            o.clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
