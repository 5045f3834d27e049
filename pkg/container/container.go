package container

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
	"library-backend/internal/ledger/memory"
	"library-backend/internal/ledger/postgres"
	"library-backend/pkg/cache"

	branchHandler "library-backend/internal/domains/branch/handler"
	branchService "library-backend/internal/domains/branch/service"
	catalogHandler "library-backend/internal/domains/catalog/handler"
	catalogService "library-backend/internal/domains/catalog/service"
	circulationHandler "library-backend/internal/domains/circulation/handler"
	circulationService "library-backend/internal/domains/circulation/service"
	fineHandler "library-backend/internal/domains/fine/handler"
	fineService "library-backend/internal/domains/fine/service"
	patronHandler "library-backend/internal/domains/patron/handler"
	patronService "library-backend/internal/domains/patron/service"
	reservationHandler "library-backend/internal/domains/reservation/handler"
	reservationService "library-backend/internal/domains/reservation/service"
)

// Container chứa toàn bộ dependencies của application.
// Thứ tự khởi tạo: Config -> Infrastructure -> Store -> Services -> Handlers
type Container struct {
	// Infrastructure
	Config       *config.Config
	DB           *database.PostgresDB // nil with STORE_DRIVER=memory
	Cache        cache.Cache          // nil when Redis is disabled or unreachable
	Metrics      *metrics.Metrics
	Store        ledger.Store
	Availability *catalogService.AvailabilityCache

	// Services
	BranchService      branchService.ServiceInterface
	CatalogService     catalogService.ServiceInterface
	PatronService      patronService.ServiceInterface
	CirculationService circulationService.ServiceInterface
	ReservationService reservationService.ServiceInterface
	FineService        fineService.ServiceInterface

	// Handlers
	BranchHandler      *branchHandler.Handler
	CatalogHandler     *catalogHandler.Handler
	PatronHandler      *patronHandler.Handler
	CirculationHandler *circulationHandler.Handler
	ReservationHandler *reservationHandler.Handler
	FineHandler        *fineHandler.Handler

	redis *infraCache.RedisCache
}

// Option customizes a Container before services are built
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	now        func() time.Time
}

// WithRegisterer sets the prometheus registerer (default: prometheus.DefaultRegisterer)
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock overrides the clock of every service
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewContainer loads config from the environment and builds the graph
func NewContainer(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Info().
		Str("environment", cfg.App.Environment).
		Str("store", cfg.App.StoreDriver).
		Msg("Config loaded")

	c := &Container{Config: cfg}
	if err := c.initStore(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}
	c.initCache(ctx)
	c.build(opts...)

	log.Info().Msg("Container initialized")
	return c, nil
}

// NewWithStore builds services and handlers over an existing store.
// Cache is optional.
func NewWithStore(cfg *config.Config, store ledger.Store, c cache.Cache, opts ...Option) *Container {
	ct := &Container{Config: cfg, Store: store, Cache: c}
	ct.build(opts...)
	return ct
}

func (c *Container) initStore(ctx context.Context) error {
	if c.Config.App.StoreDriver == config.StoreDriverMemory {
		log.Warn().Msg("Using in-memory ledger store, data is not persisted")
		c.Store = memory.NewStore()
		return nil
	}

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Connect(connectCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	c.Store = postgres.NewStore(db.Pool)
	return nil
}

// initCache connects Redis. Failure is not fatal: availability is then
// computed from the store on every read.
func (c *Container) initCache(ctx context.Context) {
	if !c.Config.Redis.Enabled {
		log.Info().Msg("Redis disabled, availability cache off")
		return
	}

	rc := infraCache.NewRedisCache(c.Config.Redis)
	if err := rc.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("Redis connection failed (non-critical), availability cache off")
		_ = rc.Close()
		return
	}
	c.redis = rc
	c.Cache = rc
}

func (c *Container) build(opts ...Option) {
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	c.Metrics = metrics.New(o.registerer)
	c.Availability = catalogService.NewAvailabilityCache(c.Cache)

	c.initServices(o)
	c.initHandlers()
}

func (c *Container) initServices(o options) {
	policy := c.Config.Policy

	branchOpts := []branchService.Option{branchService.WithMetrics(c.Metrics)}
	catalogOpts := []catalogService.Option{catalogService.WithMetrics(c.Metrics)}
	patronOpts := []patronService.Option{patronService.WithMetrics(c.Metrics)}
	circulationOpts := []circulationService.Option{circulationService.WithMetrics(c.Metrics)}
	reservationOpts := []reservationService.Option{reservationService.WithMetrics(c.Metrics)}
	fineOpts := []fineService.Option{fineService.WithMetrics(c.Metrics)}

	if o.now != nil {
		branchOpts = append(branchOpts, branchService.WithClock(o.now))
		catalogOpts = append(catalogOpts, catalogService.WithClock(o.now))
		patronOpts = append(patronOpts, patronService.WithClock(o.now))
		circulationOpts = append(circulationOpts, circulationService.WithClock(o.now))
		reservationOpts = append(reservationOpts, reservationService.WithClock(o.now))
		fineOpts = append(fineOpts, fineService.WithClock(o.now))
	}

	c.BranchService = branchService.NewService(c.Store, branchOpts...)
	c.CatalogService = catalogService.NewService(c.Store, c.Availability, catalogOpts...)
	c.PatronService = patronService.NewService(c.Store, patronOpts...)
	c.CirculationService = circulationService.NewService(c.Store, policy, c.Availability, circulationOpts...)
	c.ReservationService = reservationService.NewService(c.Store, policy, c.Availability, reservationOpts...)
	c.FineService = fineService.NewService(c.Store, fineOpts...)
}

func (c *Container) initHandlers() {
	c.BranchHandler = branchHandler.NewHandler(c.BranchService)
	c.CatalogHandler = catalogHandler.NewHandler(c.CatalogService)
	c.PatronHandler = patronHandler.NewHandler(c.PatronService)
	c.CirculationHandler = circulationHandler.NewHandler(c.CirculationService)
	c.ReservationHandler = reservationHandler.NewHandler(c.ReservationService)
	c.FineHandler = fineHandler.NewHandler(c.FineService)
}

// Health pings the store, and Redis when connected. A Redis failure is
// reported but does not make the service unhealthy.
func (c *Container) Health(ctx context.Context) (store error, redis error) {
	store = c.Store.Ping(ctx)
	if c.Cache != nil {
		redis = c.Cache.Ping(ctx)
	}
	return store, redis
}

// Cleanup dọn dẹp resources khi shutdown
func (c *Container) Cleanup() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis")
		} else {
			log.Info().Msg("Redis connections closed")
		}
	}
	log.Info().Msg("Container cleanup completed")
}
