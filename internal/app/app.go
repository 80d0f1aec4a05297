package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/RegistryGo/internal/config"
	"github.com/utafrali/RegistryGo/internal/event"
	handler "github.com/utafrali/RegistryGo/internal/handler/http"
	"github.com/utafrali/RegistryGo/internal/legal"
	"github.com/utafrali/RegistryGo/internal/repository/postgres"
	redisrepo "github.com/utafrali/RegistryGo/internal/repository/redis"
	"github.com/utafrali/RegistryGo/internal/service"
	"github.com/utafrali/RegistryGo/migrations"
	"github.com/utafrali/RegistryGo/pkg/database"
	apperrors "github.com/utafrali/RegistryGo/pkg/errors"
	"github.com/utafrali/RegistryGo/pkg/health"
	pkgkafka "github.com/utafrali/RegistryGo/pkg/kafka"
	"github.com/utafrali/RegistryGo/pkg/middleware"
	"github.com/utafrali/RegistryGo/pkg/tracing"
)

// App wires together all dependencies and runs the registry service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	scheduler      *service.Scheduler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "registry",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "registry")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the registrar message queue.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	domainRepo := postgres.NewDomainRepository(pool)
	contactRepo := postgres.NewContactRepository(pool)
	registrarRepo := postgres.NewRegistrarRepository(pool)
	transferRepo := postgres.NewTransferRepository(pool)
	messageQueue := redisrepo.NewMessageQueue(redisClient)

	txRunner := database.NewTxRunner(pool)
	locks := service.NewKeyedMutex()
	eventProducer := event.NewProducer(producer, logger)
	policy := cfg.Policy()

	// The legal-document store is optional. Leave it nil when no service is
	// configured so commands skip archiving entirely.
	var docs service.DocumentStore
	var legalClient *legal.Client
	if cfg.LegalDocServiceURL != "" {
		legalClient = legal.NewClient(cfg.LegalDocServiceURL, logger)
		docs = legalClient
		logger.Info("legal document archiving enabled",
			slog.String("url", cfg.LegalDocServiceURL),
		)
	}

	domainService := service.NewDomainService(
		domainRepo, contactRepo, txRunner, locks, eventProducer, docs, policy, logger,
	)
	transferService := service.NewTransferService(
		domainRepo, contactRepo, registrarRepo, transferRepo, messageQueue,
		txRunner, locks, eventProducer, policy, logger,
	)
	scheduler := service.NewScheduler(domainRepo, txRunner, locks, eventProducer, policy, logger)

	// Bearer tokens resolve to registrars through the database. The configured
	// admin token grants the operator role for force-delete endpoints.
	validate := newTokenValidator(cfg.AdminAPIToken, registrarRepo)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if legalClient != nil {
		healthHandler.Register("legal-documents", legalClient.Healthy)
	}

	// HTTP router.
	router := handler.NewRouter(domainService, transferService, validate, healthHandler, logger, cfg.PprofAllowedCIDRs)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		scheduler:      scheduler,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newTokenValidator builds the bearer-token resolver used by the auth
// middleware. Registrar tokens map to the registrar role with the registrar's
// ID as the acting identity.
func newTokenValidator(adminToken string, registrars *postgres.RegistrarRepository) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		if adminToken != "" && token == adminToken {
			return &middleware.Claims{UserID: "admin", Role: "admin"}, nil
		}
		reg, err := registrars.GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("unknown token")
			}
			return nil, err
		}
		return &middleware.Claims{
			UserID: reg.ID,
			Email:  reg.Email,
			Role:   "registrar",
		}, nil
	}
}

// Run starts the HTTP server and background lifecycle sweeps, then blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the lifecycle sweep loop.
	go a.runSweeps(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runSweeps periodically runs the time-driven lifecycle sweeps. Every sweep
// is idempotent, so overlapping instances of the service are safe.
func (a *App) runSweeps(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.scheduler.RunAll(ctx)
		}
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
