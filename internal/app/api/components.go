package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	remittancecache "github.com/remesas/remittance-api/internal/domains/remittances/adapters/cache"
	remittancememory "github.com/remesas/remittance-api/internal/domains/remittances/adapters/memory"
	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/notifications"
	remittanceobs "github.com/remesas/remittance-api/internal/domains/remittances/adapters/observability"
	remittancepostgres "github.com/remesas/remittance-api/internal/domains/remittances/adapters/persistence/postgres"
	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/proofs"
	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/realtime"
	remittanceworkflows "github.com/remesas/remittance-api/internal/domains/remittances/adapters/workflows"
	"github.com/remesas/remittance-api/internal/domains/remittances/application"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	typesmemory "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/memory"
	typesobs "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/observability"
	typespostgres "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/persistence/postgres"
	typesapp "github.com/remesas/remittance-api/internal/domains/remittancetypes/application"
	typesports "github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
	"github.com/remesas/remittance-api/internal/platform/metrics"
	"github.com/remesas/remittance-api/internal/platform/migrations"
	platformobservability "github.com/remesas/remittance-api/internal/platform/observability"
	platformpostgres "github.com/remesas/remittance-api/internal/platform/postgres"
)

// components holds the adapters every process builds the same way.
type components struct {
	cfg         Config
	serviceName string
	instruments *platformobservability.Instruments
	logger      *slog.Logger
	registry    *prometheus.Registry

	db          *gorm.DB
	orders      ports.Repository
	idempotency ports.IdempotencyStore
	types       typesports.Service
	hub         *realtime.Hub
	bridge      *realtime.PostgresBridge
	notifier    ports.Notifier

	closers []func()
}

// bootstrap initialises observability and storage. Without POSTGRES_DSN the process runs on
// in-memory repositories and a process-local realtime hub.
func bootstrap(ctx context.Context, cfg Config, serviceName string) (*components, error) {
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Settings{
		ServiceName:      serviceName,
		Environment:      cfg.Environment,
		LogLevel:         cfg.LogLevel,
		TraceEndpoint:    cfg.OTLPEndpoint,
		TraceInsecure:    cfg.OTLPInsecure,
		TraceSampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	c := &components{
		cfg:         cfg,
		serviceName: serviceName,
		instruments: instruments,
		logger:      instruments.Logger,
		registry:    metrics.NewRegistry(),
	}
	c.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			c.logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	})

	c.hub = realtime.NewHub(realtime.WithMetrics(metrics.NewRealtime(c.registry)))
	c.notifier = c.hub

	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, c.logger)
	c.onClose(cleanup)
	if db == nil {
		c.orders = remittancememory.NewRepository()
		c.idempotency = remittancememory.NewIdempotencyStore()
		c.types = c.decorateTypes(typesapp.NewService(typesmemory.NewRepository()))
		return c, nil
	}
	if err := migrations.Run(db); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	c.db = db
	c.orders = remittancepostgres.NewRepository(db)
	c.idempotency = remittancepostgres.NewIdempotencyStore(db)
	c.types = c.decorateTypes(typesapp.NewService(typespostgres.NewRepository(db)))
	c.bridge = realtime.NewPostgresBridge(c.hub, db, cfg.PostgresDSN, cfg.RealtimeChannel, c.logger)
	c.notifier = c.bridge
	c.logger.Info("repositories configured with postgres", slog.String("realtime_channel", cfg.RealtimeChannel))
	return c, nil
}

func (c *components) decorateTypes(inner typesports.Service) typesports.Service {
	return typesobs.New(inner,
		typesobs.WithLogger(c.logger),
		typesobs.WithTracer(c.instruments.Tracer("internal.remittancetypes.application")),
	)
}

// runBridge forwards cross-process realtime events until ctx is done.
func (c *components) runBridge(ctx context.Context) {
	if c.bridge == nil {
		return
	}
	go func() {
		if err := c.bridge.Run(ctx); err != nil {
			c.logger.Error("realtime bridge stopped", slog.String("error", err.Error()))
		}
	}()
}

// orderService builds the lifecycle service wrapped in the tracing decorator.
func (c *components) orderService(extra ...application.Option) (*application.Service, ports.Service, error) {
	proofSLA, err := c.cfg.ProofSLA()
	if err != nil {
		return nil, nil, err
	}
	validationSLA, err := c.cfg.ValidationSLA()
	if err != nil {
		return nil, nil, err
	}
	opts := []application.Option{
		application.WithLogger(c.logger),
		application.WithNotifier(c.notifier),
		application.WithIdempotencyStore(c.idempotency),
		application.WithAwaitingProofSLA(proofSLA),
		application.WithAwaitingValidationSLA(validationSLA),
	}
	core := application.NewService(c.orders, c.types, append(opts, extra...)...)
	decorated := remittanceobs.New(core,
		remittanceobs.WithLogger(c.logger),
		remittanceobs.WithTracer(c.instruments.Tracer("internal.remittances.application")),
		remittanceobs.WithMeter(c.instruments.Meter("internal.remittances.application")),
	)
	return core, decorated, nil
}

// publisher returns the RabbitMQ publisher, or a log-only one when the broker is unavailable.
func (c *components) publisher() ports.NotificationPublisher {
	if c.cfg.RabbitMQURL == "" {
		c.logger.Warn("RABBITMQ_URL not set, notifications will only be logged")
		return notifications.NewLogPublisher(c.logger)
	}
	publisher, err := notifications.DialAMQP(c.cfg.RabbitMQURL, c.logger)
	if err != nil {
		c.logger.Warn("rabbitmq unavailable, notifications will only be logged", slog.String("error", err.Error()))
		return notifications.NewLogPublisher(c.logger)
	}
	c.onClose(publisher.Close)
	c.logger.Info("notifications publishing to rabbitmq", slog.String("exchange", notifications.Exchange))
	return publisher
}

// dispatcher prefers Temporal and otherwise delivers in the background of the process.
func (c *components) dispatcher() ports.NotificationDispatcher {
	temporalClient, err := c.temporalClient()
	if err != nil {
		c.logger.Warn("Temporal workflows unavailable, delivering notifications inline", slog.String("error", err.Error()))
		background := remittanceworkflows.NewBackgroundDispatcher(remittanceworkflows.NewInlineDispatcher(c.publisher()), c.logger)
		c.onClose(background.Wait)
		return background
	}
	c.onClose(temporalClient.Close)
	c.logger.Info("Temporal workflows enabled", slog.String("namespace", c.cfg.TemporalNamespace))
	return remittanceworkflows.NewTemporalDispatcher(temporalClient)
}

func (c *components) temporalClient() (client.Client, error) {
	if c.cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: c.instruments.Tracer("temporal-client"),
	})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  c.cfg.TemporalAddress,
		Namespace: c.cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(c.logger),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

// proofResolver signs gs:// references when a bucket or key file is configured.
func (c *components) proofResolver(ctx context.Context) ports.ProofResolver {
	opts := []proofs.ResolverOption{proofs.WithDefaultBucket(c.cfg.ProofBucket)}
	if c.cfg.GCSServiceAccountFile != "" {
		resolver, err := proofs.NewGCSResolverFromServiceAccount(c.cfg.GCSServiceAccountFile, opts...)
		if err != nil {
			c.logger.Warn("failed to load GCS service account, proof links pass through", slog.String("error", err.Error()))
			return nil
		}
		return resolver
	}
	if c.cfg.ProofBucket == "" {
		return nil
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		c.logger.Warn("failed to create GCS client, proof links pass through", slog.String("error", err.Error()))
		return nil
	}
	c.onClose(func() { _ = storageClient.Close() })
	return proofs.NewGCSResolver(storageClient, opts...)
}

// deduplicator returns the Redis window store, or a process-local one.
func (c *components) deduplicator(ctx context.Context) ports.AlertDeduplicator {
	if c.cfg.RedisURL == "" {
		c.logger.Warn("REDIS_URL not set, alert dedup windows are kept in memory")
		return remittancememory.NewAlertDeduplicator()
	}
	redisClient, err := remittancecache.Connect(ctx, c.cfg.RedisURL)
	if err != nil {
		c.logger.Warn("redis unavailable, alert dedup windows are kept in memory", slog.String("error", err.Error()))
		return remittancememory.NewAlertDeduplicator()
	}
	c.onClose(func() { _ = redisClient.Close() })
	return remittancecache.NewAlertDeduplicator(redisClient, "")
}

func (c *components) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// Close releases resources in reverse acquisition order.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
