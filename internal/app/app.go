package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/channelsync/internal/health"
	"github.com/vladislavdragonenkov/channelsync/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/channelsync/internal/metrics"
	"github.com/vladislavdragonenkov/channelsync/internal/platform"
	"github.com/vladislavdragonenkov/channelsync/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/channelsync/internal/service/outbox"
	"github.com/vladislavdragonenkov/channelsync/internal/service/picking"
	"github.com/vladislavdragonenkov/channelsync/internal/service/resolver"
	syncsvc "github.com/vladislavdragonenkov/channelsync/internal/service/sync"
	httpapi "github.com/vladislavdragonenkov/channelsync/internal/transport/http"
	"github.com/vladislavdragonenkov/channelsync/internal/version"
)

// Run собирает сервис и блокируется до отмены контекста или фатальной
// ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	m := metrics.NewSyncMetrics()

	adapters, notifier := buildAdapters(cfg, logger)
	oauth := platform.NewOAuthService(cfg.OAuthClientIDs)

	res := resolver.New(deps.Customers, deps.Mappings, m)

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		res.Run(ctx)
	}()

	orchestrator := syncsvc.NewOrchestrator(
		deps.Sales, res, adapters, deps.Outbox, m,
		syncsvc.WithPlatformTimeout(cfg.PlatformTimeout),
		syncsvc.WithMaxConcurrent(cfg.MaxConcurrentSyncs),
	)
	pickings := picking.NewCoordinator(deps.Pickings, deps.Inventory)
	stateMachine := fulfillment.NewStateMachine(
		deps.Sales, pickings, deps.Inventory, notifier,
		deps.Timeline, deps.Outbox, m,
	)

	// Kafka опционален: без брокеров outbox накапливается, но не публикуется.
	kafkaProducer := initKafka(ctx, cfg, deps, &workers, logger)

	handlers := httpapi.NewHandlers(orchestrator, stateMachine, pickings, deps.Sales, oauth)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewRouter(handlers)}

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.Store.Ping(checkCtx)
		}))
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewSimpleChecker("outbox", func() error {
		_, err := deps.Outbox.Stats()
		return err
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		workers.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		workers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildAdapters подключает адаптеры площадок, для которых задан базовый URL.
// Без секрета шифрования учётных данных адаптеры не создаются.
func buildAdapters(cfg Config, logger *log.Entry) ([]domain.PlatformAdapter, domain.FulfillmentNotifier) {
	if cfg.CredentialSecret == "" {
		logger.Warn("credential secret is empty, marketplace adapters disabled")
		return nil, nil
	}

	creds, err := platform.NewCredentialStore(cfg.CredentialSecret)
	if err != nil {
		logger.WithError(err).Warn("failed to init credential store, marketplace adapters disabled")
		return nil, nil
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	var adapters []domain.PlatformAdapter
	var notifiers []domain.FulfillmentNotifier

	if cfg.ShopifyBaseURL != "" {
		adapter := platform.NewShopifyAdapter(cfg.ShopifyBaseURL, creds, httpClient)
		adapters = append(adapters, adapter)
		notifiers = append(notifiers, adapter)
	}
	if cfg.EtsyBaseURL != "" && cfg.EtsyShopID != "" {
		adapter := platform.NewEtsyAdapter(cfg.EtsyBaseURL, cfg.EtsyShopID, creds, httpClient)
		adapters = append(adapters, adapter)
		notifiers = append(notifiers, adapter)
	}
	if cfg.AmazonBaseURL != "" {
		adapter := platform.NewAmazonAdapter(cfg.AmazonBaseURL, cfg.AmazonMarket, creds, httpClient)
		adapters = append(adapters, adapter)
		notifiers = append(notifiers, adapter)
	}
	if cfg.EbayBaseURL != "" {
		adapter := platform.NewEbayAdapter(cfg.EbayBaseURL, creds, httpClient)
		adapters = append(adapters, adapter)
		notifiers = append(notifiers, adapter)
	}

	for _, adapter := range adapters {
		logger.WithField("platform", adapter.Platform()).Info("marketplace adapter connected")
	}
	if len(notifiers) == 0 {
		return adapters, nil
	}
	return adapters, platform.NewNotifierRouter(notifiers...)
}

// initKafka создаёт producer и запускает outbox-воркер, если заданы брокеры.
func initKafka(ctx context.Context, cfg Config, deps *Dependencies, workers *sync.WaitGroup, logger *log.Entry) *kafka.Producer {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers are not configured, outbox worker disabled")
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

	publisher := kafka.NewEventRouter(producer)
	dlq := kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)
	worker := outbox.NewWorker(deps.Outbox, publisher,
		outbox.WithDLQPublisher(dlq),
		outbox.WithLogger(logger.WithField("component", "outbox_worker")),
	)

	workers.Add(1)
	go func() {
		defer workers.Done()
		worker.Run(ctx)
	}()

	return producer
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-проверок.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
