package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics содержит метрики синхронизации каналов и исполнения заказов.
type SyncMetrics struct {
	// Счётчики sync-прогонов
	syncStarted   prometheus.Counter
	syncCompleted prometheus.Counter
	syncFailed    prometheus.Counter

	// Гистограммы времени выполнения
	syncDuration     prometheus.Histogram
	platformDuration *prometheus.HistogramVec

	// Пер-платформенные результаты
	ordersFetched  *prometheus.CounterVec
	ordersIngested *prometheus.CounterVec
	platformErrors *prometheus.CounterVec

	// Резолв покупателей
	customersCreated prometheus.Counter
	customersMatched *prometheus.CounterVec

	// Переходы статусов исполнения
	transitions *prometheus.CounterVec

	// Счётчики событий timeline/outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для активных синхронизаций
	activeSyncs prometheus.Gauge
}

// NewSyncMetrics создаёт новый экземпляр метрик синхронизации.
func NewSyncMetrics() *SyncMetrics {
	return newSyncMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSyncMetricsWithRegisterer(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SyncMetrics{
		syncStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "chsync_sync_started_total",
			Help: "Total number of sync runs started",
		}),
		syncCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "chsync_sync_completed_total",
			Help: "Total number of sync runs completed",
		}),
		syncFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "chsync_sync_failed_total",
			Help: "Total number of sync runs where every platform failed",
		}),
		syncDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "chsync_sync_duration_seconds",
			Help:    "Duration of full sync runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		platformDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "chsync_platform_fetch_duration_seconds",
			Help:    "Duration of per-platform order fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"platform"}),
		ordersFetched: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "chsync_orders_fetched_total",
			Help: "Total number of orders fetched from platforms",
		}, []string{"platform"}),
		ordersIngested: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "chsync_orders_ingested_total",
			Help: "Total number of new sales created after dedup",
		}, []string{"platform"}),
		platformErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "chsync_platform_errors_total",
			Help: "Total number of per-platform sync failures grouped by kind",
		}, []string{"platform", "kind"}),
		customersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "chsync_customers_created_total",
			Help: "Total number of customers created during resolution",
		}),
		customersMatched: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "chsync_customers_matched_total",
			Help: "Total number of customers matched grouped by method",
		}, []string{"method"}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "chsync_fulfillment_transitions_total",
			Help: "Total number of fulfillment transitions grouped by target and result",
		}, []string{"target", "result"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "chsync_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "chsync_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeSyncs: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "chsync_active_syncs",
			Help: "Number of currently running sync operations",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordSyncStarted увеличивает счётчик запущенных синхронизаций.
func (m *SyncMetrics) RecordSyncStarted() {
	m.syncStarted.Inc()
	m.activeSyncs.Inc()
}

// RecordSyncFinished уменьшает количество активных синхронизаций.
func (m *SyncMetrics) RecordSyncFinished() {
	m.activeSyncs.Dec()
}

// RecordSyncCompleted увеличивает счётчик завершённых синхронизаций.
func (m *SyncMetrics) RecordSyncCompleted() {
	m.syncCompleted.Inc()
}

// RecordSyncFailed увеличивает счётчик полностью неудачных синхронизаций.
func (m *SyncMetrics) RecordSyncFailed() {
	m.syncFailed.Inc()
}

// RecordSyncDuration записывает длительность полного sync-прогона.
func (m *SyncMetrics) RecordSyncDuration(duration time.Duration) {
	m.syncDuration.Observe(duration.Seconds())
}

// RecordPlatformFetch записывает длительность и объём выборки одной площадки.
func (m *SyncMetrics) RecordPlatformFetch(platform string, fetched, ingested int, duration time.Duration) {
	m.platformDuration.WithLabelValues(platform).Observe(duration.Seconds())
	m.ordersFetched.WithLabelValues(platform).Add(float64(fetched))
	m.ordersIngested.WithLabelValues(platform).Add(float64(ingested))
}

// RecordPlatformError увеличивает счётчик ошибок площадки.
func (m *SyncMetrics) RecordPlatformError(platform, kind string) {
	m.platformErrors.WithLabelValues(platform, kind).Inc()
}

// RecordCustomerCreated увеличивает счётчик созданных покупателей.
func (m *SyncMetrics) RecordCustomerCreated() {
	m.customersCreated.Inc()
}

// RecordCustomerMatched увеличивает счётчик совпадений по способу (mapping/email).
func (m *SyncMetrics) RecordCustomerMatched(method string) {
	m.customersMatched.WithLabelValues(method).Inc()
}

// RecordTransition фиксирует попытку перехода статуса исполнения.
func (m *SyncMetrics) RecordTransition(target, result string) {
	m.transitions.WithLabelValues(target, result).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *SyncMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *SyncMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
