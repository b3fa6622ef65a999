// Package sync забирает заказы из подключённых маркетплейсов, дедуплицирует
// их по ключу (канал, внешний идентификатор) и превращает в локальные продажи.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/metrics"
	"github.com/vladislavdragonenkov/channelsync/internal/service/resolver"
)

const (
	defaultPlatformTimeout = 30 * time.Second
	defaultMaxConcurrent   = 4
)

// Option настраивает оркестратор.
type Option func(*options)

type options struct {
	platformTimeout time.Duration
	maxConcurrent   int
}

// WithPlatformTimeout задаёт таймаут на обращение к одной площадке.
func WithPlatformTimeout(timeout time.Duration) Option {
	return func(o *options) { o.platformTimeout = timeout }
}

// WithMaxConcurrent ограничивает число одновременно опрашиваемых площадок.
func WithMaxConcurrent(n int) Option {
	return func(o *options) { o.maxConcurrent = n }
}

// PlatformReport — итог синхронизации одной площадки.
type PlatformReport struct {
	Platform   domain.Channel `json:"platform"`
	Fetched    int            `json:"fetched"`
	Ingested   int            `json:"ingested"`
	Duplicates int            `json:"duplicates"`
	Skipped    int            `json:"skipped"`
	Err        error          `json:"-"`
	// Error — текст ошибки для сериализации наружу.
	Error string `json:"error,omitempty"`
}

// Orchestrator координирует опрос площадок и ingest заказов.
// Частичный результат сохраняется: ошибка одной площадки или отмена
// контекста не откатывает уже созданные продажи.
type Orchestrator struct {
	sales    domain.SaleRepository
	resolver *resolver.Resolver
	adapters map[domain.Channel]domain.PlatformAdapter
	outbox   domain.OutboxRepository
	metrics  *metrics.SyncMetrics
	logger   *log.Entry

	platformTimeout time.Duration
	maxConcurrent   int

	// inFlight обеспечивает single-flight по площадке: повторный запуск
	// синхронизации той же площадки отклоняется, а не ставится в очередь.
	inFlightMu sync.Mutex
	inFlight   map[domain.Channel]bool

	now func() time.Time
}

// NewOrchestrator создаёт оркестратор синхронизации.
func NewOrchestrator(
	sales domain.SaleRepository,
	res *resolver.Resolver,
	adapters []domain.PlatformAdapter,
	outbox domain.OutboxRepository,
	m *metrics.SyncMetrics,
	opts ...Option,
) *Orchestrator {
	o := options{
		platformTimeout: defaultPlatformTimeout,
		maxConcurrent:   defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxConcurrent <= 0 {
		o.maxConcurrent = defaultMaxConcurrent
	}

	byChannel := make(map[domain.Channel]domain.PlatformAdapter, len(adapters))
	for _, adapter := range adapters {
		byChannel[adapter.Platform()] = adapter
	}

	return &Orchestrator{
		sales:           sales,
		resolver:        res,
		adapters:        byChannel,
		outbox:          outbox,
		metrics:         m,
		logger:          log.WithField("component", "sync_orchestrator"),
		platformTimeout: o.platformTimeout,
		maxConcurrent:   o.maxConcurrent,
		inFlight:        make(map[domain.Channel]bool),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SyncAll опрашивает все подключённые площадки параллельно.
// Возвращает отчёт по каждой площадке; ошибки отдельных площадок
// изолированы и не прерывают остальные.
func (o *Orchestrator) SyncAll(ctx context.Context, since time.Time) ([]PlatformReport, error) {
	o.metrics.RecordSyncStarted()
	defer o.metrics.RecordSyncFinished()
	started := o.now()

	seen, err := o.seedDedup()
	if err != nil {
		o.metrics.RecordSyncFailed()
		return nil, fmt.Errorf("seed dedup index: %w", err)
	}

	channels := make([]domain.Channel, 0, len(o.adapters))
	for channel := range o.adapters {
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	reports := make([]PlatformReport, len(channels))
	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup

	for i, channel := range channels {
		wg.Add(1)
		go func(i int, channel domain.Channel) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				reports[i] = PlatformReport{Platform: channel, Err: ctx.Err(), Error: ctx.Err().Error()}
				return
			}

			reports[i] = o.syncPlatform(ctx, channel, since, seen)
		}(i, channel)
	}
	wg.Wait()

	failed := 0
	for _, report := range reports {
		if report.Err != nil {
			failed++
		}
	}
	if failed == len(reports) && len(reports) > 0 {
		o.metrics.RecordSyncFailed()
	} else {
		o.metrics.RecordSyncCompleted()
	}
	o.metrics.RecordSyncDuration(o.now().Sub(started))

	return reports, nil
}

// SyncPlatform синхронизирует одну площадку.
// Повторный запуск той же площадки до завершения предыдущего возвращает
// ErrSyncInProgress.
func (o *Orchestrator) SyncPlatform(ctx context.Context, channel domain.Channel, since time.Time) (PlatformReport, error) {
	if _, ok := o.adapters[channel]; !ok {
		return PlatformReport{}, fmt.Errorf("platform %s is not connected: %w", channel, domain.ErrPlatformUnavailable)
	}

	seen, err := o.seedDedup()
	if err != nil {
		return PlatformReport{}, fmt.Errorf("seed dedup index: %w", err)
	}

	report := o.syncPlatform(ctx, channel, since, seen)
	return report, report.Err
}

// dedupIndex — потокобезопасный набор ключей уже известных внешних заказов.
type dedupIndex struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// addIfAbsent пытается занять ключ; false означает дубликат.
func (d *dedupIndex) addIfAbsent(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.keys[key]; ok {
		return false
	}
	d.keys[key] = struct{}{}
	return true
}

func (d *dedupIndex) remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
}

func (o *Orchestrator) seedDedup() (*dedupIndex, error) {
	keys, err := o.sales.ListExternalKeys()
	if err != nil {
		return nil, err
	}
	return &dedupIndex{keys: keys}, nil
}

// syncPlatform опрашивает одну площадку и ингестит новые заказы.
func (o *Orchestrator) syncPlatform(ctx context.Context, channel domain.Channel, since time.Time, seen *dedupIndex) PlatformReport {
	report := PlatformReport{Platform: channel}
	logger := o.logger.WithField("platform", channel)

	o.inFlightMu.Lock()
	if o.inFlight[channel] {
		o.inFlightMu.Unlock()
		report.Err = domain.ErrSyncInProgress
		report.Error = report.Err.Error()
		return report
	}
	o.inFlight[channel] = true
	o.inFlightMu.Unlock()
	defer func() {
		o.inFlightMu.Lock()
		delete(o.inFlight, channel)
		o.inFlightMu.Unlock()
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, o.platformTimeout)
	defer cancel()

	started := o.now()
	orders, err := o.adapters[channel].FetchOrders(fetchCtx, since)
	if err != nil {
		kind := "transient"
		if domain.IsAuthExpired(err) {
			kind = "auth_expired"
		}
		o.metrics.RecordPlatformError(string(channel), kind)
		logger.WithError(err).WithField("kind", kind).Error("platform fetch failed")
		report.Err = err
		report.Error = err.Error()
		return report
	}
	report.Fetched = len(orders)

	for _, order := range orders {
		// Отмена контекста сохраняет частичный прогресс: уже созданные
		// продажи остаются.
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			report.Error = report.Err.Error()
			break
		}

		switch ingested, err := o.ingestOrder(order, seen); {
		case err != nil:
			report.Skipped++
			logger.WithError(err).WithField("external_order_id", order.ExternalOrderID).
				Warn("order skipped")
		case ingested:
			report.Ingested++
		default:
			report.Duplicates++
		}
	}

	o.metrics.RecordPlatformFetch(string(channel), report.Fetched, report.Ingested, o.now().Sub(started))
	logger.WithFields(log.Fields{
		"fetched":    report.Fetched,
		"ingested":   report.Ingested,
		"duplicates": report.Duplicates,
		"skipped":    report.Skipped,
	}).Info("platform sync finished")

	return report
}

// ingestOrder превращает нормализованный заказ в продажу.
// Возвращает false без ошибки, если заказ уже известен.
func (o *Orchestrator) ingestOrder(order domain.NormalizedOrder, seen *dedupIndex) (bool, error) {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return false, fmt.Errorf("order invariants: %w", errs[0])
	}

	key := domain.ExternalOrderKey(order.Channel, order.ExternalOrderID)
	if !seen.addIfAbsent(key) {
		return false, nil
	}

	res, err := o.resolver.Resolve(order)
	if err != nil {
		seen.remove(key)
		return false, fmt.Errorf("resolve customer: %w", err)
	}

	now := o.now()
	sale := domain.Sale{
		ID:                uuid.NewString(),
		Channel:           order.Channel,
		ExternalOrderID:   order.ExternalOrderID,
		CustomerID:        res.Customer.ID,
		FulfillmentStatus: domain.FulfillmentPending,
		PaymentStatus:     domain.PaymentPaid,
		SaleStatus:        domain.SaleActive,
		TotalAmountMinor:  order.TotalAmountMinor,
		PlatformFeesMinor: order.PlatformFeesMinor,
		Items:             order.Items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if !order.PlacedAt.IsZero() {
		sale.CreatedAt = order.PlacedAt
	}

	if err := o.sales.Create(sale); err != nil {
		seen.remove(key)
		return false, fmt.Errorf("create sale: %w", err)
	}

	o.enqueueImported(sale)
	return true, nil
}

// enqueueImported пишет событие о новой продаже в transactional outbox.
func (o *Orchestrator) enqueueImported(sale domain.Sale) {
	payload, err := json.Marshal(map[string]any{
		"saleId":          sale.ID,
		"channel":         sale.Channel,
		"externalOrderId": sale.ExternalOrderID,
		"customerId":      sale.CustomerID,
		"totalMinor":      sale.TotalAmountMinor,
		"feesMinor":       sale.PlatformFeesMinor,
		"createdAt":       sale.CreatedAt,
	})
	if err != nil {
		o.logger.WithField("sale_id", sale.ID).WithError(err).Error("marshal outbox payload")
		return
	}
	if _, err := o.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "sale",
		AggregateID:   sale.ID,
		EventType:     "sale.imported",
		Payload:       payload,
	}); err != nil {
		o.logger.WithField("sale_id", sale.ID).WithError(err).Error("enqueue outbox event")
		return
	}
	o.metrics.RecordOutboxEvent()
}
