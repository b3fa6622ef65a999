package cache

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const defaultSweepInterval = 60 * time.Second

var (
	cacheSweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chsync_cache_sweep_runs_total",
		Help: "Total number of cache sweep runs grouped by cache name.",
	}, []string{"cache"})
	cacheEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chsync_cache_evictions_total",
		Help: "Total number of expired entries evicted grouped by cache name.",
	}, []string{"cache"})
	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chsync_cache_entries",
		Help: "Current number of entries per cache.",
	}, []string{"cache"})
)

// entry хранит значение вместе с моментом истечения.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Expiring — потокобезопасный TTL-кеш без политики вытеснения по ёмкости.
// Это кеш корректности (экономит повторные удалённые вызовы), а не
// ограниченный по размеру LRU. Чтение после истечения TTL ведёт себя как
// промах и удаляет запись, поэтому корректность не зависит от расписания
// фонового sweep.
type Expiring[K comparable, V any] struct {
	name          string
	sweepInterval time.Duration
	logger        *log.Entry

	mu    sync.RWMutex
	items map[K]entry[V]
}

// Option настраивает кеш.
type Option func(*options)

type options struct {
	sweepInterval time.Duration
	logger        *log.Entry
}

// WithSweepInterval задаёт период фоновой очистки.
func WithSweepInterval(interval time.Duration) Option {
	return func(o *options) {
		o.sweepInterval = interval
	}
}

// WithLogger задаёт logger для sweep-цикла.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New создаёт пустой кеш. Жизненный цикл явный: фоновый sweep стартует
// только через Run и останавливается отменой контекста.
func New[K comparable, V any](name string, opts ...Option) *Expiring[K, V] {
	o := options{sweepInterval: defaultSweepInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sweepInterval <= 0 {
		o.sweepInterval = defaultSweepInterval
	}
	logger := o.logger
	if logger == nil {
		logger = log.WithField("component", "cache").WithField("cache", name)
	}

	return &Expiring[K, V]{
		name:          name,
		sweepInterval: o.sweepInterval,
		logger:        logger,
		items:         make(map[K]entry[V]),
	}
}

// Get возвращает значение по ключу. Запись с истёкшим TTL удаляется,
// а вызов возвращает промах.
func (c *Expiring[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Перепроверяем под write-блокировкой: запись могли успеть обновить.
		if cur, still := c.items[key]; still && !cur.expiresAt.After(time.Now()) {
			delete(c.items, key)
			cacheEvictionsTotal.WithLabelValues(c.name).Inc()
			cacheEntries.WithLabelValues(c.name).Set(float64(len(c.items)))
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set сохраняет значение с заданным TTL.
func (c *Expiring[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	cacheEntries.WithLabelValues(c.name).Set(float64(len(c.items)))
}

// Delete удаляет запись по ключу.
func (c *Expiring[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	cacheEntries.WithLabelValues(c.name).Set(float64(len(c.items)))
}

// Clear очищает кеш целиком.
func (c *Expiring[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]entry[V])
	cacheEntries.WithLabelValues(c.name).Set(0)
}

// Len возвращает число записей, включая ещё не выметенные просроченные.
func (c *Expiring[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Run запускает периодический sweep до отмены ctx.
func (c *Expiring[K, V]) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.SweepOnce(time.Now())
			if removed > 0 {
				c.logger.WithField("evicted", removed).Debug("cache sweep completed")
			}
		}
	}
}

// SweepOnce удаляет все записи, истёкшие к моменту now, и возвращает их число.
func (c *Expiring[K, V]) SweepOnce(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.items {
		if e.expiresAt.After(now) {
			continue
		}
		delete(c.items, key)
		removed++
	}

	cacheSweepRunsTotal.WithLabelValues(c.name).Inc()
	if removed > 0 {
		cacheEvictionsTotal.WithLabelValues(c.name).Add(float64(removed))
	}
	cacheEntries.WithLabelValues(c.name).Set(float64(len(c.items)))
	return removed
}
