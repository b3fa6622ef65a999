// Package resolver сопоставляет внешние личности маркетплейсов с внутренними
// покупателями: сначала по сохранённому маппингу, затем по email, и только
// потом создаёт новую запись.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/cache"
	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/metrics"
)

const (
	defaultMappingTTL  = time.Hour
	defaultCustomerTTL = 5 * time.Minute
	defaultEmailTTL    = 30 * time.Minute

	// lockStripes — число страйпов для сериализации резолва по ключу
	// (platform, externalCustomerID). Страйпов достаточно много, чтобы
	// конкурентные резолвы разных личностей почти не пересекались.
	lockStripes = 64
)

// Option настраивает резолвер.
type Option func(*options)

type options struct {
	mappingTTL  time.Duration
	customerTTL time.Duration
	emailTTL    time.Duration
}

// WithMappingTTL задаёт TTL кеша маппингов внешних личностей.
func WithMappingTTL(ttl time.Duration) Option {
	return func(o *options) { o.mappingTTL = ttl }
}

// WithCustomerTTL задаёт TTL кеша карточек покупателей.
func WithCustomerTTL(ttl time.Duration) Option {
	return func(o *options) { o.customerTTL = ttl }
}

// WithEmailTTL задаёт TTL кеша email-индекса.
func WithEmailTTL(ttl time.Duration) Option {
	return func(o *options) { o.emailTTL = ttl }
}

// Resolver находит или создаёт покупателя для нормализованного заказа.
// Резолв одной и той же внешней личности сериализуется, поэтому гонка
// «два заказа одного нового покупателя» не порождает дубликатов.
type Resolver struct {
	customers domain.CustomerRepository
	mappings  domain.MappingRepository
	metrics   *metrics.SyncMetrics
	logger    *log.Entry

	mappingTTL  time.Duration
	customerTTL time.Duration
	emailTTL    time.Duration

	// mappingCache: "platform/externalCustomerID" → customerID.
	mappingCache *cache.Expiring[string, string]
	// customerCache: customerID → карточка покупателя.
	customerCache *cache.Expiring[string, domain.Customer]
	// emailCache: канонический email → customerID.
	emailCache *cache.Expiring[string, string]

	locks [lockStripes]sync.Mutex
	now   func() time.Time
}

// Resolution — результат резолва личности.
type Resolution struct {
	Customer domain.Customer
	// Created истинно, если покупатель был создан этим вызовом.
	Created bool
	// Method фиксирует, как личность была сопоставлена: mapping, email или created.
	Method string
}

// New создаёт резолвер с кешами по умолчанию.
func New(
	customers domain.CustomerRepository,
	mappings domain.MappingRepository,
	m *metrics.SyncMetrics,
	opts ...Option,
) *Resolver {
	o := options{
		mappingTTL:  defaultMappingTTL,
		customerTTL: defaultCustomerTTL,
		emailTTL:    defaultEmailTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Resolver{
		customers:     customers,
		mappings:      mappings,
		metrics:       m,
		logger:        log.WithField("component", "customer_resolver"),
		mappingTTL:    o.mappingTTL,
		customerTTL:   o.customerTTL,
		emailTTL:      o.emailTTL,
		mappingCache:  cache.New[string, string]("identity_mapping"),
		customerCache: cache.New[string, domain.Customer]("customer_detail"),
		emailCache:    cache.New[string, string]("customer_email"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run запускает фоновые sweep-циклы кешей до отмены контекста.
func (r *Resolver) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); r.mappingCache.Run(ctx) }()
	go func() { defer wg.Done(); r.customerCache.Run(ctx) }()
	go func() { defer wg.Done(); r.emailCache.Run(ctx) }()
	wg.Wait()
}

// Resolve возвращает внутреннего покупателя для заказа маркетплейса.
// Порядок: маппинг → email → создание. Вызов идемпотентен: повторный резолв
// той же личности возвращает того же покупателя.
func (r *Resolver) Resolve(order domain.NormalizedOrder) (Resolution, error) {
	if order.ExternalCustomerID == "" {
		return Resolution{}, domain.ErrExternalCustomerIDRequired
	}

	key := mappingKey(order.Channel, order.ExternalCustomerID)
	lock := &r.locks[stripeFor(key)]
	lock.Lock()
	defer lock.Unlock()

	// Шаг 1: сохранённый маппинг (кеш, затем хранилище).
	if customerID, ok := r.mappingCache.Get(key); ok {
		customer, err := r.customerByID(customerID)
		if err == nil {
			r.metrics.RecordCustomerMatched("mapping")
			return Resolution{Customer: customer, Method: "mapping"}, nil
		}
		// Кеш указывает на исчезнувшего покупателя: сбрасываем и идём дальше.
		r.mappingCache.Delete(key)
	}

	mapping, err := r.mappings.Get(order.Channel, order.ExternalCustomerID)
	if err == nil {
		customer, err := r.customerByID(mapping.CustomerID)
		if err != nil {
			return Resolution{}, fmt.Errorf("mapping points to missing customer %s: %w", mapping.CustomerID, err)
		}
		r.mappingCache.Set(key, customer.ID, r.mappingTTL)
		r.metrics.RecordCustomerMatched("mapping")
		return Resolution{Customer: customer, Method: "mapping"}, nil
	}
	if !errors.Is(err, domain.ErrMappingNotFound) {
		return Resolution{}, fmt.Errorf("lookup identity mapping: %w", err)
	}

	// Шаг 2: сопоставление по каноническому email.
	email := domain.NormalizeEmail(order.CustomerEmail)
	if email != "" {
		customer, ok, err := r.matchByEmail(email)
		if err != nil {
			return Resolution{}, fmt.Errorf("lookup customer by email: %w", err)
		}
		if ok {
			if err := r.bindMapping(order, customer.ID, key); err != nil {
				return Resolution{}, err
			}
			r.metrics.RecordCustomerMatched("email")
			return Resolution{Customer: customer, Method: "email"}, nil
		}
	}

	// Шаг 3: новой личности заводим нового покупателя.
	customer := domain.Customer{
		ID:        uuid.NewString(),
		Name:      order.CustomerName,
		Email:     order.CustomerEmail,
		Status:    domain.CustomerActive,
		Tier:      domain.TierStandard,
		Source:    domain.SourceMarketplace,
		CreatedAt: r.now(),
		UpdatedAt: r.now(),
	}
	if err := r.customers.Create(customer); err != nil {
		return Resolution{}, fmt.Errorf("create customer: %w", err)
	}
	if err := r.bindMapping(order, customer.ID, key); err != nil {
		return Resolution{}, err
	}

	r.customerCache.Set(customer.ID, customer, r.customerTTL)
	if email != "" {
		r.emailCache.Set(email, customer.ID, r.emailTTL)
	}
	r.metrics.RecordCustomerCreated()
	r.logger.WithFields(log.Fields{
		"platform":    order.Channel,
		"customer_id": customer.ID,
	}).Info("customer created from marketplace identity")

	return Resolution{Customer: customer, Created: true, Method: "created"}, nil
}

// customerByID читает карточку покупателя через кеш.
func (r *Resolver) customerByID(id string) (domain.Customer, error) {
	if customer, ok := r.customerCache.Get(id); ok {
		return customer, nil
	}
	customer, err := r.customers.Get(id)
	if err != nil {
		return domain.Customer{}, err
	}
	r.customerCache.Set(id, customer, r.customerTTL)
	return customer, nil
}

// matchByEmail ищет покупателя по каноническому email через кеш.
// Отсутствие совпадения отличается от сбоя хранилища: сбой возвращается
// ошибкой, чтобы вызывающий не завёл дубликат покупателя.
func (r *Resolver) matchByEmail(email string) (domain.Customer, bool, error) {
	if customerID, ok := r.emailCache.Get(email); ok {
		if customer, err := r.customerByID(customerID); err == nil {
			return customer, true, nil
		}
		r.emailCache.Delete(email)
	}

	customer, err := r.customers.FindByEmail(email)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return domain.Customer{}, false, nil
	}
	if err != nil {
		return domain.Customer{}, false, err
	}
	r.emailCache.Set(email, customer.ID, r.emailTTL)
	r.customerCache.Set(customer.ID, customer, r.customerTTL)
	return customer, true, nil
}

// bindMapping сохраняет маппинг внешней личности. Гонка с параллельным
// созданием того же маппинга разрешается в пользу победителя гонки.
func (r *Resolver) bindMapping(order domain.NormalizedOrder, customerID, key string) error {
	err := r.mappings.Create(domain.ExternalIdentityMapping{
		Platform:           order.Channel,
		ExternalCustomerID: order.ExternalCustomerID,
		CustomerID:         customerID,
		CreatedAt:          r.now(),
	})
	switch {
	case err == nil:
		r.mappingCache.Set(key, customerID, r.mappingTTL)
		return nil
	case errors.Is(err, domain.ErrMappingExists):
		existing, getErr := r.mappings.Get(order.Channel, order.ExternalCustomerID)
		if getErr != nil {
			return fmt.Errorf("reload identity mapping: %w", getErr)
		}
		r.mappingCache.Set(key, existing.CustomerID, r.mappingTTL)
		return nil
	default:
		return fmt.Errorf("create identity mapping: %w", err)
	}
}

func mappingKey(platform domain.Channel, externalID string) string {
	return string(platform) + "/" + externalID
}

func stripeFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
