package domain

import (
	"context"
	"time"
)

// SaleFilter ограничивает выборку продаж для отчётов и метрик.
type SaleFilter struct {
	Channel Channel
	Since   time.Time
	Until   time.Time
}

// SaleRepository хранит продажи с optimistic locking по Version.
type SaleRepository interface {
	Create(sale Sale) error
	Get(id string) (Sale, error)
	// List возвращает продажи, попадающие под фильтр, новые первыми.
	List(filter SaleFilter) ([]Sale, error)
	// ListExternalKeys возвращает ключи (channel, externalOrderID) всех
	// известных внешних заказов; используется для seed дедупликации при sync.
	ListExternalKeys() (map[string]struct{}, error)
	// Save перезаписывает продажу, проверяя версию.
	Save(sale Sale) error
}

// CustomerRepository хранит покупателей.
type CustomerRepository interface {
	Create(customer Customer) error
	Get(id string) (Customer, error)
	// FindByEmail ищет покупателя по каноническому (lowercase) email.
	FindByEmail(email string) (Customer, error)
}

// MappingRepository хранит привязки внешних личностей к покупателям.
type MappingRepository interface {
	Get(platform Channel, externalCustomerID string) (ExternalIdentityMapping, error)
	Create(mapping ExternalIdentityMapping) error
}

// PickingListRepository хранит picking-списки.
type PickingListRepository interface {
	Create(list PickingList) error
	Get(id string) (PickingList, error)
	// FindOpenBySale возвращает незакрытый список продажи или ErrPickingListNotFound.
	FindOpenBySale(saleID string) (PickingList, error)
	Save(list PickingList) error
}

// TimelineRepository хранит события жизненного цикла продажи.
type TimelineRepository interface {
	Append(event FulfillmentEvent) error
	List(saleID string) ([]FulfillmentEvent, error)
}

// InventoryService описывает взаимодействие со складом материалов.
// Все операции ключуются идентификатором продажи.
type InventoryService interface {
	// Reserve резервирует материалы под продажу.
	Reserve(saleID string) error
	// Release снимает резерв (компенсация при отмене).
	Release(saleID string) error
	// Decrement списывает зарезервированные материалы после доставки.
	Decrement(saleID string) error
	// Requirements возвращает потребность в материалах для продажи.
	Requirements(saleID string) ([]MaterialRequirement, error)
}

// PlatformAdapter забирает заказы одного маркетплейса и нормализует их.
// Повторные вызовы с пересекающимися интервалами безопасны: дедупликацией
// занимается оркестратор, а не адаптер.
type PlatformAdapter interface {
	Platform() Channel
	// FetchOrders возвращает заказы, размещённые начиная с since.
	// При протухшей авторизации возвращает ошибку, для которой IsAuthExpired
	// истинно, отличая её от временных сетевых ошибок.
	FetchOrders(ctx context.Context, since time.Time) ([]NormalizedOrder, error)
}

// FulfillmentNotifier уведомляет маркетплейс об отгрузке заказа.
// Вызов best-effort: ошибка логируется и не откатывает локальный переход.
type FulfillmentNotifier interface {
	NotifyShipped(ctx context.Context, sale Sale) error
}

// PlatformCredentials — расшифрованные учётные данные площадки.
// Живут только в памяти на время вызова адаптера.
type PlatformCredentials struct {
	AccessToken  string
	RefreshToken string
	APISecret    string
	ExpiresAt    time.Time
}

// OAuthService — внешний коллаборатор обмена OAuth-кодов площадок.
type OAuthService interface {
	GenerateAuthURL(platform Channel, redirectURI string, scopes []string) (string, error)
	ExchangeAuthCode(ctx context.Context, platform Channel, code, redirectURI string) (PlatformCredentials, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
