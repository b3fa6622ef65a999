package kafka

import "time"

// EventType определяет тип события.
type EventType string

const (
	// События продаж.
	EventTypeSaleImported  EventType = "sale.imported"
	EventTypeSaleCancelled EventType = "sale.cancelled"

	// События исполнения.
	EventTypeFulfillmentChanged EventType = "fulfillment.changed"
	EventTypeSaleShipped        EventType = "fulfillment.shipped"
	EventTypeSaleDelivered      EventType = "fulfillment.delivered"

	// События синхронизации площадок.
	EventTypeSyncCompleted EventType = "sync.completed"
	EventTypeSyncFailed    EventType = "sync.failed"
)

// Topics для Kafka.
const (
	TopicSaleEvents        = "chsync.sale.events"
	TopicFulfillmentEvents = "chsync.fulfillment.events"
	TopicDeadLetterQueue   = "chsync.dlq"
)

// Kafka headers для retry-логики.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// SaleEvent представляет событие продажи для внешних потребителей.
type SaleEvent struct {
	EventType  EventType              `json:"event_type"`
	SaleID     string                 `json:"sale_id"`
	Channel    string                 `json:"channel"`
	CustomerID string                 `json:"customer_id"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewSaleEvent создаёт событие продажи.
func NewSaleEvent(eventType EventType, saleID, channel, customerID, status string, metadata map[string]interface{}) *SaleEvent {
	return &SaleEvent{
		EventType:  eventType,
		SaleID:     saleID,
		Channel:    channel,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
