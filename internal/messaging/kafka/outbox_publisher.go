package kafka

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicSaleEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	return publishEnvelope(p.producer, p.topic, event)
}

// EventRouter раскладывает outbox-сообщения по topic'ам по типу события:
// fulfillment.* идёт в свой topic, sale.* и sync.* — в topic продаж.
type EventRouter struct {
	producer *Producer
}

// NewEventRouter создаёт publisher с маршрутизацией по типу события.
func NewEventRouter(producer *Producer) domain.OutboxPublisher {
	return &EventRouter{producer: producer}
}

func (r *EventRouter) Publish(event domain.OutboxMessage) error {
	if r == nil || r.producer == nil {
		return fmt.Errorf("kafka event router is not initialized")
	}
	return publishEnvelope(r.producer, topicForEvent(event.EventType), event)
}

func topicForEvent(eventType string) string {
	if strings.HasPrefix(eventType, "fulfillment.") {
		return TopicFulfillmentEvents
	}
	return TopicSaleEvents
}

func publishEnvelope(producer *Producer, topic string, event domain.OutboxMessage) error {
	// Ключом служит продажа: события одной продажи попадают в одну партицию
	// и сохраняют порядок.
	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return producer.PublishEvent(topic, key, envelope)
}

var (
	_ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
	_ domain.OutboxPublisher = (*EventRouter)(nil)
)
