// Package fulfillment реализует state machine исполнения продажи.
// Переходы проверяются по таблице допустимых статусов; сопутствующие
// side-эффекты выполняются до записи нового статуса, а при сбое записи
// компенсируются: переход либо состоится целиком, либо не оставит следов.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/metrics"
	"github.com/vladislavdragonenkov/channelsync/internal/service/picking"
)

const (
	maxSaveRetries   = 3
	retryBackoffBase = 50 * time.Millisecond

	lockStripes = 64
)

// TransitionRequest — параметры перехода статуса.
type TransitionRequest struct {
	Target domain.FulfillmentStatus
	// Reason — человекочитаемая причина; обязательна для отмены и возврата.
	Reason string
	// TrackingNumber и ShippingProvider обязательны для перехода в shipped.
	TrackingNumber   string
	ShippingProvider string
	// AssignedTo — исполнитель picking-списка при переходе в picking.
	AssignedTo string
}

// StateMachine управляет статусом исполнения продажи.
type StateMachine struct {
	sales     domain.SaleRepository
	pickings  *picking.Coordinator
	inventory domain.InventoryService
	notifier  domain.FulfillmentNotifier
	timeline  domain.TimelineRepository
	outbox    domain.OutboxRepository
	metrics   *metrics.SyncMetrics
	logger    *log.Entry

	locks [lockStripes]sync.Mutex
	now   func() time.Time
}

// NewStateMachine создаёт state machine исполнения.
func NewStateMachine(
	sales domain.SaleRepository,
	pickings *picking.Coordinator,
	inv domain.InventoryService,
	notifier domain.FulfillmentNotifier,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	m *metrics.SyncMetrics,
) *StateMachine {
	return &StateMachine{
		sales:     sales,
		pickings:  pickings,
		inventory: inv,
		notifier:  notifier,
		timeline:  timeline,
		outbox:    outbox,
		metrics:   m,
		logger:    log.WithField("component", "fulfillment"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transition переводит продажу в целевой статус.
// Недопустимый переход возвращает ErrInvalidTransition. Конфликт версий
// повторяется с экспоненциальной паузой; переходы одной продажи
// сериализуются внутри процесса.
func (sm *StateMachine) Transition(ctx context.Context, saleID string, req TransitionRequest) (domain.Sale, error) {
	lock := &sm.locks[stripeFor(saleID)]
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return domain.Sale{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		sale, err := sm.transitionOnce(ctx, saleID, req)
		if err == nil {
			return sale, nil
		}
		if !domain.IsVersionConflict(err) {
			return domain.Sale{}, err
		}
		lastErr = err
		sm.logger.WithFields(log.Fields{
			"sale_id": saleID,
			"attempt": attempt + 1,
		}).Warn("version conflict on fulfillment transition, retrying")
	}

	sm.metrics.RecordTransition(string(req.Target), "conflict")
	return domain.Sale{}, fmt.Errorf("transition %s after %d attempts: %w", saleID, maxSaveRetries, lastErr)
}

func (sm *StateMachine) transitionOnce(ctx context.Context, saleID string, req TransitionRequest) (domain.Sale, error) {
	sale, err := sm.sales.Get(saleID)
	if err != nil {
		return domain.Sale{}, err
	}

	from := sale.FulfillmentStatus
	if !domain.CanTransition(from, req.Target) {
		sm.metrics.RecordTransition(string(req.Target), "rejected")
		return domain.Sale{}, fmt.Errorf("transition %s -> %s: %w", from, req.Target, domain.ErrInvalidTransition)
	}

	// Side-эффекты выполняются до смены статуса: их ошибка оставляет
	// продажу в исходном состоянии.
	if err := sm.applySideEffects(&sale, from, req); err != nil {
		sm.metrics.RecordTransition(string(req.Target), "side_effect_failed")
		return domain.Sale{}, err
	}

	sale.FulfillmentStatus = req.Target
	sale.UpdatedAt = sm.now()

	if err := sm.sales.Save(sale); err != nil {
		// Переход не состоялся: side-эффекты откатываются, чтобы
		// повтор начинал с чистого состояния.
		sm.undoSideEffects(&sale, req)
		return domain.Sale{}, err
	}
	sale.Version++

	sm.recordTransition(sale, from, req)

	// Уведомление маркетплейса об отгрузке best-effort: локальный переход
	// уже зафиксирован и не откатывается из-за сетевой ошибки.
	if req.Target == domain.FulfillmentShipped && sale.Channel.IsMarketplace() && sm.notifier != nil {
		if err := sm.notifier.NotifyShipped(ctx, sale); err != nil {
			sm.logger.WithFields(log.Fields{
				"sale_id": sale.ID,
				"channel": sale.Channel,
			}).WithError(err).Warn("shipped notification failed")
		}
	}

	sm.metrics.RecordTransition(string(req.Target), "success")
	return sale, nil
}

// applySideEffects выполняет сопутствующие целевому статусу действия
// и дополняет продажу их результатами.
func (sm *StateMachine) applySideEffects(sale *domain.Sale, from domain.FulfillmentStatus, req TransitionRequest) error {
	switch req.Target {
	case domain.FulfillmentPicking:
		if err := sm.inventory.Reserve(sale.ID); err != nil {
			return fmt.Errorf("reserve materials: %w", err)
		}
		list, err := sm.pickings.CreateForSale(sale.ID, req.AssignedTo)
		if err != nil {
			// Компенсация: резерв снимается, переход не состоялся.
			if relErr := sm.inventory.Release(sale.ID); relErr != nil {
				sm.logger.WithField("sale_id", sale.ID).
					WithError(relErr).Error("release after failed picking list creation")
			}
			return fmt.Errorf("create picking list: %w", err)
		}
		sale.PickingListID = list.ID

	case domain.FulfillmentShipped:
		if req.TrackingNumber == "" || req.ShippingProvider == "" {
			return domain.ErrMissingShippingInfo
		}
		sale.TrackingNumber = req.TrackingNumber
		sale.ShippingProvider = req.ShippingProvider

	case domain.FulfillmentDelivered:
		if err := sm.inventory.Decrement(sale.ID); err != nil {
			return fmt.Errorf("decrement materials: %w", err)
		}

	case domain.FulfillmentCancelled:
		// Резерв существует только после входа в picking.
		if from != domain.FulfillmentPending {
			if err := sm.inventory.Release(sale.ID); err != nil {
				return fmt.Errorf("release materials: %w", err)
			}
		}
		if sale.PickingListID != "" {
			if _, err := sm.pickings.Cancel(sale.PickingListID); err != nil && !domain.IsVersionConflict(err) {
				sm.logger.WithField("sale_id", sale.ID).
					WithError(err).Warn("cancel picking list on sale cancellation")
			}
		}
	}

	return nil
}

// undoSideEffects компенсирует side-эффекты, когда запись нового статуса
// не удалась: созданный picking-список отменяется, резерв снимается,
// ссылка на список убирается с продажи.
func (sm *StateMachine) undoSideEffects(sale *domain.Sale, req TransitionRequest) {
	if req.Target != domain.FulfillmentPicking {
		return
	}

	if sale.PickingListID != "" {
		if _, err := sm.pickings.Cancel(sale.PickingListID); err != nil {
			sm.logger.WithFields(log.Fields{
				"sale_id":         sale.ID,
				"picking_list_id": sale.PickingListID,
			}).WithError(err).Error("cancel picking list after failed status save")
		}
		sale.PickingListID = ""
	}
	if err := sm.inventory.Release(sale.ID); err != nil {
		sm.logger.WithField("sale_id", sale.ID).
			WithError(err).Error("release reservation after failed status save")
	}
}

// recordTransition пишет событие в ленту и transactional outbox.
// Обе записи вторичны к смене статуса: их ошибки логируются.
func (sm *StateMachine) recordTransition(sale domain.Sale, from domain.FulfillmentStatus, req TransitionRequest) {
	event := domain.FulfillmentEvent{
		SaleID:   sale.ID,
		Type:     fmt.Sprintf("fulfillment.%s", req.Target),
		Reason:   req.Reason,
		Occurred: sm.now(),
	}
	if err := sm.timeline.Append(event); err != nil {
		sm.logger.WithField("sale_id", sale.ID).WithError(err).Error("append timeline event")
	} else {
		sm.metrics.RecordTimelineEvent()
	}

	payload, err := json.Marshal(map[string]any{
		"saleId":    sale.ID,
		"channel":   sale.Channel,
		"from":      from,
		"to":        req.Target,
		"reason":    req.Reason,
		"occurred":  event.Occurred,
		"version":   sale.Version,
		"tracking":  sale.TrackingNumber,
		"provider":  sale.ShippingProvider,
		"pickingId": sale.PickingListID,
	})
	if err != nil {
		sm.logger.WithField("sale_id", sale.ID).WithError(err).Error("marshal outbox payload")
		return
	}
	if _, err := sm.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "sale",
		AggregateID:   sale.ID,
		EventType:     event.Type,
		Payload:       payload,
	}); err != nil {
		sm.logger.WithField("sale_id", sale.ID).WithError(err).Error("enqueue outbox event")
		return
	}
	sm.metrics.RecordOutboxEvent()
}

// Timeline возвращает ленту событий продажи в хронологическом порядке.
func (sm *StateMachine) Timeline(saleID string) ([]domain.FulfillmentEvent, error) {
	if _, err := sm.sales.Get(saleID); err != nil {
		return nil, err
	}
	return sm.timeline.List(saleID)
}

func stripeFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
