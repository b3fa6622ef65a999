package platform

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// NotifierRouter направляет уведомление об отгрузке адаптеру канала продажи.
type NotifierRouter struct {
	byChannel map[domain.Channel]domain.FulfillmentNotifier
}

// NewNotifierRouter собирает роутер из адаптеров, умеющих уведомлять.
func NewNotifierRouter(notifiers ...domain.FulfillmentNotifier) *NotifierRouter {
	byChannel := make(map[domain.Channel]domain.FulfillmentNotifier, len(notifiers))
	for _, n := range notifiers {
		if adapter, ok := n.(domain.PlatformAdapter); ok {
			byChannel[adapter.Platform()] = n
		}
	}
	return &NotifierRouter{byChannel: byChannel}
}

// NotifyShipped передаёт уведомление адаптеру канала продажи.
func (r *NotifierRouter) NotifyShipped(ctx context.Context, sale domain.Sale) error {
	notifier, ok := r.byChannel[sale.Channel]
	if !ok {
		return fmt.Errorf("no notifier for channel %s: %w", sale.Channel, domain.ErrPlatformUnavailable)
	}
	return notifier.NotifyShipped(ctx, sale)
}

var _ domain.FulfillmentNotifier = (*NotifierRouter)(nil)
