package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// timelineRepositoryInMemory — append-only хранилище событий жизненного цикла.
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.FulfillmentEvent
}

// NewTimelineRepository возвращает in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{
		events: make(map[string][]domain.FulfillmentEvent),
	}
}

// Append добавляет событие в хвост ленты продажи.
func (r *timelineRepositoryInMemory) Append(event domain.FulfillmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.SaleID] = append(r.events[event.SaleID], event)
	return nil
}

// List возвращает события продажи в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(saleID string) ([]domain.FulfillmentEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := append([]domain.FulfillmentEvent(nil), r.events[saleID]...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
