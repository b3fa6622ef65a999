package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// pickingRepositoryInMemory — in-memory реализация PickingListRepository.
type pickingRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.PickingList
}

// NewPickingListRepository возвращает in-memory репозиторий picking-списков.
func NewPickingListRepository() domain.PickingListRepository {
	return &pickingRepositoryInMemory{
		items: make(map[string]domain.PickingList),
	}
}

// Create сохраняет новый список, если ID ещё не занят.
func (r *pickingRepositoryInMemory) Create(list domain.PickingList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[list.ID]; exists {
		return domain.ErrDuplicatePickingList
	}
	list.Items = clonePickingItems(list.Items)
	r.items[list.ID] = list
	return nil
}

// Get возвращает список или ErrPickingListNotFound.
func (r *pickingRepositoryInMemory) Get(id string) (domain.PickingList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list, ok := r.items[id]
	if !ok {
		return domain.PickingList{}, domain.ErrPickingListNotFound
	}
	list.Items = clonePickingItems(list.Items)
	return list, nil
}

// FindOpenBySale возвращает незакрытый список продажи, если он есть.
func (r *pickingRepositoryInMemory) FindOpenBySale(saleID string) (domain.PickingList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, list := range r.items {
		if list.SaleID == saleID && !list.Status.IsTerminal() {
			list.Items = clonePickingItems(list.Items)
			return list, nil
		}
	}
	return domain.PickingList{}, domain.ErrPickingListNotFound
}

// Save перезаписывает список, проверяя версию.
func (r *pickingRepositoryInMemory) Save(list domain.PickingList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[list.ID]
	if !ok {
		return domain.ErrPickingListNotFound
	}
	if current.Version != list.Version {
		return domain.ErrSaleVersionConflict
	}
	list.Version++
	list.Items = clonePickingItems(list.Items)
	r.items[list.ID] = list
	return nil
}

func clonePickingItems(items []domain.PickingItem) []domain.PickingItem {
	if items == nil {
		return nil
	}
	return append([]domain.PickingItem(nil), items...)
}

var _ domain.PickingListRepository = (*pickingRepositoryInMemory)(nil)
