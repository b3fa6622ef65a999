package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// saleRepositoryInMemory — простая in-memory реализация SaleRepository.
type saleRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Sale
}

// NewSaleRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewSaleRepository() domain.SaleRepository {
	return &saleRepositoryInMemory{
		items: make(map[string]domain.Sale),
	}
}

// Create сохраняет новую продажу, если ID ещё не занят.
func (r *saleRepositoryInMemory) Create(sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[sale.ID]; exists {
		return domain.ErrSaleVersionConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	sale.Items = cloneSaleItems(sale.Items)
	r.items[sale.ID] = sale
	return nil
}

// Get возвращает продажу или ErrSaleNotFound, если её нет.
func (r *saleRepositoryInMemory) Get(id string) (domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.items[id]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	sale.Items = cloneSaleItems(sale.Items)
	return sale, nil
}

// List возвращает продажи под фильтром, новые первыми.
func (r *saleRepositoryInMemory) List(filter domain.SaleFilter) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Sale, 0, len(r.items))
	for _, sale := range r.items {
		if filter.Channel != "" && sale.Channel != filter.Channel {
			continue
		}
		if !filter.Since.IsZero() && sale.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && sale.CreatedAt.After(filter.Until) {
			continue
		}
		sale.Items = cloneSaleItems(sale.Items)
		result = append(result, sale)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// ListExternalKeys возвращает ключи дедупликации всех внешних заказов.
func (r *saleRepositoryInMemory) ListExternalKeys() (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make(map[string]struct{}, len(r.items))
	for _, sale := range r.items {
		if key := sale.DedupKey(); key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}

// Save перезаписывает продажу, проверяя версию (optimistic locking).
func (r *saleRepositoryInMemory) Save(sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[sale.ID]
	if !ok {
		return domain.ErrSaleNotFound
	}
	if current.Version != sale.Version {
		return domain.ErrSaleVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	sale.Version++
	sale.Items = cloneSaleItems(sale.Items)
	r.items[sale.ID] = sale
	return nil
}

func cloneSaleItems(items []domain.SaleItem) []domain.SaleItem {
	if items == nil {
		return nil
	}
	return append([]domain.SaleItem(nil), items...)
}

var _ domain.SaleRepository = (*saleRepositoryInMemory)(nil)
