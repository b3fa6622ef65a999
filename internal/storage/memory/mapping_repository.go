package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// mappingRepositoryInMemory — in-memory реализация MappingRepository.
// Ключ — пара (platform, externalCustomerID).
type mappingRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.ExternalIdentityMapping
}

// NewMappingRepository возвращает in-memory репозиторий внешних привязок.
func NewMappingRepository() domain.MappingRepository {
	return &mappingRepositoryInMemory{
		items: make(map[string]domain.ExternalIdentityMapping),
	}
}

func mappingKey(platform domain.Channel, externalCustomerID string) string {
	return string(platform) + "/" + externalCustomerID
}

// Get возвращает привязку или ErrMappingNotFound.
func (r *mappingRepositoryInMemory) Get(platform domain.Channel, externalCustomerID string) (domain.ExternalIdentityMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mapping, ok := r.items[mappingKey(platform, externalCustomerID)]
	if !ok {
		return domain.ExternalIdentityMapping{}, domain.ErrMappingNotFound
	}
	return mapping, nil
}

// Create сохраняет привязку. Повторное создание того же ключа — ошибка:
// пара (platform, externalCustomerID) указывает ровно на одного покупателя.
func (r *mappingRepositoryInMemory) Create(mapping domain.ExternalIdentityMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := mappingKey(mapping.Platform, mapping.ExternalCustomerID)
	if _, exists := r.items[key]; exists {
		return domain.ErrMappingExists
	}
	r.items[key] = mapping
	return nil
}

var _ domain.MappingRepository = (*mappingRepositoryInMemory)(nil)
