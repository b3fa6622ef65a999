package inventory

import (
	"sync"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// MockService — конфигурируемая заглушка InventoryService для тестов.
type MockService struct {
	mu sync.Mutex

	ReserveErr      error
	ReleaseErr      error
	DecrementErr    error
	RequirementsErr error

	// RequirementsBySale позволяет задать потребности конкретной продажи.
	RequirementsBySale map[string][]domain.MaterialRequirement

	ReserveCalls      int
	ReleaseCalls      int
	DecrementCalls    int
	RequirementsCalls int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		RequirementsBySale: make(map[string][]domain.MaterialRequirement),
	}
}

// Reserve возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockService) Reserve(saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReserveCalls++
	return m.ReserveErr
}

// Release возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockService) Release(saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls++
	return m.ReleaseErr
}

// Decrement возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockService) Decrement(saleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecrementCalls++
	return m.DecrementErr
}

// Requirements возвращает настроенные потребности продажи.
func (m *MockService) Requirements(saleID string) ([]domain.MaterialRequirement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequirementsCalls++
	if m.RequirementsErr != nil {
		return nil, m.RequirementsErr
	}
	return m.RequirementsBySale[saleID], nil
}

var _ domain.InventoryService = (*MockService)(nil)
