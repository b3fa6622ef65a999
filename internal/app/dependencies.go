package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/service/inventory"
	"github.com/vladislavdragonenkov/channelsync/internal/storage/memory"
	"github.com/vladislavdragonenkov/channelsync/internal/storage/postgres"
)

// Dependencies содержит хранилища и внешние коллабораторы приложения.
type Dependencies struct {
	Sales     domain.SaleRepository
	Customers domain.CustomerRepository
	Mappings  domain.MappingRepository
	Pickings  domain.PickingListRepository
	Timeline  domain.TimelineRepository
	Outbox    domain.OutboxRepository

	// Inventory — mock склада; в production заменяется клиентом
	// реального inventory-сервиса.
	Inventory domain.InventoryService

	// Store заполнен только при работе поверх PostgreSQL.
	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies создаёт зависимости приложения.
// При пустом DSN используется in-memory хранилище, иначе PostgreSQL
// с применением миграций при старте.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Inventory: inventory.NewMockService(),
		Logger:    logger,
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres dsn is empty, using in-memory storage")
		deps.Sales = memory.NewSaleRepository()
		deps.Customers = memory.NewCustomerRepository()
		deps.Mappings = memory.NewMappingRepository()
		deps.Pickings = memory.NewPickingListRepository()
		deps.Timeline = memory.NewTimelineRepository()
		deps.Outbox = memory.NewOutboxRepository()
		return deps, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("postgres storage initialized")
	deps.Store = store
	deps.Sales = postgres.NewSaleRepository(store)
	deps.Customers = postgres.NewCustomerRepository(store)
	deps.Mappings = postgres.NewMappingRepository(store)
	deps.Pickings = postgres.NewPickingRepository(store)
	deps.Timeline = postgres.NewTimelineRepository(store)
	deps.Outbox = postgres.NewOutboxRepository(store)
	return deps, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
