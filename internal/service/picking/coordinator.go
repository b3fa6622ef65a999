// Package picking управляет picking-списками материалов: создание под продажу,
// учёт собранных количеств и явное завершение.
package picking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Coordinator — сервис управления picking-списками.
// На одну продажу допускается не более одного открытого списка.
type Coordinator struct {
	lists     domain.PickingListRepository
	inventory domain.InventoryService
	logger    *log.Entry
	now       func() time.Time
}

// NewCoordinator создаёт координатор picking-списков.
func NewCoordinator(lists domain.PickingListRepository, inventory domain.InventoryService) *Coordinator {
	return &Coordinator{
		lists:     lists,
		inventory: inventory,
		logger:    log.WithField("component", "picking_coordinator"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateForSale создаёт picking-список под продажу, заполняя позиции из
// потребностей inventory-сервиса. Если у продажи уже есть открытый список,
// возвращает ErrDuplicatePickingList.
func (c *Coordinator) CreateForSale(saleID, assignedTo string) (domain.PickingList, error) {
	if _, err := c.lists.FindOpenBySale(saleID); err == nil {
		return domain.PickingList{}, domain.ErrDuplicatePickingList
	}

	requirements, err := c.inventory.Requirements(saleID)
	if err != nil {
		return domain.PickingList{}, fmt.Errorf("fetch material requirements: %w", err)
	}

	items := make([]domain.PickingItem, 0, len(requirements))
	for _, req := range requirements {
		items = append(items, domain.PickingItem{
			ID:          uuid.NewString(),
			MaterialID:  req.MaterialID,
			Name:        req.Name,
			RequiredQty: req.Qty,
		})
	}

	return c.Create(domain.PickingList{
		SaleID:     saleID,
		AssignedTo: assignedTo,
		Items:      items,
	})
}

// Create сохраняет новый picking-список после проверки инвариантов.
// Список без SaleID допустим: так оформляются внутренние заготовки.
func (c *Coordinator) Create(list domain.PickingList) (domain.PickingList, error) {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	now := c.now()
	list.Status = domain.PickingPending
	list.Version = 0
	list.CreatedAt = now
	list.UpdatedAt = now

	if errs := list.ValidateInvariants(); len(errs) > 0 {
		return domain.PickingList{}, fmt.Errorf("picking list invariants: %w", errs[0])
	}

	if list.SaleID != "" {
		if _, err := c.lists.FindOpenBySale(list.SaleID); err == nil {
			return domain.PickingList{}, domain.ErrDuplicatePickingList
		}
	}

	if err := c.lists.Create(list); err != nil {
		return domain.PickingList{}, fmt.Errorf("create picking list: %w", err)
	}

	c.logger.WithFields(log.Fields{
		"picking_list_id": list.ID,
		"sale_id":         list.SaleID,
		"items":           len(list.Items),
	}).Info("picking list created")

	return list, nil
}

// Get возвращает picking-список по идентификатору.
func (c *Coordinator) Get(id string) (domain.PickingList, error) {
	return c.lists.Get(id)
}

// UpdateItemQuantity обновляет собранное количество позиции.
// Значение молча обрезается до [0, RequiredQty]; статус списка
// пересчитывается, но никогда не завершается автоматически.
func (c *Coordinator) UpdateItemQuantity(listID, itemID string, pickedQty int32) (domain.PickingList, error) {
	list, err := c.lists.Get(listID)
	if err != nil {
		return domain.PickingList{}, err
	}
	if list.Status.IsTerminal() {
		return domain.PickingList{}, fmt.Errorf("picking list %s is closed: %w", listID, domain.ErrInvalidTransition)
	}

	found := false
	for i := range list.Items {
		if list.Items[i].ID != itemID {
			continue
		}
		found = true
		qty := pickedQty
		if qty < 0 {
			qty = 0
		}
		if qty > list.Items[i].RequiredQty {
			qty = list.Items[i].RequiredQty
		}
		list.Items[i].PickedQty = qty
		break
	}
	if !found {
		return domain.PickingList{}, domain.ErrPickingItemNotFound
	}

	list.RecalculateStatus()
	list.UpdatedAt = c.now()

	if err := c.lists.Save(list); err != nil {
		return domain.PickingList{}, fmt.Errorf("save picking list: %w", err)
	}
	list.Version++

	return list, nil
}

// Complete закрывает picking-список. Если не все позиции собраны,
// требуется явный override; факт завершения с недобором логируется.
func (c *Coordinator) Complete(listID string, override bool) (domain.PickingList, error) {
	list, err := c.lists.Get(listID)
	if err != nil {
		return domain.PickingList{}, err
	}
	if list.Status.IsTerminal() {
		return domain.PickingList{}, fmt.Errorf("picking list %s is closed: %w", listID, domain.ErrInvalidTransition)
	}

	if !list.FullyPicked() && !override {
		return domain.PickingList{}, domain.ErrIncompletePicking
	}

	if !list.FullyPicked() {
		c.logger.WithFields(log.Fields{
			"picking_list_id": list.ID,
			"sale_id":         list.SaleID,
		}).Warn("picking list completed with shortage override")
	}

	list.Status = domain.PickingCompleted
	list.UpdatedAt = c.now()

	if err := c.lists.Save(list); err != nil {
		return domain.PickingList{}, fmt.Errorf("save picking list: %w", err)
	}
	list.Version++

	c.logger.WithField("picking_list_id", list.ID).Info("picking list completed")
	return list, nil
}

// Cancel отменяет открытый picking-список.
func (c *Coordinator) Cancel(listID string) (domain.PickingList, error) {
	list, err := c.lists.Get(listID)
	if err != nil {
		return domain.PickingList{}, err
	}
	if list.Status.IsTerminal() {
		return domain.PickingList{}, fmt.Errorf("picking list %s is closed: %w", listID, domain.ErrInvalidTransition)
	}

	list.Status = domain.PickingCancelled
	list.UpdatedAt = c.now()

	if err := c.lists.Save(list); err != nil {
		return domain.PickingList{}, fmt.Errorf("save picking list: %w", err)
	}
	list.Version++

	return list, nil
}
