package domain

import "time"

// PickingStatus описывает жизненный цикл picking-списка.
type PickingStatus string

const (
	// PickingPending — список создан, ни одна позиция не собрана.
	PickingPending PickingStatus = "pending"
	// PickingInProgress — собрана часть позиций.
	PickingInProgress PickingStatus = "in_progress"
	// PickingCompleted — список закрыт явным завершением (терминальный статус).
	PickingCompleted PickingStatus = "completed"
	// PickingCancelled — список отменён (терминальный статус).
	PickingCancelled PickingStatus = "cancelled"
)

// IsTerminal сообщает, закрыт ли список.
func (s PickingStatus) IsTerminal() bool {
	return s == PickingCompleted || s == PickingCancelled
}

// PickingItem — одна позиция материалов в picking-списке.
type PickingItem struct {
	ID         string
	MaterialID string
	Name       string
	// RequiredQty — сколько материала нужно собрать.
	RequiredQty int32
	// PickedQty всегда в пределах [0, RequiredQty].
	PickedQty int32
}

// PickingList — рабочий список материалов для производства одной продажи.
// SaleID может быть пустым: список допускает создание без привязки к продаже.
type PickingList struct {
	ID         string
	SaleID     string
	Status     PickingStatus
	AssignedTo string
	Items      []PickingItem
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullyPicked сообщает, собраны ли все позиции полностью.
func (l *PickingList) FullyPicked() bool {
	for _, item := range l.Items {
		if item.PickedQty != item.RequiredQty {
			return false
		}
	}
	return true
}

// RecalculateStatus пересчитывает агрегатный статус по собранным количествам.
// Завершение всегда явное: даже полностью собранный список остаётся in_progress
// до вызова Complete.
func (l *PickingList) RecalculateStatus() {
	if l.Status.IsTerminal() {
		return
	}
	for _, item := range l.Items {
		if item.PickedQty > 0 {
			l.Status = PickingInProgress
			return
		}
	}
	l.Status = PickingPending
}

// ValidateInvariants проверяет базовые инварианты списка.
func (l *PickingList) ValidateInvariants() []error {
	var errs []error

	if len(l.Items) == 0 {
		errs = append(errs, ErrPickingItemsRequired)
	}
	for _, item := range l.Items {
		if item.MaterialID == "" {
			errs = append(errs, ErrMaterialIDRequired)
		}
		if item.RequiredQty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PickedQty < 0 || item.PickedQty > item.RequiredQty {
			errs = append(errs, ErrPickedQtyOutOfRange)
		}
	}

	return errs
}

// MaterialRequirement — потребность в материале, получаемая от inventory-сервиса.
type MaterialRequirement struct {
	MaterialID string
	Name       string
	Qty        int32
}
