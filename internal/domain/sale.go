package domain

import "time"

// Channel описывает канал продаж, из которого пришёл заказ.
type Channel string

const (
	ChannelShopify     Channel = "shopify"
	ChannelEtsy        Channel = "etsy"
	ChannelAmazon      Channel = "amazon"
	ChannelEbay        Channel = "ebay"
	ChannelDirect      Channel = "direct"
	ChannelWholesale   Channel = "wholesale"
	ChannelCustomOrder Channel = "custom_order"
	ChannelOther       Channel = "other"
)

// AllChannels перечисляет каналы в каноническом порядке для отчётов.
var AllChannels = []Channel{
	ChannelShopify, ChannelEtsy, ChannelAmazon, ChannelEbay,
	ChannelDirect, ChannelWholesale, ChannelCustomOrder, ChannelOther,
}

// MarketplaceChannels перечисляет каналы, синхронизируемые через внешние API.
// Прямые и оптовые продажи создаются вручную и в sync не участвуют.
var MarketplaceChannels = []Channel{ChannelShopify, ChannelEtsy, ChannelAmazon, ChannelEbay}

// IsMarketplace сообщает, пришёл ли канал из внешнего маркетплейса.
func (c Channel) IsMarketplace() bool {
	switch c {
	case ChannelShopify, ChannelEtsy, ChannelAmazon, ChannelEbay:
		return true
	}
	return false
}

// FulfillmentStatus описывает жизненный цикл исполнения заказа.
type FulfillmentStatus string

const (
	// FulfillmentPending — заказ создан, сборка ещё не начата.
	FulfillmentPending FulfillmentStatus = "pending"
	// FulfillmentPicking — материалы собираются по picking-списку.
	FulfillmentPicking FulfillmentStatus = "picking"
	// FulfillmentInProduction — изделие в производстве.
	FulfillmentInProduction FulfillmentStatus = "in_production"
	// FulfillmentReadyToShip — изделие готово к отправке.
	FulfillmentReadyToShip FulfillmentStatus = "ready_to_ship"
	// FulfillmentShipped — заказ передан перевозчику.
	FulfillmentShipped FulfillmentStatus = "shipped"
	// FulfillmentDelivered — заказ доставлен покупателю.
	FulfillmentDelivered FulfillmentStatus = "delivered"
	// FulfillmentCancelled — заказ отменён до доставки (терминальный статус).
	FulfillmentCancelled FulfillmentStatus = "cancelled"
	// FulfillmentReturned — заказ возвращён после доставки (терминальный статус).
	FulfillmentReturned FulfillmentStatus = "returned"
)

// fulfillmentTransitions задаёт допустимые переходы статусов исполнения.
// Недопустимый переход — ошибка, а не тихий no-op.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPending:      {FulfillmentPicking, FulfillmentCancelled},
	FulfillmentPicking:      {FulfillmentInProduction, FulfillmentReadyToShip, FulfillmentCancelled},
	FulfillmentInProduction: {FulfillmentReadyToShip, FulfillmentCancelled},
	FulfillmentReadyToShip:  {FulfillmentShipped, FulfillmentCancelled},
	FulfillmentShipped:      {FulfillmentDelivered},
	FulfillmentDelivered:    {FulfillmentReturned},
}

// CanTransition проверяет допустимость перехода from → to по таблице переходов.
func CanTransition(from, to FulfillmentStatus) bool {
	for _, allowed := range fulfillmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, является ли статус терминальным.
func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentCancelled || s == FulfillmentReturned
}

// PaymentStatus отслеживается на заказе, но не управляется state machine.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// SaleStatus — административный статус продажи, независимый от исполнения.
type SaleStatus string

const (
	SaleActive   SaleStatus = "active"
	SaleArchived SaleStatus = "archived"
)

// SaleItem представляет одну позицию продажи.
type SaleItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// Name — название изделия или товара.
	Name string
	// Qty — количество единиц.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	CreatedAt      time.Time
}

// Sale агрегирует заказ из любого канала продаж.
// Денежные поля хранятся в минимальных единицах, чтобы избежать дрейфа float
// при многократной агрегации.
type Sale struct {
	ID      string
	Channel Channel
	// ExternalOrderID — идентификатор заказа на стороне маркетплейса.
	// Пара (Channel, ExternalOrderID) уникальна и служит ключом дедупликации.
	ExternalOrderID   string
	CustomerID        string
	FulfillmentStatus FulfillmentStatus
	PaymentStatus     PaymentStatus
	SaleStatus        SaleStatus
	TotalAmountMinor  int64
	PlatformFeesMinor int64
	// PickingListID устанавливается однократно при создании picking-списка.
	// Инвариант: не более одного открытого списка на продажу.
	PickingListID string
	// TrackingNumber и ShippingProvider заполняются при переходе в shipped.
	TrackingNumber   string
	ShippingProvider string
	Items            []SaleItem
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NetRevenueMinor возвращает выручку за вычетом комиссий площадки.
func (s *Sale) NetRevenueMinor() int64 {
	return s.TotalAmountMinor - s.PlatformFeesMinor
}

// DedupKey возвращает ключ дедупликации для внешних заказов.
// Для ручных продаж без внешнего идентификатора возвращает пустую строку.
func (s *Sale) DedupKey() string {
	if s.ExternalOrderID == "" {
		return ""
	}
	return ExternalOrderKey(s.Channel, s.ExternalOrderID)
}

// ExternalOrderKey собирает составной ключ (channel, externalOrderID).
func ExternalOrderKey(channel Channel, externalOrderID string) string {
	return string(channel) + "/" + externalOrderID
}

// ValidateInvariants проверяет базовые инварианты продажи и возвращает список замечаний.
func (s *Sale) ValidateInvariants() []error {
	var errs []error

	if s.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if s.Channel == "" {
		errs = append(errs, ErrChannelRequired)
	}
	if len(s.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if s.TotalAmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if s.PlatformFeesMinor < 0 || s.PlatformFeesMinor > s.TotalAmountMinor {
		errs = append(errs, ErrFeesInvalid)
	}

	// Сверяем сумму продажи с суммой позиций: qty * price.
	var calc int64
	for _, item := range s.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.UnitPriceMinor
	}
	if calc != s.TotalAmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
