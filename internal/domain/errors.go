package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора покупателя.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего канала продаж.
	ErrChannelRequired = errors.New("channel is required")
	// Ошибка отсутствия хотя бы одной позиции в продаже.
	ErrItemsRequired = errors.New("sale must contain at least one item")
	// Ошибка отрицательной суммы продажи.
	ErrAmountNegative = errors.New("total_amount_minor must be non-negative")
	// Ошибка некорректных комиссий (отрицательные или больше суммы).
	ErrFeesInvalid = errors.New("platform_fees_minor must be within [0, total_amount_minor]")
	// Ошибка при некорректном количестве (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы продажи и сумм позиций.
	ErrAmountMismatch = errors.New("sale amount does not match items sum")
	// Ошибка отсутствующего внешнего идентификатора заказа.
	ErrExternalOrderIDRequired = errors.New("external_order_id is required")
	// Ошибка отсутствующего внешнего идентификатора покупателя.
	ErrExternalCustomerIDRequired = errors.New("external_customer_id is required")
	// Ошибка отсутствия позиций в picking-списке.
	ErrPickingItemsRequired = errors.New("picking list must contain at least one item")
	// Ошибка отсутствующего идентификатора материала.
	ErrMaterialIDRequired = errors.New("material_id is required")
	// Ошибка собранного количества вне диапазона [0, required].
	ErrPickedQtyOutOfRange = errors.New("picked qty must be within [0, required qty]")

	// ErrSaleNotFound возвращается, если продажа не найдена в репозитории.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrCustomerNotFound возвращается, если покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrMappingNotFound возвращается, если внешняя личность ещё не привязана.
	ErrMappingNotFound = errors.New("external identity mapping not found")
	// ErrPickingListNotFound возвращается, если picking-список не найден.
	ErrPickingListNotFound = errors.New("picking list not found")
	// ErrPickingItemNotFound возвращается, если позиция списка не найдена.
	ErrPickingItemNotFound = errors.New("picking list item not found")
	// ErrSaleVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrSaleVersionConflict = errors.New("sale version conflict")
	// ErrCustomerExists возвращается при попытке создать покупателя с занятым ID.
	ErrCustomerExists = errors.New("customer already exists")
	// ErrMappingExists возвращается при нарушении уникальности (platform, external_customer_id).
	ErrMappingExists = errors.New("external identity mapping already exists")

	// ErrInvalidTransition — запрошенный переход не разрешён таблицей переходов.
	ErrInvalidTransition = errors.New("invalid fulfillment transition")
	// ErrDuplicatePickingList — у продажи уже есть открытый picking-список.
	ErrDuplicatePickingList = errors.New("sale already has an open picking list")
	// ErrMissingShippingInfo — для отгрузки нужны трек-номер и перевозчик.
	ErrMissingShippingInfo = errors.New("tracking number and shipping provider are required")
	// ErrIncompletePicking — список нельзя завершить, пока собраны не все позиции.
	ErrIncompletePicking = errors.New("picking list is not fully picked")

	// ErrAuthExpired — учётные данные площадки протухли, нужен reconnect.
	// Автоматически не ретраится.
	ErrAuthExpired = errors.New("platform credentials expired")
	// ErrPlatformUnavailable — временная ошибка площадки (сеть/5xx), можно повторить.
	ErrPlatformUnavailable = errors.New("platform temporarily unavailable")
	// ErrSyncInProgress — по этой площадке уже идёт синхронизация.
	ErrSyncInProgress = errors.New("sync already in progress for platform")
	// ErrAuthExchangeUnsupported — обмен OAuth-кода делегирован внешнему сервису.
	ErrAuthExchangeUnsupported = errors.New("oauth code exchange is handled by an external service")

	// ErrInventoryUnavailable — бизнес-ошибка склада (нет материала).
	ErrInventoryUnavailable = errors.New("inventory unavailable")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrSaleVersionConflict)
}

// IsAuthExpired проверяет, требует ли ошибка переподключения площадки.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsRetryable сообщает, имеет ли смысл повторить обращение к площадке.
// Протухшая авторизация не ретраится: оператор должен переподключить площадку.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPlatformUnavailable)
}
