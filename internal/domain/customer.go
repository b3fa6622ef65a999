package domain

import (
	"strings"
	"time"
)

// CustomerStatus — классификация активности покупателя.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerBlocked  CustomerStatus = "blocked"
)

// CustomerTier — уровень покупателя для маркетинга; поведения в этом ядре не имеет.
type CustomerTier string

const (
	TierStandard CustomerTier = "standard"
	TierRepeat   CustomerTier = "repeat"
	TierVIP      CustomerTier = "vip"
)

// CustomerSource — происхождение записи о покупателе.
type CustomerSource string

const (
	SourceMarketplace CustomerSource = "marketplace"
	SourceDirect      CustomerSource = "direct"
	SourceImport      CustomerSource = "import"
)

// Customer — личность покупателя, общая для всех каналов.
// Email используется для дедупликации, но уникальность на записи не
// форсируется: совпадение разрешается через CustomerResolver.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Status    CustomerStatus
	Tier      CustomerTier
	Source    CustomerSource
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizedEmail возвращает email в каноническом виде для сравнения без
// учёта регистра.
func (c *Customer) NormalizedEmail() string {
	return NormalizeEmail(c.Email)
}

// NormalizeEmail приводит email к каноническому виду для дедупликации.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExternalIdentityMapping связывает внешнюю личность (platform, externalCustomerID)
// ровно с одним внутренним Customer.ID. Создаётся один раз, дальше только читается.
// Один Customer.ID может быть целью нескольких маппингов с разных площадок.
type ExternalIdentityMapping struct {
	Platform           Channel
	ExternalCustomerID string
	CustomerID         string
	CreatedAt          time.Time
}

// NormalizedOrder — заказ маркетплейса, приведённый адаптером к канонической форме.
// Оркестратор превращает его в Sale после резолва покупателя.
type NormalizedOrder struct {
	Channel            Channel
	ExternalOrderID    string
	ExternalCustomerID string
	CustomerName       string
	CustomerEmail      string
	TotalAmountMinor   int64
	PlatformFeesMinor  int64
	PlacedAt           time.Time
	Items              []SaleItem
}

// ValidateInvariants проверяет, что нормализованный заказ пригоден для ингеста.
func (o *NormalizedOrder) ValidateInvariants() []error {
	var errs []error

	if o.Channel == "" {
		errs = append(errs, ErrChannelRequired)
	}
	if o.ExternalOrderID == "" {
		errs = append(errs, ErrExternalOrderIDRequired)
	}
	if o.ExternalCustomerID == "" {
		errs = append(errs, ErrExternalCustomerIDRequired)
	}
	if o.TotalAmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
