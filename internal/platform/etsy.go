package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Комиссия Etsy: 6.5% с транзакции.
const etsyFeeRateBps = 650

// EtsyAdapter забирает квитанции (receipts) из Etsy Open API v3.
type EtsyAdapter struct {
	shopID string
	client *apiClient
}

// NewEtsyAdapter создаёт адаптер Etsy для одного магазина.
func NewEtsyAdapter(baseURL, shopID string, creds *CredentialStore, httpClient *http.Client) *EtsyAdapter {
	return &EtsyAdapter{
		shopID: shopID,
		client: newAPIClient(domain.ChannelEtsy, baseURL, creds, httpClient),
	}
}

// Platform возвращает канал адаптера.
func (a *EtsyAdapter) Platform() domain.Channel {
	return domain.ChannelEtsy
}

// etsyMoney — денежный формат Etsy: целая сумма в минорных единицах и делитель.
type etsyMoney struct {
	Amount  int64 `json:"amount"`
	Divisor int64 `json:"divisor"`
}

// minor приводит сумму к двум десятичным знакам независимо от делителя.
func (m etsyMoney) minor() int64 {
	if m.Divisor == 0 || m.Divisor == 100 {
		return m.Amount
	}
	return m.Amount * 100 / m.Divisor
}

type etsyReceiptsResponse struct {
	Results []etsyReceipt `json:"results"`
}

type etsyReceipt struct {
	ReceiptID  int64     `json:"receipt_id"`
	BuyerID    int64     `json:"buyer_user_id"`
	Name       string    `json:"name"`
	BuyerEmail string    `json:"buyer_email"`
	Grandtotal etsyMoney `json:"grandtotal"`
	CreatedTS  int64     `json:"created_timestamp"`
	Transactions []struct {
		Title    string    `json:"title"`
		Quantity int32     `json:"quantity"`
		Price    etsyMoney `json:"price"`
	} `json:"transactions"`
}

// FetchOrders возвращает оплаченные квитанции магазина начиная с since.
func (a *EtsyAdapter) FetchOrders(ctx context.Context, since time.Time) ([]domain.NormalizedOrder, error) {
	query := url.Values{"was_paid": {"true"}}
	if !since.IsZero() {
		query.Set("min_created", strconv.FormatInt(since.Unix(), 10))
	}

	var payload etsyReceiptsResponse
	path := fmt.Sprintf("/application/shops/%s/receipts", a.shopID)
	if err := a.client.getJSON(ctx, path, query, &payload); err != nil {
		return nil, err
	}

	orders := make([]domain.NormalizedOrder, 0, len(payload.Results))
	for _, r := range payload.Results {
		placedAt := time.Unix(r.CreatedTS, 0).UTC()
		total := r.Grandtotal.minor()

		items := make([]domain.SaleItem, 0, len(r.Transactions))
		for _, tx := range r.Transactions {
			items = append(items, domain.SaleItem{
				ID:             uuid.NewString(),
				Name:           tx.Title,
				Qty:            tx.Quantity,
				UnitPriceMinor: tx.Price.minor(),
				CreatedAt:      placedAt,
			})
		}

		orders = append(orders, domain.NormalizedOrder{
			Channel:            domain.ChannelEtsy,
			ExternalOrderID:    strconv.FormatInt(r.ReceiptID, 10),
			ExternalCustomerID: strconv.FormatInt(r.BuyerID, 10),
			CustomerName:       r.Name,
			CustomerEmail:      r.BuyerEmail,
			TotalAmountMinor:   total,
			PlatformFeesMinor:  feeByRate(total, etsyFeeRateBps, 0),
			PlacedAt:           placedAt,
			Items:              items,
		})
	}
	return orders, nil
}

// NotifyShipped передаёт Etsy трекинг отправления.
func (a *EtsyAdapter) NotifyShipped(ctx context.Context, sale domain.Sale) error {
	path := fmt.Sprintf("/application/shops/%s/receipts/%s/tracking", a.shopID, sale.ExternalOrderID)
	return a.client.postJSON(ctx, path, map[string]any{
		"tracking_code": sale.TrackingNumber,
		"carrier_name":  sale.ShippingProvider,
	})
}

var (
	_ domain.PlatformAdapter     = (*EtsyAdapter)(nil)
	_ domain.FulfillmentNotifier = (*EtsyAdapter)(nil)
)
