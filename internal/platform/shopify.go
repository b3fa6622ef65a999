package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Комиссия Shopify Payments: 2.9% + 30 минорных единиц за транзакцию.
const (
	shopifyFeeRateBps    = 290
	shopifyFeeFixedMinor = 30
)

// ShopifyAdapter забирает заказы из Shopify Admin API.
type ShopifyAdapter struct {
	client *apiClient
}

// NewShopifyAdapter создаёт адаптер Shopify.
// baseURL — адрес магазина, например https://shop.myshopify.com/admin/api/2024-01.
func NewShopifyAdapter(baseURL string, creds *CredentialStore, httpClient *http.Client) *ShopifyAdapter {
	return &ShopifyAdapter{
		client: newAPIClient(domain.ChannelShopify, baseURL, creds, httpClient),
	}
}

// Platform возвращает канал адаптера.
func (a *ShopifyAdapter) Platform() domain.Channel {
	return domain.ChannelShopify
}

type shopifyOrdersResponse struct {
	Orders []shopifyOrder `json:"orders"`
}

type shopifyOrder struct {
	ID         int64     `json:"id"`
	TotalPrice string    `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
	Customer   struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"customer"`
	LineItems []struct {
		Title    string `json:"title"`
		Quantity int32  `json:"quantity"`
		Price    string `json:"price"`
	} `json:"line_items"`
}

// FetchOrders возвращает оплаченные заказы, созданные начиная с since.
func (a *ShopifyAdapter) FetchOrders(ctx context.Context, since time.Time) ([]domain.NormalizedOrder, error) {
	query := url.Values{
		"status":           {"open"},
		"financial_status": {"paid"},
	}
	if !since.IsZero() {
		query.Set("created_at_min", since.UTC().Format(time.RFC3339))
	}

	var payload shopifyOrdersResponse
	if err := a.client.getJSON(ctx, "/orders.json", query, &payload); err != nil {
		return nil, err
	}

	orders := make([]domain.NormalizedOrder, 0, len(payload.Orders))
	for _, o := range payload.Orders {
		total, err := parseMoneyMinor(o.TotalPrice)
		if err != nil {
			return nil, fmt.Errorf("shopify order %d: %w", o.ID, err)
		}

		items := make([]domain.SaleItem, 0, len(o.LineItems))
		for _, li := range o.LineItems {
			price, err := parseMoneyMinor(li.Price)
			if err != nil {
				return nil, fmt.Errorf("shopify order %d line item: %w", o.ID, err)
			}
			items = append(items, domain.SaleItem{
				ID:             uuid.NewString(),
				Name:           li.Title,
				Qty:            li.Quantity,
				UnitPriceMinor: price,
				CreatedAt:      o.CreatedAt,
			})
		}

		orders = append(orders, domain.NormalizedOrder{
			Channel:            domain.ChannelShopify,
			ExternalOrderID:    fmt.Sprintf("%d", o.ID),
			ExternalCustomerID: fmt.Sprintf("%d", o.Customer.ID),
			CustomerName:       joinName(o.Customer.FirstName, o.Customer.LastName),
			CustomerEmail:      o.Customer.Email,
			TotalAmountMinor:   total,
			PlatformFeesMinor:  feeByRate(total, shopifyFeeRateBps, shopifyFeeFixedMinor),
			PlacedAt:           o.CreatedAt,
			Items:              items,
		})
	}
	return orders, nil
}

// NotifyShipped сообщает Shopify об отгрузке заказа.
func (a *ShopifyAdapter) NotifyShipped(ctx context.Context, sale domain.Sale) error {
	body := map[string]any{
		"fulfillment": map[string]any{
			"tracking_number":  sale.TrackingNumber,
			"tracking_company": sale.ShippingProvider,
			"notify_customer":  true,
		},
	}
	return a.client.postJSON(ctx, fmt.Sprintf("/orders/%s/fulfillments.json", sale.ExternalOrderID), body)
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

var (
	_ domain.PlatformAdapter     = (*ShopifyAdapter)(nil)
	_ domain.FulfillmentNotifier = (*ShopifyAdapter)(nil)
)
