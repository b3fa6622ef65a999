package platform

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Итоговая комиссия eBay для handmade-категорий: 13.25%.
const ebayFeeRateBps = 1325

// EbayAdapter забирает заказы из eBay Fulfillment API.
type EbayAdapter struct {
	client *apiClient
}

// NewEbayAdapter создаёт адаптер eBay.
func NewEbayAdapter(baseURL string, creds *CredentialStore, httpClient *http.Client) *EbayAdapter {
	return &EbayAdapter{
		client: newAPIClient(domain.ChannelEbay, baseURL, creds, httpClient),
	}
}

// Platform возвращает канал адаптера.
func (a *EbayAdapter) Platform() domain.Channel {
	return domain.ChannelEbay
}

type ebayOrdersResponse struct {
	Orders []ebayOrder `json:"orders"`
}

type ebayOrder struct {
	OrderID      string    `json:"orderId"`
	CreationDate time.Time `json:"creationDate"`
	Buyer        struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"buyer"`
	PricingSummary struct {
		Total struct {
			Value string `json:"value"`
		} `json:"total"`
	} `json:"pricingSummary"`
	LineItems []struct {
		Title    string `json:"title"`
		Quantity int32  `json:"quantity"`
		Cost     struct {
			Value string `json:"value"`
		} `json:"lineItemCost"`
	} `json:"lineItems"`
}

// FetchOrders возвращает заказы, созданные начиная с since.
func (a *EbayAdapter) FetchOrders(ctx context.Context, since time.Time) ([]domain.NormalizedOrder, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("filter", "creationdate:["+since.UTC().Format(time.RFC3339)+"..]")
	}

	var payload ebayOrdersResponse
	if err := a.client.getJSON(ctx, "/sell/fulfillment/v1/order", query, &payload); err != nil {
		return nil, err
	}

	orders := make([]domain.NormalizedOrder, 0, len(payload.Orders))
	for _, o := range payload.Orders {
		total, err := parseMoneyMinor(o.PricingSummary.Total.Value)
		if err != nil {
			return nil, err
		}

		items := make([]domain.SaleItem, 0, len(o.LineItems))
		for _, li := range o.LineItems {
			price, err := parseMoneyMinor(li.Cost.Value)
			if err != nil {
				return nil, err
			}
			items = append(items, domain.SaleItem{
				ID:             uuid.NewString(),
				Name:           li.Title,
				Qty:            li.Quantity,
				UnitPriceMinor: price,
				CreatedAt:      o.CreationDate,
			})
		}

		orders = append(orders, domain.NormalizedOrder{
			Channel:            domain.ChannelEbay,
			ExternalOrderID:    o.OrderID,
			ExternalCustomerID: o.Buyer.Username,
			CustomerName:       o.Buyer.Username,
			CustomerEmail:      o.Buyer.Email,
			TotalAmountMinor:   total,
			PlatformFeesMinor:  feeByRate(total, ebayFeeRateBps, 0),
			PlacedAt:           o.CreationDate,
			Items:              items,
		})
	}
	return orders, nil
}

// NotifyShipped создаёт shipping fulfillment с трекингом.
func (a *EbayAdapter) NotifyShipped(ctx context.Context, sale domain.Sale) error {
	path := "/sell/fulfillment/v1/order/" + sale.ExternalOrderID + "/shipping_fulfillment"
	return a.client.postJSON(ctx, path, map[string]any{
		"trackingNumber":  sale.TrackingNumber,
		"shippingCarrier": sale.ShippingProvider,
	})
}

var (
	_ domain.PlatformAdapter     = (*EbayAdapter)(nil)
	_ domain.FulfillmentNotifier = (*EbayAdapter)(nil)
)
