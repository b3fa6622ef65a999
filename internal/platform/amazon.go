package platform

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Реферальная комиссия Amazon для handmade-категории: 15%.
const amazonFeeRateBps = 1500

// AmazonAdapter забирает заказы из Amazon SP-API.
type AmazonAdapter struct {
	marketplaceID string
	client        *apiClient
}

// NewAmazonAdapter создаёт адаптер Amazon для одного marketplace.
func NewAmazonAdapter(baseURL, marketplaceID string, creds *CredentialStore, httpClient *http.Client) *AmazonAdapter {
	return &AmazonAdapter{
		marketplaceID: marketplaceID,
		client:        newAPIClient(domain.ChannelAmazon, baseURL, creds, httpClient),
	}
}

// Platform возвращает канал адаптера.
func (a *AmazonAdapter) Platform() domain.Channel {
	return domain.ChannelAmazon
}

type amazonOrdersResponse struct {
	Payload struct {
		Orders []amazonOrder `json:"Orders"`
	} `json:"payload"`
}

type amazonOrder struct {
	AmazonOrderID string    `json:"AmazonOrderId"`
	PurchaseDate  time.Time `json:"PurchaseDate"`
	OrderTotal    struct {
		Amount string `json:"Amount"`
	} `json:"OrderTotal"`
	BuyerInfo struct {
		BuyerEmail string `json:"BuyerEmail"`
		BuyerName  string `json:"BuyerName"`
	} `json:"BuyerInfo"`
	Items []struct {
		Title     string `json:"Title"`
		Quantity  int32  `json:"QuantityOrdered"`
		ItemPrice struct {
			Amount string `json:"Amount"`
		} `json:"ItemPrice"`
	} `json:"OrderItems"`
}

// FetchOrders возвращает неотгруженные заказы начиная с since.
// Amazon не отдаёт стабильного идентификатора покупателя, поэтому внешней
// личностью служит обфусцированный email заказа.
func (a *AmazonAdapter) FetchOrders(ctx context.Context, since time.Time) ([]domain.NormalizedOrder, error) {
	query := url.Values{
		"MarketplaceIds": {a.marketplaceID},
		"OrderStatuses":  {"Unshipped"},
	}
	if !since.IsZero() {
		query.Set("CreatedAfter", since.UTC().Format(time.RFC3339))
	}

	var payload amazonOrdersResponse
	if err := a.client.getJSON(ctx, "/orders/v0/orders", query, &payload); err != nil {
		return nil, err
	}

	orders := make([]domain.NormalizedOrder, 0, len(payload.Payload.Orders))
	for _, o := range payload.Payload.Orders {
		total, err := parseMoneyMinor(o.OrderTotal.Amount)
		if err != nil {
			return nil, err
		}

		items := make([]domain.SaleItem, 0, len(o.Items))
		for _, it := range o.Items {
			price, err := parseMoneyMinor(it.ItemPrice.Amount)
			if err != nil {
				return nil, err
			}
			items = append(items, domain.SaleItem{
				ID:             uuid.NewString(),
				Name:           it.Title,
				Qty:            it.Quantity,
				UnitPriceMinor: price,
				CreatedAt:      o.PurchaseDate,
			})
		}

		externalCustomer := o.BuyerInfo.BuyerEmail
		if externalCustomer == "" {
			externalCustomer = "order:" + o.AmazonOrderID
		}

		orders = append(orders, domain.NormalizedOrder{
			Channel:            domain.ChannelAmazon,
			ExternalOrderID:    o.AmazonOrderID,
			ExternalCustomerID: externalCustomer,
			CustomerName:       o.BuyerInfo.BuyerName,
			CustomerEmail:      o.BuyerInfo.BuyerEmail,
			TotalAmountMinor:   total,
			PlatformFeesMinor:  feeByRate(total, amazonFeeRateBps, 0),
			PlacedAt:           o.PurchaseDate,
			Items:              items,
		})
	}
	return orders, nil
}

// NotifyShipped подтверждает отгрузку заказа в SP-API.
func (a *AmazonAdapter) NotifyShipped(ctx context.Context, sale domain.Sale) error {
	return a.client.postJSON(ctx, "/orders/v0/orders/"+sale.ExternalOrderID+"/shipmentConfirmation", map[string]any{
		"marketplaceId":  a.marketplaceID,
		"trackingNumber": sale.TrackingNumber,
		"carrierCode":    sale.ShippingProvider,
	})
}

var (
	_ domain.PlatformAdapter     = (*AmazonAdapter)(nil)
	_ domain.FulfillmentNotifier = (*AmazonAdapter)(nil)
)
