package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/metrics"
	"github.com/vladislavdragonenkov/channelsync/internal/platform"
	"github.com/vladislavdragonenkov/channelsync/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/channelsync/internal/service/inventory"
	"github.com/vladislavdragonenkov/channelsync/internal/service/picking"
	"github.com/vladislavdragonenkov/channelsync/internal/service/resolver"
	syncsvc "github.com/vladislavdragonenkov/channelsync/internal/service/sync"
	"github.com/vladislavdragonenkov/channelsync/internal/storage/memory"
)

type fakeAdapter struct {
	platform domain.Channel
	orders   []domain.NormalizedOrder
	err      error
}

func (a *fakeAdapter) Platform() domain.Channel { return a.platform }

func (a *fakeAdapter) FetchOrders(_ context.Context, _ time.Time) ([]domain.NormalizedOrder, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.orders, nil
}

type apiFixture struct {
	router    *gin.Engine
	sales     domain.SaleRepository
	inventory *inventory.MockService
}

func newAPIFixture(t *testing.T, adapters ...domain.PlatformAdapter) *apiFixture {
	t.Helper()

	m := metrics.NewSyncMetrics()
	sales := memory.NewSaleRepository()
	customers := memory.NewCustomerRepository()
	mappings := memory.NewMappingRepository()
	lists := memory.NewPickingListRepository()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()
	inv := inventory.NewMockService()

	res := resolver.New(customers, mappings, m)
	orchestrator := syncsvc.NewOrchestrator(sales, res, adapters, outbox, m)
	pickings := picking.NewCoordinator(lists, inv)
	sm := fulfillment.NewStateMachine(sales, pickings, inv, nil, timeline, outbox, m)
	oauth := platform.NewOAuthService(map[domain.Channel]string{
		domain.ChannelShopify: "client-123",
	})

	handlers := NewHandlers(orchestrator, sm, pickings, sales, oauth)
	return &apiFixture{
		router:    NewRouter(handlers),
		sales:     sales,
		inventory: inv,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func seedSale(t *testing.T, f *apiFixture, id string, channel domain.Channel, amount int64) domain.Sale {
	t.Helper()

	sale := domain.Sale{
		ID:                id,
		Channel:           channel,
		CustomerID:        "cust-1",
		FulfillmentStatus: domain.FulfillmentPending,
		PaymentStatus:     domain.PaymentPaid,
		SaleStatus:        domain.SaleActive,
		TotalAmountMinor:  amount,
		Items: []domain.SaleItem{
			{ID: id + "-item", Name: "mug", Qty: 1, UnitPriceMinor: amount},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.sales.Create(sale))
	return sale
}

func TestSyncAllEndpoint(t *testing.T) {
	adapter := &fakeAdapter{
		platform: domain.ChannelShopify,
		orders: []domain.NormalizedOrder{
			{
				Channel:            domain.ChannelShopify,
				ExternalOrderID:    "1001",
				ExternalCustomerID: "buyer-1",
				CustomerEmail:      "buyer@example.com",
				TotalAmountMinor:   2500,
				PlatformFeesMinor:  100,
				Items:              []domain.SaleItem{{ID: "li-1", Name: "bowl", Qty: 1, UnitPriceMinor: 2500}},
			},
		},
	}
	f := newAPIFixture(t, adapter)

	rec := f.do(t, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Platforms []syncsvc.PlatformReport `json:"platforms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Platforms, 1)
	assert.Equal(t, 1, resp.Platforms[0].Ingested)

	// Повторный запуск того же окна не создаёт дубликатов.
	rec = f.do(t, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Platforms[0].Ingested)
	assert.Equal(t, 1, resp.Platforms[0].Duplicates)
}

func TestSyncPlatformEndpointUnknownPlatform(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/sync/direct", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncEndpointRejectsBadSince(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/sync", map[string]string{"since": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	sale := seedSale(t, f, "sale-1", domain.ChannelDirect, 2500)
	f.inventory.RequirementsBySale[sale.ID] = []domain.MaterialRequirement{
		{MaterialID: "clay", Name: "clay", Qty: 2},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/sales/sale-1/transition", map[string]string{
		"target":     "picking",
		"assignedTo": "maria",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp saleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "picking", resp.FulfillmentStatus)
	assert.NotEmpty(t, resp.PickingListID)
}

func TestTransitionEndpointInvalidTransition(t *testing.T) {
	f := newAPIFixture(t)
	seedSale(t, f, "sale-1", domain.ChannelDirect, 2500)

	rec := f.do(t, http.MethodPost, "/api/v1/sales/sale-1/transition", map[string]string{
		"target": "delivered",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTransitionEndpointSaleNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/sales/missing/transition", map[string]string{
		"target": "picking",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSaleEndpointNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/sales/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimelineEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	sale := seedSale(t, f, "sale-1", domain.ChannelDirect, 2500)
	f.inventory.RequirementsBySale[sale.ID] = []domain.MaterialRequirement{
		{MaterialID: "clay", Name: "clay", Qty: 1},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/sales/sale-1/transition", map[string]string{"target": "picking"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/sales/sale-1/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []timelineEventResponse `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "fulfillment.picking", resp.Events[0].Type)
}

func TestPickingListEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	sale := seedSale(t, f, "sale-1", domain.ChannelDirect, 2500)
	f.inventory.RequirementsBySale[sale.ID] = []domain.MaterialRequirement{
		{MaterialID: "clay", Name: "clay", Qty: 3},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/sales/sale-1/picking-list", map[string]string{"assignedTo": "maria"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var list pickingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	// Повторное создание для той же продажи отклоняется.
	rec = f.do(t, http.MethodPost, "/api/v1/sales/sale-1/picking-list", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Кламп сверху: 10 при требуемых 3.
	rec = f.do(t, http.MethodPatch, "/api/v1/picking-lists/"+list.ID+"/items/"+list.Items[0].ID,
		map[string]int32{"pickedQty": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int32(3), list.Items[0].PickedQty)

	rec = f.do(t, http.MethodPost, "/api/v1/picking-lists/"+list.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "completed", list.Status)
}

func TestPickingCompleteRequiresFullPickWithoutOverride(t *testing.T) {
	f := newAPIFixture(t)
	sale := seedSale(t, f, "sale-1", domain.ChannelDirect, 2500)
	f.inventory.RequirementsBySale[sale.ID] = []domain.MaterialRequirement{
		{MaterialID: "clay", Name: "clay", Qty: 3},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/sales/sale-1/picking-list", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var list pickingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))

	rec = f.do(t, http.MethodPost, "/api/v1/picking-lists/"+list.ID+"/complete", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/picking-lists/"+list.ID+"/complete", map[string]bool{"override": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "completed", list.Status)
}

func TestChannelReportEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	seedSale(t, f, "sale-1", domain.ChannelShopify, 8000)
	seedSale(t, f, "sale-2", domain.ChannelEtsy, 2000)

	rec := f.do(t, http.MethodGet, "/api/v1/reports/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		TotalOrders       int   `json:"totalOrders"`
		TotalRevenueMinor int64 `json:"totalRevenueMinor"`
		Channels          []struct {
			Channel        string  `json:"channel"`
			PercentOfTotal float64 `json:"percentOfTotal"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.TotalOrders)
	assert.Equal(t, int64(10000), report.TotalRevenueMinor)
	require.Len(t, report.Channels, 2)
	assert.Equal(t, "shopify", report.Channels[0].Channel)
	assert.InDelta(t, 80.0, report.Channels[0].PercentOfTotal, 0.001)
}

func TestChannelReportMemoized(t *testing.T) {
	f := newAPIFixture(t)
	seedSale(t, f, "sale-1", domain.ChannelShopify, 8000)

	rec := f.do(t, http.MethodGet, "/api/v1/reports/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Новая продажа не видна, пока не истёк TTL мемоизированного отчёта.
	seedSale(t, f, "sale-2", domain.ChannelEtsy, 2000)
	rec = f.do(t, http.MethodGet, "/api/v1/reports/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		TotalOrders int `json:"totalOrders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TotalOrders)
}

func TestOAuthURLEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet,
		"/api/v1/oauth/shopify/url?redirect_uri=https%3A%2F%2Fapp.example.com%2Fcb&scopes=read_orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.URL, "client_id=client-123")
	assert.Contains(t, resp.URL, "read_orders")
}

func TestOAuthURLRequiresRedirectURI(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/oauth/shopify/url", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthExchangeNotImplemented(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/oauth/shopify/exchange", map[string]string{
		"code":        "abc",
		"redirectUri": "https://app.example.com/cb",
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
