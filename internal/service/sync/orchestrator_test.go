package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/metrics"
	"github.com/vladislavdragonenkov/channelsync/internal/service/resolver"
	"github.com/vladislavdragonenkov/channelsync/internal/storage/memory"
)

// fakeAdapter — настраиваемый адаптер площадки для тестов.
type fakeAdapter struct {
	platform domain.Channel
	orders   []domain.NormalizedOrder
	err      error
	delay    time.Duration

	mu    sync.Mutex
	calls int
}

func (a *fakeAdapter) Platform() domain.Channel { return a.platform }

func (a *fakeAdapter) FetchOrders(ctx context.Context, _ time.Time) ([]domain.NormalizedOrder, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.delay):
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.orders, nil
}

func normalizedOrder(channel domain.Channel, externalID string) domain.NormalizedOrder {
	return domain.NormalizedOrder{
		Channel:            channel,
		ExternalOrderID:    externalID,
		ExternalCustomerID: "ext-" + externalID,
		CustomerName:       "Jane Doe",
		CustomerEmail:      externalID + "@example.com",
		TotalAmountMinor:   1500,
		PlatformFeesMinor:  90,
		PlacedAt:           time.Now().UTC(),
		Items: []domain.SaleItem{
			{ID: "item-1", Name: "vase", Qty: 1, UnitPriceMinor: 1500},
		},
	}
}

func newTestOrchestrator(t *testing.T, adapters ...domain.PlatformAdapter) (*Orchestrator, domain.SaleRepository) {
	t.Helper()
	sales := memory.NewSaleRepository()
	res := resolver.New(memory.NewCustomerRepository(), memory.NewMappingRepository(), metrics.NewSyncMetrics())
	o := NewOrchestrator(sales, res, adapters, memory.NewOutboxRepository(), metrics.NewSyncMetrics())
	return o, sales
}

func TestOrchestrator_SyncAll(t *testing.T) {
	shopify := &fakeAdapter{platform: domain.ChannelShopify, orders: []domain.NormalizedOrder{
		normalizedOrder(domain.ChannelShopify, "shp-1"),
		normalizedOrder(domain.ChannelShopify, "shp-2"),
	}}
	etsy := &fakeAdapter{platform: domain.ChannelEtsy, orders: []domain.NormalizedOrder{
		normalizedOrder(domain.ChannelEtsy, "etsy-1"),
	}}
	o, sales := newTestOrchestrator(t, shopify, etsy)

	reports, err := o.SyncAll(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	total := 0
	for _, report := range reports {
		require.NoError(t, report.Err)
		total += report.Ingested
	}
	assert.Equal(t, 3, total)

	stored, err := sales.List(domain.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestOrchestrator_DedupAcrossRuns(t *testing.T) {
	adapter := &fakeAdapter{platform: domain.ChannelShopify, orders: []domain.NormalizedOrder{
		normalizedOrder(domain.ChannelShopify, "shp-1"),
	}}
	o, sales := newTestOrchestrator(t, adapter)

	report, err := o.SyncPlatform(context.Background(), domain.ChannelShopify, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)

	// Повторный прогон с тем же интервалом не создаёт дубликатов.
	report, err = o.SyncPlatform(context.Background(), domain.ChannelShopify, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Ingested)
	assert.Equal(t, 1, report.Duplicates)

	stored, _ := sales.List(domain.SaleFilter{})
	assert.Len(t, stored, 1)
}

func TestOrchestrator_DedupWithinBatch(t *testing.T) {
	order := normalizedOrder(domain.ChannelEtsy, "etsy-1")
	adapter := &fakeAdapter{platform: domain.ChannelEtsy, orders: []domain.NormalizedOrder{order, order}}
	o, _ := newTestOrchestrator(t, adapter)

	report, err := o.SyncPlatform(context.Background(), domain.ChannelEtsy, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Duplicates)
}

func TestOrchestrator_PlatformErrorIsolated(t *testing.T) {
	broken := &fakeAdapter{platform: domain.ChannelAmazon, err: domain.ErrAuthExpired}
	healthy := &fakeAdapter{platform: domain.ChannelShopify, orders: []domain.NormalizedOrder{
		normalizedOrder(domain.ChannelShopify, "shp-1"),
	}}
	o, sales := newTestOrchestrator(t, broken, healthy)

	reports, err := o.SyncAll(context.Background(), time.Time{})
	require.NoError(t, err)

	var amazonErr error
	ingested := 0
	for _, report := range reports {
		if report.Platform == domain.ChannelAmazon {
			amazonErr = report.Err
		}
		ingested += report.Ingested
	}
	assert.ErrorIs(t, amazonErr, domain.ErrAuthExpired)
	assert.Equal(t, 1, ingested, "healthy platform ingests despite the broken one")

	stored, _ := sales.List(domain.SaleFilter{})
	assert.Len(t, stored, 1)
}

func TestOrchestrator_SingleFlightPerPlatform(t *testing.T) {
	slow := &fakeAdapter{platform: domain.ChannelEbay, delay: 200 * time.Millisecond}
	o, _ := newTestOrchestrator(t, slow)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, err := o.SyncPlatform(context.Background(), domain.ChannelEbay, time.Time{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var rejected, succeeded int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrSyncInProgress):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
}

func TestOrchestrator_UnknownPlatform(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.SyncPlatform(context.Background(), domain.ChannelEtsy, time.Time{})
	assert.ErrorIs(t, err, domain.ErrPlatformUnavailable)
}

func TestOrchestrator_TimeoutClassifiedTransient(t *testing.T) {
	slow := &fakeAdapter{platform: domain.ChannelAmazon, delay: time.Second}
	sales := memory.NewSaleRepository()
	res := resolver.New(memory.NewCustomerRepository(), memory.NewMappingRepository(), metrics.NewSyncMetrics())
	o := NewOrchestrator(sales, res, []domain.PlatformAdapter{slow}, memory.NewOutboxRepository(),
		metrics.NewSyncMetrics(), WithPlatformTimeout(20*time.Millisecond))

	report, err := o.SyncPlatform(context.Background(), domain.ChannelAmazon, time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, report.Err, context.DeadlineExceeded)
	assert.False(t, domain.IsAuthExpired(report.Err))
}

func TestOrchestrator_CancelKeepsPartialProgress(t *testing.T) {
	orders := make([]domain.NormalizedOrder, 50)
	for i := range orders {
		orders[i] = normalizedOrder(domain.ChannelShopify, fmt.Sprintf("shp-%d", i))
	}
	adapter := &fakeAdapter{platform: domain.ChannelShopify, orders: orders}
	o, sales := newTestOrchestrator(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.SyncPlatform(ctx, domain.ChannelShopify, time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, report.Err, context.Canceled)

	stored, _ := sales.List(domain.SaleFilter{})
	assert.Equal(t, len(stored), report.Ingested, "report matches what was actually stored")
}

func TestOrchestrator_InvalidOrderSkipped(t *testing.T) {
	invalid := normalizedOrder(domain.ChannelEtsy, "etsy-bad")
	invalid.ExternalCustomerID = ""
	adapter := &fakeAdapter{platform: domain.ChannelEtsy, orders: []domain.NormalizedOrder{
		invalid,
		normalizedOrder(domain.ChannelEtsy, "etsy-ok"),
	}}
	o, sales := newTestOrchestrator(t, adapter)

	report, err := o.SyncPlatform(context.Background(), domain.ChannelEtsy, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Skipped)

	stored, _ := sales.List(domain.SaleFilter{})
	require.Len(t, stored, 1)
	assert.Equal(t, "etsy-ok", stored[0].ExternalOrderID)
}
