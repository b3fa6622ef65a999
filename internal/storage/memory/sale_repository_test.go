package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

func testSale(id, external string) domain.Sale {
	now := time.Now().UTC()
	return domain.Sale{
		ID:                id,
		Channel:           domain.ChannelShopify,
		ExternalOrderID:   external,
		CustomerID:        "customer-1",
		FulfillmentStatus: domain.FulfillmentPending,
		TotalAmountMinor:  300,
		PlatformFeesMinor: 30,
		Items: []domain.SaleItem{
			{ID: "item-1", Name: "mug", Qty: 3, UnitPriceMinor: 100, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaleRepository_CreateGet(t *testing.T) {
	repo := NewSaleRepository()
	sale := testSale("sale-1", "shp-1")

	if err := repo.Create(sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.Get("sale-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ExternalOrderID != "shp-1" || len(got.Items) != 1 {
		t.Fatalf("unexpected sale: %+v", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestSaleRepository_CreateDuplicate(t *testing.T) {
	repo := NewSaleRepository()
	sale := testSale("sale-1", "shp-1")

	if err := repo.Create(sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(sale); !errors.Is(err, domain.ErrSaleVersionConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestSaleRepository_SaveVersionConflict(t *testing.T) {
	repo := NewSaleRepository()
	if err := repo.Create(testSale("sale-1", "shp-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, _ := repo.Get("sale-1")
	second, _ := repo.Get("sale-1")

	first.FulfillmentStatus = domain.FulfillmentPicking
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second.FulfillmentStatus = domain.FulfillmentCancelled
	if err := repo.Save(second); !errors.Is(err, domain.ErrSaleVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, _ := repo.Get("sale-1")
	if got.FulfillmentStatus != domain.FulfillmentPicking || got.Version != 1 {
		t.Fatalf("unexpected state after conflict: %+v", got)
	}
}

func TestSaleRepository_ListExternalKeys(t *testing.T) {
	repo := NewSaleRepository()
	if err := repo.Create(testSale("sale-1", "shp-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	manual := testSale("sale-2", "")
	manual.Channel = domain.ChannelDirect
	if err := repo.Create(manual); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	keys, err := repo.ListExternalKeys()
	if err != nil {
		t.Fatalf("list keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 external key, got %d", len(keys))
	}
	if _, ok := keys[domain.ExternalOrderKey(domain.ChannelShopify, "shp-1")]; !ok {
		t.Fatal("expected shopify key in dedup set")
	}
}

func TestSaleRepository_ListFilter(t *testing.T) {
	repo := NewSaleRepository()

	old := testSale("sale-old", "shp-old")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	if err := repo.Create(old); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	fresh := testSale("sale-new", "shp-new")
	if err := repo.Create(fresh); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	etsy := testSale("sale-etsy", "etsy-1")
	etsy.Channel = domain.ChannelEtsy
	if err := repo.Create(etsy); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byChannel, err := repo.List(domain.SaleFilter{Channel: domain.ChannelEtsy})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byChannel) != 1 || byChannel[0].ID != "sale-etsy" {
		t.Fatalf("unexpected channel filter result: %+v", byChannel)
	}

	since, err := repo.List(domain.SaleFilter{Since: time.Now().UTC().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("expected 2 recent sales, got %d", len(since))
	}
}
