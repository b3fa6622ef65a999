package app

import (
	"context"
	"testing"
)

func TestNewDependencies_InMemoryByDefault(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer deps.Close()

	if deps.Sales == nil || deps.Customers == nil || deps.Mappings == nil {
		t.Fatal("expected sale/customer/mapping repositories to be initialized")
	}
	if deps.Pickings == nil || deps.Timeline == nil || deps.Outbox == nil {
		t.Fatal("expected picking/timeline/outbox repositories to be initialized")
	}
	if deps.Inventory == nil {
		t.Fatal("expected inventory service to be initialized")
	}
	if deps.Store != nil {
		t.Fatal("expected no postgres store without a dsn")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Fatalf("unexpected metrics addr: %s", cfg.MetricsAddr)
	}
	if cfg.MaxConcurrentSyncs != 4 {
		t.Fatalf("unexpected max concurrent syncs: %d", cfg.MaxConcurrentSyncs)
	}
	if cfg.ShopifyBaseURL != "" {
		t.Fatal("shopify base url must be empty by default, it is shop-specific")
	}
	if cfg.EtsyBaseURL == "" || cfg.AmazonBaseURL == "" || cfg.EbayBaseURL == "" {
		t.Fatal("expected default marketplace api hosts to be set")
	}
}
