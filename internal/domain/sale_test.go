package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// helper для создания базовой продажи с одной позицией.
func makeSale() domain.Sale {
	now := time.Now().UTC()
	return domain.Sale{
		ID:                "sale-1",
		Channel:           domain.ChannelEtsy,
		ExternalOrderID:   "etsy-1001",
		CustomerID:        "customer-1",
		FulfillmentStatus: domain.FulfillmentPending,
		PaymentStatus:     domain.PaymentPaid,
		SaleStatus:        domain.SaleActive,
		TotalAmountMinor:  500,
		PlatformFeesMinor: 50,
		Items: []domain.SaleItem{
			{
				ID:             "item-1",
				Name:           "wool scarf",
				Qty:            5,
				UnitPriceMinor: 100,
				CreatedAt:      now,
			},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaleValidateInvariants_Ok(t *testing.T) {
	sale := makeSale()
	if errs := sale.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestSaleValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(s *domain.Sale)
	}{
		{
			name: "no customer",
			mut: func(s *domain.Sale) {
				s.CustomerID = ""
			},
		},
		{
			name: "no channel",
			mut: func(s *domain.Sale) {
				s.Channel = ""
			},
		},
		{
			name: "negative amount",
			mut: func(s *domain.Sale) {
				s.TotalAmountMinor = -1
			},
		},
		{
			name: "fees exceed total",
			mut: func(s *domain.Sale) {
				s.PlatformFeesMinor = s.TotalAmountMinor + 1
			},
		},
		{
			name: "no items",
			mut: func(s *domain.Sale) {
				s.Items = nil
			},
		},
		{
			name: "qty invalid",
			mut: func(s *domain.Sale) {
				s.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(s *domain.Sale) {
				s.Items[0].UnitPriceMinor = -5
			},
		},
		{
			name: "amount mismatch",
			mut: func(s *domain.Sale) {
				s.TotalAmountMinor = 999
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sale := makeSale()
			tc.mut(&sale)

			if len(sale.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestSaleNetRevenueMinor(t *testing.T) {
	sale := makeSale()
	if got := sale.NetRevenueMinor(); got != 450 {
		t.Fatalf("expected net revenue 450, got %d", got)
	}
}

func TestSaleDedupKey(t *testing.T) {
	sale := makeSale()
	if got := sale.DedupKey(); got != "etsy/etsy-1001" {
		t.Fatalf("unexpected dedup key %q", got)
	}

	sale.ExternalOrderID = ""
	if got := sale.DedupKey(); got != "" {
		t.Fatalf("expected empty dedup key for manual sale, got %q", got)
	}
}

// Полный перебор пар (from, to): разрешённые переходы берутся из таблицы,
// все остальные должны быть запрещены.
func TestCanTransition_FullMatrix(t *testing.T) {
	statuses := []domain.FulfillmentStatus{
		domain.FulfillmentPending,
		domain.FulfillmentPicking,
		domain.FulfillmentInProduction,
		domain.FulfillmentReadyToShip,
		domain.FulfillmentShipped,
		domain.FulfillmentDelivered,
		domain.FulfillmentCancelled,
		domain.FulfillmentReturned,
	}

	allowed := map[domain.FulfillmentStatus][]domain.FulfillmentStatus{
		domain.FulfillmentPending:      {domain.FulfillmentPicking, domain.FulfillmentCancelled},
		domain.FulfillmentPicking:      {domain.FulfillmentInProduction, domain.FulfillmentReadyToShip, domain.FulfillmentCancelled},
		domain.FulfillmentInProduction: {domain.FulfillmentReadyToShip, domain.FulfillmentCancelled},
		domain.FulfillmentReadyToShip:  {domain.FulfillmentShipped, domain.FulfillmentCancelled},
		domain.FulfillmentShipped:      {domain.FulfillmentDelivered},
		domain.FulfillmentDelivered:    {domain.FulfillmentReturned},
	}

	isAllowed := func(from, to domain.FulfillmentStatus) bool {
		for _, s := range allowed[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := isAllowed(from, to)
			if got := domain.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestFulfillmentStatusIsTerminal(t *testing.T) {
	if !domain.FulfillmentCancelled.IsTerminal() || !domain.FulfillmentReturned.IsTerminal() {
		t.Fatal("cancelled and returned must be terminal")
	}
	if domain.FulfillmentDelivered.IsTerminal() {
		t.Fatal("delivered is not terminal: returns are still possible")
	}
}

func TestChannelIsMarketplace(t *testing.T) {
	for _, c := range domain.MarketplaceChannels {
		if !c.IsMarketplace() {
			t.Errorf("channel %s must be a marketplace", c)
		}
	}
	for _, c := range []domain.Channel{domain.ChannelDirect, domain.ChannelWholesale, domain.ChannelCustomOrder, domain.ChannelOther} {
		if c.IsMarketplace() {
			t.Errorf("channel %s must not be a marketplace", c)
		}
	}
}
