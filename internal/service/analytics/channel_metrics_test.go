package analytics

import (
	"testing"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

func sale(channel domain.Channel, total, fees int64, status domain.FulfillmentStatus) domain.Sale {
	return domain.Sale{
		Channel:           channel,
		TotalAmountMinor:  total,
		PlatformFeesMinor: fees,
		FulfillmentStatus: status,
	}
}

func TestComputeChannelMetrics_Empty(t *testing.T) {
	report := ComputeChannelMetrics(nil)
	if report.TotalOrders != 0 || report.TotalRevenueMinor != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if len(report.Channels) != 0 {
		t.Fatalf("expected no channels, got %d", len(report.Channels))
	}
}

func TestComputeChannelMetrics_OmitsZeroChannels(t *testing.T) {
	report := ComputeChannelMetrics([]domain.Sale{
		sale(domain.ChannelEtsy, 1000, 65, domain.FulfillmentShipped),
	})

	if len(report.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(report.Channels))
	}
	if report.Channels[0].Channel != domain.ChannelEtsy {
		t.Fatalf("unexpected channel %q", report.Channels[0].Channel)
	}
}

func TestComputeChannelMetrics_Aggregation(t *testing.T) {
	report := ComputeChannelMetrics([]domain.Sale{
		sale(domain.ChannelShopify, 3000, 90, domain.FulfillmentDelivered),
		sale(domain.ChannelShopify, 1000, 30, domain.FulfillmentPending),
		sale(domain.ChannelDirect, 1000, 0, domain.FulfillmentPending),
	})

	if report.TotalOrders != 3 {
		t.Fatalf("expected 3 orders, got %d", report.TotalOrders)
	}
	if report.TotalRevenueMinor != 5000 {
		t.Fatalf("expected total 5000, got %d", report.TotalRevenueMinor)
	}

	var shopify, direct ChannelMetric
	for _, m := range report.Channels {
		switch m.Channel {
		case domain.ChannelShopify:
			shopify = m
		case domain.ChannelDirect:
			direct = m
		}
	}

	if shopify.OrderCount != 2 || shopify.RevenueMinor != 4000 {
		t.Fatalf("unexpected shopify aggregate: %+v", shopify)
	}
	if shopify.AverageOrderValueMinor != 2000 {
		t.Fatalf("expected AOV 2000, got %d", shopify.AverageOrderValueMinor)
	}
	if shopify.NetRevenueMinor != 4000-120 {
		t.Fatalf("unexpected net revenue %d", shopify.NetRevenueMinor)
	}
	if shopify.PercentOfTotal != 80 {
		t.Fatalf("expected 80%% of total, got %v", shopify.PercentOfTotal)
	}
	if direct.PercentOfTotal != 20 {
		t.Fatalf("expected 20%% of total, got %v", direct.PercentOfTotal)
	}
}

func TestComputeChannelMetrics_CountsEverySaleInSlice(t *testing.T) {
	input := []domain.Sale{
		sale(domain.ChannelEbay, 500, 10, domain.FulfillmentCancelled),
		sale(domain.ChannelShopify, 1000, 29, domain.FulfillmentDelivered),
	}
	report := ComputeChannelMetrics(input)

	if report.TotalOrders != len(input) {
		t.Fatalf("expected %d orders, got %d", len(input), report.TotalOrders)
	}

	// Выручка по каналам сходится с суммой по входному срезу:
	// фильтрация по статусу — ответственность вызывающего.
	var inputTotal, channelsTotal int64
	for _, s := range input {
		inputTotal += s.TotalAmountMinor
	}
	for _, m := range report.Channels {
		channelsTotal += m.RevenueMinor
	}
	if channelsTotal != inputTotal || report.TotalRevenueMinor != inputTotal {
		t.Fatalf("revenue mismatch: channels=%d total=%d input=%d",
			channelsTotal, report.TotalRevenueMinor, inputTotal)
	}
}
