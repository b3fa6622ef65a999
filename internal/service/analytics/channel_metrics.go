// Package analytics считает агрегаты продаж по каналам.
// Функции чистые: не ходят в хранилища и не имеют побочных эффектов,
// на вход принимают уже выбранный срез продаж.
package analytics

import (
	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// ChannelMetric — агрегаты одного канала продаж.
// Все денежные значения в минорных единицах валюты.
type ChannelMetric struct {
	Channel                domain.Channel `json:"channel"`
	OrderCount             int            `json:"orderCount"`
	RevenueMinor           int64          `json:"revenueMinor"`
	AverageOrderValueMinor int64          `json:"averageOrderValueMinor"`
	PlatformFeesMinor      int64          `json:"platformFeesMinor"`
	NetRevenueMinor        int64          `json:"netRevenueMinor"`
	// PercentOfTotal — доля канала в общей выручке, 0..100.
	PercentOfTotal float64 `json:"percentOfTotal"`
}

// Report — сводка по всем каналам за период.
type Report struct {
	TotalOrders       int             `json:"totalOrders"`
	TotalRevenueMinor int64           `json:"totalRevenueMinor"`
	Channels          []ChannelMetric `json:"channels"`
}

// ComputeChannelMetrics строит сводку по каналам.
// Учитывается каждая продажа входного среза независимо от статуса:
// какие продажи попадают в сводку, решает вызывающий при выборе среза.
// Каналы без продаж в срезе не попадают в результат.
func ComputeChannelMetrics(sales []domain.Sale) Report {
	type acc struct {
		count int
		gross int64
		fees  int64
	}

	byChannel := make(map[domain.Channel]*acc)
	var totalRevenue int64
	var totalOrders int

	for _, sale := range sales {
		a, ok := byChannel[sale.Channel]
		if !ok {
			a = &acc{}
			byChannel[sale.Channel] = a
		}
		a.count++
		a.gross += sale.TotalAmountMinor
		a.fees += sale.PlatformFeesMinor
		totalRevenue += sale.TotalAmountMinor
		totalOrders++
	}

	report := Report{
		TotalOrders:       totalOrders,
		TotalRevenueMinor: totalRevenue,
		Channels:          make([]ChannelMetric, 0, len(byChannel)),
	}

	// Детерминированный порядок каналов в отчёте.
	for _, channel := range domain.AllChannels {
		a, ok := byChannel[channel]
		if !ok || a.count == 0 {
			continue
		}
		metric := ChannelMetric{
			Channel:           channel,
			OrderCount:        a.count,
			RevenueMinor:      a.gross,
			PlatformFeesMinor: a.fees,
			NetRevenueMinor:   a.gross - a.fees,
		}
		metric.AverageOrderValueMinor = a.gross / int64(a.count)
		if totalRevenue > 0 {
			metric.PercentOfTotal = float64(a.gross) / float64(totalRevenue) * 100
		}
		report.Channels = append(report.Channels, metric)
	}

	return report
}
