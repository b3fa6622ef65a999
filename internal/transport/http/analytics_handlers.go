package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/channelsync/internal/service/analytics"
)

// ChannelReport возвращает агрегированные метрики по каналам продаж.
// Сам агрегатор чистый; мемоизация живёт здесь, в кэше с коротким TTL,
// ключуясь строкой фильтра.
func (h *Handlers) ChannelReport(c *gin.Context) {
	filter, err := saleFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := string(filter.Channel) + "|" + filter.Since.String() + "|" + filter.Until.String()
	if report, ok := h.reportCache.Get(key); ok {
		c.JSON(http.StatusOK, report)
		return
	}

	sales, err := h.sales.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	report := analytics.ComputeChannelMetrics(sales)
	h.reportCache.Set(key, report, reportTTL)

	c.JSON(http.StatusOK, report)
}
