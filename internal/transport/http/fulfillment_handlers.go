package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/service/fulfillment"
)

// Transition переводит продажу в целевой статус исполнения.
func (h *Handlers) Transition(c *gin.Context) {
	saleID := c.Param("saleId")

	var req struct {
		Target           string `json:"target" binding:"required"`
		Reason           string `json:"reason"`
		TrackingNumber   string `json:"trackingNumber"`
		ShippingProvider string `json:"shippingProvider"`
		AssignedTo       string `json:"assignedTo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sale, err := h.fulfillment.Transition(c.Request.Context(), saleID, fulfillment.TransitionRequest{
		Target:           domain.FulfillmentStatus(req.Target),
		Reason:           req.Reason,
		TrackingNumber:   req.TrackingNumber,
		ShippingProvider: req.ShippingProvider,
		AssignedTo:       req.AssignedTo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSaleResponse(sale))
}

// GetSale возвращает продажу по идентификатору.
func (h *Handlers) GetSale(c *gin.Context) {
	sale, err := h.sales.Get(c.Param("saleId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSaleResponse(sale))
}

// ListSales возвращает продажи, отфильтрованные по каналу и окну дат.
func (h *Handlers) ListSales(c *gin.Context) {
	filter, err := saleFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sales, err := h.sales.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]saleResponse, 0, len(sales))
	for _, sale := range sales {
		result = append(result, toSaleResponse(sale))
	}
	c.JSON(http.StatusOK, gin.H{"sales": result})
}

// GetTimeline возвращает хронологию событий продажи.
func (h *Handlers) GetTimeline(c *gin.Context) {
	events, err := h.fulfillment.Timeline(c.Param("saleId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": toTimelineResponse(events)})
}

func saleFilterFromQuery(c *gin.Context) (domain.SaleFilter, error) {
	filter := domain.SaleFilter{Channel: domain.Channel(c.Query("channel"))}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.SaleFilter{}, err
		}
		filter.Since = since
	}
	if raw := c.Query("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.SaleFilter{}, err
		}
		filter.Until = until
	}

	return filter, nil
}
