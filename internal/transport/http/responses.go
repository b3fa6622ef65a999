// Package httpapi — HTTP-интерфейс сервиса для веб-клиента.
// Хендлеры транслируют доменные ошибки в HTTP-статусы и не содержат
// бизнес-логики.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

type saleItemResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unitPriceMinor"`
}

type saleResponse struct {
	ID                string             `json:"id"`
	Channel           domain.Channel     `json:"channel"`
	ExternalOrderID   string             `json:"externalOrderId,omitempty"`
	CustomerID        string             `json:"customerId"`
	FulfillmentStatus string             `json:"fulfillmentStatus"`
	PaymentStatus     string             `json:"paymentStatus"`
	SaleStatus        string             `json:"saleStatus"`
	TotalAmountMinor  int64              `json:"totalAmountMinor"`
	PlatformFeesMinor int64              `json:"platformFeesMinor"`
	NetRevenueMinor   int64              `json:"netRevenueMinor"`
	PickingListID     string             `json:"pickingListId,omitempty"`
	TrackingNumber    string             `json:"trackingNumber,omitempty"`
	ShippingProvider  string             `json:"shippingProvider,omitempty"`
	Items             []saleItemResponse `json:"items"`
	Version           int64              `json:"version"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

func toSaleResponse(sale domain.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemResponse{
			ID:             item.ID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
		})
	}
	return saleResponse{
		ID:                sale.ID,
		Channel:           sale.Channel,
		ExternalOrderID:   sale.ExternalOrderID,
		CustomerID:        sale.CustomerID,
		FulfillmentStatus: string(sale.FulfillmentStatus),
		PaymentStatus:     string(sale.PaymentStatus),
		SaleStatus:        string(sale.SaleStatus),
		TotalAmountMinor:  sale.TotalAmountMinor,
		PlatformFeesMinor: sale.PlatformFeesMinor,
		NetRevenueMinor:   sale.NetRevenueMinor(),
		PickingListID:     sale.PickingListID,
		TrackingNumber:    sale.TrackingNumber,
		ShippingProvider:  sale.ShippingProvider,
		Items:             items,
		Version:           sale.Version,
		CreatedAt:         sale.CreatedAt,
		UpdatedAt:         sale.UpdatedAt,
	}
}

type pickingItemResponse struct {
	ID          string `json:"id"`
	MaterialID  string `json:"materialId"`
	Name        string `json:"name"`
	RequiredQty int32  `json:"requiredQty"`
	PickedQty   int32  `json:"pickedQty"`
}

type pickingListResponse struct {
	ID         string                `json:"id"`
	SaleID     string                `json:"saleId,omitempty"`
	Status     string                `json:"status"`
	AssignedTo string                `json:"assignedTo,omitempty"`
	Items      []pickingItemResponse `json:"items"`
	Version    int64                 `json:"version"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

func toPickingListResponse(list domain.PickingList) pickingListResponse {
	items := make([]pickingItemResponse, 0, len(list.Items))
	for _, item := range list.Items {
		items = append(items, pickingItemResponse{
			ID:          item.ID,
			MaterialID:  item.MaterialID,
			Name:        item.Name,
			RequiredQty: item.RequiredQty,
			PickedQty:   item.PickedQty,
		})
	}
	return pickingListResponse{
		ID:         list.ID,
		SaleID:     list.SaleID,
		Status:     string(list.Status),
		AssignedTo: list.AssignedTo,
		Items:      items,
		Version:    list.Version,
		CreatedAt:  list.CreatedAt,
		UpdatedAt:  list.UpdatedAt,
	}
}

type timelineEventResponse struct {
	SaleID   string    `json:"saleId"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toTimelineResponse(events []domain.FulfillmentEvent) []timelineEventResponse {
	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			SaleID:   event.SaleID,
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	return result
}

// respondError транслирует доменную ошибку в HTTP-статус.
func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrSaleNotFound),
		errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrPickingListNotFound),
		errors.Is(err, domain.ErrPickingItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSyncInProgress),
		errors.Is(err, domain.ErrDuplicatePickingList),
		errors.Is(err, domain.ErrSaleVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrMissingShippingInfo),
		errors.Is(err, domain.ErrIncompletePicking):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPlatformUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrAuthExchangeUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
