package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreatePickingList создаёт picking-список для продажи.
func (h *Handlers) CreatePickingList(c *gin.Context) {
	saleID := c.Param("saleId")

	var req struct {
		AssignedTo string `json:"assignedTo"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	list, err := h.pickings.CreateForSale(saleID, req.AssignedTo)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPickingListResponse(list))
}

// GetPickingList возвращает picking-список по идентификатору.
func (h *Handlers) GetPickingList(c *gin.Context) {
	list, err := h.pickings.Get(c.Param("listId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPickingListResponse(list))
}

// UpdatePickedQuantity записывает собранное количество позиции.
// Значения за пределами [0, required] сохраняются с молчаливым клампом.
func (h *Handlers) UpdatePickedQuantity(c *gin.Context) {
	var req struct {
		PickedQty int32 `json:"pickedQty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.pickings.UpdateItemQuantity(c.Param("listId"), c.Param("itemId"), req.PickedQty)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPickingListResponse(list))
}

// CompletePickingList завершает список; override разрешает завершение
// при неполном сборе.
func (h *Handlers) CompletePickingList(c *gin.Context) {
	var req struct {
		Override bool `json:"override"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	list, err := h.pickings.Complete(c.Param("listId"), req.Override)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPickingListResponse(list))
}

// CancelPickingList отменяет открытый список.
func (h *Handlers) CancelPickingList(c *gin.Context) {
	list, err := h.pickings.Cancel(c.Param("listId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPickingListResponse(list))
}
