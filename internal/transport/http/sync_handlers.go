package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// defaultSyncWindow используется, когда клиент не передал since.
const defaultSyncWindow = 24 * time.Hour

type syncRequest struct {
	// Since — нижняя граница окна в RFC3339; пустая строка означает
	// окно по умолчанию.
	Since string `json:"since"`
}

func (r *syncRequest) sinceTime(now time.Time) (time.Time, error) {
	if r.Since == "" {
		return now.Add(-defaultSyncWindow), nil
	}
	return time.Parse(time.RFC3339, r.Since)
}

// SyncAll запускает синхронизацию всех подключённых площадок.
func (h *Handlers) SyncAll(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	since, err := req.sinceTime(time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
		return
	}

	reports, err := h.orchestrator.SyncAll(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"platforms": reports})
}

// SyncPlatform запускает синхронизацию одной площадки.
func (h *Handlers) SyncPlatform(c *gin.Context) {
	channel := domain.Channel(c.Param("platform"))
	if !channel.IsMarketplace() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown marketplace platform"})
		return
	}

	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	since, err := req.sinceTime(time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
		return
	}

	report, err := h.orchestrator.SyncPlatform(c.Request.Context(), channel, since)
	if err != nil {
		respondError(c, err)
		return
	}
	if report.Err != nil {
		respondError(c, report.Err)
		return
	}

	c.JSON(http.StatusOK, report)
}
