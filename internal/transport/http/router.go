package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/cache"
	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/service/analytics"
	"github.com/vladislavdragonenkov/channelsync/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/channelsync/internal/service/picking"
	syncsvc "github.com/vladislavdragonenkov/channelsync/internal/service/sync"
)

// reportTTL ограничивает возраст мемоизированного отчёта по каналам.
const reportTTL = 30 * time.Second

// Handlers объединяет зависимости HTTP-слоя.
type Handlers struct {
	orchestrator *syncsvc.Orchestrator
	fulfillment  *fulfillment.StateMachine
	pickings     *picking.Coordinator
	sales        domain.SaleRepository
	oauth        domain.OAuthService
	logger       *log.Entry

	reportCache *cache.Expiring[string, analytics.Report]
}

// NewHandlers создаёт HTTP-хендлеры сервиса.
func NewHandlers(
	orchestrator *syncsvc.Orchestrator,
	sm *fulfillment.StateMachine,
	pickings *picking.Coordinator,
	sales domain.SaleRepository,
	oauth domain.OAuthService,
) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		fulfillment:  sm,
		pickings:     pickings,
		sales:        sales,
		oauth:        oauth,
		logger:       log.WithField("component", "http_api"),
		reportCache:  cache.New[string, analytics.Report]("channel_report"),
	}
}

// NewRouter собирает gin-роутер со всеми маршрутами API.
func NewRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))

	api := router.Group("/api/v1")
	h.RegisterRoutes(api)

	return router
}

// RegisterRoutes регистрирует маршруты API на переданной группе.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/sync", h.SyncAll)
	api.POST("/sync/:platform", h.SyncPlatform)

	api.GET("/sales", h.ListSales)
	api.GET("/sales/:saleId", h.GetSale)
	api.GET("/sales/:saleId/timeline", h.GetTimeline)
	api.POST("/sales/:saleId/transition", h.Transition)
	api.POST("/sales/:saleId/picking-list", h.CreatePickingList)

	api.GET("/picking-lists/:listId", h.GetPickingList)
	api.PATCH("/picking-lists/:listId/items/:itemId", h.UpdatePickedQuantity)
	api.POST("/picking-lists/:listId/complete", h.CompletePickingList)
	api.POST("/picking-lists/:listId/cancel", h.CancelPickingList)

	api.GET("/reports/channels", h.ChannelReport)

	api.GET("/oauth/:platform/url", h.OAuthURL)
	api.POST("/oauth/:platform/exchange", h.OAuthExchange)
}

// requestLogger пишет одну структурированную строку на запрос.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	}
}
