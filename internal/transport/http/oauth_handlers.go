package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// OAuthURL выдаёт authorize-URL для переподключения площадки.
func (h *Handlers) OAuthURL(c *gin.Context) {
	channel := domain.Channel(c.Param("platform"))
	redirectURI := c.Query("redirect_uri")
	if redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_uri is required"})
		return
	}

	var scopes []string
	if raw := c.Query("scopes"); raw != "" {
		scopes = strings.Split(raw, ",")
	}

	authURL, err := h.oauth.GenerateAuthURL(channel, redirectURI, scopes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

// OAuthExchange принимает OAuth-код; обмен делегирован внешнему сервису,
// поэтому хендлер отвечает типизированной ошибкой, а не тихим успехом.
func (h *Handlers) OAuthExchange(c *gin.Context) {
	channel := domain.Channel(c.Param("platform"))

	var req struct {
		Code        string `json:"code" binding:"required"`
		RedirectURI string `json:"redirectUri" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.oauth.ExchangeAuthCode(c.Request.Context(), channel, req.Code, req.RedirectURI); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
