package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// oauthEndpoints — адреса авторизации подключаемых площадок.
var oauthEndpoints = map[domain.Channel]string{
	domain.ChannelShopify: "https://admin.shopify.com/oauth/authorize",
	domain.ChannelEtsy:    "https://www.etsy.com/oauth/connect",
	domain.ChannelAmazon:  "https://sellercentral.amazon.com/apps/authorize/consent",
	domain.ChannelEbay:    "https://auth.ebay.com/oauth2/authorize",
}

// OAuthService строит ссылки авторизации площадок.
// Обмен кода на токены выполняет внешний сервис учётных данных, поэтому
// ExchangeAuthCode здесь возвращает ErrAuthExchangeUnsupported.
type OAuthService struct {
	clientIDs map[domain.Channel]string
}

// NewOAuthService создаёт сервис с client id по площадкам.
func NewOAuthService(clientIDs map[domain.Channel]string) *OAuthService {
	if clientIDs == nil {
		clientIDs = make(map[domain.Channel]string)
	}
	return &OAuthService{clientIDs: clientIDs}
}

// GenerateAuthURL возвращает ссылку авторизации площадки со state-токеном.
func (s *OAuthService) GenerateAuthURL(platform domain.Channel, redirectURI string, scopes []string) (string, error) {
	endpoint, ok := oauthEndpoints[platform]
	if !ok {
		return "", fmt.Errorf("oauth is not supported for %s: %w", platform, domain.ErrPlatformUnavailable)
	}

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {s.clientIDs[platform]},
		"redirect_uri":  {redirectURI},
		"state":         {uuid.NewString()},
	}
	if len(scopes) > 0 {
		query.Set("scope", strings.Join(scopes, " "))
	}
	return endpoint + "?" + query.Encode(), nil
}

// ExchangeAuthCode не реализован в этом ядре.
func (s *OAuthService) ExchangeAuthCode(_ context.Context, platform domain.Channel, _, _ string) (domain.PlatformCredentials, error) {
	return domain.PlatformCredentials{}, fmt.Errorf("exchange for %s: %w", platform, domain.ErrAuthExchangeUnsupported)
}

var _ domain.OAuthService = (*OAuthService)(nil)
