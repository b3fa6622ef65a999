package app

import (
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес HTTP API.
	HTTPAddr string
	// MetricsAddr — адрес сервера метрик и health-проверок.
	MetricsAddr string

	// PostgresDSN — строка подключения к PostgreSQL.
	// Пустое значение переключает сервис на in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers — список брокеров Kafka. Пустой список отключает
	// публикацию outbox-событий.
	KafkaBrokers []string

	// CredentialSecret — секрет для шифрования учётных данных площадок.
	CredentialSecret string

	// PlatformTimeout — таймаут обращения к одной площадке при sync.
	PlatformTimeout time.Duration
	// MaxConcurrentSyncs — число параллельно опрашиваемых площадок.
	MaxConcurrentSyncs int

	// Базовые URL API маркетплейсов. Площадка без URL не подключается.
	ShopifyBaseURL string
	EtsyBaseURL    string
	EtsyShopID     string
	AmazonBaseURL  string
	AmazonMarket   string
	EbayBaseURL    string

	// OAuthClientIDs — client_id площадок для генерации authorize-URL.
	OAuthClientIDs map[domain.Channel]string
}

// DefaultConfig возвращает настройки по умолчанию.
// Shopify требует домен конкретного магазина, поэтому URL по умолчанию пуст.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		PlatformTimeout:    30 * time.Second,
		MaxConcurrentSyncs: 4,
		EtsyBaseURL:        "https://api.etsy.com/v3",
		AmazonBaseURL:      "https://sellingpartnerapi-na.amazon.com",
		EbayBaseURL:        "https://api.ebay.com",
		OAuthClientIDs:     make(map[domain.Channel]string),
	}
}
