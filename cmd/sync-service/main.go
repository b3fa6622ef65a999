package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/channelsync/internal/app"
	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/version"
)

const (
	envHTTPAddr           = "CHSYNC_HTTP_ADDR"
	envMetricsAddr        = "CHSYNC_METRICS_ADDR"
	envPostgresDSN        = "CHSYNC_POSTGRES_DSN"
	envKafkaBrokers       = "CHSYNC_KAFKA_BROKERS"
	envCredentialSecret   = "CHSYNC_CREDENTIAL_SECRET"
	envPlatformTimeout    = "CHSYNC_PLATFORM_TIMEOUT"
	envMaxConcurrentSyncs = "CHSYNC_MAX_CONCURRENT_SYNCS"
	envShopifyBaseURL     = "CHSYNC_SHOPIFY_BASE_URL"
	envEtsyBaseURL        = "CHSYNC_ETSY_BASE_URL"
	envEtsyShopID         = "CHSYNC_ETSY_SHOP_ID"
	envAmazonBaseURL      = "CHSYNC_AMAZON_BASE_URL"
	envAmazonMarketplace  = "CHSYNC_AMAZON_MARKETPLACE_ID"
	envEbayBaseURL        = "CHSYNC_EBAY_BASE_URL"
)

// oauthClientIDEnv сопоставляет площадку переменной окружения с её client_id.
var oauthClientIDEnv = map[domain.Channel]string{
	domain.ChannelShopify: "CHSYNC_OAUTH_CLIENT_ID_SHOPIFY",
	domain.ChannelEtsy:    "CHSYNC_OAUTH_CLIENT_ID_ETSY",
	domain.ChannelAmazon:  "CHSYNC_OAUTH_CLIENT_ID_AMAZON",
	domain.ChannelEbay:    "CHSYNC_OAUTH_CLIENT_ID_EBAY",
}

// envLookup абстрагирует os.LookupEnv для тестируемости.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения.
// Некорректные значения не прерывают запуск: остаётся значение по
// умолчанию, а замечание попадает в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	setString := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	setString(envHTTPAddr, &cfg.HTTPAddr)
	setString(envMetricsAddr, &cfg.MetricsAddr)
	setString(envPostgresDSN, &cfg.PostgresDSN)
	setString(envCredentialSecret, &cfg.CredentialSecret)
	setString(envShopifyBaseURL, &cfg.ShopifyBaseURL)
	setString(envEtsyBaseURL, &cfg.EtsyBaseURL)
	setString(envEtsyShopID, &cfg.EtsyShopID)
	setString(envAmazonBaseURL, &cfg.AmazonBaseURL)
	setString(envAmazonMarketplace, &cfg.AmazonMarket)
	setString(envEbayBaseURL, &cfg.EbayBaseURL)

	if v, ok := lookup(envKafkaBrokers); ok && strings.TrimSpace(v) != "" {
		brokers := strings.Split(v, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		cfg.KafkaBrokers = brokers
	}

	if v, ok := lookup(envPlatformTimeout); ok {
		timeout, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envPlatformTimeout, err))
		} else {
			cfg.PlatformTimeout = timeout
		}
	}

	if v, ok := lookup(envMaxConcurrentSyncs); ok {
		n, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envMaxConcurrentSyncs, err))
		} else {
			cfg.MaxConcurrentSyncs = n
		}
	}

	for channel, envKey := range oauthClientIDEnv {
		if v, ok := lookup(envKey); ok && strings.TrimSpace(v) != "" {
			cfg.OAuthClientIDs[channel] = strings.TrimSpace(v)
		}
	}

	return cfg, warnings
}

func parseInt(raw string, valid func(int) bool, constraint string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, constraint)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, constraint string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, constraint)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"version":      version.String(),
	}).Info("запускаем channelsync")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("channelsync остановлен")
}
