// Package platform содержит адаптеры маркетплейсов: HTTP-клиенты, которые
// забирают заказы из внешних API и приводят их к канонической форме.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

const defaultHTTPTimeout = 15 * time.Second

// apiClient — общий HTTP-клиент адаптеров: circuit breaker, bearer-авторизация
// и классификация ошибок ответа.
type apiClient struct {
	platform domain.Channel
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	creds    *CredentialStore
	logger   *log.Entry
}

func newAPIClient(platform domain.Channel, baseURL string, creds *CredentialStore, httpClient *http.Client) *apiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	logger := log.WithField("component", "platform_client").WithField("platform", platform)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    string(platform),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"from": from.String(),
				"to":   to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &apiClient{
		platform: platform,
		baseURL:  baseURL,
		http:     httpClient,
		breaker:  breaker,
		creds:    creds,
		logger:   logger,
	}
}

// getJSON выполняет GET-запрос через circuit breaker и декодирует JSON-ответ.
// 401/403 превращаются в ErrAuthExpired, 5xx и 429 — в ErrPlatformUnavailable.
func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	creds, err := c.creds.Get(c.platform)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", c.platform, err)
		}
		defer resp.Body.Close()

		if err := classifyStatus(c.platform, resp.StatusCode); err != nil {
			// Тело дочитывается, чтобы соединение вернулось в пул.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, err
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", c.platform, err)
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("circuit breaker rejected %s call: %w", c.platform, domain.ErrPlatformUnavailable)
	}
	return err
}

// postJSON отправляет JSON-документ площадке (используется для уведомлений).
func (c *apiClient) postJSON(ctx context.Context, path string, body any) error {
	creds, err := c.creds.Get(c.platform)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", c.platform, err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", c.platform, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		return nil, classifyStatus(c.platform, resp.StatusCode)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("circuit breaker rejected %s call: %w", c.platform, domain.ErrPlatformUnavailable)
	}
	return err
}

// classifyStatus переводит HTTP-статус в доменную ошибку.
func classifyStatus(platform domain.Channel, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s returned %d: %w", platform, status, domain.ErrAuthExpired)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s returned %d: %w", platform, status, domain.ErrPlatformUnavailable)
	default:
		return fmt.Errorf("%s returned unexpected status %d", platform, status)
	}
}
