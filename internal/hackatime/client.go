// Package hackatime предоставляет клиент для API статистики Hackatime.
package hackatime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TrustLevel описывает уровень доверия к учёту времени пользователя.
type TrustLevel string

const (
	TrustRed    TrustLevel = "red"
	TrustYellow TrustLevel = "yellow"
	TrustBlue   TrustLevel = "blue"
)

// Project описывает время, учтённое по одному проекту.
type Project struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
}

// Stats описывает ответ эндпоинта статистики пользователя.
type Stats struct {
	Data struct {
		Projects []Project `json:"projects"`
	} `json:"data"`
	TrustFactor struct {
		TrustLevel TrustLevel `json:"trust_level"`
	} `json:"trust_factor"`
}

// Trust возвращает уровень доверия из ответа.
func (s *Stats) Trust() TrustLevel {
	if s == nil {
		return ""
	}
	return s.TrustFactor.TrustLevel
}

// StatusError возвращается, если Hackatime ответил статусом не из диапазона 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hackatime: unexpected status %d", e.StatusCode)
}

// Client инкапсулирует HTTP-взаимодействие с Hackatime.
type Client struct {
	baseURL    string
	bypass     string
	httpClient *http.Client
}

// NewClient создаёт клиент. Непустой bypass передаётся в заголовке Rack-Attack-Bypass.
func NewClient(baseURL, bypass string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bypass:  bypass,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Stats запрашивает статистику проектов пользователя за период [start, end].
// Даты передаются как есть, в формате, который понимает Hackatime.
func (c *Client) Stats(ctx context.Context, slackID, start, end string) (*Stats, error) {
	params := url.Values{}
	params.Set("features", "projects")
	params.Set("start_date", start)
	params.Set("end_date", end)

	endpoint := fmt.Sprintf("%s/%s/stats?%s", c.baseURL, url.PathEscape(slackID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.bypass != "" {
		req.Header.Set("Rack-Attack-Bypass", c.bypass)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &stats, nil
}
