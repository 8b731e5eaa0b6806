// Package slack реализует вход через Slack OpenID Connect.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError возвращается, если Slack ответил ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

// Client инкапсулирует обмен кода авторизации на идентификатор пользователя.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient создаёт клиент Slack Web API.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthorizeURL возвращает адрес страницы авторизации рабочего пространства.
func AuthorizeURL(workspace, clientID, redirectURI string) string {
	q := url.Values{}
	q.Set("scope", "")
	q.Set("user_scope", "openid,profile,email")
	q.Set("redirect_uri", redirectURI)
	q.Set("client_id", clientID)
	return fmt.Sprintf("https://%s.slack.com/oauth/v2/authorize?%s", workspace, q.Encode())
}

type tokenResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	AccessToken string `json:"access_token"`
}

type userInfoResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	UserID string `json:"https://slack.com/user_id"`
}

// Exchange меняет код авторизации на токен и возвращает Slack ID пользователя.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/openid.connect.token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token tokenResponse
	if err := c.do(req, &token); err != nil {
		return "", err
	}
	if !token.OK {
		return "", &APIError{Method: "openid.connect.token", Code: token.Error}
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/openid.connect.userInfo", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var info userInfoResponse
	if err := c.do(req, &info); err != nil {
		return "", err
	}
	if !info.OK {
		return "", &APIError{Method: "openid.connect.userInfo", Code: info.Error}
	}
	if info.UserID == "" {
		return "", &APIError{Method: "openid.connect.userInfo", Code: "missing_user_id"}
	}

	return info.UserID, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
