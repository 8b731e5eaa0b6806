// Package loops предоставляет клиент для поиска контактов в Loops.
package loops

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

// Contact описывает контакт Loops. Нас интересуют только адрес и дата рождения.
type Contact struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	AddressLine1   string `json:"addressLine1,omitempty"`
	AddressLine2   string `json:"addressLine2,omitempty"`
	AddressCity    string `json:"addressCity,omitempty"`
	AddressState   string `json:"addressState,omitempty"`
	AddressZipCode string `json:"addressZipCode,omitempty"`
	AddressCountry string `json:"addressCountry,omitempty"`
	Birthday       string `json:"birthday,omitempty"`
}

// HasAddress сообщает, заполнен ли у контакта хотя бы один значимый компонент адреса.
func (c Contact) HasAddress() bool {
	return c.AddressLine1 != "" || c.AddressCity != "" || c.AddressState != "" ||
		c.AddressZipCode != "" || c.AddressCountry != ""
}

// StatusError возвращается, если Loops ответил статусом не из диапазона 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loops: unexpected status %d", e.StatusCode)
}

// Client инкапсулирует HTTP-взаимодействие с Loops.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент Loops.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FindContacts возвращает контакты с указанным адресом почты.
func (c *Client) FindContacts(ctx context.Context, email string) ([]Contact, error) {
	endpoint := c.baseURL + "/contacts/find?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var contacts []Contact
	if err := json.NewDecoder(resp.Body).Decode(&contacts); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return contacts, nil
}
