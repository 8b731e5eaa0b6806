// Package airtable предоставляет клиент для таблицы заявок в Airtable.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BatchSize ограничивает число записей в одном запросе на обновление.
const BatchSize = 10

// StatusError возвращается, если Airtable ответил статусом не из диапазона 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("airtable: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client инкапсулирует HTTP-взаимодействие с одной таблицей Airtable.
type Client struct {
	tableURL   string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент для таблицы table в базе baseID.
func NewClient(baseURL, apiKey, baseID, table string) *Client {
	return &Client{
		tableURL: fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), baseID, url.PathEscape(table)),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListOptions задаёт параметры выборки записей.
type ListOptions struct {
	FilterByFormula string
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// List возвращает все записи таблицы, проходя по страницам до пустого offset.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	var (
		all    []Record
		offset string
	)

	for {
		params := url.Values{}
		if opts.FilterByFormula != "" {
			params.Set("filterByFormula", opts.FilterByFormula)
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		endpoint := c.tableURL
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}

		all = append(all, page.Records...)

		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

// UpdateRecords частично обновляет записи пачками по BatchSize.
// Ошибка одной пачки не прерывает остальные; возвращается число обновлённых записей.
func (c *Client) UpdateRecords(ctx context.Context, updates []Record) (int, error) {
	var (
		updated int
		errs    []error
	)

	for start := 0; start < len(updates); start += BatchSize {
		end := min(start+BatchSize, len(updates))
		batch := updates[start:end]

		body := map[string]any{"records": batch}
		if err := c.do(ctx, http.MethodPatch, c.tableURL, body, nil); err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("update batch %d: %w", start/BatchSize+1, err))
			continue
		}
		updated += len(batch)
	}

	return updated, errors.Join(errs...)
}

// UpdateRecord частично обновляет одну запись.
func (c *Client) UpdateRecord(ctx context.Context, id string, fields Fields) error {
	if err := c.do(ctx, http.MethodPatch, c.tableURL+"/"+url.PathEscape(id), map[string]any{"fields": fields}, nil); err != nil {
		return fmt.Errorf("update record %s: %w", id, err)
	}
	return nil
}

// CreateRecord создаёт запись и возвращает её идентификатор.
func (c *Client) CreateRecord(ctx context.Context, fields Fields) (string, error) {
	var created Record
	if err := c.do(ctx, http.MethodPost, c.tableURL, map[string]any{"fields": fields}, &created); err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	return created.ID, nil
}

// DeleteRecord удаляет запись.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.tableURL+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
