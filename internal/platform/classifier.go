// Package platform определяет чат-платформы, упомянутые в описаниях проектов.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const systemPrompt = `You are an expert at analyzing text to identify chat platforms mentioned.

Your task is to identify ALL chat platforms mentioned across the provided text. Chat platforms include applications like Slack, Discord, Zulip, Microsoft Teams, Telegram, WhatsApp, IRC, Matrix, Mattermost, etc.

IMPORTANT RULES:
1. ONLY return chat/messaging platforms, not other types of platforms
2. Return the results as a JSON array of strings
3. Use standard platform names (e.g., "Slack", "Discord", "Zulip")
4. If no chat platforms are found, return an empty array []
5. Do not include any explanation or thinking process in your response

Examples:
- If text mentions "slack channels" and "discord server" → ["Slack", "Discord"]
- If text mentions "github repository" and "zoom meeting" → []
- If text mentions "Teams chat" and "telegram group" → ["Microsoft Teams", "Telegram"]

Analyze the following text and return ONLY the JSON array:`

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StatusError возвращается, если сервис классификации ответил статусом не из диапазона 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classifier: unexpected status %d", e.StatusCode)
}

// Classifier обращается к сервису chat completions для поиска упомянутых платформ.
type Classifier struct {
	url        string
	httpClient *http.Client
}

// NewClassifier создаёт классификатор для указанного эндпоинта chat completions.
func NewClassifier(url string) *Classifier {
	return &Classifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Detect возвращает платформы, упомянутые в тексте. Пустой текст не отправляется.
func (c *Classifier) Detect(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"messages": []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, nil
	}

	return ParseAnswer(completion.Choices[0].Message.Content)
}

// ParseAnswer извлекает список платформ из ответа модели, отбрасывая блоки <think>.
// Нестроковые элементы массива пропускаются.
func ParseAnswer(content string) ([]string, error) {
	clean := strings.TrimSpace(thinkBlock.ReplaceAllString(content, ""))
	if clean == "" {
		return nil, nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("parse answer %q: %w", clean, err)
	}

	platforms := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			platforms = append(platforms, strings.TrimSpace(s))
		}
	}
	return platforms, nil
}

// Distinct убирает повторы без учёта регистра, сохраняя первое написание.
func Distinct(platforms []string) []string {
	seen := make(map[string]struct{}, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
