package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Vaflel/bell-ticker/domain"
)

// ErrChatNotConfigured не задан ключ провайдера чата
var ErrChatNotConfigured = errors.New("chat api key is not configured")

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// GroqChatClient вызывает OpenAI-совместимый endpoint chat/completions
type GroqChatClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewGroqChatClient создаёт клиента; baseURL вида https://api.groq.com/openai/v1
func NewGroqChatClient(apiKey, baseURL, model string, temperature float64, maxTokens int, timeout time.Duration) *GroqChatClient {
	return &GroqChatClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *GroqChatClient) Name() string { return "groq" }

// Complete отправляет историю целиком и возвращает первый вариант ответа
func (c *GroqChatClient) Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatMessage, error) {
	if c.apiKey == "" {
		return domain.ChatMessage{}, ErrChatNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.ChatMessage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ChatMessage{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return domain.ChatMessage{}, fmt.Errorf("Groq API error: %d - %s", resp.StatusCode, truncate(string(bodyBytes), 200))
	}

	var data completionResponse
	if err := json.Unmarshal(bodyBytes, &data); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("JSON parsing error: %w (first 200 chars: %s)", err, truncate(string(bodyBytes), 200))
	}
	if len(data.Choices) == 0 {
		return domain.ChatMessage{}, errors.New("в ответе нет вариантов")
	}

	return data.Choices[0].Message, nil
}
