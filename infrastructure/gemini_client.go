package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiChatClient чат через Google Gemini
type GeminiChatClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiChatClient создаёт клиента Gemini
func NewGeminiChatClient(ctx context.Context, apiKey, model string, temperature float64, maxTokens int) (*GeminiChatClient, error) {
	if apiKey == "" {
		return nil, ErrChatNotConfigured
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(float32(temperature))
	m.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiChatClient{client: client, model: m}, nil
}

func (g *GeminiChatClient) Name() string { return "gemini" }

// Complete системное сообщение уходит в SystemInstruction, последнее сообщение
// пользователя отправляется в чат, остальное становится историей
func (g *GeminiChatClient) Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatMessage, error) {
	system, history, last, err := splitForGemini(messages)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	// модель общая, поэтому системная подсказка задаётся на копии
	model := *g.model
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return domain.ChatMessage{}, errors.New("gemini: пустой ответ")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return domain.ChatMessage{Role: domain.RoleAssistant, Content: sb.String()}, nil
}

// Close закрывает соединение с API
func (g *GeminiChatClient) Close() error {
	return g.client.Close()
}

func splitForGemini(messages []domain.ChatMessage) (string, []*genai.Content, string, error) {
	var system []string
	var rest []domain.ChatMessage
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) == 0 || rest[len(rest)-1].Role != domain.RoleUser {
		return "", nil, "", errors.New("gemini: последнее сообщение должно быть от пользователя")
	}

	history := make([]*genai.Content, 0, len(rest)-1)
	for _, m := range rest[:len(rest)-1] {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	return strings.Join(system, "\n"), history, rest[len(rest)-1].Content, nil
}
