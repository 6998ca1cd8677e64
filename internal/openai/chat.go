package openai

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/biorag/internal/metrics"
)

// ErrNoChoices is returned when a completion has no choices.
var ErrNoChoices = errors.New("completion returned no choices")

// ChatAPI is the completion call the ChatClient depends on.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatConfig selects the endpoint, model and sampling temperature.
type ChatConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// ChatClient generates text through an OpenAI-compatible chat completions API.
type ChatClient struct {
	api         ChatAPI
	provider    string
	model       string
	temperature float32
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	return &ChatClient{
		api:         openai.NewClientWithConfig(clientConfig(cfg.APIKey, cfg.BaseURL)),
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Generate sends one system instruction and one user prompt and returns the
// first choice's content.
func (c *ChatClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	metrics.GenerationRequestsTotal.WithLabelValues(c.provider, c.model, metrics.Status(err)).Inc()
	if err != nil {
		return "", parseAPIError("generate", err)
	}
	metrics.GenerationRequestDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", parseAPIError("generate", ErrNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}
