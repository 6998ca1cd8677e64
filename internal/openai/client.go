package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/biorag/internal/metrics"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoEmbeddingData is returned when the API answers without vectors
	ErrNoEmbeddingData = errors.New("no embedding data returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client generates embeddings through an OpenAI-compatible API.
type Client struct {
	api        EmbeddingAPI
	dimensions int
	provider   string
	model      string
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(cfg openai.ClientConfig, model string) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

// CreateEmbeddings calls the embeddings endpoint
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          a.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingData
	}

	return resp.Data[0].Embedding, nil
}

// Config selects the endpoint and model. BaseURL empty means api.openai.com.
type Config struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

func clientConfig(apiKey, baseURL string) openai.ClientConfig {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return cfg
}

// NewClient creates an embedding client. Dimensions of zero accepts whatever
// the model returns; the index enforces consistency across calls.
func NewClient(cfg Config) *Client {
	return &Client{
		api:        NewOpenAIAdapter(clientConfig(cfg.APIKey, cfg.BaseURL), cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		model:      cfg.Model,
	}
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()
	embedding, err := c.api.CreateEmbeddings(ctx, text)
	metrics.EmbeddingRequestsTotal.WithLabelValues(c.provider, c.model, metrics.Status(err)).Inc()
	if err != nil {
		return nil, parseAPIError("create embedding", err)
	}
	metrics.EmbeddingRequestDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())

	if c.dimensions > 0 && len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}
