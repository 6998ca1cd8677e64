// Package provider builds the embedding and generation capabilities and the
// vector index store selected by configuration.
package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/config"
	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/embcache"
	"github.com/cloo-solutions/biorag/internal/metrics"
	"github.com/cloo-solutions/biorag/internal/openai"
	"github.com/cloo-solutions/biorag/internal/service"
)

// Default OpenAI-compatible endpoints. OpenAI itself uses the client default.
var defaultBaseURLs = map[domain.Provider]string{
	domain.ProviderOllama: "http://localhost:11434/v1",
	domain.ProviderGroq:   "https://api.groq.com/openai/v1",
	domain.ProviderGemini: "https://generativelanguage.googleapis.com/v1beta/openai/",
}

// ollama ignores the key but the client always sends one.
const ollamaPlaceholderKey = "ollama"

// BaseURL returns the configured URL, or the provider default.
func BaseURL(p domain.Provider, configured string) string {
	if configured != "" {
		return configured
	}
	return defaultBaseURLs[p]
}

func apiKey(cfg *config.Config, p domain.Provider) string {
	if key := cfg.APIKey(p); key != "" {
		return key
	}
	if p == domain.ProviderOllama {
		return ollamaPlaceholderKey
	}
	return ""
}

// NewEmbedder returns the configured embedding client. When Redis is
// configured the client is wrapped in a cache; the returned close function
// releases the cache connection.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.EmbeddingClient, func(), error) {
	p, err := domain.ParseProvider(cfg.EmbedProvider)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding provider: %w", err)
	}
	if !p.SupportsEmbeddings() {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnsupportedProvider.Message,
			fmt.Errorf("%s has no embeddings API", p))
	}
	key := apiKey(cfg, p)
	if key == "" {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "missing api key",
			fmt.Errorf("embedding provider %s", p))
	}

	baseURL := BaseURL(p, cfg.EmbedBaseURL)
	client := openai.NewClient(openai.Config{
		Provider:   string(p),
		APIKey:     key,
		BaseURL:    baseURL,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDimensions,
	})

	if !cfg.HasRedis() {
		return client, func() {}, nil
	}

	redis, err := embcache.NewRedisStore(cfg.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect embedding cache: %w", err)
	}
	if err := redis.Ping(ctx); err != nil {
		redis.Close()
		return nil, nil, fmt.Errorf("ping embedding cache: %w", err)
	}
	logger.Info("embedding cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.EmbedCacheTTL))

	ns := embcache.Namespace{
		Provider:   string(p),
		BaseURL:    baseURL,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDimensions,
	}
	cached := embcache.New(client, redis, ns, cfg.EmbedCacheTTL, metrics.EmbeddingCacheTotal, logger)
	return cached, redis.Close, nil
}

// NewGenerator returns the configured chat client.
func NewGenerator(cfg *config.Config) (service.Generator, error) {
	p, err := domain.ParseProvider(cfg.LLMProvider)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	key := apiKey(cfg, p)
	if key == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "missing api key",
			fmt.Errorf("llm provider %s", p))
	}

	return openai.NewChatClient(openai.ChatConfig{
		Provider:    string(p),
		APIKey:      key,
		BaseURL:     BaseURL(p, cfg.LLMBaseURL),
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
	}), nil
}
