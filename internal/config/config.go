package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// Index storage backends.
const (
	IndexBackendFile     = "file"
	IndexBackendS3       = "s3"
	IndexBackendPostgres = "postgres"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	IndexBackend string `envconfig:"INDEX_BACKEND" default:"file"`
	IndicesDir   string `envconfig:"INDICES_DIR" default:"data/indices"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"biorag-indices"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"indices"`

	EmbedProvider   string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel      string `envconfig:"EMBED_MODEL" default:"nomic-embed-text"`
	EmbedBaseURL    string `envconfig:"EMBED_BASE_URL"`
	EmbedDimensions int    `envconfig:"EMBED_DIMENSIONS" default:"0"`

	LLMProvider    string  `envconfig:"LLM_PROVIDER" default:"ollama"`
	LLMModel       string  `envconfig:"LLM_MODEL" default:"mistral"`
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL"`
	LLMTemperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.2"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	GroqAPIKey   string `envconfig:"GROQ_API_KEY"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Embedding cache; disabled when empty
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	EmbedCacheTTL time.Duration `envconfig:"EMBED_CACHE_TTL" default:"168h"`

	ChunkSize       int    `envconfig:"CHUNK_SIZE" default:"1200"`
	ChunkOverlap    int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	MaxExtractChars int    `envconfig:"MAX_EXTRACT_CHARS" default:"120000"`
	PromptsFile     string `envconfig:"PROMPTS_FILE"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BIORAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects unknown providers and backends and missing credentials,
// so misconfiguration fails at startup instead of on the first request.
func (c *Config) Validate() error {
	embed, err := domain.ParseProvider(c.EmbedProvider)
	if err != nil {
		return fmt.Errorf("EMBED_PROVIDER: %w", err)
	}
	if !embed.SupportsEmbeddings() {
		return fmt.Errorf("EMBED_PROVIDER: %s does not serve embeddings", embed)
	}
	if err := c.requireKey("EMBED_PROVIDER", embed); err != nil {
		return err
	}

	llm, err := domain.ParseProvider(c.LLMProvider)
	if err != nil {
		return fmt.Errorf("LLM_PROVIDER: %w", err)
	}
	if err := c.requireKey("LLM_PROVIDER", llm); err != nil {
		return err
	}

	switch strings.ToLower(c.IndexBackend) {
	case IndexBackendFile:
		if c.IndicesDir == "" {
			return fmt.Errorf("INDICES_DIR is required for the file index backend")
		}
	case IndexBackendS3:
		if !c.HasS3() {
			return fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 index backend")
		}
	case IndexBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres index backend")
		}
	default:
		return fmt.Errorf("INDEX_BACKEND: %w", domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			domain.ErrUnsupportedIndexStore.Message, fmt.Errorf("%q", c.IndexBackend)))
	}

	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_SIZE/CHUNK_OVERLAP: need 0 <= overlap < size, got %d/%d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.MaxExtractChars <= 0 {
		return fmt.Errorf("MAX_EXTRACT_CHARS must be positive")
	}
	return nil
}

func (c *Config) requireKey(field string, p domain.Provider) error {
	if c.APIKey(p) == "" && p != domain.ProviderOllama {
		return fmt.Errorf("%s: %s requires an API key", field, p)
	}
	return nil
}

// APIKey returns the credential configured for a provider.
func (c *Config) APIKey(p domain.Provider) string {
	switch p {
	case domain.ProviderOpenAI:
		return c.OpenAIAPIKey
	case domain.ProviderGroq:
		return c.GroqAPIKey
	case domain.ProviderGemini:
		return c.GeminiAPIKey
	}
	return ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}
