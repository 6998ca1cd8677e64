//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/biorag/internal/api/handlers"
	"github.com/cloo-solutions/biorag/internal/jobs"
	"github.com/cloo-solutions/biorag/internal/openai"
	"github.com/cloo-solutions/biorag/internal/prompts"
	"github.com/cloo-solutions/biorag/internal/repository"
	"github.com/cloo-solutions/biorag/internal/server"
	"github.com/cloo-solutions/biorag/internal/service"
	"github.com/cloo-solutions/biorag/internal/storage"
	"github.com/cloo-solutions/biorag/internal/testutil"
	"github.com/cloo-solutions/biorag/internal/vectorindex"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	ServerURL  string
	LLM        *fakeLLM
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and RustFS, a fake OpenAI-compatible API and
// the biorag HTTP server with its ingestion worker.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := zaptest.NewLogger(t)

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3C := testutil.NewRustFSContainer(ctx, t)
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.S3Credential,
		SecretAccessKey: testutil.S3Credential,
		Bucket:          "biorag-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	llm := newFakeLLM()
	llmSrv := httptest.NewServer(llm)
	t.Cleanup(llmSrv.Close)

	embedder := openai.NewClient(openai.Config{
		Provider: "openai",
		APIKey:   "test",
		BaseURL:  llmSrv.URL + "/v1",
		Model:    "text-embedding-3-small",
	})
	generator := openai.NewChatClient(openai.ChatConfig{
		Provider: "openai",
		APIKey:   "test",
		BaseURL:  llmSrv.URL + "/v1",
		Model:    "gpt-4o-mini",
	})

	set := prompts.Default()
	index := vectorindex.NewManager(embedder, storage.NewS3Store(s3Client.API(), s3Client.Bucket(), "indices"), log)
	extraction := service.NewExtractionService(generator, set, service.DefaultMaxExtractChars, log)
	ingestion := service.NewIngestionService(extraction, index, service.DefaultChunkConfig(), log)
	publications := service.NewPublicationService(
		repository.NewPublicationRepository(pool),
		repository.NewIngestionJobRepository(pool),
		repository.NewTxRunner(pool),
		ingestion,
		index,
	)

	processor := jobs.NewIngestionWorker(repository.NewIngestionJobRepository(pool), publications, log)
	worker := jobs.NewWorker(processor, 200*time.Millisecond, log)
	go worker.Start(ctx)
	t.Cleanup(worker.Stop)

	analytics := service.NewAnalyticsService(repository.NewPublicationRepository(pool), extraction, log)

	router := server.NewRouter(server.RouterConfig{
		Logger:             log,
		QAHandler:          handlers.NewQAHandler(service.NewQAService(index, generator, set, log)),
		SearchHandler:      handlers.NewSearchHandler(service.NewSearchService(index, log)),
		PublicationHandler: handlers.NewPublicationHandler(publications),
		AnalyticsHandler:   handlers.NewAnalyticsHandler(analytics),
		HealthChecks:       map[string]handlers.Pinger{"database": pool},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		ServerURL:  srv.URL,
		LLM:        llm,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Response is a decoded HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into v, failing the test on error.
func (r *Response) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("failed to decode %s: %v", string(r.Body), err)
	}
}

// Data unmarshals the {"data": ...} envelope into v.
func (r *Response) Data(t *testing.T, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	r.Decode(t, &env)
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", string(env.Data), err)
	}
}

// Do sends a request with an optional JSON body.
func (e *E2ETestEnv) Do(method, path string, body any) *Response {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}
}

// fakeLLM serves the embeddings and chat completions endpoints of an
// OpenAI-compatible API with deterministic answers.
type fakeLLM struct {
	vocab []string
	// extraction overrides the extraction JSON when non-empty
	extraction string
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		vocab: []string{"bone", "mouse", "mice", "microgravity", "plant", "root", "radiation", "seed", "spaceflight"},
	}
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		f.embeddings(w, r)
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		f.chat(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeLLM) embeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input any `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text := fmt.Sprint(req.Input)
	vec := make([]float32, len(f.vocab)+1)
	vec[len(f.vocab)] = 0.1
	lower := strings.ToLower(text)
	for i, word := range f.vocab {
		vec[i] = float32(strings.Count(lower, word))
	}

	writeJSON(w, map[string]any{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": vec}},
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

func (f *fakeLLM) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var system string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
		}
	}

	var content string
	switch {
	case strings.Contains(system, "scientific summarization"):
		content = f.extraction
		if content == "" {
			content = extractionJSON
		}
	case strings.Contains(system, "comparing two scientific papers"):
		content = `{"methodology_comparison": "Both use flight cohorts.", "results_comparison": "Bone loss versus root changes.", "conclusions_comparison": "Both need longer missions."}`
	case strings.Contains(system, "actionable insights"):
		content = `{"insights": ["Screen bone countermeasures on the next flight."]}`
	default:
		content = "Mice lost bone mass in microgravity."
	}

	writeJSON(w, map[string]any{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

const extractionJSON = `{
  "abstract_summary": "Spaceflight reduces bone density in mice.",
  "scientist_summary": "Mice flown for 30 days lost trabecular bone.",
  "investor_summary": "Bone countermeasures are a growing market.",
  "mission_architect_summary": "Long missions need exercise hardware.",
  "knowledge_graph": {
    "nodes": [{"id": "mouse", "type": "organism"}, {"id": "bone_loss", "type": "condition"}],
    "edges": [{"source": "mouse", "target": "bone_loss", "relation": "exhibits"}]
  },
  "faqs": [{"question": "How long was the flight?", "answer": "30 days."}],
  "tags": ["Bone", "microgravity"]
}`
