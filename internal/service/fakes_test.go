package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/storage"
	"github.com/cloo-solutions/biorag/internal/vectorindex"
)

const validExtractionJSON = `{
  "abstract_summary": "Microgravity alters bone density in mice.",
  "scientist_summary": "Mice flown for 30 days lost trabecular bone.",
  "investor_summary": "Countermeasure drugs have a market.",
  "mission_architect_summary": "Plan for exercise hardware.",
  "knowledge_graph": {
    "nodes": [{"id": "mouse", "type": "organism"}, {"id": "bone loss", "type": "condition"}],
    "edges": [{"source": "mouse", "target": "bone loss", "relation": "exhibits"}]
  },
  "faqs": [{"question": "How long?", "answer": "30 days."}],
  "tags": ["Bone", " microgravity ", "bone"]
}`

const danglingEdgeJSON = `{
  "abstract_summary": "a",
  "scientist_summary": "b",
  "investor_summary": "c",
  "mission_architect_summary": "d",
  "knowledge_graph": {
    "nodes": [{"id": "mouse", "type": "organism"}],
    "edges": [{"source": "mouse", "target": "ghost", "relation": "haunts"}]
  },
  "faqs": [],
  "tags": []
}`

// generatorCall records one Generate invocation.
type generatorCall struct {
	System string
	Prompt string
}

// scriptedGenerator replays responses in order. Prompts matching a key of
// byPrompt are answered from that map first.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	byPrompt  map[string]string
	calls     []generatorCall
}

func (g *scriptedGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generatorCall{System: system, Prompt: prompt})

	for marker, out := range g.byPrompt {
		if strings.Contains(system, marker) || strings.Contains(prompt, marker) {
			return out, nil
		}
	}

	i := len(g.calls) - 1
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("scriptedGenerator: no response left")
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// keywordEmbedder maps text to counts of a fixed vocabulary. A non-zero bias
// is appended as a constant component.
type keywordEmbedder struct {
	vocab []string
	bias  float32
	mu    sync.Mutex
	calls int
}

func (e *keywordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	vec := make([]float32, len(e.vocab)+1)
	lower := strings.ToLower(text)
	for i, v := range e.vocab {
		vec[i] = float32(strings.Count(lower, v))
	}
	vec[len(e.vocab)] = e.bias
	return vec, nil
}

var testVocab = []string{"bone", "muscle", "plant", "radiation", "microgravity"}

func newTestManager(t *testing.T) (*vectorindex.Manager, *keywordEmbedder) {
	t.Helper()
	emb := &keywordEmbedder{vocab: testVocab, bias: 0.01}
	return vectorindex.NewManager(emb, storage.NewFileStore(t.TempDir()), nil), emb
}

// recordWriter captures write-back calls.
type recordWriter struct {
	mu    sync.Mutex
	calls map[string][]*domain.PublicationSummaries
	err   error
}

func (w *recordWriter) WriteSummaries(_ context.Context, id string, s *domain.PublicationSummaries) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.calls == nil {
		w.calls = make(map[string][]*domain.PublicationSummaries)
	}
	w.calls[id] = append(w.calls[id], s)
	return nil
}

// MockVectorIndex is a mock implementation of VectorIndex
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) CreateOrReplace(ctx context.Context, scope domain.Scope, chunks []domain.Chunk) error {
	args := m.Called(ctx, scope, chunks)
	return args.Error(0)
}

func (m *MockVectorIndex) AppendOrCreate(ctx context.Context, scope domain.Scope, chunks []domain.Chunk) error {
	args := m.Called(ctx, scope, chunks)
	return args.Error(0)
}

func (m *MockVectorIndex) Exists(ctx context.Context, scope domain.Scope) (bool, error) {
	args := m.Called(ctx, scope)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorIndex) SimilaritySearch(ctx context.Context, scope domain.Scope, query string, k int) ([]domain.Hit, error) {
	args := m.Called(ctx, scope, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hit), args.Error(1)
}
