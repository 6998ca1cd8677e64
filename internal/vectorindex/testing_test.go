package vectorindex

import (
	"context"
	"strings"
	"sync"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// wordEmbedder maps text to a bag-of-words vector over a fixed vocabulary.
type wordEmbedder struct {
	vocab []string
	mu    sync.Mutex
	calls int
	err   error
}

func (e *wordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, len(e.vocab))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!")
		for i, v := range e.vocab {
			if v == w {
				vec[i]++
			}
		}
	}
	return vec, nil
}

// memStore keeps encoded snapshots so every load goes through the codec.
type memStore struct {
	mu      sync.Mutex
	data    map[domain.Scope][]byte
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{data: map[domain.Scope][]byte{}}
}

func (s *memStore) Save(_ context.Context, snap *domain.IndexSnapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	b, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.Scope] = b
	s.saves++
	return nil
}

func (s *memStore) Load(_ context.Context, scope domain.Scope) (*domain.IndexSnapshot, error) {
	s.mu.Lock()
	b, ok := s.data[scope]
	s.mu.Unlock()
	if !ok {
		return nil, domain.IndexMissing(scope)
	}
	return DecodeSnapshot(b)
}

func (s *memStore) Exists(_ context.Context, scope domain.Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[scope]
	return ok, nil
}

func chunksOf(docID string, texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{
			Seq:      i + 1,
			Text:     t,
			Metadata: domain.Payload{DocumentID: docID, ChunkSeq: i + 1, Type: domain.ChunkTypePublication},
		}
	}
	return out
}
