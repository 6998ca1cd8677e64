package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/metrics"
)

// Embedder produces a vector for a text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Store persists whole snapshots, one per scope. Save must replace the
// previous snapshot atomically. Load returns an INDEX_MISSING error when the
// scope was never saved.
type Store interface {
	Save(ctx context.Context, snap *domain.IndexSnapshot) error
	Load(ctx context.Context, scope domain.Scope) (*domain.IndexSnapshot, error)
	Exists(ctx context.Context, scope domain.Scope) (bool, error)
}

// Manager embeds chunks into scoped indices and serves similarity search.
// Writes to a scope are exclusive; reads of a scope share its lock.
type Manager struct {
	embedder Embedder
	store    Store
	locks    *scopeLocks
	logger   *zap.Logger
}

func NewManager(embedder Embedder, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		embedder: embedder,
		store:    store,
		locks:    newScopeLocks(),
		logger:   logger,
	}
}

// CreateOrReplace embeds chunks and replaces whatever index the scope held.
func (m *Manager) CreateOrReplace(ctx context.Context, scope domain.Scope, chunks []domain.Chunk) (err error) {
	defer func() { metrics.IndexWritesTotal.WithLabelValues("replace", metrics.Status(err)).Inc() }()

	if err := validateWrite(scope, chunks); err != nil {
		return err
	}
	entries, dim, err := m.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}
	// an abandoned call stops here, before anything is persisted
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := m.locks.get(scope)
	lock.Lock()
	defer lock.Unlock()

	snap := &domain.IndexSnapshot{Scope: scope, Dimension: dim, Entries: entries}
	if err := m.save(ctx, snap); err != nil {
		return err
	}

	metrics.IndexEntries.WithLabelValues(scopeKind(scope)).Set(float64(len(entries)))
	m.logger.Debug("index replaced", zap.String("scope", string(scope)), zap.Int("entries", len(entries)))
	return nil
}

// AppendOrCreate embeds chunks and appends them to the scope's index,
// creating it when absent. Appending the same chunks twice stores them twice.
func (m *Manager) AppendOrCreate(ctx context.Context, scope domain.Scope, chunks []domain.Chunk) (err error) {
	defer func() { metrics.IndexWritesTotal.WithLabelValues("append", metrics.Status(err)).Inc() }()

	if err := validateWrite(scope, chunks); err != nil {
		return err
	}
	entries, dim, err := m.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := m.locks.get(scope)
	lock.Lock()
	defer lock.Unlock()

	snap, err := m.store.Load(ctx, scope)
	switch {
	case errors.Is(err, domain.ErrIndexMissing):
		snap = &domain.IndexSnapshot{Scope: scope, Dimension: dim}
	case err != nil:
		return asPersistence("load index", err)
	case snap.Dimension != dim:
		return domain.NewDomainErrorWithCause(domain.ErrCodePersistence, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("scope %q has dimension %d, new chunks have %d", scope, snap.Dimension, dim))
	}

	merged := make([]domain.IndexEntry, 0, len(snap.Entries)+len(entries))
	merged = append(merged, snap.Entries...)
	merged = append(merged, entries...)
	snap.Entries = merged

	if err := m.save(ctx, snap); err != nil {
		return err
	}

	metrics.IndexEntries.WithLabelValues(scopeKind(scope)).Set(float64(len(merged)))
	m.logger.Debug("index appended",
		zap.String("scope", string(scope)),
		zap.Int("added", len(entries)),
		zap.Int("entries", len(merged)),
	)
	return nil
}

// Load returns a queryable copy of the scope's index.
func (m *Manager) Load(ctx context.Context, scope domain.Scope) (*Index, error) {
	if err := scope.Validate(); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid scope", err)
	}

	lock := m.locks.get(scope)
	lock.RLock()
	defer lock.RUnlock()

	snap, err := m.store.Load(ctx, scope)
	if err != nil {
		if errors.Is(err, domain.ErrIndexMissing) {
			return nil, err
		}
		return nil, asPersistence("load index", err)
	}
	return newIndex(snap), nil
}

// Exists reports whether the scope has a persisted index.
func (m *Manager) Exists(ctx context.Context, scope domain.Scope) (bool, error) {
	if err := scope.Validate(); err != nil {
		return false, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid scope", err)
	}

	lock := m.locks.get(scope)
	lock.RLock()
	defer lock.RUnlock()

	ok, err := m.store.Exists(ctx, scope)
	if err != nil {
		return false, asPersistence("check index", err)
	}
	return ok, nil
}

// SimilaritySearch loads the scope, embeds the query and returns the top k
// hits by descending cosine similarity.
func (m *Manager) SimilaritySearch(ctx context.Context, scope domain.Scope, query string, k int) ([]domain.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyInput
	}

	ix, err := m.Load(ctx, scope)
	if err != nil {
		return nil, err
	}

	vec, err := m.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return ix.Search(vec, k)
}

func (m *Manager) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.IndexEntry, int, error) {
	entries := make([]domain.IndexEntry, 0, len(chunks))
	dim := 0
	for _, c := range chunks {
		vec, err := m.embed(ctx, c.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("embed chunk %d: %w", c.Seq, err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim || dim == 0 {
			return nil, 0, domain.ProviderError("embed chunk",
				fmt.Errorf("chunk %d embedded to dimension %d, expected %d", c.Seq, len(vec), dim))
		}
		payload := c.Metadata
		payload.Text = c.Text
		if payload.ChunkSeq == 0 {
			payload.ChunkSeq = c.Seq
		}
		entries = append(entries, domain.IndexEntry{Vector: vec, Payload: payload})
	}
	return entries, dim, nil
}

func (m *Manager) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := m.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		if domain.CodeOf(err) == "" && ctx.Err() == nil {
			return nil, domain.ProviderError("embed", err)
		}
		return nil, err
	}
	return vec, nil
}

func (m *Manager) save(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := m.store.Save(ctx, snap); err != nil {
		return asPersistence("save index", err)
	}
	return nil
}

func validateWrite(scope domain.Scope, chunks []domain.Chunk) error {
	if err := scope.Validate(); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid scope", err)
	}
	if len(chunks) == 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, "no chunks to index")
	}
	return nil
}

// asPersistence leaves coded errors alone and marks the rest PERSISTENCE.
func asPersistence(op string, err error) error {
	if domain.CodeOf(err) != "" {
		return err
	}
	return domain.PersistenceError(op, err)
}

func scopeKind(scope domain.Scope) string {
	if scope == domain.GlobalScope {
		return "global"
	}
	return "document"
}
