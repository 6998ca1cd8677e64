//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
)

func snapshot(scope domain.Scope, vectors ...[]float32) *domain.IndexSnapshot {
	snap := &domain.IndexSnapshot{Scope: scope, Dimension: len(vectors[0])}
	for i, v := range vectors {
		snap.Entries = append(snap.Entries, domain.IndexEntry{
			Vector: v,
			Payload: domain.Payload{
				DocumentID: string(scope),
				Title:      "Plant roots in microgravity",
				ChunkSeq:   i + 1,
				Type:       "publication_chunk",
				Text:       "chunk text",
			},
		})
	}
	return snap
}

func TestVectorIndexRepository(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewVectorIndexRepository(pool)

	t.Run("missing scope", func(t *testing.T) {
		truncate(ctx, t, pool)

		exists, err := repo.Exists(ctx, "pub-1")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Load(ctx, "pub-1")
		assert.ErrorIs(t, err, domain.ErrIndexMissing)
	})

	t.Run("save and load keeps order", func(t *testing.T) {
		truncate(ctx, t, pool)
		want := snapshot("pub-1", []float32{1, 0, 0}, []float32{0, 1, 0}, []float32{0, 0, 1})
		require.NoError(t, repo.Save(ctx, want))

		exists, err := repo.Exists(ctx, "pub-1")
		require.NoError(t, err)
		assert.True(t, exists)

		got, err := repo.Load(ctx, "pub-1")
		require.NoError(t, err)
		assert.Equal(t, want.Dimension, got.Dimension)
		require.Len(t, got.Entries, 3)
		for i := range want.Entries {
			assert.Equal(t, want.Entries[i].Vector, got.Entries[i].Vector)
			assert.Equal(t, want.Entries[i].Payload, got.Entries[i].Payload)
		}
	})

	t.Run("save replaces previous entries", func(t *testing.T) {
		truncate(ctx, t, pool)
		require.NoError(t, repo.Save(ctx, snapshot("pub-1", []float32{1, 0}, []float32{0, 1})))
		require.NoError(t, repo.Save(ctx, snapshot("pub-1", []float32{0.5, 0.5})))

		got, err := repo.Load(ctx, "pub-1")
		require.NoError(t, err)
		assert.Len(t, got.Entries, 1)
	})

	t.Run("scopes are independent", func(t *testing.T) {
		truncate(ctx, t, pool)
		require.NoError(t, repo.Save(ctx, snapshot("pub-1", []float32{1, 0})))
		require.NoError(t, repo.Save(ctx, snapshot(domain.GlobalScope, []float32{1, 0}, []float32{0, 1})))

		doc, err := repo.Load(ctx, "pub-1")
		require.NoError(t, err)
		global, err := repo.Load(ctx, domain.GlobalScope)
		require.NoError(t, err)
		assert.Len(t, doc.Entries, 1)
		assert.Len(t, global.Entries, 2)
	})

	t.Run("rejects mixed dimensions", func(t *testing.T) {
		truncate(ctx, t, pool)
		bad := snapshot("pub-1", []float32{1, 0}, []float32{1, 0, 0})
		assert.Error(t, repo.Save(ctx, bad))

		exists, err := repo.Exists(ctx, "pub-1")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
