//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/testutil"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pc := testutil.NewPostgresContainer(ctx, t)
	return testutil.NewTestPool(ctx, t, pc, "../../migrations")
}

func truncate(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	require.NoError(t, testutil.TruncateAll(ctx, pool))
}

func seedPublication(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id string) *domain.Publication {
	t.Helper()
	p := &domain.Publication{
		ID:          id,
		Title:       "Bone loss in microgravity",
		Abstract:    "Mice flown on the ISS lost trabecular bone.",
		Text:        "Full text about osteoclast activity in spaceflight.",
		Year:        "2021",
		Organism:    "Mus musculus",
		Environment: "spaceflight",
	}
	require.NoError(t, NewPublicationRepository(pool).Upsert(ctx, p))
	return p
}
