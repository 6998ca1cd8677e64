package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// VectorIndexRepository persists index snapshots in Postgres using pgvector
// columns. A save replaces the scope's rows in one transaction.
type VectorIndexRepository struct {
	db dbtx
}

func NewVectorIndexRepository(pool *pgxpool.Pool) *VectorIndexRepository {
	return &VectorIndexRepository{db: pool}
}

func NewVectorIndexRepositoryWithTx(tx pgx.Tx) *VectorIndexRepository {
	return &VectorIndexRepository{db: tx}
}

func (r *VectorIndexRepository) Save(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := snap.Scope.Validate(); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, e := range snap.Entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("encode payload %d: %w", i, err)
		}
		batch.Queue(
			`INSERT INTO vector_entries (scope, position, embedding, payload) VALUES ($1, $2, $3, $4)`,
			string(snap.Scope), i, pgvector.NewVector(e.Vector), payload,
		)
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vector_scopes (scope, dimension, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (scope) DO UPDATE SET dimension = EXCLUDED.dimension, updated_at = EXCLUDED.updated_at`,
			string(snap.Scope), snap.Dimension,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM vector_entries WHERE scope = $1`, string(snap.Scope)); err != nil {
			return err
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Load reads the scope in a single statement, so it sees one committed
// version of the index.
func (r *VectorIndexRepository) Load(ctx context.Context, scope domain.Scope) (*domain.IndexSnapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT s.dimension, e.embedding, e.payload
		 FROM vector_scopes s
		 LEFT JOIN vector_entries e ON e.scope = s.scope
		 WHERE s.scope = $1
		 ORDER BY e.position`,
		string(scope),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snap *domain.IndexSnapshot
	for rows.Next() {
		var (
			dimension int
			embedding *pgvector.Vector
			payload   []byte
		)
		if err := rows.Scan(&dimension, &embedding, &payload); err != nil {
			return nil, err
		}
		if snap == nil {
			snap = &domain.IndexSnapshot{Scope: scope, Dimension: dimension}
		}
		if embedding == nil {
			continue
		}

		entry := domain.IndexEntry{Vector: embedding.Slice()}
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.IndexMissing(scope)
	}
	if len(snap.Entries) > 0 {
		if err := snap.Validate(); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (r *VectorIndexRepository) Exists(ctx context.Context, scope domain.Scope) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vector_scopes WHERE scope = $1)`,
		string(scope),
	).Scan(&exists)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	return exists, nil
}
