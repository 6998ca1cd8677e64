package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/biorag/internal/service"
)

// TxRunner hands out publication and job repositories bound to one
// transaction. The transaction commits when fn returns nil.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(txRepos{tx: tx})
	})
}

type txRepos struct {
	tx pgx.Tx
}

func (r txRepos) Publications() service.PublicationRepositoryInterface {
	return NewPublicationRepositoryWithTx(r.tx)
}

func (r txRepos) IngestionJobs() service.IngestionJobRepositoryInterface {
	return NewIngestionJobRepositoryWithTx(r.tx)
}
