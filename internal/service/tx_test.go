package service

import "context"

type testTxRepos struct {
	publications  PublicationRepositoryInterface
	ingestionJobs IngestionJobRepositoryInterface
}

func (t *testTxRepos) Publications() PublicationRepositoryInterface {
	return t.publications
}

func (t *testTxRepos) IngestionJobs() IngestionJobRepositoryInterface {
	return t.ingestionJobs
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
	err    error
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	if t.err != nil {
		return t.err
	}
	return fn(t.repos)
}
