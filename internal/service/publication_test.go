package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// MockPublicationRepository is a mock implementation of PublicationRepositoryInterface
type MockPublicationRepository struct {
	mock.Mock
}

func (m *MockPublicationRepository) Upsert(ctx context.Context, p *domain.Publication) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPublicationRepository) GetByID(ctx context.Context, id string) (*domain.Publication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Publication), args.Error(1)
}

func (m *MockPublicationRepository) WriteSummaries(ctx context.Context, id string, s *domain.PublicationSummaries) error {
	args := m.Called(ctx, id, s)
	return args.Error(0)
}

func (m *MockPublicationRepository) GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublicationSummaries), args.Error(1)
}

func (m *MockPublicationRepository) ListActionableInsights(ctx context.Context) ([]domain.ActionableInsight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActionableInsight), args.Error(1)
}

// MockIngestionJobRepository is a mock implementation of IngestionJobRepositoryInterface
type MockIngestionJobRepository struct {
	mock.Mock
}

func (m *MockIngestionJobRepository) Create(ctx context.Context, job *domain.IngestionJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockIngestionJobRepository) GetByID(ctx context.Context, id string) (*domain.IngestionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

func newPublicationFixture(t *testing.T) (*PublicationService, *MockPublicationRepository, *MockIngestionJobRepository, *testTxRunner) {
	t.Helper()
	pubs := new(MockPublicationRepository)
	jobs := new(MockIngestionJobRepository)
	runner := &testTxRunner{repos: &testTxRepos{publications: pubs, ingestionJobs: jobs}}
	mgr, _ := newTestManager(t)
	ingestion := NewIngestionService(NewExtractionService(happyGenerator(), nil, 0, nil), mgr, DefaultChunkConfig(), nil)
	svc := NewPublicationServiceWithUUIDGen(pubs, jobs, runner, ingestion, mgr, NewMockUUIDGenerator("job-1"))
	return svc, pubs, jobs, runner
}

func TestPublicationService_Enqueue(t *testing.T) {
	svc, pubs, jobs, runner := newPublicationFixture(t)
	pubs.On("GetByID", mock.Anything, "pub-1").Return(&domain.Publication{ID: "pub-1"}, nil)
	jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.IngestionJob) bool {
		return j.ID == "job-1" && j.PublicationID == "pub-1" && j.Status == domain.IngestionJobStatusPending
	})).Return(nil)

	job, err := svc.Enqueue(context.Background(), "pub-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.True(t, runner.called)
	pubs.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestPublicationService_Enqueue_UnknownPublication(t *testing.T) {
	svc, pubs, jobs, _ := newPublicationFixture(t)
	pubs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrPublicationNotFound)

	_, err := svc.Enqueue(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrPublicationNotFound))
	jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPublicationService_IngestByID(t *testing.T) {
	svc, pubs, _, _ := newPublicationFixture(t)
	pub := &domain.Publication{ID: "pub-1", Title: "Bone", Text: "bone loss in mice"}
	pubs.On("GetByID", mock.Anything, "pub-1").Return(pub, nil)
	pubs.On("WriteSummaries", mock.Anything, "pub-1", mock.AnythingOfType("*domain.PublicationSummaries")).Return(nil)

	res, err := svc.IngestByID(context.Background(), "pub-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	ok, err := svc.HasIndex(context.Background(), "pub-1")
	require.NoError(t, err)
	assert.True(t, ok)
	pubs.AssertExpectations(t)
}

func TestPublicationService_Save_Validation(t *testing.T) {
	svc, pubs, _, _ := newPublicationFixture(t)

	err := svc.Save(context.Background(), &domain.Publication{ID: ""})
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	err = svc.Save(context.Background(), &domain.Publication{ID: "a/b"})
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	err = svc.Save(context.Background(), &domain.Publication{ID: "global"})
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	pubs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
