package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/service"
)

// MockPublicationService is a mock implementation of PublicationService
type MockPublicationService struct {
	mock.Mock
}

func (m *MockPublicationService) Save(ctx context.Context, p *domain.Publication) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPublicationService) IngestByID(ctx context.Context, id string) (*service.IngestResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockPublicationService) Enqueue(ctx context.Context, id string) (*domain.IngestionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

func (m *MockPublicationService) GetJob(ctx context.Context, id string) (*domain.IngestionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

func (m *MockPublicationService) GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublicationSummaries), args.Error(1)
}

// MockQAService is a mock implementation of QAService
type MockQAService struct {
	mock.Mock
}

func (m *MockQAService) Ask(ctx context.Context, req service.QARequest) (*service.QAResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QAResult), args.Error(1)
}

// MockSearchService is a mock implementation of SearchService
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, k int) ([]service.SearchResult, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.SearchResult), args.Error(1)
}

// MockAnalyticsService is a mock implementation of AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Compare(ctx context.Context, firstID, secondID string) (*domain.Comparison, error) {
	args := m.Called(ctx, firstID, secondID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comparison), args.Error(1)
}

func (m *MockAnalyticsService) Insights(ctx context.Context) ([]domain.ActionableInsight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActionableInsight), args.Error(1)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestPublicationHandler_Ingest_Sync(t *testing.T) {
	mockSvc := new(MockPublicationService)
	handler := NewPublicationHandler(mockSvc)
	mockSvc.On("IngestByID", mock.Anything, "pub-1").Return(&service.IngestResult{DocumentID: "pub-1", Chunks: 7}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/publications/pub-1/ingest", nil), "id", "pub-1")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), decodeData(t, w)["chunks"])
	mockSvc.AssertExpectations(t)
}

func TestPublicationHandler_Ingest_Async(t *testing.T) {
	mockSvc := new(MockPublicationService)
	handler := NewPublicationHandler(mockSvc)
	job := &domain.IngestionJob{ID: "job-1", PublicationID: "pub-1", Status: domain.IngestionJobStatusPending, CreatedAt: time.Now()}
	mockSvc.On("Enqueue", mock.Anything, "pub-1").Return(job, nil)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/publications/pub-1/ingest?async=true", nil), "id", "pub-1")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "job-1", data["id"])
	assert.Equal(t, "pending", data["status"])
	mockSvc.AssertNotCalled(t, "IngestByID", mock.Anything, mock.Anything)
}

func TestPublicationHandler_Ingest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty text", domain.ErrEmptyInput, http.StatusBadRequest},
		{"schema", domain.SchemaValidationError(errors.New("bad")), http.StatusUnprocessableEntity},
		{"provider", domain.ProviderError("generate", errors.New("down")), http.StatusBadGateway},
		{"not found", domain.ErrPublicationNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockPublicationService)
			mockSvc.On("IngestByID", mock.Anything, "pub-1").Return(nil, tt.err)

			req := withURLParam(httptest.NewRequest(http.MethodPost, "/publications/pub-1/ingest", nil), "id", "pub-1")
			w := httptest.NewRecorder()
			NewPublicationHandler(mockSvc).Ingest(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestPublicationHandler_Ingest_BadAsyncFlag(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/publications/pub-1/ingest?async=maybe", nil), "id", "pub-1")
	w := httptest.NewRecorder()
	NewPublicationHandler(new(MockPublicationService)).Ingest(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicationHandler_Save(t *testing.T) {
	mockSvc := new(MockPublicationService)
	mockSvc.On("Save", mock.Anything, mock.MatchedBy(func(p *domain.Publication) bool {
		return p.ID == "pub-1" && p.Title == "Bone loss" && p.Organism == "mouse"
	})).Return(nil)

	body := `{"title":"Bone loss","text":"...","organism":"mouse"}`
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/publications/pub-1", bytes.NewReader([]byte(body))), "id", "pub-1")
	w := httptest.NewRecorder()
	NewPublicationHandler(mockSvc).Save(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)

	req = withURLParam(httptest.NewRequest(http.MethodPut, "/publications/pub-1", bytes.NewReader([]byte(`{}`))), "id", "pub-1")
	w = httptest.NewRecorder()
	NewPublicationHandler(mockSvc).Save(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicationHandler_GetSummaries_NotFound(t *testing.T) {
	mockSvc := new(MockPublicationService)
	mockSvc.On("GetSummaries", mock.Anything, "pub-9").Return(nil, domain.ErrPublicationNotFound)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/publications/pub-9/summaries", nil), "id", "pub-9")
	w := httptest.NewRecorder()
	NewPublicationHandler(mockSvc).GetSummaries(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQAHandler_Ask_Success(t *testing.T) {
	mockSvc := new(MockQAService)
	mockSvc.On("Ask", mock.Anything, service.QARequest{DocumentID: "pub-1", Question: "Why?", K: 3}).
		Return(&service.QAResult{Answer: "Because [1]."}, nil)

	body := `{"publication_id":"pub-1","question":"Why?","k":3}`
	w := httptest.NewRecorder()
	NewQAHandler(mockSvc).Ask(w, httptest.NewRequest(http.MethodPost, "/qa/single-doc", bytes.NewReader([]byte(body))))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{"answer": "Because [1]."}, resp)
}

func TestQAHandler_Ask_IndexMissing(t *testing.T) {
	mockSvc := new(MockQAService)
	mockSvc.On("Ask", mock.Anything, mock.Anything).Return(nil, domain.IndexMissing("pub-1"))

	body := `{"publication_id":"pub-1","question":"Why?"}`
	w := httptest.NewRecorder()
	NewQAHandler(mockSvc).Ask(w, httptest.NewRequest(http.MethodPost, "/qa/single-doc", bytes.NewReader([]byte(body))))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Re-ingest it.")
}

func TestQAHandler_Ask_Validation(t *testing.T) {
	for name, body := range map[string]string{
		"bad json":         `{`,
		"missing id":       `{"question":"q"}`,
		"missing question": `{"publication_id":"p"}`,
		"k too large":      `{"publication_id":"p","question":"q","k":500}`,
	} {
		t.Run(name, func(t *testing.T) {
			mockSvc := new(MockQAService)
			w := httptest.NewRecorder()
			NewQAHandler(mockSvc).Ask(w, httptest.NewRequest(http.MethodPost, "/qa/single-doc", bytes.NewReader([]byte(body))))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockSvc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
		})
	}
}

func TestSearchHandler_Global(t *testing.T) {
	mockSvc := new(MockSearchService)
	mockSvc.On("Search", mock.Anything, "bone loss", service.DefaultSearchK).
		Return([]service.SearchResult{{DocumentID: "pub-1", Score: 0.9, Snippet: "bone"}}, nil)

	w := httptest.NewRecorder()
	NewSearchHandler(mockSvc).Global(w, httptest.NewRequest(http.MethodGet, "/search/global?q=bone+loss", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var results []service.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "pub-1", results[0].DocumentID)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Global_NothingIngested(t *testing.T) {
	mockSvc := new(MockSearchService)
	mockSvc.On("Search", mock.Anything, "bone", service.DefaultSearchK).
		Return(nil, domain.IndexMissing(domain.GlobalScope))

	w := httptest.NewRecorder()
	NewSearchHandler(mockSvc).Global(w, httptest.NewRequest(http.MethodGet, "/search/global?q=bone", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSearchHandler_Global_ProviderError(t *testing.T) {
	mockSvc := new(MockSearchService)
	mockSvc.On("Search", mock.Anything, "bone", service.DefaultSearchK).
		Return(nil, domain.ProviderError("embed query", errors.New("timeout")))

	w := httptest.NewRecorder()
	NewSearchHandler(mockSvc).Global(w, httptest.NewRequest(http.MethodGet, "/search/global?q=bone", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSearchHandler_Global_Validation(t *testing.T) {
	for _, url := range []string{
		"/search/global",
		"/search/global?q=a",
		"/search/global?q=%20a%20",
		"/search/global?q=bone&k=zero",
		"/search/global?q=bone&k=0",
		"/search/global?q=bone&k=1000",
	} {
		t.Run(url, func(t *testing.T) {
			mockSvc := new(MockSearchService)
			w := httptest.NewRecorder()
			NewSearchHandler(mockSvc).Global(w, httptest.NewRequest(http.MethodGet, url, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(map[string]Pinger{"database": pingFunc(func(context.Context) error { return nil })})(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	Health(map[string]Pinger{"database": pingFunc(func(context.Context) error { return errors.New("down") })})(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestAnalyticsHandler_Compare(t *testing.T) {
	mockSvc := new(MockAnalyticsService)
	mockSvc.On("Compare", mock.Anything, "pub-1", "pub-2").
		Return(&domain.Comparison{MethodologyComparison: "m", ResultsComparison: "r", ConclusionsComparison: "c"}, nil)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(mockSvc).Compare(w, httptest.NewRequest(http.MethodGet, "/analytics/compare?ids=pub-1,pub-2", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data domain.Comparison `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "r", resp.Data.ResultsComparison)
	mockSvc.AssertExpectations(t)
}

func TestAnalyticsHandler_Compare_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		svcErr     error
		wantStatus int
	}{
		{"missing ids", "/analytics/compare", nil, http.StatusBadRequest},
		{"one id", "/analytics/compare?ids=pub-1", nil, http.StatusBadRequest},
		{"three ids", "/analytics/compare?ids=a,b,c", nil, http.StatusBadRequest},
		{"unknown publication", "/analytics/compare?ids=a,b", domain.ErrPublicationNotFound, http.StatusNotFound},
		{"invalid generation", "/analytics/compare?ids=a,b", domain.SchemaValidationError(errors.New("bad")), http.StatusUnprocessableEntity},
		{"provider down", "/analytics/compare?ids=a,b", domain.ProviderError("generate", errors.New("down")), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockAnalyticsService)
			if tt.svcErr != nil {
				mockSvc.On("Compare", mock.Anything, "a", "b").Return(nil, tt.svcErr)
			}

			w := httptest.NewRecorder()
			NewAnalyticsHandler(mockSvc).Compare(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAnalyticsHandler_Insights(t *testing.T) {
	mockSvc := new(MockAnalyticsService)
	mockSvc.On("Insights", mock.Anything).Return([]domain.ActionableInsight{}, nil)

	w := httptest.NewRecorder()
	NewAnalyticsHandler(mockSvc).Insights(w, httptest.NewRequest(http.MethodGet, "/analytics/insights", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}
