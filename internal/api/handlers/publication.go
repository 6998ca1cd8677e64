package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/biorag/internal/api"
	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/service"
)

type PublicationService interface {
	Save(ctx context.Context, p *domain.Publication) error
	IngestByID(ctx context.Context, id string) (*service.IngestResult, error)
	Enqueue(ctx context.Context, id string) (*domain.IngestionJob, error)
	GetJob(ctx context.Context, id string) (*domain.IngestionJob, error)
	GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error)
}

type PublicationHandler struct {
	svc PublicationService
}

func NewPublicationHandler(svc PublicationService) *PublicationHandler {
	return &PublicationHandler{svc: svc}
}

type SavePublicationRequest struct {
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	Text        string `json:"text"`
	Year        string `json:"year"`
	Organism    string `json:"organism"`
	Environment string `json:"environment"`
}

type IngestionJobResponse struct {
	ID            string `json:"id"`
	PublicationID string `json:"publication_id"`
	Status        string `json:"status"`
	Retries       int32  `json:"retries"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
	ProcessedAt   string `json:"processed_at,omitempty"`
}

func jobToResponse(j *domain.IngestionJob) *IngestionJobResponse {
	resp := &IngestionJobResponse{
		ID:            j.ID,
		PublicationID: j.PublicationID,
		Status:        string(j.Status),
		Retries:       j.Retries,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if j.ProcessedAt != nil {
		resp.ProcessedAt = j.ProcessedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// Save stores or refreshes the source fields of a publication.
func (h *PublicationHandler) Save(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SavePublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	pub := &domain.Publication{
		ID:          id,
		Title:       req.Title,
		Abstract:    req.Abstract,
		Text:        req.Text,
		Year:        req.Year,
		Organism:    req.Organism,
		Environment: req.Environment,
	}
	if err := h.svc.Save(r.Context(), pub); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id})
}

// Ingest runs ingestion inline, or enqueues a job when async=true.
func (h *PublicationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "async must be a boolean")
			return
		}
		async = b
	}

	if async {
		job, err := h.svc.Enqueue(r.Context(), id)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusAccepted, jobToResponse(job))
		return
	}

	result, err := h.svc.IngestByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}

func (h *PublicationHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	summaries, err := h.svc.GetSummaries(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, summaries)
}

func (h *PublicationHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, jobToResponse(job))
}
