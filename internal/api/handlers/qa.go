package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/biorag/internal/api"
	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/service"
)

const (
	maxQAK            = 50
	indexMissingReply = "Vector index missing for this publication. Re-ingest it."
)

type QAService interface {
	Ask(ctx context.Context, req service.QARequest) (*service.QAResult, error)
}

type QAHandler struct {
	svc QAService
}

func NewQAHandler(svc QAService) *QAHandler {
	return &QAHandler{svc: svc}
}

type AskRequest struct {
	PublicationID string `json:"publication_id"`
	Question      string `json:"question"`
	K             int    `json:"k"`
}

// Ask answers a question about one publication. The response body is
// {"answer": "..."}.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.PublicationID) == "" {
		api.Error(w, http.StatusBadRequest, "publication_id is required")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.K < 0 || req.K > maxQAK {
		api.Error(w, http.StatusBadRequest, "k must be between 1 and 50")
		return
	}

	result, err := h.svc.Ask(r.Context(), service.QARequest{
		DocumentID: req.PublicationID,
		Question:   req.Question,
		K:          req.K,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIndexMissing) {
			api.JSON(w, http.StatusNotFound, api.ErrorResponse{Error: indexMissingReply, Code: domain.ErrCodeIndexMissing})
			return
		}
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, result)
}
