package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/biorag/internal/api"
	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/service"
)

const (
	minQueryRunes = 2
	maxSearchK    = 100
)

type SearchService interface {
	Search(ctx context.Context, query string, k int) ([]service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Global searches every ingested publication: GET /search/global?q=&k=.
// The response is a JSON array, best match first. Before the first ingestion
// the array is empty.
func (h *SearchHandler) Global(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) < minQueryRunes {
		api.Error(w, http.StatusBadRequest, "q must be at least 2 characters")
		return
	}

	k := service.DefaultSearchK
	if v := r.URL.Query().Get("k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxSearchK {
			api.Error(w, http.StatusBadRequest, "k must be an integer between 1 and 100")
			return
		}
		k = parsed
	}

	results, err := h.svc.Search(r.Context(), q, k)
	if errors.Is(err, domain.ErrIndexMissing) {
		results, err = []service.SearchResult{}, nil
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, results)
}
