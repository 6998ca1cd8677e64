package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/biorag/internal/api"
	"github.com/cloo-solutions/biorag/internal/domain"
)

type AnalyticsService interface {
	Compare(ctx context.Context, firstID, secondID string) (*domain.Comparison, error)
	Insights(ctx context.Context) ([]domain.ActionableInsight, error)
}

type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Compare handles GET /analytics/compare?ids=a,b.
func (h *AnalyticsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("ids"), ",")
	if len(ids) != 2 {
		api.Error(w, http.StatusBadRequest, "provide exactly two publication ids")
		return
	}

	cmp, err := h.svc.Compare(r.Context(), ids[0], ids[1])
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, cmp)
}

// Insights handles GET /analytics/insights: every actionable insight written
// back by ingestion.
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.svc.Insights(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, insights)
}
