package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/biorag/internal/api"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns 200 when every configured dependency answers.
func Health(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, dep := range deps {
			if err := dep.Ping(r.Context()); err != nil {
				status[name] = "unavailable"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		api.JSON(w, code, status)
	}
}
