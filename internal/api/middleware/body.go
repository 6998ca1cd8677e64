package middleware

import (
	"net/http"

	"github.com/cloo-solutions/biorag/internal/api"
)

const codePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// MaxBodyBytes caps the request body at limit bytes. Requests that declare a
// larger Content-Length are rejected up front; streamed bodies fail on read.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.JSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{
					Error: "request body too large",
					Code:  codePayloadTooLarge,
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
