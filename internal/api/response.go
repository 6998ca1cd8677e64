package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// statusByCode maps domain error codes to HTTP statuses. Unknown codes are
// internal errors.
var statusByCode = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeEmptyInput:       http.StatusBadRequest,
	domain.ErrCodeSchemaValidation: http.StatusUnprocessableEntity,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeIndexMissing:     http.StatusNotFound,
	domain.ErrCodeProvider:         http.StatusBadGateway,
	domain.ErrCodePersistence:      http.StatusInternalServerError,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

// DomainErrorToHTTP maps the first domain error in err's chain to an HTTP
// status code.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes an appropriate error response based on the error type.
// Errors outside the domain are reported without their details.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		JSON(w, status, ErrorResponse{Error: http.StatusText(status)})
		return
	}
	JSON(w, status, ErrorResponse{Error: domainErr.Error(), Code: domainErr.Code})
}
