package openai

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// parseAPIError turns a transport failure into a PROVIDER_ERROR carrying the
// most readable detail available.
func parseAPIError(op string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.ProviderError(op, fmt.Errorf("API error %d: %s: %w", reqErr.HTTPStatusCode, detail, err))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.ProviderError(op, fmt.Errorf("API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err))
	}

	return domain.ProviderError(op, err)
}

// extractDetail reads the "detail" or "error" field some compatible servers
// (ollama among them) return instead of the OpenAI error envelope.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}
