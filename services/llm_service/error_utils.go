package llm_service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
)

// APIHttpError is a non-2xx answer from a model provider.
type APIHttpError struct {
	Provider   string
	StatusCode int
	Message    string
	ErrorType  string
	RawBody    string
}

func (e *APIHttpError) Error() string {
	return fmt.Sprintf("%s API error (HTTP %d): %s (Type: %s)", e.Provider, e.StatusCode, e.Message, e.ErrorType)
}

// extractGeminiErrorDetails reads a Gemini error envelope:
// {"error": {"code": 429, "message": "...", "status": "RESOURCE_EXHAUSTED"}}
func extractGeminiErrorDetails(resp *http.Response) *APIHttpError {
	httpErr := &APIHttpError{Provider: "Gemini", StatusCode: resp.StatusCode, ErrorType: "unknown"}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		httpErr.Message = "Failed to read error response"
		return httpErr
	}
	httpErr.RawBody = string(body)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		httpErr.Message = string(body)
		return httpErr
	}
	httpErr.Message = envelope.Error.Message
	httpErr.ErrorType = envelope.Error.Status
	return httpErr
}

// statusCode digs the HTTP status out of provider errors, 0 if there is none.
func statusCode(err error) int {
	var httpErr *APIHttpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var openAIErr *openai.Error
	if errors.As(err, &openAIErr) {
		return openAIErr.StatusCode
	}
	return 0
}

func isRateLimitError(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}

func isServerError(err error) bool {
	return statusCode(err) >= http.StatusInternalServerError
}

// isPermanentError reports client errors that a retry cannot fix.
func isPermanentError(err error) bool {
	code := statusCode(err)
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}
