package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/pavelanni/interviewer/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Common error codes shared by providers.
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)

// ProviderError is a failure reported by or while talking to an LLM backend.
// It matches model.ErrExternalService with errors.Is.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == model.ErrExternalService
}

// classify maps a transport or API error to a ProviderError code.
func classify(provider, message string, err error) *ProviderError {
	code := ErrCodeServiceDown
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case errors.As(err, &apiErr):
		code = codeForStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		code = codeForStatus(reqErr.HTTPStatusCode)
	}
	return &ProviderError{Provider: provider, Code: code, Message: message, Err: err}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeAPIKey
	case http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrCodeInvalidInput
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrCodeTimeout
	default:
		return ErrCodeServiceDown
	}
}
