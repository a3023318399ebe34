package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrorTypeEndpoint      ErrorType = "endpoint"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeModel         ErrorType = "model"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeEmptyResponse ErrorType = "empty_response"
	ErrorTypeCanceled      ErrorType = "canceled"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Model      string
	Endpoint   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable lets the retry package decide without importing llm.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewErrorWithContext creates a new structured LLM error with model and endpoint.
func NewErrorWithContext(errType ErrorType, message string, retryable bool, cause error, model, endpoint string, statusCode int) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
		Model:      model,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

var statusCodes = []int{400, 401, 403, 404, 408, 429, 500, 502, 503, 504, 529}

// ClassifyError categorizes a provider error by its message.
// The three SDKs in use report failures differently, so classification is string based.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range statusCodes {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	classify := func(t ErrorType, msg string, retryable bool) *Error {
		e := NewError(t, msg, retryable, err)
		e.StatusCode = statusCode
		return e
	}

	switch {
	case strings.Contains(lower, "context canceled"):
		// The caller gave up; retrying would ignore that.
		return classify(ErrorTypeCanceled, "request canceled", false)
	case statusCode == 401 || statusCode == 403 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication_error") ||
		strings.Contains(lower, "api key not valid"):
		return classify(ErrorTypeAuth, "authentication failed", false)
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")):
		return classify(ErrorTypeModel, "model not found", false)
	case statusCode == 404:
		return classify(ErrorTypeEndpoint, "endpoint not found", false)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset"):
		return classify(ErrorTypeEndpoint, "connection failed", true)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return classify(ErrorTypeEndpoint, "request timeout", true)
	case statusCode == 429 || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "quota"):
		return classify(ErrorTypeRateLimit, "rate limited", true)
	case statusCode == 529 || strings.Contains(lower, "overloaded"):
		return classify(ErrorTypeEndpoint, "provider overloaded", true)
	case statusCode >= 500:
		return classify(ErrorTypeEndpoint, "server error", true)
	default:
		return classify(ErrorTypeUnknown, "llm error", false)
	}
}

func classifyWithContext(err error, model, endpoint string) *Error {
	e := ClassifyError(err)
	if e.Model == "" {
		e.Model = model
	}
	if e.Endpoint == "" {
		e.Endpoint = endpoint
	}
	return e
}

// IsRetryable returns true if the error is a retryable LLM error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
