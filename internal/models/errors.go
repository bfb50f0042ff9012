package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents client input validation errors (400)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeExternalAPI represents downstream provider errors (502)
	ErrorTypeExternalAPI ErrorType = "external_api"
	// ErrorTypeRateLimit represents rate limiting errors (429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNetwork represents transport-level failures (503)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeInternal represents unclassified internal errors (500)
	ErrorTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitzero"`
	StatusCode int       `json:"-"`
	Retryable  bool      `json:"retryable"`
	Details    any       `json:"details,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// GetStatusCode returns the HTTP status code for the error
func (e *AppError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeExternalAPI:
		return http.StatusBadGateway
	case ErrorTypeNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the templated user-facing message for the error type.
func (e *AppError) UserMessage() string {
	switch e.Type {
	case ErrorTypeValidation:
		return e.Message
	case ErrorTypeExternalAPI:
		if strings.Contains(e.Code, "404") {
			return "No results found for your search. Try a different query."
		}
		return "The search service had a hiccup. Please try again."
	case ErrorTypeRateLimit:
		return "Too many requests right now. Give it a moment and retry."
	case ErrorTypeNetwork:
		return "We couldn't reach the search service. Please retry shortly."
	default:
		return "Something went wrong on our side."
	}
}

// HTTPStatusError carries a downstream HTTP status for classification.
// Returned by the API client so ClassifyError can see the raw status code.
type HTTPStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("provider %s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Code:       "VALIDATION_FAILED",
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewExternalAPIError creates a downstream provider error. Retryable for
// server-side statuses (>= 500) and 429, terminal for the rest.
func NewExternalAPIError(provider string, statusCode int, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternalAPI,
		Message:    fmt.Sprintf("provider %s request failed", provider),
		Code:       fmt.Sprintf("EXTERNAL_%s_%d", strings.ToUpper(provider), statusCode),
		StatusCode: http.StatusBadGateway,
		Retryable:  statusCode >= 500 || statusCode == http.StatusTooManyRequests,
		Cause:      cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(provider string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("rate limited by %s", provider),
		Code:       "RATE_LIMIT_EXCEEDED",
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

// NewNetworkError creates a transport-level error
func NewNetworkError(operation string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    fmt.Sprintf("network failure during %s", operation),
		Code:       "NETWORK_ERROR",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewUnavailableError creates a retryable error for an open circuit breaker
func NewUnavailableError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeExternalAPI,
		Message:    fmt.Sprintf("service %s is temporarily unavailable", service),
		Code:       "CIRCUIT_OPEN",
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
	}
}

// ClassifyError maps an arbitrary failure into the AppError taxonomy.
// Every error crossing the HTTP boundary must pass through here so the
// response envelope stays consistent.
func ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests {
			rateErr := NewRateLimitError(statusErr.Provider)
			rateErr.Cause = statusErr
			return rateErr
		}
		return NewExternalAPIError(statusErr.Provider, statusErr.StatusCode, statusErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewNetworkError("request", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewNetworkError("request", err)
	}

	return NewInternalError("an unexpected error occurred", err)
}

// SanitizeError sanitizes an error for external consumption
func SanitizeError(err error) *AppError {
	appErr := ClassifyError(err)
	return &AppError{
		Type:       appErr.Type,
		Message:    appErr.UserMessage(),
		Code:       appErr.Code,
		StatusCode: appErr.GetStatusCode(),
		Retryable:  appErr.Retryable,
		Details:    appErr.Details,
	}
}
