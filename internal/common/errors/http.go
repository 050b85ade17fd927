// internal/common/errors/http.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// Logger is the minimal logging surface the error writer needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// HTTPStatus maps an error code to the status code the boundary responds
// with. Dependency failures map to 500; their details stay server-side.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeTokenInvalid:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeInvalidTransition, ErrCodeAlreadyTerminal:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the wire shape for all error responses.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteHTTP normalizes err to a StandardError, logs it, and writes the
// mapped response. Internal details are never echoed to the caller.
func WriteHTTP(w http.ResponseWriter, err error, log Logger) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	if status == http.StatusInternalServerError {
		log.Error("request failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"message":   stdErr.Message,
			"details":   stdErr.Details,
		})
	}

	body := errorResponse{Error: stdErr.Message}
	if status != http.StatusInternalServerError {
		body.Code = string(stdErr.Code)
	} else {
		body.Error = "An unexpected error occurred"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
