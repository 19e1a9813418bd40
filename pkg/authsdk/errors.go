package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned by the service. The set is deliberately closed and
// coarse: credential and code mismatches share one code so callers cannot
// probe which check failed.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidCredential = "invalid_credential"
	ErrorCodeInvalidCode       = "invalid_code"
	ErrorCodeExpired           = "expired"
	ErrorCodeTooManyAttempts   = "too_many_attempts"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeConflict          = "conflict"
	ErrorCodeServerError       = "server_error"
)

// APIError is the service's JSON error envelope. It implements error so
// the same type serves the server (writing responses) and the client
// (reporting them).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is one of the ErrorCode constants
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	// ErrInvalidCredential covers unknown email and wrong password alike.
	ErrInvalidCredential = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredential,
		Description: "email or password is incorrect",
	}

	// ErrInvalidCode covers mismatched, consumed and unknown codes alike.
	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCode,
		Description: "the submitted code is not valid",
	}

	// ErrExpired is distinguished from ErrInvalidCode so clients can offer
	// a resend prompt.
	ErrExpired = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeExpired,
		Description: "the code or challenge has expired, request a new one",
	}

	ErrTooManyAttempts = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeTooManyAttempts,
		Description: "too many failed attempts, start over",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "missing or invalid session token",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "the requested resource does not exist",
	}

	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "the request conflicts with current state",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an internal error occurred, try again later",
	}
)
