package dto

import "net/http"

// Error code constants
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeSessionExpired is used when the seller-panel session needs a manual login
	ErrCodeSessionExpired = "ERR_SESSION_EXPIRED"
	// ErrCodeRateLimited is used when the upstream panel throttles the sync
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeUpstream is used when the seller panel rejects or breaks a request
	ErrCodeUpstream = "ERR_UPSTREAM"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:       http.StatusInternalServerError,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeInvalidInput:   http.StatusBadRequest,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeAlreadyExists:  http.StatusConflict,
	ErrCodeSessionExpired: http.StatusUnauthorized,
	ErrCodeRateLimited:    http.StatusTooManyRequests,
	ErrCodeUpstream:       http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code, falling
// back to 500 for unknown codes
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes onto API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":       ErrCodeNotFound,
	"ALREADY_EXISTS":  ErrCodeAlreadyExists,
	"INVALID_INPUT":   ErrCodeInvalidInput,
	"SESSION_EXPIRED": ErrCodeSessionExpired,
	"RATE_LIMITED":    ErrCodeRateLimited,
}

// MapDomainCode translates a domain error code to its API counterpart
func MapDomainCode(code string) string {
	if mapped, ok := DomainErrorCodeMapping[code]; ok {
		return mapped
	}
	return ErrCodeInternal
}
