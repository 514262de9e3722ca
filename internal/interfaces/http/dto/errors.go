package dto

import "net/http"

// Error codes surfaced by the API. Domain errors carry these codes
// verbatim; the handler layer only maps them to HTTP statuses.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeAuth             = "AUTH_ERROR"
	ErrCodeAccessDenied     = "ACCESS_DENIED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeAlreadyConverted = "ALREADY_CONVERTED"
	ErrCodeNoActiveCompany  = "NO_ACTIVE_COMPANY"
	ErrCodeStoreFailure     = "STORE_FAILURE"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps API error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeAuth:             http.StatusUnauthorized,
	ErrCodeAccessDenied:     http.StatusForbidden,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeAlreadyConverted: http.StatusConflict,
	ErrCodeNoActiveCompany:  http.StatusBadRequest,
	ErrCodeStoreFailure:     http.StatusInternalServerError,
	ErrCodeInternal:         http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 for
// codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
