package dto

import "net/http"

// Transport-level error codes. Domain errors carry their own codes; the
// mapping below assigns each a status.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeNotFound:     http.StatusNotFound,

	"ALREADY_EXISTS":  http.StatusConflict,
	"TENANT_MISMATCH": http.StatusForbidden,

	"MISSING_FIELD":  http.StatusBadRequest,
	"MISSING_KEY":    http.StatusBadRequest,
	"INVALID_INPUT":  http.StatusBadRequest,
	"INVALID_AMOUNT": http.StatusBadRequest,
	"INVALID_METHOD": http.StatusBadRequest,
	"INVALID_INDEX":  http.StatusBadRequest,
	"INVALID_ROLE":   http.StatusBadRequest,
	"WEAK_PASSWORD":  http.StatusBadRequest,

	"INVALID_STATE":   http.StatusUnprocessableEntity,
	"EXCEEDS_PENDING": http.StatusUnprocessableEntity,

	"CONFIRMATION_REQUIRED": http.StatusPreconditionRequired,

	"WRITES_SUSPENDED":  http.StatusServiceUnavailable,
	"STORE_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for a domain error code.
// Unknown codes default to 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
