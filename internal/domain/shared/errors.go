package shared

// DomainError carries a stable machine-readable code alongside the
// human-readable message. The HTTP layer maps codes to status codes.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinel errors shared across modules. Compare with errors.Is; the
// instances double as their own identity.
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists     = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrTenantMismatch    = NewDomainError("TENANT_MISMATCH", "Resource belongs to a different tenant")
	ErrUnauthorized      = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrExceedsPending    = NewDomainError("EXCEEDS_PENDING", "Payment amount exceeds pending balance")
	ErrWritesSuspended   = NewDomainError("WRITES_SUSPENDED", "Backend writes are suspended, try again later")
	ErrStoreUnavailable  = NewDomainError("STORE_UNAVAILABLE", "Document store is not reachable")
	ErrConfirmationGuard = NewDomainError("CONFIRMATION_REQUIRED", "Destructive operation requires explicit confirmation")
)
