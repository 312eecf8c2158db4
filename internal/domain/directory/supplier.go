package directory

import (
	"github.com/freightflow/backend/internal/domain/shared"
)

// Supplier is a vendor (fuel, maintenance, tolls), keyed by RFC.
type Supplier struct {
	shared.TenantRecord
	RFC          string `json:"rfc" binding:"required"`
	BusinessName string `json:"businessName" binding:"required"`
	Category     string `json:"category,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	Active       bool   `json:"active"`
}

// NaturalKey returns the per-tenant unique key
func (s *Supplier) NaturalKey() string { return s.RFC }

// Validate checks required fields
func (s *Supplier) Validate() error {
	if s.RFC == "" {
		return shared.NewDomainError("MISSING_FIELD", "Supplier RFC is required")
	}
	if s.BusinessName == "" {
		return shared.NewDomainError("MISSING_FIELD", "Supplier business name is required")
	}
	return nil
}
