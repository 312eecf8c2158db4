package directory

import (
	"github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/domain/shared"
)

// Operator is a driver, keyed by license number.
type Operator struct {
	shared.TenantRecord
	LicenseNumber string          `json:"licenseNumber" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	LicenseType   string          `json:"licenseType,omitempty"`
	LicenseExpiry ledger.FlexDate `json:"licenseExpiry"`
	MedicalExpiry ledger.FlexDate `json:"medicalExpiry"`
	Phone         string          `json:"phone,omitempty"`
	AssignedUnit  string          `json:"assignedUnit,omitempty"`
	Active        bool            `json:"active"`
}

// NaturalKey returns the per-tenant unique key
func (o *Operator) NaturalKey() string { return o.LicenseNumber }

// Validate checks required fields
func (o *Operator) Validate() error {
	if o.LicenseNumber == "" {
		return shared.NewDomainError("MISSING_FIELD", "Operator license number is required")
	}
	if o.Name == "" {
		return shared.NewDomainError("MISSING_FIELD", "Operator name is required")
	}
	return nil
}
