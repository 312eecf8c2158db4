// Package directory holds the tenant-scoped configuration entities:
// vehicles, operators, clients, suppliers, warehouses, users and bank
// accounts. Every entity embeds shared.TenantRecord and exposes a natural
// key; uniqueness of that key within a tenant is enforced by the
// application layer before insert.
package directory

import (
	"github.com/freightflow/backend/internal/domain/shared"
)

// VehicleStatus marks whether a vehicle is available for dispatch.
type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusInactive    VehicleStatus = "inactive"
)

// Vehicle is a tractor or box unit, keyed by its fleet number
// ("economico" in the source data).
type Vehicle struct {
	shared.TenantRecord
	Number       string        `json:"number" binding:"required"`
	Plates       string        `json:"plates,omitempty"`
	Brand        string        `json:"brand,omitempty"`
	Model        string        `json:"model,omitempty"`
	Year         int           `json:"year,omitempty"`
	SerialNumber string        `json:"serialNumber,omitempty"`
	Insurer      string        `json:"insurer,omitempty"`
	PolicyNumber string        `json:"policyNumber,omitempty"`
	Status       VehicleStatus `json:"status,omitempty"`
}

// NaturalKey returns the per-tenant unique key
func (v *Vehicle) NaturalKey() string { return v.Number }

// Validate checks required fields
func (v *Vehicle) Validate() error {
	if v.Number == "" {
		return shared.NewDomainError("MISSING_FIELD", "Vehicle number is required")
	}
	return nil
}
