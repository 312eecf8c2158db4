package directory

import (
	"github.com/freightflow/backend/internal/domain/shared"
)

// Warehouse is a loading or storage location. The code is the natural key
// when present; the name serves as key for legacy rows saved without one.
type Warehouse struct {
	shared.TenantRecord
	Code     string `json:"code,omitempty"`
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Contact  string `json:"contact,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Capacity string `json:"capacity,omitempty"`
	Active   bool   `json:"active"`
}

// NaturalKey returns the per-tenant unique key
func (w *Warehouse) NaturalKey() string {
	if w.Code != "" {
		return w.Code
	}
	return w.Name
}

// Validate checks required fields
func (w *Warehouse) Validate() error {
	if w.Name == "" && w.Code == "" {
		return shared.NewDomainError("MISSING_FIELD", "Warehouse needs a code or a name")
	}
	return nil
}
