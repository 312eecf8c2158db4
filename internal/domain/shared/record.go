package shared

import "time"

// TenantScoped is implemented by every entity stored in a shared
// per-collection document. The document store holds records from
// all tenants side by side; reads filter on the tenant id.
type TenantScoped interface {
	GetTenantID() string
	SetTenantID(string)
	Touch(time.Time)
}

// TenantRecord provides the common fields for tenant-scoped entities.
// Embed it in every entity that lives inside a shared document.
type TenantRecord struct {
	TenantID  string    `json:"tenantId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetTenantID returns the owning tenant id
func (r *TenantRecord) GetTenantID() string {
	return r.TenantID
}

// SetTenantID assigns the owning tenant id
func (r *TenantRecord) SetTenantID(id string) {
	r.TenantID = id
}

// Touch stamps the last-modified timestamp
func (r *TenantRecord) Touch(now time.Time) {
	r.UpdatedAt = now
}
