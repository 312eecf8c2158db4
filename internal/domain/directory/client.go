package directory

import (
	"github.com/freightflow/backend/internal/domain/shared"
)

// Client is a freight customer, keyed by RFC (the Mexican tax id).
// CreditTermDays feeds the receivables module's due-date derivation.
type Client struct {
	shared.TenantRecord
	RFC            string `json:"rfc" binding:"required"`
	BusinessName   string `json:"businessName" binding:"required"`
	TradeName      string `json:"tradeName,omitempty"`
	ContactName    string `json:"contactName,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	CreditTermDays int    `json:"creditTermDays,omitempty"`
	Active         bool   `json:"active"`
}

// NaturalKey returns the per-tenant unique key
func (c *Client) NaturalKey() string { return c.RFC }

// Validate checks required fields
func (c *Client) Validate() error {
	if c.RFC == "" {
		return shared.NewDomainError("MISSING_FIELD", "Client RFC is required")
	}
	if c.BusinessName == "" {
		return shared.NewDomainError("MISSING_FIELD", "Client business name is required")
	}
	return nil
}
