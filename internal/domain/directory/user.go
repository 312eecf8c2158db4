package directory

import (
	"strings"

	"github.com/freightflow/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role controls which modules a user may operate.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBilling  Role = "billing"
	RoleTraffic  Role = "traffic"
	RoleReadOnly Role = "readonly"
)

// IsValid checks if the role is a known Role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleBilling, RoleTraffic, RoleReadOnly:
		return true
	}
	return false
}

// User is an application account, keyed by lowercased email. Passwords
// are stored as bcrypt hashes only.
type User struct {
	shared.TenantRecord
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name" binding:"required"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Active       bool   `json:"active"`
}

// NaturalKey returns the per-tenant unique key
func (u *User) NaturalKey() string { return strings.ToLower(u.Email) }

// Validate checks required fields
func (u *User) Validate() error {
	if u.Email == "" {
		return shared.NewDomainError("MISSING_FIELD", "User email is required")
	}
	if u.Name == "" {
		return shared.NewDomainError("MISSING_FIELD", "User name is required")
	}
	if u.Role != "" && !u.Role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown user role")
	}
	return nil
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	if len(plain) < 8 {
		return shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
