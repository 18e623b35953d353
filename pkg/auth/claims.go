package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role distinguishes vendor callers from supplier callers at the API edge.
type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
)

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return r == RoleVendor || r == RoleSupplier
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
// Token issuance happens elsewhere; this service only validates and reads.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	StoreID uuid.UUID `json:"store_id"`
	Role    Role      `json:"role"`
	jwt.RegisteredClaims
}
