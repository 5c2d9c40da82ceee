package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the bearer token payload issued by the identity service.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// WalletRole maps the token role onto a wallet role. Service accounts have
// no wallet and map to an empty role.
func (c *UserClaims) WalletRole() WalletRole {
	role := WalletRole(c.Role)
	if role.Valid() {
		return role
	}
	return ""
}
