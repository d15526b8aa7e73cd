package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	// User permissions
	PermissionAccountRead      = "account:read"
	PermissionTransferRead     = "transfer:read"
	PermissionTransferWrite    = "transfer:write"
	PermissionBeneficiaryRead  = "beneficiary:read"
	PermissionBeneficiaryWrite = "beneficiary:write"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
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

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	user := []string{
		PermissionAccountRead,
		PermissionTransferRead,
		PermissionTransferWrite,
		PermissionBeneficiaryRead,
		PermissionBeneficiaryWrite,
	}
	switch role {
	case RoleAdmin:
		return append(user, PermissionReadAdmin, PermissionWriteAdmin)
	case RoleUser:
		return user
	default:
		return []string{}
	}
}
