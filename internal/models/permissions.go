package models

// Token roles. Service tokens belong to the order, delivery and cancellation
// systems that move money on behalf of users.
const (
	TokenRoleCustomer = "customer"
	TokenRoleProvider = "provider"
	TokenRoleAdmin    = "admin"
	TokenRoleService  = "service"
)

// Permission constants
const (
	PermissionWalletRead      = "wallet:read"
	PermissionWalletWrite     = "wallet:write"
	PermissionWithdrawalWrite = "withdrawal:write"
	PermissionLedgerTransfer  = "ledger:transfer"
	PermissionReadAdmin       = "admin:read"
	PermissionWriteAdmin      = "admin:write"
)

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case TokenRoleAdmin:
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionWithdrawalWrite,
			PermissionLedgerTransfer,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case TokenRoleCustomer, TokenRoleProvider:
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionWithdrawalWrite,
		}
	case TokenRoleService:
		return []string{
			PermissionLedgerTransfer,
		}
	default:
		return []string{}
	}
}
