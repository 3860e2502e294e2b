// Package rbac holds the marketplace role model for escrow mutations.
// Authorization is decided here and in the escrow service, never in the
// presentation layer.
package rbac

// Role constants
const (
	RoleBuyer    = "buyer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Permission constants
const (
	PermStartEscrow   = "start_escrow"
	PermReleaseEscrow = "release_escrow"
	PermRefundEscrow  = "refund_escrow"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleBuyer: {
		PermStartEscrow, PermReleaseEscrow, PermRefundEscrow,
	},
	RoleAdmin: {
		PermReleaseEscrow, PermRefundEscrow,
	},
	// Providers never mutate escrow directly.
	RoleProvider: {},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// CanMutateTransaction applies the ownership rule for release/refund:
// admins may act on any transaction, buyers only on their own.
func CanMutateTransaction(role, callerID, buyerID string) bool {
	if role == RoleAdmin {
		return true
	}
	return role == RoleBuyer && callerID != "" && callerID == buyerID
}
