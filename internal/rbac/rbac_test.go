package rbac

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		expected   bool
	}{
		{RoleBuyer, PermStartEscrow, true},
		{RoleBuyer, PermReleaseEscrow, true},
		{RoleBuyer, PermRefundEscrow, true},

		{RoleAdmin, PermStartEscrow, false},
		{RoleAdmin, PermReleaseEscrow, true},
		{RoleAdmin, PermRefundEscrow, true},

		{RoleProvider, PermStartEscrow, false},
		{RoleProvider, PermReleaseEscrow, false},
		{RoleProvider, PermRefundEscrow, false},

		{"nonexistent", PermStartEscrow, false},
		{RoleBuyer, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.permission, func(t *testing.T) {
			if got := HasPermission(tt.role, tt.permission); got != tt.expected {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.permission, got, tt.expected)
			}
		})
	}
}

func TestCanMutateTransaction(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		callerID string
		buyerID  string
		expected bool
	}{
		{"buyer own transaction", RoleBuyer, "buyer-7", "buyer-7", true},
		{"buyer other transaction", RoleBuyer, "buyer-7", "buyer-8", false},
		{"admin any transaction", RoleAdmin, "admin-1", "buyer-7", true},
		{"provider never", RoleProvider, "provider-9", "buyer-7", false},
		{"provider own id as buyer", RoleProvider, "provider-9", "provider-9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutateTransaction(tt.role, tt.callerID, tt.buyerID); got != tt.expected {
				t.Errorf("CanMutateTransaction(%q, %q, %q) = %v, want %v",
					tt.role, tt.callerID, tt.buyerID, got, tt.expected)
			}
		})
	}
}
