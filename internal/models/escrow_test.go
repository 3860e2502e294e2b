package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusInEscrow, true},
		{EscrowStatusInEscrow, EscrowStatusReleased, true},
		{EscrowStatusInEscrow, EscrowStatusRefunded, true},

		// Terminal states never move
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusReleased, EscrowStatusInEscrow, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},
		{EscrowStatusRefunded, EscrowStatusInEscrow, false},

		// No skipping or reversing
		{EscrowStatusPending, EscrowStatusReleased, false},
		{EscrowStatusPending, EscrowStatusRefunded, false},
		{EscrowStatusInEscrow, EscrowStatusPending, false},
		{EscrowStatusReleased, EscrowStatusPending, false},

		// Unknown statuses
		{"nonexistent", EscrowStatusInEscrow, false},
		{EscrowStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		EscrowStatusPending, EscrowStatusInEscrow,
		EscrowStatusReleased, EscrowStatusRefunded,
	}

	for _, status := range allStatuses {
		if _, ok := ValidEscrowTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidEscrowTransitions map", status)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	if !IsTerminalStatus(EscrowStatusReleased) {
		t.Error("released should be terminal")
	}
	if !IsTerminalStatus(EscrowStatusRefunded) {
		t.Error("refunded should be terminal")
	}
	if IsTerminalStatus(EscrowStatusPending) {
		t.Error("pending should not be terminal")
	}
	if IsTerminalStatus(EscrowStatusInEscrow) {
		t.Error("in_escrow should not be terminal")
	}
	if IsTerminalStatus("nonexistent") {
		t.Error("unknown status should not be terminal")
	}
}
