package models

import (
	"time"

	"github.com/google/uuid"
)

// Escrow transaction statuses
const (
	EscrowStatusPending  = "pending"
	EscrowStatusInEscrow = "in_escrow"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Valid state transitions: from -> []to
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:  {EscrowStatusInEscrow},
	EscrowStatusInEscrow: {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no transition leaves the given status.
func IsTerminalStatus(status string) bool {
	allowed, ok := ValidEscrowTransitions[status]
	return ok && len(allowed) == 0
}

// EscrowTransaction is the business-state record for funds held in trust
// between a buyer and a provider. Status is mutated only through the
// escrow repository's guarded transitions.
type EscrowTransaction struct {
	ID            uuid.UUID `json:"id"`
	ServiceID     string    `json:"service_id"`
	BuyerID       string    `json:"buyer_id"`
	ProviderID    string    `json:"provider_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	// EscrowID is the gateway-assigned external reference. Unique across
	// the ledger; the idempotency key for webhook processing.
	EscrowID       string         `json:"escrow_id"`
	PaymentDetails map[string]any `json:"payment_details,omitempty"`
	AbandonedAt    *time.Time     `json:"abandoned_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
