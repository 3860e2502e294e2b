package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses as reported by the gateway, normalized.
const (
	PaymentStatusComplete  = "complete"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// Payment is the audit-trail record of a raw gateway notification or
// synchronous charge response. Distinct from the transaction's
// business-state record; never mutated after insert.
type Payment struct {
	ID          uuid.UUID `json:"id"`
	// ExternalRef is the gateway's payment identifier, unique per payment.
	ExternalRef     string         `json:"external_ref"`
	MerchantRef     string         `json:"merchant_ref"`
	Method          string         `json:"method"`
	Status          string         `json:"status"`
	Currency        string         `json:"currency"`
	GrossCents      int64          `json:"gross_cents"`
	FeeCents        int64          `json:"fee_cents"`
	NetCents        int64          `json:"net_cents"`
	CommissionCents int64          `json:"commission_cents"`
	PayoutCents     int64          `json:"payout_cents"`
	Raw             map[string]any `json:"raw,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
