package dto

type StartEscrowRequest struct {
	ServiceID   string         `json:"service_id"`
	ProviderID  string         `json:"provider_id"`
	AmountCents int64          `json:"amount_cents"`
	Currency    string         `json:"currency"`
	Method      string         `json:"method"`
	Description string         `json:"description,omitempty"`
	BuyerEmail  string         `json:"buyer_email,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

type ReleaseEscrowRequest struct {
	TransactionID string `json:"transaction_id"`
}

type RefundEscrowRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}
