package events

import "context"

// Event types
const (
	EventEscrowCreated   = "escrow_created"
	EventEscrowReleased  = "escrow_released"
	EventEscrowRefunded  = "escrow_refunded"
	EventEscrowAbandoned = "escrow_abandoned"
	EventPaymentReceived = "payment_received"
)

// StreamEscrow is the channel downstream consumers (notifications,
// reconciliation dashboards) subscribe to.
const StreamEscrow = "events:escrow"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
