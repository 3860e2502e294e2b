package models

import "time"

// Actor types for audit entries
const (
	ActorTypeUser    = "user"
	ActorTypeSystem  = "system"
	ActorTypeGateway = "gateway"
)

type AuditLog struct {
	ID         int64          `json:"id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	ActorType  string         `json:"actor_type"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
