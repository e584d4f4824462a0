package notification

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"user_id"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

// Event is the wire envelope published to the outbound queue. EventID is
// the dedup key for at-least-once delivery.
type Event struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	UserID     uint            `json:"user_id"`
	Message    string          `json:"message"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
