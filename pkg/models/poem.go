package models

import "time"

// Poem represents a single generated poem
type Poem struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id"`
	Theme     string    `json:"theme"`
	Text      string    `json:"text"`
	Engine    string    `json:"engine"` // "openai", "cohere" or "anthropic"
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryStatus is the outcome of posting a poem to one destination
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryPublished DeliveryStatus = "published"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Delivery tracks a poem's state at one destination
type Delivery struct {
	ID          int            `json:"id"`
	PoemID      int            `json:"poem_id"`
	Destination string         `json:"destination"` // "slack", "bluesky", "mqtt" or "telegram"
	Status      DeliveryStatus `json:"status"`
	RemoteID    string         `json:"remote_id,omitempty"` // Slack ts, Bluesky URI, Telegram message id
	Error       string         `json:"error,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
