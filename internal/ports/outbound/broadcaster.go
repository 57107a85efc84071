package outbound

import "context"

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeUserRegistered EventType = "user.registered"
	EventTypeItemRegistered EventType = "item.registered"
	EventTypeBidAccepted    EventType = "bid.accepted"
	EventTypeError          EventType = "error"
)

// Event represents a broadcast event
type Event struct {
	Type      EventType              `json:"type"`
	ItemID    int64                  `json:"item_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster defines the interface for broadcasting ledger events
type Broadcaster interface {
	// Subscribe subscribes a client to events for a specific item
	// When a client subscribes to multiple items, all events are delivered to the same channel
	Subscribe(ctx context.Context, itemID int64, clientID string, eventChan chan Event) error

	// Unsubscribe unsubscribes a client from events for a specific item
	Unsubscribe(ctx context.Context, itemID int64, clientID string) error

	// Publish publishes an event to all subscribers of an item
	Publish(ctx context.Context, itemID int64, event Event) error

	// GetSubscribers returns the list of client IDs subscribed to an item
	GetSubscribers(ctx context.Context, itemID int64) ([]string, error)

	// IsSubscribed checks if a client is subscribed to an item
	IsSubscribed(ctx context.Context, itemID int64, clientID string) bool
}
