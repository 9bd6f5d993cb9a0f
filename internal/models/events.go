package models

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeRowChanged = "ROW_CHANGED"
)

// Change actions
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Tables published on the change feed
const (
	TableCheckoutPages = "checkout_pages"
	TableOrders        = "orders"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangeEvent describes one row change on the change feed.
// ChannelKey is the value subscribers filter on: the page id for
// checkout_pages rows and the owning page id for orders rows.
type ChangeEvent struct {
	BaseEvent
	Table      string          `json:"table"`
	Action     string          `json:"action"`
	RecordID   string          `json:"record_id"`
	ChannelKey string          `json:"channel_key"`
	UserID     string          `json:"user_id,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
}

// Channel is the subscription channel the event is delivered on
func (e *ChangeEvent) Channel() string {
	return ChannelName(e.Table, e.ChannelKey)
}

// ChannelName builds the "<table>:<key>" subscription channel name
func ChannelName(table, key string) string {
	return table + ":" + key
}
