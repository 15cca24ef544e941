// Package sse implements Server-Sent Events for shelf changes and the sync
// status indicator.
package sse

import (
	"strings"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventManualCreated represents a manual creation event.
	EventManualCreated EventType = "manual.created"
	// EventManualUpdated represents a manual rename or file set change.
	EventManualUpdated EventType = "manual.updated"
	// EventManualDeleted represents a manual deletion event.
	EventManualDeleted EventType = "manual.deleted"

	// EventFileUpdated represents a rotation or tag change on a file.
	EventFileUpdated EventType = "file.updated"
	// EventFileDeleted represents a file removal event.
	EventFileDeleted EventType = "file.deleted"

	EventTagCreated EventType = "tag.created"
	EventTagUpdated EventType = "tag.updated"
	EventTagDeleted EventType = "tag.deleted"

	// EventSyncStatus carries every transition of the sync indicator.
	EventSyncStatus EventType = "sync.status"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
	// EventConnected opens every stream.
	EventConnected EventType = "connected"
	// EventResync tells a reconnecting client its missed events are gone.
	EventResync EventType = "resync"
)

// Topics a stream can be limited to. An event's topic is its type up to
// the first dot.
var Topics = []string{"manual", "file", "tag", "sync"}

// Topic returns the topic of t, or "" for stream control events.
func (t EventType) Topic() string {
	topic, _, ok := strings.Cut(string(t), ".")
	if !ok {
		return ""
	}
	return topic
}

// Event represents an SSE event to be sent to clients.
type Event struct {
	ID        uint64    `json:"id,omitempty"` // Assigned on publish; heartbeats have none
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ChangeEventData is the payload of manual, file and tag events.
type ChangeEventData struct {
	EntityID    string `json:"entity_id"`
	ManualID    string `json:"manual_id,omitempty"`
	ChangeToken string `json:"change_token"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewChangeEvent converts a committed store change.
func NewChangeEvent(c store.Change) Event {
	return Event{
		Type:      EventType(c.Kind),
		Timestamp: c.At,
		Data: ChangeEventData{
			EntityID:    c.EntityID,
			ManualID:    c.ManualID,
			ChangeToken: c.Token,
		},
	}
}

// NewSyncStatusEvent wraps a sync indicator snapshot.
func NewSyncStatusEvent(status domain.SyncStatus) Event {
	return Event{
		Type:      EventSyncStatus,
		Timestamp: time.Now(),
		Data:      status,
	}
}

// ConnectedEventData is the payload of the first event on a stream.
type ConnectedEventData struct {
	SubscriberID string   `json:"subscriber_id"`
	LastEventID  uint64   `json:"last_event_id"`
	Topics       []string `json:"topics,omitempty"`
}

func newConnectedEvent(sub *Subscriber, lastID uint64) Event {
	return Event{
		Type:      EventConnected,
		Timestamp: time.Now(),
		Data:      ConnectedEventData{SubscriberID: sub.ID, LastEventID: lastID, Topics: sub.topics},
	}
}

func newResyncEvent() Event {
	return Event{Type: EventResync, Timestamp: time.Now()}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
