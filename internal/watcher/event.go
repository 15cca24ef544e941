package watcher

import "time"

// EventType says what happened to a watched file.
type EventType string

const (
	// EventSettled: the file exists and has stopped changing.
	EventSettled EventType = "settled"
	// EventGone: the file was deleted or moved away.
	EventGone EventType = "gone"
)

// Event is one announcement about a file. Size and ModTime are only set
// for EventSettled.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
