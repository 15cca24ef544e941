package sse

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/id"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

// historySize bounds the replay buffer kept for reconnecting subscribers.
const historySize = 256

// Subscriber is one open event stream.
type Subscriber struct {
	ID          string
	ConnectedAt time.Time
	Events      chan Event
	Done        chan struct{}
	topics      []string // Empty means every topic
}

// Wants reports whether the subscriber receives events of type t.
// Heartbeats and connection events reach everyone.
func (s *Subscriber) Wants(t EventType) bool {
	if len(s.topics) == 0 || t.Topic() == "" {
		return true
	}
	return slices.Contains(s.topics, t.Topic())
}

// Replay is what a subscriber missed since the event ID it last saw.
// Gap is set when the history no longer reaches back that far, or the ID
// belongs to an earlier server run; the client must then refetch.
type Replay struct {
	Events []Event
	Gap    bool
}

// Manager numbers events, keeps a short history of them and fans them out
// to subscribers.
type Manager struct {
	logger            *slog.Logger
	heartbeatInterval time.Duration
	wg                sync.WaitGroup

	queue     chan Event
	closingMu sync.RWMutex // Held for writing only while closing queue
	closing   bool

	mu      sync.Mutex
	subs    map[string]*Subscriber
	seq     uint64
	history []Event // Oldest first
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
		queue:             make(chan Event, 1000),
		subs:              make(map[string]*Subscriber),
	}
}

// Start runs the publish loop until ctx is canceled or Shutdown closes the
// queue. Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeat := time.NewTicker(m.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-m.queue:
			if !ok {
				m.closeAll()
				return
			}
			m.publish(event)

		case <-heartbeat.C:
			m.publish(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAll()
			return
		}
	}
}

// Shutdown stops accepting events, lets the loop drain the queue and waits
// for it to exit or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closingMu.Lock()
	if m.closing {
		m.closingMu.Unlock()
		return nil
	}
	m.closing = true
	close(m.queue)
	m.closingMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("SSE manager shutdown complete")
		return nil
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
		return ctx.Err()
	}
}

// publish numbers a shelf event, records it and hands it to every
// interested subscriber without blocking. Heartbeats are not numbered.
func (m *Manager) publish(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.Type != EventHeartbeat {
		m.seq++
		event.ID = m.seq
		m.history = append(m.history, event)
		if over := len(m.history) - historySize; over > 0 {
			m.history = slices.Delete(m.history, 0, over)
		}
	}

	var delivered, dropped int
	for _, sub := range m.subs {
		if !sub.Wants(event.Type) {
			continue
		}
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow subscriber",
				slog.String("subscriber_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event published",
			slog.Uint64("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped))
	}
}

// Subscribe registers a stream limited to topics (all when empty) and
// returns the events it missed after lastID. lastID 0 means a fresh start.
// Registration and replay happen under one lock, so nothing published in
// between is lost or delivered twice.
func (m *Manager) Subscribe(lastID uint64, topics []string) (*Subscriber, Replay, error) {
	subID, err := id.Generate(id.PrefixSubscriber)
	if err != nil {
		return nil, Replay{}, err
	}

	sub := &Subscriber{
		ID:          subID,
		ConnectedAt: time.Now(),
		Events:      make(chan Event, 100),
		Done:        make(chan struct{}),
		topics:      topics,
	}

	m.mu.Lock()
	m.subs[sub.ID] = sub
	replay := m.replaySince(sub, lastID)
	total := len(m.subs)
	m.mu.Unlock()

	m.logger.Info("SSE subscriber connected",
		slog.String("subscriber_id", sub.ID),
		slog.Uint64("last_event_id", lastID),
		slog.Int("replayed", len(replay.Events)),
		slog.Int("total_subscribers", total))
	return sub, replay, nil
}

// replaySince must be called with mu held.
func (m *Manager) replaySince(sub *Subscriber, lastID uint64) Replay {
	if lastID == 0 {
		return Replay{}
	}
	if lastID > m.seq || (len(m.history) > 0 && m.history[0].ID > lastID+1) {
		return Replay{Gap: true}
	}

	var r Replay
	for _, e := range m.history {
		if e.ID > lastID && sub.Wants(e.Type) {
			r.Events = append(r.Events, e)
		}
	}
	return r
}

// Unsubscribe removes a subscriber and closes its channels.
func (m *Manager) Unsubscribe(subID string) {
	m.mu.Lock()
	sub, ok := m.subs[subID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.subs, subID)
	total := len(m.subs)
	m.mu.Unlock()

	close(sub.Done)
	close(sub.Events)

	m.logger.Info("SSE subscriber disconnected",
		slog.String("subscriber_id", subID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)),
		slog.Int("total_subscribers", total))
}

// Emit queues an event for publishing. It accepts an Event or a
// store.Change, so the manager can serve as a store.EventEmitter.
func (m *Manager) Emit(event any) {
	var evt Event
	switch e := event.(type) {
	case Event:
		evt = e
	case store.Change:
		evt = NewChangeEvent(e)
	default:
		m.logger.Error("invalid event type emitted", slog.Any("event", event))
		return
	}

	m.closingMu.RLock()
	defer m.closingMu.RUnlock()
	if m.closing {
		return
	}

	select {
	case m.queue <- evt:
	default:
		m.logger.Error("SSE queue full, dropping event",
			slog.String("event_type", string(evt.Type)))
	}
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// LastEventID returns the ID of the newest published event.
func (m *Manager) LastEventID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		close(sub.Done)
		close(sub.Events)
	}
	clear(m.subs)

	m.logger.Info("all SSE subscribers disconnected")
}

// ParseTopics turns a comma separated list into known topic names.
// Unknown names are dropped; an empty result means every topic.
func ParseTopics(raw string) []string {
	var topics []string
	for part := range strings.SplitSeq(raw, ",") {
		t := strings.ToLower(strings.TrimSpace(part))
		if slices.Contains(Topics, t) && !slices.Contains(topics, t) {
			topics = append(topics, t)
		}
	}
	return topics
}
