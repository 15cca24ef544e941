package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// reconnectDelay is sent as the retry hint on every stream.
const reconnectDelay = 3 * time.Second

// Handler serves GET /api/v1/events. A client resumes with the standard
// Last-Event-ID header (or ?last_event_id=) and may limit the stream with
// ?topics=manual,file,tag,sync.
type Handler struct {
	manager  *Manager
	snapshot func() Event
	logger   *slog.Logger

	heartbeatInterval time.Duration
	writeTimeout      time.Duration
}

// NewHandler creates a new SSE Handler. When snapshot is non-nil its event
// follows the replay, so a client sees the current sync status without
// waiting for a transition.
func NewHandler(manager *Manager, snapshot func() Event, logger *slog.Logger) *Handler {
	return &Handler{
		manager:           manager,
		snapshot:          snapshot,
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
		writeTimeout:      60 * time.Second,
	}
}

// ServeHTTP streams events until the client goes away or the manager
// closes the subscription.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lastID := lastEventID(r)
	topics := ParseTopics(r.URL.Query().Get("topics"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if _, err := fmt.Fprintf(w, "retry: %d\n\n", reconnectDelay.Milliseconds()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming not supported", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, replay, err := h.manager.Subscribe(lastID, topics)
	if err != nil {
		h.logger.Error("failed to subscribe", slog.String("error", err.Error()))
		return
	}
	defer h.manager.Unsubscribe(sub.ID)

	log := h.logger.With(slog.String("subscriber_id", sub.ID))

	opening := []Event{newConnectedEvent(sub, lastID)}
	if replay.Gap {
		opening = append(opening, newResyncEvent())
	}
	opening = append(opening, replay.Events...)
	if h.snapshot != nil && sub.Wants(EventSyncStatus) {
		opening = append(opening, h.snapshot())
	}
	for _, e := range opening {
		if err := h.write(w, rc, e); err != nil {
			log.Info("subscriber gone before replay finished")
			return
		}
	}

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-sub.Events:
			if !ok {
				log.Info("subscription closed by manager")
				return
			}
			if err := h.write(w, rc, e); err != nil {
				log.Info("subscriber disconnected during send")
				return
			}

		case <-heartbeat.C:
			if err := h.write(w, rc, NewHeartbeatEvent()); err != nil {
				log.Info("subscriber disconnected during heartbeat")
				return
			}

		case <-sub.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// write frames one event. Numbered events carry an id line so the browser
// reports it back in Last-Event-ID on reconnect.
func (h *Handler) write(w http.ResponseWriter, rc *http.ResponseController, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if e.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", e.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Pushed forward after every write so a hung connection times out.
	if err := rc.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}

func lastEventID(r *http.Request) uint64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
