package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	HeartbeatInterval = 30 * time.Second
	ClientBufferSize  = 256
)

type Handler struct {
	hub       *Hub
	heartbeat time.Duration
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub, heartbeat: HeartbeatInterval}
}

// Events streams reply events for the chat channel named by the "channel"
// query parameter.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "channel is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := &Client{
		ID:      ulid.Make().String(),
		Channel: channel,
		Send:    make(chan Event, ClientBufferSize),
		Done:    make(chan struct{}),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	h.writeEvent(w, flusher, Event{
		Type: EventConnected,
		Data: map[string]string{
			"client_id": client.ID,
			"channel":   channel,
		},
	})

	// Handle reconnection - replay missed events
	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		events, err := h.hub.EventsSince(channel, lastEventID)
		if err == nil {
			for _, event := range events {
				h.writeEvent(w, flusher, event)
			}
		}
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case event, ok := <-client.Send:
			if !ok {
				return
			}
			h.writeEvent(w, flusher, event)
		case <-heartbeat.C:
			h.writeEvent(w, flusher, Event{
				Type: EventHeartbeat,
				Data: map[string]int64{
					"timestamp": time.Now().Unix(),
				},
			})
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	fmt.Fprintf(w, "event: %s\n", event.Type)

	// Marshal the full event (including type) so the client can dispatch by type
	data, err := json.Marshal(event)
	if err == nil {
		fmt.Fprintf(w, "data: %s\n", data)
	}

	fmt.Fprintf(w, "\n")
	flusher.Flush()
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
