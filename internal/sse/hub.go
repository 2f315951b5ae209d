package sse

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// replayLimit caps how many missed events a reconnecting client receives.
const replayLimit = 100

type Client struct {
	ID      string
	Channel string
	Send    chan Event
	Done    chan struct{}
}

// Hub fans reply events out to relay clients subscribed to a chat channel.
// When a database is supplied, events are kept for replay on reconnect.
type Hub struct {
	mu sync.RWMutex

	// channel -> clientID -> client
	channels map[string]map[string]*Client

	db              *sql.DB
	retention       time.Duration
	cleanupInterval time.Duration

	register   chan *Client
	unregister chan *Client
}

func NewHub(db *sql.DB, retention, cleanupInterval time.Duration) *Hub {
	return &Hub{
		channels:        make(map[string]map[string]*Client),
		db:              db,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
	}
}

func (h *Hub) Run(ctx context.Context) {
	var cleanup <-chan time.Time
	if h.db != nil && h.retention > 0 && h.cleanupInterval > 0 {
		ticker := time.NewTicker(h.cleanupInterval)
		defer ticker.Stop()
		cleanup = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-cleanup:
			h.deleteOldEvents()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[client.Channel] == nil {
		h.channels[client.Channel] = make(map[string]*Client)
	}
	h.channels[client.Channel][client.ID] = client
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.channels[client.Channel]
	if !ok {
		return
	}
	if _, ok := clients[client.ID]; !ok {
		return
	}
	delete(clients, client.ID)
	if len(clients) == 0 {
		delete(h.channels, client.Channel)
	}
	close(client.Send)
}

// Broadcast stores event for replay and sends it to every client of channel.
// Slow clients whose buffer is full miss the event.
func (h *Hub) Broadcast(channel string, event Event) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}

	h.storeEvent(channel, event)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.channels[channel] {
		select {
		case client.Send <- event:
		default:
			// Client buffer full, skip
		}
	}
}

// ClientCount returns the number of clients subscribed to channel.
func (h *Hub) ClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) storeEvent(channel string, event Event) {
	if h.db == nil {
		return
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	now := time.Now().UTC()
	_, err = h.db.Exec(`
		INSERT INTO relay_events (id, channel, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, event.ID, channel, event.Type, string(data), now.Format(time.RFC3339))
	if err != nil {
		slog.Warn("storing relay event", "channel", channel, "error", err)
	}
}

// EventsSince returns stored events for channel newer than lastEventID.
func (h *Hub) EventsSince(channel, lastEventID string) ([]Event, error) {
	if h.db == nil {
		return nil, nil
	}

	rows, err := h.db.Query(`
		SELECT id, event_type, payload
		FROM relay_events
		WHERE channel = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, channel, lastEventID, replayLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var id, eventType, payload string
		if err := rows.Scan(&id, &eventType, &payload); err != nil {
			return nil, err
		}

		var data interface{}
		_ = json.Unmarshal([]byte(payload), &data)

		events = append(events, Event{
			ID:   id,
			Type: eventType,
			Data: data,
		})
	}

	return events, rows.Err()
}

func (h *Hub) deleteOldEvents() {
	if h.db == nil || h.retention <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-h.retention).Format(time.RFC3339)
	result, err := h.db.Exec(`DELETE FROM relay_events WHERE created_at < ?`, cutoff)
	if err != nil {
		slog.Error("failed to delete old relay events", "error", err)
		return
	}
	if n, _ := result.RowsAffected(); n > 0 {
		slog.Debug("deleted old relay events", "count", n)
	}
}
