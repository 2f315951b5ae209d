package sse

const (
	EventConnected = "connected"
	EventHeartbeat = "heartbeat"
	EventReply     = "reply"
)

type Event struct {
	ID   string      `json:"id,omitempty"`
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ReplyData is the payload of a reply event.
type ReplyData struct {
	Channel string   `json:"channel"`
	Nick    string   `json:"nick"`
	Replies []string `json:"replies"`
}
