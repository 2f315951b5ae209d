package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/enzyme/urlbot/internal/pipeline"
	"github.com/enzyme/urlbot/internal/sse"
)

// maxMessageBytes bounds relay request bodies. IRC lines are far smaller.
const maxMessageBytes = 64 << 10

type postMessageRequest struct {
	Channel string `json:"channel"`
	Nick    string `json:"nick"`
	Text    string `json:"text"`
	Async   bool   `json:"async"`
}

type postMessageResponse struct {
	Replies []string `json:"replies"`
}

// PostMessage runs one chat line through the pipeline. Synchronous requests
// get the replies in the response; async requests are acknowledged with 202
// and their replies are broadcast as reply events on the channel stream.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid request body")
		return
	}

	req.Channel = strings.TrimSpace(req.Channel)
	req.Nick = strings.TrimSpace(req.Nick)
	switch {
	case req.Channel == "":
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, "channel is required")
		return
	case req.Nick == "":
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, "nick is required")
		return
	}

	if !req.Async {
		replies := h.pipeline.OnMessage(r.Context(), req.Channel, req.Nick, req.Text)
		if replies == nil {
			replies = []string{}
		}
		writeJSON(w, http.StatusOK, postMessageResponse{Replies: replies})
		return
	}

	msg := pipeline.Message{Channel: req.Channel, Nick: req.Nick, Text: req.Text}
	err := h.pipeline.Submit(r.Context(), msg, func(replies []string) {
		h.hub.Broadcast(msg.Channel, sse.Event{
			Type: sse.EventReply,
			Data: sse.ReplyData{Channel: msg.Channel, Nick: msg.Nick, Replies: replies},
		})
	})
	switch {
	case errors.Is(err, pipeline.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, ErrCodeBusy, "Too many pending messages")
		return
	case errors.Is(err, pipeline.ErrPoolClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeBusy, "Shutting down")
		return
	case err != nil:
		slog.Error("submitting message", "channel", msg.Channel, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}
