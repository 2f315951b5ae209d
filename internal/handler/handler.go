package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/enzyme/urlbot/internal/history"
	"github.com/enzyme/urlbot/internal/pipeline"
	"github.com/enzyme/urlbot/internal/sse"
)

// Pipeline is satisfied by *pipeline.Orchestrator.
type Pipeline interface {
	OnMessage(ctx context.Context, channel, nick, text string) []string
	Submit(ctx context.Context, msg pipeline.Message, deliver func([]string)) error
}

// FailureLister is satisfied by *history.ErrorLog.
type FailureLister interface {
	Recent(ctx context.Context, limit int) ([]history.Failure, error)
}

// Handler serves the relay API used by chat bridges.
type Handler struct {
	pipeline Pipeline
	hub      *sse.Hub
	failures FailureLister
}

// Dependencies holds all dependencies for the Handler
type Dependencies struct {
	Pipeline Pipeline
	Hub      *sse.Hub
	Failures FailureLister // nil when history is disabled
}

func New(deps Dependencies) *Handler {
	return &Handler{
		pipeline: deps.Pipeline,
		hub:      deps.Hub,
		failures: deps.Failures,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
