package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	defaultErrorLimit = 50
	maxErrorLimit     = 500
)

type fetchError struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Status    int    `json:"status,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
	Age       string `json:"age"`
}

// ListFetchErrors returns the most recent failed resolutions, newest first.
func (h *Handler) ListFetchErrors(w http.ResponseWriter, r *http.Request) {
	if h.failures == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "History is disabled")
		return
	}

	limit := defaultErrorLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, ErrCodeValidationError, "limit must be a positive integer")
			return
		}
		limit = min(n, maxErrorLimit)
	}

	failures, err := h.failures.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("listing fetch errors", "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
		return
	}

	out := make([]fetchError, 0, len(failures))
	for _, f := range failures {
		out = append(out, fetchError{
			ID:        f.ID,
			URL:       f.URL,
			Kind:      f.Kind,
			Status:    f.Status,
			Detail:    f.Detail,
			CreatedAt: f.CreatedAt.UTC().Format(time.RFC3339),
			Age:       humanize.Time(f.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"errors": out})
}
