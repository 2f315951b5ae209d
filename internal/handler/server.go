package handler

import (
	"net/http"

	"github.com/enzyme/urlbot/internal/version"
)

type serverInfo struct {
	Version string `json:"version"`
	History bool   `json:"history"`
}

func (h *Handler) GetServerInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, serverInfo{
		Version: version.Version,
		History: h.failures != nil,
	})
}
