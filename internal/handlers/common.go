package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lottostack/prediction-api/internal/config"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{
		"store": h.store.Ping(ctx) == nil,
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !allHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":      allHealthy,
		"checks":     checks,
		"queueDepth": h.queue.Depth(),
	})
}

// gameFromRequest resolves the {game} path parameter. A miss writes the
// error response and returns false.
func (h *Handler) gameFromRequest(w http.ResponseWriter, r *http.Request) (config.Game, bool) {
	id := chi.URLParam(r, "game")
	if id == "" {
		h.errorResponse(w, http.StatusBadRequest, "Game type is required")
		return config.Game{}, false
	}
	game, ok := config.GameByID(id)
	if !ok {
		h.errorResponse(w, http.StatusNotFound, "Unknown game type: "+id)
		return config.Game{}, false
	}
	return game, true
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
