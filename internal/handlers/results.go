package handlers

import (
	"net/http"
	"strconv"
)

// GetResults lists stored draw outcomes for a game, most recent first
// @Summary List Draw Results
// @Tags Results
// @Produce json
// @Param game path string true "Game type"
// @Param limit query int false "Max records (default 50)"
// @Param offset query int false "Records to skip"
// @Success 200 {array} models.DrawOutcome
// @Router /results/{game} [get]
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	limit, offset := 50, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			h.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.errorResponse(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		offset = n
	}

	outcomes, err := h.store.ListOutcomes(r.Context(), game.ID, limit, offset, "draw_date.desc")
	if err != nil {
		h.logger.Errorw("Failed to list results", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list results")
		return
	}

	h.jsonResponse(w, http.StatusOK, outcomes)
}
