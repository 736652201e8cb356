package handlers

import (
	"net/http"
	"sort"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/models"
)

// GetGames lists the configured games
// @Summary List Games
// @Tags Games
// @Produce json
// @Success 200 {array} models.GameInfo
// @Router /games [get]
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	games := make([]models.GameInfo, 0, len(config.Games))
	for _, g := range config.Games {
		games = append(games, models.GameInfo{
			ID:           g.ID,
			Name:         g.Name,
			MinNumber:    g.MinNumber,
			MaxNumber:    g.MaxNumber,
			NumbersCount: g.DrawSize,
		})
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })

	h.jsonResponse(w, http.StatusOK, games)
}

// GetStats returns the hot, cold and overdue number breakdown
// @Summary Number Frequency Stats
// @Tags Stats
// @Produce json
// @Param game path string true "Game type"
// @Success 200 {object} models.StatsResponse
// @Router /stats/{game} [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.Frequency(r.Context(), game)
	if err != nil {
		h.logger.Errorw("Failed to build frequency stats", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to build stats")
		return
	}

	h.jsonResponse(w, http.StatusOK, stats)
}

// GetGaussianStats returns the sum/product distribution parameters
// @Summary Gaussian Draw Stats
// @Tags Stats
// @Produce json
// @Param game path string true "Game type"
// @Success 200 {object} models.GaussianStats
// @Router /stats/{game}/gaussian [get]
func (h *Handler) GetGaussianStats(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.Gaussian(r.Context(), game)
	if err != nil {
		h.logger.Errorw("Failed to build gaussian stats", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to build stats")
		return
	}

	h.jsonResponse(w, http.StatusOK, stats)
}
