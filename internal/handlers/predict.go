package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lottostack/prediction-api/internal/worker"
)

// GeneratePredictions runs the full model ensemble for a game
// @Summary Generate Predictions
// @Tags Predictions
// @Accept json
// @Produce json
// @Param game path string true "Game type"
// @Success 200 {object} models.GenerateResponse
// @Failure 404 {object} map[string]string "Unknown game"
// @Router /predict/{game} [post]
func (h *Handler) GeneratePredictions(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.generation.Generate(r.Context(), game)
	if err != nil {
		h.logger.Errorw("Failed to generate predictions", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to generate predictions")
		return
	}

	// New predictions may already have a matching outcome; reconcile in
	// the background rather than on the caller's time.
	task := worker.Task{
		Name: "reconcile " + game.ID,
		Run: func(ctx context.Context) error {
			_, err := h.reconcile.Reconcile(ctx, game, "")
			return err
		},
	}
	if !h.queue.Enqueue(task) {
		h.logger.Warnw("Reconciliation queue full, skipping post-generation run", "game", game.ID)
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// GetPredictions lists stored predictions for a game, most recent first
// @Summary List Predictions
// @Tags Predictions
// @Produce json
// @Param game path string true "Game type"
// @Param limit query int false "Max records (default 50)"
// @Success 200 {array} models.Prediction
// @Router /predictions/{game} [get]
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			h.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	predictions, err := h.store.ListPredictions(r.Context(), game.ID, limit)
	if err != nil {
		h.logger.Errorw("Failed to list predictions", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}

	h.jsonResponse(w, http.StatusOK, predictions)
}

// GetAccuracySummary aggregates scored history per model
// @Summary Per-Model Accuracy Summary
// @Tags Accuracy
// @Produce json
// @Param game path string true "Game type"
// @Success 200 {object} models.AccuracySummary
// @Router /predictions/{game}/accuracy [get]
func (h *Handler) GetAccuracySummary(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.stats.AccuracySummary(r.Context(), game)
	if err != nil {
		h.logger.Errorw("Failed to build accuracy summary", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to build accuracy summary")
		return
	}

	h.jsonResponse(w, http.StatusOK, summary)
}
