package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/logic"
	"github.com/lottostack/prediction-api/internal/models"
	"github.com/lottostack/prediction-api/internal/worker"
)

// AutoCalculateAccuracy schedules accuracy reconciliation in the
// background. The body may scope the run to one game, and within a game
// to one model; an empty body reconciles every configured game.
// @Summary Schedule Accuracy Reconciliation
// @Tags Accuracy
// @Accept json
// @Produce json
// @Param request body models.ReconcileRequest false "Optional game/model scope"
// @Success 202 {object} models.ReconcileResponse
// @Failure 503 {object} map[string]string "Queue full"
// @Router /accuracy/auto-calculate [post]
func (h *Handler) AutoCalculateAccuracy(w http.ResponseWriter, r *http.Request) {
	var req models.ReconcileRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if err := h.validator.Struct(&req); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}
	}

	var task worker.Task
	scope := "all games"
	if req.GameType != "" {
		game, ok := config.GameByID(req.GameType)
		if !ok {
			h.errorResponse(w, http.StatusNotFound, "Unknown game type: "+req.GameType)
			return
		}
		scope = game.ID
		if req.ModelType != "" {
			scope = game.ID + "/" + req.ModelType
		}
		modelType := req.ModelType
		task = worker.Task{
			Name: "reconcile " + scope,
			Run: func(ctx context.Context) error {
				_, err := h.reconcile.Reconcile(ctx, game, modelType)
				return err
			},
		}
	} else {
		task = worker.Task{
			Name: "reconcile all",
			Run: func(ctx context.Context) error {
				_, err := h.reconcile.ReconcileAll(ctx)
				return err
			},
		}
	}

	if !h.queue.Enqueue(task) {
		h.errorResponse(w, http.StatusServiceUnavailable, "Reconciliation queue is full")
		return
	}

	h.jsonResponse(w, http.StatusAccepted, models.ReconcileResponse{
		Success: true,
		Message: "reconciliation scheduled for " + scope,
	})
}

// CalculateAccuracy scores one stored prediction against one stored
// draw result on demand, regardless of date matching
// @Summary Calculate Accuracy For One Pair
// @Tags Accuracy
// @Accept json
// @Produce json
// @Param game path string true "Game type"
// @Param prediction path string true "Prediction ID"
// @Param request body models.CalculateAccuracyRequest true "Result reference"
// @Success 200 {object} models.CalculateAccuracyResponse
// @Failure 404 {object} map[string]string "Unknown game, prediction or result"
// @Router /predictions/{game}/{prediction}/calculate-accuracy [post]
func (h *Handler) CalculateAccuracy(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}
	predictionID := chi.URLParam(r, "prediction")
	if predictionID == "" {
		h.errorResponse(w, http.StatusBadRequest, "Prediction ID is required")
		return
	}

	var req models.CalculateAccuracyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize)).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	record, err := h.reconcile.CalculateAccuracy(r.Context(), game, predictionID, req.ResultID)
	if err != nil {
		var notFound *logic.NotFoundError
		var malformed *models.MalformedRecordError
		switch {
		case errors.As(err, &notFound):
			h.errorResponse(w, http.StatusNotFound, notFound.Error())
		case errors.As(err, &malformed):
			h.errorResponse(w, http.StatusBadRequest, malformed.Error())
		default:
			h.logger.Errorw("Failed to calculate accuracy", "error", err, "game", game.ID, "prediction_id", predictionID)
			h.errorResponse(w, http.StatusInternalServerError, "Failed to calculate accuracy")
		}
		return
	}

	h.jsonResponse(w, http.StatusOK, models.CalculateAccuracyResponse{
		Success:        true,
		RecordID:       record.ID,
		ErrorDistance:  record.ErrorDistance,
		NumbersMatched: record.NumbersMatched,
		Metrics:        record.DistanceMetrics,
	})
}

// GetReconcileDiagnostics explains the current reconciliation state
// @Summary Reconciliation Diagnostics
// @Tags Accuracy
// @Produce json
// @Param game path string true "Game type"
// @Success 200 {object} models.ReconcileDiagnostics
// @Router /accuracy/diagnostics/{game} [get]
func (h *Handler) GetReconcileDiagnostics(w http.ResponseWriter, r *http.Request) {
	game, ok := h.gameFromRequest(w, r)
	if !ok {
		return
	}

	diag, err := h.reconcile.Diagnostics(r.Context(), game)
	if err != nil {
		h.logger.Errorw("Failed to build diagnostics", "error", err, "game", game.ID)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to build diagnostics")
		return
	}

	h.jsonResponse(w, http.StatusOK, diag)
}

