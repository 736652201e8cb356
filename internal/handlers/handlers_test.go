package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/logic"
	"github.com/lottostack/prediction-api/internal/models"
	"github.com/lottostack/prediction-api/internal/worker"
)

// Hand-rolled mocks for the service interfaces.

type mockGenerationService struct {
	GenerateFunc func(ctx context.Context, game config.Game) (*models.GenerateResponse, error)
}

func (m *mockGenerationService) Generate(ctx context.Context, game config.Game) (*models.GenerateResponse, error) {
	return m.GenerateFunc(ctx, game)
}

type mockReconcileService struct {
	ReconcileFunc         func(ctx context.Context, game config.Game, modelType string) (*models.ReconcileResponse, error)
	ReconcileAllFunc      func(ctx context.Context) (*models.ReconcileResponse, error)
	CalculateAccuracyFunc func(ctx context.Context, game config.Game, predictionID, outcomeID string) (*models.AccuracyRecord, error)
	DiagnosticsFunc       func(ctx context.Context, game config.Game) (*models.ReconcileDiagnostics, error)
}

func (m *mockReconcileService) Reconcile(ctx context.Context, game config.Game, modelType string) (*models.ReconcileResponse, error) {
	return m.ReconcileFunc(ctx, game, modelType)
}

func (m *mockReconcileService) ReconcileAll(ctx context.Context) (*models.ReconcileResponse, error) {
	return m.ReconcileAllFunc(ctx)
}

func (m *mockReconcileService) CalculateAccuracy(ctx context.Context, game config.Game, predictionID, outcomeID string) (*models.AccuracyRecord, error) {
	return m.CalculateAccuracyFunc(ctx, game, predictionID, outcomeID)
}

func (m *mockReconcileService) Diagnostics(ctx context.Context, game config.Game) (*models.ReconcileDiagnostics, error) {
	return m.DiagnosticsFunc(ctx, game)
}

type mockStatsService struct {
	FrequencyFunc       func(ctx context.Context, game config.Game) (*models.StatsResponse, error)
	GaussianFunc        func(ctx context.Context, game config.Game) (*models.GaussianStats, error)
	AccuracySummaryFunc func(ctx context.Context, game config.Game) (*models.AccuracySummary, error)
}

func (m *mockStatsService) Frequency(ctx context.Context, game config.Game) (*models.StatsResponse, error) {
	return m.FrequencyFunc(ctx, game)
}

func (m *mockStatsService) Gaussian(ctx context.Context, game config.Game) (*models.GaussianStats, error) {
	return m.GaussianFunc(ctx, game)
}

func (m *mockStatsService) AccuracySummary(ctx context.Context, game config.Game) (*models.AccuracySummary, error) {
	return m.AccuracySummaryFunc(ctx, game)
}

type mockQueue struct {
	tasks    []worker.Task
	rejected bool
}

func (m *mockQueue) Enqueue(task worker.Task) bool {
	if m.rejected {
		return false
	}
	m.tasks = append(m.tasks, task)
	return true
}

func (m *mockQueue) Depth() int { return len(m.tasks) }

// gameRequest builds a request with the {game} chi URL parameter set.
func gameRequest(method, target, game string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("game", game)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGeneratePredictions(t *testing.T) {
	logger := zap.NewNop().Sugar()

	tests := []struct {
		name           string
		game           string
		generateFunc   func(ctx context.Context, game config.Game) (*models.GenerateResponse, error)
		expectedStatus int
	}{
		{
			name: "Success",
			game: "lotto_6_42",
			generateFunc: func(ctx context.Context, game config.Game) (*models.GenerateResponse, error) {
				return &models.GenerateResponse{Success: true, GameType: game.ID}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "UnknownGame",
			game:           "powerball",
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "ServiceError",
			game: "lotto_6_42",
			generateFunc: func(ctx context.Context, game config.Game) (*models.GenerateResponse, error) {
				return nil, errors.New("store down")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &mockQueue{}
			h := &Handler{
				queue:      queue,
				generation: &mockGenerationService{GenerateFunc: tt.generateFunc},
				logger:     logger,
			}

			req := gameRequest("POST", "/api/predict/"+tt.game, tt.game)
			w := httptest.NewRecorder()

			h.GeneratePredictions(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.expectedStatus)
			}
			wantTasks := 0
			if tt.expectedStatus == http.StatusOK {
				wantTasks = 1
			}
			if len(queue.tasks) != wantTasks {
				t.Errorf("enqueued tasks = %d, want %d", len(queue.tasks), wantTasks)
			}
		})
	}
}

func TestAutoCalculateAccuracy(t *testing.T) {
	logger := zap.NewNop().Sugar()

	t.Run("AllGames", func(t *testing.T) {
		queue := &mockQueue{}
		h := &Handler{
			queue:     queue,
			validator: validator.New(),
			logger:    logger,
		}

		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", nil)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %v, want 202", w.Code)
		}
		if len(queue.tasks) != 1 {
			t.Fatalf("enqueued = %d, want 1", len(queue.tasks))
		}
		if queue.tasks[0].Name != "reconcile all" {
			t.Errorf("task name = %q", queue.tasks[0].Name)
		}
	})

	t.Run("ScopedToGame", func(t *testing.T) {
		queue := &mockQueue{}
		h := &Handler{
			queue:     queue,
			validator: validator.New(),
			logger:    logger,
		}

		body := strings.NewReader(`{"game_type": "lotto_6_42"}`)
		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", body)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %v, want 202", w.Code)
		}
		if len(queue.tasks) != 1 || queue.tasks[0].Name != "reconcile lotto_6_42" {
			t.Errorf("tasks = %+v", queue.tasks)
		}
	})

	t.Run("ScopedToModel", func(t *testing.T) {
		queue := &mockQueue{}
		h := &Handler{
			queue:     queue,
			validator: validator.New(),
			logger:    logger,
		}

		body := strings.NewReader(`{"game_type": "lotto_6_42", "model_type": "DRL"}`)
		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", body)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %v, want 202", w.Code)
		}
		if len(queue.tasks) != 1 || queue.tasks[0].Name != "reconcile lotto_6_42/DRL" {
			t.Errorf("tasks = %+v", queue.tasks)
		}
	})

	t.Run("ModelWithoutGame", func(t *testing.T) {
		h := &Handler{
			queue:     &mockQueue{},
			validator: validator.New(),
			logger:    logger,
		}

		body := strings.NewReader(`{"model_type": "DRL"}`)
		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", body)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %v, want 400", w.Code)
		}
	})

	t.Run("UnknownGame", func(t *testing.T) {
		h := &Handler{
			queue:     &mockQueue{},
			validator: validator.New(),
			logger:    logger,
		}

		body := strings.NewReader(`{"game_type": "powerball"}`)
		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", body)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %v, want 404", w.Code)
		}
	})

	t.Run("QueueFull", func(t *testing.T) {
		h := &Handler{
			queue:     &mockQueue{rejected: true},
			validator: validator.New(),
			logger:    logger,
		}

		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", nil)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %v, want 503", w.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		h := &Handler{
			queue:     &mockQueue{},
			validator: validator.New(),
			logger:    logger,
		}

		body := strings.NewReader(`{not json`)
		req := httptest.NewRequest("POST", "/api/accuracy/auto-calculate", body)
		w := httptest.NewRecorder()

		h.AutoCalculateAccuracy(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %v, want 400", w.Code)
		}
	})
}

func TestCalculateAccuracy(t *testing.T) {
	logger := zap.NewNop().Sugar()

	pairRequest := func(game, prediction, body string) *http.Request {
		req := httptest.NewRequest("POST", "/api/predictions/"+game+"/"+prediction+"/calculate-accuracy", strings.NewReader(body))
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("game", game)
		rctx.URLParams.Add("prediction", prediction)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("Success", func(t *testing.T) {
		h := &Handler{
			reconcile: &mockReconcileService{
				CalculateAccuracyFunc: func(ctx context.Context, game config.Game, predictionID, outcomeID string) (*models.AccuracyRecord, error) {
					if predictionID != "p1" || outcomeID != "r1" {
						t.Errorf("pair = (%s, %s), want (p1, r1)", predictionID, outcomeID)
					}
					return &models.AccuracyRecord{ID: "a1", ErrorDistance: 12.5, NumbersMatched: 3}, nil
				},
			},
			validator: validator.New(),
			logger:    logger,
		}

		req := pairRequest("lotto_6_42", "p1", `{"result_id": "r1"}`)
		w := httptest.NewRecorder()

		h.CalculateAccuracy(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %v, want 200", w.Code)
		}
		var resp models.CalculateAccuracyResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Success || resp.RecordID != "a1" || resp.NumbersMatched != 3 {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("UnknownPrediction", func(t *testing.T) {
		h := &Handler{
			reconcile: &mockReconcileService{
				CalculateAccuracyFunc: func(ctx context.Context, game config.Game, predictionID, outcomeID string) (*models.AccuracyRecord, error) {
					return nil, &logic.NotFoundError{Kind: "prediction", ID: predictionID}
				},
			},
			validator: validator.New(),
			logger:    logger,
		}

		req := pairRequest("lotto_6_42", "ghost", `{"result_id": "r1"}`)
		w := httptest.NewRecorder()

		h.CalculateAccuracy(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %v, want 404", w.Code)
		}
	})

	t.Run("MissingResultID", func(t *testing.T) {
		h := &Handler{
			reconcile: &mockReconcileService{},
			validator: validator.New(),
			logger:    logger,
		}

		req := pairRequest("lotto_6_42", "p1", `{}`)
		w := httptest.NewRecorder()

		h.CalculateAccuracy(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %v, want 400", w.Code)
		}
	})
}

func TestGetReconcileDiagnostics(t *testing.T) {
	h := &Handler{
		reconcile: &mockReconcileService{
			DiagnosticsFunc: func(ctx context.Context, game config.Game) (*models.ReconcileDiagnostics, error) {
				return &models.ReconcileDiagnostics{GameType: game.ID, MatchablePairs: 3}, nil
			},
		},
		logger: zap.NewNop().Sugar(),
	}

	req := gameRequest("GET", "/api/accuracy/diagnostics/lotto_6_42", "lotto_6_42")
	w := httptest.NewRecorder()

	h.GetReconcileDiagnostics(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	var diag models.ReconcileDiagnostics
	if err := json.NewDecoder(w.Body).Decode(&diag); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diag.MatchablePairs != 3 {
		t.Errorf("MatchablePairs = %d, want 3", diag.MatchablePairs)
	}
}

func TestGetGames(t *testing.T) {
	h := &Handler{logger: zap.NewNop().Sugar()}

	req := httptest.NewRequest("GET", "/api/games", nil)
	w := httptest.NewRecorder()

	h.GetGames(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	var games []models.GameInfo
	if err := json.NewDecoder(w.Body).Decode(&games); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(games) != len(config.Games) {
		t.Errorf("games = %d, want %d", len(games), len(config.Games))
	}
	for i := 1; i < len(games); i++ {
		if games[i-1].ID >= games[i].ID {
			t.Error("games not sorted by ID")
			break
		}
	}
}

func TestGetStatsUnknownGame(t *testing.T) {
	h := &Handler{logger: zap.NewNop().Sugar()}

	req := gameRequest("GET", "/api/stats/powerball", "powerball")
	w := httptest.NewRecorder()

	h.GetStats(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %v, want 404", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	h := &Handler{
		stats: &mockStatsService{
			FrequencyFunc: func(ctx context.Context, game config.Game) (*models.StatsResponse, error) {
				return &models.StatsResponse{GameType: game.ID, DrawsCount: 12}, nil
			},
		},
		logger: zap.NewNop().Sugar(),
	}

	req := gameRequest("GET", "/api/stats/lotto_6_42", "lotto_6_42")
	w := httptest.NewRecorder()

	h.GetStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", w.Code)
	}
	var stats models.StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.DrawsCount != 12 {
		t.Errorf("DrawsCount = %d, want 12", stats.DrawsCount)
	}
}

func TestGetResultsInvalidLimit(t *testing.T) {
	h := &Handler{logger: zap.NewNop().Sugar()}

	req := gameRequest("GET", "/api/results/lotto_6_42?limit=-5", "lotto_6_42")
	w := httptest.NewRecorder()

	h.GetResults(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %v, want 400", w.Code)
	}
}

func TestRoutesWiring(t *testing.T) {
	h := &Handler{
		stats: &mockStatsService{
			FrequencyFunc: func(ctx context.Context, game config.Game) (*models.StatsResponse, error) {
				return &models.StatsResponse{GameType: game.ID}, nil
			},
		},
		logger: zap.NewNop().Sugar(),
	}

	router := h.Routes([]string{"http://localhost:3000"})
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/stats/lotto_6_42")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("health status = %v, want 200", resp2.StatusCode)
	}
}
