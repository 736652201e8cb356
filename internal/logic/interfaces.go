package logic

import (
	"context"

	"github.com/lottostack/prediction-api/internal/agent"
	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/models"
)

// Store defines the document-store surface the services depend on.
type Store interface {
	ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error)
	ListPredictions(ctx context.Context, gameID string, limit int) ([]models.Prediction, error)
	ListAccuracyRecords(ctx context.Context, gameID string) ([]models.AccuracyRecord, error)
	CreatePrediction(ctx context.Context, gameID string, p *models.Prediction) (*models.Prediction, error)
	CreateAccuracyRecord(ctx context.Context, gameID string, r *models.AccuracyRecord) (*models.AccuracyRecord, error)
	Ping(ctx context.Context) error
}

// AgentLearner receives scored past predictions for continual learning.
type AgentLearner interface {
	LearnFromAccuracy(ctx context.Context, game config.Game, samples []agent.AccuracySample) error
}

// GenerationService runs the full prediction ensemble for a game.
type GenerationService interface {
	Generate(ctx context.Context, game config.Game) (*models.GenerateResponse, error)
}

// ReconcileService pairs stored predictions with stored outcomes and
// persists accuracy records for the new pairs. An empty modelType
// reconciles every model.
type ReconcileService interface {
	Reconcile(ctx context.Context, game config.Game, modelType string) (*models.ReconcileResponse, error)
	ReconcileAll(ctx context.Context) (*models.ReconcileResponse, error)
	CalculateAccuracy(ctx context.Context, game config.Game, predictionID, outcomeID string) (*models.AccuracyRecord, error)
	Diagnostics(ctx context.Context, game config.Game) (*models.ReconcileDiagnostics, error)
}

// StatsService serves the read-only analytics views.
type StatsService interface {
	Frequency(ctx context.Context, game config.Game) (*models.StatsResponse, error)
	Gaussian(ctx context.Context, game config.Game) (*models.GaussianStats, error)
	AccuracySummary(ctx context.Context, game config.Game) (*models.AccuracySummary, error)
}
