package models

// ReconcileRequest triggers accuracy reconciliation, optionally scoped to
// one game, and within a game to one model.
type ReconcileRequest struct {
	GameType  string `json:"game_type,omitempty" validate:"required_with=ModelType,omitempty,min=1"`
	ModelType string `json:"model_type,omitempty" validate:"omitempty,min=1"`
}

// CalculateAccuracyRequest scores one stored prediction against one
// stored draw result.
type CalculateAccuracyRequest struct {
	ResultID string `json:"result_id" validate:"required"`
}

// CalculateAccuracyResponse reports the metric bundle of an on-demand
// scoring call.
type CalculateAccuracyResponse struct {
	Success        bool         `json:"success"`
	RecordID       string       `json:"record_id,omitempty"`
	ErrorDistance  float64      `json:"error_distance"`
	NumbersMatched int          `json:"numbers_matched"`
	Metrics        MetricBundle `json:"metrics"`
}

// ReconcileResponse reports the outcome of a reconciliation run.
type ReconcileResponse struct {
	Success         bool           `json:"success"`
	TotalCalculated int            `json:"total_calculated"`
	Message         string         `json:"message"`
	Diagnostics     map[string]int `json:"diagnostics,omitempty"`
}

// GameInfo describes one configured game for API listings.
type GameInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MinNumber    int    `json:"min_number"`
	MaxNumber    int    `json:"max_number"`
	NumbersCount int    `json:"numbers_count"`
}

// ModelPrediction is one model's entry in a generation response: either a
// persisted prediction or an error descriptor, never both.
type ModelPrediction struct {
	Numbers             []int   `json:"numbers,omitempty"`
	PreviousPredictions [][]int `json:"previous_predictions,omitempty"`
	PredictionID        string  `json:"prediction_id,omitempty"`
	Error               string  `json:"error,omitempty"`
}

// GenerateResponse is the ensemble result for one game.
type GenerateResponse struct {
	Success        bool                       `json:"success"`
	GameType       string                     `json:"game_type"`
	TargetDrawDate string                     `json:"target_draw_date"`
	Predictions    map[string]ModelPrediction `json:"predictions"`
	Timestamp      string                     `json:"timestamp"`
}

// NumberFrequency pairs a number with its historical occurrence count.
type NumberFrequency struct {
	Number    int `json:"number"`
	Frequency int `json:"frequency"`
}

// OverdueNumber pairs a number with days since it last appeared.
type OverdueNumber struct {
	Number    int `json:"number"`
	DaysSince int `json:"days_since"`
}

// StatsResponse is the frequency view for one game.
type StatsResponse struct {
	GameType       string            `json:"game_type"`
	DrawsCount     int               `json:"draws_count"`
	EarliestDraw   string            `json:"earliest_draw,omitempty"`
	LatestDraw     string            `json:"latest_draw,omitempty"`
	AverageJackpot float64           `json:"average_jackpot,omitempty"`
	Hot            []NumberFrequency `json:"hot_numbers"`
	Cold           []NumberFrequency `json:"cold_numbers"`
	Overdue        []OverdueNumber   `json:"overdue_numbers"`
}

// GaussianStats describes the joint (sum, product) distribution of a
// game's historical draws.
type GaussianStats struct {
	GameType      string  `json:"game_type"`
	DrawsCount    int     `json:"draws_count"`
	SumMean       float64 `json:"sum_mean"`
	SumStdDev     float64 `json:"sum_std_dev"`
	ProductMean   float64 `json:"product_mean"`
	ProductStdDev float64 `json:"product_std_dev"`
}

// ModelAccuracy aggregates the scored history of one model.
type ModelAccuracy struct {
	ModelType      string  `json:"model_type"`
	Predictions    int     `json:"predictions_scored"`
	AvgError       float64 `json:"avg_error_distance"`
	BestError      float64 `json:"best_error_distance"`
	AvgMatched     float64 `json:"avg_numbers_matched"`
	TotalMatched   int     `json:"total_numbers_matched"`
	LastCalculated string  `json:"last_calculated,omitempty"`
}

// AccuracySummary is the per-model accuracy breakdown for one game.
type AccuracySummary struct {
	GameType string          `json:"game_type"`
	Models   []ModelAccuracy `json:"models"`
}

// ReconcileDiagnostics explains why pairs did or did not reconcile for
// one game.
type ReconcileDiagnostics struct {
	GameType        string `json:"game_type"`
	Predictions     int    `json:"predictions"`
	Outcomes        int    `json:"outcomes"`
	ExistingRecords int    `json:"existing_records"`
	MatchablePairs  int    `json:"matchable_pairs"`
	UnmatchedPreds  int    `json:"unmatched_predictions"`
	Malformed       int    `json:"malformed_records"`
}
