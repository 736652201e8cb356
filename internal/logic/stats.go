package logic

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
	"github.com/lottostack/prediction-api/internal/models"
)

// statsLookback bounds the history the analytics views read.
const statsLookback = 1000

// statsTopN is how many hot, cold and overdue numbers the frequency
// view returns.
const statsTopN = 10

type statsService struct {
	store    Store
	analyzer *freq.Analyzer
	logger   *zap.SugaredLogger
}

// NewStatsService builds the read-only analytics service.
func NewStatsService(st Store, analyzer *freq.Analyzer, logger *zap.Logger) StatsService {
	return &statsService{
		store:    st,
		analyzer: analyzer,
		logger:   logger.Sugar(),
	}
}

// Frequency returns the hot, cold and overdue breakdown for a game.
func (s *statsService) Frequency(ctx context.Context, game config.Game) (*models.StatsResponse, error) {
	outcomes, err := s.store.ListOutcomes(ctx, game.ID, statsLookback, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}

	resp := &models.StatsResponse{GameType: game.ID}
	var jackpotSum float64
	var jackpotCount int
	for i := range outcomes {
		o := &outcomes[i]
		if !o.Complete() {
			continue
		}
		resp.DrawsCount++
		if date, ok := normalizeDate(o.DrawDate); ok {
			if resp.EarliestDraw == "" || date < resp.EarliestDraw {
				resp.EarliestDraw = date
			}
			if date > resp.LatestDraw {
				resp.LatestDraw = date
			}
		}
		if o.Jackpot > 0 {
			jackpotSum += o.Jackpot
			jackpotCount++
		}
	}
	if jackpotCount > 0 {
		resp.AverageJackpot = jackpotSum / float64(jackpotCount)
	}

	if resp.Hot, err = s.analyzer.HotNumbers(ctx, game.ID, statsTopN); err != nil {
		return nil, err
	}
	if resp.Cold, err = s.analyzer.ColdNumbers(ctx, game.ID, statsTopN); err != nil {
		return nil, err
	}
	if resp.Overdue, err = s.analyzer.OverdueNumbers(ctx, game); err != nil {
		return nil, err
	}
	if len(resp.Overdue) > statsTopN {
		resp.Overdue = resp.Overdue[:statsTopN]
	}
	return resp, nil
}

// Gaussian fits independent normal distributions over the sum and
// product of each historical draw's numbers.
func (s *statsService) Gaussian(ctx context.Context, game config.Game) (*models.GaussianStats, error) {
	outcomes, err := s.store.ListOutcomes(ctx, game.ID, statsLookback, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}

	var sums, products []float64
	for i := range outcomes {
		if !outcomes[i].Complete() {
			continue
		}
		sum, product := 0.0, 1.0
		for _, n := range outcomes[i].Numbers() {
			sum += float64(n)
			product *= float64(n)
		}
		sums = append(sums, sum)
		products = append(products, product)
	}

	stats := &models.GaussianStats{
		GameType:   game.ID,
		DrawsCount: len(sums),
	}
	stats.SumMean, stats.SumStdDev = meanStdDev(sums)
	stats.ProductMean, stats.ProductStdDev = meanStdDev(products)
	return stats, nil
}

// AccuracySummary aggregates the scored history per model, best error
// first within each model's stats.
func (s *statsService) AccuracySummary(ctx context.Context, game config.Game) (*models.AccuracySummary, error) {
	predictions, err := s.store.ListPredictions(ctx, game.ID, reconcileLookback)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAccuracyRecords(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	modelByPrediction := make(map[string]string, len(predictions))
	for i := range predictions {
		modelByPrediction[predictions[i].ID] = predictions[i].ModelType
	}

	type agg struct {
		count        int
		sumError     float64
		bestError    float64
		totalMatched int
		last         string
	}
	byModel := make(map[string]*agg)
	for i := range records {
		model, ok := modelByPrediction[records[i].PredictionID]
		if !ok {
			continue
		}
		a := byModel[model]
		if a == nil {
			a = &agg{bestError: math.Inf(1)}
			byModel[model] = a
		}
		a.count++
		a.sumError += records[i].ErrorDistance
		if records[i].ErrorDistance < a.bestError {
			a.bestError = records[i].ErrorDistance
		}
		a.totalMatched += records[i].NumbersMatched
		if records[i].CalculatedAt > a.last {
			a.last = records[i].CalculatedAt
		}
	}

	summary := &models.AccuracySummary{GameType: game.ID}
	names := make([]string, 0, len(byModel))
	for name := range byModel {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := byModel[name]
		summary.Models = append(summary.Models, models.ModelAccuracy{
			ModelType:      name,
			Predictions:    a.count,
			AvgError:       a.sumError / float64(a.count),
			BestError:      a.bestError,
			AvgMatched:     float64(a.totalMatched) / float64(a.count),
			TotalMatched:   a.totalMatched,
			LastCalculated: a.last,
		})
	}
	return summary, nil
}

func meanStdDev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs) - 1)
	return mean, math.Sqrt(variance)
}
