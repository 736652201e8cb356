package logic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/agent"
	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/distance"
	"github.com/lottostack/prediction-api/internal/models"
	"github.com/lottostack/prediction-api/internal/predictor"
	"github.com/lottostack/prediction-api/internal/store"
)

// reconcileLookback bounds how many predictions and outcomes one run
// loads per game.
const reconcileLookback = 1000

var (
	accuracyRecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lotto_accuracy_records_created_total",
		Help: "Total number of accuracy records persisted, by game",
	}, []string{"game"})

	reconcilePairsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lotto_reconcile_pairs_skipped_total",
		Help: "Total number of already-scored pairs skipped, by game",
	}, []string{"game"})

	reconcilePairsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lotto_reconcile_pairs_failed_total",
		Help: "Total number of pairs whose accuracy write failed, by game",
	}, []string{"game"})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lotto_reconcile_duration_seconds",
		Help:    "Duration of per-game reconciliation runs",
		Buckets: prometheus.DefBuckets,
	})
)

// NotFoundError marks a referenced record that does not exist in the
// store's loaded window.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// pairResult tags the outcome of scoring one (prediction, outcome)
// pair.
type pairResult int

const (
	pairCreated pairResult = iota
	pairSkipped
	pairFailed
)

type reconcileService struct {
	store   Store
	learner AgentLearner
	logger  *zap.SugaredLogger
}

// NewReconcileService builds the reconciliation engine. learner may be
// nil; continual learning is then never triggered.
func NewReconcileService(st Store, learner AgentLearner, logger *zap.Logger) ReconcileService {
	return &reconcileService{
		store:   st,
		learner: learner,
		logger:  logger.Sugar(),
	}
}

// Reconcile scores every unscored (prediction, outcome) pair for one
// game, optionally restricted to one model's predictions. Pairs match
// on calendar date; already-scored pairs are skipped, failed writes
// stay unscored and are retried on the next run. The run is idempotent:
// a second invocation with no new data creates nothing.
func (s *reconcileService) Reconcile(ctx context.Context, game config.Game, modelType string) (*models.ReconcileResponse, error) {
	start := time.Now()
	defer func() { reconcileDuration.Observe(time.Since(start).Seconds()) }()

	created, err := s.reconcileGame(ctx, game, modelType)
	if err != nil {
		return nil, err
	}
	scope := game.ID
	if modelType != "" {
		scope = game.ID + "/" + modelType
	}
	return &models.ReconcileResponse{
		Success:         true,
		TotalCalculated: created,
		Message:         fmt.Sprintf("calculated %d new accuracy records for %s", created, scope),
	}, nil
}

// ReconcileAll runs reconciliation for every configured game. One game
// failing does not stop the others; per-game created counts are
// reported in the diagnostics map.
func (s *reconcileService) ReconcileAll(ctx context.Context) (*models.ReconcileResponse, error) {
	ids := make([]string, 0, len(config.Games))
	for id := range config.Games {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := 0
	diagnostics := make(map[string]int, len(ids))
	for _, id := range ids {
		game := config.Games[id]
		created, err := s.reconcileGame(ctx, game, "")
		if err != nil {
			s.logger.Errorw("reconciliation failed", "game", id, "error", err)
			diagnostics[id] = 0
			continue
		}
		diagnostics[id] = created
		total += created
	}

	return &models.ReconcileResponse{
		Success:         true,
		TotalCalculated: total,
		Message:         fmt.Sprintf("calculated %d new accuracy records across %d games", total, len(ids)),
		Diagnostics:     diagnostics,
	}, nil
}

func (s *reconcileService) reconcileGame(ctx context.Context, game config.Game, modelFilter string) (int, error) {
	predictions, err := s.store.ListPredictions(ctx, game.ID, reconcileLookback)
	if err != nil {
		return 0, err
	}
	outcomes, err := s.store.ListOutcomes(ctx, game.ID, reconcileLookback, 0, "draw_date.desc")
	if err != nil {
		return 0, err
	}
	records, err := s.store.ListAccuracyRecords(ctx, game.ID)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool, len(records))
	for i := range records {
		existing[pairKey(records[i].PredictionID, records[i].OutcomeID)] = true
	}

	byDate := make(map[string][]*models.DrawOutcome)
	for i := range outcomes {
		o := &outcomes[i]
		if !o.Complete() {
			s.logger.Warnw("skipping malformed record",
				"error", &models.MalformedRecordError{Kind: "outcome", ID: o.ID, Reason: "incomplete number set"})
			continue
		}
		date, ok := normalizeDate(o.DrawDate)
		if !ok {
			continue
		}
		byDate[date] = append(byDate[date], o)
	}

	var created, skipped, failed int
	newAgentRecords := 0
	createdRecords := make([]models.AccuracyRecord, 0)

	for i := range predictions {
		p := &predictions[i]
		if modelFilter != "" && p.ModelType != modelFilter {
			continue
		}
		if !p.Complete() {
			s.logger.Warnw("skipping malformed record",
				"error", &models.MalformedRecordError{Kind: "prediction", ID: p.ID, Reason: "incomplete number set"})
			continue
		}
		date, ok := normalizeDate(p.TargetDrawDate)
		if !ok {
			continue
		}

		for _, o := range byDate[date] {
			switch s.scorePair(ctx, game, p, o, existing, &createdRecords) {
			case pairCreated:
				created++
				if p.ModelType == predictor.ModelAgent {
					newAgentRecords++
				}
			case pairSkipped:
				skipped++
			case pairFailed:
				failed++
			}
		}
	}

	accuracyRecordsCreated.WithLabelValues(game.ID).Add(float64(created))
	reconcilePairsSkipped.WithLabelValues(game.ID).Add(float64(skipped))
	reconcilePairsFailed.WithLabelValues(game.ID).Add(float64(failed))

	s.logger.Infow("reconciliation finished",
		"game", game.ID,
		"created", created,
		"skipped", skipped,
		"failed", failed,
	)

	if s.learner != nil && newAgentRecords > 0 {
		s.triggerLearning(ctx, game, predictions, append(records, createdRecords...))
	}

	return created, nil
}

// scorePair computes and persists the accuracy record for one matched
// pair. The store's uniqueness constraint is the dedup authority: a
// conflict on create counts as skipped, not failed.
func (s *reconcileService) scorePair(ctx context.Context, game config.Game, p *models.Prediction, o *models.DrawOutcome, existing map[string]bool, out *[]models.AccuracyRecord) pairResult {
	key := pairKey(p.ID, o.ID)
	if existing[key] {
		return pairSkipped
	}

	bundle := distance.Calculate(p.Numbers(), o.Numbers())
	record := &models.AccuracyRecord{
		PredictionID:    p.ID,
		OutcomeID:       o.ID,
		ErrorDistance:   bundle.Euclidean,
		NumbersMatched:  bundle.SetIntersection,
		DistanceMetrics: bundle,
		CalculatedAt:    models.Timestamp(),
	}

	stored, err := s.store.CreateAccuracyRecord(ctx, game.ID, record)
	if err != nil {
		var reqErr *store.RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusConflict {
			existing[key] = true
			return pairSkipped
		}
		s.logger.Errorw("persisting accuracy record failed",
			"game", game.ID,
			"prediction_id", p.ID,
			"result_id", o.ID,
			"error", err,
		)
		return pairFailed
	}

	existing[key] = true
	*out = append(*out, *stored)
	return pairCreated
}

// CalculateAccuracy scores one explicit (prediction, outcome) pair on
// demand, regardless of date matching. An already-scored pair returns
// the existing record without a new write. Agent predictions feed
// continual learning the same way bulk reconciliation does.
func (s *reconcileService) CalculateAccuracy(ctx context.Context, game config.Game, predictionID, outcomeID string) (*models.AccuracyRecord, error) {
	predictions, err := s.store.ListPredictions(ctx, game.ID, reconcileLookback)
	if err != nil {
		return nil, err
	}
	var p *models.Prediction
	for i := range predictions {
		if predictions[i].ID == predictionID {
			p = &predictions[i]
			break
		}
	}
	if p == nil {
		return nil, &NotFoundError{Kind: "prediction", ID: predictionID}
	}

	outcomes, err := s.store.ListOutcomes(ctx, game.ID, reconcileLookback, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}
	var o *models.DrawOutcome
	for i := range outcomes {
		if outcomes[i].ID == outcomeID {
			o = &outcomes[i]
			break
		}
	}
	if o == nil {
		return nil, &NotFoundError{Kind: "result", ID: outcomeID}
	}

	if !p.Complete() {
		return nil, &models.MalformedRecordError{Kind: "prediction", ID: p.ID, Reason: "incomplete number set"}
	}
	if !o.Complete() {
		return nil, &models.MalformedRecordError{Kind: "outcome", ID: o.ID, Reason: "incomplete number set"}
	}

	records, err := s.store.ListAccuracyRecords(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].PredictionID == predictionID && records[i].OutcomeID == outcomeID {
			return &records[i], nil
		}
	}

	bundle := distance.Calculate(p.Numbers(), o.Numbers())
	record := &models.AccuracyRecord{
		PredictionID:    predictionID,
		OutcomeID:       outcomeID,
		ErrorDistance:   bundle.Euclidean,
		NumbersMatched:  bundle.SetIntersection,
		DistanceMetrics: bundle,
		CalculatedAt:    models.Timestamp(),
	}
	stored, err := s.store.CreateAccuracyRecord(ctx, game.ID, record)
	if err != nil {
		var reqErr *store.RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusConflict {
			// Raced with a concurrent run; the pair is scored.
			return record, nil
		}
		return nil, err
	}
	accuracyRecordsCreated.WithLabelValues(game.ID).Inc()

	if s.learner != nil && p.ModelType == predictor.ModelAgent {
		s.triggerLearning(ctx, game, predictions, append(records, *stored))
	}
	return stored, nil
}

// triggerLearning feeds the agent's scored history back to it. Errors
// are logged, never propagated; reconciliation already succeeded.
func (s *reconcileService) triggerLearning(ctx context.Context, game config.Game, predictions []models.Prediction, records []models.AccuracyRecord) {
	byID := make(map[string]*models.Prediction, len(predictions))
	for i := range predictions {
		byID[predictions[i].ID] = &predictions[i]
	}

	samples := make([]agent.AccuracySample, 0)
	for i := range records {
		p, ok := byID[records[i].PredictionID]
		if !ok || p.ModelType != predictor.ModelAgent {
			continue
		}
		samples = append(samples, agent.AccuracySample{
			Numbers:        p.Numbers(),
			ErrorDistance:  records[i].ErrorDistance,
			NumbersMatched: records[i].NumbersMatched,
		})
	}

	if err := s.learner.LearnFromAccuracy(ctx, game, samples); err != nil {
		s.logger.Errorw("continual learning failed", "game", game.ID, "error", err)
		return
	}
	s.logger.Infow("continual learning triggered", "game", game.ID, "samples", len(samples))
}

// Diagnostics reports why pairs did or did not reconcile, without
// writing anything.
func (s *reconcileService) Diagnostics(ctx context.Context, game config.Game) (*models.ReconcileDiagnostics, error) {
	predictions, err := s.store.ListPredictions(ctx, game.ID, reconcileLookback)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.store.ListOutcomes(ctx, game.ID, reconcileLookback, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAccuracyRecords(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	d := &models.ReconcileDiagnostics{
		GameType:        game.ID,
		Predictions:     len(predictions),
		Outcomes:        len(outcomes),
		ExistingRecords: len(records),
	}

	dates := make(map[string]int)
	for i := range outcomes {
		if !outcomes[i].Complete() {
			d.Malformed++
			continue
		}
		if date, ok := normalizeDate(outcomes[i].DrawDate); ok {
			dates[date]++
		}
	}
	for i := range predictions {
		if !predictions[i].Complete() {
			d.Malformed++
			continue
		}
		date, ok := normalizeDate(predictions[i].TargetDrawDate)
		if !ok || dates[date] == 0 {
			d.UnmatchedPreds++
			continue
		}
		d.MatchablePairs += dates[date]
	}

	return d, nil
}

func pairKey(predictionID, outcomeID string) string {
	return predictionID + "|" + outcomeID
}

// normalizeDate reduces a stored date string to a comparable
// calendar-date form. Parse first; fall back to the raw date prefix for
// formats the parser does not know.
func normalizeDate(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if t, ok := models.ParseDrawDate(raw); ok {
		return t.Format("2006-01-02"), true
	}
	return models.DateOnly(raw), true
}
