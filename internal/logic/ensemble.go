package logic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/models"
	"github.com/lottostack/prediction-api/internal/predictor"
)

// priorSlots is how many of the model's own previous sets travel with a
// new prediction record.
const priorSlots = 5

// priorLookback bounds how many stored predictions the prior-set scan
// reads.
const priorLookback = 100

// Prometheus metrics
var (
	predictionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lotto_predictions_generated_total",
		Help: "Total number of predictions persisted, by game and model",
	}, []string{"game", "model"})

	predictionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lotto_prediction_failures_total",
		Help: "Total number of model failures during generation, by game and model",
	}, []string{"game", "model"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lotto_generation_duration_seconds",
		Help:    "Duration of full ensemble generation cycles",
		Buckets: prometheus.DefBuckets,
	})
)

// PredictionTimeoutError marks a model that exceeded its execution
// slot. Reported as that model's error entry, never fatal to the run.
type PredictionTimeoutError struct {
	Model   string
	Timeout time.Duration
}

func (e *PredictionTimeoutError) Error() string {
	return fmt.Sprintf("model %s timed out after %s", e.Model, e.Timeout)
}

type generationService struct {
	store        Store
	predictors   []predictor.Predictor
	modelTimeout time.Duration
	agentTimeout time.Duration
	logger       *zap.SugaredLogger
}

// NewGenerationService builds the ensemble runner. The predictor slice
// order fixes the response ordering; the reinforcement-learning model
// gets its own, longer timeout.
func NewGenerationService(store Store, predictors []predictor.Predictor, cfg *config.Config, logger *zap.Logger) GenerationService {
	return &generationService{
		store:        store,
		predictors:   predictors,
		modelTimeout: cfg.ModelTimeout,
		agentTimeout: cfg.AgentTimeout,
		logger:       logger.Sugar(),
	}
}

// Generate runs every model concurrently under its per-model timeout,
// persists each successful set together with that model's previous
// sets, and reports per-model results. A model failure never aborts the
// cycle; it shows up as that model's error entry.
func (s *generationService) Generate(ctx context.Context, game config.Game) (*models.GenerateResponse, error) {
	start := time.Now()
	defer func() { generationDuration.Observe(time.Since(start).Seconds()) }()

	targetDate := time.Now().UTC().Format("2006-01-02")
	priors, err := s.priorSets(ctx, game.ID)
	if err != nil {
		// Prior sets are contextual; generation proceeds without them.
		s.logger.Warnw("loading prior predictions failed", "game", game.ID, "error", err)
		priors = map[string][][]int{}
	}

	type modelResult struct {
		numbers []int
		err     error
	}
	results := make([]modelResult, len(s.predictors))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.predictors {
		i, p := i, p
		g.Go(func() error {
			timeout := s.modelTimeout
			if p.Name() == predictor.ModelAgent {
				timeout = s.agentTimeout
			}
			cctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			// The slot must expire on time even when the model does not
			// watch its context, so the call runs detached and the slot
			// races it against the deadline. A completion that arrives
			// after the deadline is a timeout, not a result.
			done := make(chan modelResult, 1)
			go func() {
				nums, err := p.Predict(cctx, game)
				done <- modelResult{numbers: nums, err: err}
			}()

			select {
			case res := <-done:
				if cctx.Err() == context.DeadlineExceeded {
					res = modelResult{err: &PredictionTimeoutError{Model: p.Name(), Timeout: timeout}}
				}
				results[i] = res
			case <-cctx.Done():
				if cctx.Err() == context.DeadlineExceeded {
					results[i] = modelResult{err: &PredictionTimeoutError{Model: p.Name(), Timeout: timeout}}
				} else {
					results[i] = modelResult{err: cctx.Err()}
				}
			}
			return nil
		})
	}
	g.Wait()

	resp := &models.GenerateResponse{
		Success:        true,
		GameType:       game.ID,
		TargetDrawDate: targetDate,
		Predictions:    make(map[string]models.ModelPrediction, len(s.predictors)),
		Timestamp:      models.Timestamp(),
	}

	for i, p := range s.predictors {
		name := p.Name()
		res := results[i]
		if res.err != nil {
			predictionFailures.WithLabelValues(game.ID, name).Inc()
			s.logger.Warnw("model failed", "game", game.ID, "model", name, "error", res.err)
			resp.Predictions[name] = models.ModelPrediction{Error: res.err.Error()}
			continue
		}

		prev := priors[name]
		record := &models.Prediction{
			TargetDrawDate: targetDate,
			ModelType:      name,
			CreatedAt:      models.Timestamp(),
		}
		if err := record.SetNumbers(res.numbers); err != nil {
			predictionFailures.WithLabelValues(game.ID, name).Inc()
			resp.Predictions[name] = models.ModelPrediction{Error: err.Error()}
			continue
		}
		record.SetPriorPredictions(prev)

		stored, err := s.store.CreatePrediction(ctx, game.ID, record)
		if err != nil {
			predictionFailures.WithLabelValues(game.ID, name).Inc()
			s.logger.Errorw("persisting prediction failed", "game", game.ID, "model", name, "error", err)
			resp.Predictions[name] = models.ModelPrediction{Error: err.Error()}
			continue
		}

		predictionsGenerated.WithLabelValues(game.ID, name).Inc()
		resp.Predictions[name] = models.ModelPrediction{
			Numbers:             res.numbers,
			PreviousPredictions: prev,
			PredictionID:        stored.ID,
		}
	}

	return resp, nil
}

// priorSets maps model name to its most recent stored sets, newest
// first, capped at priorSlots per model.
func (s *generationService) priorSets(ctx context.Context, gameID string) (map[string][][]int, error) {
	stored, err := s.store.ListPredictions(ctx, gameID, priorLookback)
	if err != nil {
		return nil, err
	}
	// ListPredictions is newest first; keep that order within each model.
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].CreatedAt > stored[j].CreatedAt
	})

	priors := make(map[string][][]int)
	for i := range stored {
		p := &stored[i]
		if !p.Complete() || len(priors[p.ModelType]) >= priorSlots {
			continue
		}
		priors[p.ModelType] = append(priors[p.ModelType], p.Numbers())
	}
	return priors, nil
}
