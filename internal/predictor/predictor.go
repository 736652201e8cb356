// Package predictor defines the common contract implemented by every
// prediction strategy and hosts the statistical models. Each predictor
// keeps its trained state in a per-game registry, so concurrent
// generation cycles for different games never invalidate each other.
package predictor

import (
	"context"
	"fmt"
	"sort"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
	"github.com/lottostack/prediction-api/internal/models"
)

// Model names, wire-compatible with the stored prediction history.
const (
	ModelBoosted = "XGBoost"
	ModelForest  = "DecisionTree"
	ModelMarkov  = "MarkovChain"
	ModelDensity = "AnomalyDetection"
	ModelAgent   = "DRL"
)

// minHistory is the minimum number of complete outcomes the statistical
// models need before training.
const minHistory = 10

// Predictor yields an ordered sequence of k distinct integers within the
// game's number range. Implementations train lazily on first use per game
// and are safe for concurrent use across games; access for the same game
// is serialized internally.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, game config.Game) ([]int, error)
}

// OutcomeSource provides stored draw outcomes for training.
type OutcomeSource interface {
	ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error)
}

// InsufficientDataError reports that a game's history is too small to
// train a model. Non-fatal: the ensemble records it as that model's
// failure and moves on.
type InsufficientDataError struct {
	Model string
	Need  int
	Got   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient historical data: need %d draws, have %d", e.Model, e.Need, e.Got)
}

// history returns complete outcomes for a game in draw-date descending
// order (most recent first).
func history(ctx context.Context, source OutcomeSource, gameID string, limit int) ([]models.DrawOutcome, error) {
	outcomes, err := source.ListOutcomes(ctx, gameID, limit, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}
	complete := outcomes[:0]
	for i := range outcomes {
		if outcomes[i].Complete() {
			complete = append(complete, outcomes[i])
		}
	}
	return complete, nil
}

// chronological reverses a most-recent-first history in place so index 0
// is the oldest draw.
func chronological(outcomes []models.DrawOutcome) []models.DrawOutcome {
	for i, j := 0, len(outcomes)-1; i < j; i, j = i+1, j-1 {
		outcomes[i], outcomes[j] = outcomes[j], outcomes[i]
	}
	return outcomes
}

// sortedNumbers returns an outcome's numbers ascending.
func sortedNumbers(o *models.DrawOutcome) []int {
	nums := o.Numbers()
	sort.Ints(nums)
	return nums
}

// finalize validates a candidate against the game invariant, degrading to
// the frequency-ranked fallback if the model produced something invalid.
func finalize(ctx context.Context, analyzer *freq.Analyzer, game config.Game, nums []int) ([]int, error) {
	if err := models.ValidateNumbers(nums, game.MinNumber, game.MaxNumber, game.DrawSize); err == nil {
		sort.Ints(nums)
		return nums, nil
	}
	return analyzer.TopPick(ctx, game)
}
