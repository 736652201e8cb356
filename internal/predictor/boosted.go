package predictor

import (
	"context"
	"math/rand"
	"sync"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
)

// Boosting hyperparameters.
const (
	boostRounds       = 20
	boostLearningRate = 0.3
	boostFeatureFrac  = 0.3
)

// BoostedPredictor models each candidate number's appearance likelihood
// with gradient-boosted stumps over frequency and previous-draw features,
// then takes the k highest-scoring numbers.
type BoostedPredictor struct {
	source   OutcomeSource
	analyzer *freq.Analyzer

	mu     sync.Mutex
	models map[string]*boostedModel
}

// boostedModel holds one trained per-game ensemble: an additive stump
// chain per candidate number.
type boostedModel struct {
	base   []float64 // initial prediction per number
	chains [][]stump // boosted stumps per number
}

// NewBoostedPredictor creates a gradient-boosted tree predictor.
func NewBoostedPredictor(source OutcomeSource, analyzer *freq.Analyzer) *BoostedPredictor {
	return &BoostedPredictor{
		source:   source,
		analyzer: analyzer,
		models:   make(map[string]*boostedModel),
	}
}

func (b *BoostedPredictor) Name() string { return ModelBoosted }

func (b *BoostedPredictor) Predict(ctx context.Context, game config.Game) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	model, ok := b.models[game.ID]
	if !ok {
		var err error
		model, err = b.train(ctx, game)
		if err != nil {
			return nil, err
		}
		b.models[game.ID] = model
	}

	latest, err := history(ctx, b.source, game.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return b.analyzer.TopPick(ctx, game)
	}

	frequency, err := b.analyzer.Frequency(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	features := boostedFeatures(frequency, sortedNumbers(&latest[0]), game)

	scores := make([]float64, game.MaxNumber-game.MinNumber+1)
	for i := range scores {
		scores[i] = model.score(i, features)
	}
	return finalize(ctx, b.analyzer, game, topK(scores, game.DrawSize, game.MinNumber))
}

func (b *BoostedPredictor) train(ctx context.Context, game config.Game) (*boostedModel, error) {
	outcomes, err := history(ctx, b.source, game.ID, 10000)
	if err != nil {
		return nil, err
	}
	if len(outcomes) < minHistory {
		return nil, &InsufficientDataError{Model: ModelBoosted, Need: minHistory, Got: len(outcomes)}
	}
	chronological(outcomes)

	frequency, err := b.analyzer.Frequency(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	// One row per consecutive draw pair: features from the previous
	// draw, labels from the one that followed.
	rows := make([][]float64, 0, len(outcomes)-1)
	drawn := make([]map[int]bool, 0, len(outcomes)-1)
	for i := 1; i < len(outcomes); i++ {
		rows = append(rows, boostedFeatures(frequency, sortedNumbers(&outcomes[i-1]), game))
		set := make(map[int]bool, game.DrawSize)
		for _, n := range outcomes[i].Numbers() {
			set[n] = true
		}
		drawn = append(drawn, set)
	}

	numberCount := game.MaxNumber - game.MinNumber + 1
	model := &boostedModel{
		base:   make([]float64, numberCount),
		chains: make([][]stump, numberCount),
	}
	rng := rand.New(rand.NewSource(42))

	samples := make([]sample, len(rows))
	residuals := make([]float64, len(rows))
	for num := 0; num < numberCount; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, row := range rows {
			label := 0.0
			if drawn[i][game.MinNumber+num] {
				label = 1.0
			}
			samples[i] = sample{features: row, label: label}
		}

		base := 0.0
		for i := range samples {
			base += samples[i].label
		}
		base /= float64(len(samples))
		model.base[num] = base

		preds := make([]float64, len(samples))
		for i := range preds {
			preds[i] = base
		}
		chain := make([]stump, 0, boostRounds)
		for round := 0; round < boostRounds; round++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for i := range samples {
				residuals[i] = samples[i].label - preds[i]
			}
			st := fitStump(samples, residuals, rng, boostFeatureFrac)
			chain = append(chain, st)
			for i := range samples {
				preds[i] += boostLearningRate * st.eval(samples[i].features)
			}
		}
		model.chains[num] = chain
	}
	return model, nil
}

func (m *boostedModel) score(num int, features []float64) float64 {
	score := m.base[num]
	for i := range m.chains[num] {
		score += boostLearningRate * m.chains[num][i].eval(features)
	}
	return score
}

// boostedFeatures is the frequency vector plus the previous draw's sorted
// numbers.
func boostedFeatures(frequency map[int]int, prev []int, game config.Game) []float64 {
	features := make([]float64, 0, game.MaxNumber-game.MinNumber+1+game.DrawSize)
	for n := game.MinNumber; n <= game.MaxNumber; n++ {
		features = append(features, float64(frequency[n]))
	}
	for _, n := range prev {
		features = append(features, float64(n))
	}
	for len(features) < game.MaxNumber-game.MinNumber+1+game.DrawSize {
		features = append(features, 0)
	}
	return features
}

var _ Predictor = (*BoostedPredictor)(nil)
