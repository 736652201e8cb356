package predictor

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
)

// Forest hyperparameters.
const (
	forestTrees       = 20
	forestMaxDepth    = 3
	forestFeatureFrac = 0.4
)

// ForestPredictor is a random-forest-style ensemble: bagged regression
// trees per candidate number over frequency, previous-draw and summary
// statistics features.
type ForestPredictor struct {
	source   OutcomeSource
	analyzer *freq.Analyzer

	mu     sync.Mutex
	models map[string]*forestModel
}

type forestModel struct {
	forests [][]*treeNode // trees per candidate number
}

// NewForestPredictor creates a random-forest predictor.
func NewForestPredictor(source OutcomeSource, analyzer *freq.Analyzer) *ForestPredictor {
	return &ForestPredictor{
		source:   source,
		analyzer: analyzer,
		models:   make(map[string]*forestModel),
	}
}

func (f *ForestPredictor) Name() string { return ModelForest }

func (f *ForestPredictor) Predict(ctx context.Context, game config.Game) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	model, ok := f.models[game.ID]
	if !ok {
		var err error
		model, err = f.train(ctx, game)
		if err != nil {
			return nil, err
		}
		f.models[game.ID] = model
	}

	latest, err := history(ctx, f.source, game.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return f.analyzer.TopPick(ctx, game)
	}

	frequency, err := f.analyzer.Frequency(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	features := forestFeatures(frequency, sortedNumbers(&latest[0]), game)

	scores := make([]float64, game.MaxNumber-game.MinNumber+1)
	for num := range scores {
		var sum float64
		for _, tree := range model.forests[num] {
			sum += tree.eval(features)
		}
		scores[num] = sum / float64(len(model.forests[num]))
	}
	return finalize(ctx, f.analyzer, game, topK(scores, game.DrawSize, game.MinNumber))
}

func (f *ForestPredictor) train(ctx context.Context, game config.Game) (*forestModel, error) {
	outcomes, err := history(ctx, f.source, game.ID, 10000)
	if err != nil {
		return nil, err
	}
	if len(outcomes) < minHistory {
		return nil, &InsufficientDataError{Model: ModelForest, Need: minHistory, Got: len(outcomes)}
	}
	chronological(outcomes)

	frequency, err := f.analyzer.Frequency(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, 0, len(outcomes)-1)
	drawn := make([]map[int]bool, 0, len(outcomes)-1)
	for i := 1; i < len(outcomes); i++ {
		rows = append(rows, forestFeatures(frequency, sortedNumbers(&outcomes[i-1]), game))
		set := make(map[int]bool, game.DrawSize)
		for _, n := range outcomes[i].Numbers() {
			set[n] = true
		}
		drawn = append(drawn, set)
	}

	numberCount := game.MaxNumber - game.MinNumber + 1
	model := &forestModel{forests: make([][]*treeNode, numberCount)}
	rng := rand.New(rand.NewSource(42))

	for num := 0; num < numberCount; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := make([]sample, len(rows))
		for i, row := range rows {
			label := 0.0
			if drawn[i][game.MinNumber+num] {
				label = 1.0
			}
			base[i] = sample{features: row, label: label}
		}

		trees := make([]*treeNode, forestTrees)
		boot := make([]sample, len(base))
		for t := 0; t < forestTrees; t++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for i := range boot {
				boot[i] = base[rng.Intn(len(base))]
			}
			trees[t] = buildTree(boot, 0, forestMaxDepth, rng, forestFeatureFrac)
		}
		model.forests[num] = trees
	}
	return model, nil
}

// forestFeatures extends the boosted feature layout with summary
// statistics of the previous draw (sum, mean, stddev, max, min).
func forestFeatures(frequency map[int]int, prev []int, game config.Game) []float64 {
	features := boostedFeatures(frequency, prev, game)

	var sum float64
	for _, n := range prev {
		sum += float64(n)
	}
	mean := sum / float64(len(prev))
	var variance float64
	for _, n := range prev {
		d := float64(n) - mean
		variance += d * d
	}
	variance /= float64(len(prev))

	return append(features,
		sum,
		mean,
		math.Sqrt(variance),
		float64(prev[len(prev)-1]),
		float64(prev[0]),
	)
}

var _ Predictor = (*ForestPredictor)(nil)
