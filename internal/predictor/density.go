package predictor

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
)

// Density model constants. Epsilon is the log-density margin below the
// distribution mode past which a candidate counts as atypical.
const (
	densityEpsilon        = 2.0
	densityCandidates     = 1000
	densityMeanCandidates = 500
)

// DensityPredictor models the historical draws as a bivariate Gaussian
// over their (sum, product) representation and searches random candidate
// sets against that density. Candidates beyond the epsilon boundary win,
// most atypical first; without any, the search retargets the historical
// mean, and finally the frequency-ranked fallback.
type DensityPredictor struct {
	source   OutcomeSource
	analyzer *freq.Analyzer

	mu     sync.Mutex
	models map[string]*gaussian2
	rng    *rand.Rand
}

// gaussian2 is a 2-D Gaussian fit: mean vector plus inverse covariance
// and its determinant for log-density evaluation.
type gaussian2 struct {
	mean   [2]float64
	inv    [2][2]float64
	logDet float64
}

// NewDensityPredictor creates a density-based predictor.
func NewDensityPredictor(source OutcomeSource, analyzer *freq.Analyzer) *DensityPredictor {
	return &DensityPredictor{
		source:   source,
		analyzer: analyzer,
		models:   make(map[string]*gaussian2),
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

func (d *DensityPredictor) Name() string { return ModelDensity }

func (d *DensityPredictor) Predict(ctx context.Context, game config.Game) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	model, ok := d.models[game.ID]
	if !ok {
		var err error
		model, err = d.train(ctx, game)
		if err != nil {
			return nil, err
		}
		d.models[game.ID] = model
	}

	modeScore := model.logDensity(model.mean)

	var best []int
	bestGap := 0.0
	for i := 0; i < densityCandidates; i++ {
		candidate := randomSet(d.rng, game)
		score := model.logDensity(sumProduct(candidate))
		if score < modeScore-densityEpsilon {
			if gap := modeScore - score; gap > bestGap {
				bestGap = gap
				best = candidate
			}
		}
	}
	if best != nil {
		return finalize(ctx, d.analyzer, game, best)
	}

	// No candidate cleared the boundary; aim for the distribution mean
	// instead.
	best = nil
	bestDiff := math.Inf(1)
	for i := 0; i < densityMeanCandidates; i++ {
		candidate := randomSet(d.rng, game)
		sp := sumProduct(candidate)
		// Product dominates in magnitude; scale it down so the sum
		// still participates.
		diff := math.Abs(sp[0]-model.mean[0]) + math.Abs(sp[1]-model.mean[1])/1e6
		if diff < bestDiff {
			bestDiff = diff
			best = candidate
		}
	}
	if best != nil {
		return finalize(ctx, d.analyzer, game, best)
	}
	return d.analyzer.TopPick(ctx, game)
}

func (d *DensityPredictor) train(ctx context.Context, game config.Game) (*gaussian2, error) {
	outcomes, err := history(ctx, d.source, game.ID, 10000)
	if err != nil {
		return nil, err
	}
	if len(outcomes) < minHistory {
		return nil, &InsufficientDataError{Model: ModelDensity, Need: minHistory, Got: len(outcomes)}
	}

	points := make([][2]float64, len(outcomes))
	for i := range outcomes {
		points[i] = sumProduct(outcomes[i].Numbers())
	}
	return fitGaussian2(points), nil
}

// fitGaussian2 computes mean and covariance of 2-D points, ridging the
// diagonal so a degenerate history still inverts.
func fitGaussian2(points [][2]float64) *gaussian2 {
	n := float64(len(points))
	var mean [2]float64
	for _, p := range points {
		mean[0] += p[0]
		mean[1] += p[1]
	}
	mean[0] /= n
	mean[1] /= n

	var c00, c01, c11 float64
	for _, p := range points {
		dx, dy := p[0]-mean[0], p[1]-mean[1]
		c00 += dx * dx
		c01 += dx * dy
		c11 += dy * dy
	}
	c00, c01, c11 = c00/n, c01/n, c11/n
	c00 += 1e-6
	c11 += 1e-6

	det := c00*c11 - c01*c01
	if det <= 0 {
		det = 1e-12
	}
	return &gaussian2{
		mean: mean,
		inv: [2][2]float64{
			{c11 / det, -c01 / det},
			{-c01 / det, c00 / det},
		},
		logDet: math.Log(det),
	}
}

// logDensity evaluates the Gaussian log-density at a point (constant
// terms included so scores are comparable to the mode's score).
func (g *gaussian2) logDensity(p [2]float64) float64 {
	dx, dy := p[0]-g.mean[0], p[1]-g.mean[1]
	quad := dx*(g.inv[0][0]*dx+g.inv[0][1]*dy) + dy*(g.inv[1][0]*dx+g.inv[1][1]*dy)
	return -0.5 * (quad + g.logDet + 2*math.Log(2*math.Pi))
}

func sumProduct(nums []int) [2]float64 {
	var sum float64
	product := 1.0
	for _, n := range nums {
		sum += float64(n)
		product *= float64(n)
	}
	return [2]float64{sum, product}
}

// randomSet draws k distinct numbers from the game's range.
func randomSet(rng *rand.Rand, game config.Game) []int {
	span := game.MaxNumber - game.MinNumber + 1
	perm := rng.Perm(span)
	nums := make([]int, game.DrawSize)
	for i := 0; i < game.DrawSize; i++ {
		nums[i] = game.MinNumber + perm[i]
	}
	sort.Ints(nums)
	return nums
}

var _ Predictor = (*DensityPredictor)(nil)
