package predictor

import (
	"math"
	"math/rand"
	"sort"
)

// Minimal regression-tree machinery shared by the boosted and forest
// models. Both predict, per candidate number, the likelihood of that
// number appearing in the next draw; only the ensembling differs.

// sample is one training row: a feature vector and a {0,1} label per
// candidate number (did the number appear in the draw that followed).
type sample struct {
	features []float64
	label    float64
}

// stump is a depth-1 regression tree.
type stump struct {
	feature   int
	threshold float64
	left      float64
	right     float64
}

func (s *stump) eval(features []float64) float64 {
	if features[s.feature] <= s.threshold {
		return s.left
	}
	return s.right
}

// fitStump finds the single split minimizing squared error against the
// residuals, scanning a random subset of features.
func fitStump(samples []sample, residuals []float64, rng *rand.Rand, featureFrac float64) stump {
	nFeatures := len(samples[0].features)
	nTry := int(math.Ceil(float64(nFeatures) * featureFrac))
	if nTry < 1 {
		nTry = 1
	}

	mean := meanOf(residuals)
	best := stump{feature: 0, threshold: math.Inf(1), left: mean, right: mean}
	bestErr := math.Inf(1)

	perm := rng.Perm(nFeatures)
	for _, f := range perm[:nTry] {
		thresholds := candidateThresholds(samples, f)
		for _, th := range thresholds {
			var lSum, rSum float64
			var lN, rN int
			for i := range samples {
				if samples[i].features[f] <= th {
					lSum += residuals[i]
					lN++
				} else {
					rSum += residuals[i]
					rN++
				}
			}
			if lN == 0 || rN == 0 {
				continue
			}
			lMean, rMean := lSum/float64(lN), rSum/float64(rN)
			var sse float64
			for i := range samples {
				pred := rMean
				if samples[i].features[f] <= th {
					pred = lMean
				}
				d := residuals[i] - pred
				sse += d * d
			}
			if sse < bestErr {
				bestErr = sse
				best = stump{feature: f, threshold: th, left: lMean, right: rMean}
			}
		}
	}
	return best
}

// candidateThresholds returns midpoints between distinct sorted values of
// one feature, thinned to at most 8 split points.
func candidateThresholds(samples []sample, feature int) []float64 {
	values := make([]float64, len(samples))
	for i := range samples {
		values[i] = samples[i].features[feature]
	}
	sort.Float64s(values)

	var mids []float64
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			mids = append(mids, (values[i]+values[i-1])/2)
		}
	}
	if len(mids) > 8 {
		step := len(mids) / 8
		thinned := make([]float64, 0, 8)
		for i := 0; i < len(mids); i += step {
			thinned = append(thinned, mids[i])
		}
		mids = thinned
	}
	return mids
}

// treeNode is a recursive regression tree used by the forest model.
type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) eval(features []float64) float64 {
	for !n.leaf {
		if features[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// buildTree grows a regression tree to maxDepth using the stump fitter at
// each node, splitting on label residuals.
func buildTree(samples []sample, depth, maxDepth int, rng *rand.Rand, featureFrac float64) *treeNode {
	labels := make([]float64, len(samples))
	for i := range samples {
		labels[i] = samples[i].label
	}
	mean := meanOf(labels)

	if depth >= maxDepth || len(samples) < 4 || pure(labels) {
		return &treeNode{leaf: true, value: mean}
	}

	split := fitStump(samples, labels, rng, featureFrac)
	var left, right []sample
	for i := range samples {
		if samples[i].features[split.feature] <= split.threshold {
			left = append(left, samples[i])
		} else {
			right = append(right, samples[i])
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, value: mean}
	}

	return &treeNode{
		feature:   split.feature,
		threshold: split.threshold,
		left:      buildTree(left, depth+1, maxDepth, rng, featureFrac),
		right:     buildTree(right, depth+1, maxDepth, rng, featureFrac),
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func pure(labels []float64) bool {
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[0] {
			return false
		}
	}
	return true
}

// topK selects the k highest-scoring numbers, score descending, ties by
// numeric ascending order. scores is indexed by number-minNumber.
func topK(scores []float64, k, minNumber int) []int {
	type ranked struct {
		number int
		score  float64
	}
	all := make([]ranked, len(scores))
	for i, s := range scores {
		all[i] = ranked{number: minNumber + i, score: s}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].number < all[j].number
	})
	nums := make([]int, k)
	for i := 0; i < k; i++ {
		nums[i] = all[i].number
	}
	sort.Ints(nums)
	return nums
}
