// Package distance implements the metric suite used to score a predicted
// number set against an observed draw. All six metrics are computed
// together as one bundle; partial computation is not a valid state.
package distance

import (
	"math"
	"math/big"
	"sort"

	"github.com/lottostack/prediction-api/internal/models"
)

// Calculate computes the full metric bundle for a predicted and an actual
// number set of equal length. Euclidean and Manhattan operate on the
// position-paired sorted vectors; Hamming and SetIntersection on the value
// sets regardless of position.
func Calculate(predicted, actual []int) models.MetricBundle {
	return models.MetricBundle{
		Euclidean:         Euclidean(predicted, actual),
		Manhattan:         Manhattan(predicted, actual),
		Hamming:           Hamming(predicted, actual),
		SetIntersection:   SetIntersection(predicted, actual),
		SumDifference:     SumDifference(predicted, actual),
		ProductDifference: ProductDifference(predicted, actual),
	}
}

func sortedCopy(nums []int) []int {
	out := make([]int, len(nums))
	copy(out, nums)
	sort.Ints(out)
	return out
}

// Euclidean returns sqrt(sum((p_i - a_i)^2)) over the sorted pairing.
func Euclidean(predicted, actual []int) float64 {
	p, a := sortedCopy(predicted), sortedCopy(actual)
	var sum float64
	for i := range p {
		d := float64(p[i] - a[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Manhattan returns sum(|p_i - a_i|) over the sorted pairing.
func Manhattan(predicted, actual []int) float64 {
	p, a := sortedCopy(predicted), sortedCopy(actual)
	var sum float64
	for i := range p {
		sum += math.Abs(float64(p[i] - a[i]))
	}
	return sum
}

// Hamming returns the size of the symmetric difference of the two value
// sets: numbers present in exactly one of them.
func Hamming(predicted, actual []int) int {
	pset := toSet(predicted)
	aset := toSet(actual)
	count := 0
	for n := range pset {
		if !aset[n] {
			count++
		}
	}
	for n := range aset {
		if !pset[n] {
			count++
		}
	}
	return count
}

// SetIntersection counts exact-number matches regardless of position.
func SetIntersection(predicted, actual []int) int {
	pset := toSet(predicted)
	count := 0
	for _, n := range actual {
		if pset[n] {
			count++
			delete(pset, n) // actual sets are distinct, but don't assume
		}
	}
	return count
}

// SumDifference returns |sum(P) - sum(A)|.
func SumDifference(predicted, actual []int) float64 {
	var ps, as int
	for _, n := range predicted {
		ps += n
	}
	for _, n := range actual {
		as += n
	}
	return math.Abs(float64(ps - as))
}

// ProductDifference returns |prod(P) - prod(A)|. Products are taken in
// arbitrary precision so larger ranges or draw sizes cannot overflow; the
// result saturates at MaxFloat64.
func ProductDifference(predicted, actual []int) float64 {
	diff := new(big.Int).Sub(product(predicted), product(actual))
	diff.Abs(diff)
	f, _ := new(big.Float).SetInt(diff).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}

func product(nums []int) *big.Int {
	p := big.NewInt(1)
	for _, n := range nums {
		p.Mul(p, big.NewInt(int64(n)))
	}
	return p
}

func toSet(nums []int) map[int]bool {
	set := make(map[int]bool, len(nums))
	for _, n := range nums {
		set[n] = true
	}
	return set
}
