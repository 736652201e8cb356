package agent

import (
	"math/rand"
	"sort"

	"github.com/lottostack/prediction-api/internal/config"
)

// actionSpaceSize is the size of the discrete action space. Each action
// index maps deterministically to one candidate number set.
const actionSpaceSize = 1000

// decodeAction maps an action index to a sorted set of DrawSize distinct
// numbers. The mapping seeds a generator with the action index, so the
// same action always yields the same set for a given game, runs
// included. Neighbouring actions do not produce similar sets; the value
// function has to learn the mapping as-is.
func decodeAction(action int, game config.Game) []int {
	rng := rand.New(rand.NewSource(int64(action)))
	span := game.MaxNumber - game.MinNumber + 1
	perm := rng.Perm(span)
	numbers := make([]int, game.DrawSize)
	for i := 0; i < game.DrawSize; i++ {
		numbers[i] = game.MinNumber + perm[i]
	}
	sort.Ints(numbers)
	return numbers
}

// bestAction returns the argmax over a Q-value vector, lowest index on
// ties.
func bestAction(q []float64) int {
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return best
}
