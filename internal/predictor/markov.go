package predictor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
)

// MarkovPredictor is an order-1 Markov chain over whole draws: each state
// is a sorted number set, transitions count which draw followed which in
// the historical sequence.
type MarkovPredictor struct {
	source   OutcomeSource
	analyzer *freq.Analyzer

	mu     sync.Mutex
	chains map[string]*markovChain
}

type markovChain struct {
	// transitions[state][next] is the observed count of next following
	// state. Probabilities are count/total per state.
	transitions map[string]map[string]int
	totals      map[string]int
}

// NewMarkovPredictor creates a Markov chain predictor.
func NewMarkovPredictor(source OutcomeSource, analyzer *freq.Analyzer) *MarkovPredictor {
	return &MarkovPredictor{
		source:   source,
		analyzer: analyzer,
		chains:   make(map[string]*markovChain),
	}
}

func (m *MarkovPredictor) Name() string { return ModelMarkov }

// Predict trains the chain for the game on first use, then follows the
// most likely transition out of the latest observed draw. With no usable
// transition it degrades to the most-connected state, then to the
// frequency-ranked fallback.
func (m *MarkovPredictor) Predict(ctx context.Context, game config.Game) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chain, ok := m.chains[game.ID]
	if !ok {
		var err error
		chain, err = m.train(ctx, game)
		if err != nil {
			return nil, err
		}
		m.chains[game.ID] = chain
	}

	latest, err := history(ctx, m.source, game.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return m.analyzer.TopPick(ctx, game)
	}

	current := stateKey(sortedNumbers(&latest[0]))
	if next, ok := chain.mostLikelyNext(current); ok {
		return finalize(ctx, m.analyzer, game, stateNumbers(next))
	}
	if state, ok := chain.mostConnectedState(); ok {
		return finalize(ctx, m.analyzer, game, stateNumbers(state))
	}
	return m.analyzer.TopPick(ctx, game)
}

func (m *MarkovPredictor) train(ctx context.Context, game config.Game) (*markovChain, error) {
	outcomes, err := history(ctx, m.source, game.ID, 10000)
	if err != nil {
		return nil, err
	}
	if len(outcomes) < minHistory {
		return nil, &InsufficientDataError{Model: ModelMarkov, Need: minHistory, Got: len(outcomes)}
	}
	chronological(outcomes)

	chain := &markovChain{
		transitions: make(map[string]map[string]int),
		totals:      make(map[string]int),
	}
	prev := ""
	for i := range outcomes {
		current := stateKey(sortedNumbers(&outcomes[i]))
		if prev != "" {
			if chain.transitions[prev] == nil {
				chain.transitions[prev] = make(map[string]int)
			}
			chain.transitions[prev][current]++
			chain.totals[prev]++
		}
		prev = current
	}
	return chain, nil
}

// mostLikelyNext returns the highest-probability successor of state. Ties
// break by state key for determinism.
func (c *markovChain) mostLikelyNext(state string) (string, bool) {
	next := c.transitions[state]
	if len(next) == 0 {
		return "", false
	}
	best, bestCount := "", -1
	for s, count := range next {
		if count > bestCount || (count == bestCount && s < best) {
			best, bestCount = s, count
		}
	}
	return best, true
}

// mostConnectedState returns the state with the most observed outgoing
// transitions.
func (c *markovChain) mostConnectedState() (string, bool) {
	best, bestTotal := "", -1
	for s, total := range c.totals {
		if total > bestTotal || (total == bestTotal && s < best) {
			best, bestTotal = s, total
		}
	}
	return best, best != ""
}

func stateKey(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, ",")
}

func stateNumbers(key string) []int {
	parts := strings.Split(key, ",")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		var n int
		fmt.Sscanf(p, "%d", &n)
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

var _ Predictor = (*MarkovPredictor)(nil)
