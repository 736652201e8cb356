package agent

import (
	"context"
	"math"
	"sort"

	"github.com/lottostack/prediction-api/internal/config"
)

// featureTopN is how many hot/cold/overdue numbers the state indicators
// mark.
const featureTopN = 10

// StateSize returns the length of the state vector for a game: one-hot
// spans for hot, cold, overdue and most-recent-outcome numbers plus the
// two recent-error features. The span depends on numberRange, so the
// model must be rebuilt when the game changes.
func StateSize(game config.Game) int {
	span := game.MaxNumber - game.MinNumber + 1
	return span*4 + 2
}

// gameContext is a point-in-time snapshot of everything state building
// and reward computation need, taken once per training pass so episodes
// do not hammer the store.
type gameContext struct {
	game       config.Game
	hot        map[int]bool
	cold       map[int]bool
	overdue    map[int]bool
	recentDraw []int // sorted numbers of the most recent outcome
	points     [][2]float64
	clusters   *clustering // nil when history is too thin
	maxError   float64
}

func (a *Agent) snapshot(ctx context.Context, game config.Game) (*gameContext, error) {
	outcomes, err := a.source.ListOutcomes(ctx, game.ID, historyWindow, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}
	complete := outcomes[:0]
	for i := range outcomes {
		if outcomes[i].Complete() {
			complete = append(complete, outcomes[i])
		}
	}

	gc := &gameContext{
		game:     game,
		hot:      make(map[int]bool),
		cold:     make(map[int]bool),
		overdue:  make(map[int]bool),
		maxError: MaxAssumedError(game),
	}

	if hot, err := a.analyzer.HotNumbers(ctx, game.ID, featureTopN); err == nil {
		for _, nf := range hot {
			gc.hot[nf.Number] = true
		}
	}
	if cold, err := a.analyzer.ColdNumbers(ctx, game.ID, featureTopN); err == nil {
		for _, nf := range cold {
			gc.cold[nf.Number] = true
		}
	}
	if overdue, err := a.analyzer.OverdueNumbers(ctx, game); err == nil {
		for i, on := range overdue {
			if i >= featureTopN {
				break
			}
			gc.overdue[on.Number] = true
		}
	}

	if len(complete) > 0 {
		gc.recentDraw = complete[0].Numbers()
		sort.Ints(gc.recentDraw)
	}

	gc.points = make([][2]float64, len(complete))
	for i := range complete {
		gc.points[i] = sumProduct(complete[i].Numbers())
	}
	if len(gc.points) >= clusterMinDraws {
		gc.clusters = fitClustering(gc.points)
	}

	return gc, nil
}

// historyLen reports how many complete draws the snapshot saw.
func (gc *gameContext) historyLen() int { return len(gc.points) }

// buildState assembles the fixed-length state vector. recentError < 0
// means no recent error distance is known; both error features default to
// the neutral midpoint.
func (gc *gameContext) buildState(recentError float64) []float64 {
	span := gc.game.MaxNumber - gc.game.MinNumber + 1
	state := make([]float64, StateSize(gc.game))

	mark := func(offset int, numbers map[int]bool) {
		for n := range numbers {
			if n >= gc.game.MinNumber && n <= gc.game.MaxNumber {
				state[offset+n-gc.game.MinNumber] = 1
			}
		}
	}
	mark(0, gc.hot)
	mark(span, gc.cold)
	mark(span*2, gc.overdue)
	for _, n := range gc.recentDraw {
		if n >= gc.game.MinNumber && n <= gc.game.MaxNumber {
			state[span*3+n-gc.game.MinNumber] = 1
		}
	}

	norm := 0.5
	if recentError >= 0 && gc.maxError > 0 {
		norm = recentError / gc.maxError
		if norm > 1 {
			norm = 1
		}
	}
	state[span*4] = norm
	state[span*4+1] = 1 - norm

	return state
}

// MaxAssumedError is the per-game normalization bound for error
// distances: the largest possible sorted-pair euclidean distance,
// sqrt(k) * (max - min).
func MaxAssumedError(game config.Game) float64 {
	span := float64(game.MaxNumber - game.MinNumber)
	return span * math.Sqrt(float64(game.DrawSize))
}
