package agent

import (
	"github.com/lottostack/prediction-api/internal/distance"
)

// Reward weights and bonuses. The accuracy component dominates; the
// structural and frequency components nudge the agent toward sets that
// resemble historical draws.
const (
	accuracyScale = 100.0
	accuracySlope = 10.0
	matchBonus    = 15.0
	clusterScale  = 20.0
	hotBonus      = 5.0
	overdueBonus  = 3.0
	coldPenalty   = 2.0
)

// reward scores a candidate set against the snapshot's most recent
// outcome. errDistance and matched are the sorted-pair euclidean
// distance and exact-match count against that outcome; callers that
// already have both persisted pass them through instead of recomputing.
func (gc *gameContext) reward(candidate []int, errDistance float64, matched int) float64 {
	total := gc.accuracyComponent(errDistance, matched)
	total += gc.clusters.share(sumProduct(candidate)) * clusterScale
	total += gc.frequencyComponent(candidate)
	return total
}

// rewardAgainstRecent computes the full reward for a candidate against
// the snapshot's most recent draw, deriving the distance and match count
// itself. Used inside training episodes.
func (gc *gameContext) rewardAgainstRecent(candidate []int) float64 {
	if len(gc.recentDraw) == 0 {
		return 0
	}
	bundle := distance.Calculate(candidate, gc.recentDraw)
	return gc.reward(candidate, bundle.Euclidean, bundle.SetIntersection)
}

func (gc *gameContext) accuracyComponent(errDistance float64, matched int) float64 {
	norm := 1.0
	if gc.maxError > 0 {
		norm = errDistance / gc.maxError
	}
	return accuracyScale/(1+accuracySlope*norm) + matchBonus*float64(matched)
}

func (gc *gameContext) frequencyComponent(candidate []int) float64 {
	total := 0.0
	for _, n := range candidate {
		if gc.hot[n] {
			total += hotBonus
		}
		if gc.overdue[n] {
			total += overdueBonus
		}
		if gc.cold[n] {
			total -= coldPenalty
		}
	}
	return total
}
