// Package freq implements frequency analysis over historical draw
// outcomes: per-number occurrence counts and the hot/cold/overdue views
// the predictors and the stats API are built on.
package freq

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/models"
)

// historyLimit bounds how much outcome history one analysis pulls.
const historyLimit = 10000

// OutcomeSource provides stored draw outcomes for a game.
type OutcomeSource interface {
	ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error)
}

// RedisClient is the slice of go-redis used for the frequency cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Analyzer computes frequency statistics, optionally caching per-game
// counts in Redis. A nil Redis client disables the cache; correctness
// never depends on it.
type Analyzer struct {
	source   OutcomeSource
	redis    RedisClient
	cacheTTL time.Duration
	logger   *zap.SugaredLogger
}

// NewAnalyzer creates a frequency analyzer. rdb may be nil.
func NewAnalyzer(source OutcomeSource, rdb RedisClient, cacheTTL time.Duration, logger *zap.Logger) *Analyzer {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Analyzer{
		source:   source,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   logger.Sugar(),
	}
}

// Frequency returns the occurrence count of every drawn number for a
// game. Numbers never drawn are absent from the map.
func (a *Analyzer) Frequency(ctx context.Context, gameID string) (map[int]int, error) {
	if cached, ok := a.cachedFrequency(ctx, gameID); ok {
		return cached, nil
	}

	outcomes, err := a.source.ListOutcomes(ctx, gameID, historyLimit, 0, "")
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int)
	for i := range outcomes {
		for _, n := range outcomes[i].Numbers() {
			if n > 0 {
				counts[n]++
			}
		}
	}

	a.storeFrequency(ctx, gameID, counts)
	return counts, nil
}

// HotNumbers returns the topN most frequent numbers, frequency descending,
// ties broken by numeric ascending order.
func (a *Analyzer) HotNumbers(ctx context.Context, gameID string, topN int) ([]models.NumberFrequency, error) {
	ranked, err := a.ranked(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Frequency != ranked[j].Frequency {
			return ranked[i].Frequency > ranked[j].Frequency
		}
		return ranked[i].Number < ranked[j].Number
	})
	if topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

// ColdNumbers returns the bottomN least frequent drawn numbers, frequency
// ascending.
func (a *Analyzer) ColdNumbers(ctx context.Context, gameID string, bottomN int) ([]models.NumberFrequency, error) {
	ranked, err := a.ranked(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Frequency != ranked[j].Frequency {
			return ranked[i].Frequency < ranked[j].Frequency
		}
		return ranked[i].Number < ranked[j].Number
	})
	if bottomN < len(ranked) {
		ranked = ranked[:bottomN]
	}
	return ranked, nil
}

// OverdueNumbers returns every number in the game's range paired with the
// days since it last appeared, longest first. Numbers never seen in the
// history are assigned the full observed span.
func (a *Analyzer) OverdueNumbers(ctx context.Context, game config.Game) ([]models.OverdueNumber, error) {
	outcomes, err := a.source.ListOutcomes(ctx, game.ID, historyLimit, 0, "draw_date.desc")
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, nil
	}

	latest, ok := models.ParseDrawDate(outcomes[0].DrawDate)
	if !ok {
		return nil, nil
	}
	oldest := latest
	if t, ok := models.ParseDrawDate(outcomes[len(outcomes)-1].DrawDate); ok {
		oldest = t
	}
	span := int(latest.Sub(oldest).Hours() / 24)

	lastSeen := make(map[int]time.Time)
	for i := range outcomes {
		drawDate, ok := models.ParseDrawDate(outcomes[i].DrawDate)
		if !ok {
			continue
		}
		for _, n := range outcomes[i].Numbers() {
			if n > 0 {
				if _, seen := lastSeen[n]; !seen {
					lastSeen[n] = drawDate
				}
			}
		}
	}

	overdue := make([]models.OverdueNumber, 0, game.MaxNumber-game.MinNumber+1)
	for n := game.MinNumber; n <= game.MaxNumber; n++ {
		days := span
		if seen, ok := lastSeen[n]; ok {
			days = int(latest.Sub(seen).Hours() / 24)
		}
		overdue = append(overdue, models.OverdueNumber{Number: n, DaysSince: days})
	}

	sort.Slice(overdue, func(i, j int) bool {
		if overdue[i].DaysSince != overdue[j].DaysSince {
			return overdue[i].DaysSince > overdue[j].DaysSince
		}
		return overdue[i].Number < overdue[j].Number
	})
	return overdue, nil
}

// TopPick returns the k most frequent numbers in ascending numeric order:
// the deterministic fallback every non-agent predictor degrades to when
// its primary inference is inconclusive. Ties break by numeric ascending
// order; if fewer than k numbers have ever been drawn, the remaining slots
// fill with the lowest unused in-range numbers.
func (a *Analyzer) TopPick(ctx context.Context, game config.Game) ([]int, error) {
	hot, err := a.HotNumbers(ctx, game.ID, game.DrawSize)
	if err != nil {
		return nil, err
	}

	picked := make(map[int]bool, game.DrawSize)
	nums := make([]int, 0, game.DrawSize)
	for _, nf := range hot {
		nums = append(nums, nf.Number)
		picked[nf.Number] = true
	}
	for n := game.MinNumber; n <= game.MaxNumber && len(nums) < game.DrawSize; n++ {
		if !picked[n] {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (a *Analyzer) ranked(ctx context.Context, gameID string) ([]models.NumberFrequency, error) {
	counts, err := a.Frequency(ctx, gameID)
	if err != nil {
		return nil, err
	}
	ranked := make([]models.NumberFrequency, 0, len(counts))
	for n, c := range counts {
		ranked = append(ranked, models.NumberFrequency{Number: n, Frequency: c})
	}
	return ranked, nil
}

func cacheKey(gameID string) string {
	return "freq:" + gameID
}

func (a *Analyzer) cachedFrequency(ctx context.Context, gameID string) (map[int]int, bool) {
	if a.redis == nil {
		return nil, false
	}
	data, err := a.redis.Get(ctx, cacheKey(gameID)).Result()
	if err != nil {
		if err != redis.Nil {
			a.logger.Warnw("Frequency cache read failed", "game", gameID, "error", err)
		}
		return nil, false
	}
	var counts map[int]int
	if err := json.Unmarshal([]byte(data), &counts); err != nil {
		a.logger.Warnw("Frequency cache corrupt, recomputing", "game", gameID, "error", err)
		return nil, false
	}
	return counts, true
}

func (a *Analyzer) storeFrequency(ctx context.Context, gameID string, counts map[int]int) {
	if a.redis == nil {
		return
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := a.redis.Set(ctx, cacheKey(gameID), data, a.cacheTTL).Err(); err != nil {
		a.logger.Warnw("Frequency cache write failed", "game", gameID, "error", err)
	}
}
