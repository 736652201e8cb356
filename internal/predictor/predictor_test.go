package predictor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
	"github.com/lottostack/prediction-api/internal/models"
)

type mockSource struct {
	outcomes []models.DrawOutcome
}

func (m *mockSource) ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error) {
	if limit > len(m.outcomes) {
		limit = len(m.outcomes)
	}
	return m.outcomes[:limit], nil
}

var testGame = config.Game{ID: "lotto_6_42", MinNumber: 1, MaxNumber: 42, DrawSize: 6}

// drawHistory builds n deterministic pseudo-random complete draws, most
// recent first.
func drawHistory(n int) []models.DrawOutcome {
	rng := rand.New(rand.NewSource(7))
	outcomes := make([]models.DrawOutcome, 0, n)
	for i := 0; i < n; i++ {
		perm := rng.Perm(testGame.MaxNumber)
		outcomes = append(outcomes, models.DrawOutcome{
			ID:       fmt.Sprintf("draw-%03d", n-i),
			DrawDate: fmt.Sprintf("2025-%02d-%02d", 1+i/28%12, 1+i%28),
			Number1:  models.FlexInt(perm[0] + 1),
			Number2:  models.FlexInt(perm[1] + 1),
			Number3:  models.FlexInt(perm[2] + 1),
			Number4:  models.FlexInt(perm[3] + 1),
			Number5:  models.FlexInt(perm[4] + 1),
			Number6:  models.FlexInt(perm[5] + 1),
		})
	}
	return outcomes
}

func testPredictors(src OutcomeSource) []Predictor {
	analyzer := freq.NewAnalyzer(src, nil, 0, zap.NewNop())
	return []Predictor{
		NewBoostedPredictor(src, analyzer),
		NewForestPredictor(src, analyzer),
		NewMarkovPredictor(src, analyzer),
		NewDensityPredictor(src, analyzer),
	}
}

func TestPredictorsReturnValidSets(t *testing.T) {
	src := &mockSource{outcomes: drawHistory(60)}

	for _, p := range testPredictors(src) {
		t.Run(p.Name(), func(t *testing.T) {
			nums, err := p.Predict(context.Background(), testGame)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if err := models.ValidateNumbers(nums, testGame.MinNumber, testGame.MaxNumber, testGame.DrawSize); err != nil {
				t.Errorf("invalid set %v: %v", nums, err)
			}
			for i := 1; i < len(nums); i++ {
				if nums[i-1] >= nums[i] {
					t.Errorf("set not ascending: %v", nums)
					break
				}
			}
		})
	}
}

func TestPredictorsRejectThinHistory(t *testing.T) {
	src := &mockSource{outcomes: drawHistory(minHistory - 1)}

	for _, p := range testPredictors(src) {
		t.Run(p.Name(), func(t *testing.T) {
			_, err := p.Predict(context.Background(), testGame)
			var insufficient *InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Fatalf("err = %v, want InsufficientDataError", err)
			}
			if insufficient.Got != minHistory-1 {
				t.Errorf("Got = %d, want %d", insufficient.Got, minHistory-1)
			}
		})
	}
}

func TestPredictorsDeterministicForSameHistory(t *testing.T) {
	src := &mockSource{outcomes: drawHistory(60)}
	analyzer := freq.NewAnalyzer(src, nil, 0, zap.NewNop())

	// The density model samples candidates, so only the deterministic
	// three are checked here.
	deterministic := []Predictor{
		NewBoostedPredictor(src, analyzer),
		NewForestPredictor(src, analyzer),
		NewMarkovPredictor(src, analyzer),
	}
	for _, p := range deterministic {
		t.Run(p.Name(), func(t *testing.T) {
			first, err := p.Predict(context.Background(), testGame)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			second, err := p.Predict(context.Background(), testGame)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			for i := range first {
				if first[i] != second[i] {
					t.Fatalf("prediction changed between runs: %v vs %v", first, second)
				}
			}
		})
	}
}

func TestPredictorsIsolatePerGame(t *testing.T) {
	src := &mockSource{outcomes: drawHistory(60)}
	other := config.Game{ID: "mega_lotto_6_45", MinNumber: 1, MaxNumber: 45, DrawSize: 6}

	for _, p := range testPredictors(src) {
		t.Run(p.Name(), func(t *testing.T) {
			if _, err := p.Predict(context.Background(), testGame); err != nil {
				t.Fatalf("first game: %v", err)
			}
			nums, err := p.Predict(context.Background(), other)
			if err != nil {
				t.Fatalf("second game: %v", err)
			}
			if err := models.ValidateNumbers(nums, other.MinNumber, other.MaxNumber, other.DrawSize); err != nil {
				t.Errorf("invalid set for second game %v: %v", nums, err)
			}
		})
	}
}
