package freq

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/models"
)

type mockSource struct {
	outcomes []models.DrawOutcome
	err      error
}

func (m *mockSource) ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error) {
	return m.outcomes, m.err
}

func outcome(date string, nums ...int) models.DrawOutcome {
	return models.DrawOutcome{
		DrawDate: date,
		Number1:  models.FlexInt(nums[0]),
		Number2:  models.FlexInt(nums[1]),
		Number3:  models.FlexInt(nums[2]),
		Number4:  models.FlexInt(nums[3]),
		Number5:  models.FlexInt(nums[4]),
		Number6:  models.FlexInt(nums[5]),
	}
}

var testGame = config.Game{ID: "lotto_6_42", MinNumber: 1, MaxNumber: 42, DrawSize: 6}

func newTestAnalyzer(src OutcomeSource) *Analyzer {
	return NewAnalyzer(src, nil, 0, zap.NewNop())
}

func TestFrequencyCounts(t *testing.T) {
	src := &mockSource{outcomes: []models.DrawOutcome{
		outcome("2026-01-01", 1, 2, 3, 4, 5, 6),
		outcome("2026-01-04", 1, 2, 3, 10, 11, 12),
		outcome("2026-01-08", 1, 20, 21, 22, 23, 24),
	}}
	a := newTestAnalyzer(src)

	counts, err := a.Frequency(context.Background(), testGame.ID)
	if err != nil {
		t.Fatalf("Frequency: %v", err)
	}
	if counts[1] != 3 {
		t.Errorf("count[1] = %d, want 3", counts[1])
	}
	if counts[2] != 2 {
		t.Errorf("count[2] = %d, want 2", counts[2])
	}
	if counts[42] != 0 {
		t.Errorf("count[42] = %d, want 0", counts[42])
	}
}

func TestHotNumbersOrdering(t *testing.T) {
	src := &mockSource{outcomes: []models.DrawOutcome{
		outcome("2026-01-01", 1, 2, 3, 4, 5, 6),
		outcome("2026-01-04", 1, 2, 3, 10, 11, 12),
		outcome("2026-01-08", 1, 2, 21, 22, 23, 24),
	}}
	a := newTestAnalyzer(src)

	hot, err := a.HotNumbers(context.Background(), testGame.ID, 3)
	if err != nil {
		t.Fatalf("HotNumbers: %v", err)
	}
	if len(hot) != 3 {
		t.Fatalf("len = %d, want 3", len(hot))
	}
	if hot[0].Number != 1 || hot[0].Frequency != 3 {
		t.Errorf("hot[0] = %+v, want number 1 freq 3", hot[0])
	}
	if hot[1].Number != 2 || hot[1].Frequency != 3 {
		t.Errorf("hot[1] = %+v, want number 2 freq 3", hot[1])
	}
	// 3 beats the single-occurrence numbers on frequency.
	if hot[2].Number != 3 || hot[2].Frequency != 2 {
		t.Errorf("hot[2] = %+v, want number 3 freq 2", hot[2])
	}
}

func TestOverdueNeverSeenGetsFullSpan(t *testing.T) {
	src := &mockSource{outcomes: []models.DrawOutcome{
		outcome("2026-01-11", 1, 2, 3, 4, 5, 6),
		outcome("2026-01-01", 7, 8, 9, 10, 11, 12),
	}}
	a := newTestAnalyzer(src)

	overdue, err := a.OverdueNumbers(context.Background(), testGame)
	if err != nil {
		t.Fatalf("OverdueNumbers: %v", err)
	}

	byNumber := make(map[int]int, len(overdue))
	for _, o := range overdue {
		byNumber[o.Number] = o.DaysSince
	}

	// 42 never appeared: full ten-day observed span.
	if byNumber[42] != 10 {
		t.Errorf("days[42] = %d, want 10", byNumber[42])
	}
	// 7 last appeared on the oldest draw.
	if byNumber[7] != 10 {
		t.Errorf("days[7] = %d, want 10", byNumber[7])
	}
	// 1 appeared on the latest draw.
	if byNumber[1] != 0 {
		t.Errorf("days[1] = %d, want 0", byNumber[1])
	}
}

func TestTopPickFillsUnusedNumbers(t *testing.T) {
	src := &mockSource{outcomes: []models.DrawOutcome{
		outcome("2026-01-01", 40, 41, 42, 40, 41, 42),
	}}
	a := newTestAnalyzer(src)

	nums, err := a.TopPick(context.Background(), testGame)
	if err != nil {
		t.Fatalf("TopPick: %v", err)
	}
	if err := models.ValidateNumbers(nums, testGame.MinNumber, testGame.MaxNumber, testGame.DrawSize); err != nil {
		t.Fatalf("TopPick invalid: %v", err)
	}
	// Only three distinct numbers drawn; the rest fill from the bottom.
	want := []int{1, 2, 3, 40, 41, 42}
	for i := range want {
		if nums[i] != want[i] {
			t.Fatalf("nums = %v, want %v", nums, want)
		}
	}
}

func TestTopPickEmptyHistory(t *testing.T) {
	a := newTestAnalyzer(&mockSource{})

	nums, err := a.TopPick(context.Background(), testGame)
	if err != nil {
		t.Fatalf("TopPick: %v", err)
	}
	want := []int{1, 2, 3, 4, 5, 6}
	for i := range want {
		if nums[i] != want[i] {
			t.Fatalf("nums = %v, want %v", nums, want)
		}
	}
}
