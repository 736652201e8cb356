package models

import (
	"fmt"
	"time"
)

// DrawOutcome is one observed lottery draw as stored in the external
// document store. Created by the acquisition layer; read-only here.
// Numbers arrive flattened (number_1..number_6) to stay wire-compatible
// with the historical collections.
type DrawOutcome struct {
	ID         string  `json:"id,omitempty"`
	DrawDate   string  `json:"draw_date"`
	DrawLabel  string  `json:"draw_number,omitempty"`
	Number1    FlexInt `json:"number_1"`
	Number2    FlexInt `json:"number_2"`
	Number3    FlexInt `json:"number_3"`
	Number4    FlexInt `json:"number_4"`
	Number5    FlexInt `json:"number_5"`
	Number6    FlexInt `json:"number_6"`
	Jackpot    float64 `json:"jackpot,omitempty"`
	Winners    int     `json:"winners,omitempty"`
	RecordedAt string  `json:"created_at,omitempty"`
}

// Numbers returns the drawn numbers in stored order.
func (o *DrawOutcome) Numbers() []int {
	return []int{int(o.Number1), int(o.Number2), int(o.Number3), int(o.Number4), int(o.Number5), int(o.Number6)}
}

// Complete reports whether all six numbers are populated and positive.
// Outcomes scraped mid-update can arrive with empty slots.
func (o *DrawOutcome) Complete() bool {
	for _, n := range o.Numbers() {
		if n <= 0 {
			return false
		}
	}
	return true
}

// Prediction is one model's number set for a target draw date. Records are
// append-only: every generation cycle creates a new one.
type Prediction struct {
	ID               string  `json:"id,omitempty"`
	TargetDrawDate   string  `json:"target_draw_date"`
	ModelType        string  `json:"model_type"`
	PredictedNumber1 int     `json:"predicted_number_1"`
	PredictedNumber2 int     `json:"predicted_number_2"`
	PredictedNumber3 int     `json:"predicted_number_3"`
	PredictedNumber4 int     `json:"predicted_number_4"`
	PredictedNumber5 int     `json:"predicted_number_5"`
	PredictedNumber6 int     `json:"predicted_number_6"`
	PrevPrediction1  []int   `json:"previous_prediction_1,omitempty"`
	PrevPrediction2  []int   `json:"previous_prediction_2,omitempty"`
	PrevPrediction3  []int   `json:"previous_prediction_3,omitempty"`
	PrevPrediction4  []int   `json:"previous_prediction_4,omitempty"`
	PrevPrediction5  []int   `json:"previous_prediction_5,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// Numbers returns the predicted numbers in stored order.
func (p *Prediction) Numbers() []int {
	return []int{p.PredictedNumber1, p.PredictedNumber2, p.PredictedNumber3, p.PredictedNumber4, p.PredictedNumber5, p.PredictedNumber6}
}

// SetNumbers writes a six-number set into the flattened slots.
func (p *Prediction) SetNumbers(nums []int) error {
	if len(nums) != 6 {
		return fmt.Errorf("expected 6 numbers, got %d", len(nums))
	}
	p.PredictedNumber1 = nums[0]
	p.PredictedNumber2 = nums[1]
	p.PredictedNumber3 = nums[2]
	p.PredictedNumber4 = nums[3]
	p.PredictedNumber5 = nums[4]
	p.PredictedNumber6 = nums[5]
	return nil
}

// PriorPredictions returns the up-to-5 prior same-model sets, most recent
// first. Nil slots mean the model had fewer than 5 prior runs.
func (p *Prediction) PriorPredictions() [][]int {
	return [][]int{p.PrevPrediction1, p.PrevPrediction2, p.PrevPrediction3, p.PrevPrediction4, p.PrevPrediction5}
}

// SetPriorPredictions fills the five prior-prediction slots.
func (p *Prediction) SetPriorPredictions(prev [][]int) {
	slots := []*[]int{&p.PrevPrediction1, &p.PrevPrediction2, &p.PrevPrediction3, &p.PrevPrediction4, &p.PrevPrediction5}
	for i, slot := range slots {
		if i < len(prev) {
			*slot = prev[i]
		} else {
			*slot = nil
		}
	}
}

// Complete reports whether all six predicted numbers are populated and
// positive.
func (p *Prediction) Complete() bool {
	for _, n := range p.Numbers() {
		if n <= 0 {
			return false
		}
	}
	return true
}

// AccuracyRecord scores one (prediction, outcome) pair. Unique per pair;
// created only by the reconciliation engine and never mutated.
type AccuracyRecord struct {
	ID              string       `json:"id,omitempty"`
	PredictionID    string       `json:"prediction_id"`
	OutcomeID       string       `json:"result_id"`
	ErrorDistance   float64      `json:"error_distance"`
	NumbersMatched  int          `json:"numbers_matched"`
	DistanceMetrics MetricBundle `json:"distance_metrics"`
	CalculatedAt    string       `json:"calculated_at"`
}

// MetricBundle holds the six distance metrics that are always computed
// together. errorDistance == Euclidean, numbersMatched == SetIntersection.
type MetricBundle struct {
	Euclidean         float64 `json:"euclidean_distance"`
	Manhattan         float64 `json:"manhattan_distance"`
	Hamming           int     `json:"hamming_distance"`
	SetIntersection   int     `json:"set_intersection"`
	SumDifference     float64 `json:"sum_difference"`
	ProductDifference float64 `json:"product_difference"`
}

// MalformedRecordError marks a stored record whose number set cannot be
// scored. Reconciliation logs and skips these.
type MalformedRecordError struct {
	Kind   string
	ID     string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s %s: %s", e.Kind, e.ID, e.Reason)
}

// ValidateNumbers checks a number set against a game's range and
// uniqueness invariant: exactly k distinct integers within [min, max].
func ValidateNumbers(nums []int, min, max, k int) error {
	if len(nums) != k {
		return fmt.Errorf("expected %d numbers, got %d", k, len(nums))
	}
	seen := make(map[int]bool, k)
	for _, n := range nums {
		if n < min || n > max {
			return fmt.Errorf("number %d out of range [%d,%d]", n, min, max)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// Timestamp returns the current time in the ISO form the store collections
// use for created_at / calculated_at fields.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
