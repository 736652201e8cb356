package logic

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/lottostack/prediction-api/internal/agent"
	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/models"
	"github.com/lottostack/prediction-api/internal/store"
)

// mockStore is an in-memory Store with the same conflict semantics as
// the real service: duplicate (prediction_id, result_id) pairs are
// rejected with a 409.
type mockStore struct {
	mu          sync.Mutex
	outcomes    map[string][]models.DrawOutcome
	predictions map[string][]models.Prediction
	accuracy    map[string][]models.AccuracyRecord

	failListOutcomes map[string]error
	failCreate       error
	createCalls      int
}

func newMockStore() *mockStore {
	return &mockStore{
		outcomes:         make(map[string][]models.DrawOutcome),
		predictions:      make(map[string][]models.Prediction),
		accuracy:         make(map[string][]models.AccuracyRecord),
		failListOutcomes: make(map[string]error),
	}
}

func (m *mockStore) ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failListOutcomes[gameID]; err != nil {
		return nil, err
	}
	return append([]models.DrawOutcome(nil), m.outcomes[gameID]...), nil
}

func (m *mockStore) ListPredictions(ctx context.Context, gameID string, limit int) ([]models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Prediction(nil), m.predictions[gameID]...), nil
}

func (m *mockStore) ListAccuracyRecords(ctx context.Context, gameID string) ([]models.AccuracyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AccuracyRecord(nil), m.accuracy[gameID]...), nil
}

func (m *mockStore) CreatePrediction(ctx context.Context, gameID string, p *models.Prediction) (*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	stored := *p
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("pred-%d", len(m.predictions[gameID])+1)
	}
	m.predictions[gameID] = append(m.predictions[gameID], stored)
	return &stored, nil
}

func (m *mockStore) CreateAccuracyRecord(ctx context.Context, gameID string, r *models.AccuracyRecord) (*models.AccuracyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	for i := range m.accuracy[gameID] {
		existing := &m.accuracy[gameID][i]
		if existing.PredictionID == r.PredictionID && existing.OutcomeID == r.OutcomeID {
			return nil, &store.RequestError{Op: "create", Status: http.StatusConflict}
		}
	}
	stored := *r
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("acc-%d", len(m.accuracy[gameID])+1)
	}
	m.accuracy[gameID] = append(m.accuracy[gameID], stored)
	return &stored, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }

func (m *mockStore) addOutcome(gameID, id, date string, nums ...int) {
	m.outcomes[gameID] = append(m.outcomes[gameID], models.DrawOutcome{
		ID:       id,
		DrawDate: date,
		Number1:  models.FlexInt(nums[0]),
		Number2:  models.FlexInt(nums[1]),
		Number3:  models.FlexInt(nums[2]),
		Number4:  models.FlexInt(nums[3]),
		Number5:  models.FlexInt(nums[4]),
		Number6:  models.FlexInt(nums[5]),
	})
}

func (m *mockStore) addPrediction(gameID, id, model, targetDate string, nums ...int) {
	p := models.Prediction{
		ID:             id,
		ModelType:      model,
		TargetDrawDate: targetDate,
		CreatedAt:      "2026-01-01T00:00:00Z",
	}
	p.SetNumbers(nums)
	m.predictions[gameID] = append(m.predictions[gameID], p)
}

// mockLearner records continual learning calls.
type mockLearner struct {
	mu      sync.Mutex
	calls   int
	samples []agent.AccuracySample
	err     error
}

func (l *mockLearner) LearnFromAccuracy(ctx context.Context, game config.Game, samples []agent.AccuracySample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.samples = samples
	return l.err
}
