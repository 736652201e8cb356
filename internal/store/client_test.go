package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lottostack/prediction-api/internal/models"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:    url,
		AppID:      "test-app",
		AdminToken: "secret-token",
	})
}

func TestListOutcomes(t *testing.T) {
	var gotPath, gotAuth, gotOrder string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotOrder = r.URL.Query().Get("order_by")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"records": []map[string]interface{}{
				{
					"id":        "r1",
					"draw_date": "2026-02-01",
					"number_1":  "5",
					"number_2":  12,
					"number_3":  19.0,
					"number_4":  27,
					"number_5":  33,
					"number_6":  41,
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	outcomes, err := client.ListOutcomes(context.Background(), "lotto_6_42", 10, 0, "draw_date.desc")
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}

	if gotPath != "/v1/apps/test-app/collections/lotto_6_42_results" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth = %s", gotAuth)
	}
	if gotOrder != "draw_date.desc" {
		t.Errorf("order_by = %s", gotOrder)
	}
	if len(outcomes) != 1 {
		t.Fatalf("len = %d, want 1", len(outcomes))
	}
	// Mixed numeric encodings all decode.
	want := []int{5, 12, 19, 27, 33, 41}
	for i, n := range outcomes[0].Numbers() {
		if n != want[i] {
			t.Errorf("number %d = %d, want %d", i+1, n, want[i])
		}
	}
}

func TestListEmptyEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	outcomes, err := client.ListOutcomes(context.Background(), "lotto_6_42", 10, 0, "")
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("len = %d, want 0", len(outcomes))
	}
}

func TestCreatePredictionAssignsID(t *testing.T) {
	var received models.Prediction
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	p := &models.Prediction{ModelType: "MarkovChain", TargetDrawDate: "2026-02-01"}
	stored, err := client.CreatePrediction(context.Background(), "lotto_6_42", p)
	if err != nil {
		t.Fatalf("CreatePrediction: %v", err)
	}

	if stored.ID == "" {
		t.Error("stored copy has no ID")
	}
	if p.ID != "" {
		t.Error("input was mutated")
	}
	if received.ID != stored.ID {
		t.Errorf("wire ID %q != returned ID %q", received.ID, stored.ID)
	}
}

func TestCreateAccuracyRecordConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	record := &models.AccuracyRecord{PredictionID: "p1", OutcomeID: "r1"}
	_, err := client.CreateAccuracyRecord(context.Background(), "lotto_6_42", record)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequestError", err)
	}
	if reqErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", reqErr.Status)
	}
}

func TestListServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ListAccuracyRecords(context.Background(), "lotto_6_42")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequestError", err)
	}
	if reqErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", reqErr.Status)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/apps/test-app/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
