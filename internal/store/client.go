// Package store is the client for the external document/record service
// that owns all persistence. Every entity lives in a game-scoped
// collection ({game}_results, {game}_predictions,
// {game}_prediction_accuracy); the service guarantees per-record atomic
// creation and enforces the (prediction_id, result_id) uniqueness
// constraint on accuracy records.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lottostack/prediction-api/internal/models"
)

// Client provides access to the document store API.
type Client struct {
	baseURL    string
	appID      string
	adminToken string
	httpClient *http.Client
}

// Config configures a store client.
type Config struct {
	BaseURL    string
	AppID      string
	AdminToken string
	Timeout    time.Duration
}

// NewClient creates a new document store client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		appID:      cfg.AppID,
		adminToken: cfg.AdminToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// RequestError wraps a failed store call. Reconciliation treats these as
// retryable: the affected pair stays unscored and is retried next run.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("store %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ListOutcomes returns stored draw outcomes for a game. orderBy follows
// the store's "field.direction" convention (e.g. "draw_date.desc"); empty
// means store default.
func (c *Client) ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error) {
	var out []models.DrawOutcome
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if orderBy != "" {
		params.Set("order_by", orderBy)
	}
	if err := c.list(ctx, gameID+"_results", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPredictions returns stored predictions for a game, most recent
// first.
func (c *Client) ListPredictions(ctx context.Context, gameID string, limit int) ([]models.Prediction, error) {
	var out []models.Prediction
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order_by", "created_at.desc")
	if err := c.list(ctx, gameID+"_predictions", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAccuracyRecords returns all accuracy records for a game.
func (c *Client) ListAccuracyRecords(ctx context.Context, gameID string) ([]models.AccuracyRecord, error) {
	var out []models.AccuracyRecord
	if err := c.list(ctx, gameID+"_prediction_accuracy", url.Values{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePrediction persists a new prediction record. The stored copy, with
// its assigned ID, is returned; the input is not mutated.
func (c *Client) CreatePrediction(ctx context.Context, gameID string, p *models.Prediction) (*models.Prediction, error) {
	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if err := c.create(ctx, gameID+"_predictions", &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// CreateAccuracyRecord persists a new accuracy record. The store rejects a
// duplicate (prediction_id, result_id) pair; that surfaces as a
// RequestError with a conflict status.
func (c *Client) CreateAccuracyRecord(ctx context.Context, gameID string, r *models.AccuracyRecord) (*models.AccuracyRecord, error) {
	stored := *r
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if err := c.create(ctx, gameID+"_prediction_accuracy", &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Ping checks the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/apps/%s/health", c.baseURL, c.appID), nil)
	if err != nil {
		return &RequestError{Op: "ping", Err: err}
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &RequestError{Op: "ping", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) collectionURL(entity string) string {
	return fmt.Sprintf("%s/v1/apps/%s/collections/%s", c.baseURL, c.appID, entity)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}
}

func (c *Client) list(ctx context.Context, entity string, params url.Values, out any) error {
	op := "list " + entity
	u := c.collectionURL(entity)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &RequestError{Op: op, Status: resp.StatusCode}
	}

	// The API wraps list results as {"records": [...]}.
	var envelope struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(envelope.Records) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Records, out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode records: %w", err)}
	}
	return nil
}

func (c *Client) create(ctx context.Context, entity string, record any) error {
	op := "create " + entity
	body, err := json.Marshal(record)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("encode: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL(entity), bytes.NewReader(body))
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return &RequestError{Op: op, Status: resp.StatusCode}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
