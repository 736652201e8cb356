package handlers

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/logic"
	"github.com/lottostack/prediction-api/internal/worker"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// TaskQueue defines the interface for the background task queue
type TaskQueue interface {
	Enqueue(task worker.Task) bool
	Depth() int
}

type Config struct {
	Queue  TaskQueue
	Store  logic.Store
	Logger *zap.Logger
	// Services
	Generation logic.GenerationService
	Reconcile  logic.ReconcileService
	Stats      logic.StatsService
}

type Handler struct {
	queue      TaskQueue
	store      logic.Store
	logger     *zap.SugaredLogger
	validator  *validator.Validate
	generation logic.GenerationService
	reconcile  logic.ReconcileService
	stats      logic.StatsService
}

func New(cfg Config) *Handler {
	return &Handler{
		queue:      cfg.Queue,
		store:      cfg.Store,
		logger:     cfg.Logger.Sugar(),
		validator:  validator.New(),
		generation: cfg.Generation,
		reconcile:  cfg.Reconcile,
		stats:      cfg.Stats,
	}
}
