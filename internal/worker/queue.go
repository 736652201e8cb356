// Package worker implements the buffered task queue for background
// jobs. Reconciliation and continual learning run here so HTTP handlers
// can acknowledge immediately; tasks for the same queue run serially,
// which keeps store writes and model updates ordered.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metrics
var (
	tasksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lotto_tasks_enqueued_total",
		Help: "Total number of background tasks enqueued",
	})

	tasksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lotto_tasks_processed_total",
		Help: "Total number of background tasks completed",
	})

	tasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lotto_tasks_failed_total",
		Help: "Total number of background tasks that returned an error",
	})

	tasksRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lotto_tasks_rejected_total",
		Help: "Total number of background tasks rejected by a full or stopped queue",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lotto_task_queue_depth",
		Help: "Current depth of the background task queue",
	})

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lotto_task_duration_seconds",
		Help:    "Duration of background task execution",
		Buckets: prometheus.DefBuckets,
	})
)

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// QueueConfig configures the task queue.
type QueueConfig struct {
	Size    int
	Timeout time.Duration
	Logger  *zap.Logger
}

// Queue runs enqueued tasks one at a time on a background goroutine.
type Queue struct {
	config QueueConfig
	tasks  chan Task
	errs   chan error
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

// NewQueue creates a task queue. Errors from tasks surface on Errors()
// as well as in the log; the channel is buffered and drops when nobody
// reads it.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Size <= 0 {
		cfg.Size = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Queue{
		config: cfg,
		tasks:  make(chan Task, cfg.Size),
		errs:   make(chan error, cfg.Size),
		logger: cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)

	q.wg.Add(1)
	go q.worker()

	go q.reportQueueDepth()

	q.logger.Infow("task queue started", "size", q.config.Size, "taskTimeout", q.config.Timeout)
}

// Stop drains the queue and waits for the in-flight task.
func (q *Queue) Stop() {
	q.logger.Info("stopping task queue...")
	q.cancel()
	close(q.tasks)
	q.wg.Wait()
	q.logger.Info("task queue stopped")
}

// Enqueue submits a task without blocking. Returns false when the queue
// is full or stopped; callers report that as service-busy.
func (q *Queue) Enqueue(task Task) (ok bool) {
	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			q.logger.Warnw("failed to enqueue task (queue stopped)", "task", task.Name)
			tasksRejected.Inc()
			ok = false
		}
	}()

	select {
	case q.tasks <- task:
		tasksEnqueued.Inc()
		return true
	default:
		q.logger.Warnw("task queue full, rejecting task", "task", task.Name)
		tasksRejected.Inc()
		return false
	}
}

// Errors exposes task failures for callers that want to observe them.
func (q *Queue) Errors() <-chan error {
	return q.errs
}

// Depth returns the current queue size.
func (q *Queue) Depth() int {
	return len(q.tasks)
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for task := range q.tasks {
		q.run(task)
	}
}

func (q *Queue) run(task Task) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(q.ctx, q.config.Timeout)
	defer cancel()

	q.logger.Infow("task started", "task", task.Name)
	err := task.Run(ctx)
	taskDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		tasksFailed.Inc()
		q.logger.Errorw("task failed", "task", task.Name, "duration", time.Since(start), "error", err)
		select {
		case q.errs <- err:
		default:
		}
		return
	}

	tasksProcessed.Inc()
	q.logger.Infow("task finished", "task", task.Name, "duration", time.Since(start))
}

func (q *Queue) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(q.tasks)))
		case <-q.ctx.Done():
			return
		}
	}
}
