package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
)

// TaskFunc executes a single sync task
type TaskFunc func(ctx context.Context, task domain.SyncTask) error

// TaskOutcome is the result of one sync task
type TaskOutcome struct {
	Task     domain.SyncTask
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the task completed without error
func (o TaskOutcome) Succeeded() bool {
	return o.Err == nil
}

//go:generate mockgen -source=scheduler.go -destination=../mocks/scheduler.go -package=mocks -mock_names=Scheduler=MockScheduler

// Scheduler runs sync tasks with bounded parallelism
type Scheduler interface {
	// Run executes every task, at most maxParallel at a time, and returns one outcome per task
	// in input order. A cancelled context makes tasks that have not started report the context error.
	Run(ctx context.Context, tasks []domain.SyncTask, maxParallel int) ([]TaskOutcome, error)
	// Active returns the number of tasks currently executing
	Active() int64
	// Peak returns the highest number of concurrently executing tasks observed by the last Run
	Peak() int64
}

type boundedScheduler struct {
	run    TaskFunc
	clock  adapter.Clock
	active atomic.Int64
	peak   atomic.Int64
}

// New creates a scheduler that executes tasks with run
func New(run TaskFunc, clock adapter.Clock) Scheduler {
	return &boundedScheduler{run: run, clock: clock}
}

func (s *boundedScheduler) Active() int64 {
	return s.active.Load()
}

func (s *boundedScheduler) Peak() int64 {
	return s.peak.Load()
}

func (s *boundedScheduler) Run(ctx context.Context, tasks []domain.SyncTask, maxParallel int) ([]TaskOutcome, error) {
	if maxParallel < 1 {
		return nil, fmt.Errorf("%w: max_parallel must be positive, got %d", domain.ErrInvalidRunRequest, maxParallel)
	}

	s.peak.Store(0)
	outcomes := make([]TaskOutcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes, nil
	}

	logger.InfoCtx(ctx, "Scheduling sync tasks",
		zap.Int("tasks", len(tasks)),
		zap.Int("max_parallel", maxParallel))

	// Every task is submitted and checks the context itself, so tasks that never start
	// still produce an outcome
	pool := pond.NewPool(maxParallel, pond.WithQueueSize(len(tasks)))
	for i, task := range tasks {
		pool.Submit(func() {
			outcomes[i] = s.execute(ctx, task)
		})
	}
	pool.StopAndWait()

	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		}
	}
	logger.InfoCtx(ctx, "Sync tasks finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(outcomes)-succeeded),
		zap.Int64("peak_active", s.peak.Load()))

	return outcomes, nil
}

func (s *boundedScheduler) execute(ctx context.Context, task domain.SyncTask) TaskOutcome {
	outcome := TaskOutcome{Task: task}
	if err := ctx.Err(); err != nil {
		outcome.Err = fmt.Errorf("task not started: %w", err)
		return outcome
	}

	s.enter()
	defer s.active.Add(-1)

	start := s.clock.Now()
	err := s.runSafely(ctx, task)
	outcome.Duration = s.clock.Since(start)

	if err != nil {
		outcome.Err = err
		logger.WarnCtx(ctx, "Sync task failed",
			zap.String("partition", task.Partition.ID()),
			zap.Duration("duration", outcome.Duration),
			zap.Error(err))
	}
	return outcome
}

// runSafely converts a panicking task into a failed outcome
func (s *boundedScheduler) runSafely(ctx context.Context, task domain.SyncTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return s.run(ctx, task)
}

func (s *boundedScheduler) enter() {
	n := s.active.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}
