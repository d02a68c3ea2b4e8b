package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/detector"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/objectstore"
	"github.com/feral-file/bib-pipeline/internal/store"
)

const (
	// DEFAULT_IDLE_POLL_INTERVAL is how long processing waits for new objects while mirroring is still running
	DEFAULT_IDLE_POLL_INTERVAL = 5 * time.Second

	// DEFAULT_CHECKPOINT_EVERY is how many mirrored objects pass between mirror checkpoint writes
	DEFAULT_CHECKPOINT_EVERY = 50
)

// ProgressFunc receives the run state and counters on every transition and after every processed page
type ProgressFunc func(ctx context.Context, state domain.RunState, summary domain.RunSummary)

//go:generate mockgen -source=coordinator.go -destination=../mocks/pipeline.go -package=mocks -mock_names=Runner=MockRunner

// Runner executes pipeline runs
type Runner interface {
	// Run mirrors the request's source partitions and processes every pending object of its partition date.
	// The returned error is non-nil exactly when the run ends in the failed state.
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// Options tunes the coordinator
type Options struct {
	IdlePollInterval time.Duration
	CheckpointEvery  int
	OnProgress       ProgressFunc
}

// Coordinator sequences the mirroring and processing stages of pipeline runs.
// All progress is derived from ledger state, so an interrupted run can be started again
// with the same request.
type Coordinator struct {
	store    store.Store
	mirror   objectstore.Mirror
	detector detector.Detector
	clock    adapter.Clock
	opts     Options
}

// NewCoordinator creates a pipeline coordinator
func NewCoordinator(st store.Store, mirror objectstore.Mirror, det detector.Detector, clock adapter.Clock, opts Options) *Coordinator {
	if opts.IdlePollInterval <= 0 {
		opts.IdlePollInterval = DEFAULT_IDLE_POLL_INTERVAL
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = DEFAULT_CHECKPOINT_EVERY
	}
	return &Coordinator{
		store:    st,
		mirror:   mirror,
		detector: det,
		clock:    clock,
		opts:     opts,
	}
}

// Run executes one pipeline run to completion
func (c *Coordinator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		logger.WarnCtx(ctx, "Rejected pipeline run request", zap.Error(err))
		return &RunResult{RunID: req.RunID, State: domain.RunStateFailed, Error: err.Error()}, err
	}

	id := req.RunID
	if id == "" {
		id = ulid.Make().String()
	}
	r := newRun(id, req, logger.FromContext(ctx).With(logFields(id, req)...))

	_, err := c.store.CreatePipelineRun(ctx, store.CreatePipelineRunInput{
		ID:            id,
		PartitionDate: req.PartitionDate,
		Environment:   req.Environment,
		CustomerID:    req.CustomerID,
		WorkflowID:    req.WorkflowID,
		StartedAt:     c.clock.Now(),
	})
	if err != nil {
		return &RunResult{RunID: id, State: domain.RunStateFailed}, fmt.Errorf("failed to register pipeline run: %w", err)
	}

	r.log.Info("Starting pipeline run",
		zap.Int("partitions", len(req.Partitions)),
		zap.Int("max_parallel", req.MaxParallel),
		zap.Int("page_size", req.PageSize),
		zap.Int("max_images", req.MaxImages),
		zap.Int("processing_workers", req.ProcessingWorkers),
		zap.Int("ready_threshold", req.ReadyThreshold))

	return c.finish(ctx, r, c.execute(ctx, r))
}

func (c *Coordinator) execute(ctx context.Context, r *run) error {
	if err := c.checkContract(ctx, r.req.CustomerID); err != nil {
		return err
	}
	if err := c.store.EnsurePartition(ctx, r.req.PartitionDate); err != nil {
		return fmt.Errorf("failed to ensure ledger partitions: %w", err)
	}

	if err := c.transition(ctx, r, domain.RunStateMirroring); err != nil {
		return err
	}

	mirrorCtx, cancelMirror := context.WithCancel(ctx)
	defer cancelMirror()
	go c.mirrorPartitions(mirrorCtx, r)

	err := c.runStages(ctx, r)
	if err != nil {
		cancelMirror()
	}
	<-r.mirrorCh

	return err
}

// runStages waits for readiness, processes pending objects and completes the run
func (c *Coordinator) runStages(ctx context.Context, r *run) error {
	if err := c.waitReady(ctx, r); err != nil {
		return err
	}
	if err := c.transition(ctx, r, domain.RunStateReady); err != nil {
		return err
	}
	if err := c.transition(ctx, r, domain.RunStateProcessing); err != nil {
		return err
	}

	if err := c.process(ctx, r); err != nil {
		return err
	}

	// max_images can stop processing while partitions are still being mirrored
	select {
	case <-r.mirrorCh:
	case <-ctx.Done():
		return cancelled(ctx)
	}

	return c.transition(ctx, r, domain.RunStateCompleted)
}

func (c *Coordinator) checkContract(ctx context.Context, customerID string) error {
	contract, err := c.store.GetContract(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to load contract of %s: %w", customerID, err)
	}
	if !contract.ActiveOn(c.clock.Today()) {
		return fmt.Errorf("%w: contract of %s is %s between %s and %s", domain.ErrContractInactive,
			customerID, contract.Status,
			domain.FormatPartitionDate(contract.StartDate), domain.FormatPartitionDate(contract.EndDate))
	}
	return nil
}

// waitReady blocks until mirroring completes, the ready threshold is reached or the fallback delay expires
func (c *Coordinator) waitReady(ctx context.Context, r *run) error {
	var fallback <-chan time.Time
	if r.req.ReadyFallbackDelay > 0 {
		fallback = c.clock.After(r.req.ReadyFallbackDelay)
	}

	select {
	case <-r.mirrorCh:
		r.log.Info("Mirroring completed, pipeline is ready")
	case <-r.readyCh:
		r.log.Info("Ready threshold reached", zap.Int("ready_threshold", r.req.ReadyThreshold))
	case <-fallback:
		r.log.Warn("No readiness signal before the fallback delay, starting processing",
			zap.Duration("ready_fallback_delay", r.req.ReadyFallbackDelay))
	case <-ctx.Done():
		return cancelled(ctx)
	}
	return nil
}

// transition advances the state machine and records the new state in the run registry
func (c *Coordinator) transition(ctx context.Context, r *run, to domain.RunState) error {
	if err := r.advance(to); err != nil {
		return err
	}
	if err := c.store.UpdatePipelineRun(ctx, r.id, store.UpdatePipelineRunInput{State: to}); err != nil {
		r.log.Warn("Failed to record run state", zap.String("state", string(to)), zap.Error(err))
	}
	c.reportProgress(ctx, r)
	return nil
}

func (c *Coordinator) reportProgress(ctx context.Context, r *run) {
	if c.opts.OnProgress != nil {
		c.opts.OnProgress(ctx, r.currentState(), r.summary())
	}
}

// finish computes the run summary and stores the final state
func (c *Coordinator) finish(ctx context.Context, r *run, runErr error) (*RunResult, error) {
	bg := context.WithoutCancel(ctx)

	state := domain.RunStateCompleted
	if runErr != nil {
		state = domain.RunStateFailed
		if err := r.advance(domain.RunStateFailed); err != nil {
			r.log.Warn("Failed to mark run as failed", zap.Error(err))
		}
		switch {
		case errors.Is(runErr, domain.ErrRunCancelled):
			r.log.Warn("Pipeline run cancelled", zap.Error(runErr))
		default:
			r.log.Error("Pipeline run failed", zap.Error(runErr))
		}
	}

	summary := r.summary()
	pending, err := c.store.CountPending(bg, r.req.PartitionDate, r.req.Environment)
	if err != nil {
		r.log.Warn("Failed to count pending objects", zap.Error(err))
	} else {
		summary.Pending = pending
	}

	finishedAt := c.clock.Now()
	update := store.UpdatePipelineRunInput{
		State:      state,
		Summary:    &summary,
		FinishedAt: &finishedAt,
	}
	if runErr != nil {
		msg := runErr.Error()
		update.Error = &msg
	}
	if err := c.store.UpdatePipelineRun(bg, r.id, update); err != nil {
		r.log.Error("Failed to record run result", zap.Error(err))
	}

	if c.opts.OnProgress != nil {
		c.opts.OnProgress(bg, state, summary)
	}

	r.log.Info("Pipeline run finished",
		zap.String("state", string(state)),
		zap.Int64("ingested", summary.Ingested),
		zap.Int64("already_ingested", summary.AlreadyIngested),
		zap.Int64("processed", summary.Processed),
		zap.Int64("skipped_by_quota", summary.SkippedByQuota),
		zap.Int64("detection_failures", summary.DetectionFailures),
		zap.Int64("pending", summary.Pending),
		zap.Int("tasks_succeeded", summary.TasksSucceeded),
		zap.Int("tasks_failed", summary.TasksFailed),
		zap.Strings("failed_partitions", summary.FailedPartitions))

	result := &RunResult{RunID: r.id, State: state, Summary: summary}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	return result, runErr
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %v", domain.ErrRunCancelled, context.Cause(ctx))
}
