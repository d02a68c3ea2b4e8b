package workflows

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/messaging"
	"github.com/feral-file/bib-pipeline/internal/pipeline"
	"github.com/feral-file/bib-pipeline/internal/report"
)

const (
	// WORKFLOW_ID_PREFIX prefixes the workflow ID of a pipeline run, followed by <date>-<environment>
	WORKFLOW_ID_PREFIX = "pipeline-run-"

	DEFAULT_RUN_TIMEOUT      = 6 * time.Hour
	DEFAULT_RUN_MAX_ATTEMPTS = 3
)

// WorkflowID returns the workflow ID of the pipeline run of a partition date and environment.
// At most one run per partition date and environment is open at a time.
func WorkflowID(partitionDate time.Time, env domain.Environment) string {
	return WORKFLOW_ID_PREFIX + domain.FormatPartitionDate(partitionDate) + "-" + string(env)
}

// WorkerCore defines the interface for the pipeline workflows
//
//go:generate mockgen -source=worker.go -destination=../mocks/worker_core.go -package=mocks -mock_names=WorkerCore=MockWorkerCore
type WorkerCore interface {
	// PipelineRunWorkflow runs the pipeline for a request, then generates the bib report
	// and publishes the run-completed event
	PipelineRunWorkflow(ctx workflow.Context, req pipeline.RunRequest) (*pipeline.RunResult, error)
}

type WorkerCoreConfig struct {
	// RunTimeout bounds one attempt of the pipeline run activity
	RunTimeout time.Duration
	// HeartbeatTimeout fails a run attempt that reported no progress for this long. Zero disables it.
	HeartbeatTimeout time.Duration
	// RunMaxAttempts is the number of attempts for runs failing with retryable errors
	RunMaxAttempts int32
	// GenerateReport enables the bib report after completed runs
	GenerateReport bool
	// PublishEvents enables the run-completed event
	PublishEvents bool
}

// workerCore is the concrete implementation of WorkerCore
type workerCore struct {
	config   WorkerCoreConfig
	executor Executor
}

// NewWorkerCore creates a new worker core instance
func NewWorkerCore(executor Executor, config WorkerCoreConfig) WorkerCore {
	if config.RunTimeout <= 0 {
		config.RunTimeout = DEFAULT_RUN_TIMEOUT
	}
	if config.RunMaxAttempts <= 0 {
		config.RunMaxAttempts = DEFAULT_RUN_MAX_ATTEMPTS
	}
	return &workerCore{
		executor: executor,
		config:   config,
	}
}

// PipelineRunWorkflow runs the pipeline for one partition date and environment
func (w *workerCore) PipelineRunWorkflow(ctx workflow.Context, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	if err := req.Validate(); err != nil {
		logger.WarnWf(ctx, "Rejected pipeline run request", zap.Error(err))
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ERROR_TYPE_FATAL, err)
	}

	// Every attempt of the run activity reuses one run ID
	if req.RunID == "" {
		err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
			return ulid.Make().String()
		}).Get(&req.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to generate run ID: %w", err)
		}
	}
	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	req.WorkflowID = &workflowID

	logger.InfoWf(ctx, "Starting pipeline run workflow",
		zap.String("run_id", req.RunID),
		zap.String("partition_date", domain.FormatPartitionDate(req.PartitionDate)),
		zap.String("environment", string(req.Environment)),
		zap.Int("partitions", len(req.Partitions)),
	)

	runCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: w.config.RunTimeout,
		HeartbeatTimeout:    w.config.HeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        30 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Minute,
			MaximumAttempts:        w.config.RunMaxAttempts,
			NonRetryableErrorTypes: []string{ERROR_TYPE_FATAL},
		},
	})

	var result pipeline.RunResult
	err := workflow.ExecuteActivity(runCtx, w.executor.RunPipeline, req).Get(runCtx, &result)
	if err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("pipeline run failed"),
			zap.Error(err),
			zap.String("run_id", req.RunID),
		)
		w.publishRunCompleted(ctx, w.runEvent(ctx, req, pipeline.RunResult{
			RunID: req.RunID,
			State: domain.RunStateFailed,
			Error: err.Error(),
		}))
		return nil, err
	}

	if w.config.GenerateReport && result.State == domain.RunStateCompleted {
		if key, ok := w.generateReport(ctx, req, result); ok {
			result.Summary.ReportKey = key
		}
	}

	w.publishRunCompleted(ctx, w.runEvent(ctx, req, result))

	logger.InfoWf(ctx, "Pipeline run workflow finished",
		zap.String("run_id", result.RunID),
		zap.String("state", string(result.State)),
		zap.Int64("processed", result.Summary.Processed),
		zap.Int64("pending", result.Summary.Pending),
	)

	return &result, nil
}

// generateReport writes the bib report. A failed report does not fail the run.
func (w *workerCore) generateReport(ctx workflow.Context, req pipeline.RunRequest, result pipeline.RunResult) (string, bool) {
	reportCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ERROR_TYPE_REPORTS_DISABLED},
		},
	})

	var rep report.Report
	err := workflow.ExecuteActivity(reportCtx, w.executor.GenerateReport, result, req.PartitionDate, req.Environment).
		Get(reportCtx, &rep)
	if err != nil {
		logger.WarnWf(ctx, "Failed to generate bib report",
			zap.Error(err),
			zap.String("run_id", result.RunID),
		)
		return "", false
	}

	logger.InfoWf(ctx, "Generated bib report",
		zap.String("key", rep.Key),
		zap.Int("rows", rep.Rows),
	)
	return rep.Key, true
}

// publishRunCompleted publishes the run event. A failed publication does not fail the run.
func (w *workerCore) publishRunCompleted(ctx workflow.Context, event *messaging.RunCompletedEvent) {
	if !w.config.PublishEvents {
		return
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ERROR_TYPE_EVENTS_DISABLED},
		},
	})

	err := workflow.ExecuteActivity(publishCtx, w.executor.PublishRunCompleted, event).Get(publishCtx, nil)
	if err != nil {
		logger.WarnWf(ctx, "Failed to publish run event",
			zap.Error(err),
			zap.String("run_id", event.RunID),
		)
	}
}

func (w *workerCore) runEvent(ctx workflow.Context, req pipeline.RunRequest, result pipeline.RunResult) *messaging.RunCompletedEvent {
	return &messaging.RunCompletedEvent{
		RunID:         result.RunID,
		PartitionDate: domain.FormatPartitionDate(req.PartitionDate),
		Environment:   req.Environment,
		CustomerID:    req.CustomerID,
		State:         result.State,
		Summary:       result.Summary,
		Error:         result.Error,
		FinishedAt:    workflow.Now(ctx).UTC(),
	}
}
