package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/messaging"
	"github.com/feral-file/bib-pipeline/internal/pipeline"
	"github.com/feral-file/bib-pipeline/internal/report"
	"github.com/feral-file/bib-pipeline/internal/store"
)

const (
	// ERROR_TYPE_FATAL is the application error type of run failures that a retry cannot fix
	ERROR_TYPE_FATAL = "PipelineRunFatal"
	// ERROR_TYPE_REPORTS_DISABLED is returned by GenerateReport when no generator is configured
	ERROR_TYPE_REPORTS_DISABLED = "ReportsDisabled"
	// ERROR_TYPE_EVENTS_DISABLED is returned by PublishRunCompleted when no publisher is configured
	ERROR_TYPE_EVENTS_DISABLED = "EventsDisabled"
)

// Executor defines the interface for executing activities
//
//go:generate mockgen -source=executor.go -destination=../mocks/executor.go -package=mocks -mock_names=Executor=MockExecutor
type Executor interface {
	// RunPipeline executes one pipeline run and returns its result. Runs that fail for
	// reasons a retry cannot fix return a non-retryable application error.
	RunPipeline(ctx context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error)

	// GenerateReport writes the bib report of a completed run and records its key in the run registry
	GenerateReport(ctx context.Context, result pipeline.RunResult, partitionDate time.Time, env domain.Environment) (*report.Report, error)

	// PublishRunCompleted publishes the run-completed event
	PublishRunCompleted(ctx context.Context, event *messaging.RunCompletedEvent) error
}

// executor is the concrete implementation of Executor
type executor struct {
	runner    pipeline.Runner
	store     store.Store
	reports   report.Generator
	publisher messaging.Publisher
}

// NewExecutor creates a new executor instance. reports and publisher may be nil when the
// deployment does not generate reports or publish run events.
func NewExecutor(
	runner pipeline.Runner,
	store store.Store,
	reports report.Generator,
	publisher messaging.Publisher,
) Executor {
	return &executor{
		runner:    runner,
		store:     store,
		reports:   reports,
		publisher: publisher,
	}
}

// HeartbeatProgress returns a progress callback that records run progress as activity heartbeat details
func HeartbeatProgress(activity adapter.Activity) pipeline.ProgressFunc {
	return func(ctx context.Context, state domain.RunState, summary domain.RunSummary) {
		if !activity.IsActivity(ctx) {
			return
		}
		activity.RecordHeartbeat(ctx, state, summary)
	}
}

func (e *executor) RunPipeline(ctx context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	result, err := e.runner.Run(ctx, req)
	if err == nil {
		return result, nil
	}

	if domain.IsFatal(err) {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("pipeline run failed: %v", err),
			ERROR_TYPE_FATAL,
			err,
		)
	}
	return nil, fmt.Errorf("pipeline run failed: %w", err)
}

func (e *executor) GenerateReport(ctx context.Context, result pipeline.RunResult, partitionDate time.Time, env domain.Environment) (*report.Report, error) {
	if e.reports == nil {
		return nil, temporal.NewNonRetryableApplicationError("report generation is disabled", ERROR_TYPE_REPORTS_DISABLED, nil)
	}

	rep, err := e.reports.Generate(ctx, partitionDate, env)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	summary := result.Summary
	summary.ReportKey = rep.Key
	err = e.store.UpdatePipelineRun(ctx, result.RunID, store.UpdatePipelineRunInput{
		State:   result.State,
		Summary: &summary,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			logger.WarnCtx(ctx, "Report generated for an unregistered run", zap.String("run_id", result.RunID))
			return rep, nil
		}
		return nil, fmt.Errorf("failed to record report key: %w", err)
	}

	return rep, nil
}

func (e *executor) PublishRunCompleted(ctx context.Context, event *messaging.RunCompletedEvent) error {
	if e.publisher == nil {
		return temporal.NewNonRetryableApplicationError("run events are disabled", ERROR_TYPE_EVENTS_DISABLED, nil)
	}

	if err := e.publisher.PublishRunCompleted(ctx, event); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	return nil
}
