package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/domain"
)

const (
	// EXIT_CODE_COMPLETED means the run completed and nothing is left to process
	EXIT_CODE_COMPLETED = 0
	// EXIT_CODE_FAILED means the run failed
	EXIT_CODE_FAILED = 1
	// EXIT_CODE_LEFTOVERS means the run completed with objects or partitions left unprocessed
	EXIT_CODE_LEFTOVERS = 2
)

// RunRequest describes one pipeline run over a partition date and environment
type RunRequest struct {
	// RunID identifies the run in the run registry; generated when empty
	RunID         string                   `json:"run_id,omitempty"`
	PartitionDate time.Time                `json:"partition_date"`
	Environment   domain.Environment       `json:"environment"`
	CustomerID    string                   `json:"customer_id"`
	Partitions    []domain.SourcePartition `json:"partitions"`
	// ResultGroupID groups processed records of one race or session
	ResultGroupID *string `json:"result_group_id,omitempty"`
	// WorkflowID is set when the run executes inside a Temporal workflow
	WorkflowID *string `json:"workflow_id,omitempty"`

	MaxParallel       int `json:"max_parallel"`
	PageSize          int `json:"page_size"`
	MaxImages         int `json:"max_images"`
	ProcessingWorkers int `json:"processing_workers"`
	// ReadyThreshold is the number of objects mirrored during the run that makes processing start early.
	// Zero waits for mirroring to complete.
	ReadyThreshold int `json:"ready_threshold"`
	// ReadyFallbackDelay starts processing after this delay when no readiness signal arrived. Zero disables it.
	ReadyFallbackDelay time.Duration `json:"ready_fallback_delay"`
}

// NewRunRequest creates a request carrying the configured run defaults
func NewRunRequest(cfg config.PipelineConfig, partitionDate time.Time, env domain.Environment, partitions []domain.SourcePartition) RunRequest {
	return RunRequest{
		PartitionDate:      domain.NormalizePartitionDate(partitionDate),
		Environment:        env,
		CustomerID:         cfg.CustomerID,
		Partitions:         partitions,
		MaxParallel:        cfg.MaxParallel,
		PageSize:           cfg.PageSize,
		MaxImages:          cfg.MaxImages,
		ProcessingWorkers:  cfg.ProcessingWorkers,
		ReadyThreshold:     cfg.ReadyThreshold,
		ReadyFallbackDelay: cfg.ReadyFallbackDelay,
	}
}

// Validate checks the request before any work starts
func (r *RunRequest) Validate() error {
	if r.CustomerID == "" {
		r.CustomerID = domain.DEFAULT_CUSTOMER_ID
	}
	if r.PartitionDate.IsZero() {
		return fmt.Errorf("%w: partition date is required", domain.ErrInvalidPartition)
	}
	r.PartitionDate = domain.NormalizePartitionDate(r.PartitionDate)

	if !domain.IsValidEnvironment(r.Environment) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEnvironment, r.Environment)
	}

	if len(r.Partitions) == 0 {
		return fmt.Errorf("%w: at least one source partition is required", domain.ErrInvalidRunRequest)
	}
	seen := make(map[string]struct{}, len(r.Partitions))
	for _, p := range r.Partitions {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ListPrefix()]; dup {
			return fmt.Errorf("%w: duplicate source partition %s", domain.ErrInvalidRunRequest, p.ListPrefix())
		}
		seen[p.ListPrefix()] = struct{}{}
	}

	var errs []error
	if r.MaxParallel < 1 {
		errs = append(errs, fmt.Errorf("max_parallel must be positive"))
	}
	if r.PageSize < 1 {
		errs = append(errs, fmt.Errorf("page_size must be positive"))
	}
	if r.ProcessingWorkers < 1 {
		errs = append(errs, fmt.Errorf("processing_workers must be positive"))
	}
	if r.MaxImages < 0 {
		errs = append(errs, fmt.Errorf("max_images must not be negative"))
	}
	if r.ReadyThreshold < 0 {
		errs = append(errs, fmt.Errorf("ready_threshold must not be negative"))
	}
	if r.ReadyFallbackDelay < 0 {
		errs = append(errs, fmt.Errorf("ready_fallback_delay must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRunRequest, errors.Join(errs...))
	}

	return nil
}

// SyncTasks returns one mirror task per source partition
func (r RunRequest) SyncTasks() []domain.SyncTask {
	tasks := make([]domain.SyncTask, len(r.Partitions))
	for i, p := range r.Partitions {
		tasks[i] = domain.SyncTask{
			Partition:     p,
			PartitionDate: r.PartitionDate,
			Environment:   r.Environment,
		}
	}
	return tasks
}

// RunResult is the outcome of a pipeline run
type RunResult struct {
	RunID   string            `json:"run_id"`
	State   domain.RunState   `json:"state"`
	Summary domain.RunSummary `json:"summary"`
	// Error is the failure of a failed run
	Error string `json:"error,omitempty"`
}

// ExitCode maps a run outcome onto the process exit code of a one-shot run
func ExitCode(result *RunResult, err error) int {
	if err != nil || result == nil || result.State != domain.RunStateCompleted {
		return EXIT_CODE_FAILED
	}
	if result.Summary.HasLeftovers() {
		return EXIT_CODE_LEFTOVERS
	}
	return EXIT_CODE_COMPLETED
}
