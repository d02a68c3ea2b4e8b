package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/api/shared/constants"
	"github.com/feral-file/bib-pipeline/internal/api/shared/dto"
	apierrors "github.com/feral-file/bib-pipeline/internal/api/shared/errors"
	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/pipeline"
	"github.com/feral-file/bib-pipeline/internal/providers/temporal"
	"github.com/feral-file/bib-pipeline/internal/store"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
	"github.com/feral-file/bib-pipeline/internal/workflows"
)

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// StartRun starts the pipeline run workflow of a partition date and environment
	StartRun(ctx context.Context, req dto.StartRunRequest) (*dto.StartRunResponse, error)

	// GetRun retrieves a pipeline run by ID, or nil when it does not exist
	GetRun(ctx context.Context, id string) (*dto.RunResponse, error)

	// GetCustomerUsage retrieves a customer contract and usage, or nil when the customer has no contract
	GetCustomerUsage(ctx context.Context, customerID string) (*dto.UsageResponse, error)

	// UpsertContract creates or updates a customer contract and returns it with its usage
	UpsertContract(ctx context.Context, customerID string, req dto.UpsertContractRequest) (*dto.UsageResponse, error)

	// ListPending lists objects of a partition date that were mirrored but not processed
	ListPending(ctx context.Context, partitionDate time.Time, env domain.Environment, pageToken string, pageSize int) (*dto.PendingListResponse, error)

	// CheckHealth checks the database connection
	CheckHealth(ctx context.Context) error
}

// Config holds the run settings used when starting workflows
type Config struct {
	TaskQueue  string
	RunTimeout time.Duration
	Pipeline   config.PipelineConfig
}

type executor struct {
	store        store.Store
	orchestrator temporal.TemporalOrchestrator
	clock        adapter.Clock
	config       Config
}

func NewExecutor(store store.Store, orchestrator temporal.TemporalOrchestrator, clock adapter.Clock, cfg Config) Executor {
	return &executor{store: store, orchestrator: orchestrator, clock: clock, config: cfg}
}

func (e *executor) StartRun(ctx context.Context, req dto.StartRunRequest) (*dto.StartRunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}

	// Validate already parsed both values
	partitionDate, _ := domain.ParsePartitionDate(req.PartitionDate)
	env, _ := domain.ParseEnvironment(req.Environment)

	runReq := pipeline.NewRunRequest(e.config.Pipeline, partitionDate, env, req.Partitions)
	runReq.RunID = ulid.Make().String()
	runReq.ResultGroupID = req.ResultGroupID
	if req.CustomerID != "" {
		runReq.CustomerID = req.CustomerID
	}
	if req.MaxImages != nil {
		runReq.MaxImages = *req.MaxImages
	}
	if req.ReadyThreshold != nil {
		runReq.ReadyThreshold = *req.ReadyThreshold
	}
	if err := runReq.Validate(); err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}

	// Create a workflow reference; the worker executes it
	w := workflows.NewWorkerCore(nil, workflows.WorkerCoreConfig{})

	options := client.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(partitionDate, env),
		TaskQueue:                                e.config.TaskQueue,
		WorkflowExecutionTimeout:                 e.config.RunTimeout,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy:                 enums.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	wfRun, err := e.orchestrator.ExecuteWorkflow(ctx, options, w.PipelineRunWorkflow, runReq)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil, apierrors.NewConflictError(
				fmt.Sprintf("A pipeline run for %s %s is already in progress", req.PartitionDate, env),
				options.ID)
		}
		return nil, apierrors.NewServiceError(fmt.Sprintf("Failed to start pipeline run: %v", err))
	}

	return &dto.StartRunResponse{
		RunID:         runReq.RunID,
		WorkflowID:    wfRun.GetID(),
		WorkflowRunID: wfRun.GetRunID(),
	}, nil
}

func (e *executor) GetRun(ctx context.Context, id string) (*dto.RunResponse, error) {
	run, err := e.store.GetPipelineRun(ctx, id)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get pipeline run: %v", err))
	}
	if run == nil {
		return nil, nil
	}

	resp, err := dto.MapPipelineRunToDTO(run)
	if err != nil {
		return nil, apierrors.NewInternalError(fmt.Sprintf("Failed to decode run summary: %v", err))
	}
	return resp, nil
}

func (e *executor) GetCustomerUsage(ctx context.Context, customerID string) (*dto.UsageResponse, error) {
	contract, err := e.store.GetContract(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrContractNotFound) {
			return nil, nil
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get contract: %v", err))
	}

	return dto.MapContractToUsageDTO(contract, e.clock.Today()), nil
}

func (e *executor) UpsertContract(ctx context.Context, customerID string, req dto.UpsertContractRequest) (*dto.UsageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}

	// Validate already parsed these
	startDate, _ := domain.ParsePartitionDate(req.StartDate)
	endDate, _ := domain.ParsePartitionDate(req.EndDate)
	status, _ := schema.ParseContractStatus(req.Status)

	err := e.store.UpsertContract(ctx, store.UpsertContractInput{
		CustomerID:    customerID,
		ContractLimit: *req.ContractLimit,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        status,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRunRequest) {
			return nil, apierrors.NewValidationError(err.Error())
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to upsert contract: %v", err))
	}

	contract, err := e.store.GetContract(ctx, customerID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get contract: %v", err))
	}

	return dto.MapContractToUsageDTO(contract, e.clock.Today()), nil
}

func (e *executor) ListPending(ctx context.Context, partitionDate time.Time, env domain.Environment, pageToken string, pageSize int) (*dto.PendingListResponse, error) {
	if pageSize <= 0 {
		pageSize = constants.DEFAULT_PENDING_PAGE_SIZE
	}
	pageSize = min(pageSize, constants.MAX_PENDING_PAGE_SIZE)

	page, err := e.store.ListPending(ctx, store.ListPendingInput{
		PartitionDate: partitionDate,
		Environment:   env,
		PageToken:     pageToken,
		PageSize:      pageSize,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPageToken) {
			return nil, apierrors.NewValidationError(err.Error())
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list pending objects: %v", err))
	}

	total, err := e.store.CountPending(ctx, partitionDate, env)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to count pending objects: %v", err))
	}

	keys := make([]string, len(page.Identities))
	for i, identity := range page.Identities {
		keys[i] = identity.ObjectKey
	}

	resp := &dto.PendingListResponse{
		PartitionDate: domain.FormatPartitionDate(partitionDate),
		Environment:   env,
		ObjectKeys:    keys,
		Total:         total,
	}
	if page.NextPageToken != "" {
		resp.NextPageToken = &page.NextPageToken
	}
	return resp, nil
}

func (e *executor) CheckHealth(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return apierrors.NewDatabaseError(fmt.Sprintf("Database is unreachable: %v", err))
	}
	return nil
}
