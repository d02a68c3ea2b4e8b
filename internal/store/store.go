package store

import (
	"context"
	"time"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

// RecordOutcome reports whether a ledger write created a row or found one already present
type RecordOutcome string

const (
	// RecordCreated means the call inserted the record
	RecordCreated RecordOutcome = "created"
	// RecordAlreadyExisted means an identical identity was recorded before; nothing changed
	RecordAlreadyExisted RecordOutcome = "already_existed"
)

// ListPendingInput is the input of one ListPending page
type ListPendingInput struct {
	PartitionDate time.Time
	Environment   domain.Environment
	// PageToken is the opaque token returned by the previous page, empty for the first page
	PageToken string
	PageSize  int
}

// PendingPage is one page of ingested identities without a processed record
type PendingPage struct {
	Identities []domain.ObjectIdentity
	// NextPageToken is empty when the sweep is complete
	NextPageToken string
}

// DetectionInput is one detected bib tag to store with a processed record
type DetectionInput struct {
	Tag           string
	Confidence    float64
	ModelVersions map[string]string
}

// RecordProcessedInput is the input of RecordProcessed
type RecordProcessedInput struct {
	Identity      domain.ObjectIdentity
	ResultGroupID *string
	Detections    []DetectionInput
}

// Reservation is the result of a quota reservation attempt
type Reservation struct {
	Granted bool
	// Remaining is the number of images the customer may still process after this call
	Remaining int64
}

// Contract is a customer contract joined with its usage counter
type Contract struct {
	CustomerID           string
	ContractLimit        int64
	StartDate            time.Time
	EndDate              time.Time
	Status               schema.ContractStatus
	TotalImagesProcessed int64
}

// Remaining returns how many images may still be reserved under the contract limit
func (c Contract) Remaining() int64 {
	return max(c.ContractLimit-c.TotalImagesProcessed, 0)
}

// ActiveOn reports whether the contract accepts reservations on the given day
func (c Contract) ActiveOn(day time.Time) bool {
	d := domain.NormalizePartitionDate(day)
	return c.Status == schema.ContractStatusActive &&
		!d.Before(domain.NormalizePartitionDate(c.StartDate)) &&
		!d.After(domain.NormalizePartitionDate(c.EndDate))
}

// UpsertContractInput is the input of UpsertContract
type UpsertContractInput struct {
	CustomerID    string
	ContractLimit int64
	StartDate     time.Time
	EndDate       time.Time
	Status        schema.ContractStatus
}

// CreatePipelineRunInput is the input of CreatePipelineRun
type CreatePipelineRunInput struct {
	ID            string
	PartitionDate time.Time
	Environment   domain.Environment
	CustomerID    string
	WorkflowID    *string
	StartedAt     time.Time
}

// UpdatePipelineRunInput is the input of UpdatePipelineRun
type UpdatePipelineRunInput struct {
	State      domain.RunState
	Summary    *domain.RunSummary
	Error      *string
	FinishedAt *time.Time
}

// ListDetectionsInput is the input of one ListDetectionResults page, ordered by object key then tag
type ListDetectionsInput struct {
	PartitionDate  time.Time
	Environment    domain.Environment
	AfterObjectKey string
	AfterTag       string
	Limit          int
}

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// Store defines the interface for database operations
type Store interface {
	// RecordIngested records that an object was mirrored. Safe to repeat and to call concurrently.
	RecordIngested(ctx context.Context, identity domain.ObjectIdentity, sourcePartition string) (RecordOutcome, error)
	// IngestionExists checks if an object was recorded as mirrored
	IngestionExists(ctx context.Context, identity domain.ObjectIdentity) (bool, error)
	// ListPending returns one page of ingested identities without a processed record, ordered by object key
	ListPending(ctx context.Context, input ListPendingInput) (*PendingPage, error)
	// CountPending counts ingested identities without a processed record
	CountPending(ctx context.Context, partitionDate time.Time, env domain.Environment) (int64, error)

	// RecordProcessed records that an object completed processing together with its detections.
	// Returns domain.ErrInvariantViolation when the object was never ingested.
	RecordProcessed(ctx context.Context, input RecordProcessedInput) (RecordOutcome, error)
	// ProcessedExists checks if an object was recorded as processed
	ProcessedExists(ctx context.Context, identity domain.ObjectIdentity) (bool, error)
	// ListDetectionResults returns detection rows of a partition date in key order
	ListDetectionResults(ctx context.Context, input ListDetectionsInput) ([]schema.DetectionResult, error)

	// TryReserve atomically reserves count images against the customer contract
	TryReserve(ctx context.Context, customerID string, count int64) (*Reservation, error)
	// GetContract returns the customer contract and usage, or domain.ErrContractNotFound
	GetContract(ctx context.Context, customerID string) (*Contract, error)
	// UpsertContract creates or updates a customer contract and makes sure its usage row exists
	UpsertContract(ctx context.Context, input UpsertContractInput) error

	// EnsurePartition creates the ledger partitions of a partition date
	EnsurePartition(ctx context.Context, partitionDate time.Time) error
	// DropPartition removes every ledger row of a partition date
	DropPartition(ctx context.Context, partitionDate time.Time) error

	// GetMirrorCheckpoint returns the last object key mirrored by a source partition task, or ""
	GetMirrorCheckpoint(ctx context.Context, task domain.SyncTask) (string, error)
	// SetMirrorCheckpoint stores the last object key mirrored by a source partition task
	SetMirrorCheckpoint(ctx context.Context, task domain.SyncTask, objectKey string) error

	// CreatePipelineRun registers a pipeline run. Registering an existing ID resets that run to idle.
	CreatePipelineRun(ctx context.Context, input CreatePipelineRunInput) (*schema.PipelineRun, error)
	// UpdatePipelineRun updates the state and summary of a pipeline run
	UpdatePipelineRun(ctx context.Context, id string, input UpdatePipelineRunInput) error
	// GetPipelineRun retrieves a pipeline run by ID, or nil when not found
	GetPipelineRun(ctx context.Context, id string) (*schema.PipelineRun, error)
	// GetLatestPipelineRun retrieves the most recent run of a partition date, or nil when none exists
	GetLatestPipelineRun(ctx context.Context, partitionDate time.Time, env domain.Environment) (*schema.PipelineRun, error)

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}
