package dto

import (
	"time"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// StartRunResponse is returned when a pipeline run workflow was started
type StartRunResponse struct {
	RunID         string `json:"run_id"`
	WorkflowID    string `json:"workflow_id"`
	WorkflowRunID string `json:"workflow_run_id"`
}

// RunResponse is a pipeline run from the run registry
type RunResponse struct {
	ID            string             `json:"id"`
	PartitionDate string             `json:"partition_date"`
	Environment   domain.Environment `json:"environment"`
	CustomerID    string             `json:"customer_id"`
	State         domain.RunState    `json:"state"`
	Summary       *domain.RunSummary `json:"summary,omitempty"`
	Error         *string            `json:"error,omitempty"`
	WorkflowID    *string            `json:"workflow_id,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    *time.Time         `json:"finished_at,omitempty"`
}

// UsageResponse is a customer contract with its usage
type UsageResponse struct {
	CustomerID           string `json:"customer_id"`
	ContractLimit        int64  `json:"contract_limit"`
	TotalImagesProcessed int64  `json:"total_images_processed"`
	Remaining            int64  `json:"remaining"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	Status               string `json:"status"`
	// Active is true when the contract accepts reservations today
	Active bool `json:"active"`
}

// PendingListResponse is one page of objects waiting for processing
type PendingListResponse struct {
	PartitionDate string             `json:"partition_date"`
	Environment   domain.Environment `json:"environment"`
	ObjectKeys    []string           `json:"object_keys"`
	NextPageToken *string            `json:"next_page_token,omitempty"`
	Total         int64              `json:"total"`
}
