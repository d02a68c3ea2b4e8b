package dto

import (
	"fmt"

	"github.com/feral-file/bib-pipeline/internal/api/shared/constants"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

// StartRunRequest is the body of POST /api/v1/runs
type StartRunRequest struct {
	PartitionDate string                   `json:"partition_date" binding:"required"`
	Environment   string                   `json:"environment" binding:"required"`
	CustomerID    string                   `json:"customer_id,omitempty"`
	Partitions    []domain.SourcePartition `json:"partitions" binding:"required"`
	ResultGroupID *string                  `json:"result_group_id,omitempty"`

	// Overrides of the configured run defaults
	MaxImages      *int `json:"max_images,omitempty"`
	ReadyThreshold *int `json:"ready_threshold,omitempty"`
}

// Validate validates the start run request
func (r *StartRunRequest) Validate() error {
	if _, err := domain.ParsePartitionDate(r.PartitionDate); err != nil {
		return err
	}
	if _, err := domain.ParseEnvironment(r.Environment); err != nil {
		return err
	}

	if len(r.Partitions) == 0 {
		return fmt.Errorf("at least one partition is required")
	}
	if len(r.Partitions) > constants.MAX_PARTITIONS_PER_RUN {
		return fmt.Errorf("at most %d partitions are allowed per run", constants.MAX_PARTITIONS_PER_RUN)
	}
	for _, p := range r.Partitions {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	if r.MaxImages != nil && *r.MaxImages < 0 {
		return fmt.Errorf("max_images must not be negative")
	}
	if r.ReadyThreshold != nil && *r.ReadyThreshold < 0 {
		return fmt.Errorf("ready_threshold must not be negative")
	}

	return nil
}

// UpsertContractRequest is the body of PUT /api/v1/customers/:id/contract
type UpsertContractRequest struct {
	ContractLimit *int64 `json:"contract_limit" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	Status        string `json:"status,omitempty"`
}

// Validate validates the contract request
func (r *UpsertContractRequest) Validate() error {
	if r.ContractLimit == nil || *r.ContractLimit < 0 {
		return fmt.Errorf("contract_limit must not be negative")
	}
	start, err := domain.ParsePartitionDate(r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := domain.ParsePartitionDate(r.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end_date must not be before start_date")
	}
	if _, err := schema.ParseContractStatus(r.Status); err != nil {
		return err
	}
	return nil
}
