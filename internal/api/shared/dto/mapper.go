package dto

import (
	"encoding/json"
	"time"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/store"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

// MapPipelineRunToDTO maps a run registry row to its response
func MapPipelineRunToDTO(run *schema.PipelineRun) (*RunResponse, error) {
	resp := &RunResponse{
		ID:            run.ID,
		PartitionDate: domain.FormatPartitionDate(run.PartitionDate),
		Environment:   run.Environment,
		CustomerID:    run.CustomerID,
		State:         run.State,
		Error:         run.Error,
		WorkflowID:    run.WorkflowID,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
	}

	if len(run.Summary) > 0 {
		var summary domain.RunSummary
		if err := json.Unmarshal(run.Summary, &summary); err != nil {
			return nil, err
		}
		resp.Summary = &summary
	}

	return resp, nil
}

// MapContractToUsageDTO maps a contract and its usage to a response
func MapContractToUsageDTO(contract *store.Contract, today time.Time) *UsageResponse {
	return &UsageResponse{
		CustomerID:           contract.CustomerID,
		ContractLimit:        contract.ContractLimit,
		TotalImagesProcessed: contract.TotalImagesProcessed,
		Remaining:            contract.Remaining(),
		StartDate:            domain.FormatPartitionDate(contract.StartDate),
		EndDate:              domain.FormatPartitionDate(contract.EndDate),
		Status:               string(contract.Status),
		Active:               contract.ActiveOn(today),
	}
}
