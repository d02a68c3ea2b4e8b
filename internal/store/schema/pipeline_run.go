package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// PipelineRun represents the pipeline_runs table
type PipelineRun struct {
	// ID is a ULID assigned when the run starts
	ID            string             `gorm:"column:id;primaryKey;type:text"`
	PartitionDate time.Time          `gorm:"column:partition_date;not null;type:date"`
	Environment   domain.Environment `gorm:"column:environment;not null;type:pipeline_environment"`
	CustomerID    string             `gorm:"column:customer_id;not null;type:text"`
	State         domain.RunState    `gorm:"column:state;not null;type:pipeline_run_state"`
	// Summary is the JSON encoded domain.RunSummary, set as the run progresses
	Summary datatypes.JSON `gorm:"column:summary;type:jsonb"`
	Error   *string        `gorm:"column:error;type:text"`
	// WorkflowID is set when the run is driven by the orchestrator
	WorkflowID *string    `gorm:"column:workflow_id;type:text"`
	StartedAt  time.Time  `gorm:"column:started_at;not null;type:timestamptz"`
	FinishedAt *time.Time `gorm:"column:finished_at;type:timestamptz"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PipelineRun model
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
