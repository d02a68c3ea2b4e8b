package schema

import (
	"time"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// ProcessedRecord represents the processed_records table.
// It is the sole signal that processing must skip an object.
type ProcessedRecord struct {
	ObjectKey     string             `gorm:"column:object_key;primaryKey;type:text"`
	PartitionDate time.Time          `gorm:"column:partition_date;primaryKey;type:date"`
	Environment   domain.Environment `gorm:"column:environment;primaryKey;type:pipeline_environment"`
	// ResultGroupID groups results of the same race or session
	ResultGroupID *string   `gorm:"column:result_group_id;type:text"`
	ProcessedAt   time.Time `gorm:"column:processed_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the ProcessedRecord model
func (ProcessedRecord) TableName() string {
	return "processed_records"
}
