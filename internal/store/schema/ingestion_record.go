package schema

import (
	"time"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// IngestionRecord represents the ingestion_records table.
// A row means the object was mirrored into the destination store for its partition date.
type IngestionRecord struct {
	// ObjectKey is the source object key
	ObjectKey string `gorm:"column:object_key;primaryKey;type:text"`
	// PartitionDate is the processing epoch the object was mirrored for
	PartitionDate time.Time `gorm:"column:partition_date;primaryKey;type:date"`
	// Environment isolates test and production datasets
	Environment domain.Environment `gorm:"column:environment;primaryKey;type:pipeline_environment"`
	// SourcePartition is the event/customer task that mirrored the object
	SourcePartition string `gorm:"column:source_partition;not null;type:text"`
	// IngestedAt is when the object was first recorded
	IngestedAt time.Time `gorm:"column:ingested_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the IngestionRecord model
func (IngestionRecord) TableName() string {
	return "ingestion_records"
}

// Identity returns the object identity of the record
func (r IngestionRecord) Identity() domain.ObjectIdentity {
	return domain.NewObjectIdentity(r.ObjectKey, r.PartitionDate, r.Environment)
}
