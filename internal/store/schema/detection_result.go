package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// DetectionResult represents the detection_results table, one row per detected bib tag
type DetectionResult struct {
	ObjectKey     string             `gorm:"column:object_key;primaryKey;type:text"`
	PartitionDate time.Time          `gorm:"column:partition_date;primaryKey;type:date"`
	Environment   domain.Environment `gorm:"column:environment;primaryKey;type:pipeline_environment"`
	// Tag is the bib number as returned by the detector
	Tag string `gorm:"column:tag;primaryKey;type:text"`
	// EventID, CustomerID and PhotoNum are parsed from the object key
	EventID    string  `gorm:"column:event_id;not null;type:text"`
	CustomerID string  `gorm:"column:customer_id;not null;type:text"`
	PhotoNum   string  `gorm:"column:photo_num;not null;type:text"`
	Confidence float64 `gorm:"column:confidence;not null"`
	// ModelVersions is the detector model version map as JSON
	ModelVersions datatypes.JSON `gorm:"column:model_versions;type:jsonb"`
	DetectedAt    time.Time      `gorm:"column:detected_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the DetectionResult model
func (DetectionResult) TableName() string {
	return "detection_results"
}
