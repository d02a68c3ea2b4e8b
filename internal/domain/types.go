package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Environment isolates datasets that share the same schema
type Environment string

const (
	EnvironmentTest       Environment = "test"
	EnvironmentProduction Environment = "production"
)

// IsValidEnvironment checks if an environment is one of the supported values
func IsValidEnvironment(env Environment) bool {
	return env == EnvironmentTest || env == EnvironmentProduction
}

// ParseEnvironment parses and validates an environment name
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidEnvironment(env) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEnvironment, s)
	}
	return env, nil
}

// ParsePartitionDate parses a partition date in YYYY-MM-DD format.
// The result is normalized to midnight UTC.
func ParsePartitionDate(s string) (time.Time, error) {
	t, err := time.Parse(PARTITION_DATE_LAYOUT, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPartition, s)
	}
	return t.UTC(), nil
}

// NormalizePartitionDate truncates t to its UTC calendar date
func NormalizePartitionDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatPartitionDate formats a partition date as YYYY-MM-DD
func FormatPartitionDate(t time.Time) string {
	return t.UTC().Format(PARTITION_DATE_LAYOUT)
}

// ObjectIdentity is the immutable composite key of a source object inside a processing epoch
type ObjectIdentity struct {
	ObjectKey     string      `json:"object_key"`
	PartitionDate time.Time   `json:"partition_date"`
	Environment   Environment `json:"environment"`
}

// NewObjectIdentity creates an identity with a normalized partition date
func NewObjectIdentity(objectKey string, partitionDate time.Time, env Environment) ObjectIdentity {
	return ObjectIdentity{
		ObjectKey:     objectKey,
		PartitionDate: NormalizePartitionDate(partitionDate),
		Environment:   env,
	}
}

// Validate checks that every component of the identity is usable as a ledger key
func (o ObjectIdentity) Validate() error {
	if o.ObjectKey == "" {
		return fmt.Errorf("%w: empty object key", ErrInvalidPartition)
	}
	if o.PartitionDate.IsZero() {
		return fmt.Errorf("%w: empty partition date", ErrInvalidPartition)
	}
	if !IsValidEnvironment(o.Environment) {
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, o.Environment)
	}
	return nil
}

// String returns a human readable form used in logs
func (o ObjectIdentity) String() string {
	return fmt.Sprintf("%s/%s/%s", o.Environment, FormatPartitionDate(o.PartitionDate), o.ObjectKey)
}

// SourcePartition is a named grouping of source objects (an event/customer pairing)
// that is mirrored as a single scheduler task
type SourcePartition struct {
	EventID    string `json:"event_id" yaml:"event_id"`
	CustomerID string `json:"customer_id" yaml:"customer_id"`
	// Prefix overrides the default "<event_id>/<customer_id>/" listing prefix
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// ID returns the partition identifier used in logs and outcomes
func (p SourcePartition) ID() string {
	if p.Prefix != "" {
		return p.ListPrefix()
	}
	return p.EventID + "/" + p.CustomerID
}

// ListPrefix returns the source store prefix holding this partition's objects
func (p SourcePartition) ListPrefix() string {
	if p.Prefix != "" {
		return strings.TrimSuffix(p.Prefix, "/") + "/"
	}
	return p.EventID + "/" + p.CustomerID + "/"
}

// Validate checks the partition names a source location
func (p SourcePartition) Validate() error {
	if p.Prefix != "" {
		return nil
	}
	if p.EventID == "" || p.CustomerID == "" {
		return fmt.Errorf("%w: source partition needs event_id and customer_id", ErrInvalidPartition)
	}
	return nil
}

// ParseSourcePartition parses an "event/customer" pair
func ParseSourcePartition(s string) (SourcePartition, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return SourcePartition{}, fmt.Errorf("%w: expected <event>/<customer>, got %q", ErrInvalidPartition, s)
	}
	return SourcePartition{EventID: parts[0], CustomerID: parts[1]}, nil
}

// SyncTask is one scheduler dispatch: mirror a source partition into a destination epoch
type SyncTask struct {
	Partition     SourcePartition
	PartitionDate time.Time
	Environment   Environment
}

// SourceKeyInfo holds the parts of a source object key the results table needs
type SourceKeyInfo struct {
	EventID    string
	CustomerID string
	PhotoNum   string
}

// ParseSourceKey extracts event, customer and photo number from a key shaped like
// "<event>/<customer>/<photonum>_tn_<n>.jpg". Missing path segments are left empty.
func ParseSourceKey(key string) SourceKeyInfo {
	info := SourceKeyInfo{}
	dir, file := path.Split(key)
	segments := strings.Split(strings.Trim(dir, "/"), "/")
	if len(segments) >= 2 {
		info.EventID = segments[len(segments)-2]
		info.CustomerID = segments[len(segments)-1]
	}

	base := strings.TrimSuffix(file, path.Ext(file))
	if idx := strings.Index(base, THUMBNAIL_MARKER); idx >= 0 {
		base = base[:idx]
	}
	info.PhotoNum = base
	return info
}

// HasSupportedImageExtension reports whether key ends in one of SupportedImageExtensions
func HasSupportedImageExtension(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	for _, supported := range SupportedImageExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// Detection is the outcome of the external bib detection service for one object
type Detection struct {
	Filename       string            `json:"filename"`
	BibNumbers     []string          `json:"bib_numbers"`
	Confidence     float64           `json:"confidence"`
	ProcessingTime time.Duration     `json:"processing_time"`
	ModelVersions  map[string]string `json:"model_versions,omitempty"`
}

// RunState is a pipeline coordinator state
type RunState string

const (
	RunStateIdle       RunState = "idle"
	RunStateMirroring  RunState = "mirroring"
	RunStateReady      RunState = "ready"
	RunStateProcessing RunState = "processing"
	RunStateCompleted  RunState = "completed"
	RunStateFailed     RunState = "failed"
)

// IsTerminal reports whether no further transition can happen from s
func (s RunState) IsTerminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// RunSummary is the completion report of a pipeline run
type RunSummary struct {
	Ingested          int64    `json:"ingested"`
	AlreadyIngested   int64    `json:"already_ingested"`
	Processed         int64    `json:"processed"`
	SkippedByQuota    int64    `json:"skipped_by_quota"`
	DetectionFailures int64    `json:"detection_failures"`
	Pending           int64    `json:"pending"`
	TasksSucceeded    int      `json:"tasks_succeeded"`
	TasksFailed       int      `json:"tasks_failed"`
	FailedPartitions  []string `json:"failed_partitions,omitempty"`
	MaxImagesReached  bool     `json:"max_images_reached,omitempty"`
	ReportKey         string   `json:"report_key,omitempty"`
}

// HasLeftovers reports whether the run ended with objects or partitions still unprocessed
func (s RunSummary) HasLeftovers() bool {
	return s.Pending > 0 || s.SkippedByQuota > 0 || s.TasksFailed > 0 || s.MaxImagesReached
}
