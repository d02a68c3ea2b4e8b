package messaging

import (
	"context"
	"time"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// RunCompletedEvent is published once a pipeline run reached a terminal state
type RunCompletedEvent struct {
	RunID         string             `json:"run_id"`
	PartitionDate string             `json:"partition_date"`
	Environment   domain.Environment `json:"environment"`
	CustomerID    string             `json:"customer_id"`
	State         domain.RunState    `json:"state"`
	Summary       domain.RunSummary  `json:"summary"`
	Error         string             `json:"error,omitempty"`
	FinishedAt    time.Time          `json:"finished_at"`
}

// Publisher defines the interface for publishing run events to the message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishRunCompleted publishes the completion event of a pipeline run.
	// Publishing the same event twice is deduplicated by the broker.
	PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error
	// Close closes the connection
	Close()
}
