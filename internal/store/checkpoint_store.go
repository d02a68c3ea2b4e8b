package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

func mirrorCheckpointPrefix(partitionDate time.Time) string {
	return fmt.Sprintf("mirror_checkpoint:%s:", domain.FormatPartitionDate(partitionDate))
}

func mirrorCheckpointKey(task domain.SyncTask) string {
	return fmt.Sprintf("%s%s:%s", mirrorCheckpointPrefix(task.PartitionDate), task.Environment, task.Partition.ListPrefix())
}

// GetMirrorCheckpoint retrieves the last object key a mirror task recorded in the ingestion ledger
func (s *pgStore) GetMirrorCheckpoint(ctx context.Context, task domain.SyncTask) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", mirrorCheckpointKey(task)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil // No checkpoint, start from the beginning
		}
		return "", fmt.Errorf("failed to get mirror checkpoint: %w", err)
	}

	return kv.Value, nil
}

// SetMirrorCheckpoint stores the last object key a mirror task recorded in the ingestion ledger
func (s *pgStore) SetMirrorCheckpoint(ctx context.Context, task domain.SyncTask, objectKey string) error {
	kv := schema.KeyValueStore{
		Key:   mirrorCheckpointKey(task),
		Value: objectKey,
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set mirror checkpoint: %w", err)
	}

	return nil
}
