package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"gocloud.dev/gcerrors"

	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
)

// ObjectHandler is called once per supported object after it is present in the destination store.
// Returning an error aborts the mirror task.
type ObjectHandler func(ctx context.Context, objectKey string) error

// MirrorStats counts what a mirror task did
type MirrorStats struct {
	Listed             int
	Copied             int
	SkippedExisting    int
	SkippedUnsupported int
	SkippedCheckpoint  int
}

//go:generate mockgen -source=objectstore.go -destination=../mocks/objectstore.go -package=mocks -mock_names=Mirror=MockMirror,Uploader=MockUploader

// Mirror copies source partitions into the destination store and reads them back
type Mirror interface {
	// MirrorPartition copies every supported image under the task's source prefix whose key sorts
	// after afterKey, calling onObject for each one in key order
	MirrorPartition(ctx context.Context, task domain.SyncTask, afterKey string, onObject ObjectHandler) (*MirrorStats, error)
	// Read returns the mirrored bytes of an object
	Read(ctx context.Context, identity domain.ObjectIdentity) ([]byte, error)
}

// Uploader writes generated artifacts into the destination store
type Uploader interface {
	// Upload writes data under key relative to the destination prefix and returns the full key
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Options configures a BucketStore
type Options struct {
	// DestinationPrefix is prepended to every destination key
	DestinationPrefix string
	// CopyTimeout bounds a single object copy attempt
	CopyTimeout time.Duration
	// MaxCopyRetries is the number of retries of a failed copy
	MaxCopyRetries int
}

// BucketStore implements Mirror and Uploader on top of gocloud buckets
type BucketStore struct {
	source *blob.Bucket
	dest   *blob.Bucket
	opts   Options
}

// NewBucketStore creates a store over already opened buckets
func NewBucketStore(source, dest *blob.Bucket, opts Options) *BucketStore {
	if opts.CopyTimeout == 0 {
		opts.CopyTimeout = 2 * time.Minute
	}
	opts.DestinationPrefix = strings.Trim(opts.DestinationPrefix, "/")
	return &BucketStore{source: source, dest: dest, opts: opts}
}

// Open opens the source and destination buckets named by the storage configuration
func Open(ctx context.Context, cfg config.StorageConfig) (*BucketStore, error) {
	source, err := blob.OpenBucket(ctx, cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open source bucket: %w", err)
	}

	dest, err := blob.OpenBucket(ctx, cfg.DestinationURL)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("failed to open destination bucket: %w", err)
	}

	return NewBucketStore(source, dest, Options{
		DestinationPrefix: cfg.DestinationPrefix,
		CopyTimeout:       cfg.CopyTimeout,
		MaxCopyRetries:    cfg.MaxCopyRetries,
	}), nil
}

// Close releases both buckets
func (s *BucketStore) Close() error {
	return errors.Join(s.source.Close(), s.dest.Close())
}

// DestinationKey returns the destination key of a mirrored object:
// {prefix}/{environment}/{partition_date}/{object_key}
func (s *BucketStore) DestinationKey(identity domain.ObjectIdentity) string {
	return s.withPrefix(path.Join(string(identity.Environment), domain.FormatPartitionDate(identity.PartitionDate), identity.ObjectKey))
}

func (s *BucketStore) withPrefix(key string) string {
	if s.opts.DestinationPrefix == "" {
		return key
	}
	return s.opts.DestinationPrefix + "/" + key
}

// MirrorPartition lists the task's source prefix and copies supported images into the destination
func (s *BucketStore) MirrorPartition(ctx context.Context, task domain.SyncTask, afterKey string, onObject ObjectHandler) (*MirrorStats, error) {
	if err := task.Partition.Validate(); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(
		zap.String("partition", task.Partition.ID()),
		zap.String("partition_date", domain.FormatPartitionDate(task.PartitionDate)),
		zap.String("environment", string(task.Environment)))

	stats := &MirrorStats{}
	iter := s.source.List(&blob.ListOptions{Prefix: task.Partition.ListPrefix()})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to list source objects: %w", err)
		}
		if obj.IsDir {
			continue
		}
		stats.Listed++

		if !domain.HasSupportedImageExtension(obj.Key) {
			stats.SkippedUnsupported++
			continue
		}
		if afterKey != "" && obj.Key <= afterKey {
			stats.SkippedCheckpoint++
			continue
		}

		identity := domain.NewObjectIdentity(obj.Key, task.PartitionDate, task.Environment)
		copied, err := s.copyWithRetry(ctx, identity, obj)
		if errors.Is(err, domain.ErrUnsupportedObject) {
			log.Warn("Skipping object with unsupported content", zap.String("object_key", obj.Key), zap.Error(err))
			stats.SkippedUnsupported++
			continue
		}
		if err != nil {
			return stats, err
		}
		if copied {
			stats.Copied++
		} else {
			stats.SkippedExisting++
		}

		if err := onObject(ctx, obj.Key); err != nil {
			return stats, err
		}
	}

	log.Info("Mirrored source partition",
		zap.Int("listed", stats.Listed),
		zap.Int("copied", stats.Copied),
		zap.Int("skipped_existing", stats.SkippedExisting),
		zap.Int("skipped_unsupported", stats.SkippedUnsupported),
		zap.Int("skipped_checkpoint", stats.SkippedCheckpoint))

	return stats, nil
}

// copyWithRetry copies one object, retrying transient failures with exponential backoff.
// It reports false when an identical object already exists at the destination.
func (s *BucketStore) copyWithRetry(ctx context.Context, identity domain.ObjectIdentity, src *blob.ListObject) (bool, error) {
	var copied bool
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.CopyTimeout)
		defer cancel()

		var err error
		copied, err = s.copyObject(attemptCtx, identity, src)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrUnsupportedObject) || gcerrors.Code(err) == gcerrors.NotFound {
			return backoff.Permanent(err)
		}
		logger.WarnCtx(ctx, "Copy failed, retrying", zap.String("object_key", identity.ObjectKey), zap.Error(err))
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	retries := backoff.WithMaxRetries(b, uint64(max(s.opts.MaxCopyRetries, 0))) //nolint:gosec,G115

	if err := backoff.Retry(operation, backoff.WithContext(retries, ctx)); err != nil {
		if errors.Is(err, domain.ErrUnsupportedObject) {
			return false, err
		}
		return false, fmt.Errorf("%w: failed to copy %s: %v", domain.ErrTransient, identity.ObjectKey, err)
	}
	return copied, nil
}

func (s *BucketStore) copyObject(ctx context.Context, identity domain.ObjectIdentity, src *blob.ListObject) (bool, error) {
	destKey := s.DestinationKey(identity)

	existing, err := s.dest.Attributes(ctx, destKey)
	switch {
	case err == nil:
		if sameObject(src, existing) {
			return false, nil
		}
	case gcerrors.Code(err) == gcerrors.NotFound:
	default:
		return false, fmt.Errorf("failed to stat destination object: %w", err)
	}

	data, err := s.source.ReadAll(ctx, src.Key)
	if err != nil {
		return false, fmt.Errorf("failed to read source object: %w", err)
	}

	contentType, err := SniffImage(data)
	if err != nil {
		return false, err
	}

	if err := s.dest.WriteAll(ctx, destKey, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return false, fmt.Errorf("failed to write destination object: %w", err)
	}

	return true, nil
}

// sameObject compares size and, when both sides expose it, the MD5 digest
func sameObject(src *blob.ListObject, dest *blob.Attributes) bool {
	if src.Size != dest.Size {
		return false
	}
	if len(src.MD5) > 0 && len(dest.MD5) > 0 {
		return bytes.Equal(src.MD5, dest.MD5)
	}
	return true
}

// Read returns the mirrored bytes of an object
func (s *BucketStore) Read(ctx context.Context, identity domain.ObjectIdentity) ([]byte, error) {
	data, err := s.dest.ReadAll(ctx, s.DestinationKey(identity))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: mirrored object %s is missing", domain.ErrInvariantViolation, identity)
		}
		return nil, fmt.Errorf("%w: failed to read mirrored object: %v", domain.ErrTransient, err)
	}
	return data, nil
}

// Upload writes data under the destination prefix
func (s *BucketStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := s.withPrefix(strings.TrimPrefix(key, "/"))
	if err := s.dest.WriteAll(ctx, fullKey, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fullKey, err)
	}
	return fullKey, nil
}
