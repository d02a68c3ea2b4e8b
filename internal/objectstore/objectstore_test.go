package objectstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

var (
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 64)...)
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}, make([]byte, 64)...)
)

func setupTestStore(t *testing.T) (*BucketStore, *blob.Bucket, *blob.Bucket) {
	t.Helper()
	source := memblob.OpenBucket(nil)
	dest := memblob.OpenBucket(nil)
	store := NewBucketStore(source, dest, Options{DestinationPrefix: "/mirror/", MaxCopyRetries: 1})
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, source, dest
}

func writeSource(t *testing.T, b *blob.Bucket, objects map[string][]byte) {
	t.Helper()
	for k, v := range objects {
		require.NoError(t, b.WriteAll(context.Background(), k, v, nil))
	}
}

func testTask() domain.SyncTask {
	return domain.SyncTask{
		Partition:     domain.SourcePartition{EventID: "evt", CustomerID: "cust"},
		PartitionDate: time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
		Environment:   domain.EnvironmentTest,
	}
}

func TestMirrorPartition_CopiesSupportedImages(t *testing.T) {
	ctx := context.Background()
	store, source, dest := setupTestStore(t)

	writeSource(t, source, map[string][]byte{
		"evt/cust/001_tn_1.jpg": jpegBytes,
		"evt/cust/002_tn_1.png": pngBytes,
		"evt/cust/notes.txt":    []byte("not an image"),
		"evt/cust/fake.jpg":     []byte("plain text pretending to be a jpeg"),
		"evt/other/003.jpg":     jpegBytes,
	})

	var seen []string
	stats, err := store.MirrorPartition(ctx, testTask(), "", func(_ context.Context, key string) error {
		seen = append(seen, key)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"evt/cust/001_tn_1.jpg", "evt/cust/002_tn_1.png"}, seen)
	assert.Equal(t, 4, stats.Listed)
	assert.Equal(t, 2, stats.Copied)
	assert.Equal(t, 2, stats.SkippedUnsupported)

	attrs, err := dest.Attributes(ctx, "mirror/test/2024-03-17/evt/cust/001_tn_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", attrs.ContentType)

	exists, err := dest.Exists(ctx, "mirror/test/2024-03-17/evt/cust/fake.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMirrorPartition_RepeatSkipsIdenticalObjects(t *testing.T) {
	ctx := context.Background()
	store, source, _ := setupTestStore(t)
	writeSource(t, source, map[string][]byte{"evt/cust/001.jpg": jpegBytes})

	noop := func(context.Context, string) error { return nil }

	first, err := store.MirrorPartition(ctx, testTask(), "", noop)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Copied)

	second, err := store.MirrorPartition(ctx, testTask(), "", noop)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Copied)
	assert.Equal(t, 1, second.SkippedExisting)
}

func TestMirrorPartition_OverwritesChangedObjects(t *testing.T) {
	ctx := context.Background()
	store, source, dest := setupTestStore(t)
	task := testTask()
	writeSource(t, source, map[string][]byte{"evt/cust/001.jpg": jpegBytes})

	identity := domain.NewObjectIdentity("evt/cust/001.jpg", task.PartitionDate, task.Environment)
	require.NoError(t, dest.WriteAll(ctx, store.DestinationKey(identity), []byte("stale"), nil))

	stats, err := store.MirrorPartition(ctx, task, "", func(context.Context, string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Copied)

	data, err := store.Read(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, data)
}

func TestMirrorPartition_ResumesAfterCheckpoint(t *testing.T) {
	ctx := context.Background()
	store, source, _ := setupTestStore(t)
	writeSource(t, source, map[string][]byte{
		"evt/cust/001.jpg": jpegBytes,
		"evt/cust/002.jpg": jpegBytes,
		"evt/cust/003.jpg": jpegBytes,
	})

	var seen []string
	stats, err := store.MirrorPartition(ctx, testTask(), "evt/cust/002.jpg", func(_ context.Context, key string) error {
		seen = append(seen, key)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"evt/cust/003.jpg"}, seen)
	assert.Equal(t, 2, stats.SkippedCheckpoint)
}

func TestMirrorPartition_HandlerErrorAbortsTask(t *testing.T) {
	ctx := context.Background()
	store, source, _ := setupTestStore(t)
	writeSource(t, source, map[string][]byte{
		"evt/cust/001.jpg": jpegBytes,
		"evt/cust/002.jpg": jpegBytes,
	})

	ledgerErr := errors.New("ledger unavailable")
	calls := 0
	_, err := store.MirrorPartition(ctx, testTask(), "", func(context.Context, string) error {
		calls++
		return ledgerErr
	})
	assert.ErrorIs(t, err, ledgerErr)
	assert.Equal(t, 1, calls)
}

func TestMirrorPartition_InvalidPartition(t *testing.T) {
	store, _, _ := setupTestStore(t)
	task := testTask()
	task.Partition = domain.SourcePartition{}

	_, err := store.MirrorPartition(context.Background(), task, "", func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, domain.ErrInvalidPartition)
}

func TestRead_MissingObject(t *testing.T) {
	store, _, _ := setupTestStore(t)
	task := testTask()

	_, err := store.Read(context.Background(), domain.NewObjectIdentity("evt/cust/missing.jpg", task.PartitionDate, task.Environment))
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	store, _, dest := setupTestStore(t)

	key, err := store.Upload(ctx, "reports/test/2024-03-17/bibs.csv", []byte("eid,cid,photonum,tag\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "mirror/reports/test/2024-03-17/bibs.csv", key)

	data, err := dest.ReadAll(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "eid,cid,photonum,tag\n", string(data))
}

func TestSniffImage(t *testing.T) {
	ct, err := SniffImage(jpegBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	ct, err = SniffImage(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, err = SniffImage(nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedObject)

	_, err = SniffImage([]byte("hello"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedObject)
}
