package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

// StoreTestSuite provides the interface for running store tests against different implementations
type StoreTestSuite struct {
	Store Store
	// InitDB should be called before each test to initialize the database
	InitDB func(t *testing.T) Store
	// CleanupDB should be called after each test to clean up the database
	CleanupDB func(t *testing.T)
}

// =============================================================================
// Test Data Builders
// =============================================================================

var testDate = time.Date(2030, 5, 17, 0, 0, 0, 0, time.UTC)

func buildTestIdentity(key string) domain.ObjectIdentity {
	return domain.NewObjectIdentity(key, testDate, domain.EnvironmentTest)
}

func buildTestContract(customerID string, limit int64) UpsertContractInput {
	now := time.Now().UTC()
	return UpsertContractInput{
		CustomerID:    customerID,
		ContractLimit: limit,
		StartDate:     now.AddDate(0, 0, -1),
		EndDate:       now.AddDate(0, 1, 0),
		Status:        schema.ContractStatusActive,
	}
}

func ingestAll(t *testing.T, store Store, keys ...string) []domain.ObjectIdentity {
	t.Helper()
	ids := make([]domain.ObjectIdentity, 0, len(keys))
	for _, k := range keys {
		id := buildTestIdentity(k)
		_, err := store.RecordIngested(context.Background(), id, "evt/cust")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func collectPending(t *testing.T, store Store, pageSize int) []string {
	t.Helper()
	var keys []string
	token := ""
	for {
		page, err := store.ListPending(context.Background(), ListPendingInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
			PageToken:     token,
			PageSize:      pageSize,
		})
		require.NoError(t, err)
		for _, id := range page.Identities {
			keys = append(keys, id.ObjectKey)
		}
		if page.NextPageToken == "" {
			return keys
		}
		token = page.NextPageToken
	}
}

// =============================================================================
// Test: Ingestion Ledger
// =============================================================================

func testRecordIngested(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("repeated ingestion creates one record", func(t *testing.T) {
		id := buildTestIdentity("evt/cust/0001_tn_1.jpg")

		outcome, err := store.RecordIngested(ctx, id, "evt/cust")
		require.NoError(t, err)
		assert.Equal(t, RecordCreated, outcome)

		for range 4 {
			outcome, err = store.RecordIngested(ctx, id, "evt/cust")
			require.NoError(t, err)
			assert.Equal(t, RecordAlreadyExisted, outcome)
		}

		exists, err := store.IngestionExists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("same key in another environment is a different identity", func(t *testing.T) {
		id := domain.NewObjectIdentity("evt/cust/0002_tn_1.jpg", testDate, domain.EnvironmentTest)
		prod := domain.NewObjectIdentity("evt/cust/0002_tn_1.jpg", testDate, domain.EnvironmentProduction)

		_, err := store.RecordIngested(ctx, id, "evt/cust")
		require.NoError(t, err)

		exists, err := store.IngestionExists(ctx, prod)
		require.NoError(t, err)
		assert.False(t, exists)

		outcome, err := store.RecordIngested(ctx, prod, "evt/cust")
		require.NoError(t, err)
		assert.Equal(t, RecordCreated, outcome)
	})

	t.Run("invalid identity is rejected", func(t *testing.T) {
		_, err := store.RecordIngested(ctx, domain.ObjectIdentity{ObjectKey: "k", PartitionDate: testDate, Environment: "staging"}, "evt/cust")
		assert.ErrorIs(t, err, domain.ErrInvalidEnvironment)
	})
}

func testListPending(t *testing.T, store Store) {
	ctx := context.Background()

	keys := []string{"a/c/05.jpg", "a/c/01.jpg", "a/c/03.jpg", "a/c/02.jpg", "a/c/04.jpg"}
	ids := ingestAll(t, store, keys...)

	t.Run("pages cover every pending identity once in key order", func(t *testing.T) {
		assert.Equal(t, []string{"a/c/01.jpg", "a/c/02.jpg", "a/c/03.jpg", "a/c/04.jpg", "a/c/05.jpg"}, collectPending(t, store, 2))
	})

	t.Run("exact page size has no next token", func(t *testing.T) {
		page, err := store.ListPending(ctx, ListPendingInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
			PageSize:      5,
		})
		require.NoError(t, err)
		assert.Len(t, page.Identities, 5)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("processed identities are excluded", func(t *testing.T) {
		_, err := store.RecordProcessed(ctx, RecordProcessedInput{Identity: ids[2]}) // a/c/03.jpg
		require.NoError(t, err)

		assert.Equal(t, []string{"a/c/01.jpg", "a/c/02.jpg", "a/c/04.jpg", "a/c/05.jpg"}, collectPending(t, store, 3))

		count, err := store.CountPending(ctx, testDate, domain.EnvironmentTest)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("concurrent inserts do not skip or duplicate existing entries", func(t *testing.T) {
		first, err := store.ListPending(ctx, ListPendingInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
			PageSize:      2,
		})
		require.NoError(t, err)
		require.NotEmpty(t, first.NextPageToken)

		// Keys landing before and after the cursor while the sweep is in flight
		ingestAll(t, store, "a/c/00.jpg", "a/c/06.jpg")

		second, err := store.ListPending(ctx, ListPendingInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
			PageToken:     first.NextPageToken,
			PageSize:      10,
		})
		require.NoError(t, err)

		var got []string
		for _, id := range append(first.Identities, second.Identities...) {
			got = append(got, id.ObjectKey)
		}
		assert.Equal(t, []string{"a/c/01.jpg", "a/c/02.jpg", "a/c/04.jpg", "a/c/05.jpg", "a/c/06.jpg"}, got)
	})

	t.Run("invalid page token", func(t *testing.T) {
		_, err := store.ListPending(ctx, ListPendingInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
			PageToken:     "***",
			PageSize:      2,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
	})

	t.Run("non positive page size", func(t *testing.T) {
		_, err := store.ListPending(ctx, ListPendingInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidRunRequest)
	})
}

// =============================================================================
// Test: Processed Ledger
// =============================================================================

func testRecordProcessed(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("processed without ingestion is an invariant violation", func(t *testing.T) {
		id := buildTestIdentity("evt/cust/never_ingested.jpg")

		_, err := store.RecordProcessed(ctx, RecordProcessedInput{Identity: id})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)

		exists, err := store.ProcessedExists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("records detections once", func(t *testing.T) {
		id := ingestAll(t, store, "evt-9/acme/000123_tn_4.jpg")[0]
		group := "race-10k"

		outcome, err := store.RecordProcessed(ctx, RecordProcessedInput{
			Identity:      id,
			ResultGroupID: &group,
			Detections: []DetectionInput{
				{Tag: "42", Confidence: 0.91, ModelVersions: map[string]string{"ocr": "v3"}},
				{Tag: "42", Confidence: 0.80},
				{Tag: " "},
				{Tag: "1234", Confidence: 0.55},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, RecordCreated, outcome)

		outcome, err = store.RecordProcessed(ctx, RecordProcessedInput{
			Identity:   id,
			Detections: []DetectionInput{{Tag: "999"}},
		})
		require.NoError(t, err)
		assert.Equal(t, RecordAlreadyExisted, outcome)

		exists, err := store.ProcessedExists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists)

		rows, err := store.ListDetectionResults(ctx, ListDetectionsInput{
			PartitionDate: testDate,
			Environment:   domain.EnvironmentTest,
			Limit:         10,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "1234", rows[0].Tag)
		assert.Equal(t, "42", rows[1].Tag)
		assert.Equal(t, "evt-9", rows[1].EventID)
		assert.Equal(t, "acme", rows[1].CustomerID)
		assert.Equal(t, "000123", rows[1].PhotoNum)
		assert.InDelta(t, 0.91, rows[1].Confidence, 0.0001)

		var versions map[string]string
		require.NoError(t, json.Unmarshal(rows[1].ModelVersions, &versions))
		assert.Equal(t, "v3", versions["ocr"])
	})
}

func testListDetectionResultsPaging(t *testing.T, store Store) {
	ctx := context.Background()

	ids := ingestAll(t, store, "e/c/1.jpg", "e/c/2.jpg")
	for i, id := range ids {
		_, err := store.RecordProcessed(ctx, RecordProcessedInput{
			Identity:   id,
			Detections: []DetectionInput{{Tag: fmt.Sprintf("%d0", i)}, {Tag: fmt.Sprintf("%d1", i)}},
		})
		require.NoError(t, err)
	}

	var tags []string
	input := ListDetectionsInput{PartitionDate: testDate, Environment: domain.EnvironmentTest, Limit: 3}
	for {
		rows, err := store.ListDetectionResults(ctx, input)
		require.NoError(t, err)
		for _, r := range rows {
			tags = append(tags, r.Tag)
		}
		if len(rows) < input.Limit {
			break
		}
		last := rows[len(rows)-1]
		input.AfterObjectKey, input.AfterTag = last.ObjectKey, last.Tag
	}

	assert.Equal(t, []string{"00", "01", "10", "11"}, tags)
}

// =============================================================================
// Test: Usage Ledger
// =============================================================================

func testTryReserve(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("limit 5 usage 3 with 4 objects grants 2 and denies 2", func(t *testing.T) {
		require.NoError(t, store.UpsertContract(ctx, buildTestContract("scenario", 5)))

		r, err := store.TryReserve(ctx, "scenario", 3)
		require.NoError(t, err)
		require.True(t, r.Granted)
		assert.Equal(t, int64(2), r.Remaining)

		var granted, denied int
		for range 4 {
			r, err := store.TryReserve(ctx, "scenario", 1)
			require.NoError(t, err)
			if r.Granted {
				granted++
			} else {
				denied++
				assert.Equal(t, int64(0), r.Remaining)
			}
		}
		assert.Equal(t, 2, granted)
		assert.Equal(t, 2, denied)

		contract, err := store.GetContract(ctx, "scenario")
		require.NoError(t, err)
		assert.Equal(t, int64(5), contract.TotalImagesProcessed)
	})

	t.Run("reservation larger than remaining is denied without partial grant", func(t *testing.T) {
		require.NoError(t, store.UpsertContract(ctx, buildTestContract("bulk", 10)))

		r, err := store.TryReserve(ctx, "bulk", 11)
		require.NoError(t, err)
		assert.False(t, r.Granted)
		assert.Equal(t, int64(10), r.Remaining)

		contract, err := store.GetContract(ctx, "bulk")
		require.NoError(t, err)
		assert.Equal(t, int64(0), contract.TotalImagesProcessed)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := store.TryReserve(ctx, "nobody", 1)
		assert.ErrorIs(t, err, domain.ErrContractNotFound)

		_, err = store.GetContract(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})

	t.Run("customer without usage row is not found", func(t *testing.T) {
		pg, ok := store.(*pgStore)
		require.True(t, ok)
		now := time.Now().UTC()
		require.NoError(t, pg.db.WithContext(ctx).Create(&schema.Customer{
			CustomerID:    "seeded",
			ContractLimit: 10,
			StartDate:     now.AddDate(0, 0, -1),
			EndDate:       now.AddDate(0, 1, 0),
			Status:        schema.ContractStatusActive,
		}).Error)

		_, err := store.GetContract(ctx, "seeded")
		assert.ErrorIs(t, err, domain.ErrContractNotFound)

		_, err = store.TryReserve(ctx, "seeded", 1)
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})

	t.Run("contract window uses the UTC date whatever the session time zone", func(t *testing.T) {
		pg, ok := store.(*pgStore)
		require.True(t, ok)
		today := domain.NormalizePartitionDate(time.Now().UTC())
		input := buildTestContract("single-day", 10)
		input.StartDate = today
		input.EndDate = today
		require.NoError(t, store.UpsertContract(ctx, input))

		// Together these two zones are always on a different calendar date than UTC
		for _, zone := range []string{"Pacific/Kiritimati", "Pacific/Pago_Pago"} {
			tx := pg.db.WithContext(ctx).Begin()
			require.NoError(t, tx.Error)
			require.NoError(t, tx.Exec(fmt.Sprintf("SET LOCAL TIME ZONE '%s'", zone)).Error)

			r, err := NewPGStore(tx).TryReserve(ctx, "single-day", 1)
			require.NoError(t, err, zone)
			assert.True(t, r.Granted, zone)
			require.NoError(t, tx.Rollback().Error)
		}
	})

	t.Run("inactive contract denies", func(t *testing.T) {
		input := buildTestContract("paused", 10)
		input.Status = schema.ContractStatusInactive
		require.NoError(t, store.UpsertContract(ctx, input))

		r, err := store.TryReserve(ctx, "paused", 1)
		require.NoError(t, err)
		assert.False(t, r.Granted)
	})

	t.Run("expired contract denies", func(t *testing.T) {
		input := buildTestContract("expired", 10)
		input.StartDate = time.Now().UTC().AddDate(0, -2, 0)
		input.EndDate = time.Now().UTC().AddDate(0, -1, 0)
		require.NoError(t, store.UpsertContract(ctx, input))

		r, err := store.TryReserve(ctx, "expired", 1)
		require.NoError(t, err)
		assert.False(t, r.Granted)

		contract, err := store.GetContract(ctx, "expired")
		require.NoError(t, err)
		assert.False(t, contract.ActiveOn(time.Now()))
	})

	t.Run("non positive count", func(t *testing.T) {
		_, err := store.TryReserve(ctx, "scenario", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidRunRequest)
	})
}

func testUpsertContract(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.UpsertContract(ctx, buildTestContract("growing", 2)))
	r, err := store.TryReserve(ctx, "growing", 2)
	require.NoError(t, err)
	require.True(t, r.Granted)

	// Raising the limit keeps usage
	require.NoError(t, store.UpsertContract(ctx, buildTestContract("growing", 4)))
	contract, err := store.GetContract(ctx, "growing")
	require.NoError(t, err)
	assert.Equal(t, int64(4), contract.ContractLimit)
	assert.Equal(t, int64(2), contract.TotalImagesProcessed)
	assert.Equal(t, int64(2), contract.Remaining())
	assert.True(t, contract.ActiveOn(time.Now()))

	bad := buildTestContract("bad", 1)
	bad.EndDate = bad.StartDate.AddDate(0, 0, -1)
	assert.ErrorIs(t, store.UpsertContract(ctx, bad), domain.ErrInvalidRunRequest)
}

// =============================================================================
// Test: Partitions
// =============================================================================

func testPartitionIsolation(t *testing.T, store Store) {
	ctx := context.Background()
	otherDate := testDate.AddDate(0, 0, 1)

	// Rows written before the partition exists land in the default partition and must move
	kept := domain.NewObjectIdentity("evt/cust/kept.jpg", otherDate, domain.EnvironmentTest)
	_, err := store.RecordIngested(ctx, kept, "evt/cust")
	require.NoError(t, err)
	dropped := ingestAll(t, store, "evt/cust/dropped.jpg")[0]

	require.NoError(t, store.EnsurePartition(ctx, testDate))
	require.NoError(t, store.EnsurePartition(ctx, testDate)) // idempotent
	require.NoError(t, store.EnsurePartition(ctx, otherDate))

	exists, err := store.IngestionExists(ctx, dropped)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.RecordProcessed(ctx, RecordProcessedInput{Identity: dropped, Detections: []DetectionInput{{Tag: "7"}}})
	require.NoError(t, err)
	_, err = store.RecordProcessed(ctx, RecordProcessedInput{Identity: kept})
	require.NoError(t, err)

	task := domain.SyncTask{Partition: domain.SourcePartition{EventID: "evt", CustomerID: "cust"}, PartitionDate: testDate, Environment: domain.EnvironmentTest}
	require.NoError(t, store.SetMirrorCheckpoint(ctx, task, "evt/cust/dropped.jpg"))

	require.NoError(t, store.DropPartition(ctx, testDate))

	exists, err = store.IngestionExists(ctx, dropped)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = store.ProcessedExists(ctx, dropped)
	require.NoError(t, err)
	assert.False(t, exists)
	checkpoint, err := store.GetMirrorCheckpoint(ctx, task)
	require.NoError(t, err)
	assert.Empty(t, checkpoint)

	exists, err = store.IngestionExists(ctx, kept)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.ProcessedExists(ctx, kept)
	require.NoError(t, err)
	assert.True(t, exists)

	// The dropped date accepts new writes again
	outcome, err := store.RecordIngested(ctx, dropped, "evt/cust")
	require.NoError(t, err)
	assert.Equal(t, RecordCreated, outcome)
}

// =============================================================================
// Test: Mirror checkpoints
// =============================================================================

func testMirrorCheckpoint(t *testing.T, store Store) {
	ctx := context.Background()
	task := domain.SyncTask{Partition: domain.SourcePartition{EventID: "e1", CustomerID: "c1"}, PartitionDate: testDate, Environment: domain.EnvironmentTest}

	checkpoint, err := store.GetMirrorCheckpoint(ctx, task)
	require.NoError(t, err)
	assert.Empty(t, checkpoint)

	require.NoError(t, store.SetMirrorCheckpoint(ctx, task, "e1/c1/001.jpg"))
	require.NoError(t, store.SetMirrorCheckpoint(ctx, task, "e1/c1/002.jpg"))

	checkpoint, err = store.GetMirrorCheckpoint(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "e1/c1/002.jpg", checkpoint)

	prod := task
	prod.Environment = domain.EnvironmentProduction
	checkpoint, err = store.GetMirrorCheckpoint(ctx, prod)
	require.NoError(t, err)
	assert.Empty(t, checkpoint)
}

// =============================================================================
// Test: Pipeline Runs
// =============================================================================

func testPipelineRuns(t *testing.T, store Store) {
	ctx := context.Background()

	run, err := store.CreatePipelineRun(ctx, CreatePipelineRunInput{
		ID:            "01HZX0000000000000000000AA",
		PartitionDate: testDate,
		Environment:   domain.EnvironmentTest,
		CustomerID:    "allsports",
		StartedAt:     time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStateIdle, run.State)

	later, err := store.CreatePipelineRun(ctx, CreatePipelineRunInput{
		ID:            "01HZX0000000000000000000BB",
		PartitionDate: testDate,
		Environment:   domain.EnvironmentTest,
		CustomerID:    "allsports",
	})
	require.NoError(t, err)

	finished := time.Now().UTC()
	errMsg := "boom"
	require.NoError(t, store.UpdatePipelineRun(ctx, run.ID, UpdatePipelineRunInput{
		State:      domain.RunStateFailed,
		Summary:    &domain.RunSummary{Ingested: 3, Processed: 1, Pending: 2},
		Error:      &errMsg,
		FinishedAt: &finished,
	}))

	got, err := store.GetPipelineRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RunStateFailed, got.State)
	require.NotNil(t, got.Error)
	assert.Equal(t, "boom", *got.Error)
	assert.NotNil(t, got.FinishedAt)

	var summary domain.RunSummary
	require.NoError(t, json.Unmarshal(got.Summary, &summary))
	assert.Equal(t, int64(3), summary.Ingested)
	assert.Equal(t, int64(2), summary.Pending)

	latest, err := store.GetLatestPipelineRun(ctx, testDate, domain.EnvironmentTest)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, later.ID, latest.ID)

	restarted, err := store.CreatePipelineRun(ctx, CreatePipelineRunInput{
		ID:            run.ID,
		PartitionDate: testDate,
		Environment:   domain.EnvironmentTest,
		CustomerID:    "allsports",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStateIdle, restarted.State)

	got, err = store.GetPipelineRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RunStateIdle, got.State)
	assert.Nil(t, got.Error)
	assert.Nil(t, got.FinishedAt)

	missing, err := store.GetPipelineRun(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = store.UpdatePipelineRun(ctx, "missing", UpdatePipelineRunInput{State: domain.RunStateCompleted})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestPageToken(t *testing.T) {
	key, err := DecodePageToken(EncodePageToken("evt/cust/ü 1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "evt/cust/ü 1.jpg", key)

	key, err = DecodePageToken("")
	require.NoError(t, err)
	assert.Empty(t, key)

	_, err = DecodePageToken("!!")
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"RecordIngested", testRecordIngested},
		{"ListPending", testListPending},
		{"RecordProcessed", testRecordProcessed},
		{"ListDetectionResultsPaging", testListDetectionResultsPaging},
		{"TryReserve", testTryReserve},
		{"UpsertContract", testUpsertContract},
		{"PartitionIsolation", testPartitionIsolation},
		{"MirrorCheckpoint", testMirrorCheckpoint},
		{"PipelineRuns", testPipelineRuns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
