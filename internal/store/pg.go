package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

// partitionedTables are the ledger tables range-partitioned by partition_date
var partitionedTables = []string{
	schema.IngestionRecord{}.TableName(),
	schema.ProcessedRecord{}.TableName(),
	schema.DetectionResult{}.TableName(),
}

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// =============================================================================
// Ingestion Ledger
// =============================================================================

// RecordIngested records that an object was mirrored for its partition date
func (s *pgStore) RecordIngested(ctx context.Context, identity domain.ObjectIdentity, sourcePartition string) (RecordOutcome, error) {
	if err := identity.Validate(); err != nil {
		return "", err
	}

	record := schema.IngestionRecord{
		ObjectKey:       identity.ObjectKey,
		PartitionDate:   identity.PartitionDate,
		Environment:     identity.Environment,
		SourcePartition: sourcePartition,
		IngestedAt:      time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return "", fmt.Errorf("failed to record ingestion: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return RecordAlreadyExisted, nil
	}
	return RecordCreated, nil
}

// IngestionExists checks if an object was recorded as mirrored
func (s *pgStore) IngestionExists(ctx context.Context, identity domain.ObjectIdentity) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).
		Raw(`SELECT EXISTS (SELECT 1 FROM ingestion_records WHERE partition_date = ? AND environment = ? AND object_key = ?)`,
			domain.FormatPartitionDate(identity.PartitionDate), identity.Environment, identity.ObjectKey).
		Scan(&exists).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ingestion: %w", err)
	}
	return exists, nil
}

// pendingQuery selects ingestion rows of a partition date without a processed counterpart
func (s *pgStore) pendingQuery(ctx context.Context, partitionDate time.Time, env domain.Environment) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&schema.IngestionRecord{}).
		Where("ingestion_records.partition_date = ? AND ingestion_records.environment = ?",
			domain.FormatPartitionDate(partitionDate), env).
		Where(`NOT EXISTS (
			SELECT 1 FROM processed_records p
			WHERE p.partition_date = ingestion_records.partition_date
			AND p.environment = ingestion_records.environment
			AND p.object_key = ingestion_records.object_key)`)
}

// ListPending returns one page of pending identities using keyset pagination on object_key
func (s *pgStore) ListPending(ctx context.Context, input ListPendingInput) (*PendingPage, error) {
	if input.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive", domain.ErrInvalidRunRequest)
	}
	if !domain.IsValidEnvironment(input.Environment) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidEnvironment, input.Environment)
	}

	afterKey, err := DecodePageToken(input.PageToken)
	if err != nil {
		return nil, err
	}

	query := s.pendingQuery(ctx, input.PartitionDate, input.Environment)
	if afterKey != "" {
		query = query.Where("ingestion_records.object_key > ?", afterKey)
	}

	var records []schema.IngestionRecord
	err = query.
		Order("ingestion_records.object_key ASC").
		Limit(input.PageSize + 1).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending objects: %w", err)
	}

	page := &PendingPage{}
	if len(records) > input.PageSize {
		records = records[:input.PageSize]
		page.NextPageToken = EncodePageToken(records[len(records)-1].ObjectKey)
	}

	page.Identities = make([]domain.ObjectIdentity, 0, len(records))
	for _, r := range records {
		page.Identities = append(page.Identities, r.Identity())
	}

	return page, nil
}

// CountPending counts ingested identities of a partition date without a processed record
func (s *pgStore) CountPending(ctx context.Context, partitionDate time.Time, env domain.Environment) (int64, error) {
	var count int64
	if err := s.pendingQuery(ctx, partitionDate, env).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pending objects: %w", err)
	}
	return count, nil
}

// EncodePageToken encodes the last object key of a page as an opaque token
func EncodePageToken(objectKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(objectKey))
}

// DecodePageToken decodes a token produced by EncodePageToken. An empty token decodes to "".
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) == 0 {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPageToken, token)
	}
	return string(raw), nil
}

// =============================================================================
// Processed Ledger
// =============================================================================

// RecordProcessed records a processed object and its detections in a single transaction
func (s *pgStore) RecordProcessed(ctx context.Context, input RecordProcessedInput) (RecordOutcome, error) {
	identity := input.Identity
	if err := identity.Validate(); err != nil {
		return "", err
	}

	date := domain.FormatPartitionDate(identity.PartitionDate)
	outcome := RecordCreated

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the ingestion row so a concurrent partition drop cannot orphan the processed row
		var found int
		result := tx.Raw(`SELECT 1 FROM ingestion_records WHERE partition_date = ? AND environment = ? AND object_key = ? FOR KEY SHARE`,
			date, identity.Environment, identity.ObjectKey).
			Scan(&found)
		if result.Error != nil {
			return fmt.Errorf("failed to check ingestion record: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: processed record for %s without ingestion record", domain.ErrInvariantViolation, identity)
		}

		now := time.Now().UTC()
		record := schema.ProcessedRecord{
			ObjectKey:     identity.ObjectKey,
			PartitionDate: identity.PartitionDate,
			Environment:   identity.Environment,
			ResultGroupID: input.ResultGroupID,
			ProcessedAt:   now,
		}
		result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if result.Error != nil {
			return fmt.Errorf("failed to record processed object: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			outcome = RecordAlreadyExisted
			return nil
		}

		rows, err := detectionRows(identity, input.Detections, now)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to record detection results: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return outcome, nil
}

// detectionRows builds one row per distinct non-empty tag
func detectionRows(identity domain.ObjectIdentity, detections []DetectionInput, now time.Time) ([]schema.DetectionResult, error) {
	info := domain.ParseSourceKey(identity.ObjectKey)
	seen := make(map[string]struct{}, len(detections))
	rows := make([]schema.DetectionResult, 0, len(detections))

	for _, d := range detections {
		tag := strings.TrimSpace(d.Tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		var versions datatypes.JSON
		if len(d.ModelVersions) > 0 {
			raw, err := json.Marshal(d.ModelVersions)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal model versions: %w", err)
			}
			versions = raw
		}

		rows = append(rows, schema.DetectionResult{
			ObjectKey:     identity.ObjectKey,
			PartitionDate: identity.PartitionDate,
			Environment:   identity.Environment,
			Tag:           tag,
			EventID:       info.EventID,
			CustomerID:    info.CustomerID,
			PhotoNum:      info.PhotoNum,
			Confidence:    d.Confidence,
			ModelVersions: versions,
			DetectedAt:    now,
		})
	}

	return rows, nil
}

// ProcessedExists checks if an object was recorded as processed
func (s *pgStore) ProcessedExists(ctx context.Context, identity domain.ObjectIdentity) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).
		Raw(`SELECT EXISTS (SELECT 1 FROM processed_records WHERE partition_date = ? AND environment = ? AND object_key = ?)`,
			domain.FormatPartitionDate(identity.PartitionDate), identity.Environment, identity.ObjectKey).
		Scan(&exists).Error
	if err != nil {
		return false, fmt.Errorf("failed to check processed record: %w", err)
	}
	return exists, nil
}

// ListDetectionResults returns detection rows of a partition date ordered by object key and tag
func (s *pgStore) ListDetectionResults(ctx context.Context, input ListDetectionsInput) ([]schema.DetectionResult, error) {
	if input.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidRunRequest)
	}

	query := s.db.WithContext(ctx).
		Where("partition_date = ? AND environment = ?", domain.FormatPartitionDate(input.PartitionDate), input.Environment)
	if input.AfterObjectKey != "" {
		query = query.Where("(object_key, tag) > (?, ?)", input.AfterObjectKey, input.AfterTag)
	}

	var rows []schema.DetectionResult
	err := query.Order("object_key ASC, tag ASC").Limit(input.Limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detection results: %w", err)
	}
	return rows, nil
}

// =============================================================================
// Usage Ledger
// =============================================================================

// TryReserve reserves count images with a single conditional update.
// The counter only moves when the contract is active, today is inside its window
// and the new total stays within the limit, so concurrent callers can never overshoot.
func (s *pgStore) TryReserve(ctx context.Context, customerID string, count int64) (*Reservation, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: reservation count must be positive", domain.ErrInvalidRunRequest)
	}

	var remaining []int64
	err := s.db.WithContext(ctx).Raw(`
		UPDATE customer_usage u
		SET total_images_processed = u.total_images_processed + @count, updated_at = now()
		FROM customers c
		WHERE u.customer_id = c.customer_id
		AND u.customer_id = @customer_id
		AND c.status = 'active'
		AND (now() AT TIME ZONE 'UTC')::date BETWEEN c.start_date AND c.end_date
		AND u.total_images_processed + @count <= c.contract_limit
		RETURNING c.contract_limit - u.total_images_processed`,
		map[string]any{"count": count, "customer_id": customerID}).
		Scan(&remaining).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reserve quota: %w", err)
	}

	if len(remaining) > 0 {
		return &Reservation{Granted: true, Remaining: remaining[0]}, nil
	}

	// Denied: distinguish an exhausted or inactive contract from a missing one
	contract, err := s.GetContract(ctx, customerID)
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Quota reservation denied",
		zap.String("customer_id", customerID),
		zap.Int64("count", count),
		zap.Int64("total", contract.TotalImagesProcessed),
		zap.Int64("limit", contract.ContractLimit),
		zap.String("status", string(contract.Status)))

	return &Reservation{Granted: false, Remaining: contract.Remaining()}, nil
}

// GetContract returns the customer contract joined with its usage.
// A customer without a usage row cannot reserve anything and is reported as not found.
func (s *pgStore) GetContract(ctx context.Context, customerID string) (*Contract, error) {
	var contracts []Contract
	err := s.db.WithContext(ctx).
		Table("customers c").
		Select(`c.customer_id, c.contract_limit, c.start_date, c.end_date, c.status,
			u.total_images_processed`).
		Joins("JOIN customer_usage u ON u.customer_id = c.customer_id").
		Where("c.customer_id = ?", customerID).
		Limit(1).
		Scan(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	if len(contracts) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, customerID)
	}

	return &contracts[0], nil
}

// UpsertContract creates or updates a customer contract. Usage is never reset.
func (s *pgStore) UpsertContract(ctx context.Context, input UpsertContractInput) error {
	if input.CustomerID == "" {
		return fmt.Errorf("%w: customer id is required", domain.ErrInvalidRunRequest)
	}
	if input.ContractLimit < 0 {
		return fmt.Errorf("%w: contract limit must not be negative", domain.ErrInvalidRunRequest)
	}
	if input.EndDate.Before(input.StartDate) {
		return fmt.Errorf("%w: contract ends before it starts", domain.ErrInvalidRunRequest)
	}
	status := input.Status
	if status == "" {
		status = schema.ContractStatusActive
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer := schema.Customer{
			CustomerID:    input.CustomerID,
			ContractLimit: input.ContractLimit,
			StartDate:     domain.NormalizePartitionDate(input.StartDate),
			EndDate:       domain.NormalizePartitionDate(input.EndDate),
			Status:        status,
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"contract_limit": customer.ContractLimit,
				"start_date":     customer.StartDate,
				"end_date":       customer.EndDate,
				"status":         customer.Status,
				"updated_at":     gorm.Expr("now()"),
			}),
		}).Create(&customer).Error
		if err != nil {
			return fmt.Errorf("failed to upsert customer: %w", err)
		}

		usage := schema.CustomerUsage{CustomerID: input.CustomerID}
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&usage).Error
		if err != nil {
			return fmt.Errorf("failed to create customer usage: %w", err)
		}

		return nil
	})
}

// =============================================================================
// Partition Maintenance
// =============================================================================

func partitionTableName(table string, partitionDate time.Time) string {
	return fmt.Sprintf("%s_p%s", table, partitionDate.UTC().Format("20060102"))
}

// EnsurePartition creates the ledger partitions of a partition date.
// Rows already written to the default partitions for that date are moved into the new partition.
func (s *pgStore) EnsurePartition(ctx context.Context, partitionDate time.Time) error {
	from := domain.NormalizePartitionDate(partitionDate)
	to := from.AddDate(0, 0, 1)

	for _, table := range partitionedTables {
		name := partitionTableName(table, from)

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Serialize creators of the same partition
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", name).Error; err != nil {
				return fmt.Errorf("failed to lock partition %s: %w", name, err)
			}

			var exists bool
			if err := tx.Raw("SELECT to_regclass(?) IS NOT NULL", name).Scan(&exists).Error; err != nil {
				return fmt.Errorf("failed to check partition %s: %w", name, err)
			}
			if exists {
				return nil
			}

			statements := []string{
				fmt.Sprintf(`CREATE TABLE %s (LIKE %s INCLUDING DEFAULTS INCLUDING CONSTRAINTS)`, name, table),
				fmt.Sprintf(`WITH moved AS (DELETE FROM %s_default WHERE partition_date = '%s' RETURNING *) INSERT INTO %s SELECT * FROM moved`,
					table, domain.FormatPartitionDate(from), name),
				fmt.Sprintf(`ALTER TABLE %s ATTACH PARTITION %s FOR VALUES FROM ('%s') TO ('%s')`,
					table, name, domain.FormatPartitionDate(from), domain.FormatPartitionDate(to)),
			}
			for _, stmt := range statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("failed to create partition %s: %w", name, err)
				}
			}

			logger.InfoCtx(ctx, "Created ledger partition", zap.String("partition", name))
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// DropPartition removes every ledger row and mirror checkpoint of a partition date
// without touching any other date
func (s *pgStore) DropPartition(ctx context.Context, partitionDate time.Time) error {
	date := domain.NormalizePartitionDate(partitionDate)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range partitionedTables {
			name := partitionTableName(table, date)
			if err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", name)).Error; err != nil {
				return fmt.Errorf("failed to drop partition %s: %w", name, err)
			}
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s_default WHERE partition_date = ?", table),
				domain.FormatPartitionDate(date)).Error; err != nil {
				return fmt.Errorf("failed to purge default partition of %s: %w", table, err)
			}
		}

		if err := tx.Where("key LIKE ?", mirrorCheckpointPrefix(date)+"%").
			Delete(&schema.KeyValueStore{}).Error; err != nil {
			return fmt.Errorf("failed to delete mirror checkpoints: %w", err)
		}

		logger.InfoCtx(ctx, "Dropped ledger partition", zap.String("partition_date", domain.FormatPartitionDate(date)))
		return nil
	})
}

// =============================================================================
// Pipeline Runs
// =============================================================================

// CreatePipelineRun registers a new pipeline run in the idle state
func (s *pgStore) CreatePipelineRun(ctx context.Context, input CreatePipelineRunInput) (*schema.PipelineRun, error) {
	startedAt := input.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	run := &schema.PipelineRun{
		ID:            input.ID,
		PartitionDate: domain.NormalizePartitionDate(input.PartitionDate),
		Environment:   input.Environment,
		CustomerID:    input.CustomerID,
		State:         domain.RunStateIdle,
		WorkflowID:    input.WorkflowID,
		StartedAt:     startedAt,
	}

	// A retried run keeps its ID and starts over from the idle state
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"state":       domain.RunStateIdle,
				"started_at":  startedAt,
				"finished_at": nil,
				"error":       nil,
				"workflow_id": input.WorkflowID,
				"updated_at":  time.Now().UTC(),
			}),
		}).
		Create(run).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return run, nil
}

// UpdatePipelineRun updates the state and summary of a pipeline run
func (s *pgStore) UpdatePipelineRun(ctx context.Context, id string, input UpdatePipelineRunInput) error {
	updates := map[string]any{
		"state":      input.State,
		"updated_at": time.Now().UTC(),
	}
	if input.Summary != nil {
		raw, err := json.Marshal(input.Summary)
		if err != nil {
			return fmt.Errorf("failed to marshal run summary: %w", err)
		}
		updates["summary"] = datatypes.JSON(raw)
	}
	if input.Error != nil {
		updates["error"] = *input.Error
	}
	if input.FinishedAt != nil {
		updates["finished_at"] = *input.FinishedAt
	}

	result := s.db.WithContext(ctx).
		Model(&schema.PipelineRun{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update pipeline run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}

	return nil
}

// GetPipelineRun retrieves a pipeline run by ID
func (s *pgStore) GetPipelineRun(ctx context.Context, id string) (*schema.PipelineRun, error) {
	var run schema.PipelineRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return &run, nil
}

// GetLatestPipelineRun retrieves the most recently started run of a partition date
func (s *pgStore) GetLatestPipelineRun(ctx context.Context, partitionDate time.Time, env domain.Environment) (*schema.PipelineRun, error) {
	var run schema.PipelineRun
	err := s.db.WithContext(ctx).
		Where("partition_date = ? AND environment = ?", domain.FormatPartitionDate(partitionDate), env).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest pipeline run: %w", err)
	}
	return &run, nil
}

// Ping checks database connectivity
func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
