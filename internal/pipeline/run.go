package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/store"
)

// allowedTransitions lists the non-failure transitions of the run state machine.
// Failed is reachable from every non-terminal state.
var allowedTransitions = map[domain.RunState]domain.RunState{
	domain.RunStateIdle:       domain.RunStateMirroring,
	domain.RunStateMirroring:  domain.RunStateReady,
	domain.RunStateReady:      domain.RunStateProcessing,
	domain.RunStateProcessing: domain.RunStateCompleted,
}

// run holds the mutable state of one pipeline run
type run struct {
	id  string
	req RunRequest
	log *zap.Logger

	mu    sync.Mutex
	state domain.RunState

	// readiness handshake between mirroring and processing
	readyCh   chan struct{}
	readyOnce sync.Once
	mirrorCh  chan struct{}

	// mirroring counters
	ingested        atomic.Int64
	alreadyIngested atomic.Int64
	tasksSucceeded  int
	tasksFailed     int
	failedParts     []string

	// processing counters
	processed         atomic.Int64
	skippedByQuota    atomic.Int64
	detectionFailures atomic.Int64
	reserveAttempts   atomic.Int64
	maxImagesReached  atomic.Bool
	quotaExhausted    atomic.Bool

	fatalOnce sync.Once
	fatalErr  error
}

func newRun(id string, req RunRequest, log *zap.Logger) *run {
	return &run{
		id:       id,
		req:      req,
		log:      log,
		state:    domain.RunStateIdle,
		readyCh:  make(chan struct{}),
		mirrorCh: make(chan struct{}),
	}
}

func (r *run) currentState() domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// advance moves the run to the next state, rejecting transitions the state machine does not allow
func (r *run) advance(to domain.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.IsTerminal() {
		return fmt.Errorf("%w: run %s is already %s", domain.ErrInvariantViolation, r.id, r.state)
	}
	if to != domain.RunStateFailed && allowedTransitions[r.state] != to {
		return fmt.Errorf("%w: transition %s -> %s is not allowed", domain.ErrInvariantViolation, r.state, to)
	}

	r.log.Info("Run state changed", zap.String("from", string(r.state)), zap.String("to", string(to)))
	r.state = to
	return nil
}

// observeMirrored counts one object mirrored during this run and fires readiness at the threshold
func (r *run) observeMirrored(outcome store.RecordOutcome) {
	if outcome == store.RecordCreated {
		r.ingested.Add(1)
	} else {
		r.alreadyIngested.Add(1)
	}

	threshold := int64(r.req.ReadyThreshold)
	if threshold > 0 && r.ingested.Load()+r.alreadyIngested.Load() >= threshold {
		r.signalReady()
	}
}

func (r *run) signalReady() {
	r.readyOnce.Do(func() {
		close(r.readyCh)
	})
}

func (r *run) mirroringDone() bool {
	select {
	case <-r.mirrorCh:
		return true
	default:
		return false
	}
}

// fail records the first fatal error of the run
func (r *run) fail(err error) {
	r.fatalOnce.Do(func() {
		r.mu.Lock()
		r.fatalErr = err
		r.mu.Unlock()
	})
}

func (r *run) fatal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatalErr
}

// tryAttempt claims one reservation attempt under max_images
func (r *run) tryAttempt() bool {
	if r.req.MaxImages <= 0 {
		r.reserveAttempts.Add(1)
		return true
	}
	if r.reserveAttempts.Add(1) > int64(r.req.MaxImages) {
		r.reserveAttempts.Add(-1)
		r.maxImagesReached.Store(true)
		return false
	}
	return true
}

func (r *run) summary() domain.RunSummary {
	r.mu.Lock()
	failed := append([]string(nil), r.failedParts...)
	succeeded, failedCount := r.tasksSucceeded, r.tasksFailed
	r.mu.Unlock()

	return domain.RunSummary{
		Ingested:          r.ingested.Load(),
		AlreadyIngested:   r.alreadyIngested.Load(),
		Processed:         r.processed.Load(),
		SkippedByQuota:    r.skippedByQuota.Load(),
		DetectionFailures: r.detectionFailures.Load(),
		TasksSucceeded:    succeeded,
		TasksFailed:       failedCount,
		FailedPartitions:  failed,
		MaxImagesReached:  r.maxImagesReached.Load(),
	}
}

// logFields returns the fields attached to every entry of the run
func logFields(id string, req RunRequest) []zap.Field {
	return []zap.Field{
		zap.String("run_id", id),
		zap.String("partition_date", domain.FormatPartitionDate(req.PartitionDate)),
		zap.String("environment", string(req.Environment)),
		zap.String("customer_id", req.CustomerID),
	}
}
