package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/scheduler"
)

// mirrorPartitions runs one mirror task per source partition and closes the run's mirror channel when all finished
func (c *Coordinator) mirrorPartitions(ctx context.Context, r *run) {
	defer close(r.mirrorCh)

	sched := scheduler.New(func(ctx context.Context, task domain.SyncTask) error {
		return c.mirrorTask(ctx, r, task)
	}, c.clock)

	outcomes, err := sched.Run(ctx, r.req.SyncTasks(), r.req.MaxParallel)
	if err != nil {
		r.fail(fmt.Errorf("failed to schedule mirror tasks: %w", err))
		return
	}

	r.mu.Lock()
	for _, o := range outcomes {
		if o.Succeeded() {
			r.tasksSucceeded++
			continue
		}
		r.tasksFailed++
		r.failedParts = append(r.failedParts, o.Task.Partition.ID())
	}
	r.mu.Unlock()

	r.log.Info("Mirroring finished",
		zap.Int("tasks", len(outcomes)),
		zap.Int64("peak_active_tasks", sched.Peak()),
		zap.Int64("ingested", r.ingested.Load()),
		zap.Int64("already_ingested", r.alreadyIngested.Load()))
}

// mirrorTask mirrors one source partition and records every mirrored object in the ingestion ledger
// before reporting success. Interrupted tasks resume after their last checkpoint; a task that
// completes clears its checkpoint so the next run lists the whole partition again.
func (c *Coordinator) mirrorTask(ctx context.Context, r *run, task domain.SyncTask) error {
	log := r.log.With(zap.String("partition", task.Partition.ID()))

	afterKey, err := c.store.GetMirrorCheckpoint(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to load mirror checkpoint: %w", err)
	}
	if afterKey != "" {
		log.Info("Resuming mirror task after checkpoint", zap.String("after_key", afterKey))
	}

	checkpointed := afterKey != ""
	sinceCheckpoint := 0
	_, err = c.mirror.MirrorPartition(ctx, task, afterKey, func(ctx context.Context, objectKey string) error {
		identity := domain.NewObjectIdentity(objectKey, task.PartitionDate, task.Environment)
		outcome, err := c.store.RecordIngested(ctx, identity, task.Partition.ID())
		if err != nil {
			return fmt.Errorf("failed to record ingestion of %s: %w", objectKey, err)
		}
		r.observeMirrored(outcome)

		sinceCheckpoint++
		if sinceCheckpoint >= c.opts.CheckpointEvery {
			sinceCheckpoint = 0
			if err := c.store.SetMirrorCheckpoint(ctx, task, objectKey); err != nil {
				return fmt.Errorf("failed to save mirror checkpoint: %w", err)
			}
			checkpointed = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if checkpointed {
		if err := c.store.SetMirrorCheckpoint(ctx, task, ""); err != nil {
			return fmt.Errorf("failed to clear mirror checkpoint: %w", err)
		}
	}

	return nil
}
