package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/detector"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/objectstore"
	"github.com/feral-file/bib-pipeline/internal/store"
)

// process sweeps the pending set until mirroring has finished and a full sweep finds nothing
// left to attempt, or until max_images reservation attempts were made
func (c *Coordinator) process(ctx context.Context, r *run) error {
	pool := pond.NewPool(r.req.ProcessingWorkers)
	defer pool.StopAndWait()

	// identities attempted during this run are not attempted again by later sweeps
	attempted := make(map[string]struct{})

	for sweep := 1; ; sweep++ {
		mirroringDone := r.mirroringDone()

		found, err := c.sweep(ctx, r, pool, attempted)
		if err != nil {
			return err
		}

		r.log.Info("Sweep finished",
			zap.Int("sweep", sweep),
			zap.Int("attempted", found),
			zap.Bool("mirroring_done", mirroringDone))

		if r.maxImagesReached.Load() {
			r.log.Info("Reached max_images, stopping processing", zap.Int("max_images", r.req.MaxImages))
			return nil
		}
		if found > 0 {
			continue
		}
		if mirroringDone {
			return nil
		}

		select {
		case <-r.mirrorCh:
		case <-c.clock.After(c.opts.IdlePollInterval):
		case <-ctx.Done():
			return cancelled(ctx)
		}
	}
}

// sweep walks every page of the pending set once and processes identities not yet attempted.
// Cancellation is checked between pages.
func (c *Coordinator) sweep(ctx context.Context, r *run, pool pond.Pool, attempted map[string]struct{}) (int, error) {
	found := 0
	token := ""

	for {
		if ctx.Err() != nil {
			return found, cancelled(ctx)
		}

		page, err := c.store.ListPending(ctx, store.ListPendingInput{
			PartitionDate: r.req.PartitionDate,
			Environment:   r.req.Environment,
			PageToken:     token,
			PageSize:      r.req.PageSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return found, cancelled(ctx)
			}
			return found, fmt.Errorf("failed to list pending objects: %w", err)
		}

		group := pool.NewGroup()
		for _, identity := range page.Identities {
			if _, ok := attempted[identity.ObjectKey]; ok {
				continue
			}
			attempted[identity.ObjectKey] = struct{}{}
			found++

			group.Submit(func() {
				c.processObject(ctx, r, identity)
			})
		}
		if err := group.Wait(); err != nil {
			return found, fmt.Errorf("processing worker failed: %w", err)
		}

		if err := r.fatal(); err != nil {
			return found, err
		}
		c.reportProgress(ctx, r)

		if r.maxImagesReached.Load() || page.NextPageToken == "" {
			return found, nil
		}
		token = page.NextPageToken
	}
}

// processObject reserves quota for one identity, runs detection and records the result.
// Failures other than ledger errors leave the identity pending for a later run.
func (c *Coordinator) processObject(ctx context.Context, r *run, identity domain.ObjectIdentity) {
	if ctx.Err() != nil || r.fatal() != nil {
		return
	}
	log := r.log.With(zap.String("object_key", identity.ObjectKey))

	if r.quotaExhausted.Load() {
		r.skippedByQuota.Add(1)
		return
	}
	if !r.tryAttempt() {
		return
	}

	reservation, err := c.store.TryReserve(ctx, r.req.CustomerID, 1)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.fail(fmt.Errorf("failed to reserve quota: %w", err))
		return
	}
	if !reservation.Granted {
		r.skippedByQuota.Add(1)
		if reservation.Remaining == 0 && r.quotaExhausted.CompareAndSwap(false, true) {
			log.Warn("Customer quota exhausted, skipping remaining objects")
		}
		return
	}

	data, err := c.mirror.Read(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			r.fail(err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		r.detectionFailures.Add(1)
		log.Warn("Failed to read mirrored object, leaving it pending", zap.Error(err))
		return
	}

	contentType, _ := objectstore.SniffImage(data)
	detection, err := c.detector.Detect(ctx, detector.Image{
		Filename:    path.Base(identity.ObjectKey),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Detection cancelled, leaving object pending")
			return
		}
		r.detectionFailures.Add(1)
		log.Warn("Detection failed, leaving object pending",
			zap.Bool("transient", errors.Is(err, domain.ErrTransient)),
			zap.Error(err))
		return
	}

	// A finished detection is recorded even when the run is being cancelled
	outcome, err := c.store.RecordProcessed(context.WithoutCancel(ctx), store.RecordProcessedInput{
		Identity:      identity,
		ResultGroupID: r.req.ResultGroupID,
		Detections:    detectionInputs(detection),
	})
	if err != nil {
		r.fail(fmt.Errorf("failed to record processed object %s: %w", identity, err))
		return
	}

	if outcome == store.RecordAlreadyExisted {
		log.Info("Object was already processed by a concurrent run")
		return
	}
	r.processed.Add(1)
	log.Debug("Processed object", zap.Strings("bib_numbers", detection.BibNumbers))
}

func detectionInputs(d *domain.Detection) []store.DetectionInput {
	inputs := make([]store.DetectionInput, 0, len(d.BibNumbers))
	for _, tag := range d.BibNumbers {
		inputs = append(inputs, store.DetectionInput{
			Tag:           tag,
			Confidence:    d.Confidence,
			ModelVersions: d.ModelVersions,
		})
	}
	return inputs
}
