package ratelimit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/bib-pipeline/internal/detector"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
)

// Config bounds the request rate sent to the detection service
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Enabled reports whether the config limits anything
func (c Config) Enabled() bool {
	return c.RequestsPerSecond > 0
}

type limitedDetector struct {
	next    detector.Detector
	limiter *rate.Limiter
}

// NewDetector wraps next so that detection requests never exceed the configured rate.
// A disabled config returns next unchanged.
func NewDetector(next detector.Detector, cfg Config) detector.Detector {
	if !cfg.Enabled() {
		return next
	}
	// Minimum burst of 1, a zero burst never admits a request
	burst := max(cfg.Burst, 1)

	logger.Info("Detection requests are rate limited",
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("burst", burst),
	)
	return &limitedDetector{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

func (d *limitedDetector) Detect(ctx context.Context, image detector.Image) (*domain.Detection, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		// Wait fails on cancellation or when the deadline ends before a token frees up
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrTransient, err)
	}
	return d.next.Detect(ctx, image)
}
