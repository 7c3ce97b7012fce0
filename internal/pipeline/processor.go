package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

const (
	defaultAttempts     = 3
	defaultRetryBackoff = 2 * time.Second
)

// FireProcessor decodes product files and extracts their fire detections,
// retrying transient decode failures.
type FireProcessor struct {
	decoder  Decoder
	opts     domain.ExtractOptions
	logger   *slog.Logger
	attempts uint64
	initial  time.Duration
}

// NewFireProcessor creates a processor that makes up to three decode attempts
// per file, waiting 2s then 4s between them.
func NewFireProcessor(decoder Decoder, opts domain.ExtractOptions, logger *slog.Logger) *FireProcessor {
	return &FireProcessor{
		decoder:  decoder,
		opts:     opts,
		logger:   logger,
		attempts: defaultAttempts,
		initial:  defaultRetryBackoff,
	}
}

// WithRetry overrides the attempt count and first retry delay.
func (p *FireProcessor) WithRetry(attempts uint64, initial time.Duration) *FireProcessor {
	if attempts < 1 {
		attempts = 1
	}
	p.attempts = attempts
	p.initial = initial
	return p
}

// Process returns the detections found in one file. Corrupt files and
// unparsable names fail immediately; other errors are retried.
func (p *FireProcessor) Process(ctx context.Context, path string) ([]domain.Detection, error) {
	name := filepath.Base(path)
	attempt := 0

	op := func() ([]domain.Detection, error) {
		attempt++
		product, err := p.decoder.Decode(path)
		if err != nil {
			if errors.Is(err, domain.ErrCorruptFile) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		detections, err := domain.ExtractDetections(product, path, p.opts)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return detections, nil
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("processing attempt failed, retrying",
			"file", name, "attempt", attempt, "retry_in", wait, "error", err)
	}

	detections, err := backoff.RetryNotifyWithData(op, p.policy(ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("process %s after %d attempt(s): %w", name, attempt, err)
	}
	p.logger.Debug("file processed", "file", name, "count", len(detections))
	return detections, nil
}

func (p *FireProcessor) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.initial << p.attempts
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.attempts-1), ctx)
}
