package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/observability"
)

// Archive reports what has already been downloaded and deletes bad files.
type Archive interface {
	LastScanTime() (time.Time, bool, error)
	Remove(path string) error
}

// Fetcher makes the product files of a window available locally and returns
// their paths in scan order. A partial failure returns the paths that did
// arrive together with an error.
type Fetcher interface {
	Fetch(ctx context.Context, w domain.Window) ([]string, error)
}

// Validator checks that a downloaded file is a readable product.
type Validator interface {
	Validate(path string) error
}

// Decoder reads the fire product grids from a file.
type Decoder interface {
	Decode(path string) (domain.FireProduct, error)
}

// Processor turns one file into detections.
type Processor interface {
	Process(ctx context.Context, path string) ([]domain.Detection, error)
}

// Loader writes detections to a sink.
type Loader interface {
	Name() string
	LoadBatch(ctx context.Context, detections []domain.Detection) (domain.LoadStats, error)
}

// Options tunes scheduling. Zero values fall back to defaults.
type Options struct {
	DefaultStart time.Time
	PollInterval time.Duration
	Workers      int
	Clock        clockwork.Clock
}

// CycleResult summarises one import cycle.
type CycleResult struct {
	ID         string                      `json:"id"`
	Window     domain.Window               `json:"window"`
	Files      int                         `json:"files"`
	Corrupt    int                         `json:"corrupt"`
	Processed  int                         `json:"processed"`
	Failed     int                         `json:"failed"`
	Detections int                         `json:"detections"`
	Loaded     map[string]domain.LoadStats `json:"loaded,omitempty"`
	StartedAt  time.Time                   `json:"started_at"`
	Duration   time.Duration               `json:"duration_ns"`
}

// Pipeline orchestrates the fetch-validate-process-load cycle.
type Pipeline struct {
	archive   Archive
	fetcher   Fetcher
	validator Validator
	processor Processor
	loaders   []Loader
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool

	mu   sync.Mutex
	last *CycleResult
}

// New creates a Pipeline with the given stages and observability.
func New(a Archive, f Fetcher, v Validator, p Processor, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Minute
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		archive:   a,
		fetcher:   f,
		validator: v,
		processor: p,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a cycle has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a cycle yet")
	}
	return nil
}

// LastCycle returns the result of the most recent successful cycle.
func (p *Pipeline) LastCycle() (CycleResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return CycleResult{}, false
	}
	return *p.last, true
}

// Run executes import cycles every poll interval until the context is
// cancelled. Failed cycles are retried sooner with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "poll_interval", p.opts.PollInterval, "workers", p.opts.Workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		_, err := p.RunCycle(ctx)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.opts.PollInterval
		if err != nil {
			p.logger.Error("import cycle failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, p.opts.PollInterval)
		} else {
			backoff = initialBackoff
		}

		if !p.sleep(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunCycle performs one import: resolve the window, fetch, validate,
// process, and load.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{ID: newCycleID(), StartedAt: p.opts.Clock.Now()}

	last, hasLast, err := p.archive.LastScanTime()
	if err != nil {
		return res, fmt.Errorf("scan archive: %w", err)
	}
	res.Window = domain.ResolveWindow(last, hasLast, p.opts.DefaultStart, domain.Now())
	p.logger.Info("import cycle started", "cycle_id", res.ID,
		"window_start", res.Window.Start, "window_end", res.Window.End, "resumed", hasLast)

	paths, err := p.fetcher.Fetch(ctx, res.Window)
	if err != nil {
		if ctx.Err() != nil || len(paths) == 0 {
			return res, fmt.Errorf("fetch products: %w", err)
		}
		p.logger.Warn("some downloads failed, continuing with available files", "error", err, "count", len(paths))
	}
	res.Files = len(paths)
	p.metrics.FilesDownloaded.Add(float64(len(paths)))

	valid := p.validate(paths)
	res.Corrupt = len(paths) - len(valid)
	if len(valid) == 0 {
		p.logger.Info("no new files to process")
		return p.finish(res), nil
	}

	detections, failed, err := p.processAll(ctx, valid)
	if err != nil {
		return res, err
	}
	res.Failed = failed
	res.Processed = len(valid) - failed
	res.Detections = len(detections)
	p.metrics.DetectionsExtracted.Add(float64(len(detections)))
	p.recordLastScan(valid)

	if len(detections) == 0 {
		p.logger.Info("no valid detections found")
		return p.finish(res), nil
	}

	loaded, err := p.load(ctx, detections)
	res.Loaded = loaded
	if err != nil {
		return res, err
	}
	return p.finish(res), nil
}

// validate keeps the readable files and removes the rest from disk.
func (p *Pipeline) validate(paths []string) []string {
	valid := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := p.validator.Validate(path); err != nil {
			p.metrics.FilesCorrupt.Inc()
			p.logger.Warn("corrupt file removed", "file", filepath.Base(path), "error", err)
			if rmErr := p.archive.Remove(path); rmErr != nil {
				p.logger.Error("remove corrupt file failed", "file", path, "error", rmErr)
			}
			continue
		}
		valid = append(valid, path)
	}
	return valid
}

// processAll runs the processor over paths on a bounded worker pool and
// concatenates the detections in input order. Files that fail are logged and
// counted; only cancellation aborts the batch.
func (p *Pipeline) processAll(ctx context.Context, paths []string) ([]domain.Detection, int, error) {
	results := make([][]domain.Detection, len(paths))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileStart := p.opts.Clock.Now()
			detections, err := p.processor.Process(gctx, path)
			p.metrics.FileDuration.Observe(p.opts.Clock.Since(fileStart).Seconds())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				p.metrics.ProcessErrors.Inc()
				p.logger.Error("file processing failed", "file", filepath.Base(path), "error", err)
				return nil
			}
			p.metrics.FilesProcessed.Inc()
			results[i] = detections
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("process files: %w", err)
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	detections := make([]domain.Detection, 0, total)
	for _, r := range results {
		detections = append(detections, r...)
	}
	return detections, int(failed.Load()), nil
}

// load writes the batch to every sink. A failing sink does not stop the
// others; their errors are returned together.
func (p *Pipeline) load(ctx context.Context, detections []domain.Detection) (map[string]domain.LoadStats, error) {
	loaded := make(map[string]domain.LoadStats, len(p.loaders))
	var errs *multierror.Error
	for _, l := range p.loaders {
		stats, err := l.LoadBatch(ctx, detections)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("load into %s: %w", l.Name(), err))
			continue
		}
		loaded[l.Name()] = stats
		p.metrics.DetectionsWritten.WithLabelValues(l.Name()).Add(float64(stats.Written))
		p.metrics.DetectionsDuplicate.WithLabelValues(l.Name()).Add(float64(stats.Duplicates))
		p.logger.Info("detections loaded", "sink", l.Name(), "count", stats.Written, "duplicates", stats.Duplicates)
	}
	return loaded, errs.ErrorOrNil()
}

func (p *Pipeline) recordLastScan(paths []string) {
	t, err := domain.ScanStart(paths[len(paths)-1])
	if err != nil {
		return
	}
	p.metrics.LastScanUnixTime.Set(float64(t.Unix()))
}

func (p *Pipeline) finish(res CycleResult) CycleResult {
	res.Duration = p.opts.Clock.Since(res.StartedAt)
	p.metrics.CycleDuration.Observe(res.Duration.Seconds())
	p.logger.Info("import cycle finished", "cycle_id", res.ID,
		"files", res.Files, "corrupt", res.Corrupt, "processed", res.Processed,
		"failed", res.Failed, "count", res.Detections, "duration", res.Duration)

	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()
	p.ready.Store(true)
	return res
}

func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

const initialBackoff = 200 * time.Millisecond

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.opts.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
