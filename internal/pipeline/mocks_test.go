package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// productFile builds an archive path for a scan starting at t.
func productFile(t time.Time) string {
	start := t.UTC().Format("2006002150405") + "0"
	end := t.UTC().Add(9*time.Minute).Format("2006002150405") + "0"
	return fmt.Sprintf("/data/noaa-goes16/ABI-L2-FDCF/OR_ABI-L2-FDCF-M6_G16_s%s_e%s_c%s.nc", start, end, end)
}

func detectionAt(lon, lat float64, source string) domain.Detection {
	geom := domain.PointEWKT(lon, lat)
	return domain.Detection{TempKelvin: 320, Geom: &geom, Lon: lon, Lat: lat, SourceFile: source}
}

type mockArchive struct {
	mu      sync.Mutex
	last    time.Time
	hasLast bool
	err     error
	removed []string
}

func (m *mockArchive) LastScanTime() (time.Time, bool, error) {
	return m.last, m.hasLast, m.err
}

func (m *mockArchive) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	return nil
}

type mockFetcher struct {
	mu      sync.Mutex
	paths   []string
	err     error
	windows []domain.Window
}

func (m *mockFetcher) Fetch(_ context.Context, w domain.Window) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, w)
	return m.paths, m.err
}

func (m *mockFetcher) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

type mockValidator struct {
	corrupt map[string]bool
}

func (m *mockValidator) Validate(path string) error {
	if m.corrupt[path] {
		return fmt.Errorf("%w: bad signature", domain.ErrCorruptFile)
	}
	return nil
}

type mockProcessor struct {
	results map[string][]domain.Detection
	fail    map[string]bool
	delay   map[string]time.Duration
}

func (m *mockProcessor) Process(ctx context.Context, path string) ([]domain.Detection, error) {
	if d := m.delay[path]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[path] {
		return nil, errors.New("hdf5: truncated chunk")
	}
	return m.results[path], nil
}

type mockLoader struct {
	name   string
	stats  func(n int) domain.LoadStats
	err    error
	mu     sync.Mutex
	loaded []domain.Detection
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) LoadBatch(_ context.Context, detections []domain.Detection) (domain.LoadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.LoadStats{}, m.err
	}
	m.loaded = append(m.loaded, detections...)
	if m.stats != nil {
		return m.stats(len(detections)), nil
	}
	return domain.LoadStats{Written: len(detections)}, nil
}
