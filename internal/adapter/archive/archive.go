// Package archive tracks product files already downloaded to the local
// save directory.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

// Archive is a view over the save directory.
// It implements pipeline.Archive.
type Archive struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

// New creates an Archive rooted at dir on the operating system filesystem.
func New(dir string, logger *slog.Logger) *Archive {
	return NewWithFs(afero.NewOsFs(), dir, logger)
}

// NewWithFs creates an Archive on an arbitrary filesystem.
func NewWithFs(fsys afero.Fs, dir string, logger *slog.Logger) *Archive {
	return &Archive{fs: fsys, root: dir, logger: logger}
}

// Root returns the save directory.
func (a *Archive) Root() string {
	return a.root
}

// LastScanTime walks the save directory and returns the newest scan start
// among .nc files. ok is false when the archive holds no product files.
// Files whose names carry no scan time are skipped.
func (a *Archive) LastScanTime() (last time.Time, ok bool, err error) {
	walkErr := afero.Walk(a.fs, a.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == a.root {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".nc") {
			return nil
		}

		scan, err := domain.ScanStart(info.Name())
		if err != nil {
			a.logger.Debug("skipping archive file without scan time", "file", path, "error", err)
			return nil
		}
		if !ok || scan.After(last) {
			last, ok = scan, true
		}
		return nil
	})
	if walkErr != nil {
		return time.Time{}, false, fmt.Errorf("scan archive %s: %w", a.root, walkErr)
	}
	return last, ok, nil
}

// Remove deletes a file from the archive. Missing files are not an error.
func (a *Archive) Remove(path string) error {
	if err := a.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
