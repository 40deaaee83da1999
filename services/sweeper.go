package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SweepResult contains the outcome of one cleanup cycle
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a file path with its cleanup error
type SweepError struct {
	Path  string
	Error error
}

// Sweeper deletes artifacts older than the retention threshold. It does
// not coordinate with running jobs; unique job-id prefixes keep them apart.
type Sweeper struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger

	now    func() time.Time
	remove func(string) error
}

// NewSweeper creates a sweeper for dir
func NewSweeper(dir string, retention, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dir:       dir,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		remove:    os.Remove,
	}
}

// Run sweeps immediately and then on every interval until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one cleanup cycle. Per-file failures are logged and skipped.
func (s *Sweeper) Sweep() SweepResult {
	result := SweepResult{}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: s.dir, Error: err})
			s.logger.Warn("cleanup could not list storage directory",
				slog.String("path", s.dir),
				slog.String("error", err.Error()),
			)
		}
		return result
	}

	cutoff := s.now().Add(-s.retention)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// vanished between listing and stat, usually another sweep or a worker rename
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			}
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := s.remove(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			s.logger.Warn("failed to delete expired artifact",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}

		result.Removed = append(result.Removed, path)
		s.logger.Info("deleted expired artifact",
			slog.String("path", path),
			slog.Duration("age", s.now().Sub(info.ModTime())),
		)
	}

	return result
}
