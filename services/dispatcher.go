package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"vidgrab/engine"
)

// DownloadTask is one accepted download waiting for a worker
type DownloadTask struct {
	JobID    string
	URL      string
	Quality  string
	FormatID string
	Start    *int
	End      *int
}

// DispatcherConfig holds the knobs of the worker pool
type DispatcherConfig struct {
	OutputDir     string
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	MaxFilesizeMB int
	AudioCodec    string
	AudioQuality  string
}

// Dispatcher runs download tasks on a fixed pool of workers. Each task is
// owned by exactly one worker, which reports through the registry.
type Dispatcher struct {
	registry *Registry
	engine   engine.Engine
	resolver *FormatResolver
	cfg      DispatcherConfig
	logger   *slog.Logger

	queue     chan DownloadTask
	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewDispatcher creates a dispatcher; call Start to launch the workers
func NewDispatcher(registry *Registry, eng engine.Engine, resolver *FormatResolver, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	return &Dispatcher{
		registry: registry,
		engine:   eng,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		queue:    make(chan DownloadTask, cfg.QueueSize),
	}
}

// Start launches the workers once; they exit when ctx is cancelled
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.worker(ctx)
			}()
		}
	})
}

// Wait blocks until every worker has returned
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit hands a task to the pool without blocking
func (d *Dispatcher) Submit(task DownloadTask) error {
	select {
	case d.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// worker processes tasks from the queue
func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-d.queue:
			if ctx.Err() != nil {
				return
			}
			d.process(ctx, task)
		}
	}
}

// process drives one task from pending to a terminal state
func (d *Dispatcher) process(ctx context.Context, task DownloadTask) {
	if !d.registry.SetDownloading(task.JobID) {
		return
	}

	log := d.logger.With(slog.String("job_id", task.JobID))
	log.Info("download started", slog.String("url", task.URL), slog.String("quality", NormalizeQuality(task.Quality)))

	jobCtx := ctx
	if d.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, d.cfg.JobTimeout)
		defer cancel()
	}

	opts := d.fetchOptions(task, func(ev engine.ProgressEvent) {
		if update, ok := translateProgress(ev); ok {
			d.registry.ApplyProgress(task.JobID, update)
		}
	})

	if err := d.engine.Fetch(jobCtx, task.URL, opts); err != nil {
		msg := err.Error()
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("download timed out after %s", d.cfg.JobTimeout)
		}
		d.registry.SetFailed(task.JobID, msg)
		log.Warn("download failed", slog.String("error", msg))
		return
	}

	path, name, err := findArtifact(d.cfg.OutputDir, task.JobID)
	if err != nil {
		msg := err.Error()
		if d.cfg.MaxFilesizeMB > 0 {
			msg = fmt.Sprintf("%s (the source may exceed the %d MB size limit)", msg, d.cfg.MaxFilesizeMB)
		}
		d.registry.SetFailed(task.JobID, msg)
		log.Warn("download produced no artifact", slog.String("error", msg))
		return
	}

	d.registry.SetCompleted(task.JobID, path, name)
	log.Info("download completed", slog.String("file", name))
}

func (d *Dispatcher) fetchOptions(task DownloadTask, progress func(engine.ProgressEvent)) engine.FetchOptions {
	opts := engine.FetchOptions{
		Format:           d.resolver.Resolve(task.Quality, task.FormatID),
		OutputTemplate:   OutputTemplate(d.cfg.OutputDir, task.JobID),
		MergeFormat:      "mp4",
		MaxFilesizeMB:    d.cfg.MaxFilesizeMB,
		RestrictFilename: true,
		Progress:         progress,
	}

	// -x already yields the audio extension; a merge container would be rejected
	if IsAudioOnly(task.Quality) {
		opts.MergeFormat = ""
		opts.ExtractAudio = &engine.AudioExtraction{
			Codec:   d.cfg.AudioCodec,
			Quality: d.cfg.AudioQuality,
		}
	}

	if task.Start != nil || task.End != nil {
		section := &engine.Section{End: task.End}
		if task.Start != nil {
			section.Start = *task.Start
		}
		opts.Section = section
	}

	return opts
}

// OutputTemplate names artifacts "<jobID>_<title>.<ext>" inside dir
func OutputTemplate(dir, jobID string) string {
	return filepath.Join(dir, jobID+"_%(title)s.%(ext)s")
}

// translateProgress converts an engine event into a registry update.
// Unknown statuses are dropped.
func translateProgress(ev engine.ProgressEvent) (ProgressUpdate, bool) {
	switch ev.Status {
	case engine.StatusDownloading:
		return ProgressUpdate{
			Percent:  ParsePercent(ev.Percent),
			Speed:    ev.Speed,
			ETA:      ev.ETA,
			Filename: filepath.Base(ev.Filename),
		}, ev.Filename != "" || ev.Percent != "" || ev.Speed != "" || ev.ETA != ""
	case engine.StatusFinished:
		return ProgressUpdate{Finished: true, FilePath: ev.Filename}, true
	default:
		return ProgressUpdate{}, false
	}
}

// ParsePercent reads strings like " 42.5%" and falls back to 0 on garbage
func ParsePercent(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return clampPercent(v)
}

// findArtifact returns the first finished file in dir belonging to jobID
func findArtifact(dir, jobID string) (string, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("scan output directory: %w", err)
	}

	prefix := jobID + "_"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || isPartialFile(name) {
			continue
		}
		return filepath.Join(dir, name), name, nil
	}
	return "", "", errors.New("download finished but no output file was found")
}

func isPartialFile(name string) bool {
	for _, ext := range []string{".part", ".ytdl", ".temp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return strings.Contains(name, ".part-Frag")
}
