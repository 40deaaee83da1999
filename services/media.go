package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vidgrab/config"
	"vidgrab/engine"
	"vidgrab/types"
)

// MediaService is the job orchestration core exposed to the transport layer
type MediaService interface {
	Start(ctx context.Context)
	Stop()
	Analyze(ctx context.Context, query string) (types.AnalyzeResponse, error)
	StartDownload(req types.DownloadRequest) (string, error)
	GetProgress(id string) (types.DownloadJob, bool)
	GetFilePath(id string) (string, error)
	ListJobs() []types.DownloadJob
	ListArtifacts() ([]types.Artifact, error)
	DownloadDir() string
}

type mediaService struct {
	cfg       *config.Config
	engine    engine.Engine
	allowList *AllowList
	registry  *Registry
	dispatch  *Dispatcher
	sweeper   *Sweeper
	artifacts ArtifactService
	logger    *slog.Logger
	dir       string

	startOnce sync.Once
	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewMediaService wires the registry, worker pool and sweeper around eng.
// It creates the storage directory but starts nothing; call Start.
func NewMediaService(cfg *config.Config, eng engine.Engine, notifier Notifier, logger *slog.Logger) (MediaService, error) {
	dir, err := filepath.Abs(cfg.Download.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	registry := NewRegistry(notifier)
	dispatcher := NewDispatcher(registry, eng, NewFormatResolver(cfg.Download.DefaultFormat), DispatcherConfig{
		OutputDir:     dir,
		Workers:       cfg.Download.Workers,
		QueueSize:     cfg.Download.QueueSize,
		JobTimeout:    cfg.Download.JobTimeout,
		MaxFilesizeMB: cfg.Download.MaxSizeMB,
		AudioCodec:    cfg.Engine.AudioCodec,
		AudioQuality:  cfg.Engine.AudioQuality,
	}, logger)

	return &mediaService{
		cfg:       cfg,
		engine:    eng,
		allowList: NewAllowList(cfg.AllowedDomains),
		registry:  registry,
		dispatch:  dispatcher,
		sweeper:   NewSweeper(dir, cfg.Download.Retention, cfg.Download.CleanupInterval, logger),
		artifacts: NewArtifactService(dir, logger),
		logger:    logger,
		dir:       dir,
	}, nil
}

// Start launches the workers and the cleanup sweeper. Later calls are no-ops.
func (s *mediaService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()

		s.dispatch.Start(ctx)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.sweeper.Run(ctx)
		}()

		s.logger.Info("media service started",
			slog.String("download_dir", s.dir),
			slog.Int("workers", s.cfg.Download.Workers),
			slog.Duration("retention", s.cfg.Download.Retention),
		)
	})
}

// Stop cancels background work and waits for it. Running fetches are interrupted.
func (s *mediaService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	s.dispatch.Wait()
	s.wg.Wait()
}

// Analyze probes a URL or free-text query and normalizes the result.
// Only validation problems are returned as errors; engine failures are
// reported inside the response.
func (s *mediaService) Analyze(ctx context.Context, query string) (types.AnalyzeResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.AnalyzeResponse{}, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}

	target := query
	if looksLikeURL(query) {
		target = withScheme(query)
		if !s.allowList.IsAllowed(target) {
			return types.AnalyzeResponse{}, fmt.Errorf("%w: %s", ErrDomainNotAllowed, hostOf(target))
		}
	} else {
		target = s.searchPrefix() + ":" + query
	}

	raw, err := s.engine.Probe(ctx, target, engine.ProbeOptions{
		Quiet:            true,
		NoWarnings:       true,
		RestrictFilename: true,
		DefaultSearch:    s.searchPrefix(),
	})
	if err != nil {
		s.logger.Warn("analyze failed", slog.String("query", query), slog.String("error", err.Error()))
		return types.AnalyzeResponse{Success: false, Error: err.Error()}, nil
	}

	info, err := NormalizeMediaInfo(raw)
	if err != nil {
		return types.AnalyzeResponse{Success: false, Error: err.Error()}, nil
	}

	return types.AnalyzeResponse{Success: true, MediaInfo: info}, nil
}

// StartDownload validates the request, records a pending job and queues it.
// It never waits for the download itself.
func (s *mediaService) StartDownload(req types.DownloadRequest) (string, error) {
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	rawURL = withScheme(rawURL)

	if !s.allowList.IsAllowed(rawURL) {
		return "", fmt.Errorf("%w: %s", ErrDomainNotAllowed, hostOf(rawURL))
	}
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return "", err
	}

	id := s.registry.Create(rawURL)
	task := DownloadTask{
		JobID:    id,
		URL:      rawURL,
		Quality:  req.Quality,
		FormatID: req.FormatID,
		Start:    req.StartTime,
		End:      req.EndTime,
	}

	if err := s.dispatch.Submit(task); err != nil {
		s.registry.Discard(id)
		s.logger.Warn("download rejected", slog.String("url", rawURL), slog.String("error", err.Error()))
		return "", err
	}

	s.logger.Info("download queued", slog.String("job_id", id), slog.String("url", rawURL))
	return id, nil
}

// GetProgress returns a snapshot of the job
func (s *mediaService) GetProgress(id string) (types.DownloadJob, bool) {
	return s.registry.Get(id)
}

// GetFilePath returns the artifact of a completed job that still exists on disk
func (s *mediaService) GetFilePath(id string) (string, error) {
	job, ok := s.registry.Get(id)
	if !ok {
		return "", ErrJobNotFound
	}
	if job.Status != types.JobStatusCompleted || job.FilePath == "" {
		return "", ErrFileNotFound
	}
	info, err := os.Stat(job.FilePath)
	if err != nil || info.IsDir() {
		return "", ErrFileNotFound
	}
	return job.FilePath, nil
}

// ListJobs returns snapshots of every known job
func (s *mediaService) ListJobs() []types.DownloadJob {
	return s.registry.List()
}

// ListArtifacts describes files currently in the storage directory
func (s *mediaService) ListArtifacts() ([]types.Artifact, error) {
	return s.artifacts.ListArtifacts()
}

// DownloadDir returns the absolute storage directory
func (s *mediaService) DownloadDir() string {
	return s.dir
}

func (s *mediaService) searchPrefix() string {
	if p := strings.TrimSpace(s.cfg.Engine.DefaultSearch); p != "" {
		return p
	}
	return "ytsearch"
}

func validateRange(start, end *int) error {
	if start != nil && *start < 0 {
		return fmt.Errorf("%w: startTime must not be negative", ErrInvalidRequest)
	}
	if end != nil && *end < 0 {
		return fmt.Errorf("%w: endTime must not be negative", ErrInvalidRequest)
	}
	if start != nil && end != nil && *end <= *start {
		return fmt.Errorf("%w: endTime must be after startTime", ErrInvalidRequest)
	}
	return nil
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.")
}

// withScheme turns "www.example.com/..." into an absolute https URL
func withScheme(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "www.") {
		return "https://" + s
	}
	return s
}

func hostOf(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	if u == "" {
		return rawURL
	}
	return u
}
