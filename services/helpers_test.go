package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vidgrab/config"
	"vidgrab/engine"
	"vidgrab/logging"
	"vidgrab/types"
)

// fakeEngine records calls and delegates to optional hooks
type fakeEngine struct {
	mu      sync.Mutex
	probe   func(ctx context.Context, query string, opts engine.ProbeOptions) (map[string]any, error)
	fetch   func(ctx context.Context, url string, opts engine.FetchOptions) error
	queries []string
	fetches []engine.FetchOptions
}

func (f *fakeEngine) Probe(ctx context.Context, query string, opts engine.ProbeOptions) (map[string]any, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.probe == nil {
		return map[string]any{"title": "stub"}, nil
	}
	return f.probe(ctx, query, opts)
}

func (f *fakeEngine) Fetch(ctx context.Context, url string, opts engine.FetchOptions) error {
	f.mu.Lock()
	f.fetches = append(f.fetches, opts)
	f.mu.Unlock()
	if f.fetch == nil {
		return writeFromTemplate(opts.OutputTemplate, "Clip", "mp4")
	}
	return f.fetch(ctx, url, opts)
}

func (f *fakeEngine) lastFetch() engine.FetchOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[len(f.fetches)-1]
}

// writeFromTemplate creates the file yt-dlp would have produced for template
func writeFromTemplate(template, title, ext string) error {
	path := strings.NewReplacer("%(title)s", title, "%(ext)s", ext).Replace(template)
	return os.WriteFile(path, []byte("media"), 0o644)
}

// recordingNotifier collects every snapshot published by a registry
type recordingNotifier struct {
	mu   sync.Mutex
	jobs []types.DownloadJob
}

func (n *recordingNotifier) JobUpdated(job types.DownloadJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
}

func (n *recordingNotifier) statuses() []types.JobStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.JobStatus, 0, len(n.jobs))
	for _, j := range n.jobs {
		out = append(out, j.Status)
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Download: config.DownloadConfig{
			Dir:             t.TempDir(),
			Retention:       time.Hour,
			CleanupInterval: time.Hour,
			DefaultFormat:   config.DefaultFormat,
			Workers:         2,
			QueueSize:       10,
		},
		Engine: config.EngineConfig{
			Binary:        "yt-dlp",
			DefaultSearch: "ytsearch",
			AudioCodec:    "mp3",
			AudioQuality:  "192",
		},
		AllowedDomains: config.DefaultAllowedDomains,
	}
}

func newTestDispatcher(t *testing.T, eng engine.Engine, cfg DispatcherConfig) (*Dispatcher, *Registry) {
	t.Helper()
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	registry := NewRegistry(nil)
	d := NewDispatcher(registry, eng, NewFormatResolver(""), cfg, logging.Discard())
	return d, registry
}

func waitForTerminal(t *testing.T, get func(string) (types.DownloadJob, bool), id string) types.DownloadJob {
	t.Helper()
	var job types.DownloadJob
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = get(id)
		return ok && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond, "job %s never reached a terminal state", id)
	return job
}

func touch(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}
