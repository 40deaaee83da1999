// Package engine wraps the external media extraction engine. The rest of the
// service only sees the Engine interface; yt-dlp is the production backend.
package engine

import "context"

// Progress statuses emitted by the engine
const (
	StatusDownloading = "downloading"
	StatusFinished    = "finished"
)

// ProgressEvent is one engine-native progress report. Fields carry the
// engine's own formatting; numeric parsing happens in the caller.
type ProgressEvent struct {
	Status   string
	Percent  string
	Speed    string
	ETA      string
	Filename string
}

// ProbeOptions controls a read-only metadata lookup
type ProbeOptions struct {
	Quiet            bool
	NoWarnings       bool
	RestrictFilename bool
	DefaultSearch    string
}

// Section restricts a fetch to a sub-range of the source, in seconds.
// A nil End means "until the end of the source".
type Section struct {
	Start int
	End   *int
}

// AudioExtraction converts the fetched media into an audio-only file
type AudioExtraction struct {
	Codec   string
	Quality string
}

// FetchOptions controls a single materialization
type FetchOptions struct {
	Format           string
	OutputTemplate   string
	MergeFormat      string
	MaxFilesizeMB    int
	ExtractAudio     *AudioExtraction
	Section          *Section
	RestrictFilename bool
	Progress         func(ProgressEvent)
}

// Engine probes sources for metadata and materializes files
type Engine interface {
	Probe(ctx context.Context, query string, opts ProbeOptions) (map[string]any, error)
	Fetch(ctx context.Context, url string, opts FetchOptions) error
}
