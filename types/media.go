package types

import "time"

// VideoFormat describes one selectable quality of a source
type VideoFormat struct {
	FormatID     string `json:"formatId"`
	Ext          string `json:"ext"`
	Resolution   string `json:"resolution,omitempty"`
	Filesize     *int64 `json:"filesize,omitempty"`
	VCodec       string `json:"vcodec,omitempty"`
	ACodec       string `json:"acodec,omitempty"`
	QualityLabel string `json:"qualityLabel"`
}

// MediaInfo is the normalized view of a probed source
type MediaInfo struct {
	Title          string        `json:"title,omitempty"`
	Thumbnail      string        `json:"thumbnail,omitempty"`
	WebpageURL     string        `json:"webpageUrl,omitempty"`
	Duration       int           `json:"duration"`
	DurationString string        `json:"durationString,omitempty"`
	Uploader       string        `json:"uploader,omitempty"`
	Formats        []VideoFormat `json:"formats"`
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// AnalyzeResponse reports the outcome of a metadata probe
type AnalyzeResponse struct {
	Success bool `json:"success"`
	*MediaInfo
	Error string `json:"error,omitempty"`
}

// DownloadRequest is the body of POST /api/download
type DownloadRequest struct {
	URL       string `json:"url" binding:"required"`
	FormatID  string `json:"formatId,omitempty"`
	Quality   string `json:"quality,omitempty"` // best, 1080p, 720p, 480p, 360p, audio
	StartTime *int   `json:"startTime,omitempty"`
	EndTime   *int   `json:"endTime,omitempty"`
}

// DownloadResponse reports whether a job was accepted
type DownloadResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Artifact is a file found in the storage directory
type Artifact struct {
	Filename    string            `json:"filename"`
	JobID       string            `json:"jobId,omitempty"`
	Size        int64             `json:"size"`
	ContentType string            `json:"contentType"`
	ModifiedAt  time.Time         `json:"modifiedAt"`
	Metadata    *ArtifactMetadata `json:"metadata,omitempty"`
}

// ArtifactMetadata holds tags embedded in an audio artifact
type ArtifactMetadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}
