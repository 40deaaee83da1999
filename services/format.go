package services

import (
	"fmt"
	"strings"

	"vidgrab/config"
)

// Quality presets accepted from callers
const (
	QualityBest  = "best"
	QualityAudio = "audio"
)

// formatBestAudio is the format id of the synthesized audio-only entry
const formatBestAudio = "bestaudio"

var presetHeights = map[string]int{
	"1080p": 1080,
	"720p":  720,
	"480p":  480,
	"360p":  360,
}

// FormatResolver turns a quality preset into a format-selection expression
type FormatResolver struct {
	defaultFormat string
}

// NewFormatResolver uses defaultFormat for the "best" preset
func NewFormatResolver(defaultFormat string) *FormatResolver {
	if strings.TrimSpace(defaultFormat) == "" {
		defaultFormat = config.DefaultFormat
	}
	return &FormatResolver{defaultFormat: defaultFormat}
}

// Resolve picks the expression for a preset and an optional explicit format id.
// The first matching rule wins; each expression lists fallback tiers separated by "/".
func (r *FormatResolver) Resolve(quality, formatID string) string {
	formatID = strings.TrimSpace(formatID)
	if formatID != "" && formatID != formatBestAudio {
		return formatID + "+bestaudio/best"
	}

	preset := NormalizeQuality(quality)
	if preset == QualityAudio {
		return "bestaudio[ext=m4a]/bestaudio/best"
	}

	if h, ok := presetHeights[preset]; ok {
		return fmt.Sprintf(
			"bestvideo[height<=%[1]d][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=%[1]d]+bestaudio/best[height<=%[1]d]/best",
			h,
		)
	}

	return r.defaultFormat
}

// NormalizeQuality lower-cases a preset and maps empty input to "best"
func NormalizeQuality(quality string) string {
	q := strings.ToLower(strings.TrimSpace(quality))
	if q == "" {
		return QualityBest
	}
	return q
}

// IsAudioOnly reports whether the preset asks for an audio artifact
func IsAudioOnly(quality string) bool {
	return NormalizeQuality(quality) == QualityAudio
}
