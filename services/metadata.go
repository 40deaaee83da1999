package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vidgrab/types"
)

const (
	minFormatHeight = 360
	audioLabel      = "MP3 Audio"
)

// NormalizeMediaInfo turns a raw engine record into a stable, ordered view.
// Collections (search results, playlists) resolve to their first usable entry.
func NormalizeMediaInfo(raw map[string]any) (*types.MediaInfo, error) {
	info, err := resolveEntry(raw)
	if err != nil {
		return nil, err
	}

	duration := coerceInt(info["duration"])
	result := &types.MediaInfo{
		Title:      stringField(info, "title"),
		Thumbnail:  stringField(info, "thumbnail"),
		WebpageURL: stringField(info, "webpage_url"),
		Uploader:   stringField(info, "uploader"),
		Duration:   duration,
		Formats:    normalizeFormats(info["formats"]),
	}
	if duration > 0 {
		result.DurationString = FormatDuration(duration)
	}

	return result, nil
}

func resolveEntry(raw map[string]any) (map[string]any, error) {
	if raw == nil {
		return nil, ErrUnresolvable
	}

	entries, ok := raw["entries"]
	if !ok {
		return raw, nil
	}

	list, _ := entries.([]any)
	for _, e := range list {
		if entry, ok := e.(map[string]any); ok {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("%w: no entries in result", ErrUnresolvable)
}

func normalizeFormats(rawFormats any) []types.VideoFormat {
	list, _ := rawFormats.([]any)

	formats := make([]types.VideoFormat, 0, len(list)+1)
	seen := make(map[string]bool)

	for _, item := range list {
		f, ok := item.(map[string]any)
		if !ok {
			continue
		}

		height, ok := coerceOptionalInt(f["height"])
		if !ok || height < minFormatHeight {
			continue
		}

		label := fmt.Sprintf("%dp", height)
		if seen[label] {
			continue
		}
		seen[label] = true

		resolution := stringField(f, "resolution")
		if resolution == "" {
			resolution = stringField(f, "format_note")
		}

		ext := stringField(f, "ext")
		if ext == "" {
			ext = "mp4"
		}

		formats = append(formats, types.VideoFormat{
			FormatID:     stringField(f, "format_id"),
			Ext:          ext,
			Resolution:   resolution,
			Filesize:     filesizeField(f),
			VCodec:       stringField(f, "vcodec"),
			ACodec:       stringField(f, "acodec"),
			QualityLabel: label,
		})
	}

	formats = append(formats, types.VideoFormat{
		FormatID:     formatBestAudio,
		Ext:          "mp3",
		Resolution:   "audio only",
		QualityLabel: audioLabel,
	})

	sort.SliceStable(formats, func(i, j int) bool {
		return qualityKey(formats[i].QualityLabel) > qualityKey(formats[j].QualityLabel)
	})

	return formats
}

// qualityKey orders labels like "1080p"; anything unparseable sorts as 0
func qualityKey(label string) int {
	if label == "" || label == audioLabel {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(label, "p"))
	if err != nil {
		return 0
	}
	return n
}

// FormatDuration renders seconds as H:MM:SS, or M:SS below one hour
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func filesizeField(f map[string]any) *int64 {
	for _, key := range []string{"filesize", "filesize_approx"} {
		if n, ok := coerceOptionalInt(f[key]); ok && n > 0 {
			size := int64(n)
			return &size
		}
	}
	return nil
}

// coerceInt converts numbers and numeric strings, returning 0 otherwise
func coerceInt(v any) int {
	n, _ := coerceOptionalInt(v)
	return n
}

func coerceOptionalInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
