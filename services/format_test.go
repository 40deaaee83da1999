package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"vidgrab/config"
)

func TestFormatResolverResolve(t *testing.T) {
	r := NewFormatResolver("custom/best")

	tests := []struct {
		name     string
		quality  string
		formatID string
		want     string
	}{
		{
			name:     "explicit format id wins over preset",
			quality:  "720p",
			formatID: "137",
			want:     "137+bestaudio/best",
		},
		{
			name:     "synthesized audio id falls through to preset",
			quality:  "audio",
			formatID: "bestaudio",
			want:     "bestaudio[ext=m4a]/bestaudio/best",
		},
		{
			name:    "audio preset",
			quality: "audio",
			want:    "bestaudio[ext=m4a]/bestaudio/best",
		},
		{
			name:    "height preset",
			quality: "720p",
			want:    "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best[height<=720]/best",
		},
		{
			name:    "preset is case insensitive",
			quality: " 1080P ",
			want:    "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=1080]+bestaudio/best[height<=1080]/best",
		},
		{
			name:    "best uses configured default",
			quality: "best",
			want:    "custom/best",
		},
		{
			name: "empty preset uses configured default",
			want: "custom/best",
		},
		{
			name:    "unknown preset falls back to default",
			quality: "8k",
			want:    "custom/best",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.quality, tt.formatID))
		})
	}
}

func TestFormatResolverAudioNeverSelectsVideo(t *testing.T) {
	r := NewFormatResolver("")
	expr := r.Resolve("audio", "")
	assert.NotContains(t, expr, "bestvideo")
	assert.NotContains(t, expr, "height")
}

func TestFormatResolverHeightBoundIsPrimaryTier(t *testing.T) {
	r := NewFormatResolver("")
	for preset, h := range presetHeights {
		primary := strings.SplitN(r.Resolve(preset, ""), "/", 2)[0]
		assert.Contains(t, primary, fmt.Sprintf("height<=%d", h), "preset %s", preset)
	}
}

func TestFormatResolverEmptyDefault(t *testing.T) {
	assert.Equal(t, config.DefaultFormat, NewFormatResolver("  ").Resolve("", ""))
}

func TestIsAudioOnly(t *testing.T) {
	assert.True(t, IsAudioOnly("audio"))
	assert.True(t, IsAudioOnly(" AUDIO "))
	assert.False(t, IsAudioOnly("720p"))
	assert.False(t, IsAudioOnly(""))
}
