package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgrab/logging"
)

func TestArtifactServiceListArtifacts(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	touch(t, dir, "abcd1234_Older_Clip.mp4", now.Add(-time.Hour))
	touch(t, dir, "efgh5678_Some_Song.mp3", now)
	touch(t, dir, "ijkl9012_Pending.mp4.part", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	svc := NewArtifactService(dir, logging.Discard())
	artifacts, err := svc.ListArtifacts()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	song := artifacts[0]
	assert.Equal(t, "efgh5678_Some_Song.mp3", song.Filename)
	assert.Equal(t, "efgh5678", song.JobID)
	assert.Equal(t, "audio/mpeg", song.ContentType)
	assert.Equal(t, int64(1), song.Size)
	require.NotNil(t, song.Metadata, "audio artifacts carry metadata")
	assert.Equal(t, "Some Song", song.Metadata.Title, "untagged audio falls back to the file name")

	clip := artifacts[1]
	assert.Equal(t, "abcd1234", clip.JobID)
	assert.Equal(t, "video/mp4", clip.ContentType)
	assert.Nil(t, clip.Metadata)
}

func TestArtifactServiceMissingDirectory(t *testing.T) {
	svc := NewArtifactService(filepath.Join(t.TempDir(), "absent"), logging.Discard())
	artifacts, err := svc.ListArtifacts()
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestArtifactServiceGetContentType(t *testing.T) {
	svc := NewArtifactService(t.TempDir(), logging.Discard())

	tests := map[string]string{
		"a.mp4":  "video/mp4",
		"a.WEBM": "video/webm",
		"a.mkv":  "video/x-matroska",
		"a.mp3":  "audio/mpeg",
		"a.m4a":  "audio/mp4",
		"a.opus": "audio/ogg",
		"a.flac": "audio/flac",
		"a.bin":  "application/octet-stream",
		"noext":  "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, svc.GetContentType(name), name)
	}
}

func TestJobIDFromFilename(t *testing.T) {
	assert.Equal(t, "abcd1234", jobIDFromFilename("abcd1234_Title.mp4"))
	assert.Empty(t, jobIDFromFilename("short_Title.mp4"))
	assert.Empty(t, jobIDFromFilename("notitle.mp4"))
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "My Great Video", titleFromFilename("abcd1234_My_Great_Video.mp4"))
	assert.Equal(t, "plain", titleFromFilename("plain.mp3"))
}
