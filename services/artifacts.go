package services

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"vidgrab/types"
)

// ArtifactService inspects files in the storage directory
type ArtifactService interface {
	ListArtifacts() ([]types.Artifact, error)
	ExtractAudioMetadata(filePath string) *types.ArtifactMetadata
	GetContentType(filePath string) string
}

type artifactService struct {
	dir    string
	logger *slog.Logger
}

// NewArtifactService creates an artifact service rooted at dir
func NewArtifactService(dir string, logger *slog.Logger) ArtifactService {
	return &artifactService{dir: dir, logger: logger}
}

// ListArtifacts returns every regular file in the storage directory,
// newest first, with embedded tags for audio files
func (s *artifactService) ListArtifacts() ([]types.Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.Artifact{}, nil
		}
		return nil, fmt.Errorf("list storage directory: %w", err)
	}

	artifacts := make([]types.Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isPartialFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed by the sweeper while listing
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		artifact := types.Artifact{
			Filename:    entry.Name(),
			JobID:       jobIDFromFilename(entry.Name()),
			Size:        info.Size(),
			ContentType: s.GetContentType(path),
			ModifiedAt:  info.ModTime(),
		}
		if isAudioFile(path) {
			artifact.Metadata = s.ExtractAudioMetadata(path)
		}
		artifacts = append(artifacts, artifact)
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].ModifiedAt.After(artifacts[j].ModifiedAt)
	})

	return artifacts, nil
}

// GetContentType returns the MIME type served for an artifact
func (s *artifactService) GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".opus", ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// ExtractAudioMetadata reads embedded tags, falling back to the file name
// for the title when tags are missing or unreadable
func (s *artifactService) ExtractAudioMetadata(filePath string) *types.ArtifactMetadata {
	fallback := &types.ArtifactMetadata{Title: titleFromFilename(filepath.Base(filePath))}

	file, err := os.Open(filePath)
	if err != nil {
		s.logger.Debug("could not open artifact", slog.String("path", filePath), slog.String("error", err.Error()))
		return fallback
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		s.logger.Debug("could not parse artifact tags", slog.String("path", filePath), slog.String("error", err.Error()))
		return fallback
	}

	metadata := &types.ArtifactMetadata{
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
	}
	if metadata.Title == "" {
		metadata.Title = fallback.Title
	}
	return metadata
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a", ".flac", ".ogg", ".opus":
		return true
	}
	return false
}

// jobIDFromFilename extracts the "<jobID>_" prefix written by the dispatcher
func jobIDFromFilename(name string) string {
	id, _, found := strings.Cut(name, "_")
	if !found || len(id) != jobIDLength {
		return ""
	}
	return id
}

// titleFromFilename strips the job prefix and extension, turning the
// restricted-filename underscores back into spaces
func titleFromFilename(name string) string {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	if id := jobIDFromFilename(title); id != "" {
		title = strings.TrimPrefix(title, id+"_")
	}
	return strings.ReplaceAll(title, "_", " ")
}
