package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidgrab/services"
)

// FileHandler handles artifact listing
type FileHandler struct {
	media  services.MediaService
	logger *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(media services.MediaService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		media:  media,
		logger: logger,
	}
}

// ListFiles returns the artifacts currently held in the download directory
func (h *FileHandler) ListFiles(c *gin.Context) {
	artifacts, err := h.media.ListArtifacts()
	if err != nil {
		h.logger.Error("failed to list artifacts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to scan files",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": artifacts,
		"count": len(artifacts),
	})
}
