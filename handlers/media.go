package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"vidgrab/services"
	"vidgrab/types"
	"vidgrab/websocket"
)

// MediaHandler handles analysis, download and progress endpoints
type MediaHandler struct {
	media    services.MediaService
	hub      websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(media services.MediaService, hub websocket.Hub, allowedOrigins []string, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:    media,
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
		logger:   logger,
	}
}

// Analyze returns metadata and selectable formats for a URL or search query
func (h *MediaHandler) Analyze(c *gin.Context) {
	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.AnalyzeResponse{
			Success: false,
			Error:   "url is required",
		})
		return
	}

	resp, err := h.media.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(statusFor(err), types.AnalyzeResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StartDownload queues a download and returns its job id
func (h *MediaHandler) StartDownload(c *gin.Context) {
	var req types.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DownloadResponse{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	jobID, err := h.media.StartDownload(req)
	if err != nil {
		c.JSON(statusFor(err), types.DownloadResponse{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, types.DownloadResponse{Success: true, JobID: jobID})
}

// GetProgress returns the current snapshot of a job
func (h *MediaHandler) GetProgress(c *gin.Context) {
	job, ok := h.media.GetProgress(c.Param("jobId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs returns every job known to this process
func (h *MediaHandler) ListJobs(c *gin.Context) {
	jobs := h.media.ListJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetFile serves the artifact of a completed job as an attachment
func (h *MediaHandler) GetFile(c *gin.Context) {
	path, err := h.media.GetFilePath(c.Param("jobId"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

// HandleWebSocketConnection streams progress for a single job
func (h *MediaHandler) HandleWebSocketConnection(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, ok := h.media.GetProgress(jobID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	client, ok := h.upgrade(c, jobID)
	if !ok {
		return
	}

	// Snapshot after registering so a transition in between is never lost
	h.hub.RegisterClient(client)
	if job, ok := h.media.GetProgress(jobID); ok {
		client.Send(websocket.MessageFromJob(job))
	}
	client.StartPumps()
}

// HandleWebSocketAllConnection streams progress for every job
func (h *MediaHandler) HandleWebSocketAllConnection(c *gin.Context) {
	client, ok := h.upgrade(c, websocket.AllJobs)
	if !ok {
		return
	}

	h.hub.RegisterClient(client)
	client.StartPumps()
}

func (h *MediaHandler) upgrade(c *gin.Context, jobID string) (*websocket.Client, bool) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return nil, false
	}
	return websocket.NewClient(h.hub, conn, jobID, h.logger), true
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, services.ErrDomainNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrJobNotFound), errors.Is(err, services.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
