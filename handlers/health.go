package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// BinaryChecker reports where the extraction engine binary lives
type BinaryChecker func() (string, error)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	downloadDir string
	checkEngine BinaryChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(downloadDir string, checkEngine BinaryChecker) *HealthHandler {
	return &HealthHandler{
		downloadDir: downloadDir,
		checkEngine: checkEngine,
	}
}

// Root identifies the service
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "vidgrab API is running",
		"version": Version,
	})
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "vidgrab",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus reports the download location and whether the engine is usable
func (h *HealthHandler) APIStatus(c *gin.Context) {
	engine := gin.H{"available": false}
	if h.checkEngine != nil {
		if path, err := h.checkEngine(); err != nil {
			engine["error"] = err.Error()
		} else {
			engine["available"] = true
			engine["path"] = path
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "vidgrab API is running",
		"download_location": h.downloadDir,
		"engine":            engine,
	})
}
