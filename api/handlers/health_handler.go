package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
)

// Version is reported by the health endpoint
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct {
	downloadMgr *app.DownloadManager
	repo        domain.RecordRepository
}

// NewHealthHandler creates a new health handler. repo may be nil when
// history is disabled.
func NewHealthHandler(downloadMgr *app.DownloadManager, repo domain.RecordRepository) *HealthHandler {
	return &HealthHandler{
		downloadMgr: downloadMgr,
		repo:        repo,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Busy    bool   `json:"busy"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	_, busy := h.downloadMgr.Active()
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Busy:    busy,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.repo != nil {
		if _, err := h.repo.GetStats(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "history database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
