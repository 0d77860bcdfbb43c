package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	downloadMgr *app.DownloadManager
	repo        domain.RecordRepository
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler. History endpoints
// answer 404 when repo is nil.
func NewDownloadHandler(downloadMgr *app.DownloadManager, repo domain.RecordRepository, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloadMgr: downloadMgr,
		repo:        repo,
		logger:      logger,
	}
}

// StartDownloadRequest represents a request to fetch a video
type StartDownloadRequest struct {
	Text string `json:"text" binding:"required"`
	Name string `json:"name,omitempty"`
}

// JobResponse is a record together with its live transfer progress
type JobResponse struct {
	domain.Record
	Progress domain.TransferProgress `json:"progress"`
}

func jobResponse(job *app.Job) JobResponse {
	return JobResponse{
		Record:   job.Record(),
		Progress: job.Progress.Snapshot(),
	}
}

// StartDownload handles POST /api/v1/downloads
func (h *DownloadHandler) StartDownload(c *gin.Context) {
	var req StartDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.downloadMgr.Start(req.Text, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, jobResponse(job))
}

// CurrentDownload handles GET /api/v1/downloads/current
func (h *DownloadHandler) CurrentDownload(c *gin.Context) {
	job, ok := h.downloadMgr.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoActiveDownload.Error()})
		return
	}

	c.JSON(http.StatusOK, jobResponse(job))
}

// CancelDownload handles POST /api/v1/downloads/current/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	if err := h.downloadMgr.Cancel(); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		if !domain.ValidateStatus(domain.RecordStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filters["status"] = status
	}
	if videoID := c.Query("video_id"); videoID != "" {
		filters["video_id"] = videoID
	}

	records, err := h.repo.FindAll(filters)
	if err != nil {
		h.logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	record, err := h.repo.FindByID(c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteDownload handles DELETE /api/v1/downloads/:id. The running job's
// record cannot be deleted.
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	id := c.Param("id")
	if job, ok := h.downloadMgr.Active(); ok && job.Record().ID == id {
		c.JSON(http.StatusConflict, gin.H{"error": "download is in progress"})
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.logger.Error("Failed to delete record", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download deleted"})
}

func (h *DownloadHandler) historyEnabled(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return false
	}
	return true
}
