package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressWebSocketHandler streams the running job's progress
type ProgressWebSocketHandler struct {
	downloadMgr *app.DownloadManager
	interval    time.Duration
	logger      *zap.Logger
}

// NewProgressWebSocketHandler creates a handler that samples progress
// every interval
func NewProgressWebSocketHandler(downloadMgr *app.DownloadManager, interval time.Duration, log *zap.Logger) *ProgressWebSocketHandler {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &ProgressWebSocketHandler{
		downloadMgr: downloadMgr,
		interval:    interval,
		logger:      log,
	}
}

// HandleWebSocket handles GET /api/v1/downloads/current/ws. It sends one
// JobResponse per tick and closes after the job reaches a final status.
func (h *ProgressWebSocketHandler) HandleWebSocket(c *gin.Context) {
	job, ok := h.downloadMgr.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoActiveDownload.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("Progress client connected",
		zap.String("id", job.Record().ID),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read from the client only to notice when it leaves
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		resp := jobResponse(job)
		if err := conn.WriteJSON(resp); err != nil {
			h.logger.Debug("Progress client gone", zap.Error(err))
			return
		}
		if resp.IsTerminal() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(resp.Status)))
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		}
	}
}
