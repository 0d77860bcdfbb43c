package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
)

// ResolveHandler resolves share text without downloading
type ResolveHandler struct {
	pipeline *app.Pipeline
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(pipeline *app.Pipeline) *ResolveHandler {
	return &ResolveHandler{pipeline: pipeline}
}

// ResolveRequest carries pasted share text
type ResolveRequest struct {
	Text string `json:"text" binding:"required"`
}

// ResolveResponse describes a verified video
type ResolveResponse struct {
	*domain.VideoInfo
	SizeHuman string `json:"size_human"`
}

// Resolve handles POST /api/v1/resolve. The request runs until the
// pipeline settles or the client goes away.
func (h *ResolveHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.pipeline.Resolve(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResolveResponse{
		VideoInfo: info,
		SizeHuman: domain.FormatSize(info.Size),
	})
}
