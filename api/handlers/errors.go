package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tikdown-go/internal/domain"
)

// statusFor maps a classified pipeline error to an HTTP status
func statusFor(err error) int {
	switch domain.Classify(err) {
	case domain.KindInput:
		return http.StatusBadRequest
	case domain.KindTerminal, domain.KindUnplayable:
		return http.StatusUnprocessableEntity
	case domain.KindTransient, domain.KindIO:
		return http.StatusBadGateway
	case domain.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	body := gin.H{
		"error": err.Error(),
		"kind":  domain.Classify(err),
	}
	if reason := domain.ReasonOf(err); reason != "" {
		body["reason"] = reason
		body["description"] = reason.Description()
	}
	c.JSON(statusFor(err), body)
}
