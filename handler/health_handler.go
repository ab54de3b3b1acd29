package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	configured bool
}

func NewHealthHandler(configured bool) *HealthHandler {
	return &HealthHandler{configured: configured}
}

func (h *HealthHandler) HandleHealth(c *gin.Context) {
	if !h.configured {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
