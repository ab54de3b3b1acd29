package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CorsHandler struct {
	allowOrigins map[string]struct{}
}

// NewCorsHandler allows the given origins; none means any.
func NewCorsHandler(allowOrigins ...string) *CorsHandler {
	origins := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		if o != "" {
			origins[o] = struct{}{}
		}
	}
	return &CorsHandler{allowOrigins: origins}
}

func (h *CorsHandler) CorsMiddleware(c *gin.Context) {
	header := c.Writer.Header()
	if len(h.allowOrigins) == 0 {
		header.Set("Access-Control-Allow-Origin", "*")
	} else {
		header.Add("Vary", "Origin")
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := h.allowOrigins[origin]; ok {
				header.Set("Access-Control-Allow-Origin", origin)
			}
		}
	}
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
