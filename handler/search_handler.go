package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/service"
	"github.com/tieubaoca/policy-assistant/types"
)

type SearchHandler interface {
	HandleSearch(c *gin.Context)
}

type searchHandler struct {
	chatService service.ChatService
	logger      *zap.Logger
}

func NewSearchHandler(chatService service.ChatService, logger *zap.Logger) SearchHandler {
	return &searchHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// HandleSearch returns the passages a question would be answered from.
func (h *searchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.SearchResponse{Passages: []types.Passage{}, Error: "Invalid query"})
		return
	}

	passages, err := h.chatService.Search(c.Request.Context(), req.Query, req.Limit)
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, types.SearchResponse{Passages: []types.Passage{}, Error: err.Error()})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, types.SearchResponse{Passages: []types.Passage{}, Error: "server not configured"})
	case err != nil:
		h.logger.Warn("search failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, types.SearchResponse{Passages: []types.Passage{}, Error: "Search failed"})
	default:
		c.JSON(http.StatusOK, types.SearchResponse{Passages: passages})
	}
}
