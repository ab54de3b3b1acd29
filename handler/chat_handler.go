package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/middleware"
	"github.com/tieubaoca/policy-assistant/service"
	"github.com/tieubaoca/policy-assistant/types"
)

type ChatHandler interface {
	HandleChat(c *gin.Context)
	HandleFeedback(c *gin.Context)
	HandleHistory(c *gin.Context)
	HandleChatWebSocket(c *gin.Context)
}

type chatHandler struct {
	chatService service.ChatService
	wsService   *service.WebSocketService
	logger      *zap.Logger
}

func NewChatHandler(chatService service.ChatService, wsService *service.WebSocketService, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		chatService: chatService,
		wsService:   wsService,
		logger:      logger,
	}
}

func (h *chatHandler) HandleChat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ChatResponse{
			Answer:    service.VALIDATION_MESSAGE,
			Citations: []types.Citation{},
			Error:     "Invalid request body",
		})
		return
	}
	if email := middleware.UserEmail(c); email != "" {
		req.UserEmail = email
	}

	result, err := h.chatService.Ask(c.Request.Context(), req)
	res := types.NewChatResponse(result)
	switch {
	case errors.Is(err, service.ErrValidation):
		res.Error = "question and sessionId are required"
		c.JSON(http.StatusBadRequest, res)
	case errors.Is(err, service.ErrNotConfigured):
		res.Error = "server not configured"
		c.JSON(http.StatusInternalServerError, res)
	case err != nil:
		// Ask absorbs pipeline failures, so this is unexpected
		h.logger.Error("chat failed", zap.Error(err))
		res.Error = "internal error"
		c.JSON(http.StatusInternalServerError, res)
	case result.Blocked:
		res.Error = "privacy violation"
		c.JSON(http.StatusBadRequest, res)
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (h *chatHandler) HandleFeedback(c *gin.Context) {
	var req types.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.FeedbackResponse{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	err := h.chatService.Feedback(c.Request.Context(), req.ChatID, req.Feedback)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, types.FeedbackResponse{Success: true})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, types.FeedbackResponse{Error: "chatId and feedback (good or bad) are required"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, types.FeedbackResponse{Error: "chat not found"})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, types.FeedbackResponse{Error: "server not configured"})
	default:
		c.JSON(http.StatusInternalServerError, types.FeedbackResponse{Error: "internal error"})
	}
}

func (h *chatHandler) HandleHistory(c *gin.Context) {
	var req types.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.HistoryResponse{Messages: []types.HistoryMessage{}, Error: "Invalid query"})
		return
	}

	interactions, err := h.chatService.History(c.Request.Context(), req.SessionID)
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, types.HistoryResponse{Messages: []types.HistoryMessage{}, Error: "sessionId is required"})
		return
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, types.HistoryResponse{Messages: []types.HistoryMessage{}, Error: "server not configured"})
		return
	case err != nil:
		h.logger.Error("load history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.HistoryResponse{Messages: []types.HistoryMessage{}, Error: "internal error"})
		return
	}

	messages := make([]types.HistoryMessage, 0, len(interactions))
	for _, i := range interactions {
		messages = append(messages, types.NewHistoryMessage(i))
	}
	c.JSON(http.StatusOK, types.HistoryResponse{Messages: messages})
}

func (h *chatHandler) HandleChatWebSocket(c *gin.Context) {
	h.wsService.HandleChat(c.Writer, c.Request, middleware.UserEmail(c))
}
