package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/middleware"
)

type RouterConfig struct {
	JWTSecret    string
	AllowOrigins []string
}

func NewRouter(
	cfg RouterConfig,
	chatHandler ChatHandler,
	searchHandler SearchHandler,
	healthHandler *HealthHandler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(NewCorsHandler(cfg.AllowOrigins...).CorsMiddleware)

	router.GET("/healthz", healthHandler.HandleHealth)

	api := router.Group("/")
	api.Use(middleware.Identity(cfg.JWTSecret, logger))
	{
		api.POST("/chat", chatHandler.HandleChat)
		api.POST("/feedback", chatHandler.HandleFeedback)
		api.GET("/chat-history", chatHandler.HandleHistory)
		api.GET("/search", searchHandler.HandleSearch)
		api.GET("/ws/chat", chatHandler.HandleChatWebSocket)
	}
	return router
}
