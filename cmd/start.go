/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/handler"
	"github.com/tieubaoca/policy-assistant/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the policy assistant HTTP server",
	Long: `Serves POST /chat, POST /feedback, GET /chat-history, GET /search,
GET /ws/chat and GET /healthz.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		chatService, configured, closeFn, err := buildChatService(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to build pipeline", zap.Error(err))
			return err
		}
		defer closeFn()

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := handler.NewRouter(
			handler.RouterConfig{
				JWTSecret:    cfg.Auth.JWTSecret,
				AllowOrigins: cfg.Server.AllowOrigins,
			},
			handler.NewChatHandler(chatService, service.NewWebSocketService(chatService, logger), logger),
			handler.NewSearchHandler(chatService, logger),
			handler.NewHealthHandler(configured),
			logger,
		)

		srv := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting server", zap.String("port", cfg.Port), zap.Bool("configured", configured))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("server error", zap.Error(err))
				return err
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
