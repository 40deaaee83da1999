package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vidgrab/config"
	"vidgrab/engine"
	"vidgrab/handlers"
	"vidgrab/middleware"
	"vidgrab/services"
	"vidgrab/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(os.Stdout)
			if err != nil {
				return err
			}
			return StartWebServer(cmd.Context(), cfg, logger)
		},
	}
}

// StartWebServer runs the API until ctx is cancelled or SIGINT/SIGTERM arrives
func StartWebServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)

	eng := engine.NewYTDLP(cfg.Engine.Binary)
	if path, err := eng.CheckBinary(); err != nil {
		logger.Warn("extraction engine not found; analyze and download will fail", slog.String("error", err.Error()))
	} else {
		logger.Info("extraction engine found", slog.String("path", path))
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	media, err := services.NewMediaService(cfg, eng, hub, logger)
	if err != nil {
		return err
	}
	media.Start(ctx)
	defer media.Stop()

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           NewRouter(cfg, media, hub, eng.CheckBinary, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vidgrab web server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(cfg *config.Config, media services.MediaService, hub websocket.Hub, checkEngine handlers.BinaryChecker, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.Logging(logger))

	mediaHandler := handlers.NewMediaHandler(media, hub, cfg.Server.AllowedOrigins, logger)
	fileHandler := handlers.NewFileHandler(media, logger)
	healthHandler := handlers.NewHealthHandler(media.DownloadDir(), checkEngine)

	setupRoutes(r, mediaHandler, fileHandler, healthHandler)
	return r
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, mediaHandler *handlers.MediaHandler, fileHandler *handlers.FileHandler, healthHandler *handlers.HealthHandler) {
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		apiGroup.POST("/analyze", mediaHandler.Analyze)
		apiGroup.POST("/download", mediaHandler.StartDownload)
		apiGroup.GET("/progress/:jobId", mediaHandler.GetProgress)
		apiGroup.GET("/file/:jobId", mediaHandler.GetFile)
		apiGroup.GET("/jobs", mediaHandler.ListJobs)

		apiGroup.GET("/files", fileHandler.ListFiles)

		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/progress/:jobId", mediaHandler.HandleWebSocketConnection)
			wsGroup.GET("/progress", mediaHandler.HandleWebSocketAllConnection)
		}
	}
}
