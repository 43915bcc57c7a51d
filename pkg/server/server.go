package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mycloud/pkg/log"
	"mycloud/pkg/session"
	"mycloud/pkg/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultShutdownTimeout = 10 * time.Second

// Config configures the HTTP server.
type Config struct {
	WebDir          string
	Version         string
	ShutdownTimeout time.Duration
	// BodyLimitBytes caps request bodies; zero means unlimited.
	BodyLimitBytes int64
	// MetricsHandler is mounted on /metrics when set.
	MetricsHandler http.Handler
}

// Server exposes a store.Storage over HTTP.
type Server struct {
	config   Config
	echo     *echo.Echo
	storage  store.Storage
	sessions *session.Manager
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg Config, storage store.Storage, sessions *session.Manager) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	srv := &Server{
		config:   cfg,
		echo:     echo.New(),
		storage:  storage,
		sessions: sessions,
	}
	srv.setupRoutes()

	return srv
}

// Handler returns the HTTP handler of the server.
func (srv *Server) Handler() http.Handler {
	return srv.echo
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully.
func (srv *Server) Start(addr string) error {
	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", srv.config.Version).
			Str("web_dir", srv.config.WebDir).
			Bool("metrics", srv.config.MetricsHandler != nil).
			Msg("Starting storage server")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return srv.Shutdown()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (srv *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), srv.config.ShutdownTimeout)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (srv *Server) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true

	srv.echo.Use(middleware.RequestID())
	srv.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))
	srv.echo.Use(middleware.Recover())
	if srv.config.BodyLimitBytes > 0 {
		srv.echo.Use(middleware.BodyLimit(strconv.FormatInt(srv.config.BodyLimitBytes, 10)))
	}
	srv.echo.Use(srv.sessionMiddleware)

	srv.echo.GET("/", srv.serveSwaggerUI)
	srv.echo.GET("/swagger.yml", srv.serveSwaggerSpec)
	if srv.config.MetricsHandler != nil {
		srv.echo.GET("/metrics", echo.WrapHandler(srv.config.MetricsHandler))
	}

	api := srv.echo.Group("/api")
	api.POST("/login", srv.login)
	api.POST("/logout", srv.logout)
	api.GET("/files", srv.listFiles)
	api.GET("/gallery", srv.listGallery)
	api.POST("/files/upload", srv.uploadFiles)
	api.GET("/files/download", srv.downloadFile)
	api.GET("/quota", srv.quotaStatus)
}
