package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jo-hoe/imagehost/internal/auth"
	"github.com/jo-hoe/imagehost/internal/backend"
	"github.com/jo-hoe/imagehost/internal/common"
	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/jo-hoe/imagehost/internal/frontend"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	// Load configuration
	configPath := core.ConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	configureLogging(config.LogLevel)

	imageService, err := core.NewImageService(config)
	if err != nil {
		slog.Error("failed to initialize image service", "error", err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	sessions, err := auth.NewSessionStore(startupCtx, config.Sessions)
	cancelStartup()
	if err != nil {
		slog.Error("failed to initialize session store", "error", err)
		_ = imageService.Close()
		os.Exit(1)
	}
	authService, err := auth.NewService(imageService.Database(), sessions, config.Auth)
	if err != nil {
		slog.Error("failed to initialize auth service", "error", err)
		_ = sessions.Close()
		_ = imageService.Close()
		os.Exit(1)
	}

	server := defineServer()
	backend.NewAPIService(config, imageService, authService).SetRoutes(server)
	frontend.NewFrontendService(config, imageService).SetRoutes(server)

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	if config.Reconcile.Interval > 0 {
		slog.Info("starting reconcile loop", "interval", config.Reconcile.Interval, "grace_period", config.Reconcile.GracePeriod)
		go imageService.RunReconcileLoop(backgroundCtx, config.Reconcile.Interval)
	}

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("starting server", "port", config.Port, "path_prefix", config.PathPrefix, "environment", config.Environment)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := authService.Close(); err != nil {
		slog.Error("session store close error", "error", err)
	}
	if err := imageService.Close(); err != nil {
		slog.Error("image service close error", "error", err)
	}
}

func configureLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Configure request logger to skip the liveness probe
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				slog.Error("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = common.NewGenericEchoValidator()

	return e
}
