// Package main runs the video-sharing HTTP server: range streaming,
// playback tracking, live event feed and optional cloudflared tunnel.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidshare/backend/config"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/realtime"
	"github.com/vidshare/backend/internal/stats"
	"github.com/vidshare/backend/internal/tracking"
	"github.com/vidshare/backend/internal/tunnel"
	"github.com/vidshare/backend/internal/video"
	"github.com/vidshare/backend/internal/web"
	"github.com/vidshare/backend/pkg/database"
	"github.com/vidshare/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	// Stats persistence: JSON file by default, Postgres when configured.
	var store stats.Store
	if cfg.Stats.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.Stats.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		store = stats.NewPostgresStore(pool, logger)
	} else {
		store, err = stats.NewFileStore(cfg.Stats.File, logger)
		if err != nil {
			logger.Fatal("stats file store", zap.Error(err))
		}
	}
	defer store.Close()

	statsService, err := stats.NewService(ctx, store, filepath.Base(cfg.Video.Path), cfg.Stats.CompleteThreshold, logger)
	if err != nil {
		logger.Fatal("stats service", zap.Error(err))
	}

	// Live event feed, fanned out over Redis when available.
	var redisPub realtime.RedisPublisher
	var redisSub realtime.RedisSubscriber
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
			redisPub, redisSub = pubsub, pubsub
		}
	}
	hub := realtime.NewHub(logger, redisPub, redisSub)
	defer hub.Close()
	statsService.SetPublisher(hub)

	// Owner auth is optional: without a password hash everything stays
	// public, matching a freshly shared link.
	var jwtService *auth.JWTService
	var authHandler *auth.Handler
	if cfg.Auth.PasswordHash != "" {
		jwtService = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.ExpireHours)
		authHandler = auth.NewHandler(cfg.Auth.PasswordHash, jwtService, logger)
	}

	videoHandler := video.NewHandler(cfg.Video.Path, logger)
	trackingHandler := tracking.NewHandler(statsService, logger)
	statsHandler := stats.NewHandler(statsService)
	webHandler := web.NewHandler(statsService, cfg.Video.Message, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/", webHandler.Player)
	router.GET("/assets/:name", webHandler.Asset)
	router.GET("/video", videoHandler.Stream)

	track := router.Group("/track")
	{
		track.POST("/start", trackingHandler.Start)
		track.POST("/heartbeat", trackingHandler.Heartbeat)
		track.POST("/pause", trackingHandler.Pause)
		track.POST("/complete", trackingHandler.Complete)
		track.POST("/exit", trackingHandler.Exit)
		track.POST("/error", trackingHandler.Error)
	}

	if authHandler != nil {
		router.POST("/auth/login", authHandler.Login)
	}
	router.GET("/stats", middleware.OwnerAuth(jwtService), statsHandler.Summary)
	router.GET("/ws/events", middleware.OwnerAuth(jwtService), realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// WriteTimeout stays 0 by default so long video streams are not
		// cut off mid-transfer.
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	var tunnelSvc *tunnel.Service
	if cfg.Tunnel.Enabled {
		tunnelSvc = tunnel.NewService(cfg.Tunnel.Binary, logger)
		tunnelSvc.OnReady(func(url string) {
			logger.Info("share this link", zap.String("url", url), zap.String("stats", url+"/stats"))
		})
		tunnelSvc.OnExit(func(err error) {
			if err != nil {
				logger.Error("tunnel ended", zap.Error(err))
			}
		})
		if err := tunnelSvc.Start(cfg.Server.Port); err != nil {
			logger.Error("tunnel start failed, serving locally only", zap.Error(err))
		}
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("video", filepath.Base(cfg.Video.Path)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if tunnelSvc != nil {
		tunnelSvc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	statsService.Flush(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
