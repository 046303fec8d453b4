// Package main tails the live tracking event feed from Redis, so the
// video owner can watch views arrive from a terminal while the server
// runs elsewhere.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidshare/backend/internal/realtime"
	"github.com/vidshare/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	_ = godotenv.Load()
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	password := os.Getenv("REDIS_PASSWORD")
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, addr, password, db, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	cancel, err := pubsub.Subscribe(func(event string, payload []byte) {
		logger.Info("event",
			zap.String("type", event),
			zap.ByteString("payload", payload),
		)
	})
	if err != nil {
		logger.Fatal("subscribe", zap.Error(err))
	}
	defer cancel()

	logger.Info("watching event feed", zap.String("channel", realtime.FeedChannel))
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
