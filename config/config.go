package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server Server
	Video  Video
	Stats  Stats
	Redis  Redis
	Auth   Auth
	Tunnel Tunnel
}

// Server holds HTTP server settings.
type Server struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// Video holds the shared media file settings.
type Video struct {
	Path    string // required; validated at startup
	Message string // greeting shown on the player page
}

// Stats holds analytics persistence settings.
type Stats struct {
	File              string  // JSON stats file (default store)
	DatabaseURL       string  // if set, PostgreSQL replaces the JSON file
	CompleteThreshold float64 // progress at which an exit counts as completed
}

// Redis holds optional Redis settings for the live event feed.
type Redis struct {
	Addr     string // empty = Redis disabled
	Password string
	DB       int
}

// Auth holds optional owner authentication settings.
// When PasswordHash is empty, /stats and the event feed are public.
type Auth struct {
	PasswordHash string // bcrypt hash of the owner password
	JWTSecret    string
	ExpireHours  int
}

// Tunnel holds cloudflared quick-tunnel settings.
type Tunnel struct {
	Enabled bool
	Binary  string // cloudflared binary name or path
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	videoPath := os.Getenv("VIDEO_PATH")
	if videoPath == "" {
		return nil, fmt.Errorf("VIDEO_PATH is required")
	}
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file %q: %w", videoPath, err)
	}

	threshold, err := strconv.ParseFloat(getEnv("COMPLETE_THRESHOLD", "0.95"), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("COMPLETE_THRESHOLD must be a number in [0,1]")
	}

	cfg := &Config{
		Server: Server{
			Port:               getEnv("PORT", "3000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 0), // 0: never cut off long video streams
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Video: Video{
			Path:    videoPath,
			Message: getEnv("CUSTOM_MESSAGE", "A video shared just for you."),
		},
		Stats: Stats{
			File:              getEnv("STATS_FILE", "stats/stats_data.json"),
			DatabaseURL:       getEnv("DATABASE_URL", ""),
			CompleteThreshold: threshold,
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: Auth{
			PasswordHash: getEnv("OWNER_PASSWORD_HASH", ""),
			JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours:  getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Tunnel: Tunnel{
			Enabled: getEnvBool("TUNNEL_ENABLED", false),
			Binary:  getEnv("TUNNEL_BINARY", "cloudflared"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}
