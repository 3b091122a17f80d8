package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	CORSOrigins      []string
	RateLimitPerMin  int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	StorageDriver        string
	StoragePath          string
	StoragePublicBaseURL string
	S3Bucket             string
	S3Region             string
	S3Endpoint           string
	S3PublicBaseURL      string
	S3PublicRead         bool

	Backend            string
	GeminiAPIKey       string
	GeminiBaseURL      string
	VideoModel         string
	ExtendModel        string
	TextModel          string
	SpeechModel        string
	GeminiRequestsPerM int

	PollInterval     time.Duration
	PollMaxAttempts  int
	PollDeadline     time.Duration
	PollRetries      int
	PollRetryBackoff time.Duration

	FeeInitial       int
	FeeExtension     int
	FeeNarration     int
	ClipSeconds      int
	ExtensionSeconds int

	AccountID       string
	StartingCredits int
	DefaultTier     string
}

const (
	BackendGemini    = "gemini"
	BackendSynthetic = "synthetic"

	StorageFile = "file"
	StorageS3   = "s3"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),

		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
		StoragePath:          getEnv("STORAGE_PATH", "./data/media"),
		StoragePublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		S3Bucket:             os.Getenv("S3_BUCKET"),
		S3Region:             getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:           os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL:      os.Getenv("S3_PUBLIC_BASE_URL"),
		S3PublicRead:         getEnvBool("S3_PUBLIC_READ", false),

		Backend:            strings.ToLower(getEnv("STUDIO_BACKEND", BackendGemini)),
		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VideoModel:         getEnv("GEMINI_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		ExtendModel:        getEnv("GEMINI_EXTEND_MODEL", "veo-3.1-generate-preview"),
		TextModel:          getEnv("GEMINI_TEXT_MODEL", "gemini-3-flash-preview"),
		SpeechModel:        getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiRequestsPerM: getEnvInt("GEMINI_REQUESTS_PER_MINUTE", 30),

		PollInterval:     getEnvDuration("POLL_INTERVAL", 10*time.Second),
		PollMaxAttempts:  getEnvInt("POLL_MAX_ATTEMPTS", 60),
		PollDeadline:     getEnvDuration("POLL_DEADLINE", 15*time.Minute),
		PollRetries:      getEnvInt("POLL_RETRIES", 3),
		PollRetryBackoff: getEnvDuration("POLL_RETRY_BACKOFF", 2*time.Second),

		FeeInitial:       getEnvInt("FEE_INITIAL", 0),
		FeeExtension:     getEnvInt("FEE_EXTENSION", 150),
		FeeNarration:     getEnvInt("FEE_NARRATION", 50),
		ClipSeconds:      getEnvInt("CLIP_SECONDS", 5),
		ExtensionSeconds: getEnvInt("EXTENSION_SECONDS", 7),

		AccountID:       getEnv("ACCOUNT_ID", "local"),
		StartingCredits: getEnvInt("STARTING_CREDITS", 500),
		DefaultTier:     getEnv("DEFAULT_TIER", "MID"),
	}

	switch cfg.Backend {
	case BackendGemini, BackendSynthetic:
	default:
		return nil, fmt.Errorf("STUDIO_BACKEND must be %q or %q, got %q", BackendGemini, BackendSynthetic, cfg.Backend)
	}
	switch cfg.StorageDriver {
	case StorageFile:
	case StorageS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageFile, StorageS3, cfg.StorageDriver)
	}
	if cfg.ClipSeconds <= 0 || cfg.ExtensionSeconds <= 0 {
		return nil, fmt.Errorf("CLIP_SECONDS and EXTENSION_SECONDS must be positive")
	}
	if cfg.FeeInitial < 0 || cfg.FeeExtension < 0 || cfg.FeeNarration < 0 {
		return nil, fmt.Errorf("fees must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("30s") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
