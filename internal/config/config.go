package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Gist      GistConfig
	Store     StoreConfig
	Sync      SyncConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type GistConfig struct {
	APIBaseURL string
	// NotesDocumentID addresses the notes collection; TokensDocumentID the
	// share token collection. They may point at the same document.
	NotesDocumentID  string
	TokensDocumentID string
	Token            string
	Timeout          time.Duration
}

type StoreConfig struct {
	DataDir string
	// CacheTTL is the staleness ceiling for serving cached remote payloads
	// on the fetch path. Save fallbacks use the cache regardless of age.
	CacheTTL time.Duration
}

type SyncConfig struct {
	// DebounceWindow is the quiescence period between the last local note
	// mutation and the remote push, restarted on every mutation.
	DebounceWindow time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	godotenv.Load()

	gistTimeout, err := time.ParseDuration(getEnv("GIST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GIST_TIMEOUT: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	debounce, err := time.ParseDuration(getEnv("SYNC_DEBOUNCE", "1200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_DEBOUNCE: %w", err)
	}

	notesGist := getEnv("GIST_ID", "")

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Gist: GistConfig{
			APIBaseURL:       getEnv("GIST_API_BASE", "https://api.github.com/gists"),
			NotesDocumentID:  notesGist,
			TokensDocumentID: getEnv("SHARE_TOKENS_GIST_ID", notesGist),
			Token:            getEnv("GITHUB_TOKEN", ""),
			Timeout:          gistTimeout,
		},
		Store: StoreConfig{
			DataDir:  getEnv("DATA_DIR", "./data"),
			CacheTTL: cacheTTL,
		},
		Sync: SyncConfig{
			DebounceWindow: debounce,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
