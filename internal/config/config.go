package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the console front-ends
type Config struct {
	// Platform API Configuration
	API APIConfig

	// Session Storage Configuration
	Storage StorageConfig

	// Redis Configuration
	Redis RedisConfig

	// Routing Configuration
	Routes RoutesConfig

	// Web Console Configuration
	Web WebConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the platform API settings
type APIConfig struct {
	URL     string
	Timeout time.Duration
}

// StorageConfig selects where the session is persisted
type StorageConfig struct {
	Backend string // file, memory, redis
	Dir     string // state directory for the file backend
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// RoutesConfig points at optional overrides of the built-in route table and menu
type RoutesConfig struct {
	File     string
	MenuFile string
}

// WebConfig holds the web console settings
type WebConfig struct {
	ListenAddr  string
	CORSOrigins []string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables. defaultLogFormat is
// used when LOG_FORMAT is unset: the CLI logs for humans, the web console
// for machines.
func Load(defaultLogFormat string) (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	apiURL := getenv("KHUTWA_API_URL", "https://education-scj0.onrender.com/api")

	timeout, err := time.ParseDuration(getenv("KHUTWA_HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid KHUTWA_HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid KHUTWA_HTTP_TIMEOUT: must be positive")
	}

	backend := strings.ToLower(getenv("KHUTWA_STORAGE", "file"))
	switch backend {
	case "file", "memory", "redis":
	default:
		return nil, fmt.Errorf("invalid KHUTWA_STORAGE %q, must be one of: file, memory, redis", backend)
	}

	stateDir := os.Getenv("KHUTWA_STATE_DIR")
	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return nil, err
		}
	}

	// Redis address - default to localhost:6379, allow override for dev/docker
	redisAddr := getenv("REDIS_ADDRESS", "localhost:6379")

	var origins []string
	for _, o := range strings.Split(getenv("KHUTWA_CORS_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	if defaultLogFormat == "" {
		defaultLogFormat = "json"
	}

	return &Config{
		API: APIConfig{
			URL:     strings.TrimRight(apiURL, "/"),
			Timeout: timeout,
		},
		Storage: StorageConfig{
			Backend: backend,
			Dir:     stateDir,
		},
		Redis: RedisConfig{
			Address: redisAddr,
		},
		Routes: RoutesConfig{
			File:     os.Getenv("KHUTWA_ROUTES_FILE"),
			MenuFile: os.Getenv("KHUTWA_MENU_FILE"),
		},
		Web: WebConfig{
			ListenAddr:  getenv("KHUTWA_LISTEN_ADDR", "127.0.0.1:8080"),
			CORSOrigins: origins,
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", defaultLogFormat),
		},
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// defaultStateDir returns ~/.config/khutwa (or the platform equivalent)
func defaultStateDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "khutwa"), nil
}
