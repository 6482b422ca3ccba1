package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"   yaml:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"  yaml:"idle_timeout"`
	Debug        bool          `json:"debug"         yaml:"debug"`

	// Application paths
	LogDir  string `json:"log_dir"  yaml:"log_dir"`
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	Log LogConfig `json:"log" yaml:"log"`

	Middleware MiddlewareConfig `json:"middleware" yaml:"middleware"`
	CORS       CORSConfig       `json:"cors"       yaml:"cors"`
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
	Database   DatabaseConfig   `json:"database"   yaml:"database"`
	Transcript TranscriptConfig `json:"transcript" yaml:"transcript"`
	Summary    SummaryConfig    `json:"summary"    yaml:"summary"`
	Storage    StorageConfig    `json:"storage"    yaml:"storage"`

	Version string `json:"version" yaml:"version"`

	// Request and shutdown timeouts
	RequestTimeout  time.Duration `json:"request_timeout"  yaml:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `json:"level"  yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type MiddlewareConfig struct {
	EnableRecover   bool `json:"enable_recover"    yaml:"enable_recover"`
	EnableRequestID bool `json:"enable_request_id" yaml:"enable_request_id"`
	EnableLogger    bool `json:"enable_logger"     yaml:"enable_logger"`
	EnableTimeout   bool `json:"enable_timeout"    yaml:"enable_timeout"`
	EnableCORS      bool `json:"enable_cors"       yaml:"enable_cors"`
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "pgx".
	Driver             string        `json:"driver"               yaml:"driver"`
	DSN                string        `json:"dsn"                  yaml:"dsn"`
	MaxConnections     int           `json:"max_connections"      yaml:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections" yaml:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"    yaml:"conn_max_lifetime"`
}

type TranscriptConfig struct {
	// Languages is the caption language preference list, most preferred first.
	Languages      []string      `json:"languages"        yaml:"languages"`
	ProcessTimeout time.Duration `json:"process_timeout"  yaml:"process_timeout"`
	WhisperPath    string        `json:"whisper_path"     yaml:"whisper_path"`
	WhisperModel   string        `json:"whisper_model"    yaml:"whisper_model"`
	FFmpegPath     string        `json:"ffmpeg_path"      yaml:"ffmpeg_path"`
	Language       string        `json:"language"         yaml:"language"`
	OutputFormat   string        `json:"output_format"    yaml:"output_format"`
	MaxConcurrent  int           `json:"max_concurrent"   yaml:"max_concurrent"`
	ShowProgress   bool          `json:"show_progress"    yaml:"show_progress"`
	Environment    []string      `json:"environment"      yaml:"environment"`
}

type SummaryConfig struct {
	APIKey          string  `json:"-"                 yaml:"api_key"`
	Model           string  `json:"model"             yaml:"model"`
	Temperature     float64 `json:"temperature"       yaml:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens"`
	PromptOnly      bool    `json:"prompt_only"       yaml:"prompt_only"`
}

type StorageConfig struct {
	Enabled   bool   `json:"enabled"  yaml:"enabled"`
	AccessKey string `json:"-"        yaml:"access_key"`
	SecretKey string `json:"-"        yaml:"secret_key"`
	Region    string `json:"region"   yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket"   yaml:"bucket"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled"           yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"   yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"   yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"   yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"   yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age"           yaml:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"             yaml:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"          yaml:"burst_size"`
}

var validOutputFormats = map[string]bool{"txt": true, "srt": true, "vtt": true}

func defaultDevConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   false,
		EnableCORS:      true,
		EnableRateLimit: false,
	}
}

func defaultProdConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   true,
		EnableCORS:      true,
		EnableRateLimit: true,
	}
}

// Default returns the built-in configuration before any file or environment overrides.
func Default() *Config {
	return &Config{
		ServerPort:   "8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,

		LogDir:  "/var/log/yt-summary",
		TempDir: os.TempDir(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},

		Version:         "1.0.0",
		RequestTimeout:  30 * time.Minute,
		ShutdownTimeout: 30 * time.Second,

		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{},
			MaxAge:         86400,
		},

		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			BurstSize:         5,
		},

		Database: DatabaseConfig{
			Driver:             "sqlite3",
			DSN:                "/var/lib/yt-summary/data.db",
			MaxConnections:     10,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    time.Hour,
		},

		Transcript: TranscriptConfig{
			Languages:      []string{"en", "en-US"},
			ProcessTimeout: 30 * time.Minute,
			WhisperPath:    "./whisper.cpp",
			WhisperModel:   "ggml-medium.bin",
			FFmpegPath:     "ffmpeg",
			Language:       "auto",
			OutputFormat:   "srt",
			MaxConcurrent:  1,
		},

		Summary: SummaryConfig{
			Model:           "gemini-2.5-flash",
			Temperature:     0.5,
			MaxOutputTokens: 10000,
		},

		Middleware: defaultDevConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and environment variables, in that order.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server settings
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.IdleTimeout)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)

	// Application paths
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.TempDir = getEnv("TEMP_DIR", c.TempDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Version = getEnv("VERSION", c.Version)
	c.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	// CORS
	c.CORS.Enabled = getEnvAsBool("CORS_ENABLED", c.CORS.Enabled)
	c.CORS.AllowedOrigins = getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.AllowedMethods = getEnvAsStringSlice("CORS_ALLOWED_METHODS", c.CORS.AllowedMethods)
	c.CORS.AllowedHeaders = getEnvAsStringSlice("CORS_ALLOWED_HEADERS", c.CORS.AllowedHeaders)
	c.CORS.ExposedHeaders = getEnvAsStringSlice("CORS_EXPOSED_HEADERS", c.CORS.ExposedHeaders)
	c.CORS.AllowCredentials = getEnvAsBool("CORS_ALLOW_CREDENTIALS", c.CORS.AllowCredentials)
	c.CORS.MaxAge = getEnvAsInt("CORS_MAX_AGE", c.CORS.MaxAge)

	// Rate limiting
	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerMinute = getEnvAsInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)

	// Database
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", getEnv("DB_PATH", c.Database.DSN))
	c.Database.MaxConnections = getEnvAsInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections)
	c.Database.MaxIdleConnections = getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", c.Database.MaxIdleConnections)
	c.Database.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	// Transcript pipeline
	c.Transcript.Languages = getEnvAsStringSlice("CAPTION_LANGUAGES", c.Transcript.Languages)
	c.Transcript.ProcessTimeout = getEnvAsDuration("VIDEO_PROCESS_TIMEOUT", c.Transcript.ProcessTimeout)
	c.Transcript.WhisperPath = getEnv("WHISPER_PATH", c.Transcript.WhisperPath)
	c.Transcript.WhisperModel = getEnv("WHISPER_MODEL", c.Transcript.WhisperModel)
	c.Transcript.FFmpegPath = getEnv("FFMPEG_PATH", c.Transcript.FFmpegPath)
	c.Transcript.Language = getEnv("WHISPER_LANGUAGE", c.Transcript.Language)
	c.Transcript.OutputFormat = getEnv("WHISPER_OUTPUT_FORMAT", c.Transcript.OutputFormat)
	c.Transcript.MaxConcurrent = getEnvAsInt("WHISPER_MAX_CONCURRENT", c.Transcript.MaxConcurrent)
	c.Transcript.ShowProgress = getEnvAsBool("SHOW_PROGRESS", c.Transcript.ShowProgress)
	c.Transcript.Environment = getEnvAsStringSlice("WHISPER_ENV", c.Transcript.Environment)

	// Summary
	c.Summary.APIKey = getEnv("GEMINI_API_KEY", c.Summary.APIKey)
	c.Summary.Model = getEnv("SUMMARY_MODEL", c.Summary.Model)
	c.Summary.Temperature = getEnvAsFloat("SUMMARY_TEMPERATURE", c.Summary.Temperature)
	c.Summary.MaxOutputTokens = getEnvAsInt("SUMMARY_MAX_TOKENS", c.Summary.MaxOutputTokens)
	c.Summary.PromptOnly = getEnvAsBool("SUMMARY_PROMPT_ONLY", c.Summary.PromptOnly)

	// Transcript archive
	c.Storage.Enabled = getEnvAsBool("SPACES_ENABLED", c.Storage.Enabled)
	c.Storage.AccessKey = getEnv("SPACES_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("SPACES_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Region = getEnv("SPACES_REGION", c.Storage.Region)
	c.Storage.Endpoint = getEnv("SPACES_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Bucket = getEnv("SPACES_BUCKET", c.Storage.Bucket)

	if os.Getenv("ENV") == "production" {
		c.Middleware = defaultProdConfig()
	}
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validateServices(c); err != nil {
		return err
	}

	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.TempDir, "temp directory"},
	}

	if c.Database.Driver == "sqlite3" && c.Database.DSN != ":memory:" {
		paths = append(paths, struct {
			path string
			name string
		}{filepath.Dir(c.Database.DSN), "database directory"})
	}

	for _, p := range paths {
		if p.path == "" {
			continue
		}
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.Transcript.ProcessTimeout <= 0 {
		return fmt.Errorf("video process timeout must be positive")
	}
	return nil
}

func validateServices(c *Config) error {
	if len(c.Transcript.Languages) == 0 {
		return fmt.Errorf("at least one caption language is required")
	}
	if c.Transcript.MaxConcurrent < 1 {
		return fmt.Errorf("whisper max concurrent must be at least 1")
	}
	if !validOutputFormats[c.Transcript.OutputFormat] {
		return fmt.Errorf("unsupported whisper output format: %s", c.Transcript.OutputFormat)
	}
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required when storage is enabled")
	}
	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return defaultValue
}
