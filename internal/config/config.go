package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	// Security settings
	AllowedHosts   []string `envconfig:"ALLOWED_HOSTS" default:"localhost"`
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" default:"10.0.0.0/8,172.16.0.0/12"`
	HSTSMaxAge     int      `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode        string   `envconfig:"CSP_MODE" default:"relaxed"`

	// Storage settings
	UploadDir string `envconfig:"UPLOAD_DIR" default:"uploads/audio"`
	DataDir   string `envconfig:"DATA_DIR" default:"uploads/data"`
	ExportDir string `envconfig:"EXPORT_DIR" default:"exports"`
	StaticDir string `envconfig:"STATIC_DIR" default:"./public"`

	// Upload limits
	MaxUploadBytes     int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`
	MaxDurationSeconds int   `envconfig:"MAX_DURATION_SECONDS" default:"600"`

	// External capability settings
	WhisperModel    string `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &config, nil
}

// EnsureDirectories creates the upload, data, and export directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.UploadDir, c.DataDir, c.ExportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the sqlite artifact database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "echopost.db")
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// Production CSP
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"img-src 'self' data:; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:"
}
