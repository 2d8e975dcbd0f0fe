// Package conf loads process configuration from the environment.
// Everything the dashboard can change at runtime lives in the config
// store instead; this is only the wiring that cannot change while the
// process runs.
package conf

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config represents application configuration
type Config struct {
	// HTTPPort is the dashboard API and WebSocket port
	HTTPPort int

	// DataDir holds the sqlite databases
	DataDir string

	// BridgeURL is the WhatsApp session bridge WebSocket endpoint
	BridgeURL string

	// SMTP endpoint for alert email delivery
	SMTPHost string
	SMTPPort int

	// Debug mode
	Debug bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	httpPort := 3002
	if val := os.Getenv("PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			httpPort = parsed
		}
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".groupwatch")
	}

	bridgeURL := os.Getenv("BRIDGE_URL")
	if bridgeURL == "" {
		bridgeURL = "ws://127.0.0.1:8765/ws"
	}

	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = "smtp.gmail.com"
	}

	smtpPort := 587
	if val := os.Getenv("SMTP_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			smtpPort = parsed
		}
	}

	return &Config{
		HTTPPort:  httpPort,
		DataDir:   dataDir,
		BridgeURL: bridgeURL,
		SMTPHost:  smtpHost,
		SMTPPort:  smtpPort,
		Debug:     os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return &ConfigError{Field: "PORT", Message: "must be a valid TCP port"}
	}
	if c.BridgeURL == "" {
		return &ConfigError{Field: "BRIDGE_URL", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
