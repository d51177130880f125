package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultPort = 34567

type Config struct {
	Port            int
	DBPath          string
	OpenAPISeed     string
	AllowedOrigins  []string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Debug           bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists, but don't return error if it doesn't
	godotenv.Load()

	port, err := parsePort(getEnvWithDefault("PORT", strconv.Itoa(DefaultPort)))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            port,
		DBPath:          getEnvWithDefault("DB_PATH", "db.json"),
		OpenAPISeed:     os.Getenv("OPENAPI_SEED"),
		AllowedOrigins:  splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),
		MaxBodyBytes:    int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),
		ReadTimeout:     time.Duration(getEnvAsInt("READ_TIMEOUT_SECONDS", 15)) * time.Second,
		WriteTimeout:    time.Duration(getEnvAsInt("WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 5)) * time.Second,
		Debug:           getEnvAsBool("DEBUG", false),
	}, nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Validate re-checks fields that may have been overridden after loading.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(value), ":"))
	if err != nil {
		return 0, fmt.Errorf("invalid PORT %q: %w", value, err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid PORT %q: out of range", value)
	}
	return port, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to get environment variable with default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
