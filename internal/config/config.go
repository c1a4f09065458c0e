package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageLocal    = "local"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Geocode  GeocodeConfig
	Geofence GeofenceConfig
	Agent    AgentConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	Version        string
	LogLevel       string
	AllowedOrigins []string
}

// APIConfig points at the HRIS backend.
type APIConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	AuthErrorCode string
}

type StorageConfig struct {
	Type string
	Path string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type GeocodeConfig struct {
	NominatimURL    string
	BigDataCloudURL string
	Timeout         time.Duration
	UserAgent       string
	Language        string
}

type GeofenceConfig struct {
	OfficesFile string
	Enforce     bool
	Offices     []attendance.Office
}

// AgentConfig holds the attendance rules and the local API token settings.
type AgentConfig struct {
	LateAfter       time.Duration
	RefreshInterval time.Duration
	JWTSecret       string
	TokenExpiration time.Duration
}

// Load reads the process environment, after applying envFiles (".env" when
// none are given). A missing env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	config := &Config{}
	var err error

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8787"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		Version:        getEnv("APP_VERSION", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// Backend API configuration
	config.API.BaseURL = getEnv("API_BASE_URL", "")
	config.API.AuthErrorCode = getEnv("API_AUTH_ERROR_CODE", "token_not_valid")
	if config.API.Timeout, err = getEnvDuration("API_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if config.API.MaxRetries, err = strconv.Atoi(getEnv("API_MAX_RETRIES", "2")); err != nil {
		return nil, fmt.Errorf("invalid API_MAX_RETRIES: %w", err)
	}
	if config.API.RetryDelay, err = getEnvDuration("API_RETRY_DELAY", time.Second); err != nil {
		return nil, err
	}

	// Storage configuration
	config.Storage = StorageConfig{
		Type: strings.ToLower(getEnv("STORAGE_TYPE", StorageLocal)),
		Path: getEnv("STORAGE_PATH", ""),
	}
	if config.Storage.Path == "" {
		config.Storage.Path = defaultStoragePath(config.Storage.Type)
	}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris_agent"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Reverse geocoding
	config.Geocode = GeocodeConfig{
		NominatimURL:    getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		BigDataCloudURL: getEnv("BIGDATACLOUD_URL", "https://api.bigdatacloud.net"),
		UserAgent:       getEnv("GEOCODE_USER_AGENT", "hris-attendance-agent"),
		Language:        getEnv("GEOCODE_LANGUAGE", "en"),
	}
	if config.Geocode.Timeout, err = getEnvDuration("GEOCODE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	// Geofence
	config.Geofence.OfficesFile = getEnv("OFFICES_FILE", "")
	if config.Geofence.Enforce, err = getEnvBool("GEOFENCE_ENFORCE", false); err != nil {
		return nil, err
	}
	if config.Geofence.OfficesFile != "" {
		offices, err := LoadOffices(config.Geofence.OfficesFile)
		if err != nil {
			return nil, err
		}
		config.Geofence.Offices = offices
	}

	// Attendance rules and local API auth
	lateAfter := getEnv("LATE_AFTER", "")
	if lateAfter != "" {
		d, ok := validator.ParseClockTime(lateAfter)
		if !ok {
			return nil, fmt.Errorf("invalid LATE_AFTER %q: want HH:MM", lateAfter)
		}
		config.Agent.LateAfter = d
	}
	if config.Agent.RefreshInterval, err = getEnvDuration("REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	config.Agent.JWTSecret = getEnv("AGENT_JWT_SECRET", "")
	if config.Agent.TokenExpiration, err = getEnvDuration("AGENT_TOKEN_EXPIRATION", 24*time.Hour); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL")
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("API_MAX_RETRIES must not be negative")
	}

	switch c.Storage.Type {
	case StorageLocal, StorageSQLite, StorageMemory:
	case StoragePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for postgres storage")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be one of: local, sqlite, postgres, memory")
	}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535")
	}
	if c.Agent.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}
	if c.Geofence.Enforce && len(c.Geofence.Offices) == 0 {
		return fmt.Errorf("GEOFENCE_ENFORCE requires OFFICES_FILE with at least one office")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Addr is the listen address of the local API. It binds loopback only.
func (c *Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.App.Port)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func defaultStoragePath(storageType string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "storage.json"
	if storageType == StorageSQLite {
		name = "storage.db"
	}
	return filepath.Join(dir, "hris-agent", name)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
