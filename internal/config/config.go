package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LocalStorageConfig holds settings for the filesystem storage driver.
type LocalStorageConfig struct {
	BaseDir string
	// BaseURL, when set, is used to build direct download URLs for locally
	// stored objects.
	BaseURL string
}

// RetentionConfig holds the limits and cadence of the storage retention
// subsystem. All values must be positive; Validate rejects anything else at
// startup rather than running with meaningless limits.
type RetentionConfig struct {
	MaxStoredDocuments          int
	MaxStorageSizeMB            int
	MinRetentionHours           int
	CleanupBatchSize            int
	StorageCheckIntervalMinutes int
}

// Validate returns an error for any non-positive limit, interval, or batch
// size.
func (r RetentionConfig) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"MAX_STORED_DOCUMENTS", r.MaxStoredDocuments},
		{"MAX_STORAGE_SIZE_MB", r.MaxStorageSizeMB},
		{"MIN_RETENTION_HOURS", r.MinRetentionHours},
		{"CLEANUP_BATCH_SIZE", r.CleanupBatchSize},
		{"STORAGE_CHECK_INTERVAL_MINUTES", r.StorageCheckIntervalMinutes},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("retention config: %s must be positive, got %d", c.name, c.value)
		}
	}
	return nil
}

// MaxBytes is the size limit expressed in bytes.
func (r RetentionConfig) MaxBytes() int64 {
	return int64(r.MaxStorageSizeMB) * 1024 * 1024
}

// MinRetention is the retention floor as a duration.
func (r RetentionConfig) MinRetention() time.Duration {
	return time.Duration(r.MinRetentionHours) * time.Hour
}

// CheckInterval is the background sweep cadence as a duration.
func (r RetentionConfig) CheckInterval() time.Duration {
	return time.Duration(r.StorageCheckIntervalMinutes) * time.Minute
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	StorageDriver string // "local" or "minio"
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Local         LocalStorageConfig
	Retention     RetentionConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          getEnv("PORT", "8080"), // default only for non-sensitive value
		StorageDriver: getEnv("STORAGE_DRIVER", "local"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "markui"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Local: LocalStorageConfig{
			BaseDir: getEnv("STORAGE_DIR", "./data"),
			BaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		},
		Retention: RetentionConfig{
			MaxStoredDocuments:          getEnvInt("MAX_STORED_DOCUMENTS", 50),
			MaxStorageSizeMB:            getEnvInt("MAX_STORAGE_SIZE_MB", 5000),
			MinRetentionHours:           getEnvInt("MIN_RETENTION_HOURS", 24),
			CleanupBatchSize:            getEnvInt("CLEANUP_BATCH_SIZE", 10),
			StorageCheckIntervalMinutes: getEnvInt("STORAGE_CHECK_INTERVAL_MINUTES", 30),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
