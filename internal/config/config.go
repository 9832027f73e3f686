// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"inventario/internal/blob"
)

// Storage drivers accepted by INVENTARIO_STORAGE_DRIVER.
const (
	StorageCSV      = "csv"
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
)

// Config holds every runtime setting.
type Config struct {
	DataDir       string
	StorageDriver string
	SQLitePath    string
	PostgresDSN   string
	MySQLDSN      string

	BackupDriver      string
	BackupFSRoot      string
	BackupS3Bucket    string
	BackupS3Region    string
	BackupS3Endpoint  string
	BackupS3Key       string
	BackupS3Secret    string
	BackupS3PathStyle bool

	LogLevel        string
	Environment     string
	MetricsTextfile string
}

// Development reports whether logs should be pretty printed.
func (c Config) Development() bool {
	return c.Environment == "" || strings.EqualFold(c.Environment, "development") || strings.EqualFold(c.Environment, "dev")
}

// Blob returns the backup store configuration.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.BackupDriver),
		FSRoot: c.BackupFSRoot,
		S3: blob.S3Config{
			Bucket:          c.BackupS3Bucket,
			Region:          c.BackupS3Region,
			Endpoint:        c.BackupS3Endpoint,
			AccessKeyID:     c.BackupS3Key,
			SecretAccessKey: c.BackupS3Secret,
			PathStyle:       c.BackupS3PathStyle,
		},
	}
}

// Load reads envFiles (default ".env") into the process environment without
// overriding variables that are already set, then builds a Config. Missing env
// files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment.
func FromEnv() Config {
	return Config{
		DataDir:       getEnv("INVENTARIO_DATA_DIR", "./data"),
		StorageDriver: strings.ToLower(getEnv("INVENTARIO_STORAGE_DRIVER", StorageCSV)),
		SQLitePath:    getEnv("INVENTARIO_SQLITE_PATH", "./data/inventario.db"),
		PostgresDSN:   getEnv("INVENTARIO_POSTGRES_DSN", ""),
		MySQLDSN:      getEnv("INVENTARIO_MYSQL_DSN", ""),

		BackupDriver:      strings.ToLower(getEnv("INVENTARIO_BACKUP_DRIVER", string(blob.DriverFilesystem))),
		BackupFSRoot:      getEnv("INVENTARIO_BACKUP_FS_ROOT", "./backups"),
		BackupS3Bucket:    getEnv("INVENTARIO_BACKUP_S3_BUCKET", ""),
		BackupS3Region:    getEnv("INVENTARIO_BACKUP_S3_REGION", blob.DefaultS3Region),
		BackupS3Endpoint:  getEnv("INVENTARIO_BACKUP_S3_ENDPOINT", ""),
		BackupS3Key:       getEnv("INVENTARIO_BACKUP_S3_ACCESS_KEY_ID", ""),
		BackupS3Secret:    getEnv("INVENTARIO_BACKUP_S3_SECRET_ACCESS_KEY", ""),
		BackupS3PathStyle: strings.EqualFold(getEnv("INVENTARIO_BACKUP_S3_PATH_STYLE", "false"), "true"),

		LogLevel:        getEnv("INVENTARIO_LOG_LEVEL", "info"),
		Environment:     getEnv("INVENTARIO_ENV", "development"),
		MetricsTextfile: getEnv("INVENTARIO_METRICS_TEXTFILE", ""),
	}
}

// Validate rejects unknown storage drivers. Backup settings are checked
// separately by ValidateBackup, only when a backup store is opened.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageCSV, StorageMemory, StorageSQLite, StoragePostgres, StorageMySQL:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return nil
}

// ValidateBackup checks the backup store settings.
func (c Config) ValidateBackup() error {
	switch blob.Driver(c.BackupDriver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.BackupS3Bucket == "" {
			return fmt.Errorf("INVENTARIO_BACKUP_S3_BUCKET required for s3 backups")
		}
	default:
		return fmt.Errorf("unknown backup driver %q", c.BackupDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
