// Package config loads the service configuration from a YAML file, an
// optional .env file and a handful of environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers accepted for the fixed-location upload mode.
const (
	AutoUploadDisabled = ""
	AutoUploadDropbox  = "dropbox"
	AutoUploadMinIO    = "minio"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the top level service configuration.
type Config struct {
	HTTPPort    int      `yaml:"HTTP_PORT"`
	Debug       bool     `yaml:"DEBUG"`
	CORSOrigins []string `yaml:"CORS_ORIGINS"`

	DBDriver string `yaml:"DB_DRIVER"`
	DBDSN    string `yaml:"DB_DSN"`

	DropboxAppKey      string `yaml:"DROPBOX_APP_KEY"`
	DropboxAppSecret   string `yaml:"DROPBOX_APP_SECRET"`
	DropboxRedirectURL string `yaml:"DROPBOX_REDIRECT_URL"`

	SessionSecret string        `yaml:"SESSION_SECRET"`
	SessionCookie string        `yaml:"SESSION_COOKIE"`
	SessionTTL    time.Duration `yaml:"SESSION_TTL"`
	CookieDomain  string        `yaml:"COOKIE_DOMAIN"`

	UploadTimeout time.Duration `yaml:"UPLOAD_TIMEOUT"`
	MaxUploadMB   int64         `yaml:"MAX_UPLOAD_MB"`

	AutoUpload AutoUpload `yaml:"AUTO_UPLOAD"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	KafkaTopic   string   `yaml:"KAFKA_TOPIC"`

	SeedCompany SeedCompany `yaml:"SEED_COMPANY"`
}

// AutoUpload configures the unauthenticated fixed-folder upload mode.
type AutoUpload struct {
	Driver         string `yaml:"DRIVER"`
	Folder         string `yaml:"FOLDER"`
	Concurrency    int    `yaml:"CONCURRENCY"`
	DropboxToken   string `yaml:"DROPBOX_TOKEN"`
	MinIOEndpoint  string `yaml:"MINIO_ENDPOINT"`
	MinIOAccessKey string `yaml:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `yaml:"MINIO_SECRET_KEY"`
	MinIOBucket    string `yaml:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `yaml:"MINIO_USE_SSL"`
}

// SeedCompany is inserted when the companies table is first created.
type SeedCompany struct {
	Name    string `yaml:"NAME"`
	Email   string `yaml:"EMAIL"`
	Phone   string `yaml:"PHONE"`
	Address string `yaml:"ADDRESS"`
}

// Default returns the configuration used when a key is absent.
func Default() *Config {
	return &Config{
		HTTPPort:      5000,
		CORSOrigins:   []string{"http://localhost:3000"},
		DBDriver:      DriverSQLite,
		DBDSN:         "fieldfiles.db",
		SessionCookie: "session-token",
		SessionTTL:    24 * time.Hour,
		UploadTimeout: 60 * time.Second,
		MaxUploadMB:   32,
		AutoUpload: AutoUpload{
			Folder:      "/AutoFolder",
			Concurrency: 4,
		},
		KafkaTopic: "fieldfiles.events",
		SeedCompany: SeedCompany{
			Name:    "Emerald Green Energy",
			Email:   "info@egreen.co.uk",
			Phone:   "08009991590",
			Address: "One Canada Square, Level 8, London, E14 5AB",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. A missing .env file is not an error; a missing config file is
// only tolerated when path is empty.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_FILE"); v != "" {
		c.DBDriver = DriverSQLite
		c.DBDSN = v
	}
	if v := os.Getenv("DROPBOX_APP_KEY"); v != "" {
		c.DropboxAppKey = v
	}
	if v := os.Getenv("DROPBOX_APP_SECRET"); v != "" {
		c.DropboxAppSecret = v
	}
	if v := os.Getenv("DROPBOX_TOKEN"); v != "" {
		c.AutoUpload.DropboxToken = v
		if c.AutoUpload.Driver == AutoUploadDisabled {
			c.AutoUpload.Driver = AutoUploadDropbox
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		c.HTTPPort = port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = strings.Split(v, ",")
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required")
	}
	if c.UploadTimeout <= 0 {
		return errors.New("UPLOAD_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionCookie == "" {
		return errors.New("SESSION_COOKIE is required")
	}
	switch c.AutoUpload.Driver {
	case AutoUploadDisabled:
	case AutoUploadDropbox:
		if c.AutoUpload.DropboxToken == "" {
			return errors.New("AUTO_UPLOAD.DROPBOX_TOKEN is required for the dropbox driver")
		}
	case AutoUploadMinIO:
		if c.AutoUpload.MinIOEndpoint == "" || c.AutoUpload.MinIOBucket == "" {
			return errors.New("AUTO_UPLOAD.MINIO_ENDPOINT and MINIO_BUCKET are required for the minio driver")
		}
	default:
		return fmt.Errorf("unknown AUTO_UPLOAD.DRIVER %q", c.AutoUpload.Driver)
	}
	if c.AutoUpload.Concurrency <= 0 {
		c.AutoUpload.Concurrency = 1
	}
	return nil
}
