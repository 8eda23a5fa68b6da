// Package config handles loading and parsing of TierStore configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for TierStore.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Locations     LocationsConfig     `yaml:"locations"`
	Permissions   PermissionsConfig   `yaml:"permissions"`
	Media         MediaConfig         `yaml:"media"`
	Catalog       CatalogConfig       `yaml:"catalog"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" env:"TIERSTORE_HOST"`
	Port int    `yaml:"port" env:"TIERSTORE_PORT"`
	// ShutdownTimeout is the graceful shutdown timeout in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout" env:"TIERSTORE_SHUTDOWN_TIMEOUT"`
	// MaxFileSize caps request bodies written through the API, in bytes.
	MaxFileSize int64 `yaml:"max_file_size" env:"TIERSTORE_MAX_FILE_SIZE"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"TIERSTORE_LOG_LEVEL"`
	// Format is text or json.
	Format string `yaml:"format" env:"TIERSTORE_LOG_FORMAT"`
}

// ObservabilityConfig toggles the metrics endpoint and deep health checks.
type ObservabilityConfig struct {
	Metrics     bool `yaml:"metrics" env:"TIERSTORE_METRICS"`
	HealthCheck bool `yaml:"health_check" env:"TIERSTORE_HEALTH_CHECK"`
}

// LocationsConfig holds the base directories of the filesystem tiers.
type LocationsConfig struct {
	// InternalRoot holds the internal files/ and cache/ directories.
	InternalRoot string `yaml:"internal_root" env:"TIERSTORE_INTERNAL_ROOT"`
	// ExternalRoot holds the external files/ and cache/ directories. External
	// tiers are unavailable while this directory does not exist.
	ExternalRoot string `yaml:"external_root" env:"TIERSTORE_EXTERNAL_ROOT"`
	// CreateExternal creates ExternalRoot at startup ("mounts" it).
	CreateExternal bool `yaml:"create_external" env:"TIERSTORE_CREATE_EXTERNAL"`
	// ExternalSubtype selects a subdirectory of the external files dir
	// (e.g. "Pictures"). Empty means the files dir itself.
	ExternalSubtype string `yaml:"external_subtype" env:"TIERSTORE_EXTERNAL_SUBTYPE"`
}

// PermissionsConfig holds the initial external storage grants.
type PermissionsConfig struct {
	ReadGranted  bool `yaml:"read_granted" env:"TIERSTORE_READ_GRANTED"`
	WriteGranted bool `yaml:"write_granted" env:"TIERSTORE_WRITE_GRANTED"`
	// ScopedStorage implies write access to the app's own external
	// directories regardless of WriteGranted.
	ScopedStorage bool `yaml:"scoped_storage" env:"TIERSTORE_SCOPED_STORAGE"`
}

// MediaConfig selects and configures the SharedMedia backend.
type MediaConfig struct {
	// Backend is one of none, local, memory, sqlite, aws, gcp, azure.
	Backend string       `yaml:"backend" env:"TIERSTORE_MEDIA_BACKEND"`
	Local   LocalConfig  `yaml:"local"`
	SQLite  SQLiteConfig `yaml:"sqlite"`

	AWSBucket          string `yaml:"aws_bucket" env:"TIERSTORE_MEDIA_AWS_BUCKET"`
	AWSRegion          string `yaml:"aws_region" env:"TIERSTORE_MEDIA_AWS_REGION"`
	AWSPrefix          string `yaml:"aws_prefix" env:"TIERSTORE_MEDIA_AWS_PREFIX"`
	AWSEndpointURL     string `yaml:"aws_endpoint_url" env:"TIERSTORE_MEDIA_AWS_ENDPOINT_URL"`
	AWSUsePathStyle    bool   `yaml:"aws_use_path_style" env:"TIERSTORE_MEDIA_AWS_USE_PATH_STYLE"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id" env:"TIERSTORE_MEDIA_AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" env:"TIERSTORE_MEDIA_AWS_SECRET_ACCESS_KEY"`

	GCPBucket string `yaml:"gcp_bucket" env:"TIERSTORE_MEDIA_GCP_BUCKET"`
	GCPPrefix string `yaml:"gcp_prefix" env:"TIERSTORE_MEDIA_GCP_PREFIX"`

	AzureContainer          string `yaml:"azure_container" env:"TIERSTORE_MEDIA_AZURE_CONTAINER"`
	AzureAccount            string `yaml:"azure_account" env:"TIERSTORE_MEDIA_AZURE_ACCOUNT"`
	AzureAccountURL         string `yaml:"azure_account_url" env:"TIERSTORE_MEDIA_AZURE_ACCOUNT_URL"`
	AzurePrefix             string `yaml:"azure_prefix" env:"TIERSTORE_MEDIA_AZURE_PREFIX"`
	AzureConnectionString   string `yaml:"azure_connection_string" env:"TIERSTORE_MEDIA_AZURE_CONNECTION_STRING"`
	AzureUseManagedIdentity bool   `yaml:"azure_use_managed_identity" env:"TIERSTORE_MEDIA_AZURE_USE_MANAGED_IDENTITY"`
}

// LocalConfig holds local-directory backend settings.
type LocalConfig struct {
	RootDir string `yaml:"root_dir" env:"TIERSTORE_MEDIA_LOCAL_ROOT_DIR"`
}

// SQLiteConfig holds the path of a SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig selects and configures the catalog store.
type CatalogConfig struct {
	// Engine is one of none, memory, sqlite, dynamodb, firestore, cosmos.
	Engine    string          `yaml:"engine" env:"TIERSTORE_CATALOG_ENGINE"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	DynamoDB  DynamoDBConfig  `yaml:"dynamodb"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Cosmos    CosmosConfig    `yaml:"cosmos"`
}

// DynamoDBConfig holds DynamoDB catalog settings.
type DynamoDBConfig struct {
	Table       string `yaml:"table" env:"TIERSTORE_CATALOG_DYNAMODB_TABLE"`
	Region      string `yaml:"region" env:"TIERSTORE_CATALOG_DYNAMODB_REGION"`
	EndpointURL string `yaml:"endpoint_url" env:"TIERSTORE_CATALOG_DYNAMODB_ENDPOINT_URL"`
}

// FirestoreConfig holds Firestore catalog settings.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id" env:"TIERSTORE_CATALOG_FIRESTORE_PROJECT_ID"`
	Collection      string `yaml:"collection" env:"TIERSTORE_CATALOG_FIRESTORE_COLLECTION"`
	CredentialsFile string `yaml:"credentials_file" env:"TIERSTORE_CATALOG_FIRESTORE_CREDENTIALS_FILE"`
}

// CosmosConfig holds Cosmos DB catalog settings.
type CosmosConfig struct {
	Endpoint  string `yaml:"endpoint" env:"TIERSTORE_CATALOG_COSMOS_ENDPOINT"`
	MasterKey string `yaml:"master_key" env:"TIERSTORE_CATALOG_COSMOS_MASTER_KEY"`
	Database  string `yaml:"database" env:"TIERSTORE_CATALOG_COSMOS_DATABASE"`
	Container string `yaml:"container" env:"TIERSTORE_CATALOG_COSMOS_CONTAINER"`
}

// Load reads a YAML configuration file from the given path, applies
// TIERSTORE_* environment overrides, and fills in defaults for unset values.
// If the primary path fails, it falls back to tierstore.example.yaml in the
// same directory or the parent directory. If no file can be read at all, the
// defaults plus environment are used only when path is empty.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			// Try fallback paths
			fallbackPaths := []string{
				filepath.Join(filepath.Dir(path), "tierstore.example.yaml"),
				filepath.Join(filepath.Dir(path), "..", "tierstore.example.yaml"),
			}
			var fallbackErr error
			for _, fp := range fallbackPaths {
				data, fallbackErr = os.ReadFile(fp)
				if fallbackErr == nil {
					break
				}
			}
			if fallbackErr != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	// Apply defaults for empty fields that YAML and env didn't set
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := defaultConfig()
	applyDefaults(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9300,
			ShutdownTimeout: 30,
			MaxFileSize:     64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics:     true,
			HealthCheck: true,
		},
		Locations: LocationsConfig{
			InternalRoot:   "./data/internal",
			ExternalRoot:   "./data/external",
			CreateExternal: true,
		},
		Permissions: PermissionsConfig{
			ScopedStorage: true,
		},
		Media: MediaConfig{
			Backend: "local",
			Local:   LocalConfig{RootDir: "./data/media"},
		},
		Catalog: CatalogConfig{
			Engine: "sqlite",
			SQLite: SQLiteConfig{Path: "./data/catalog.db"},
		},
	}
}

// applyDefaults fills in any fields that are still at their zero value
// after YAML unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9300
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30
	}
	if cfg.Server.MaxFileSize == 0 {
		cfg.Server.MaxFileSize = 64 << 20
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Locations.InternalRoot == "" {
		cfg.Locations.InternalRoot = "./data/internal"
	}
	if cfg.Locations.ExternalRoot == "" {
		cfg.Locations.ExternalRoot = "./data/external"
	}
	if cfg.Media.Backend == "" {
		cfg.Media.Backend = "local"
	}
	if cfg.Media.Local.RootDir == "" {
		cfg.Media.Local.RootDir = "./data/media"
	}
	if cfg.Media.SQLite.Path == "" {
		cfg.Media.SQLite.Path = "./data/media.db"
	}
	if cfg.Media.AzureAccountURL == "" && cfg.Media.AzureAccount != "" {
		cfg.Media.AzureAccountURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.Media.AzureAccount)
	}
	if cfg.Catalog.Engine == "" {
		cfg.Catalog.Engine = "sqlite"
	}
	if cfg.Catalog.SQLite.Path == "" {
		cfg.Catalog.SQLite.Path = "./data/catalog.db"
	}
	if cfg.Catalog.Firestore.Collection == "" {
		cfg.Catalog.Firestore.Collection = "tierstore"
	}
}
