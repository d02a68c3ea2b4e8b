package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/bib-pipeline/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// StorageConfig holds object store locations
type StorageConfig struct {
	// SourceURL is the gocloud bucket URL objects are mirrored from (s3://, gs://, file://, mem://)
	SourceURL string `mapstructure:"source_url"`
	// DestinationURL is the gocloud bucket URL objects are mirrored into
	DestinationURL string `mapstructure:"destination_url"`
	// DestinationPrefix is prepended to every mirrored key
	DestinationPrefix string        `mapstructure:"destination_prefix"`
	CopyTimeout       time.Duration `mapstructure:"copy_timeout"`
	MaxCopyRetries    int           `mapstructure:"max_copy_retries"`
}

// DetectorConfig holds the detection service client configuration
type DetectorConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxElapsedTime time.Duration `mapstructure:"max_elapsed_time"`
	APIKey         string        `mapstructure:"api_key"`

	// RequestsPerSecond throttles detection requests per process; 0 disables the limit
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// PipelineConfig holds the run defaults of the pipeline coordinator
type PipelineConfig struct {
	CustomerID         string        `mapstructure:"customer_id"`
	MaxParallel        int           `mapstructure:"max_parallel"`
	PageSize           int           `mapstructure:"page_size"`
	MaxImages          int           `mapstructure:"max_images"`
	ProcessingWorkers  int           `mapstructure:"processing_workers"`
	ReadyThreshold     int           `mapstructure:"ready_threshold"`      // 0 = wait for mirroring to complete
	ReadyFallbackDelay time.Duration `mapstructure:"ready_fallback_delay"` // 0 = disabled
	IdlePollInterval   time.Duration `mapstructure:"idle_poll_interval"`
}

// ReportConfig holds bib report output configuration
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Format  string `mapstructure:"format"` // csv or parquet
	Zstd    bool   `mapstructure:"zstd"`
	Prefix  string `mapstructure:"prefix"`
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// TemporalConfig holds Temporal configuration
type TemporalConfig struct {
	HostPort                           string        `mapstructure:"host_port"`
	Namespace                          string        `mapstructure:"namespace"`
	PipelineTaskQueue                  string        `mapstructure:"pipeline_task_queue"`
	RunTimeout                         time.Duration `mapstructure:"run_timeout"`
	MaxConcurrentActivityExecutionSize int           `mapstructure:"max_concurrent_activity_execution_size"`
	MaxConcurrentActivityTaskPollers   int           `mapstructure:"max_concurrent_activity_task_pollers"`

	// HeartbeatTimeout fails a run attempt that reported no progress for this long; 0 disables it
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds

	// AllowOrigins restricts CORS; empty allows every origin
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// RunnerConfig holds configuration for the one-shot runner
type RunnerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Detector   DetectorConfig `mapstructure:"detector"`
	Pipeline   PipelineConfig `mapstructure:"pipeline"`
	Report     ReportConfig   `mapstructure:"report"`
	NATS       NATSConfig     `mapstructure:"nats"`
	// PartitionsFile is a yaml or xlsx manifest of source partitions
	PartitionsFile string `mapstructure:"partitions_file"`
}

// WorkerConfig holds configuration for the Temporal pipeline worker
type WorkerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Detector   DetectorConfig `mapstructure:"detector"`
	Pipeline   PipelineConfig `mapstructure:"pipeline"`
	Report     ReportConfig   `mapstructure:"report"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Temporal   TemporalConfig `mapstructure:"temporal"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	Temporal   TemporalConfig `mapstructure:"temporal"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Pipeline   PipelineConfig `mapstructure:"pipeline"`
}

// MigrateConfig holds configuration for the migration tool
type MigrateConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
}

// LoadRunnerConfig loads configuration for the runner
func LoadRunnerConfig(configFile string, envPath string) (*RunnerConfig, error) {
	v := configureViper("runner", configFile, envPath)

	setDatabaseDefaults(v)
	setStorageDefaults(v)
	setDetectorDefaults(v)
	setPipelineDefaults(v)
	setReportDefaults(v)
	setNATSDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg RunnerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Detector.URL == "" {
		return nil, errors.New("detector.url is required")
	}

	return &cfg, nil
}

// LoadWorkerConfig loads configuration for the Temporal pipeline worker
func LoadWorkerConfig(configFile string, envPath string) (*WorkerConfig, error) {
	v := configureViper("worker", configFile, envPath)

	setDatabaseDefaults(v)
	setStorageDefaults(v)
	setDetectorDefaults(v)
	setPipelineDefaults(v)
	setReportDefaults(v)
	setNATSDefaults(v)
	setTemporalDefaults(v)
	v.SetDefault("temporal.max_concurrent_activity_execution_size", 4)
	v.SetDefault("temporal.max_concurrent_activity_task_pollers", 2)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Detector.URL == "" {
		return nil, errors.New("detector.url is required")
	}

	return &cfg, nil
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	setDatabaseDefaults(v)
	setTemporalDefaults(v)
	setPipelineDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadMigrateConfig loads configuration for the migration tool
func LoadMigrateConfig(configFile string, envPath string) (*MigrateConfig, error) {
	v := configureViper("migrate", configFile, envPath)

	setDatabaseDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg MigrateConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
}

func setStorageDefaults(v *viper.Viper) {
	v.SetDefault("storage.destination_prefix", "mirror")
	v.SetDefault("storage.copy_timeout", "2m")
	v.SetDefault("storage.max_copy_retries", 3)
}

func setDetectorDefaults(v *viper.Viper) {
	v.SetDefault("detector.url", "http://localhost:5566")
	v.SetDefault("detector.timeout", "60s")
	v.SetDefault("detector.max_elapsed_time", "2m")
}

func setPipelineDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.customer_id", domain.DEFAULT_CUSTOMER_ID)
	v.SetDefault("pipeline.max_parallel", 4)
	v.SetDefault("pipeline.page_size", 100)
	v.SetDefault("pipeline.max_images", 0)
	v.SetDefault("pipeline.processing_workers", 8)
	v.SetDefault("pipeline.ready_threshold", 0)
	v.SetDefault("pipeline.ready_fallback_delay", "0s")
	v.SetDefault("pipeline.idle_poll_interval", "5s")
}

func setReportDefaults(v *viper.Viper) {
	v.SetDefault("report.enabled", true)
	v.SetDefault("report.format", "csv")
	v.SetDefault("report.zstd", false)
	v.SetDefault("report.prefix", "reports")
}

func setNATSDefaults(v *viper.Viper) {
	v.SetDefault("nats.stream_name", "PIPELINE_RUNS")
	v.SetDefault("nats.subject_prefix", "pipeline.runs")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "bib-pipeline")
}

func setTemporalDefaults(v *viper.Viper) {
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.pipeline_task_queue", "bib-pipeline")
	v.SetDefault("temporal.run_timeout", "12h")
}

// readConfig reads the config file, falling back to environment variables when none exists
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/runner/, cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("BIB_PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"partitions_file",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Storage
		"storage.source_url",
		"storage.destination_url",
		"storage.destination_prefix",
		"storage.copy_timeout",
		"storage.max_copy_retries",
		// Detector
		"detector.url",
		"detector.timeout",
		"detector.max_elapsed_time",
		"detector.api_key",
		"detector.requests_per_second",
		"detector.burst",
		// Pipeline
		"pipeline.customer_id",
		"pipeline.max_parallel",
		"pipeline.page_size",
		"pipeline.max_images",
		"pipeline.processing_workers",
		"pipeline.ready_threshold",
		"pipeline.ready_fallback_delay",
		"pipeline.idle_poll_interval",
		// Report
		"report.enabled",
		"report.format",
		"report.zstd",
		"report.prefix",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Temporal
		"temporal.host_port",
		"temporal.namespace",
		"temporal.pipeline_task_queue",
		"temporal.run_timeout",
		"temporal.max_concurrent_activity_execution_size",
		"temporal.max_concurrent_activity_task_pollers",
		"temporal.heartbeat_timeout",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allow_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return errors.New("database.host is required")
	}
	if c.DBName == "" {
		return errors.New("database.dbname is required")
	}
	return nil
}

func (c *StorageConfig) validate() error {
	if c.SourceURL == "" {
		return errors.New("storage.source_url is required")
	}
	if c.DestinationURL == "" {
		return errors.New("storage.destination_url is required")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the database connection string in URL form, as golang-migrate expects
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
