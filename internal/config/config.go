package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
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
	ConnectTimeoutSec  int
	ConnectAttempts    int
}

// LogConfig selects the application log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig holds settings for the local storage host.
type StorageConfig struct {
	// HostName is matched against ServerHost.NameDNS/FQDN to find this machine.
	HostName      string
	MaxUploadSize string
}

// MaxUploadBytes parses MaxUploadSize ("100MB", "1GiB").
func (c StorageConfig) MaxUploadBytes() (int64, error) {
	return units.FromHumanSize(c.MaxUploadSize)
}

// NodeConfig holds settings for node-to-node traffic.
type NodeConfig struct {
	// Key is the shared secret peers present in the X-Node-Key header.
	Key                string
	AliveTimeoutSec    int
	TransferTimeoutSec int
}

// CacheConfig holds key-entity cache timings.
type CacheConfig struct {
	TTLSec           int
	RetrySec         int
	RefreshTimeoutMs int
	ForceTimeoutSec  int
}

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

func (c CacheConfig) Retry() time.Duration { return time.Duration(c.RetrySec) * time.Second }

func (c CacheConfig) RefreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutMs) * time.Millisecond
}

func (c CacheConfig) ForceTimeout() time.Duration {
	return time.Duration(c.ForceTimeoutSec) * time.Second
}

// TracingConfig selects the OTLP exporter and sampler. Names follow the OTEL_* variables.
type TracingConfig struct {
	Disabled    bool
	ServiceName string
	Protocol    string
	Endpoint    string
	Sampler     string
	SamplerArg  string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Log      LogConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Node     NodeConfig
	Cache    CacheConfig
	Tracing  TracingConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	hostname, _ := os.Hostname()

	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
			ConnectAttempts:    getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Storage: StorageConfig{
			HostName:      getEnv("STORAGE_HOST_NAME", hostname),
			MaxUploadSize: getEnv("STORAGE_MAX_UPLOAD_SIZE", "100MB"),
		},
		Node: NodeConfig{
			Key:                getEnv("NODE_KEY", ""),
			AliveTimeoutSec:    getEnvInt("NODE_ALIVE_TIMEOUT_SEC", 10),
			TransferTimeoutSec: getEnvInt("NODE_TRANSFER_TIMEOUT_SEC", 60),
		},
		Cache: CacheConfig{
			TTLSec:           getEnvInt("CACHE_TTL_SEC", 10),
			RetrySec:         getEnvInt("CACHE_RETRY_SEC", 2),
			RefreshTimeoutMs: getEnvInt("CACHE_REFRESH_TIMEOUT_MS", 2500),
			ForceTimeoutSec:  getEnvInt("CACHE_FORCE_TIMEOUT_SEC", 30),
		},
		Tracing: TracingConfig{
			Disabled:    getEnvBool("OTEL_SDK_DISABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "docstore"),
			Protocol:    getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
			Sampler:     getEnv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio"),
			SamplerArg:  getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0"),
		},
	}
}

// Validate reports settings the process cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Node.Key == "" {
		errs = append(errs, errors.New("NODE_KEY is required"))
	}
	if c.Storage.HostName == "" {
		errs = append(errs, errors.New("STORAGE_HOST_NAME is required when the hostname cannot be detected"))
	}
	if n, err := c.Storage.MaxUploadBytes(); err != nil || n <= 0 {
		errs = append(errs, fmt.Errorf("invalid STORAGE_MAX_UPLOAD_SIZE %q", c.Storage.MaxUploadSize))
	}
	if c.Cache.TTLSec <= 0 || c.Cache.RetrySec <= 0 {
		errs = append(errs, errors.New("cache TTL and retry must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
