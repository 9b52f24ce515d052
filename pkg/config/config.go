package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds the configuration for a slicks telemetry agent.
// Resolution precedence is runtime flags > environment > defaults.
type Config struct {
	// Store backend selection: "influx" or "timescale"
	StoreBackend string

	// InfluxDB 3 configuration
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxDB     string
	InfluxSchema string
	InfluxTable  string

	// TimescaleDB mirror configuration
	PostgresHost            string
	PostgresPort            int
	PostgresUser            string
	PostgresPassword        string
	PostgresDB              string
	PostgresSSLMode         string
	PostgresTable           string
	PostgresMaxConnections  int
	PostgresMaxIdleConns    int
	PostgresConnMaxLifetime time.Duration

	// MQTT configuration (progress and registry events)
	MQTTBroker     string
	MQTTPort       int
	MQTTUser       string
	MQTTPassword   string
	MQTTClientID   string
	EnableProgress bool

	// Redis configuration (signal registry cache)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Fetch configuration
	FetchChunkHours  int
	FetchMaxAttempts int
	FetchBackoffMs   int
	ResampleFreqMs   int

	// Movement configuration
	SpeedColumn    string
	SpeedThreshold float64
	MaxGapSeconds  int

	// Discovery agent configuration
	DiscoveryChunkDays    int
	DiscoveryIntervalSec  int
	DiscoveryLookbackDays int
	RegistryPath          string

	// Availability scan configuration
	ScanBinSize   string
	ScanChunkDays int
	ScanStart     string
	ScanEnd       string
	SegmentReport bool
	Timezone      string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		StoreBackend: "influx",
		// InfluxDB 3 defaults mirror the open-source example setup
		InfluxURL:    "http://localhost:8086",
		InfluxToken:  "my-token",
		InfluxOrg:    "Docs",
		InfluxDB:     "WFR25",
		InfluxSchema: "iox",
		InfluxTable:  "", // empty means "same as InfluxDB"
		// TimescaleDB mirror defaults
		PostgresHost:            "localhost",
		PostgresPort:            5432,
		PostgresUser:            "slicks",
		PostgresPassword:        "",
		PostgresDB:              "telemetry",
		PostgresSSLMode:         "disable",
		PostgresTable:           "telemetry",
		PostgresMaxConnections:  10,
		PostgresMaxIdleConns:    5,
		PostgresConnMaxLifetime: 30 * time.Minute,
		MQTTBroker:              "localhost",
		MQTTPort:                1883,
		MQTTUser:                "",
		MQTTPassword:            "",
		MQTTClientID:            "",
		EnableProgress:          false,
		RedisHost:               "localhost",
		RedisPort:               6379,
		RedisPassword:           "",
		RedisDB:                 0,
		ServiceName:             "slicks-agent",
		HealthPort:              8080,
		LogLevel:                "info",
		FetchChunkHours:         6,
		FetchMaxAttempts:        3,
		FetchBackoffMs:          500,
		ResampleFreqMs:          0,
		SpeedColumn:             "INV_Motor_Speed",
		SpeedThreshold:          100.0,
		MaxGapSeconds:           300,
		DiscoveryChunkDays:      7,
		DiscoveryIntervalSec:    3600,
		DiscoveryLookbackDays:   30,
		RegistryPath:            "sensors.yaml",
		ScanBinSize:             "hour",
		ScanChunkDays:           31,
		ScanStart:               "",
		ScanEnd:                 "",
		SegmentReport:           false,
		Timezone:                "UTC",
	}
}

// LoadFromEnv loads configuration from environment variables with SLICKS_ prefix.
// A .env file in the working directory is read first, if present.
func (c *Config) LoadFromEnv() {
	// Real environment variables win over .env file contents
	_ = godotenv.Load()

	setString(&c.StoreBackend, "SLICKS_STORE_BACKEND")

	// InfluxDB configuration
	setString(&c.InfluxURL, "SLICKS_INFLUX_URL")
	setString(&c.InfluxToken, "SLICKS_INFLUX_TOKEN")
	setString(&c.InfluxOrg, "SLICKS_INFLUX_ORG")
	setString(&c.InfluxDB, "SLICKS_INFLUX_DB")
	setString(&c.InfluxSchema, "SLICKS_INFLUX_SCHEMA")
	setString(&c.InfluxTable, "SLICKS_INFLUX_TABLE")

	// TimescaleDB configuration
	setString(&c.PostgresHost, "SLICKS_POSTGRES_HOST")
	setInt(&c.PostgresPort, "SLICKS_POSTGRES_PORT")
	setString(&c.PostgresUser, "SLICKS_POSTGRES_USER")
	setString(&c.PostgresPassword, "SLICKS_POSTGRES_PASSWORD")
	setString(&c.PostgresDB, "SLICKS_POSTGRES_DB")
	setString(&c.PostgresSSLMode, "SLICKS_POSTGRES_SSLMODE")
	setString(&c.PostgresTable, "SLICKS_POSTGRES_TABLE")

	// MQTT configuration
	setString(&c.MQTTBroker, "SLICKS_MQTT_BROKER")
	setInt(&c.MQTTPort, "SLICKS_MQTT_PORT")
	setString(&c.MQTTUser, "SLICKS_MQTT_USER")
	setString(&c.MQTTPassword, "SLICKS_MQTT_PASSWORD")
	setString(&c.MQTTClientID, "SLICKS_MQTT_CLIENT_ID")
	setBool(&c.EnableProgress, "SLICKS_ENABLE_PROGRESS")

	// Redis configuration
	setString(&c.RedisHost, "SLICKS_REDIS_HOST")
	setInt(&c.RedisPort, "SLICKS_REDIS_PORT")
	setString(&c.RedisPassword, "SLICKS_REDIS_PASSWORD")
	setInt(&c.RedisDB, "SLICKS_REDIS_DB")

	// Service configuration
	setString(&c.ServiceName, "SLICKS_SERVICE_NAME")
	setInt(&c.HealthPort, "SLICKS_HEALTH_PORT")
	setString(&c.LogLevel, "SLICKS_LOG_LEVEL")

	// Fetch configuration
	setInt(&c.FetchChunkHours, "SLICKS_FETCH_CHUNK_HOURS")
	setInt(&c.FetchMaxAttempts, "SLICKS_FETCH_MAX_ATTEMPTS")
	setInt(&c.FetchBackoffMs, "SLICKS_FETCH_BACKOFF_MS")
	setInt(&c.ResampleFreqMs, "SLICKS_RESAMPLE_FREQ_MS")

	// Movement configuration
	setString(&c.SpeedColumn, "SLICKS_SPEED_COLUMN")
	setFloat(&c.SpeedThreshold, "SLICKS_SPEED_THRESHOLD")
	setInt(&c.MaxGapSeconds, "SLICKS_MAX_GAP_SECONDS")

	// Discovery configuration
	setInt(&c.DiscoveryChunkDays, "SLICKS_DISCOVERY_CHUNK_DAYS")
	setInt(&c.DiscoveryIntervalSec, "SLICKS_DISCOVERY_INTERVAL_SEC")
	setInt(&c.DiscoveryLookbackDays, "SLICKS_DISCOVERY_LOOKBACK_DAYS")
	setString(&c.RegistryPath, "SLICKS_REGISTRY_PATH")

	// Scan configuration
	setString(&c.ScanBinSize, "SLICKS_SCAN_BIN_SIZE")
	setInt(&c.ScanChunkDays, "SLICKS_SCAN_CHUNK_DAYS")
	setString(&c.Timezone, "SLICKS_TIMEZONE")
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	pflag.StringVar(&c.StoreBackend, "store-backend", c.StoreBackend, "Telemetry store backend (influx or timescale)")

	// InfluxDB flags
	pflag.StringVar(&c.InfluxURL, "influx-url", c.InfluxURL, "InfluxDB 3 host URL")
	pflag.StringVar(&c.InfluxToken, "influx-token", c.InfluxToken, "InfluxDB API token")
	pflag.StringVar(&c.InfluxOrg, "influx-org", c.InfluxOrg, "InfluxDB organization")
	pflag.StringVar(&c.InfluxDB, "influx-db", c.InfluxDB, "InfluxDB database name")
	pflag.StringVar(&c.InfluxSchema, "influx-schema", c.InfluxSchema, "IOx schema name")
	pflag.StringVar(&c.InfluxTable, "influx-table", c.InfluxTable, "IOx table name (defaults to database name)")

	// TimescaleDB flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "TimescaleDB hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "TimescaleDB port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "TimescaleDB user")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "TimescaleDB password")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "TimescaleDB database name")
	pflag.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "TimescaleDB SSL mode")
	pflag.StringVar(&c.PostgresTable, "postgres-table", c.PostgresTable, "TimescaleDB telemetry table")

	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")
	pflag.BoolVar(&c.EnableProgress, "enable-progress", c.EnableProgress, "Publish scan progress events over MQTT")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Fetch flags
	pflag.IntVar(&c.FetchChunkHours, "fetch-chunk-hours", c.FetchChunkHours, "Hours of telemetry per store query")
	pflag.IntVar(&c.FetchMaxAttempts, "fetch-max-attempts", c.FetchMaxAttempts, "Attempts per query window before giving up")
	pflag.IntVar(&c.FetchBackoffMs, "fetch-backoff-ms", c.FetchBackoffMs, "Initial retry backoff in milliseconds")
	pflag.IntVar(&c.ResampleFreqMs, "resample-freq-ms", c.ResampleFreqMs, "Resample frequency in milliseconds (0 keeps raw timestamps)")

	// Movement flags
	pflag.StringVar(&c.SpeedColumn, "speed-column", c.SpeedColumn, "Signal used as the speed-like column")
	pflag.Float64Var(&c.SpeedThreshold, "speed-threshold", c.SpeedThreshold, "Moving/idle threshold for the speed column")
	pflag.IntVar(&c.MaxGapSeconds, "max-gap-seconds", c.MaxGapSeconds, "Sampling gap that splits a same-state segment")

	// Discovery flags
	pflag.IntVar(&c.DiscoveryChunkDays, "discovery-chunk-days", c.DiscoveryChunkDays, "Days per discovery query window")
	pflag.IntVar(&c.DiscoveryIntervalSec, "discovery-interval", c.DiscoveryIntervalSec, "Discovery loop interval in seconds")
	pflag.IntVar(&c.DiscoveryLookbackDays, "discovery-lookback-days", c.DiscoveryLookbackDays, "Trailing window scanned by the discovery agent")
	pflag.StringVar(&c.RegistryPath, "registry-path", c.RegistryPath, "Path to the YAML signal registry")

	// Scan flags
	pflag.StringVar(&c.ScanBinSize, "scan-bin-size", c.ScanBinSize, "Availability scan granularity (hour or day)")
	pflag.IntVar(&c.ScanChunkDays, "scan-chunk-days", c.ScanChunkDays, "Days per availability scan chunk")
	pflag.StringVar(&c.ScanStart, "scan-start", c.ScanStart, "Scan range start (RFC3339, empty uses lookback window)")
	pflag.StringVar(&c.ScanEnd, "scan-end", c.ScanEnd, "Scan range end (RFC3339, empty means now)")
	pflag.BoolVar(&c.SegmentReport, "segment-report", c.SegmentReport, "Fetch the speed column and print movement segments")
	pflag.StringVar(&c.Timezone, "timezone", c.Timezone, "Timezone for availability display")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.StoreBackend != "influx" && c.StoreBackend != "timescale" {
		return fmt.Errorf("invalid store backend: %s (must be influx or timescale)", c.StoreBackend)
	}
	if c.StoreBackend == "influx" && c.InfluxURL == "" {
		return fmt.Errorf("InfluxDB URL is required")
	}
	if c.StoreBackend == "timescale" && c.PostgresHost == "" {
		return fmt.Errorf("TimescaleDB host is required")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.FetchChunkHours <= 0 {
		return fmt.Errorf("fetch chunk hours must be positive")
	}
	if c.FetchMaxAttempts < 1 {
		return fmt.Errorf("fetch max attempts must be at least 1")
	}
	if c.ScanBinSize != "hour" && c.ScanBinSize != "day" {
		return fmt.Errorf("invalid scan bin size: %s (must be hour or day)", c.ScanBinSize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %s: %w", c.Timezone, err)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// TableName returns the configured IOx table name, defaulting to the database name
func (c *Config) TableName() string {
	if c.InfluxTable != "" {
		return c.InfluxTable
	}
	return c.InfluxDB
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString builds a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

// FetchChunk returns the fetch chunk size as a duration
func (c *Config) FetchChunk() time.Duration {
	return time.Duration(c.FetchChunkHours) * time.Hour
}

// FetchBackoff returns the initial retry backoff as a duration
func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.FetchBackoffMs) * time.Millisecond
}

// ResampleFreq returns the resample frequency, zero meaning raw timestamps
func (c *Config) ResampleFreq() time.Duration {
	return time.Duration(c.ResampleFreqMs) * time.Millisecond
}

// MaxGap returns the same-state segment split gap as a duration
func (c *Config) MaxGap() time.Duration {
	return time.Duration(c.MaxGapSeconds) * time.Second
}

// ScanBin returns the availability scan bin size as a duration
func (c *Config) ScanBin() time.Duration {
	if c.ScanBinSize == "day" {
		return 24 * time.Hour
	}
	return time.Hour
}

// Location returns the configured display timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
