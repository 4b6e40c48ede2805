package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Athena    AthenaConfig
	Warehouse WarehouseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Export    ExportConfig
	Telemetry TelemetryConfig
	Analytics AnalyticsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AthenaConfig holds the Athena engine settings.
type AthenaConfig struct {
	StagingDir   string // s3:// URI where Athena writes results
	Region       string
	Database     string
	Catalog      string
	WorkGroup    string
	PollInterval time.Duration
	QueryTimeout time.Duration
	AccessKey    string // optional; the default AWS credential chain is used when empty
	SecretKey    string
}

// WarehouseConfig selects the analytical engine behind the gateway.
type WarehouseConfig struct {
	Driver          string // athena or postgres
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Backend   string // memory or redis
	KeyPrefix string
}

// ExportConfig holds report export storage settings.
type ExportConfig struct {
	Enabled           bool
	Bucket            string
	Prefix            string
	Region            string
	Endpoint          string // optional S3-compatible endpoint
	UsePathStyle      bool
	AccessKey         string
	SecretKey         string
	PresignExpiration time.Duration
	RateLimit         int           // exports allowed per client per RateWindow
	RateWindow        time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled            bool    // Whether to enable OpenTelemetry
	CollectorEndpoint  string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio      float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName        string  // Service name for traces
	Insecure           bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled     bool
	LogsEnabled        bool
	SlowQueryThreshold time.Duration
}

// AnalyticsConfig holds report behaviour settings.
type AnalyticsConfig struct {
	Schema         string // schema (Athena database) the sales tables live in
	LifecycleMode  string // engine or in_process
	DefaultProfile string // RFM profile used when a request names none
	Locale         string // display locale for formatted values
	ReportTimeout  time.Duration
	// WarmupSchedule is a "minute hour * * *" expression for the daily cache
	// refresh of the dashboard overview. Empty disables the warm-up.
	WarmupSchedule string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SALES_ prefix (e.g., SALES_ATHENA_REGION)
// 2. Legacy environment variables (ATHENA_S3_STAGING_DIR, ATHENA_REGION)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/salesinsight")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The dashboard was historically configured through these two variables.
	if err := v.BindEnv("athena.staging_dir", "SALES_ATHENA_STAGING_DIR", "ATHENA_S3_STAGING_DIR"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}
	if err := v.BindEnv("athena.region", "SALES_ATHENA_REGION", "ATHENA_REGION"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Athena: AthenaConfig{
			StagingDir:   v.GetString("athena.staging_dir"),
			Region:       v.GetString("athena.region"),
			Database:     v.GetString("athena.database"),
			Catalog:      v.GetString("athena.catalog"),
			WorkGroup:    v.GetString("athena.work_group"),
			PollInterval: v.GetDuration("athena.poll_interval"),
			QueryTimeout: v.GetDuration("athena.query_timeout"),
			AccessKey:    v.GetString("athena.access_key"),
			SecretKey:    v.GetString("athena.secret_key"),
		},
		Warehouse: WarehouseConfig{
			Driver:          v.GetString("warehouse.driver"),
			Host:            v.GetString("warehouse.host"),
			Port:            v.GetInt("warehouse.port"),
			User:            v.GetString("warehouse.user"),
			Password:        v.GetString("warehouse.password"),
			DBName:          v.GetString("warehouse.dbname"),
			SSLMode:         v.GetString("warehouse.sslmode"),
			MaxOpenConns:    v.GetInt("warehouse.max_open_conns"),
			MaxIdleConns:    v.GetInt("warehouse.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("warehouse.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			Backend:   v.GetString("cache.backend"),
			KeyPrefix: v.GetString("cache.key_prefix"),
		},
		Export: ExportConfig{
			Enabled:           v.GetBool("export.enabled"),
			Bucket:            v.GetString("export.bucket"),
			Prefix:            v.GetString("export.prefix"),
			Region:            v.GetString("export.region"),
			Endpoint:          v.GetString("export.endpoint"),
			UsePathStyle:      v.GetBool("export.use_path_style"),
			AccessKey:         v.GetString("export.access_key"),
			SecretKey:         v.GetString("export.secret_key"),
			PresignExpiration: v.GetDuration("export.presign_expiration"),
			RateLimit:         v.GetInt("export.rate_limit"),
			RateWindow:        v.GetDuration("export.rate_window"),
		},
		Telemetry: TelemetryConfig{
			Enabled:            v.GetBool("telemetry.enabled"),
			CollectorEndpoint:  v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:      v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:        v.GetString("telemetry.service_name"),
			Insecure:           v.GetBool("telemetry.insecure"),
			MetricsEnabled:     v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:        v.GetBool("telemetry.logs_enabled"),
			SlowQueryThreshold: v.GetDuration("telemetry.slow_query_threshold"),
		},
		Analytics: AnalyticsConfig{
			Schema:         v.GetString("analytics.schema"),
			LifecycleMode:  v.GetString("analytics.lifecycle_mode"),
			DefaultProfile: v.GetString("analytics.default_profile"),
			Locale:         v.GetString("analytics.locale"),
			ReportTimeout:  v.GetDuration("analytics.report_timeout"),
			WarmupSchedule: v.GetString("analytics.warmup_schedule"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sales-analytics"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Athena queries regularly run for tens of seconds.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 3 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Cache-Control"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Athena.Region == "" {
		cfg.Athena.Region = "us-east-1"
	}
	if cfg.Athena.Catalog == "" {
		cfg.Athena.Catalog = "AwsDataCatalog"
	}
	if cfg.Athena.WorkGroup == "" {
		cfg.Athena.WorkGroup = "primary"
	}
	if cfg.Athena.PollInterval == 0 {
		cfg.Athena.PollInterval = 500 * time.Millisecond
	}
	if cfg.Athena.QueryTimeout == 0 {
		cfg.Athena.QueryTimeout = 2 * time.Minute
	}
	if cfg.Warehouse.Driver == "" {
		cfg.Warehouse.Driver = "athena"
	}
	if cfg.Warehouse.Host == "" {
		cfg.Warehouse.Host = "localhost"
	}
	if cfg.Warehouse.Port == 0 {
		cfg.Warehouse.Port = 5432
	}
	if cfg.Warehouse.User == "" {
		cfg.Warehouse.User = "postgres"
	}
	if cfg.Warehouse.DBName == "" {
		cfg.Warehouse.DBName = "sales"
	}
	if cfg.Warehouse.SSLMode == "" {
		cfg.Warehouse.SSLMode = "disable"
	}
	if cfg.Warehouse.MaxOpenConns == 0 {
		cfg.Warehouse.MaxOpenConns = 10
	}
	if cfg.Warehouse.MaxIdleConns == 0 {
		cfg.Warehouse.MaxIdleConns = 2
	}
	if cfg.Warehouse.ConnMaxLifetime == 0 {
		cfg.Warehouse.ConnMaxLifetime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "sales:report:"
	}
	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = "exports/"
	}
	if cfg.Export.Region == "" {
		cfg.Export.Region = cfg.Athena.Region
	}
	if cfg.Export.PresignExpiration == 0 {
		cfg.Export.PresignExpiration = 15 * time.Minute
	}
	if cfg.Export.RateLimit <= 0 {
		cfg.Export.RateLimit = 6
	}
	if cfg.Export.RateWindow == 0 {
		cfg.Export.RateWindow = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SlowQueryThreshold == 0 {
		cfg.Telemetry.SlowQueryThreshold = 5 * time.Second
	}
	if cfg.Analytics.Schema == "" {
		cfg.Analytics.Schema = "databeautykami"
	}
	if cfg.Analytics.LifecycleMode == "" {
		cfg.Analytics.LifecycleMode = "engine"
	}
	if cfg.Analytics.DefaultProfile == "" {
		cfg.Analytics.DefaultProfile = "summary"
	}
	if cfg.Analytics.Locale == "" {
		cfg.Analytics.Locale = "pt-BR"
	}
	if cfg.Analytics.ReportTimeout == 0 {
		cfg.Analytics.ReportTimeout = 2 * time.Minute
	}
	if cfg.Athena.Database == "" {
		cfg.Athena.Database = cfg.Analytics.Schema
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Warehouse.Driver {
	case "athena":
		if c.Athena.StagingDir == "" {
			return fmt.Errorf("athena.staging_dir is required when warehouse.driver is athena")
		}
		if !strings.HasPrefix(c.Athena.StagingDir, "s3://") {
			return fmt.Errorf("athena.staging_dir must be an s3:// URI, got %q", c.Athena.StagingDir)
		}
	case "postgres":
		if c.Warehouse.MaxOpenConns <= 0 {
			return fmt.Errorf("warehouse.max_open_conns must be positive")
		}
		if c.Warehouse.MaxIdleConns < 0 {
			return fmt.Errorf("warehouse.max_idle_conns cannot be negative")
		}
		if c.Warehouse.MaxIdleConns > c.Warehouse.MaxOpenConns {
			return fmt.Errorf("warehouse.max_idle_conns (%d) cannot exceed warehouse.max_open_conns (%d)",
				c.Warehouse.MaxIdleConns, c.Warehouse.MaxOpenConns)
		}
	default:
		return fmt.Errorf("warehouse.driver must be athena or postgres, got %q", c.Warehouse.Driver)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}

	switch c.Analytics.LifecycleMode {
	case "engine", "in_process":
	default:
		return fmt.Errorf("analytics.lifecycle_mode must be engine or in_process, got %q", c.Analytics.LifecycleMode)
	}

	if c.Export.Enabled && c.Export.Bucket == "" {
		return fmt.Errorf("export.bucket is required when export.enabled is true")
	}

	if c.App.Env == "production" {
		if c.Warehouse.Driver == "postgres" && c.Warehouse.SSLMode == "disable" {
			return fmt.Errorf("warehouse.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the warehouse connection string with properly escaped values
func (w *WarehouseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(w.User, w.Password),
		Host:   fmt.Sprintf("%s:%d", w.Host, w.Port),
		Path:   w.DBName,
	}
	q := u.Query()
	q.Set("sslmode", w.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
