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
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	CRM      CRMConfig
	Sync     SyncConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings for the admin API
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Webhook endpoints get their own ceiling: the CRM fires a burst of
	// events after bulk edits and must not starve the rest of the API.
	WebhookRateLimitRequests int
	WebhookRateLimitWindow   time.Duration
	CORSAllowOrigins         []string
	CORSAllowMethods         []string
	CORSAllowHeaders         []string
	TrustedProxies           []string
}

// CRMConfig holds the remote CRM connection settings
type CRMConfig struct {
	BaseURL        string // Portal root, e.g. https://example.crm.test
	ClientID       string
	ClientSecret   string
	RedirectURL    string // OAuth callback registered with the CRM
	TimeoutSeconds int
	WebhookSecret  string // HMAC key for inbound webhooks; empty disables verification
	CallbackBase   string // Public base URL the CRM posts webhooks to
}

// SyncConfig holds synchronization behavior settings
type SyncConfig struct {
	OrderSyncEnabled    bool
	CustomerSyncEnabled bool
	FormCaptureEnabled  bool
	MaxSyncsPerMinute   int64
	MaxSyncsPerHour     int64
	LocalLockTTL        time.Duration
	RemoteLockTTL       time.Duration
	LockReleaseDelay    time.Duration
	PhonePrefix         string // Default international prefix for bare local numbers
	QueueRetention      time.Duration
	QueueRetryInterval  time.Duration
	QueueRetryBatch     int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CRMSYNC_ prefix (e.g., CRMSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CRMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true need explicit registration so an
	// absent key is distinguishable from a configured false.
	v.SetDefault("sync.order_sync_enabled", true)
	v.SetDefault("sync.customer_sync_enabled", true)
	v.SetDefault("sync.form_capture_enabled", true)
	v.SetDefault("http.rate_limit_enabled", true)

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:              v.GetDuration("http.read_timeout"),
			WriteTimeout:             v.GetDuration("http.write_timeout"),
			IdleTimeout:              v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:           v.GetInt("http.max_header_bytes"),
			MaxBodySize:              v.GetInt64("http.max_body_size"),
			RateLimitEnabled:         v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:        v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:          v.GetDuration("http.rate_limit_window"),
			WebhookRateLimitRequests: v.GetInt("http.webhook_rate_limit_requests"),
			WebhookRateLimitWindow:   v.GetDuration("http.webhook_rate_limit_window"),
			CORSAllowOrigins:         v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:         v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:         v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:           v.GetStringSlice("http.trusted_proxies"),
		},
		CRM: CRMConfig{
			BaseURL:        v.GetString("crm.base_url"),
			ClientID:       v.GetString("crm.client_id"),
			ClientSecret:   v.GetString("crm.client_secret"),
			RedirectURL:    v.GetString("crm.redirect_url"),
			TimeoutSeconds: v.GetInt("crm.timeout_seconds"),
			WebhookSecret:  v.GetString("crm.webhook_secret"),
			CallbackBase:   v.GetString("crm.callback_base"),
		},
		Sync: SyncConfig{
			OrderSyncEnabled:    v.GetBool("sync.order_sync_enabled"),
			CustomerSyncEnabled: v.GetBool("sync.customer_sync_enabled"),
			FormCaptureEnabled:  v.GetBool("sync.form_capture_enabled"),
			MaxSyncsPerMinute:   v.GetInt64("sync.max_syncs_per_minute"),
			MaxSyncsPerHour:     v.GetInt64("sync.max_syncs_per_hour"),
			LocalLockTTL:        v.GetDuration("sync.local_lock_ttl"),
			RemoteLockTTL:       v.GetDuration("sync.remote_lock_ttl"),
			LockReleaseDelay:    v.GetDuration("sync.lock_release_delay"),
			PhonePrefix:         v.GetString("sync.phone_prefix"),
			QueueRetention:      v.GetDuration("sync.queue_retention"),
			QueueRetryInterval:  v.GetDuration("sync.queue_retry_interval"),
			QueueRetryBatch:     v.GetInt("sync.queue_retry_batch"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crmsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "crmsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "crmsync-backend"
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, payloads here are small
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.WebhookRateLimitRequests == 0 {
		cfg.HTTP.WebhookRateLimitRequests = 200
	}
	if cfg.HTTP.WebhookRateLimitWindow == 0 {
		cfg.HTTP.WebhookRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.CRM.TimeoutSeconds == 0 {
		cfg.CRM.TimeoutSeconds = 30
	}
	if cfg.CRM.CallbackBase == "" {
		cfg.CRM.CallbackBase = cfg.CRM.RedirectURL
	}
	if cfg.Sync.MaxSyncsPerMinute == 0 {
		cfg.Sync.MaxSyncsPerMinute = 20
	}
	if cfg.Sync.MaxSyncsPerHour == 0 {
		cfg.Sync.MaxSyncsPerHour = 100
	}
	if cfg.Sync.LocalLockTTL == 0 {
		cfg.Sync.LocalLockTTL = 30 * time.Second
	}
	if cfg.Sync.RemoteLockTTL == 0 {
		cfg.Sync.RemoteLockTTL = 300 * time.Second
	}
	if cfg.Sync.LockReleaseDelay == 0 {
		cfg.Sync.LockReleaseDelay = 5 * time.Second
	}
	if cfg.Sync.PhonePrefix == "" {
		cfg.Sync.PhonePrefix = "+506"
	}
	if cfg.Sync.QueueRetention == 0 {
		cfg.Sync.QueueRetention = 30 * 24 * time.Hour
	}
	if cfg.Sync.QueueRetryInterval == 0 {
		cfg.Sync.QueueRetryInterval = 5 * time.Minute
	}
	if cfg.Sync.QueueRetryBatch == 0 {
		cfg.Sync.QueueRetryBatch = 50
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.MaxSyncsPerMinute < 0 || c.Sync.MaxSyncsPerHour < 0 {
		return fmt.Errorf("sync frequency ceilings cannot be negative")
	}
	if !strings.HasPrefix(c.Sync.PhonePrefix, "+") {
		return fmt.Errorf("sync.phone_prefix must start with '+', got %q", c.Sync.PhonePrefix)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.CRM.WebhookSecret == "" {
			return fmt.Errorf("crm.webhook_secret is required in production (unsigned webhooks)")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
