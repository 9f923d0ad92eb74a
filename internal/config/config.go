// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Auth providers accepted in AUTH_PROVIDER.
const (
	AuthProviderFirebase = "firebase"
	AuthProviderLocal    = "local"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	ServerTimeout      time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Session provider
	AuthProvider                  string        `mapstructure:"AUTH_PROVIDER"`
	FirebaseServiceAccountKeyPath string        `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string        `mapstructure:"FIREBASE_PROJECT_ID"`
	DevAuthSecret                 string        `mapstructure:"DEV_AUTH_SECRET"`
	DevAuthTokenTTL               time.Duration `mapstructure:"-"` // DEV_AUTH_TOKEN_TTL_MINUTES
	DevAuthAccounts               string        `mapstructure:"DEV_AUTH_ACCOUNTS"` // "email=uid,email=uid"
	SessionCookieName             string        `mapstructure:"SESSION_COOKIE_NAME"`

	// Identity bootstrap
	ProfileFetchMaxAttempts int           `mapstructure:"PROFILE_FETCH_MAX_ATTEMPTS"`
	ProfileFetchRetryDelay  time.Duration `mapstructure:"-"` // PROFILE_FETCH_RETRY_DELAY_MS
	ProfileCacheTTL         time.Duration `mapstructure:"-"` // PROFILE_CACHE_TTL_SECONDS

	// Routing
	LoginPath string `mapstructure:"LOGIN_PATH"`

	// Cron Jobs
	PlanExpiryJobSchedule string `mapstructure:"PLAN_EXPIRY_JOB_SCHEDULE"`

	// Elasticsearch Configuration (optional; oficina search is disabled when empty)
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured as plain integers in their unit and are kept
	// out of Unmarshal, whose duration hook rejects a bare "30".
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.DevAuthTokenTTL = time.Duration(v.GetInt("DEV_AUTH_TOKEN_TTL_MINUTES")) * time.Minute
	cfg.ProfileFetchRetryDelay = time.Duration(v.GetInt("PROFILE_FETCH_RETRY_DELAY_MS")) * time.Millisecond
	cfg.ProfileCacheTTL = time.Duration(v.GetInt("PROFILE_CACHE_TTL_SECONDS")) * time.Second

	cfg.AuthProvider = strings.ToLower(strings.TrimSpace(cfg.AuthProvider))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "instauto_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SQLITE_PATH", "instauto.db")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("AUTH_PROVIDER", AuthProviderFirebase)
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("DEV_AUTH_SECRET", "")
	v.SetDefault("DEV_AUTH_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("DEV_AUTH_ACCOUNTS", "")
	v.SetDefault("SESSION_COOKIE_NAME", "__session")

	v.SetDefault("PROFILE_FETCH_MAX_ATTEMPTS", 3)
	v.SetDefault("PROFILE_FETCH_RETRY_DELAY_MS", 1000)
	v.SetDefault("PROFILE_CACHE_TTL_SECONDS", 60)

	v.SetDefault("LOGIN_PATH", "/login")

	v.SetDefault("PLAN_EXPIRY_JOB_SCHEDULE", "@hourly")

	v.SetDefault("ELASTICSEARCH_URL", "")
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("FATAL: DB_DRIVER must be 'postgres' or 'sqlite', got %q", c.DBDriver)
	}

	switch c.AuthProvider {
	case AuthProviderFirebase:
		if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
			return fmt.Errorf("FATAL: FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
		}
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
	case AuthProviderLocal:
		if len(c.DevAuthSecret) < 32 {
			return fmt.Errorf("FATAL: DEV_AUTH_SECRET must be at least 32 characters when AUTH_PROVIDER=local")
		}
		if c.GinMode == "release" {
			return fmt.Errorf("FATAL: AUTH_PROVIDER=local is not allowed with GIN_MODE=release")
		}
	default:
		return fmt.Errorf("FATAL: AUTH_PROVIDER must be '%s' or '%s', got %q", AuthProviderFirebase, AuthProviderLocal, c.AuthProvider)
	}

	if c.ProfileFetchMaxAttempts < 1 {
		return fmt.Errorf("FATAL: PROFILE_FETCH_MAX_ATTEMPTS must be at least 1")
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("FATAL: LOGIN_PATH must be an absolute path, got %q", c.LoginPath)
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
