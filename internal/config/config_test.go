package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_LocalProviderDefaults(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "local")
	t.Setenv("DEV_AUTH_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AuthProviderLocal, cfg.AuthProvider)
	assert.Equal(t, 3, cfg.ProfileFetchMaxAttempts)
	assert.Equal(t, time.Second, cfg.ProfileFetchRetryDelay)
	assert.Equal(t, time.Minute, cfg.ProfileCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, time.Hour, cfg.DevAuthTokenTTL)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "LOCAL")
	t.Setenv("DEV_AUTH_SECRET", testSecret)
	t.Setenv("PROFILE_FETCH_MAX_ATTEMPTS", "5")
	t.Setenv("PROFILE_FETCH_RETRY_DELAY_MS", "250")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.instauto.com.br, https://admin.instauto.com.br")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ProfileFetchMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ProfileFetchRetryDelay)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"https://app.instauto.com.br", "https://admin.instauto.com.br"}, cfg.AllowedOrigins())
}

func TestLoad_DurationOverridesUseTheirUnit(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "local")
	t.Setenv("DEV_AUTH_SECRET", testSecret)
	t.Setenv("SERVER_TIMEOUT_SECONDS", "45")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINUTES", "15")
	t.Setenv("DEV_AUTH_TOKEN_TTL_MINUTES", "5")
	t.Setenv("PROFILE_FETCH_RETRY_DELAY_MS", "30")
	t.Setenv("PROFILE_CACHE_TTL_SECONDS", "90")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 15*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, cfg.DevAuthTokenTTL)
	assert.Equal(t, 30*time.Millisecond, cfg.ProfileFetchRetryDelay)
	assert.Equal(t, 90*time.Second, cfg.ProfileCacheTTL)
}

func TestLoad_FirebaseRequiresKeyFile(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "firebase")
	t.Setenv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIREBASE_SERVICE_ACCOUNT_KEY_PATH")

	t.Setenv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", filepath.Join(t.TempDir(), "missing.json"))
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	keyPath := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(keyPath, []byte(`{}`), 0o600))
	t.Setenv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", keyPath)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, keyPath, cfg.FirebaseServiceAccountKeyPath)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DBDriver:                "sqlite",
			AuthProvider:            AuthProviderLocal,
			DevAuthSecret:           testSecret,
			ProfileFetchMaxAttempts: 3,
			LoginPath:               "/login",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "unknown provider", mutate: func(c *Config) { c.AuthProvider = "supabase" }, wantErr: "AUTH_PROVIDER"},
		{name: "short dev secret", mutate: func(c *Config) { c.DevAuthSecret = "short" }, wantErr: "DEV_AUTH_SECRET"},
		{name: "local in release", mutate: func(c *Config) { c.GinMode = "release" }, wantErr: "release"},
		{name: "zero attempts", mutate: func(c *Config) { c.ProfileFetchMaxAttempts = 0 }, wantErr: "PROFILE_FETCH_MAX_ATTEMPTS"},
		{name: "relative login path", mutate: func(c *Config) { c.LoginPath = "login" }, wantErr: "LOGIN_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
