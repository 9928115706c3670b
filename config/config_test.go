package config

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("s", MinSecretLength)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"JWT_SECRET": testSecret,
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.True(t, cfg.Database.RunMigrations)
				assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
				assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL)
				assert.Equal(t, LedgerPostgres, cfg.Ledger.Backend)
				assert.Equal(t, 2*time.Second, cfg.Ledger.Timeout)
				assert.Equal(t, 10*time.Minute, cfg.Ledger.SweepInterval)
				assert.Equal(t, "refresh", cfg.Cookie.Name)
				assert.Equal(t, "/", cfg.Cookie.Path)
				assert.Equal(t, http.SameSiteLaxMode, cfg.Cookie.SameSiteMode())
				assert.Equal(t, []string{"http://localhost:*"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, 10, cfg.Auth.BcryptCost)
			},
		},
		{
			name: "token lifetimes and redis ledger",
			envVars: map[string]string{
				"JWT_SECRET":      testSecret,
				"JWT_ACCESS_TTL":  "30s",
				"JWT_REFRESH_TTL": "1h",
				"LEDGER_BACKEND":  "REDIS",
				"REDIS_URL":       "redis://cache:6379/2",
				"LEDGER_TIMEOUT":  "500ms",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*time.Second, cfg.JWT.AccessTTL)
				assert.Equal(t, time.Hour, cfg.JWT.RefreshTTL)
				assert.Equal(t, LedgerRedis, cfg.Ledger.Backend)
				assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
				assert.Equal(t, 500*time.Millisecond, cfg.Ledger.Timeout)
			},
		},
		{
			name: "database url and pool settings",
			envVars: map[string]string{
				"JWT_SECRET":        testSecret,
				"DATABASE_URL":      "postgres://auth:pw@db:5433/auth?sslmode=disable",
				"DB_MAX_OPEN_CONNS": "50",
				"DB_RUN_MIGRATIONS": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://auth:pw@db:5433/auth?sslmode=disable", cfg.Database.DSN())
				assert.Equal(t, "host=db port=5433 database=auth", cfg.Database.LogString())
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.False(t, cfg.Database.RunMigrations)
			},
		},
		{
			name: "cookie and cors overrides",
			envVars: map[string]string{
				"JWT_SECRET":              testSecret,
				"REFRESH_COOKIE_SECURE":   "true",
				"REFRESH_COOKIE_SAMESITE": "Strict",
				"CORS_ALLOWED_ORIGINS":    "https://app.example.com, https://admin.example.com",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Cookie.Secure)
				assert.Equal(t, http.SameSiteStrictMode, cfg.Cookie.SameSiteMode())
				assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"JWT_SECRET":  testSecret,
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name:    "missing secret",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "short secret",
			envVars: map[string]string{
				"JWT_SECRET": "short",
			},
			wantErr: true,
		},
		{
			name: "refresh not longer than access",
			envVars: map[string]string{
				"JWT_SECRET":      testSecret,
				"JWT_ACCESS_TTL":  "1h",
				"JWT_REFRESH_TTL": "1h",
			},
			wantErr: true,
		},
		{
			name: "unknown ledger backend",
			envVars: map[string]string{
				"JWT_SECRET":     testSecret,
				"LEDGER_BACKEND": "memcached",
			},
			wantErr: true,
		},
		{
			name: "production requires secure cookie",
			envVars: map[string]string{
				"JWT_SECRET":  testSecret,
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		JWT: JWTConfig{
			Secret:     testSecret,
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		Auth:   AuthConfig{BcryptCost: 10},
		Ledger: LedgerConfig{Backend: LedgerPostgres, Timeout: time.Second},
		Cookie: CookieConfig{Name: "refresh", SameSite: "lax"},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid development config", func(*Config) {}, ""},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database configuration required"},
		{"missing database user", func(c *Config) { c.Database.User = "" }, "database user is required"},
		{"short secret", func(c *Config) { c.JWT.Secret = "abc" }, "JWT_SECRET"},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }, "access token TTL"},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Second }, "must exceed"},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }, "bcrypt cost"},
		{"redis without address", func(c *Config) { c.Ledger.Backend = LedgerRedis }, "REDIS_URL"},
		{"redis with address", func(c *Config) { c.Ledger.Backend = LedgerRedis; c.Redis.Addr = "localhost:6379" }, ""},
		{"bolt without path", func(c *Config) { c.Ledger.Backend = LedgerBolt }, "LEDGER_BOLT_PATH"},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "etcd" }, "unknown ledger backend"},
		{"zero ledger timeout", func(c *Config) { c.Ledger.Timeout = 0 }, "ledger timeout"},
		{"bad samesite", func(c *Config) { c.Cookie.SameSite = "sometimes" }, "SameSite"},
		{"missing log level", func(c *Config) { c.Observability.LogLevel = "" }, "log level is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
			assert.Equal(t, tt.environment == "development", cfg.IsDevelopment())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestCookieConfig_SameSiteMode(t *testing.T) {
	tests := []struct {
		value string
		want  http.SameSite
	}{
		{"lax", http.SameSiteLaxMode},
		{"", http.SameSiteLaxMode},
		{"strict", http.SameSiteStrictMode},
		{"none", http.SameSiteNoneMode},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := CookieConfig{SameSite: tt.value}
			assert.Equal(t, tt.want, cfg.SameSiteMode())
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"comma separated", "a, b,c", []string{"a", "b", "c"}},
		{"empty value", "", []string{"default"}},
		{"only separators", " , ,", []string{"default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SLICE", tt.value)
			assert.Equal(t, tt.want, getEnvAsSlice("TEST_SLICE", []string{"default"}))
		})
	}
}
