package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "crm-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "crm", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.True(t, cfg.Database.RecursiveQueries)
		assert.Equal(t, RefreshStoreDatabase, cfg.Auth.RefreshStore)
		assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
		assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
		assert.Equal(t, 1000, cfg.Cache.MaxEntries)
		assert.Equal(t, time.Hour, cfg.Auth.TokenCleanupInterval)
		assert.False(t, cfg.Profiling.Enabled)
		assert.Equal(t, "crm-backend", cfg.Profiling.ApplicationName)
	})

	t.Run("loads values from environment variables with CRM prefix", func(t *testing.T) {
		t.Setenv("CRM_APP_NAME", "test-app")
		t.Setenv("CRM_APP_PORT", "9000")
		t.Setenv("CRM_DATABASE_DRIVER", "sqlite")
		t.Setenv("CRM_DATABASE_PATH", ":memory:")
		t.Setenv("CRM_DATABASE_RECURSIVE_QUERIES", "false")
		t.Setenv("CRM_AUTH_REFRESH_STORE", "redis")
		t.Setenv("CRM_CACHE_BACKEND", "none")
		t.Setenv("CRM_CACHE_TTL", "5m")
		t.Setenv("CRM_CACHE_MAX_ENTRIES", "50")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.False(t, cfg.Database.RecursiveQueries)
		assert.Equal(t, RefreshStoreRedis, cfg.Auth.RefreshStore)
		assert.Equal(t, CacheBackendNone, cfg.Cache.Backend)
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, 50, cfg.Cache.MaxEntries)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("CRM_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("CRM_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("CRM_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown cache backend", func(t *testing.T) {
		t.Setenv("CRM_CACHE_BACKEND", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.backend")
	})

	t.Run("profiling requires a server address", func(t *testing.T) {
		t.Setenv("CRM_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profiling.server_address")
	})

	t.Run("rejects unknown refresh store", func(t *testing.T) {
		t.Setenv("CRM_AUTH_REFRESH_STORE", "cookie")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.refresh_store")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("CRM_APP_ENV", "production")
		t.Setenv("CRM_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("CRM_DATABASE_PASSWORD", "secure-password")
		t.Setenv("CRM_DATABASE_SSLMODE", "require")
	}

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("CRM_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("CRM_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("CRM_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects wildcard CORS in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("CRM_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite uses the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/crm.db"}
		assert.Equal(t, "/tmp/crm.db", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
