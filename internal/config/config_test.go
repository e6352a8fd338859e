package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "finapp")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "finapp")
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", c.Port)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, 15*time.Minute, c.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTTL)
	assert.Equal(t, 10, c.BcryptCost)
	assert.True(t, c.CookieSecure)
	assert.False(t, c.EventsEnabled)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.IsProd())
	assert.Equal(t, 5*time.Minute, c.AccessTTL)
	assert.False(t, c.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MemoryStoreNeedsNoDB(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", c.StoreDriver)
}

func TestLoad_MissingDBForMySQL(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SharedSecretRejected(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_SECRET", "access")

	_, err := Load()
	assert.ErrorIs(t, err, ErrSharedSecret)
}

func TestValidate(t *testing.T) {
	base := Config{
		StoreDriver:      "memory",
		JWTSecret:        "a",
		JWTRefreshSecret: "b",
		AccessTTL:        time.Minute,
		RefreshTTL:       time.Hour,
		BcryptCost:       10,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.StoreDriver = "postgres"
	assert.Error(t, bad.Validate())

	bad = base
	bad.StoreDriver = "mysql"
	assert.Error(t, bad.Validate(), "mysql store needs DB_* settings")

	bad = base
	bad.AccessTTL = 2 * time.Hour
	assert.Error(t, bad.Validate())

	bad = base
	bad.BcryptCost = 2
	assert.Error(t, bad.Validate())

	bad = base
	bad.RefreshTTL = 0
	assert.Error(t, bad.Validate())
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "ip")

	rl, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.True(t, rl.Enabled)
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 10*time.Second, rl.TTL)
	assert.Equal(t, "ip", rl.KeyStrategy)
	assert.Equal(t, "rl", rl.Prefix)
}

func TestRedisConfig_Address(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	rc, err := LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", rc.Address())

	assert.Equal(t, "localhost:6379", RedisConfig{Addr: "localhost:6379"}.Address())
}
