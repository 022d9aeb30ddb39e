package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Run("prefixed variables", func(t *testing.T) {
		t.Setenv("NEEXA_DATABASE_DSN", "memory://")
		t.Setenv("NEEXA_LOCKOUT_THRESHOLD", "7")
		t.Setenv("NEEXA_RESET_TOKEN_VALIDITY_DURATION", "2h")
		t.Setenv("NEEXA_REFRESH_TOKEN_VALIDITY_DURATION", "30d")
		t.Setenv("NEEXA_GIN_MODE", "debug")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, MemoryDSN, cfg.DatabaseDSN)
		assert.Equal(t, 7, cfg.LockoutThreshold)
		assert.Equal(t, 2*time.Hour, cfg.ResetTokenValidityDuration)
		assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "debug", cfg.GinMode)
		assert.Equal(t, 10, cfg.BcryptCost, "unset keys keep their value")
	})

	t.Run("legacy names", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://legacy")
		t.Setenv("JWT_SECRET_KEY", "legacy-secret")

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "postgres://legacy", cfg.DatabaseDSN)
		assert.Equal(t, "legacy-secret", cfg.SecretKey)
	})

	t.Run("prefixed wins over legacy", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://legacy")
		t.Setenv("NEEXA_DATABASE_DSN", "postgres://new")

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "postgres://new", cfg.DatabaseDSN)
	})

	t.Run("malformed number panics", func(t *testing.T) {
		t.Setenv("NEEXA_BCRYPT_COST", "high")

		require.Panics(t, func() { parseEnv(&Config{}) })
	})

	t.Run("malformed duration panics", func(t *testing.T) {
		t.Setenv("NEEXA_LOCKOUT_DURATION", "a while")

		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
