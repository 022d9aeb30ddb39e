package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/neexa/neexa-backend/internal/timex"
	"github.com/spf13/viper"
)

// envPrefix namespaces the variables read by parseEnv, e.g. NEEXA_DATABASE_DSN.
const envPrefix = "NEEXA"

// legacyEnv lists the variable names earlier deployments used, kept so
// existing .env files keep working. NEEXA_* wins when both are set.
var legacyEnv = map[string]string{
	"database_dsn": "DATABASE_URL",
	"secret_key":   "JWT_SECRET_KEY",
}

// parseEnv overlays settings found in the environment onto config.
// Malformed numbers or durations panic, like a malformed JSON file does.
func parseEnv(config *Config) {
	v := newEnvViper()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if !v.IsSet(key) {
			return
		}
		var n int
		if _, err := fmt.Sscanf(v.GetString(key), "%d", &n); err != nil {
			panic(fmt.Errorf("env %s_%s: %w", envPrefix, key, err))
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		if !v.IsSet(key) {
			return
		}
		d, err := timex.ParseDuration(v.GetString(key))
		if err != nil {
			panic(fmt.Errorf("env %s_%s: %w", envPrefix, key, err))
		}
		*dst = d
	}

	str("endpoint_addr_http", &config.EndpointAddrHTTP)
	str("endpoint_addr_grpc", &config.EndpointAddrGRPC)
	str("database_dsn", &config.DatabaseDSN)
	str("secret_key", &config.SecretKey)
	dur("access_token_validity_duration", &config.AccessTokenValidityDuration)
	dur("refresh_token_validity_duration", &config.RefreshTokenValidityDuration)
	num("bcrypt_cost", &config.BcryptCost)
	num("lockout_threshold", &config.LockoutThreshold)
	dur("lockout_duration", &config.LockoutDuration)
	dur("reset_token_validity_duration", &config.ResetTokenValidityDuration)
	str("reset_link_base_url", &config.ResetLinkBaseURL)
	str("smtp_host", &config.SMTPHost)
	num("smtp_port", &config.SMTPPort)
	str("smtp_user", &config.SMTPUser)
	str("smtp_password", &config.SMTPPassword)
	str("smtp_from", &config.SMTPFrom)
	str("redis_addr", &config.RedisAddr)
	num("rate_limit_requests", &config.RateLimitRequests)
	dur("rate_limit_window", &config.RateLimitWindow)
	dur("request_timeout", &config.RequestTimeout)
	str("log_level", &config.LogLevel)
	str("log_format", &config.LogFormat)
	str("gin_mode", &config.GinMode)
}

var envKeys = []string{
	"endpoint_addr_http", "endpoint_addr_grpc", "database_dsn", "secret_key",
	"access_token_validity_duration", "refresh_token_validity_duration",
	"bcrypt_cost", "lockout_threshold", "lockout_duration",
	"reset_token_validity_duration", "reset_link_base_url",
	"smtp_host", "smtp_port", "smtp_user", "smtp_password", "smtp_from",
	"redis_addr", "rate_limit_requests", "rate_limit_window", "request_timeout",
	"log_level", "log_format", "gin_mode",
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		names := []string{key, envPrefix + "_" + strings.ToUpper(key)}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		_ = v.BindEnv(names...)
	}
	return v
}
