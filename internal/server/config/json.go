package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/neexa/neexa-backend/internal/flagx"
	"github.com/neexa/neexa-backend/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Duration
// fields accept strings such as "1h" or "30d" as well as nanoseconds.
// Absent or zero fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	LockoutThreshold             int            `json:"lockout_threshold"`
	LockoutDuration              timex.Duration `json:"lockout_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`
	ResetLinkBaseURL             string         `json:"reset_link_base_url"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	SMTPFrom                     string         `json:"smtp_from"`
	RedisAddr                    string         `json:"redis_addr"`
	RateLimitRequests            int            `json:"rate_limit_requests"`
	RateLimitWindow              timex.Duration `json:"rate_limit_window"`
	RequestTimeout               timex.Duration `json:"request_timeout"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
	GinMode                      string         `json:"gin_mode"`
}

// parseJson loads the file named by -c/-config, if any, and overlays its
// non-zero values onto config. An unreadable file or invalid JSON panics:
// the server must not start on a half-read configuration.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.applyTo(config)
}

func (c *JsonConfig) applyTo(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.LockoutThreshold, c.LockoutThreshold)
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	setString(&config.ResetLinkBaseURL, c.ResetLinkBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.RedisAddr, c.RedisAddr)
	setInt(&config.RateLimitRequests, c.RateLimitRequests)
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.GinMode, c.GinMode)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
