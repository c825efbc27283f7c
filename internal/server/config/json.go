package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/workout/internal/flagx"
	"github.com/dmitrijs2005/workout/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// "5s"-style strings or integer nanoseconds. Fields left out of the file keep
// their previous values.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`
	AllowedOrigins  []string       `json:"allowed_origins"`

	DatabaseDSN          string `json:"database_dsn"`
	DatabaseHost         string `json:"database_host"`
	DatabasePort         string `json:"database_port"`
	DatabaseName         string `json:"database_name"`
	DatabaseUser         string `json:"database_user"`
	DatabasePassword     string `json:"database_password"`
	DatabaseMaxOpenConns int    `json:"database_max_open_conns"`
	DatabaseMaxIdleConns int    `json:"database_max_idle_conns"`

	CognitoRegion     string `json:"cognito_region"`
	CognitoUserPoolID string `json:"cognito_user_pool_id"`
	CognitoClientID   string `json:"cognito_client_id"`
	CognitoIssuer     string `json:"cognito_issuer"`
	CognitoJWKSURL    string `json:"cognito_jwks_url"`

	JWKSMaxAge             timex.Duration `json:"jwks_max_age"`
	JWKSMinRefreshInterval timex.Duration `json:"jwks_min_refresh_interval"`
	JWKSFetchTimeout       timex.Duration `json:"jwks_fetch_timeout"`
}

// parseJson overlays values from the file named by -c/-config in args. No
// flag means nothing to load.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DatabaseHost, c.DatabaseHost)
	setString(&config.DatabasePort, c.DatabasePort)
	setString(&config.DatabaseName, c.DatabaseName)
	setString(&config.DatabaseUser, c.DatabaseUser)
	setString(&config.DatabasePassword, c.DatabasePassword)
	if c.DatabaseMaxOpenConns > 0 {
		config.DatabaseMaxOpenConns = c.DatabaseMaxOpenConns
	}
	if c.DatabaseMaxIdleConns > 0 {
		config.DatabaseMaxIdleConns = c.DatabaseMaxIdleConns
	}

	setString(&config.CognitoRegion, c.CognitoRegion)
	setString(&config.CognitoUserPoolID, c.CognitoUserPoolID)
	setString(&config.CognitoClientID, c.CognitoClientID)
	setString(&config.CognitoIssuer, c.CognitoIssuer)
	setString(&config.CognitoJWKSURL, c.CognitoJWKSURL)

	setDuration(&config.JWKSMaxAge, c.JWKSMaxAge)
	setDuration(&config.JWKSMinRefreshInterval, c.JWKSMinRefreshInterval)
	setDuration(&config.JWKSFetchTimeout, c.JWKSFetchTimeout)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
