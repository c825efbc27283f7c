// Package config holds the API server configuration. Values are layered:
// built-in defaults, then an optional JSON file (-c/-config), then process
// environment (optionally seeded from a .env file), then command-line flags.
package config

import (
	"net"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the workout API server.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	AllowedOrigins  []string

	// DatabaseDSN, when set, takes precedence over the discrete fields below.
	DatabaseDSN          string
	DatabaseHost         string
	DatabasePort         string
	DatabaseName         string
	DatabaseUser         string
	DatabasePassword     string
	DatabaseMaxOpenConns int
	DatabaseMaxIdleConns int

	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string
	// CognitoIssuer and CognitoJWKSURL override the values derived from
	// region and pool id. Useful against a local identity provider.
	CognitoIssuer  string
	CognitoJWKSURL string

	JWKSMaxAge             time.Duration
	JWKSMinRefreshInterval time.Duration
	JWKSFetchTimeout       time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.ShutdownTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.AllowedOrigins = []string{"http://localhost:3000"}

	c.DatabaseHost = "localhost"
	c.DatabasePort = "5432"
	c.DatabaseName = "workout"
	c.DatabaseUser = "workoutadmin"
	c.DatabasePassword = "password"
	c.DatabaseMaxOpenConns = 10
	c.DatabaseMaxIdleConns = 5

	c.CognitoRegion = "us-east-1"

	c.JWKSMaxAge = 12 * time.Hour
	c.JWKSMinRefreshInterval = time.Minute
	c.JWKSFetchTimeout = 5 * time.Second
}

// LoadConfig builds a Config from defaults, the JSON file named by -c/-config,
// the process environment and finally command-line flags.
func LoadConfig() (*Config, error) {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Issuer is the expected "iss" claim of identity tokens.
func (c *Config) Issuer() string {
	if c.CognitoIssuer != "" {
		return c.CognitoIssuer
	}
	return "https://cognito-idp." + c.CognitoRegion + ".amazonaws.com/" + c.CognitoUserPoolID
}

// JWKSURL is where the identity provider publishes its signing keys.
func (c *Config) JWKSURL() string {
	if c.CognitoJWKSURL != "" {
		return c.CognitoJWKSURL
	}
	return c.Issuer() + "/.well-known/jwks.json"
}

// DSN returns the PostgreSQL connection string for the pgx driver.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:   net.JoinHostPort(c.DatabaseHost, c.DatabasePort),
		Path:   "/" + c.DatabaseName,
	}
	return u.String()
}
